package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"github.com/xuri/excelize/v2"
)

const (
	refundSheet     = "Refunds"
	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var ErrReportStorageDisabled = errors.New("report storage is not configured")

var refundLedgerHeader = []string{
	"Order Number", "Customer", "Phone", "Payment Method", "Order Status",
	"Order Total", "Refund Amount", "Refund Date", "Requested Items", "Reason",
}

type ReportUploader interface {
	Upload(ctx context.Context, key string, body []byte, contentType string) (string, error)
}

type ReportService interface {
	// ExportRefundLedger renders refunds processed in [from, to) as an xlsx workbook
	ExportRefundLedger(ctx context.Context, from, to time.Time) ([]byte, error)
	// ArchiveRefundLedger uploads the ledger of the given day and returns its URL
	ArchiveRefundLedger(ctx context.Context, day time.Time) (string, error)
}

type reportService struct {
	orderRepo repository.OrderRepository
	uploader  ReportUploader
	prefix    string
}

func NewReportService(orderRepo repository.OrderRepository, uploader ReportUploader, prefix string) ReportService {
	return &reportService{
		orderRepo: orderRepo,
		uploader:  uploader,
		prefix:    prefix,
	}
}

func (s *reportService) ExportRefundLedger(ctx context.Context, from, to time.Time) ([]byte, error) {
	if !from.Before(to) {
		return nil, fmt.Errorf("%w: report range start must be before its end", ErrValidation)
	}

	orders, err := s.orderRepo.FindRefundedBetween(ctx, from, to)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), refundSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	for col, title := range refundLedgerHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(refundSheet, cell, title); err != nil {
			return nil, err
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(refundLedgerHeader), 1)
	if err := f.SetCellStyle(refundSheet, "A1", lastHeader, headerStyle); err != nil {
		return nil, err
	}

	for i, order := range orders {
		refundDate := ""
		if order.RefundDate != nil {
			refundDate = order.RefundDate.Format(time.RFC3339)
		}
		orderTotal, _ := order.TotalAmount.Float64()
		refundAmount, _ := order.RefundAmount.Float64()

		row := []interface{}{
			order.OrderNumber, order.CustomerName, order.CustomerPhone, string(order.PaymentMethod), string(order.Status),
			orderTotal, refundAmount, refundDate, order.RefundRequestedItems, order.RefundReason,
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(refundSheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write refund row: %w", err)
		}
	}

	if err := f.SetColWidth(refundSheet, "A", "J", 18); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render refund ledger: %w", err)
	}

	logger.Info("Refund ledger exported", map[string]interface{}{
		"from": from,
		"to":   to,
		"rows": len(orders),
	})
	return buf.Bytes(), nil
}

func (s *reportService) ArchiveRefundLedger(ctx context.Context, day time.Time) (string, error) {
	if s.uploader == nil {
		return "", ErrReportStorageDisabled
	}

	from := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	body, err := s.ExportRefundLedger(ctx, from, from.AddDate(0, 0, 1))
	if err != nil {
		return "", err
	}

	key := path.Join(s.prefix, fmt.Sprintf("refunds-%s.xlsx", from.Format("2006-01-02")))
	url, err := s.uploader.Upload(ctx, key, body, xlsxContentType)
	if err != nil {
		logger.Error("Failed to archive refund ledger", err, map[string]interface{}{
			"key": key,
		})
		return "", err
	}

	logger.Info("Refund ledger archived", map[string]interface{}{
		"key": key,
		"url": url,
	})
	return url, nil
}

package controller

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/bazaar-backend/internal/app/service"
	apperrors "github.com/ikkim/bazaar-backend/internal/errors"
)

const (
	reportDateLayout = "2006-01-02"
	xlsxContentType  = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type ReportController struct {
	reports service.ReportService
}

func NewReportController(reports service.ReportService) *ReportController {
	return &ReportController{reports: reports}
}

// RefundLedger downloads the refunds processed between two dates.
// to is exclusive and defaults to the day after from.
// GET /api/v1/admin/reports/refunds.xlsx?from=2026-01-01&to=2026-02-01
func (ctrl *ReportController) RefundLedger(c *gin.Context) {
	from, err := time.ParseInLocation(reportDateLayout, c.Query("from"), time.UTC)
	if err != nil {
		apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "from must be a YYYY-MM-DD date")
		return
	}
	to := from.AddDate(0, 0, 1)
	if raw := c.Query("to"); raw != "" {
		if to, err = time.ParseInLocation(reportDateLayout, raw, time.UTC); err != nil {
			apperrors.BadRequest(c, apperrors.ValidationInvalidInput, "to must be a YYYY-MM-DD date")
			return
		}
	}

	data, err := ctrl.reports.ExportRefundLedger(c.Request.Context(), from, to)
	if err != nil {
		respondError(c, err, "export_refund_ledger")
		return
	}

	filename := fmt.Sprintf("refunds-%s-%s.xlsx", from.Format(reportDateLayout), to.Format(reportDateLayout))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, xlsxContentType, data)
}

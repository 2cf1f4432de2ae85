package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/bazaar-backend/internal/app/service"
	"github.com/ikkim/bazaar-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

type OutboxProcessor interface {
	ProcessDue(ctx context.Context) (int, error)
}

type LedgerArchiver interface {
	ArchiveRefundLedger(ctx context.Context, day time.Time) (string, error)
}

// Schedules 크론 표현식. 빈 값이면 해당 작업 비활성화
type Schedules struct {
	OutboxRetry   string
	RefundArchive string
	JobTimeout    time.Duration
}

// FulfillmentScheduler 후속 작업 재시도 및 환불 장부 보관 스케줄러
type FulfillmentScheduler struct {
	cron      *cron.Cron
	outbox    OutboxProcessor
	archiver  LedgerArchiver
	schedules Schedules
	now       func() time.Time
}

// NewFulfillmentScheduler 스케줄러 생성
func NewFulfillmentScheduler(outbox OutboxProcessor, archiver LedgerArchiver, schedules Schedules) *FulfillmentScheduler {
	if schedules.JobTimeout <= 0 {
		schedules.JobTimeout = 5 * time.Minute
	}
	return &FulfillmentScheduler{
		// 이전 실행이 끝나지 않았으면 건너뜀
		cron:      cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		outbox:    outbox,
		archiver:  archiver,
		schedules: schedules,
		now:       time.Now,
	}
}

// Start 스케줄러 시작
func (s *FulfillmentScheduler) Start() error {
	if s.schedules.OutboxRetry != "" && s.outbox != nil {
		if _, err := s.cron.AddFunc(s.schedules.OutboxRetry, s.retryOutbox); err != nil {
			logger.Error("Failed to add cron job for outbox retry", err, map[string]interface{}{
				"schedule": s.schedules.OutboxRetry,
			})
			return err
		}
	}

	if s.schedules.RefundArchive != "" && s.archiver != nil {
		if _, err := s.cron.AddFunc(s.schedules.RefundArchive, s.archiveYesterday); err != nil {
			logger.Error("Failed to add cron job for refund ledger archive", err, map[string]interface{}{
				"schedule": s.schedules.RefundArchive,
			})
			return err
		}
	}

	s.cron.Start()
	logger.Info("Fulfillment scheduler started", map[string]interface{}{
		"outbox_retry":   s.schedules.OutboxRetry,
		"refund_archive": s.schedules.RefundArchive,
		"jobs":           len(s.cron.Entries()),
	})
	return nil
}

// Stop 스케줄러 중지. 실행 중인 작업이 끝날 때까지 대기
func (s *FulfillmentScheduler) Stop() {
	logger.Info("Stopping fulfillment scheduler...", nil)
	<-s.cron.Stop().Done()
	logger.Info("Fulfillment scheduler stopped", nil)
}

func (s *FulfillmentScheduler) retryOutbox() {
	ctx, cancel := context.WithTimeout(context.Background(), s.schedules.JobTimeout)
	defer cancel()

	if _, err := s.outbox.ProcessDue(ctx); err != nil {
		logger.Error("Scheduled outbox retry failed", err, nil)
	}
}

// archiveYesterday 전날 처리된 환불 장부를 S3에 보관
func (s *FulfillmentScheduler) archiveYesterday() {
	ctx, cancel := context.WithTimeout(context.Background(), s.schedules.JobTimeout)
	defer cancel()

	day := s.now().AddDate(0, 0, -1)
	url, err := s.archiver.ArchiveRefundLedger(ctx, day)
	if err != nil {
		if errors.Is(err, service.ErrReportStorageDisabled) {
			logger.Debug("Report storage disabled, skipping refund archive", nil)
			return
		}
		logger.Error("Scheduled refund ledger archive failed", err, map[string]interface{}{
			"day": day.Format("2006-01-02"),
		})
		return
	}

	logger.Info("Refund ledger archived by scheduler", map[string]interface{}{
		"day": day.Format("2006-01-02"),
		"url": url,
	})
}

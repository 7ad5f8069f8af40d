// Package worker exports month summaries from storage to the report sheet,
// driven by queue messages and by the month-end snapshot schedule.
package worker

import (
	"context"
	"fmt"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/log"
	"bilancio/internal/reports"
	"bilancio/internal/storage"
)

type SyncWorker struct {
	store  storage.Store
	writer reports.Writer
	logger *log.Logger
}

func NewSyncWorker(store storage.Store, writer reports.Writer, logger *log.Logger) *SyncWorker {
	return &SyncWorker{
		store:  store,
		writer: writer,
		logger: logger.WithComponent(log.ComponentWorker),
	}
}

// HandleSyncMessage re-reads the user's totals for the requested month and
// appends them to the sheet. The message only names the user-month, so a
// late delivery still exports current data.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.ReportSyncMessage) error {
	sum, err := w.store.MonthSummary(ctx, msg.UserID, msg.YearMonth)
	if err != nil {
		return fmt.Errorf("load month summary: %w", err)
	}
	return w.export(ctx, sum)
}

// SnapshotPreviousMonth exports the closed month for every user. The cron
// schedule fires it shortly after each month ends.
func (w *SyncWorker) SnapshotPreviousMonth(ctx context.Context, now time.Time) error {
	yearMonth := core.PreviousMonth(now)

	ids, err := w.store.UserIDs(ctx)
	if err != nil {
		return fmt.Errorf("list users: %w", err)
	}

	var failed int
	for _, userID := range ids {
		sum, err := w.store.MonthSummary(ctx, userID, yearMonth)
		if err != nil {
			w.logger.ErrorContext(ctx, "load month summary failed",
				log.FieldError, err,
				log.FieldUserID, userID,
				log.FieldYearMonth, yearMonth)
			failed++
			continue
		}
		if err := w.export(ctx, sum); err != nil {
			w.logger.ErrorContext(ctx, "export month summary failed",
				log.FieldError, err,
				log.FieldUserID, userID,
				log.FieldYearMonth, yearMonth)
			failed++
		}
	}

	w.logger.InfoContext(ctx, "month snapshot completed",
		log.FieldOperation, log.OpSnapshot,
		log.FieldYearMonth, yearMonth,
		"users", len(ids),
		"failed", failed)

	if failed > 0 {
		return fmt.Errorf("snapshot %s: %d of %d users failed", yearMonth, failed, len(ids))
	}
	return nil
}

func (w *SyncWorker) export(ctx context.Context, sum core.MonthSummary) error {
	ref, err := w.writer.AppendMonthSummary(ctx, sum)
	if err != nil {
		return fmt.Errorf("append month summary: %w", err)
	}
	w.logger.InfoContext(ctx, "exported month summary",
		log.FieldUserID, sum.UserID,
		log.FieldYearMonth, sum.YearMonth,
		log.FieldSheetsRef, ref)
	return nil
}

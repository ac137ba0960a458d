// Package worker turns export requests and the cron schedule into report
// exports. Each run reloads the ledger from the KV backend, so the worker
// never holds state of its own beyond the time of the last run.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"kasa/internal/amqp"
	"kasa/internal/export"
	"kasa/internal/log"
	"kasa/internal/report"
	"kasa/internal/store"
)

// SheetsSink receives the full report on every run.
type SheetsSink interface {
	Export(ctx context.Context, rows []export.Row) error
}

// Result describes one export run.
type Result struct {
	Reason   string
	Rows     int
	FilePath string
	Sheets   bool
	Skipped  bool
}

type ExportWorker struct {
	kv     store.KV
	sheets SheetsSink
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	lastRun time.Time
}

type Option func(*ExportWorker)

func WithSheets(s SheetsSink) Option {
	return func(w *ExportWorker) { w.sheets = s }
}

func NewExportWorker(kv store.KV, logger *log.Logger, opts ...Option) *ExportWorker {
	if logger == nil {
		logger = log.Discard()
	}
	w := &ExportWorker{
		kv:     kv,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// HandleExportRequest processes one queued request. Requests made before
// the last successful run started are already covered by it and skipped.
func (w *ExportWorker) HandleExportRequest(ctx context.Context, msg *amqp.ExportRequestMessage) error {
	w.mu.Lock()
	last := w.lastRun
	w.mu.Unlock()

	if !last.IsZero() && msg.RequestedAt.Before(last) {
		w.logger.DebugContext(ctx, "Export request already covered",
			log.FieldReason, msg.Reason, "requested_at", msg.RequestedAt)
		return nil
	}

	_, err := w.Run(ctx, msg.Reason)
	return err
}

// Run exports the current ledger to the configured file and sheet.
func (w *ExportWorker) Run(ctx context.Context, reason string) (Result, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	started := w.now()
	res := Result{Reason: reason}

	st := store.New(w.kv, store.ReadOnly())
	if err := st.Load(ctx); err != nil {
		return res, fmt.Errorf("load ledger: %w", err)
	}
	snap := st.Snapshot()
	rows := export.Rows(report.Apply(snap.Transactions, report.Filter{}, report.Sort{}))
	res.Rows = len(rows)
	res.FilePath = snap.Settings.FilePath

	if res.FilePath == "" && w.sheets == nil {
		w.logger.WarnContext(ctx, "No export target configured", log.FieldReason, reason)
		res.Skipped = true
		w.lastRun = started
		return res, nil
	}

	var errs []error
	if res.FilePath != "" {
		if err := export.WriteFile(res.FilePath, rows); err != nil {
			errs = append(errs, fmt.Errorf("file export: %w", err))
		} else {
			w.logger.InfoContext(ctx, "Report file written",
				log.FieldExportPath, res.FilePath, log.FieldRows, len(rows), log.FieldReason, reason)
		}
	}
	if w.sheets != nil {
		if err := w.sheets.Export(ctx, rows); err != nil {
			errs = append(errs, fmt.Errorf("sheets export: %w", err))
		} else {
			res.Sheets = true
		}
	}

	if err := errors.Join(errs...); err != nil {
		w.logger.ErrorContext(ctx, "Export failed", log.FieldReason, reason, log.FieldError, err)
		return res, err
	}
	w.lastRun = started
	return res, nil
}

// StartSchedule runs scheduled exports on the standard cron spec until ctx
// is done. An empty spec disables the schedule.
func (w *ExportWorker) StartSchedule(ctx context.Context, spec string) error {
	if spec == "" {
		w.logger.InfoContext(ctx, "Export schedule disabled")
		return nil
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, func() {
		if _, err := w.Run(ctx, amqp.ReasonScheduled); err != nil {
			w.logger.ErrorContext(ctx, "Scheduled export failed", log.FieldError, err)
		}
	}); err != nil {
		return fmt.Errorf("invalid export schedule %q: %w", spec, err)
	}

	c.Start()
	w.logger.InfoContext(ctx, "Export schedule started", "schedule", spec)

	go func() {
		<-ctx.Done()
		<-c.Stop().Done()
		w.logger.Info("Export schedule stopped")
	}()
	return nil
}

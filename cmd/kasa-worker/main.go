package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"kasa/internal/amqp"
	"kasa/internal/cli"
	"kasa/internal/config"
	"kasa/internal/export"
	"kasa/internal/log"
	"kasa/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)

	if err := run(logger, cfg); err != nil {
		logger.Error("Export worker stopped with error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Export worker stopped")
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backend := cli.OpenBackend(ctx, logger, cfg)
	defer func() {
		if err := backend.Close(); err != nil {
			logger.Error("Error closing backend", log.FieldError, err)
		}
	}()

	var opts []worker.Option
	if cfg.SheetsEnabled() {
		sheets, err := export.NewSheetsExporter(ctx, export.SheetsConfig{
			SpreadsheetID:   cfg.GoogleSpreadsheetID,
			SheetName:       cfg.GoogleSheetName,
			CredentialsJSON: cfg.GoogleServiceAccountJSON,
			CredentialsFile: cfg.GoogleServiceAccountFile,
		}, logger)
		if err != nil {
			return fmt.Errorf("initialize Google Sheets exporter: %w", err)
		}
		opts = append(opts, worker.WithSheets(sheets))
	}
	w := worker.NewExportWorker(backend.KV, logger, opts...)

	// One run at start-up so the exports reflect the current ledger.
	if _, err := w.Run(ctx, amqp.ReasonScheduled); err != nil {
		logger.Warn("Initial export failed", log.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := w.StartSchedule(gctx, cfg.ExportSchedule); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})

	if client := cli.ConnectAMQP(logger, cfg, true); client != nil {
		defer client.Close()
		g.Go(func() error {
			err := client.ConsumeExportRequests(gctx, w.HandleExportRequest)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	logger.Info("Export worker started", "schedule", cfg.ExportSchedule, "sheets", cfg.SheetsEnabled(),
		log.FieldOperation, log.OpStartup)
	return g.Wait()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"kasa/internal/cli"
	"kasa/internal/config"
	apphttp "kasa/internal/http"
	"kasa/internal/log"
	"kasa/internal/services"
	"kasa/internal/store"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	boot := cli.SetupLogger("info")
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg.LogLevel)

	if err := run(logger, cfg); err != nil {
		logger.Error("Server error", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Server stopped")
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	backend := cli.OpenBackend(ctx, logger, cfg)
	st := store.New(backend.KV)
	if err := st.Load(ctx); err != nil {
		_ = backend.Close()
		return fmt.Errorf("load ledger: %w", err)
	}

	opts := []services.Option{services.WithCleanup(backend.Close)}
	if client := cli.ConnectAMQP(logger, cfg, false); client != nil {
		opts = append(opts, services.WithPublisher(client))
	}
	ledger := services.NewLedgerService(st, logger, opts...)
	defer func() {
		if err := ledger.Close(); err != nil {
			logger.Error("Error closing ledger", log.FieldError, err)
		}
	}()

	srvOpts := apphttp.Options{
		Logger:          logger,
		CacheTTL:        cfg.CacheTTL,
		CacheSize:       cfg.CacheSize,
		MutationsPerMin: cfg.RateLimitPerMin,
	}
	if p, ok := backend.KV.(pinger); ok {
		srvOpts.Ready = p.Ping
	}
	srv := apphttp.NewServer(":"+cfg.Port, ledger, srvOpts)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Server starting", "addr", srv.Addr, "backend", cfg.DataBackend,
			log.FieldOperation, log.OpStartup)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

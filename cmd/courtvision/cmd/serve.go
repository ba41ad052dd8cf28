package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/courtvision/prediction-api/internal/handlers"
	"github.com/courtvision/prediction-api/internal/logic"
	"github.com/courtvision/prediction-api/internal/telemetry"
	"github.com/courtvision/prediction-api/migrations"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, websocket relay and analytics workers",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync()
	sugar := logger.Sugar()
	sugar.Infow("courtvision starting", "version", version, "port", cfg.Port, "env", cfg.Env)

	otelShutdown, err := telemetry.Init(ctx, cfg.OTELEndpoint, cfg.ServiceName, version, cfg.OTELInsecure)
	if err != nil {
		return fmt.Errorf("telemetry: %w", err)
	}
	defer func() { _ = otelShutdown(context.Background()) }()

	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	syncSvc := logic.NewSyncService(a.store, cfg.FeedBaseURL, cfg.SyncTimeout, logger)
	defer syncSvc.Wait()

	hcfg := handlers.Config{
		Store:      a.store,
		Analyzer:   a.orchestrator,
		Sync:       syncSvc,
		Migrator:   logic.NewMigrator(a.pg, a.ch, logger),
		Schemas:    migrations.FS,
		Postgres:   a.pg,
		ClickHouse: a.ch,
		Redis:      a.redis,
		Logger:     logger,
	}
	if a.ch != nil {
		hcfg.Usage = logic.NewUsageService(a.ch)
	}
	if a.counters != nil {
		hcfg.UsageCounters = a.counters
	}
	if a.pool != nil {
		hcfg.EventQueue = a.pool
	}
	h := handlers.New(hcfg)

	a.start(ctx)

	srv := &http.Server{
		Addr: fmt.Sprintf(":%d", cfg.Port),
		Handler: h.Routes(handlers.RouterOptions{
			AllowedOrigins: cfg.AllowedOrigins,
			Realtime:       a.hub,
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		sugar.Info("Shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("HTTP server shutdown incomplete", "error", err)
	}
	sugar.Info("courtvision stopped")
	return nil
}

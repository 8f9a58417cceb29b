package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/kjstillabower/pws-history-proxy/internal/client"
	"github.com/kjstillabower/pws-history-proxy/internal/config"
	httphandler "github.com/kjstillabower/pws-history-proxy/internal/http"
	"github.com/kjstillabower/pws-history-proxy/internal/lifecycle"
	"github.com/kjstillabower/pws-history-proxy/internal/observability"
	"github.com/kjstillabower/pws-history-proxy/internal/render"
	"github.com/kjstillabower/pws-history-proxy/internal/service"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	if cfg.WUAPIKey == "" {
		logger.Warn("WU_API_KEY not set; /api/wu/history will answer 500 missing credential")
	}

	if err := render.LoadTemplates(); err != nil {
		logger.Fatal("templates", zap.Error(err))
	}

	wuClient, err := client.NewWundergroundClient(cfg.WUAPIKey, cfg.WUAPIURL, cfg.UpstreamTimeout)
	if err != nil {
		logger.Fatal("upstream client", zap.Error(err))
	}
	historyService := service.NewHistoryService(wuClient)
	handler := httphandler.NewHandler(historyService, logger)

	if _, err := os.Stat(cfg.StaticDir); err != nil {
		logger.Warn("static directory not found; static files disabled", zap.String("dir", cfg.StaticDir))
		cfg.StaticDir = ""
	}
	router := httphandler.NewRouter(handler, logger, httphandler.RouterConfig{
		StaticDir:   cfg.StaticDir,
		CSPEnabled:  cfg.CSPEnabled,
		MetricsPath: cfg.MetricsPath,
	})

	addr := "0.0.0.0:" + cfg.ServerPort
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server starting",
			zap.String("addr", addr),
			zap.String("env", cfg.EnvName),
			zap.String("static_dir", cfg.StaticDir),
			zap.Bool("csp", cfg.CSPEnabled))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	logger.Info("waiting for in-flight requests", zap.Int64("count", httphandler.InFlightCount()))
	if err := httphandler.WaitForInFlight(shutdownCtx, 100*time.Millisecond); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}
	logger.Info("shutdown complete")
}

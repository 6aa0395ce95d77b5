package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/rmitchellscott/pdfgateway/internal/auth"
	"github.com/rmitchellscott/pdfgateway/internal/config"
	"github.com/rmitchellscott/pdfgateway/internal/gateway"
	"github.com/rmitchellscott/pdfgateway/internal/handlers"
	"github.com/rmitchellscott/pdfgateway/internal/logging"
	"github.com/rmitchellscott/pdfgateway/internal/staging"
	"github.com/rmitchellscott/pdfgateway/internal/storage"
	"github.com/rmitchellscott/pdfgateway/internal/version"
)

const shutdownGrace = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP gateway (default)",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger := logging.Setup(cfg.Log.Level, cfg.Log.Format, os.Stdout)
	logger.Info().Str("version", version.String()).Msg("starting pdfgateway")

	if !cfg.Upstream.HasCredentials() {
		logger.Warn().Msg("API_KEY or API_SECRET is not set; RobotPDF will reject requests")
	}

	if cfg.GinMode != "" {
		gin.SetMode(cfg.GinMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	startupCtx, cancel := context.WithTimeout(context.Background(), time.Minute)
	backend, err := storage.New(startupCtx, cfg.Staging)
	cancel()
	if err != nil {
		return err
	}

	am := auth.New(cfg.Auth)
	if !am.Enabled() {
		logger.Warn().Msg("inbound authentication is disabled")
	}

	router := handlers.NewRouter(handlers.Deps{
		Config:  cfg,
		Gateway: gateway.New(cfg.Upstream, backend),
		Stager:  staging.NewStager(backend),
		Auth:    am,
	})

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 30 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Str("staging", backend.Kind()).Msg("HTTP server listening")
		serverErrors <- srv.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case sig := <-shutdown:
		logger.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	// In-flight requests finish their upstream call and cleanup within the grace period.
	ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Graceful shutdown failed")
		if err := srv.Close(); err != nil {
			logger.Error().Err(err).Msg("Forced shutdown failed")
		}
	}

	logger.Info().Msg("Server stopped")
	return nil
}

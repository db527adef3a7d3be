package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Sternrassler/item-quote-client/internal/httpapi"
	"github.com/Sternrassler/item-quote-client/pkg/logging"
	"github.com/spf13/cobra"
)

func newServeCmd(cfgFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the quote HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*cfgFile)
		},
	}
}

func runServe(cfgFile string) error {
	cfg, logger, err := loadConfig(cfgFile, os.Stderr)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	router := httpapi.NewRouter(httpapi.RouterDeps{
		Resolver:     a.service,
		Quota:        a.guard,
		Logger:       logging.NewLogger(logging.ComponentHTTP),
		MaxBodyBytes: cfg.Server.MaxBodyBytes,
	})

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.Addr()).
			Int("quota_per_minute", cfg.Quota.PerMinute).
			Str("cache_backend", cfg.Cache.Backend).
			Msg("Server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info().Msg("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Shutdown(shutdownCtx)
}

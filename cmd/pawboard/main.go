package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukerupert/pawboard/internal/app"
	"github.com/dukerupert/pawboard/internal/config"
	"github.com/dukerupert/pawboard/internal/logging"
	"github.com/dukerupert/pawboard/internal/metrics"
	"github.com/dukerupert/pawboard/internal/server"
)

func main() {
	_ = godotenv.Load() // .env is optional

	cfg := config.Load()
	logger := logging.Setup(cfg.LogLevel)

	if err := run(cfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	cal, err := cfg.Calendar()
	if err != nil {
		return err
	}

	st, _, err := app.OpenStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := app.PromoteAdmins(st, logger); err != nil {
		return err
	}

	srv := server.New(st, cal, metrics.New(), server.Options{
		ClientDir:      cfg.ClientDir,
		AllowedOrigins: cfg.AllowedOrigins,
	}, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go srv.RateLimiter().RunCleanup(ctx, 5*time.Minute)

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      srv.Router(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("pawboard listening",
			"addr", httpServer.Addr,
			"store", cfg.Store,
			"data", cfg.DataPath,
			"timezone", cal.Location().String(),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

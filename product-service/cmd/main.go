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

	producthttp "github.com/fjod/cartstate/product-service/internal/http"
	"github.com/fjod/cartstate/product-service/internal/repository"
	"github.com/fjod/cartstate/pkg/config"
	"github.com/fjod/cartstate/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

func main() {
	log := logger.New(logger.Options{
		Service: "product-service",
		Env:     config.GetEnv("APP_ENV", "development"),
		Level:   config.GetEnv("LOG_LEVEL", "info"),
	})

	dbPath := config.GetEnv("DB_PATH", "./products.db")
	port := config.GetEnv("HTTP_PORT", "8081")
	if err := run(dbPath, port, log); err != nil {
		log.Error("product service stopped", "err", err)
		os.Exit(1)
	}
	log.Info("product service stopped")
}

func run(dbPath, port string, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	repo, err := repository.NewRepository(dbPath)
	if err != nil {
		return fmt.Errorf("open product database %s: %w", dbPath, err)
	}
	defer repo.Close()

	if err := repo.RunMigrations(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	log.Info("migrations completed successfully")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           producthttp.NewRouter(repo, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, log)
}

// serve runs srv until it fails or ctx ends, then shuts it down.
func serve(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("product service listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down product service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

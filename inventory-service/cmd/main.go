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

	inventoryhttp "github.com/fjod/cartstate/inventory-service/internal/http"
	"github.com/fjod/cartstate/inventory-service/internal/store"
	"github.com/fjod/cartstate/pkg/config"
	"github.com/fjod/cartstate/pkg/logger"
)

const shutdownTimeout = 10 * time.Second

// Initial stock levels matching product-service seeds
var initialStock = map[int64]int{
	1: 3,
	2: 5,
	3: 2,
	4: 1,
	5: 5,
	6: 10,
}

func main() {
	port := config.GetEnv("INVENTORY_SERVICE_PORT", "8082")
	log := logger.New(logger.Options{
		Service: "inventory-service",
		Env:     config.GetEnv("APP_ENV", "development"),
		Level:   config.GetEnv("LOG_LEVEL", "info"),
	})

	if err := run(port, log); err != nil {
		log.Error("inventory service stopped", "err", err)
		os.Exit(1)
	}
	log.Info("inventory service stopped")
}

func run(port string, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	memStore, err := store.NewSeededMemoryStore(initialStock)
	if err != nil {
		return fmt.Errorf("seed stock: %w", err)
	}
	log.Info("initialized stock", "products", len(initialStock))

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           inventoryhttp.NewRouter(memStore, log),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return serve(ctx, srv, log)
}

// serve runs srv until it fails or ctx ends, then shuts it down.
func serve(ctx context.Context, srv *http.Server, log *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		log.Info("inventory service listening", "addr", srv.Addr)
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

	log.Info("shutting down inventory service")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

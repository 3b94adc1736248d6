package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fjod/cartstate/cart-service/internal/cache"
	"github.com/fjod/cartstate/cart-service/internal/catalog"
	carthttp "github.com/fjod/cartstate/cart-service/internal/http"
	"github.com/fjod/cartstate/cart-service/internal/notify"
	"github.com/fjod/cartstate/cart-service/internal/repository"
	"github.com/fjod/cartstate/cart-service/internal/service"
	"github.com/fjod/cartstate/pkg/config"
	"github.com/fjod/cartstate/pkg/logger"
	"github.com/redis/go-redis/v9"
)

type Config struct {
	HTTPPort        string
	Env             string
	LogLevel        string
	InventoryURL    string
	CatalogURL      string
	CatalogTimeout  time.Duration
	Store           string
	StorageKey      string
	SQLitePath      string
	RedisAddr       string
	RedisPassword   string
	SessionTTL      time.Duration
	MongoURI        string
	MongoDBName     string
	Locale          string
	LastWriteWins   bool
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	FeedSize        int
}

func loadConfig() Config {
	return Config{
		HTTPPort:        config.GetEnv("HTTP_PORT", "8080"),
		Env:             config.GetEnv("APP_ENV", "development"),
		LogLevel:        config.GetEnv("LOG_LEVEL", "info"),
		InventoryURL:    config.GetEnv("INVENTORY_URL", "http://localhost:8082"),
		CatalogURL:      config.GetEnv("CATALOG_URL", "http://localhost:8081"),
		CatalogTimeout:  config.GetEnvDuration("CATALOG_TIMEOUT", 10*time.Second),
		Store:           config.GetEnv("CART_STORE", "sqlite"),
		StorageKey:      config.GetEnv("CART_STORAGE_KEY", repository.DefaultKey),
		SQLitePath:      config.GetEnv("SQLITE_PATH", "./cart.db"),
		RedisAddr:       config.GetEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   config.GetEnv("REDIS_PASSWORD", ""),
		SessionTTL:      config.GetEnvDuration("CART_SESSION_TTL", cache.DefaultSessionTTL),
		MongoURI:        config.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName:     config.GetEnv("MONGO_DB_NAME", "cartdb"),
		Locale:          config.GetEnv("CART_LOCALE", "en"),
		LastWriteWins:   config.GetEnvBool("CART_LAST_WRITE_WINS", false),
		RequestTimeout:  config.GetEnvDuration("REQUEST_TIMEOUT", 30*time.Second),
		ShutdownTimeout: config.GetEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
		FeedSize:        config.GetEnvInt("NOTIFICATION_FEED_SIZE", notify.DefaultFeedSize),
	}
}

func main() {
	cfg := loadConfig()
	log := logger.New(logger.Options{
		Service: "cart-service",
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
	})

	if err := run(cfg, log); err != nil {
		log.Error("cart service stopped", "err", err)
		os.Exit(1)
	}
}

func run(cfg Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	inventory, err := catalog.New(cfg.InventoryURL, catalog.WithTimeout(cfg.CatalogTimeout), catalog.WithLogger(log))
	if err != nil {
		return fmt.Errorf("inventory client: %w", err)
	}
	products, err := catalog.New(cfg.CatalogURL, catalog.WithTimeout(cfg.CatalogTimeout), catalog.WithLogger(log))
	if err != nil {
		return fmt.Errorf("catalog client: %w", err)
	}

	feed := notify.NewFeed(cfg.FeedSize)
	opts := []service.Option{
		service.WithStorageKey(cfg.StorageKey),
		service.WithMessages(service.MessagesFor(cfg.Locale)),
		service.WithLogger(log),
	}
	if cfg.LastWriteWins {
		opts = append(opts, service.WithLastWriteWins())
	}

	cart, err := service.New(ctx, service.Deps{
		Stock:    inventory,
		Products: products,
		Store:    store,
		Notifier: notify.Multi{notify.NewLogSink(log), feed},
	}, opts...)
	if err != nil {
		return err
	}
	defer cart.Close()

	srv := &http.Server{
		Addr: ":" + cfg.HTTPPort,
		Handler: carthttp.NewRouter(carthttp.RouterConfig{
			Cart:           cart,
			Feed:           feed,
			Logger:         log,
			RequestTimeout: cfg.RequestTimeout,
		}),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("cart service listening", "port", cfg.HTTPPort, "store", cfg.Store, "inventory", cfg.InventoryURL, "catalog", cfg.CatalogURL)
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

	log.Info("shutting down cart service")
	// stream handlers end when their subscriptions close
	cart.Close()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStore(ctx context.Context, cfg Config, log *slog.Logger) (repository.Store, func(), error) {
	switch strings.ToLower(cfg.Store) {
	case "memory":
		return repository.NewMemoryStore(), func() {}, nil

	case "sqlite":
		s, err := repository.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite store: %w", err)
		}
		log.Info("using sqlite store", "path", cfg.SQLitePath)
		return s, func() { _ = s.Close() }, nil

	case "redis":
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		s := cache.NewRedisStore(client, cfg.SessionTTL, log)
		if err := s.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, nil, fmt.Errorf("redis ping: %w", err)
		}
		log.Info("using redis store", "addr", cfg.RedisAddr, "ttl", cfg.SessionTTL)
		return s, func() { _ = client.Close() }, nil

	case "mongo":
		db, err := repository.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
		if err != nil {
			return nil, nil, err
		}
		log.Info("using mongo store", "uri", cfg.MongoURI, "db", cfg.MongoDBName)
		return repository.NewMongoStore(db, ""), func() {
			_ = db.Client().Disconnect(context.Background())
		}, nil

	default:
		return nil, nil, fmt.Errorf("unknown CART_STORE %q", cfg.Store)
	}
}

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

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"todo-api/api"
	"todo-api/config"
	"todo-api/domain"
	"todo-api/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := newLogger(cfg)

	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	backend, err := openBackend(context.Background(), cfg)
	if err != nil {
		logger.Fatalf("storage: %v", err)
	}
	store := storage.Instrument(backend, cfg.StoreBackend, prometheus.DefaultRegisterer)

	opts := []domain.Option{domain.WithStoreTimeout(cfg.StoreTimeout)}
	var dispatcher *api.EventDispatcher
	if cfg.EventsEnabled() {
		queue, err := storage.NewEventQueue(cfg.StorageConnectionString, cfg.TaskEventsQueue)
		if err != nil {
			logger.Fatalf("event queue: %v", err)
		}
		dispatcher = api.NewEventDispatcher(queue, api.DispatcherConfig{
			Workers:        cfg.EventWorkers,
			Buffer:         cfg.EventBuffer,
			Timeout:        cfg.EventTimeout,
			HandoffTimeout: cfg.EventHandoffTimeout,
		}, logger)
		opts = append(opts, domain.WithPublisher(dispatcher))
	}
	svc := domain.NewTaskService(store, logger, opts...)

	hostname, _ := os.Hostname()
	info := api.ServiceInfo{
		Version:     cfg.Version,
		Environment: cfg.Environment,
		Region:      cfg.Region,
		Hostname:    hostname,
		PingTimeout: cfg.StoreTimeout,
	}

	e := echo.New()
	e.HideBanner = true
	e.JSONSerializer = api.SonicSerializer{}
	e.HTTPErrorHandler = api.ErrorHandler(logger)
	e.Use(middleware.Recover())
	e.Use(api.CORS(cfg.CORSAllowOrigins))
	e.Use(echoprometheus.NewMiddleware("todo"))
	e.Use(api.RequestObservability(logger))
	// Throttled requests still show up in metrics and traces.
	if cfg.RateLimitPerMinute > 0 {
		e.Use(api.RateLimiter(cfg.RateLimitPerMinute))
	}
	e.Use(api.GzipRequestMiddleware())
	e.GET("/metrics", echoprometheus.NewHandler())

	api.Register(e, svc, store, info, logger)

	go func() {
		logger.WithFields(log.Fields{"addr": cfg.ListenAddr, "backend": cfg.StoreBackend}).Info("todo api listening")
		if err := e.Start(cfg.ListenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("http shutdown: %v", err)
	}
	if dispatcher != nil {
		dispatcher.Close()
	}
	if err := store.Close(); err != nil {
		logger.Errorf("storage close: %v", err)
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("tracer shutdown: %v", err)
	}
}

func newLogger(cfg config.Config) *log.Logger {
	logger := log.New()
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.LogFormat == "json" {
		logger.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339Nano})
	}
	return logger
}

func openBackend(ctx context.Context, cfg config.Config) (storage.Backend, error) {
	switch cfg.StoreBackend {
	case config.BackendAzureTables:
		return storage.NewTableStore(cfg.StorageConnectionString, cfg.TasksTable, cfg.TasksPartitionKey)
	case config.BackendRedis:
		client := redis.NewClient(storage.ParseRedisOptions(cfg.RedisConnectionString))
		return storage.NewRedisStore(client, cfg.RedisTasksKey), nil
	case config.BackendPostgres:
		return storage.NewPostgresStore(ctx, cfg.DatabaseURL)
	case config.BackendNutsDB:
		return storage.NewNutsStore(cfg.NutsDBPath)
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.StoreBackend)
	}
}

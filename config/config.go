package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Supported STORE_BACKEND values.
const (
	BackendAzureTables = "aztables"
	BackendRedis       = "redis"
	BackendPostgres    = "postgres"
	BackendNutsDB      = "nutsdb"
)

// Config contains all runtime settings for the todo service.
type Config struct {
	ListenAddr      string
	ShutdownTimeout time.Duration
	Debug           bool
	LogFormat       string

	StoreBackend string
	StoreTimeout time.Duration

	StorageConnectionString string
	TasksTable              string
	TasksPartitionKey       string
	TaskEventsQueue         string

	RedisConnectionString string
	RedisTasksKey         string

	DatabaseURL string
	NutsDBPath  string

	RateLimitPerMinute int
	CORSAllowOrigins   []string

	Version     string
	Environment string
	Region      string

	EventWorkers        int
	EventBuffer         int
	EventTimeout        time.Duration
	EventHandoffTimeout time.Duration
}

// EventsEnabled reports whether task events should be published to a queue.
func (c Config) EventsEnabled() bool {
	return c.TaskEventsQueue != ""
}

// Load reads environment variables and applies defaults.
func Load() (Config, error) {
	cfg := Config{
		ListenAddr:              envOrDefault("LISTEN_ADDR", ":8080"),
		LogFormat:               strings.ToLower(stringsTrimSpace("LOG_FORMAT")),
		StoreBackend:            strings.ToLower(envOrDefault("STORE_BACKEND", BackendAzureTables)),
		StorageConnectionString: stringsTrimSpace("STORAGE_CONNECTION_STRING"),
		TasksTable:              envOrDefault("TASKS_TABLE", "TodoTable"),
		TasksPartitionKey:       envOrDefault("TASKS_PARTITION_KEY", "todo"),
		TaskEventsQueue:         stringsTrimSpace("TASK_EVENTS_QUEUE"),
		RedisConnectionString:   stringsTrimSpace("REDIS_CONNECTION_STRING"),
		RedisTasksKey:           envOrDefault("REDIS_TASKS_KEY", "todos"),
		DatabaseURL:             stringsTrimSpace("DATABASE_URL"),
		NutsDBPath:              envOrDefault("NUTSDB_PATH", "data/nutsdb"),
		CORSAllowOrigins:        splitList(envOrDefault("CORS_ALLOW_ORIGINS", "*")),
		Version:                 envOrDefault("APP_VERSION", "1.0"),
		Environment:             envOrDefault("APP_ENVIRONMENT", "development"),
		Region:                  stringsTrimSpace("APP_REGION"),
		ShutdownTimeout:         15 * time.Second,
		StoreTimeout:            10 * time.Second,
		RateLimitPerMinute:      100,
		EventWorkers:            4,
		EventBuffer:             256,
		EventTimeout:            30 * time.Second,
		EventHandoffTimeout:     15 * time.Millisecond,
	}
	// Azure Functions custom handlers are told which port to bind.
	if port := stringsTrimSpace("FUNCTIONS_CUSTOMHANDLER_PORT"); port != "" {
		cfg.ListenAddr = ":" + port
	}

	var err error
	if cfg.Debug, err = boolFromEnv("DEBUG", false); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = durationFromEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout); err != nil {
		return Config{}, err
	}
	if cfg.StoreTimeout, err = durationFromEnv("STORE_TIMEOUT", cfg.StoreTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitPerMinute, err = intFromEnv("RATE_LIMIT_PER_MINUTE", cfg.RateLimitPerMinute); err != nil {
		return Config{}, err
	}
	if cfg.EventWorkers, err = intFromEnv("EVENT_WORKERS", cfg.EventWorkers); err != nil {
		return Config{}, err
	}
	if cfg.EventBuffer, err = intFromEnv("EVENT_BUFFER", cfg.EventBuffer); err != nil {
		return Config{}, err
	}
	if cfg.EventTimeout, err = durationFromEnv("EVENT_TIMEOUT", cfg.EventTimeout); err != nil {
		return Config{}, err
	}
	if cfg.EventHandoffTimeout, err = durationFromEnv("EVENT_HANDOFF_TIMEOUT", cfg.EventHandoffTimeout); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.StoreBackend {
	case BackendAzureTables:
		if c.StorageConnectionString == "" || c.TasksTable == "" {
			return fmt.Errorf("STORAGE_CONNECTION_STRING and TASKS_TABLE are required for the %s backend", BackendAzureTables)
		}
	case BackendRedis:
		if c.RedisConnectionString == "" {
			return fmt.Errorf("REDIS_CONNECTION_STRING is required for the %s backend", BackendRedis)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required for the %s backend", BackendPostgres)
		}
	case BackendNutsDB:
		if c.NutsDBPath == "" {
			return fmt.Errorf("NUTSDB_PATH is required for the %s backend", BackendNutsDB)
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.EventsEnabled() && c.StorageConnectionString == "" {
		return fmt.Errorf("TASK_EVENTS_QUEUE requires STORAGE_CONNECTION_STRING")
	}
	if c.StoreTimeout < 0 {
		return fmt.Errorf("STORE_TIMEOUT must be >= 0")
	}
	if c.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MINUTE must be >= 0")
	}
	if c.EventWorkers <= 0 {
		return fmt.Errorf("EVENT_WORKERS must be positive")
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("EVENT_BUFFER must be >= 0")
	}
	if c.EventTimeout <= 0 {
		return fmt.Errorf("EVENT_TIMEOUT must be positive")
	}
	if c.LogFormat != "" && c.LogFormat != "json" && c.LogFormat != "text" {
		return fmt.Errorf("LOG_FORMAT must be json or text")
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
	return b, nil
}

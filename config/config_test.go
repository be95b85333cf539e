package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("STORAGE_CONNECTION_STRING", "UseDevelopmentStorage=true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreBackend != BackendAzureTables {
		t.Fatalf("StoreBackend = %q, want %q", cfg.StoreBackend, BackendAzureTables)
	}
	if cfg.TasksTable != "TodoTable" || cfg.TasksPartitionKey != "todo" {
		t.Fatalf("unexpected table defaults: %q/%q", cfg.TasksTable, cfg.TasksPartitionKey)
	}
	if cfg.ListenAddr != ":8080" {
		t.Fatalf("ListenAddr = %q, want :8080", cfg.ListenAddr)
	}
	if cfg.StoreTimeout != 10*time.Second || cfg.RateLimitPerMinute != 100 {
		t.Fatalf("unexpected defaults: timeout=%v rate=%d", cfg.StoreTimeout, cfg.RateLimitPerMinute)
	}
	if len(cfg.CORSAllowOrigins) != 1 || cfg.CORSAllowOrigins[0] != "*" {
		t.Fatalf("CORSAllowOrigins = %v, want [*]", cfg.CORSAllowOrigins)
	}
	if cfg.Version != "1.0" || cfg.EventsEnabled() {
		t.Fatalf("unexpected version/events: %q %v", cfg.Version, cfg.EventsEnabled())
	}
}

func TestLoadFunctionsPortOverridesListenAddr(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("STORE_BACKEND", "nutsdb")
	t.Setenv("LISTEN_ADDR", ":9090")
	t.Setenv("FUNCTIONS_CUSTOMHANDLER_PORT", "7071")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.ListenAddr != ":7071" {
		t.Fatalf("ListenAddr = %q, want :7071", cfg.ListenAddr)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	setCoreEnvEmpty(t)
	t.Setenv("STORE_BACKEND", "Redis")
	t.Setenv("REDIS_CONNECTION_STRING", "localhost:6379")
	t.Setenv("STORE_TIMEOUT", "2s")
	t.Setenv("RATE_LIMIT_PER_MINUTE", "0")
	t.Setenv("CORS_ALLOW_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("DEBUG", "true")
	t.Setenv("EVENT_WORKERS", "8")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.StoreBackend != BackendRedis || cfg.StoreTimeout != 2*time.Second || cfg.RateLimitPerMinute != 0 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if len(cfg.CORSAllowOrigins) != 2 || cfg.CORSAllowOrigins[1] != "https://b.example" {
		t.Fatalf("CORSAllowOrigins = %v", cfg.CORSAllowOrigins)
	}
	if !cfg.Debug || cfg.EventWorkers != 8 {
		t.Fatalf("unexpected debug/workers: %v %d", cfg.Debug, cfg.EventWorkers)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{name: "unknown backend", env: map[string]string{"STORE_BACKEND": "mongo"}, want: "unknown STORE_BACKEND"},
		{name: "missing table conn", env: map[string]string{}, want: "STORAGE_CONNECTION_STRING"},
		{name: "missing redis", env: map[string]string{"STORE_BACKEND": "redis"}, want: "REDIS_CONNECTION_STRING"},
		{name: "missing postgres", env: map[string]string{"STORE_BACKEND": "postgres"}, want: "DATABASE_URL"},
		{name: "events without storage", env: map[string]string{"STORE_BACKEND": "nutsdb", "TASK_EVENTS_QUEUE": "task-events"}, want: "TASK_EVENTS_QUEUE"},
		{name: "bad duration", env: map[string]string{"STORE_BACKEND": "nutsdb", "STORE_TIMEOUT": "soon"}, want: "STORE_TIMEOUT parse error"},
		{name: "bad int", env: map[string]string{"STORE_BACKEND": "nutsdb", "EVENT_BUFFER": "lots"}, want: "EVENT_BUFFER parse error"},
		{name: "bad bool", env: map[string]string{"STORE_BACKEND": "nutsdb", "DEBUG": "maybe"}, want: "DEBUG parse error"},
		{name: "negative rate", env: map[string]string{"STORE_BACKEND": "nutsdb", "RATE_LIMIT_PER_MINUTE": "-1"}, want: "RATE_LIMIT_PER_MINUTE"},
		{name: "bad log format", env: map[string]string{"STORE_BACKEND": "nutsdb", "LOG_FORMAT": "xml"}, want: "LOG_FORMAT"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setCoreEnvEmpty(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Load() error = %v, want containing %q", err, tt.want)
			}
		})
	}
}

func setCoreEnvEmpty(t *testing.T) {
	t.Helper()
	keys := []string{
		"LISTEN_ADDR",
		"FUNCTIONS_CUSTOMHANDLER_PORT",
		"SHUTDOWN_TIMEOUT",
		"DEBUG",
		"LOG_FORMAT",
		"STORE_BACKEND",
		"STORE_TIMEOUT",
		"STORAGE_CONNECTION_STRING",
		"TASKS_TABLE",
		"TASKS_PARTITION_KEY",
		"TASK_EVENTS_QUEUE",
		"REDIS_CONNECTION_STRING",
		"REDIS_TASKS_KEY",
		"DATABASE_URL",
		"NUTSDB_PATH",
		"RATE_LIMIT_PER_MINUTE",
		"CORS_ALLOW_ORIGINS",
		"APP_VERSION",
		"APP_ENVIRONMENT",
		"APP_REGION",
		"EVENT_WORKERS",
		"EVENT_BUFFER",
		"EVENT_TIMEOUT",
		"EVENT_HANDOFF_TIMEOUT",
	}
	for _, key := range keys {
		t.Setenv(key, "")
	}
}

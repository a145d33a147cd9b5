package main

import (
	"testing"
	"time"

	"tasks-api/storage"
)

func envMap(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := loadConfig(envMap(map[string]string{"STORAGE_CONNECTION_STRING": "UseDevelopmentStorage=true"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.tasksTable != "tasks" {
		t.Fatalf("unexpected table: %q", cfg.tasksTable)
	}
	if cfg.listenAddr != ":8080" {
		t.Fatalf("unexpected listen addr: %q", cfg.listenAddr)
	}
	if cfg.cacheTTL != 30*time.Second || cfg.maxPageSize != storage.DefaultMaxPageSize {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.eventsQueue != "" || cfg.redisConn != "" || cfg.debug || cfg.jsonLogs {
		t.Fatalf("optional features should be off by default: %+v", cfg)
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := loadConfig(envMap(map[string]string{
		"STORAGE_CONNECTION_STRING":    "conn",
		"TASKS_TABLE":                  "todo",
		"TASK_EVENTS_QUEUE":            "task-events",
		"REDIS_CONNECTION_STRING":      "localhost:6379",
		"TASKS_CACHE_TTL":              "2m",
		"TASKS_MAX_PAGE_SIZE":          "50",
		"SHUTDOWN_TIMEOUT":             "3s",
		"FUNCTIONS_CUSTOMHANDLER_PORT": "7071",
		"DEBUG":                        "true",
		"LOG_FORMAT":                   "json",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := config{
		connStr:         "conn",
		tasksTable:      "todo",
		eventsQueue:     "task-events",
		redisConn:       "localhost:6379",
		cacheTTL:        2 * time.Minute,
		maxPageSize:     50,
		listenAddr:      ":7071",
		shutdownTimeout: 3 * time.Second,
		debug:           true,
		jsonLogs:        true,
	}
	if cfg != want {
		t.Fatalf("unexpected config:\n got %+v\nwant %+v", cfg, want)
	}
}

func TestLoadConfigErrors(t *testing.T) {
	tests := map[string]map[string]string{
		"missing connection": {},
		"bad ttl":            {"STORAGE_CONNECTION_STRING": "c", "TASKS_CACHE_TTL": "soon"},
		"negative ttl":       {"STORAGE_CONNECTION_STRING": "c", "TASKS_CACHE_TTL": "-1s"},
		"bad page size":      {"STORAGE_CONNECTION_STRING": "c", "TASKS_MAX_PAGE_SIZE": "many"},
		"zero page size":     {"STORAGE_CONNECTION_STRING": "c", "TASKS_MAX_PAGE_SIZE": "0"},
		"bad shutdown":       {"STORAGE_CONNECTION_STRING": "c", "SHUTDOWN_TIMEOUT": "0s"},
		"bad debug":          {"STORAGE_CONNECTION_STRING": "c", "DEBUG": "yes"},
		"bad exporter":       {"STORAGE_CONNECTION_STRING": "c", "OTEL_TRACES_EXPORTER": "zipkin"},
	}
	for name, env := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := loadConfig(envMap(env)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestParseRedisOptions(t *testing.T) {
	opts := parseRedisOptions("redis://:secret@localhost:6380/2")
	if opts.Addr != "localhost:6380" || opts.Password != "secret" || opts.DB != 2 {
		t.Fatalf("unexpected url options: %+v", opts)
	}

	opts = parseRedisOptions("tasks.redis.cache.windows.net:6380,password=abc=,ssl=True,abortConnect=False")
	if opts.Addr != "tasks.redis.cache.windows.net:6380" {
		t.Fatalf("unexpected addr: %q", opts.Addr)
	}
	if opts.Password != "abc=" {
		t.Fatalf("unexpected password: %q", opts.Password)
	}
	if opts.TLSConfig == nil {
		t.Fatalf("expected TLS to be enabled")
	}

	opts = parseRedisOptions("localhost:6379")
	if opts.Addr != "localhost:6379" || opts.TLSConfig != nil {
		t.Fatalf("unexpected plain options: %+v", opts)
	}
}

package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"tasks-api/storage"
)

type config struct {
	connStr         string
	tasksTable      string
	eventsQueue     string
	redisConn       string
	cacheTTL        time.Duration
	maxPageSize     int
	listenAddr      string
	shutdownTimeout time.Duration
	debug           bool
	jsonLogs        bool
	traceExporter   string
}

func loadConfig(getenv func(string) string) (config, error) {
	cfg := config{
		connStr:         getenv("STORAGE_CONNECTION_STRING"),
		tasksTable:      getenv("TASKS_TABLE"),
		eventsQueue:     getenv("TASK_EVENTS_QUEUE"),
		redisConn:       getenv("REDIS_CONNECTION_STRING"),
		cacheTTL:        30 * time.Second,
		maxPageSize:     storage.DefaultMaxPageSize,
		listenAddr:      ":8080",
		shutdownTimeout: 10 * time.Second,
		jsonLogs:        getenv("LOG_FORMAT") == "json",
	}
	if cfg.connStr == "" {
		return config{}, errors.New("missing STORAGE_CONNECTION_STRING")
	}
	if cfg.tasksTable == "" {
		cfg.tasksTable = "tasks"
	}
	if v := getenv("DEBUG"); v != "" {
		dbg, err := strconv.ParseBool(v)
		if err != nil {
			return config{}, fmt.Errorf("invalid DEBUG: %q", v)
		}
		cfg.debug = dbg
	}
	if v := getenv("TASKS_CACHE_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return config{}, fmt.Errorf("invalid TASKS_CACHE_TTL: %q", v)
		}
		cfg.cacheTTL = d
	}
	if v := getenv("TASKS_MAX_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return config{}, fmt.Errorf("invalid TASKS_MAX_PAGE_SIZE: %v", err)
		}
		if n <= 0 {
			return config{}, errors.New("invalid TASKS_MAX_PAGE_SIZE: must be greater than zero")
		}
		cfg.maxPageSize = n
	}
	if v := getenv("SHUTDOWN_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d <= 0 {
			return config{}, fmt.Errorf("invalid SHUTDOWN_TIMEOUT: %q", v)
		}
		cfg.shutdownTimeout = d
	}
	switch v := getenv("OTEL_TRACES_EXPORTER"); v {
	case "", "none":
	case "console", "stdout":
		cfg.traceExporter = "stdout"
	default:
		return config{}, fmt.Errorf("invalid OTEL_TRACES_EXPORTER: %q", v)
	}
	if v := getenv("FUNCTIONS_CUSTOMHANDLER_PORT"); v != "" {
		cfg.listenAddr = ":" + v
	}
	return cfg, nil
}

package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/labstack/echo-contrib/pprof"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"

	"tasks-api/api"
	"tasks-api/storage"
)

func main() {
	cfg, err := loadConfig(os.Getenv)
	if err != nil {
		log.Fatal(err)
	}

	logger := log.New()
	if cfg.debug {
		log.SetLevel(log.DebugLevel)
		logger.SetLevel(log.DebugLevel)
	}
	if cfg.jsonLogs {
		logger.SetFormatter(&log.JSONFormatter{})
	}

	tp, err := newTracerProvider(cfg.traceExporter, os.Stdout)
	if err != nil {
		log.Fatalf("tracing: %v", err)
	}
	otel.SetTracerProvider(tp)

	base, err := storage.New(cfg.connStr, cfg.tasksTable, cfg.eventsQueue, cfg.maxPageSize, logger)
	if err != nil {
		log.Fatalf("storage: %v", err)
	}
	var store api.Storage = base
	var rc *redis.Client
	if cfg.redisConn != "" {
		rc = redis.NewClient(parseRedisOptions(cfg.redisConn))
		store = storage.NewCache(base, rc, cfg.cacheTTL, logger)
		logger.Infof("tasks cache enabled, ttl: %v", cfg.cacheTTL)
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderContentEncoding},
		ExposeHeaders: []string{api.HeaderNextPageToken},
	}))
	e.Use(api.GzipRequestMiddleware())
	if cfg.debug {
		pprof.Register(e)
	}

	api.Register(e, store, logger, cfg.maxPageSize)

	go func() {
		logger.Infof("listening on %s, table: %s", cfg.listenAddr, cfg.tasksTable)
		if err := e.Start(cfg.listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server failed: %v", err)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	logger.Info("shut down signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
	if rc != nil {
		_ = rc.Close()
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("tracer shutdown: %v", err)
	}
	logger.Info("shut down gracefully")
}

// parseRedisOptions accepts either a redis:// URL or an Azure Cache style
// "host:port,password=...,ssl=True" connection string.
func parseRedisOptions(conn string) *redis.Options {
	if opts, err := redis.ParseURL(conn); err == nil {
		return opts
	}
	parts := strings.Split(conn, ",")
	opts := &redis.Options{Addr: strings.TrimSpace(parts[0])}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(kv[0])) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.EqualFold(strings.TrimSpace(kv[1]), "true") {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}

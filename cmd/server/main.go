// Command server starts the AI interview screener HTTP server.
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

	goredis "github.com/redis/go-redis/v9"

	ai "github.com/fairyhunter13/ai-interview-screener/internal/adapter/ai"
	"github.com/fairyhunter13/ai-interview-screener/internal/adapter/ai/canned"
	openaicli "github.com/fairyhunter13/ai-interview-screener/internal/adapter/ai/openai"
	httpserver "github.com/fairyhunter13/ai-interview-screener/internal/adapter/httpserver"
	jdpg "github.com/fairyhunter13/ai-interview-screener/internal/adapter/jd/postgres"
	jdstatic "github.com/fairyhunter13/ai-interview-screener/internal/adapter/jd/static"
	"github.com/fairyhunter13/ai-interview-screener/internal/adapter/observability"
	"github.com/fairyhunter13/ai-interview-screener/internal/adapter/queue/redpanda"
	"github.com/fairyhunter13/ai-interview-screener/internal/adapter/session/memory"
	redisstore "github.com/fairyhunter13/ai-interview-screener/internal/adapter/session/redis"
	"github.com/fairyhunter13/ai-interview-screener/internal/app"
	"github.com/fairyhunter13/ai-interview-screener/internal/config"
	"github.com/fairyhunter13/ai-interview-screener/internal/domain"
	"github.com/fairyhunter13/ai-interview-screener/internal/usecase"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := observability.SetupLogger(cfg)
	slog.SetDefault(logger)

	// Register all Prometheus collectors once per process so that /metrics
	// exposes HTTP, AI, and interview instrumentation.
	observability.InitMetrics()

	shutdownTracer, err := observability.SetupTracing(cfg)
	if err != nil {
		slog.Error("failed to setup tracing", slog.Any("error", err))
	}
	defer func() {
		if shutdownTracer != nil {
			_ = shutdownTracer(context.Background())
		}
	}()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Job descriptions: Postgres when a DSN is configured, otherwise the
	// static YAML-seeded repository.
	var (
		jds     domain.JobDescriptionRepo
		dbCheck func(context.Context) error
	)
	if cfg.DBURL != "" {
		pool, perr := jdpg.NewPool(ctx, cfg.DBURL)
		if perr != nil {
			slog.Error("db connect failed", slog.Any("error", perr))
			os.Exit(1)
		}
		defer pool.Close()
		jds = jdpg.NewRepo(pool)
		dbCheck = app.ReadinessCheck("db", pool)
	} else {
		repo, serr := jdstatic.New(cfg.JobDescriptionIDs, cfg.JDSeedFile)
		if serr != nil {
			slog.Error("static jd repo init failed", slog.Any("error", serr))
			os.Exit(1)
		}
		jds = repo
	}

	availableJDs, err := jds.ListIDs(ctx)
	if err != nil || len(availableJDs) == 0 {
		slog.Warn("listing job descriptions failed, using configured ids", slog.Any("error", err))
		availableJDs = cfg.JobDescriptionIDs
	}

	// Sessions: Redis for multi-replica deployments, in-memory otherwise.
	var (
		store      domain.SessionStore
		redisCheck func(context.Context) error
	)
	if cfg.RedisURL != "" {
		opts, rerr := goredis.ParseURL(cfg.RedisURL)
		if rerr != nil {
			slog.Error("invalid redis url", slog.Any("error", rerr))
			os.Exit(1)
		}
		rs := redisstore.New(goredis.NewClient(opts), cfg.SessionIdleTTL)
		store = rs
		redisCheck = app.ReadinessCheck("redis", rs)
	} else {
		store = memory.New()
	}

	// Completion events are optional; without brokers the final report is
	// only logged.
	var (
		events     domain.EventPublisher
		kafkaCheck func(context.Context) error
	)
	if len(cfg.KafkaBrokers) > 0 {
		producer, qerr := redpanda.NewProducer(cfg.KafkaBrokers)
		if qerr != nil {
			slog.Error("event producer connect failed", slog.Any("error", qerr))
			os.Exit(1)
		}
		defer func() { _ = producer.Close() }()
		events = producer
		kafkaCheck = app.ReadinessCheck("kafka", producer)
	}

	// Understanding backend. Dev without an API key runs against the canned
	// client so the full conversation flow works offline.
	var chat ai.ChatClient
	if cfg.OpenAIAPIKey != "" {
		chat = openaicli.New(cfg)
	} else {
		slog.Warn("no API key configured, using canned understanding client")
		chat = canned.New()
	}
	gateway := ai.NewGateway(chat, cfg.AICallTimeout, cfg.HistoryWindow, cfg.HistoryTokenBudget)

	interviews := usecase.NewInterviewService(store, gateway, jds, events, cfg.MaxQuestions, availableJDs)
	go interviews.RunCleanup(ctx, cfg.CleanupInterval, cfg.SessionIdleTTL)

	srv := httpserver.NewServer(cfg, interviews, dbCheck, redisCheck, kafkaCheck)
	handler := app.BuildRouter(cfg, srv)

	srvHTTP := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           handler,
		ReadTimeout:       cfg.HTTPReadTimeout,
		WriteTimeout:      cfg.HTTPWriteTimeout,
		IdleTimeout:       cfg.HTTPIdleTimeout,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http server starting", slog.Int("port", cfg.Port))
		errCh <- srvHTTP.ListenAndServe()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal received", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", slog.Any("error", err))
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ServerShutdownTimeout)
	defer shutdownCancel()
	_ = srvHTTP.Shutdown(shutdownCtx)
}

// Package main wires together the trending archive service.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github-trending-archive/internal/analytics"
	"github-trending-archive/internal/api"
	"github-trending-archive/internal/clock/system"
	"github-trending-archive/internal/config"
	githubenricher "github-trending-archive/internal/enricher/github"
	collyfetcher "github-trending-archive/internal/fetcher/colly"
	"github-trending-archive/internal/hash/sha256"
	"github-trending-archive/internal/id/uuid"
	"github-trending-archive/internal/logging"
	"github-trending-archive/internal/metrics"
	"github-trending-archive/internal/notify"
	"github-trending-archive/internal/parser"
	"github-trending-archive/internal/pipeline"
	"github-trending-archive/internal/retry"
	localstore "github-trending-archive/internal/store/local"
	"github-trending-archive/internal/store/postgres"
	redisstore "github-trending-archive/internal/store/redis"
	"github-trending-archive/internal/trending"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("service failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	archive, err := postgres.New(ctx, postgres.Config{
		DSN:             cfg.DB.DSN,
		MaxConns:        int32(cfg.DB.MaxConns),
		MinConns:        int32(cfg.DB.MinConns),
		MaxConnLifetime: time.Duration(cfg.DB.MaxConnLifetimeMin) * time.Minute,
	})
	if err != nil {
		return fmt.Errorf("connect archive store: %w", err)
	}
	defer archive.Close()

	counters, err := redisstore.New(ctx, redisstore.Config{
		URL:  cfg.Redis.URL,
		Addr: cfg.Redis.Addr,
	})
	if err != nil {
		return fmt.Errorf("connect counter store: %w", err)
	}
	defer counters.Close() //nolint:errcheck // best-effort close

	clock := system.New()
	idGen := uuid.New()
	hasher := sha256.New()

	fetcher := collyfetcher.New(collyfetcher.Config{
		URL:            cfg.Source.URL,
		UserAgent:      cfg.Source.UserAgent,
		AcceptLanguage: cfg.Source.AcceptLanguage,
		Timeout:        cfg.SourceTimeout(),
		RespectRobots:  cfg.Source.RespectRobots,
	})

	var enricher trending.Enricher
	if cfg.GitHub.Token != "" {
		enricher = githubenricher.New(githubenricher.Config{
			Token:     cfg.GitHub.Token,
			BatchSize: cfg.GitHub.BatchSize,
		}, logger.Named("enricher"))
	} else {
		logger.Warn("no github token configured, topic enrichment disabled")
	}

	var snapshots trending.SnapshotStore
	if cfg.Snapshots.Enabled {
		store, err := localstore.New(localstore.Config{BaseDir: cfg.Snapshots.BaseDir})
		if err != nil {
			return fmt.Errorf("init snapshot store: %w", err)
		}
		snapshots = store
	}

	var notifier trending.Notifier
	if cfg.Notify.WebhookURL != "" {
		wh, err := notify.NewWebhook(notify.WebhookConfig{
			URL:     cfg.Notify.WebhookURL,
			Timeout: time.Duration(cfg.Notify.TimeoutSeconds) * time.Second,
		})
		if err != nil {
			return fmt.Errorf("init webhook notifier: %w", err)
		}
		notifier = wh
	}

	jitterMin, jitterMax := cfg.JitterBounds()
	pipe := pipeline.New(
		fetcher,
		parser.New(),
		enricher,
		archive,
		snapshots,
		hasher,
		clock,
		pipeline.Config{JitterMin: jitterMin, JitterMax: jitterMax},
		logger.Named("pipeline"),
	)

	controller := retry.New(
		pipe,
		archive,
		counters,
		notifier,
		clock,
		retry.Config{
			MaxAttempts: cfg.Retry.MaxAttempts,
			CounterTTL:  cfg.CounterTTL(),
		},
		logger.Named("retry"),
	)

	engine := analytics.New(archive, analytics.Config{
		StreakLookbackDays:  cfg.Analytics.StreakLookbackDays,
		HistoryLookbackDays: cfg.Analytics.HistoryLookbackDays,
	}, logger.Named("analytics"))

	apiServer := api.NewServer(engine, controller, idGen, clock, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if cfg.Schedule.Enabled {
		go runScheduler(ctx, controller, cfg.ScrapeInterval(), logger.Named("scheduler"))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
	return nil
}

// runScheduler invokes the retry controller for the current day immediately
// and then on every tick. The controller itself decides whether a run is a
// no-op, so a short interval only costs one COUNT query per tick.
func runScheduler(ctx context.Context, controller *retry.Controller, interval time.Duration, logger *zap.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		outcome := controller.RunForDate(ctx, time.Time{})
		logger.Info("scheduled run finished",
			zap.Time("date", outcome.Date),
			zap.Bool("success", outcome.Success),
			zap.String("skipped", outcome.Skipped),
			zap.Int("attempt", outcome.Attempt),
		)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

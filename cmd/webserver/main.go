package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"device-webserver/internal/config"
	"device-webserver/internal/logging"
	"device-webserver/internal/monitoring"
	"device-webserver/webserver"
	"device-webserver/webserver/application"
	"device-webserver/webserver/domain"
	"device-webserver/webserver/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	_ "go.uber.org/automaxprocs"
)

func main() {
	boot := logging.New("info", "json")

	cfg, err := config.Load(&boot)
	if err != nil {
		boot.Fatal().Err(err).Msg("Config error")
	}

	logger := logging.New(cfg.LogLevel, cfg.LogFormat)
	cfg.LogConfig(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, closeStats := buildStats(ctx, cfg, logger)
	defer closeStats()

	// A gravação de stats roda fora da request e sobrevive ao sinal até o pool fechar.
	statsCtx, stopStats := context.WithCancel(context.Background())
	defer stopStats()
	var stats *application.StatsQueue
	if store != nil {
		stats = application.NewStatsQueue(store, application.StatsQueueOptions{Logger: logger})
		stats.Start(statsCtx)
	}

	metrics := monitoring.NewMetrics()

	// Sem pool as rotas assíncronas respondem busy; as síncronas continuam no ar.
	pool, err := startPool(cfg, logger, metrics)
	if err != nil {
		logger.Error().Err(err).Msg("Worker pool failed to start, async routes will report busy")
	}

	var state monitoring.PoolState
	if pool != nil {
		state = pool
	}
	sampler, err := monitoring.NewSampler(metrics, state, logger)
	if err != nil {
		logger.Warn().Err(err).Msg("Process sampler unavailable")
	} else {
		go sampler.Run(ctx, cfg.SampleInterval)
	}

	var throttle *webserver.ThrottleOptions
	if cfg.RateEnabled {
		store := infra.NewBucketStore(cfg.RateRPS, cfg.RateBurst)
		store.StartJanitor(ctx)
		throttle = &webserver.ThrottleOptions{
			Store:               store,
			KeyHeader:           cfg.KeyHeader,
			TrustXForwardedFor:  cfg.TrustXFF,
			RetryAfter:          cfg.RetryAfter,
			AddRateLimitHeaders: true,
		}
	}

	app := webserver.New(webserver.Options{
		Dispatcher: application.Dispatcher{
			Pool:           pool,
			EnqueueTimeout: cfg.EnqueueTimeout,
			Stats:          stats,
			Observer:       metrics,
		},
		StreamInterval: cfg.StreamInterval,
		StreamLines:    cfg.StreamLines,
		Throttle:       throttle,
		Logger:         logger,
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           app.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	var ops *http.Server
	if cfg.MetricsAddr != "" {
		ops = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           monitoring.NewOpsHandler(metrics, state, sampler),
			ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		}
		go func() {
			logger.Info().Str("addr", cfg.MetricsAddr).Msg("Ops listener started")
			if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("Ops listener failed")
			}
		}()
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		logger.Info().Msg("Shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		// Primeiro o listener: Shutdown espera os /long em andamento terminarem.
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn().Err(err).Msg("HTTP shutdown did not finish cleanly")
		}
		if pool != nil {
			if err := pool.Close(shutdownCtx); err != nil {
				logger.Warn().Err(err).Msg("Worker pool did not stop cleanly")
			}
		}
		if ops != nil {
			_ = ops.Shutdown(shutdownCtx)
		}
	}()

	logger.Info().
		Str("addr", cfg.ListenAddr).
		Int("routes", len(app.Routes())).
		Msg("Web server listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error().Err(err).Msg("Server error")
		cancel()
	}

	<-shutdownDone
	if stats != nil {
		stopStats()
		<-stats.Done()
	}
	logger.Info().Uint64("long_requests", app.LongRequests()).Msg("Server stopped")
}

func startPool(cfg *config.Config, logger zerolog.Logger, metrics *monitoring.Metrics) (*application.WorkerPool, error) {
	gate, err := infra.NewChanGate(cfg.Workers)
	if err != nil {
		return nil, err
	}
	pool, err := application.NewWorkerPool(application.PoolOptions{
		Size:     cfg.Workers,
		Gate:     gate,
		Queue:    infra.NewSlotQueue(),
		Logger:   logger,
		Observer: metrics,
	})
	if err != nil {
		return nil, err
	}
	// O tempo de vida dos workers é controlado pelo Close, não pelo sinal.
	if err := pool.Start(context.Background()); err != nil {
		return nil, err
	}
	return pool, nil
}

func buildStats(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (domain.StatsStore, func()) {
	switch cfg.StatsBackend {
	case "memory":
		mem := infra.NewMemoryStatsStore()
		return mem, func() {
			t := mem.Total()
			logger.Info().
				Int64("inline", t.Inline).
				Int64("accepted", t.Accepted).
				Int64("busy", t.Busy).
				Int64("failed", t.Failed).
				Msg("Dispatch totals")
		}
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.StatsRedisAddr,
			Password: cfg.StatsRedisPassword,
			DB:       cfg.StatsRedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		_, err := rdb.Ping(pingCtx).Result()
		cancel()
		if err != nil {
			logger.Fatal().Err(err).Str("addr", cfg.StatsRedisAddr).Msg("Redis stats ping error")
		}

		store := infra.NewRedisStatsStore(
			rdb,
			infra.WithStatsPrefix(cfg.StatsPrefix),
			infra.WithStatsTTL(cfg.StatsTTL),
		)
		return store, func() { _ = rdb.Close() }
	default:
		return nil, func() {}
	}
}

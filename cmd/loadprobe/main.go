// Command loadprobe dispara N requisições concorrentes em /long e conta
// quantas foram aceitas (200) e quantas foram recusadas (503).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"device-webserver/internal/logging"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type probeConfig struct {
	URL         string        `env:"PROBE_URL" envDefault:"http://localhost:8080/long"`
	Concurrency int           `env:"PROBE_CONCURRENCY" envDefault:"3"`
	Timeout     time.Duration `env:"PROBE_TIMEOUT" envDefault:"30s"`
	LogLevel    string        `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string        `env:"LOG_FORMAT" envDefault:"pretty"`
}

func main() {
	_ = godotenv.Load()

	var cfg probeConfig
	if err := env.Parse(&cfg); err != nil {
		bootLogger := logging.New("info", "pretty")
		bootLogger.Fatal().Err(err).Msg("Config error")
	}
	logger := logging.New(cfg.LogLevel, cfg.LogFormat)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	res := run(ctx, cfg, logger)

	logger.Info().
		Str("url", cfg.URL).
		Int("concurrency", cfg.Concurrency).
		Int("ok", res.OK).
		Int("busy", res.Busy).
		Int("other", res.Other).
		Int("errors", res.Errors).
		Dur("elapsed", res.Elapsed).
		Msg("Probe finished")

	if res.Errors > 0 {
		os.Exit(1)
	}
}

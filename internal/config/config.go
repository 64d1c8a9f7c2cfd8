// Package config carrega a configuração do servidor a partir de variáveis de
// ambiente e de um .env opcional.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config reúne todas as chaves. Prioridade: env > .env > default.
type Config struct {
	ListenAddr        string        `env:"LISTEN_ADDR" envDefault:":8080"`
	MetricsAddr       string        `env:"METRICS_ADDR" envDefault:":9095"`
	ReadHeaderTimeout time.Duration `env:"READ_HEADER_TIMEOUT" envDefault:"10s"`
	IdleTimeout       time.Duration `env:"IDLE_TIMEOUT" envDefault:"90s"`
	ShutdownTimeout   time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"15s"`

	// Workers é o tamanho do pool, do gate e o teto de concorrência assíncrona.
	Workers        int           `env:"WORKERS" envDefault:"2"`
	EnqueueTimeout time.Duration `env:"ENQUEUE_TIMEOUT" envDefault:"100ms"`
	StreamInterval time.Duration `env:"STREAM_INTERVAL" envDefault:"1s"`
	StreamLines    int           `env:"STREAM_LINES" envDefault:"10"`

	RateEnabled bool          `env:"RATE_ENABLED" envDefault:"false"`
	RateRPS     float64       `env:"RATE_RPS" envDefault:"1"`
	RateBurst   int           `env:"RATE_BURST" envDefault:"2"`
	KeyHeader   string        `env:"RATE_KEY_HEADER"`
	TrustXFF    bool          `env:"TRUST_XFF" envDefault:"false"`
	RetryAfter  time.Duration `env:"RETRY_AFTER" envDefault:"1s"`

	StatsBackend       string        `env:"STATS_BACKEND" envDefault:"memory"`
	StatsRedisAddr     string        `env:"STATS_REDIS_ADDR"`
	StatsRedisPassword string        `env:"STATS_REDIS_PASSWORD"`
	StatsRedisDB       int           `env:"STATS_REDIS_DB" envDefault:"0"`
	StatsPrefix        string        `env:"STATS_PREFIX" envDefault:"webserver:dispatch"`
	StatsTTL           time.Duration `env:"STATS_TTL" envDefault:"24h"`

	SampleInterval time.Duration `env:"SAMPLE_INTERVAL" envDefault:"15s"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
}

// Load lê o .env (se existir), aplica as variáveis de ambiente e valida.
func Load(logger *zerolog.Logger) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if logger != nil {
			logger.Debug().Msg("No .env file found (using environment variables only)")
		}
	} else if logger != nil {
		logger.Info().Msg("Loaded configuration from .env file")
	}

	return Parse()
}

// Parse lê só do ambiente, sem .env.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddr) == "" {
		return errors.New("LISTEN_ADDR is required")
	}
	if c.Workers < 1 {
		return fmt.Errorf("WORKERS must be > 0, got %d", c.Workers)
	}
	if c.EnqueueTimeout <= 0 {
		return fmt.Errorf("ENQUEUE_TIMEOUT must be > 0, got %s", c.EnqueueTimeout)
	}
	if c.StreamInterval < 0 {
		return fmt.Errorf("STREAM_INTERVAL must be >= 0, got %s", c.StreamInterval)
	}
	if c.StreamLines < 1 {
		return fmt.Errorf("STREAM_LINES must be > 0, got %d", c.StreamLines)
	}

	if c.RateEnabled {
		if c.RateRPS <= 0 {
			return errors.New("RATE_RPS must be > 0")
		}
		if c.RateBurst <= 0 {
			return errors.New("RATE_BURST must be > 0")
		}
	}

	switch c.StatsBackend {
	case "none", "memory":
	case "redis":
		if strings.TrimSpace(c.StatsRedisAddr) == "" {
			return errors.New("STATS_REDIS_ADDR is required when STATS_BACKEND=redis")
		}
	default:
		return fmt.Errorf("STATS_BACKEND must be one of: none, memory, redis (got: %s)", c.StatsBackend)
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("LOG_LEVEL must be one of: debug, info, warn, error (got: %s)", c.LogLevel)
	}
	validLogFormats := map[string]bool{"json": true, "pretty": true}
	if !validLogFormats[c.LogFormat] {
		return fmt.Errorf("LOG_FORMAT must be one of: json, pretty (got: %s)", c.LogFormat)
	}
	return nil
}

// LogConfig registra a configuração efetiva (sem segredos).
func (c *Config) LogConfig(logger zerolog.Logger) {
	logger.Info().
		Str("listen_addr", c.ListenAddr).
		Str("metrics_addr", c.MetricsAddr).
		Int("workers", c.Workers).
		Dur("enqueue_timeout", c.EnqueueTimeout).
		Dur("stream_interval", c.StreamInterval).
		Int("stream_lines", c.StreamLines).
		Bool("rate_enabled", c.RateEnabled).
		Float64("rate_rps", c.RateRPS).
		Int("rate_burst", c.RateBurst).
		Str("stats_backend", c.StatsBackend).
		Str("log_level", c.LogLevel).
		Str("log_format", c.LogFormat).
		Msg("Server configuration loaded")
}

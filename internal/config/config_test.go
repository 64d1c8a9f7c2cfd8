package config

import (
	"strings"
	"testing"
	"time"
)

func TestParse_Defaults(t *testing.T) {
	cfg, err := Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Workers != 2 {
		t.Fatalf("expected 2 workers, got %d", cfg.Workers)
	}
	if cfg.EnqueueTimeout != 100*time.Millisecond {
		t.Fatalf("expected 100ms enqueue timeout, got %s", cfg.EnqueueTimeout)
	}
	if cfg.StreamInterval != time.Second || cfg.StreamLines != 10 {
		t.Fatalf("unexpected stream defaults: %s x %d", cfg.StreamInterval, cfg.StreamLines)
	}
	if cfg.RateEnabled {
		t.Fatalf("expected throttle disabled by default")
	}
}

func TestParse_FromEnv(t *testing.T) {
	t.Setenv("WORKERS", "5")
	t.Setenv("ENQUEUE_TIMEOUT", "250ms")
	t.Setenv("LOG_FORMAT", "pretty")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Workers != 5 || cfg.EnqueueTimeout != 250*time.Millisecond || cfg.LogFormat != "pretty" {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestParse_RejectsInvalid(t *testing.T) {
	cases := []struct {
		key, value, want string
	}{
		{"WORKERS", "0", "WORKERS"},
		{"ENQUEUE_TIMEOUT", "0s", "ENQUEUE_TIMEOUT"},
		{"LOG_LEVEL", "verbose", "LOG_LEVEL"},
		{"STATS_BACKEND", "postgres", "STATS_BACKEND"},
		{"WORKERS", "two", "parse"},
		{"STREAM_LINES", "0", "STREAM_LINES"},
		{"STREAM_LINES", "-1", "STREAM_LINES"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.value, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)
			_, err := Parse()
			if err == nil || !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("expected error mentioning %q, got %v", tc.want, err)
			}
		})
	}
}

func TestValidate_RedisNeedsAddr(t *testing.T) {
	t.Setenv("STATS_BACKEND", "redis")
	if _, err := Parse(); err == nil {
		t.Fatalf("expected error without STATS_REDIS_ADDR")
	}

	t.Setenv("STATS_REDIS_ADDR", "localhost:6379")
	if _, err := Parse(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_RateOnlyCheckedWhenEnabled(t *testing.T) {
	t.Setenv("RATE_RPS", "0")
	if _, err := Parse(); err != nil {
		t.Fatalf("disabled throttle must not validate RATE_RPS: %v", err)
	}

	t.Setenv("RATE_ENABLED", "true")
	if _, err := Parse(); err == nil {
		t.Fatalf("expected RATE_RPS error when throttle enabled")
	}
}

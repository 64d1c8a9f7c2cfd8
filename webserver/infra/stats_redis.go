package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"device-webserver/webserver/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore exporta os contadores de despacho para um Redis externo.
//
// Layout das chaves (prefixo padrão "webserver:dispatch"):
//
//	<prefix>:total               hash outcome -> count
//	<prefix>:route:<route>       hash outcome -> count
//	<prefix>:minute:<yyyymmddhhmm> hash outcome -> count (expira em ttl)
type RedisStatsStore struct {
	rdb *redis.Client

	prefix string
	// ttl vale só para os buckets por minuto; total e route são cumulativos.
	ttl time.Duration
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func NewRedisStatsStore(rdb *redis.Client, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "webserver:dispatch",
		ttl:    24 * time.Hour,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}

	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	field := ev.Outcome.String()

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if route := strings.TrimSpace(ev.Route); route != "" {
		pipe.HIncrBy(ctx, s.prefix+":route:"+route, field, 1)
	}

	bucketKey := fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
	pipe.HIncrBy(ctx, bucketKey, field, 1)
	if s.ttl > 0 {
		pipe.Expire(ctx, bucketKey, s.ttl)
	}

	_, err := pipe.Exec(ctx)
	return err
}

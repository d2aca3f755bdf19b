package sequence

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/redis/go-redis/v9"

	"prms/internal/pid"
	"prms/pkg/platform/sentinel"
)

var redisNextDurationMs = promauto.NewHistogram(prometheus.HistogramOpts{
	Name:    "prms_sequence_redis_next_duration_ms",
	Help:    "Latency of Redis sequence allocation in milliseconds",
	Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 25},
})

const (
	defaultRedisKeyPrefix = "prms:pid:seq:"
	// counters outlive their month so late retries never restart at 1
	defaultRedisTTL = 400 * 24 * time.Hour
)

// Redis allocates with INCR, which is atomic across every instance sharing
// the server.
type Redis struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// RedisOption configures a Redis allocator.
type RedisOption func(*Redis)

// WithKeyPrefix overrides the key namespace.
func WithKeyPrefix(prefix string) RedisOption {
	return func(a *Redis) {
		if prefix != "" {
			a.prefix = prefix
		}
	}
}

// WithTTL overrides how long a period counter is retained.
func WithTTL(ttl time.Duration) RedisOption {
	return func(a *Redis) {
		if ttl > 0 {
			a.ttl = ttl
		}
	}
}

// NewRedis constructs a Redis-backed allocator. The client lifecycle is
// managed by the caller.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	a := &Redis{
		client: client,
		prefix: defaultRedisKeyPrefix,
		ttl:    defaultRedisTTL,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Key returns the Redis key holding period's counter.
func (a *Redis) Key(period pid.Period) string {
	return a.prefix + periodKey(period)
}

// Next increments and returns period's counter, refreshing its expiry in
// the same MULTI/EXEC block.
func (a *Redis) Next(ctx context.Context, period pid.Period) (int, error) {
	start := time.Now()
	defer func() {
		redisNextDurationMs.Observe(float64(time.Since(start).Microseconds()) / 1000.0)
	}()

	key := a.Key(period)
	pipe := a.client.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, a.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("incr %s: %w: %w", key, sentinel.ErrUnavailable, err)
	}
	return int(incr.Val()), nil
}

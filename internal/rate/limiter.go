// Package rate implementa contadores de ventana fija. Se usa dos veces:
// como rate limiter del endpoint público de validación y como contador de
// velocity por actor que alimenta al fraud scorer.
package rate

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

type Result struct {
	Allowed     bool
	Remaining   int64
	RetryAfter  time.Duration
	WindowTTL   time.Duration
	CurrentHits int64
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Counter cuenta hits por key en una ventana fija sin aplicar límite.
// Es la fuente de la señal de velocity.
type Counter interface {
	Incr(ctx context.Context, key string) (int64, error)
}

// RedisLimiter: fixed window sencillo (INCR + EXPIRE)
type RedisLimiter struct {
	Client *rdb.Client
	Prefix string
	Max    int64
	Window time.Duration
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	return &RedisLimiter{
		Client: client,
		Prefix: prefix,
		Max:    int64(max),
		Window: window,
	}
}

func (l *RedisLimiter) windowKey(key string, now time.Time) string {
	winStart := now.Truncate(l.Window)
	return fmt.Sprintf("%s%s:%d", l.Prefix, strings.ReplaceAll(key, " ", "_"), winStart.Unix())
}

func (l *RedisLimiter) incr(ctx context.Context, key string) (hits int64, ttl time.Duration, err error) {
	redisKey := l.windowKey(key, time.Now().UTC())

	pipe := l.Client.TxPipeline()
	incr := pipe.Incr(ctx, redisKey)
	ttlCmd := pipe.TTL(ctx, redisKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, 0, err
	}

	// set expiry on first hit
	if incr.Val() == 1 {
		_ = l.Client.Expire(ctx, redisKey, l.Window).Err()
		ttlCmd = l.Client.TTL(ctx, redisKey)
	}
	return incr.Val(), ttlCmd.Val(), nil
}

// Incr implementa Counter: suma un hit y retorna el total de la ventana.
func (l *RedisLimiter) Incr(ctx context.Context, key string) (int64, error) {
	hits, _, err := l.incr(ctx, key)
	return hits, err
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	hits, ttl, err := l.incr(ctx, key)
	if err != nil {
		return Result{}, err
	}

	allowed := hits <= l.Max
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}

	res := Result{
		Allowed:     allowed,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !allowed {
		// Retry after: resto de la ventana
		res.RetryAfter = ttl
		if res.RetryAfter < 0 {
			res.RetryAfter = time.Duration(math.Ceil(l.Window.Seconds())) * time.Second
		}
	}
	return res, nil
}

package rate

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryLimiter: fixed window en memoria, para dev/tests y single-node.
type MemoryLimiter struct {
	Max    int64
	Window time.Duration

	mu   sync.Mutex
	hits map[string]int64
}

func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		Max:    int64(max),
		Window: window,
		hits:   make(map[string]int64),
	}
}

func (l *MemoryLimiter) key(key string, now time.Time) string {
	return fmt.Sprintf("%s:%d", key, now.Truncate(l.Window).Unix())
}

// Incr implementa Counter.
func (l *MemoryLimiter) Incr(_ context.Context, key string) (int64, error) {
	now := time.Now().UTC()
	k := l.key(key, now)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.hits[k]++
	n := l.hits[k]

	// Poda perezosa: al rotar la ventana quedan keys viejas; con pocas keys
	// alcanza con limpiar cuando el map crece.
	if len(l.hits) > 4096 {
		prefixNow := fmt.Sprintf(":%d", now.Truncate(l.Window).Unix())
		for k := range l.hits {
			if len(k) < len(prefixNow) || k[len(k)-len(prefixNow):] != prefixNow {
				delete(l.hits, k)
			}
		}
	}
	return n, nil
}

func (l *MemoryLimiter) Allow(ctx context.Context, key string) (Result, error) {
	hits, err := l.Incr(ctx, key)
	if err != nil {
		return Result{}, err
	}
	remaining := l.Max - hits
	if remaining < 0 {
		remaining = 0
	}
	res := Result{
		Allowed:     hits <= l.Max,
		Remaining:   remaining,
		CurrentHits: hits,
		WindowTTL:   l.Window,
	}
	if !res.Allowed {
		res.RetryAfter = l.Window
	}
	return res, nil
}

package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dropDatabas3/trueseal/internal/http/errors"
	"github.com/dropDatabas3/trueseal/internal/observability/logger"
	"github.com/dropDatabas3/trueseal/internal/rate"
)

// RateKeyFunc define cómo generar la clave de rate limiting.
type RateKeyFunc func(r *http.Request) string

// DefaultRateKey genera una clave basada en IP y path. Suficiente para el
// endpoint público de validación; el scanner legítimo valida de a uno.
func DefaultRateKey(r *http.Request) string {
	return clientIP(r) + ":" + r.URL.Path
}

// WithRateLimit aplica el limiter a cada request usando keyFn. Si el limiter
// falla (p. ej. redis caído) el request pasa: el rate limit es protección,
// no disponibilidad.
func WithRateLimit(l rate.Limiter, keyFn RateKeyFunc) Middleware {
	if keyFn == nil {
		keyFn = DefaultRateKey
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}

			res, err := l.Allow(r.Context(), keyFn(r))
			if err != nil {
				logger.From(r.Context()).Warn("rate limiter unavailable, allowing request",
					logger.Err(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(res.Remaining, 10))
			if !res.Allowed {
				retry := res.RetryAfter
				if retry <= 0 {
					retry = time.Second
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Seconds())))
				errors.WriteError(w, errors.ErrTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

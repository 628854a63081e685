package middlewares

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dropDatabas3/trueseal/internal/metrics"
)

// WithMetrics registra contador y latencia por handler. El nombre del handler
// se fija por ruta (no por path crudo) para acotar la cardinalidad.
func WithMetrics(handler string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			next.ServeHTTP(rec, r)

			metrics.HTTPRequestsTotal.
				WithLabelValues(handler, r.Method, strconv.Itoa(rec.status)).Inc()
			metrics.HTTPRequestDuration.
				WithLabelValues(handler, r.Method).Observe(time.Since(start).Seconds())
		})
	}
}

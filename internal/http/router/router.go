// Package router arma el árbol de rutas de la API sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dropDatabas3/trueseal/internal/http/controllers"
	mw "github.com/dropDatabas3/trueseal/internal/http/middlewares"
	"github.com/dropDatabas3/trueseal/internal/rate"
)

// Deps contiene todas las dependencias del router.
type Deps struct {
	Controllers *controllers.Controllers

	JWT          mw.JWTConfig
	AdminKeyHash string

	// RateLimiter protege los endpoints públicos. Puede ser nil.
	RateLimiter rate.Limiter
}

// New construye el handler raíz con la cadena de middlewares globales y las
// rutas versionadas.
func New(deps Deps) http.Handler {
	r := chi.NewRouter()

	// Middlewares globales. El orden importa: RequestID primero para que el
	// resto loguee con el ID; recover después de logging para que un panic
	// igual quede registrado como 500.
	r.Use(
		mw.WithRequestID(),
		mw.WithSecurityHeaders(),
		mw.WithLogging(),
		mw.WithRecover(),
	)

	ctrl := deps.Controllers

	// ─── Rutas públicas ───
	r.Group(func(r chi.Router) {
		r.Use(
			mw.WithRateLimit(deps.RateLimiter, nil),
			mw.OptionalAuth(deps.JWT),
		)

		r.With(mw.WithMetrics("validate")).
			Post("/v1/validate", ctrl.Seal.Validate.Validate)
		r.With(mw.WithMetrics("report")).
			Post("/v1/report", ctrl.Seal.Report.Report)
		r.With(mw.WithMetrics("history")).
			Get("/v1/history/{tokenRef}", ctrl.Seal.History.History)
	})

	// ─── Rutas admin ───
	r.Group(func(r chi.Router) {
		r.Use(mw.RequireAdminKey(deps.AdminKeyHash))

		r.With(mw.WithMetrics("admin_batch")).
			Post("/v1/admin/batch", ctrl.Seal.Batch.Issue)
	})

	// ─── Operacionales ───
	r.Get("/healthz", ctrl.Health.Healthz)
	r.Get("/readyz", ctrl.Health.Readyz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	return r
}

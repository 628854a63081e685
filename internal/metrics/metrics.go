package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del core de validación. Definidas en un package aparte para evitar
// ciclos de import entre engine y HTTP.

var (
	ValidationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "trueseal_validations_total",
		Help: "Validaciones por outcome",
	}, []string{"outcome"})

	RiskScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "trueseal_risk_score",
		Help:    "Distribución del risk score calculado",
		Buckets: prometheus.LinearBuckets(0, 0.1, 11),
	})

	TransitionConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trueseal_transition_conflicts_total",
		Help: "Transiciones perdidas por carrera (degradadas a replay)",
	})

	UnknownTokenAttempts = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trueseal_unknown_token_attempts_total",
		Help: "Intentos de validación con hash desconocido",
	})

	VerifierUnavailable = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trueseal_verifier_unavailable_total",
		Help: "Consultas al verifier externo que no respondieron a tiempo",
	})

	RewardRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trueseal_reward_retries_total",
		Help: "Reintentos de créditos de recompensa pendientes",
	})

	TokensIssued = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "trueseal_tokens_issued_total",
		Help: "Tokens emitidos por el batch issuer",
	})

	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"handler", "method", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler", "method"})
)

// Register registra todas las métricas en el registry dado (default si es nil).
// Tolera AlreadyRegisteredError para poder llamarse desde tests.
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	cs := []prometheus.Collector{
		ValidationsTotal, RiskScore, TransitionConflicts, UnknownTokenAttempts,
		VerifierUnavailable, RewardRetries, TokensIssued,
		HTTPRequestsTotal, HTTPRequestDuration,
	}
	for _, c := range cs {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

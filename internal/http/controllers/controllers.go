// Package controllers agrupa todos los controllers HTTP.
// Este es el "composition root" de controllers: los services ya deben estar
// creados y se inyectan acá; las rutas se registran en el router.
package controllers

import (
	healthctrl "github.com/dropDatabas3/trueseal/internal/http/controllers/health"
	sealctrl "github.com/dropDatabas3/trueseal/internal/http/controllers/seal"
	healthsvc "github.com/dropDatabas3/trueseal/internal/http/services/health"
	sealsvc "github.com/dropDatabas3/trueseal/internal/http/services/seal"
)

// Controllers agrupa los sub-controllers por dominio.
type Controllers struct {
	Seal   *sealctrl.Controllers       // Validación, denuncias, emisión, historial
	Health *healthctrl.HealthController // Health checks (healthz, readyz)
}

// New crea el agregador de controllers con todos los services inyectados.
// Este es el único lugar donde se instancian los controllers.
func New(seal *sealsvc.Services, health healthsvc.HealthService) *Controllers {
	return &Controllers{
		Seal:   sealctrl.NewControllers(seal),
		Health: healthctrl.NewHealthController(health),
	}
}

// Package verifier es el adapter al servicio externo de attestation.
// Es un enhancement del engine, no una dependencia dura: si no responde a
// tiempo el engine decide solo con el fraud scorer (policy fail-open).
package verifier

import (
	"context"
)

// Status es el veredicto del servicio externo.
type Status int

const (
	// StatusUnavailable: sin respuesta a tiempo o error de transporte.
	StatusUnavailable Status = iota
	// StatusVerified: el servicio confirma autenticidad.
	StatusVerified
	// StatusDenied: el servicio niega autenticidad. La negativa es absoluta:
	// fuerza counterfeit sin importar el score.
	StatusDenied
)

func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusDenied:
		return "denied"
	default:
		return "unavailable"
	}
}

// Client consulta al servicio externo por un secret hash.
// Las implementaciones no deben retornar error por indisponibilidad: eso se
// expresa con StatusUnavailable para que el engine aplique su policy.
type Client interface {
	Verify(ctx context.Context, secretHash string) Status
}

// Disabled es el client nulo cuando el verifier no está configurado.
type Disabled struct{}

func (Disabled) Verify(context.Context, string) Status { return StatusUnavailable }

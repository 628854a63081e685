// Package seal contiene DTOs para la API de tokens de autenticidad.
package seal

import "time"

// ValidateRequest representa un scan de producto.
// El secreto viaja en claro sobre TLS y se hashea server-side: nunca se
// persiste ni se loguea.
type ValidateRequest struct {
	Secret     string `json:"secret"`
	ChannelRef string `json:"channel_ref,omitempty"`
	// ActorRef solo se usa si el request no trae bearer token.
	ActorRef          string   `json:"actor_ref,omitempty"`
	Lat               *float64 `json:"lat,omitempty"`
	Lng               *float64 `json:"lng,omitempty"`
	DeviceFingerprint string   `json:"device_fingerprint,omitempty"`
}

// TokenView es la proyección pública de un token: nunca incluye el hash.
type TokenView struct {
	ID              string     `json:"id"`
	ProductRef      string     `json:"product_ref"`
	BatchRef        string     `json:"batch_ref"`
	ManufacturerRef string     `json:"manufacturer_ref"`
	State           string     `json:"state"`
	IssuedAt        time.Time  `json:"issued_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
}

// ValidateResponse es el veredicto de un scan.
// Outcome es uno de authentic | suspicious | counterfeit | expired; un replay
// sale como counterfeit, distinguible por reason y original_consumed_at.
type ValidateResponse struct {
	Outcome   string     `json:"outcome"`
	Reason    string     `json:"reason,omitempty"`
	Token     *TokenView `json:"token,omitempty"`
	RiskScore *float64   `json:"risk_score,omitempty"`
	// Degraded indica que el verifier externo no respondió y el veredicto
	// salió solo del scorer.
	Degraded           bool       `json:"degraded,omitempty"`
	OriginalConsumedAt *time.Time `json:"original_consumed_at,omitempty"`
	RewardPoints       int64      `json:"reward_points,omitempty"`
}

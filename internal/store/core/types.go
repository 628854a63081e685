package core

import "time"

// TokenState es el estado del token en su máquina de estados.
// Active es el único estado no-terminal: un token sale de Active exactamente una vez.
type TokenState string

const (
	StateActive    TokenState = "active"
	StateValidated TokenState = "validated"
	StateReported  TokenState = "reported"
	StateExpired   TokenState = "expired"
)

// Terminal indica si el estado no admite más transiciones.
func (s TokenState) Terminal() bool { return s != StateActive }

// Valid reports whether s is one of the known states.
func (s TokenState) Valid() bool {
	switch s {
	case StateActive, StateValidated, StateReported, StateExpired:
		return true
	}
	return false
}

// Token representa la credencial de autenticación de una unidad física.
// SecretHash es sha256(secreto) en base64url; el secreto en claro nunca se persiste.
type Token struct {
	ID              string     `json:"id"`
	SecretHash      string     `json:"-"`
	ProductRef      string     `json:"product_ref"`
	BatchRef        string     `json:"batch_ref"`
	ManufacturerRef string     `json:"manufacturer_ref"`
	State           TokenState `json:"state"`
	IssuedAt        time.Time  `json:"issued_at"`
	ExpiresAt       *time.Time `json:"expires_at,omitempty"`
	ConsumedAt      *time.Time `json:"consumed_at,omitempty"`
	ConsumedBy      *string    `json:"consumed_by,omitempty"`
}

// Expired indica si el token venció respecto de now (false si no tiene vencimiento).
func (t *Token) Expired(now time.Time) bool {
	return t.ExpiresAt != nil && t.ExpiresAt.Before(now)
}

// EventType clasifica una entrada del ledger de supply-chain.
type EventType string

const (
	EventIssued              EventType = "issued"
	EventValidationAttempted EventType = "validation_attempted"
	EventValidated           EventType = "validated"
	EventCounterfeitReported EventType = "counterfeit_reported"
	EventStatusUpdated       EventType = "status_updated"
)

// LedgerEntry es un hecho inmutable sobre un token. Seq lo asigna el store y
// desempata entradas con el mismo OccurredAt (orden de inserción).
type LedgerEntry struct {
	ID         string         `json:"id"`
	Seq        int64          `json:"seq"`
	TokenRef   string         `json:"token_ref"`
	EventType  EventType      `json:"event_type"`
	ActorRef   *string        `json:"actor_ref,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// Outcome es el resultado de una validación, visible para el caller y usado
// como clave de idempotencia de recompensas junto con el token.
type Outcome string

const (
	OutcomeAuthentic   Outcome = "authentic"
	OutcomeSuspicious  Outcome = "suspicious"
	OutcomeCounterfeit Outcome = "counterfeit"
	OutcomeExpired     Outcome = "expired"
	// OutcomeReplay nunca se persiste como reward: un replay no acredita puntos.
	OutcomeReplay Outcome = "replay"
)

// RewardEntry es una fila del ledger de recompensas. Uniqueness en
// (TokenRef, Outcome) hace idempotente la acreditación.
type RewardEntry struct {
	ID        string    `json:"id"`
	TokenRef  string    `json:"token_ref"`
	Outcome   Outcome   `json:"outcome"`
	ActorRef  string    `json:"actor_ref"`
	Points    int64     `json:"points"`
	CreatedAt time.Time `json:"created_at"`
}

// PendingReward es un crédito que falló y espera reintento.
type PendingReward struct {
	ID            string    `json:"id"`
	TokenRef      string    `json:"token_ref"`
	Outcome       Outcome   `json:"outcome"`
	ActorRef      string    `json:"actor_ref"`
	Attempts      int       `json:"attempts"`
	NextAttemptAt time.Time `json:"next_attempt_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// Anomaly registra un intento de validación con hash desconocido. No hay token
// que referenciar desde el ledger, así que se persiste aparte y alimenta el
// score de reincidencia del actor.
type Anomaly struct {
	ID         string    `json:"id"`
	SecretHash string    `json:"-"`
	ActorRef   string    `json:"actor_ref"`
	ChannelRef string    `json:"channel_ref,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

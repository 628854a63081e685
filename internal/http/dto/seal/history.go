package seal

import "time"

// HistoryEntry es una entrada del ledger proyectada para la API.
type HistoryEntry struct {
	Seq        int64          `json:"seq"`
	EventType  string         `json:"event_type"`
	ActorRef   string         `json:"actor_ref,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
	Payload    map[string]any `json:"payload,omitempty"`
}

// HistoryResponse es el historial paginado de un token.
type HistoryResponse struct {
	TokenRef string         `json:"token_ref"`
	Entries  []HistoryEntry `json:"entries"`
	// NextAfterSeq se pasa como after_seq para continuar la paginación;
	// 0 significa que no hay más entradas.
	NextAfterSeq int64 `json:"next_after_seq,omitempty"`
}

package seal

import "time"

// BatchRequest representa un pedido de emisión de tokens para un batch de
// producción.
type BatchRequest struct {
	ProductRef      string `json:"product_ref"`
	ManufacturerRef string `json:"manufacturer_ref"`
	BatchNumber     string `json:"batch_number"`
	Count           int    `json:"count"`
	// TTL opcional en formato Go ("8760h"); vacío = sin vencimiento.
	TTL string `json:"ttl,omitempty"`
}

// IssuedTokenView es la única respuesta que incluye el secreto en claro:
// el caller lo graba en el NFC/QR y el server no lo puede reconstruir.
type IssuedTokenView struct {
	ID     string `json:"id"`
	Secret string `json:"secret"`
}

// BatchResponse es el resultado de la emisión.
type BatchResponse struct {
	BatchRef string            `json:"batch_ref"`
	Count    int               `json:"count"`
	IssuedAt time.Time         `json:"issued_at"`
	Tokens   []IssuedTokenView `json:"tokens"`
}

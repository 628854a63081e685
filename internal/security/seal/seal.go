// Package seal genera y hashea los secretos que se graban en el chip NFC /
// código QR de cada unidad física.
package seal

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
)

// SecretBytes es el tamaño del secreto crudo (256 bits).
const SecretBytes = 32

// GenerateSecret genera un secreto opaco aleatorio (base64url sin padding).
// Cada llamada usa crypto/rand, así los secretos de un batch son independientes.
func GenerateSecret() (string, error) {
	b := make([]byte, SecretBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// HashSecret devuelve sha256(secret) en base64url sin padding (para guardar en DB).
// El secreto en claro solo viaja en la respuesta de emisión y en el request de
// validación; nunca se persiste.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

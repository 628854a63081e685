// Package apikey valida la API key administrativa contra su hash bcrypt.
package apikey

import (
	"golang.org/x/crypto/bcrypt"
)

// Hash genera el hash bcrypt de una key (lo usa sealctl keys hash).
func Hash(key string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(key), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify compara una key en claro contra el hash configurado.
func Verify(hash, key string) bool {
	if hash == "" || key == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil
}

package billing

import (
	"crypto/rand"
	"encoding/base64"
)

const (
	secretBytes = 32
	prefixLen   = 10
)

// GenerateSecret returns a fresh raw API key: 32 random bytes, URL-safe
// encoded. It is handed to the caller exactly once and only its digest
// is persisted.
func GenerateSecret() (string, error) {
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SecretPrefix is the short clear-text fragment stored for display and
// audit. It is never used for authorization.
func SecretPrefix(rawSecret string) string {
	if len(rawSecret) < prefixLen {
		return rawSecret
	}
	return rawSecret[:prefixLen]
}

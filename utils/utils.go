// Package utils provides utility functions for the application.
package utils

import (
	"crypto/rand"
	"encoding/hex"

	"github.com/google/uuid"
)

func ToPtr[T any](v T) *T {
	return &v
}

func IsTrue(b *bool) bool {
	return b != nil && *b
}

// ParseUUID parses a UUID string, returning an error for malformed input
func ParseUUID(s string) (uuid.UUID, error) {
	return uuid.Parse(s)
}

// RandomToken returns a hex-encoded random token of n bytes
func RandomToken(n int) (string, error) {
	bytes := make([]byte, n)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

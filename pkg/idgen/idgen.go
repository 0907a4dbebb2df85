// Package idgen provides ID generation utilities for the application.
// It encapsulates the ID generation implementation, making it easy to change
// the underlying ID generation strategy in the future.
package idgen

import (
	"crypto/rand"
	"encoding/base64"
	"strings"

	"github.com/rs/xid"
)

// NewID generates a new globally unique, sortable identifier.
// Returns a 20-character lowercase base32 string using xid format.
func NewID() string {
	return xid.New().String()
}

// NewTaskID generates a unique ID for Task records.
func NewTaskID() string {
	return NewID()
}

// NewJobID generates a unique ID for review jobs.
func NewJobID() string {
	return NewID()
}

// NewRequestID generates a unique ID for request tracking.
func NewRequestID() string {
	return NewID()
}

// IsValid reports whether id is a well-formed identifier produced by NewID.
// Surrounding whitespace is not accepted.
func IsValid(id string) bool {
	if id == "" || strings.TrimSpace(id) != id {
		return false
	}
	_, err := xid.FromString(id)
	return err == nil
}

// NewSecureSecret generates a cryptographically secure random string of specified length.
// Uses URL-safe base64 encoding. Useful for JWT and webhook secrets.
func NewSecureSecret(length int) string {
	byteLength := (length*3 + 3) / 4
	bytes := make([]byte, byteLength)

	if _, err := rand.Read(bytes); err != nil {
		return "please-generate-a-secure-random-secret"
	}

	encoded := base64.URLEncoding.EncodeToString(bytes)
	if len(encoded) > length {
		encoded = encoded[:length]
	}
	return encoded
}

// Package hashutil computes the content hashes Store uses as idempotency
// keys: hex-encoded SHA-256 of file content or aggregated input.
package hashutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the hex-encoded SHA-256 digest of content.
func Hash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// HashString is Hash for string input.
func HashString(content string) string {
	return Hash([]byte(content))
}

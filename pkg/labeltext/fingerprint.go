// Package labeltext holds the pure text helpers used while ingesting food
// labels: fingerprinting, ingredient extraction and image provenance ordering.
package labeltext

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Normalize trims surrounding whitespace and lower-cases text.
func Normalize(text string) string {
	return strings.ToLower(strings.TrimSpace(text))
}

// Fingerprint returns the hex encoded SHA-256 of the normalized text.
func Fingerprint(text string) string {
	sum := sha256.Sum256([]byte(Normalize(text)))
	return hex.EncodeToString(sum[:])
}

package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

func hashHex(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// Fingerprint returns a stable hex digest over an ordered set of
// parameters, for use as a cache-key suffix. Every parameter that can
// change the derived bytes must be included.
func Fingerprint(parts ...string) string {
	return hashHex(strings.Join(parts, "\x1f"))
}

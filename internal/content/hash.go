package content

import (
	"crypto/sha256"
	"encoding/hex"
)

// Hash returns the SHA-256 digest of the given normalised text as 64
// lowercase hex characters. No salt, no versioning: the same input
// yields the same output on every platform.
func Hash(normalized string) string {
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// HashContent normalises and hashes in one step. Adapters use it so
// the digest they declare matches what reconciliation recomputes.
func HashContent(markdown string) string {
	return Hash(Normalize(markdown))
}

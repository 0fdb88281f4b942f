package util

import (
	"crypto/sha256"
	"encoding/hex"
)

// ShortHash returns a compact content hash (first 16 hex chars of SHA-256),
// used as the version tag for payloads whose source supplies none.
func ShortHash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

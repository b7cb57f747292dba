package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// PreviewTTL is how long rendered previews are kept.
const PreviewTTL = 7 * 24 * time.Hour

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(hash[:]))
}

// Hash computes a SHA-256 hash of the input data.
// Returns the full 64-character hex string.
func Hash(data []byte) string {
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:])
}

// PreviewKey returns the key of a preview rendered from DOT source with the
// given hash in the given format ("svg", "png").
func PreviewKey(dotHash, format string) string {
	return hashKey("preview", dotHash, format)
}

package hmac

import (
	"crypto/hmac"
	"crypto/sha256"
)

// Key is a 32-byte HMAC-SHA-256 key, matching the chaining-key width used
// throughout the Noise-XK key derivation in ntcp2/kdf.
type Key [32]byte

// Digest is a raw HMAC-SHA-256 output.
type Digest [sha256.Size]byte

// SumSHA256 computes HMAC-SHA-256(key, data) with a fixed-width key.
func SumSHA256(key Key, data []byte) Digest {
	mac := hmac.New(sha256.New, key[:])
	mac.Write(data)
	var d Digest
	copy(d[:], mac.Sum(nil))
	return d
}

// Sum computes HMAC-SHA-256 with an arbitrary-length key, for use where the
// key itself is a chaining key rather than a fixed 32-byte value.
func Sum(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)
	return mac.Sum(nil)
}

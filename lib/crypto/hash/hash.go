// Package hash wraps the one-shot digest and checksum primitives shared by
// both handshake protocols: SHA-256 for identity hashes and Noise mixHash,
// and Adler-32 for the post-handshake frame checksum.
package hash

import (
	"crypto/sha256"
	"hash/adler32"
)

// SHA256 returns the one-shot SHA-256 digest of data.
func SHA256(data []byte) [sha256.Size]byte {
	return sha256.Sum256(data)
}

// SHA256Concat hashes the concatenation of several byte slices without an
// intermediate allocation-heavy append, mirroring the Noise mixHash chain
// (h = SHA-256(h || data)) used by the NTCP2 KDF.
func SHA256Concat(parts ...[]byte) [sha256.Size]byte {
	h := sha256.New()
	for _, p := range parts {
		h.Write(p)
	}
	var out [sha256.Size]byte
	copy(out[:], h.Sum(nil))
	return out
}

// Adler32 computes the Adler-32 checksum used by the post-handshake frame
// trailer, over size||payload||padding.
func Adler32(data []byte) uint32 {
	return adler32.Checksum(data)
}

// Package csprng wraps the cryptographically secure random source used for
// ephemeral keys, handshake padding, and filler bytes. It exists so every
// call site fails the same way (a CryptoError, never a panic or a
// silently-zeroed buffer) when the OS entropy source misbehaves.
package csprng

import (
	"crypto/rand"
	"io"

	"github.com/samber/oops"
)

// Read fills buf with cryptographically secure random bytes.
func Read(buf []byte) error {
	if _, err := io.ReadFull(rand.Reader, buf); err != nil {
		return oops.Errorf("secure random read failed: %w", err)
	}
	return nil
}

// Bytes allocates and fills an n-byte secure-random buffer.
func Bytes(n int) ([]byte, error) {
	buf := make([]byte, n)
	if err := Read(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

package chacha20

import (
	"crypto/rand"
	"io"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/poly1305"
)

var log = logger.GetGoI2PLogger()

// Key sizes
const (
	KeySize = 32
	TagSize = poly1305.TagSize
)

// Error definitions
var (
	ErrInvalidKeySize = oops.Errorf("invalid ChaCha20 key size")
	ErrAuthFailed     = oops.Errorf("poly1305 authentication failed")
)

// Key is a 256-bit ChaCha20/Poly1305 key, as derived by ntcp2/kdf for the
// session-request options block.
type Key [KeySize]byte

// NewRandomKey generates a cryptographically secure random key, useful for
// tests and for any caller that needs a throwaway key outside the Noise KDF.
func NewRandomKey() (Key, error) {
	var k Key
	if _, err := io.ReadFull(rand.Reader, k[:]); err != nil {
		return Key{}, oops.Errorf("failed to generate random ChaCha20 key: %w", err)
	}
	return k, nil
}

// EncryptZeroNonce runs the raw ChaCha20 keystream (nonce = 0, counter = 0)
// over data in place. The NTCP2 session-request options block is encrypted
// this way rather than through the ChaCha20-Poly1305 AEAD construction: the
// MAC is computed separately over the plaintext options and carried
// alongside, not appended by Seal.
func EncryptZeroNonce(key Key, data []byte) error {
	var nonce [chacha20.NonceSize]byte
	c, err := chacha20.NewUnauthenticatedCipher(key[:], nonce[:])
	if err != nil {
		return oops.Errorf("failed to create ChaCha20 cipher: %w", err)
	}
	c.XORKeyStream(data, data)
	return nil
}

// DecryptZeroNonce is the inverse of EncryptZeroNonce; ChaCha20 keystream
// XOR is its own inverse, but the helper is kept symmetrical for callers.
func DecryptZeroNonce(key Key, data []byte) error {
	return EncryptZeroNonce(key, data)
}

// MAC computes the Poly1305 tag over data using key directly as the
// one-time Poly1305 key.
func MAC(key Key, data []byte) [TagSize]byte {
	var tag [TagSize]byte
	poly1305.Sum(&tag, data, (*[32]byte)(&key))
	log.WithField("data_length", len(data)).Debug("Computed Poly1305 MAC")
	return tag
}

// VerifyMAC reports whether tag is the correct Poly1305 MAC of data under key.
func VerifyMAC(key Key, data []byte, tag [TagSize]byte) bool {
	return poly1305.Verify(&tag, data, (*[32]byte)(&key))
}

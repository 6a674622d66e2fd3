package curve25519

import (
	"github.com/samber/oops"
	"golang.org/x/crypto/curve25519"
)

// Curve25519PrivateKey is a 32-byte X25519 scalar, used for the NTCP2
// ephemeral handshake key and for the legacy NTCP v1 Diffie-Hellman step.
type Curve25519PrivateKey [32]byte

func (k Curve25519PrivateKey) Bytes() []byte {
	return k[:]
}

func (k Curve25519PrivateKey) Len() int {
	return len(k)
}

// Public derives the matching X25519 public point.
func (k Curve25519PrivateKey) Public() (Curve25519PublicKey, error) {
	var pub [32]byte
	out, err := curve25519.X25519(k[:], curve25519.Basepoint)
	if err != nil {
		return Curve25519PublicKey{}, oops.Errorf("failed to derive curve25519 public key: %w", err)
	}
	copy(pub[:], out)
	return Curve25519PublicKey(pub), nil
}

// DH computes the shared secret between this private key and a remote
// public key.
func (k Curve25519PrivateKey) DH(remote Curve25519PublicKey) ([]byte, error) {
	shared, err := curve25519.X25519(k[:], remote[:])
	if err != nil {
		return nil, oops.Errorf("curve25519 DH failed: %w", err)
	}
	return shared, nil
}

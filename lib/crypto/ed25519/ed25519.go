package ed25519

import (
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha512"

	"github.com/go-i2p/go-i2p/lib/crypto/curve25519"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// ExpandedPrivateKey is an Ed25519 signing key expanded into the scalar form
// needed to derive an X25519 Diffie-Hellman key pair from it, the way NTCP2
// generates its handshake ephemeral from a fresh Ed25519 seed rather than
// sampling an X25519 scalar directly.
type ExpandedPrivateKey struct {
	// scalar is the clamped X25519 private scalar.
	scalar [32]byte
}

// GenerateExpanded creates a fresh Ed25519 signing key and expands it into
// an X25519-compatible scalar.
func GenerateExpanded() (ExpandedPrivateKey, error) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return ExpandedPrivateKey{}, oops.Errorf("failed to generate ed25519 seed: %w", err)
	}
	return Expand(priv)
}

// Expand converts a raw ed25519.PrivateKey (64 bytes: seed || public) into
// its X25519 scalar form via the standard SHA-512-then-clamp construction.
func Expand(priv ed25519.PrivateKey) (ExpandedPrivateKey, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return ExpandedPrivateKey{}, oops.Errorf("invalid ed25519 private key size")
	}
	seed := priv.Seed()
	h := sha512.Sum512(seed)
	h[0] &= 248
	h[31] &= 127
	h[31] |= 64

	var k ExpandedPrivateKey
	copy(k.scalar[:], h[:32])
	log.Debug("Expanded ed25519 seed into curve25519 scalar")
	return k, nil
}

// X25519KeyPair derives the X25519 public/private pair corresponding to
// this expanded key.
func (k ExpandedPrivateKey) X25519KeyPair() (curve25519.Curve25519PublicKey, curve25519.Curve25519PrivateKey, error) {
	var priv curve25519.Curve25519PrivateKey
	copy(priv[:], k.scalar[:])
	pub, err := priv.Public()
	if err != nil {
		return curve25519.Curve25519PublicKey{}, curve25519.Curve25519PrivateKey{}, err
	}
	return pub, priv, nil
}

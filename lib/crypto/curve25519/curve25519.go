package curve25519

import (
	"crypto/rand"
	"io"

	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// GenerateKeyPair generates a new X25519 ephemeral key pair using a secure
// random scalar.
func GenerateKeyPair() (Curve25519PublicKey, Curve25519PrivateKey, error) {
	log.Debug("Generating new Curve25519 key pair")
	var priv Curve25519PrivateKey
	if _, err := io.ReadFull(rand.Reader, priv[:]); err != nil {
		return Curve25519PublicKey{}, Curve25519PrivateKey{}, oops.Errorf("failed to generate curve25519 key pair: %w", err)
	}
	pub, err := priv.Public()
	if err != nil {
		return Curve25519PublicKey{}, Curve25519PrivateKey{}, err
	}
	return pub, priv, nil
}

package dsa

import (
	"crypto/dsa"
	"crypto/rand"
	"math/big"

	"github.com/go-i2p/go-i2p/lib/crypto/types"
)

// DSAPrivateKey is the 20-byte X component of a router's DSA-1024 identity.
type DSAPrivateKey [20]byte

// NewSigner creates a new DSA signer bound to this private key.
func (k DSAPrivateKey) NewSigner() (types.Signer, error) {
	log.Debug("Creating new DSA signer")
	priv, err := createDSAPrivkey(new(big.Int).SetBytes(k[:]))
	if err != nil {
		return nil, err
	}
	if priv == nil {
		return nil, types.ErrInvalidKeyFormat
	}
	return &DSASigner{k: priv}, nil
}

// Public derives the public key (Y) matching this private key (X).
func (k DSAPrivateKey) Public() (types.SigningPublicKey, error) {
	priv, err := createDSAPrivkey(new(big.Int).SetBytes(k[:]))
	if err != nil {
		return nil, err
	}
	if priv == nil {
		log.Error("Invalid DSA private key format")
		return nil, types.ErrInvalidKeyFormat
	}
	var pub DSAPublicKey
	yb := priv.Y.Bytes()
	copy(pub[len(pub)-len(yb):], yb)
	log.Debug("DSA public key derived successfully")
	return pub, nil
}

func (k DSAPrivateKey) Len() int {
	return len(k)
}

// Generate creates a fresh DSA-1024 private key using the shared group
// parameters.
func (k DSAPrivateKey) Generate() (types.SigningPrivateKey, error) {
	log.Debug("Generating new DSA private key")
	dk := new(dsa.PrivateKey)
	if err := generateDSA(dk, rand.Reader); err != nil {
		log.WithError(err).Error("Failed to generate new DSA private key")
		return nil, err
	}
	var s DSAPrivateKey
	xb := dk.X.Bytes()
	copy(s[len(s)-len(xb):], xb)
	log.Debug("New DSA private key generated successfully")
	return s, nil
}

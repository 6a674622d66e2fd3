package dsa

import (
	"math/big"

	"github.com/go-i2p/go-i2p/lib/crypto/types"
)

// DSAPublicKey is the 128-byte Y component of a router's DSA-1024 identity.
type DSAPublicKey [128]byte

func (k DSAPublicKey) Bytes() []byte {
	return k[:]
}

// NewVerifier creates a new DSA verifier bound to this public key.
func (k DSAPublicKey) NewVerifier() (types.Verifier, error) {
	log.Debug("Creating new DSA verifier")
	pub, err := createDSAPublicKey(new(big.Int).SetBytes(k[:]))
	if err != nil {
		return nil, err
	}
	return &DSAVerifier{k: pub}, nil
}

func (k DSAPublicKey) Len() int {
	return len(k)
}

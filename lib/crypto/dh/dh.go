// Package dh implements the legacy NTCP v1 Diffie-Hellman step: classic
// modular exponentiation over a fixed 2048-bit MODP group, the way the
// original handshake predates the router's move to Curve25519 for NTCP2.
package dh

import (
	"crypto/rand"
	"math/big"
	"sync"

	"github.com/samber/oops"
)

// 2048-bit MODP group (RFC 3526, group 14), shared by both sides of the
// handshake the same way the DSA group parameters are shared in package dsa.
const groupHex = "FFFFFFFFFFFFFFFFC90FDAA22168C234C4C6628B80DC1CD" +
	"129024E088A67CC74020BBEA63B139B22514A08798E3404DDEF9519B3CD3A43" +
	"1B302B0A6DF25F14374FE1356D6D51C245E485B576625E7EC6F44C42E9A637E" +
	"D6B0BFF5CB6F406B7EDEE386BFB5A899FA5AE9F24117C4B1FE649286651ECE6" +
	"5381FFFFFFFFFFFFFFFF"

var (
	groupP    *big.Int
	groupG    = big.NewInt(2)
	groupOnce sync.Once
)

func group() *big.Int {
	groupOnce.Do(func() {
		groupP, _ = new(big.Int).SetString(groupHex, 16)
	})
	return groupP
}

// PrivateKey is a randomly chosen DH exponent.
type PrivateKey struct {
	x *big.Int
}

// GenerateKeyPair samples a fresh private exponent and its public value
// g^x mod p.
func GenerateKeyPair() (pub [256]byte, priv PrivateKey, err error) {
	p := group()
	x, err := rand.Int(rand.Reader, p)
	if err != nil {
		return pub, PrivateKey{}, oops.Errorf("failed to sample DH exponent: %w", err)
	}
	y := new(big.Int).Exp(groupG, x, p)
	yb := y.Bytes()
	copy(pub[256-len(yb):], yb)
	return pub, PrivateKey{x: x}, nil
}

// SharedSecret computes g^(xy) mod p given the remote's 256-byte public
// value, then normalizes it into a 32-byte AES-256 key: if the raw
// big-endian secret's high bit is set, the key is 0x00 followed by the
// first 31 bytes; otherwise it is the first 32 bytes.
func (priv PrivateKey) SharedSecret(remotePub [256]byte) ([32]byte, error) {
	p := group()
	y := new(big.Int).SetBytes(remotePub[:])
	if y.Sign() <= 0 || y.Cmp(p) >= 0 {
		return [32]byte{}, oops.Errorf("invalid remote DH public value")
	}
	secret := new(big.Int).Exp(y, priv.x, p)
	raw := secret.Bytes()

	// Left-pad to 256 bytes, the width of the group modulus.
	var padded [256]byte
	copy(padded[256-len(raw):], raw)

	var key [32]byte
	if padded[0]&0x80 != 0 {
		copy(key[1:], padded[0:31])
	} else {
		copy(key[:], padded[0:32])
	}
	return key, nil
}

// Package kdf implements the Noise-XK key derivation NTCP2's session-request
// needs: the mixHash/mixKey chain that turns a static-key hash and an
// ephemeral DH output into the symmetric key protecting the options block.
package kdf

import (
	"crypto/sha256"

	"github.com/go-i2p/go-i2p/lib/crypto/curve25519"
	hmacutil "github.com/go-i2p/go-i2p/lib/crypto/hmac"
	"github.com/samber/oops"
)

// ProtocolName seeds the chaining key, per the Noise protocol naming
// convention: Noise_XK_25519_ChaChaPoly_SHA256.
const ProtocolName = "Noise_XK_25519_ChaChaPoly_SHA256"

// Chain is the running Noise-XK ck/h accumulator.
type Chain struct {
	ck [sha256.Size]byte
	h  [sha256.Size]byte
}

// NewChain initializes ck to the protocol name's raw bytes (the name is
// exactly 32 bytes, the SHA-256 output length, so no padding or hashing is
// needed for ck itself) and h = SHA-256(ck), per spec.md §4.3 steps 1-2.
func NewChain() *Chain {
	var ck [sha256.Size]byte
	copy(ck[:], []byte(ProtocolName))
	return &Chain{ck: ck, h: sha256.Sum256(ck[:])}
}

// MixHash folds data into the running transcript hash: h = SHA-256(h || data).
func (c *Chain) MixHash(data []byte) {
	hasher := sha256.New()
	hasher.Write(c.h[:])
	hasher.Write(data)
	copy(c.h[:], hasher.Sum(nil))
}

// Hash returns the current transcript hash.
func (c *Chain) Hash() [sha256.Size]byte { return c.h }

// MixKey folds a DH output into the chaining key via HMAC-SHA256, returning
// the derived symmetric key (the second HMAC output), per spec.md §4.3
// steps 4-6: tempKey = HMAC(ck, ikm); ck' = HMAC(tempKey, 0x01);
// derived = HMAC(tempKey, ck' || 0x02).
func (c *Chain) MixKey(ikm []byte) [32]byte {
	tempKey := hmacutil.Sum(c.ck[:], ikm)

	ck1 := hmacutil.Sum(tempKey, []byte{0x01})
	copy(c.ck[:], ck1)

	var derivedInput []byte
	derivedInput = append(derivedInput, ck1...)
	derivedInput = append(derivedInput, 0x02)
	derived := hmacutil.Sum(tempKey, derivedInput)

	var out [32]byte
	copy(out[:], derived)
	return out
}

// DeriveOptionsKey runs the full spec.md §4.3 derivation in one call: given
// the remote static public key rs, the local ephemeral public key pub, and
// the local ephemeral private scalar priv, it returns the symmetric key
// used to MAC/encrypt the session-request options block.
func DeriveOptionsKey(rs, pub [32]byte, priv curve25519.Curve25519PrivateKey) ([32]byte, error) {
	chain := NewChain()
	chain.MixHash(rs[:])
	chain.MixHash(pub[:])

	var remote curve25519.Curve25519PublicKey
	copy(remote[:], rs[:])
	ikm, err := priv.DH(remote)
	if err != nil {
		return [32]byte{}, oops.Errorf("failed to compute X25519 DH for NTCP2 KDF: %w", err)
	}

	return chain.MixKey(ikm), nil
}

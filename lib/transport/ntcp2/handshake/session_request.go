// Package handshake builds the NTCP2 initiator's session-request record,
// the only handshake message this core fully specifies (spec.md §4.5); the
// responder flow (session-created/session-confirmed) is a declared forward
// extension and is not implemented here.
package handshake

import (
	"encoding/binary"
	"math/rand"

	aescrypt "github.com/go-i2p/go-i2p/lib/crypto/aes"
	"github.com/go-i2p/go-i2p/lib/crypto/chacha20"
	"github.com/go-i2p/go-i2p/lib/crypto/csprng"
	"github.com/go-i2p/go-i2p/lib/crypto/curve25519"
	"github.com/go-i2p/go-i2p/lib/crypto/ed25519"
	"github.com/go-i2p/go-i2p/lib/transport/ntcp2/kdf"
	"github.com/go-i2p/go-i2p/lib/util/time/monotonic"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Clock supplies tsA for the session-request options block; package session
// attaches it to the same background sntp.RouterTimestamper as
// ntcp/handshake.Clock on first Established session (session.startClockSync),
// so it reports NTP-corrected time rather than raw system time.
var Clock = monotonic.NewClock()

// OptionsSize is the fixed size of the session-request options block
// (ver||padLen||m3p2Len||rsvd||tsA||rsvd), MAC-embedded in its second half.
const OptionsSize = 32

// minPadLen/maxPadLen bound the random trailing padding, per spec.md §4.5's
// "padLen = rand() mod (287-64)".
const (
	minPadLen = 0
	maxPadLen = 287 - 64
)

// SessionRequest is the fully built record ready to write to the socket:
// AES-CBC(X) || ChaCha20Poly1305-ish(options) || random padding.
type SessionRequest struct {
	EncryptedX       [32]byte
	EncryptedOptions [OptionsSize]byte
	Padding          []byte
}

// Marshal concatenates the three record sections verbatim.
func (r *SessionRequest) Marshal() []byte {
	buf := make([]byte, 0, 32+OptionsSize+len(r.Padding))
	buf = append(buf, r.EncryptedX[:]...)
	buf = append(buf, r.EncryptedOptions[:]...)
	buf = append(buf, r.Padding...)
	return buf
}

// EphemeralKey holds the initiator's freshly generated Ed25519-expanded
// ephemeral key pair, kept around so the caller can feed the X25519 DH
// output into later steps if the handshake is ever extended past
// session-request.
type EphemeralKey struct {
	Public  curve25519.Curve25519PublicKey
	private curve25519.Curve25519PrivateKey
}

// GenerateEphemeral creates a new Ed25519-expanded ephemeral key, per
// spec.md §4.5's "generate ephemeral Ed25519-expanded private key, derive
// 32-byte public X".
func GenerateEphemeral() (EphemeralKey, error) {
	expanded, err := ed25519.GenerateExpanded()
	if err != nil {
		return EphemeralKey{}, oops.Errorf("failed to generate expanded Ed25519 key: %w", err)
	}
	pub, priv, err := expanded.X25519KeyPair()
	if err != nil {
		return EphemeralKey{}, oops.Errorf("failed to derive X25519 pair from expanded key: %w", err)
	}
	return EphemeralKey{Public: pub, private: priv}, nil
}

// BuildSessionRequest assembles the complete session-request record.
//
//   - remoteIdentHash: SHA-256 of the remote router's full identity, used as
//     the AES key obfuscating the ephemeral public key.
//   - remoteIV: the remote's advertised 16-byte NTCP2 obfuscation IV.
//   - remoteStaticKey: the remote's advertised NTCP2 static X25519 public key.
//   - eph: this session's ephemeral key pair, from GenerateEphemeral.
func BuildSessionRequest(remoteIdentHash [32]byte, remoteIV [16]byte, remoteStaticKey [32]byte, eph EphemeralKey) (*SessionRequest, error) {
	encX, err := encryptEphemeral(remoteIdentHash, remoteIV, eph.Public)
	if err != nil {
		return nil, err
	}

	key, err := kdf.DeriveOptionsKey(remoteStaticKey, [32]byte(eph.Public), eph.private)
	if err != nil {
		return nil, oops.Errorf("failed to derive NTCP2 options key: %w", err)
	}

	padLen := minPadLen + rand.Intn(maxPadLen-minPadLen)
	options, err := buildEncryptedOptions(key, padLen)
	if err != nil {
		return nil, err
	}

	padding, err := csprng.Bytes(padLen)
	if err != nil {
		return nil, oops.Errorf("failed to generate session-request padding: %w", err)
	}

	log.WithField("pad_len", padLen).Debug("built NTCP2 session-request")
	return &SessionRequest{EncryptedX: encX, EncryptedOptions: options, Padding: padding}, nil
}

func encryptEphemeral(remoteIdentHash [32]byte, remoteIV [16]byte, x curve25519.Curve25519PublicKey) ([32]byte, error) {
	stream, err := aescrypt.NewEncryptStream(remoteIdentHash[:], remoteIV[:])
	if err != nil {
		return [32]byte{}, oops.Errorf("failed to start ephemeral-key encrypt stream: %w", err)
	}
	var out [32]byte
	if err := stream.ProcessBlock(out[0:16], x[0:16]); err != nil {
		return [32]byte{}, err
	}
	if err := stream.ProcessBlock(out[16:32], x[16:32]); err != nil {
		return [32]byte{}, err
	}
	return out, nil
}

// buildEncryptedOptions lays out the 32-byte options block per spec.md §3:
// ver[2]=2 || padLen[2] || m3p2Len[2] || rsvd[2] || tsA[4] || rsvd[4] in the
// first half, with the Poly1305 MAC (computed over the plaintext block)
// written into the second half, then ChaCha20-encrypts only the first 16
// bytes with (key, nonce=0).
func buildEncryptedOptions(key [32]byte, padLen int) ([OptionsSize]byte, error) {
	var block [OptionsSize]byte
	binary.BigEndian.PutUint16(block[0:2], 2)
	binary.BigEndian.PutUint16(block[2:4], uint16(padLen))
	binary.BigEndian.PutUint16(block[4:6], 0) // m3p2Len: no message 3 part 2 in this core
	binary.BigEndian.PutUint16(block[6:8], 0) // rsvd
	binary.BigEndian.PutUint32(block[8:12], uint32(Clock.Now().Unix()))
	binary.BigEndian.PutUint32(block[12:16], 0) // rsvd

	var ckey chacha20.Key
	copy(ckey[:], key[:])
	tag := chacha20.MAC(ckey, block[0:16])
	copy(block[16:32], tag[:])

	if err := chacha20.EncryptZeroNonce(ckey, block[0:16]); err != nil {
		return [OptionsSize]byte{}, oops.Errorf("failed to encrypt NTCP2 options block: %w", err)
	}
	return block, nil
}

// Package handshake implements the legacy NTCP v1 four-phase handshake
// state machine (spec.md §4.4), both initiator and responder roles. Each
// step is a blocking call on a net.Conn; the spec's async-reactor model maps
// onto this the way a single cooperative task maps onto one goroutine per
// session — each suspension point (spec.md §5) is simply a blocking read or
// write here, with the goroutine itself standing in for the reactor task.
package handshake

import (
	"encoding/binary"
	"io"
	"net"
	"time"

	aescrypt "github.com/go-i2p/go-i2p/lib/crypto/aes"
	"github.com/go-i2p/go-i2p/lib/crypto/csprng"
	dhcrypto "github.com/go-i2p/go-i2p/lib/crypto/dh"
	dsacrypto "github.com/go-i2p/go-i2p/lib/crypto/dsa"
	"github.com/go-i2p/go-i2p/lib/crypto/hash"
	"github.com/go-i2p/go-i2p/lib/transport/ntcp/iface"
	"github.com/go-i2p/go-i2p/lib/transport/ntcp/wire"
	"github.com/go-i2p/go-i2p/lib/util/time/monotonic"
	"github.com/go-i2p/go-i2p/lib/util/time/skew"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
	"github.com/sirupsen/logrus"
)

var log = logger.GetGoI2PLogger()

// Timeout bounds the entire four-phase exchange, initiator or responder
// side. A peer that stalls mid-handshake ties up nothing but this one
// connection's deadline; ReceiveLoop (record layer) takes over once
// Established and is not subject to this timer.
const Timeout = 30 * time.Second

// Clock supplies tsA/tsB and is an sntp.UpdateListener: package session
// attaches it to a background sntp.RouterTimestamper on first Established
// session (session.startClockSync), so it reports NTP-corrected time once a
// session has actually been established, not raw system time from process
// start.
var Clock = monotonic.NewClock()

// Result is everything the record layer (C6) needs once the handshake
// reaches Established: the two independent AES-CBC streams, each already
// carrying whatever chain state its last handshake block left behind, so
// there is no re-keying at Established (spec.md §4.4 "AES IV discipline").
type Result struct {
	Encrypt        *aescrypt.StreamState
	Decrypt        *aescrypt.StreamState
	RemoteIdentity []byte // populated on the responder side only
}

// Initiator drives the four-phase handshake as the connecting side.
// localPub/localPriv is this session's fresh DH key pair (spec.md §4.1);
// local signs Phase3, remote authenticates Phase4.
func Initiator(conn net.Conn, local iface.RouterContext, remote iface.RouterInfo, localPub [256]byte, localPriv dhcrypto.PrivateKey) (*Result, error) {
	fields := logrus.Fields{"role": "initiator"}
	log.WithFields(fields).Debug("starting NTCP v1 handshake")

	deadline := monotonic.NewDeadline(Timeout)
	if err := conn.SetDeadline(time.Now().Add(deadline.Remaining())); err != nil {
		return nil, ioErr("failed to set handshake deadline: %w", err)
	}
	defer conn.SetDeadline(time.Time{})

	remoteIdentHash := remote.IdentHash()
	var p1 wire.Phase1
	p1.PubKey = localPub
	hx := hash.SHA256(localPub[:])
	for i := range p1.HXxorHI {
		p1.HXxorHI[i] = hx[i] ^ remoteIdentHash[i]
	}
	if _, err := conn.Write(p1.Marshal()); err != nil {
		return nil, ioErr("failed to write phase1: %w", err)
	}

	phase2Buf := make([]byte, wire.PubKeySize+wire.Phase2PlainLen)
	if _, err := io.ReadFull(conn, phase2Buf); err != nil {
		return nil, ioErr("failed to read phase2: %w", err)
	}
	p2, err := wire.UnmarshalPhase2(phase2Buf)
	if err != nil {
		return nil, protocolErr("malformed phase2: %w", err)
	}

	aesKey, err := localPriv.SharedSecret(p2.PubKey)
	if err != nil {
		return nil, cryptoErr("failed to derive phase2 DH secret: %w", err)
	}

	// Inbound IV = remote ephemeral Y's last 16 bytes; outbound IV =
	// HXxorHI's last 16 bytes, per spec.md §4.4 step 2.
	decStream, err := aescrypt.NewDecryptStream(aesKey[:], p2.PubKey[240:256])
	if err != nil {
		return nil, cryptoErr("failed to start phase2 decrypt stream: %w", err)
	}
	encStream, err := aescrypt.NewEncryptStream(aesKey[:], p1.HXxorHI[16:32])
	if err != nil {
		return nil, cryptoErr("failed to start phase3 encrypt stream: %w", err)
	}

	p2PlainBuf := make([]byte, wire.Phase2PlainLen)
	if err := decryptBlocks(decStream, p2PlainBuf, p2.Ciphertext[:]); err != nil {
		return nil, err
	}
	p2Plain, err := wire.UnmarshalPhase2Plain(p2PlainBuf)
	if err != nil {
		return nil, protocolErr("malformed phase2 plaintext: %w", err)
	}

	wantHXY := hash.SHA256Concat(localPub[:], p2.PubKey[:])
	if !constantTimeEqual(p2Plain.HXY[:], wantHXY[:]) {
		return nil, protocolErr("phase2 hxy mismatch")
	}
	if err := skew.ValidateTimestampWithSkew(time.Unix(int64(p2Plain.Timestamp), 0), skew.HandshakeSkew); err != nil {
		return nil, protocolErr("phase2 timestamp out of tolerance: %w", err)
	}

	tsA := uint32(Clock.Now().Unix())
	signed := wire.SignedData{
		X: localPub, Y: p2.PubKey, RemoteIdent: remoteIdentHash,
		TsA: tsA, TsB: p2Plain.Timestamp,
	}
	sig, err := local.Sign(signed.Marshal())
	if err != nil {
		return nil, cryptoErr("failed to sign phase3: %w", err)
	}
	p3Plain := wire.Phase3Plain{Ident: local.IdentityBytes(), Timestamp: tsA, Signature: sig}
	p3PlainBytes := wire.PadToBlock(p3Plain.Marshal(), 16)
	p3Cipher := make([]byte, len(p3PlainBytes))
	if err := encryptBlocks(encStream, p3Cipher, p3PlainBytes); err != nil {
		return nil, err
	}
	if _, err := conn.Write(p3Cipher); err != nil {
		return nil, ioErr("failed to write phase3: %w", err)
	}

	// Phase4 is the padded signature only: 40 bytes rounds up to 48, so
	// exactly three AES blocks are read and decrypted.
	p4PlainBytes := make([]byte, 48)
	p4CipherBytes := make([]byte, 48)
	if _, err := io.ReadFull(conn, p4CipherBytes); err != nil {
		return nil, ioErr("failed to read phase4: %w", err)
	}
	if err := decryptBlocks(decStream, p4PlainBytes, p4CipherBytes); err != nil {
		return nil, err
	}
	p4Plain, err := wire.UnmarshalPhase4Plain(p4PlainBytes)
	if err != nil {
		return nil, protocolErr("malformed phase4: %w", err)
	}

	verifySigned := wire.SignedData{
		X: localPub, Y: p2.PubKey, RemoteIdent: local.IdentHash(),
		TsA: p3Plain.Timestamp, TsB: p2Plain.Timestamp,
	}
	if err := verifyDSA(remote.DSAPublicKey(), verifySigned.Marshal(), p4Plain.Signature); err != nil {
		return nil, cryptoErr("phase4 signature verification failed: %w", err)
	}

	log.WithFields(fields).Debug("NTCP v1 handshake established")
	return &Result{Encrypt: encStream, Decrypt: decStream}, nil
}

// Responder drives the four-phase handshake as the accepting side.
// localPub/localPriv are not used: the responder generates its own fresh DH
// key pair (Y) for Phase2 after validating Phase1. lookupRemote
// resolves the initiator's claimed identity (from Phase3) into a RouterInfo
// so the DSA signature can be verified — this is the one point where the
// responder needs a collaborator lookup, since Phase1 only carries an
// identity hash.
func Responder(conn net.Conn, local iface.RouterContext, localPub [256]byte, localPriv dhcrypto.PrivateKey, lookupRemote func(identHash [32]byte) (iface.RouterInfo, error)) (*Result, error) {
	fields := logrus.Fields{"role": "responder"}
	log.WithFields(fields).Debug("starting NTCP v1 handshake")

	deadline := monotonic.NewDeadline(Timeout)
	if err := conn.SetDeadline(time.Now().Add(deadline.Remaining())); err != nil {
		return nil, ioErr("failed to set handshake deadline: %w", err)
	}
	defer conn.SetDeadline(time.Time{})

	p1Buf := make([]byte, wire.Phase1Size)
	if _, err := io.ReadFull(conn, p1Buf); err != nil {
		return nil, ioErr("failed to read phase1: %w", err)
	}
	p1, err := wire.UnmarshalPhase1(p1Buf)
	if err != nil {
		return nil, protocolErr("malformed phase1: %w", err)
	}
	localIdentHash := local.IdentHash()
	hx := hash.SHA256(p1.PubKey[:])
	for i := 0; i < 32; i++ {
		if (hx[i] ^ p1.HXxorHI[i]) != localIdentHash[i] {
			return nil, protocolErr("phase1 identity hash mismatch")
		}
	}

	localY, localDHPriv, err := dhcrypto.GenerateKeyPair()
	if err != nil {
		return nil, cryptoErr("failed to generate phase2 DH key pair: %w", err)
	}
	aesKey, err := localDHPriv.SharedSecret(p1.PubKey)
	if err != nil {
		return nil, cryptoErr("failed to derive phase2 DH secret: %w", err)
	}

	encStream, err := aescrypt.NewEncryptStream(aesKey[:], localY[240:256])
	if err != nil {
		return nil, cryptoErr("failed to start phase2 encrypt stream: %w", err)
	}
	decStream, err := aescrypt.NewDecryptStream(aesKey[:], p1.HXxorHI[16:32])
	if err != nil {
		return nil, cryptoErr("failed to start phase3 decrypt stream: %w", err)
	}

	tsB := uint32(Clock.Now().Unix())
	var filler [12]byte
	if err := csprng.Read(filler[:]); err != nil {
		return nil, cryptoErr("failed to generate phase2 filler: %w", err)
	}
	hxy := hash.SHA256Concat(p1.PubKey[:], localY[:])
	p2Plain := wire.Phase2Plain{HXY: hxy, Timestamp: tsB, Filler: filler}
	p2PlainBytes := p2Plain.Marshal()
	p2CipherBytes := make([]byte, len(p2PlainBytes))
	if err := encryptBlocks(encStream, p2CipherBytes, p2PlainBytes); err != nil {
		return nil, err
	}
	p2 := wire.Phase2{PubKey: localY}
	copy(p2.Ciphertext[:], p2CipherBytes)
	if _, err := conn.Write(p2.Marshal()); err != nil {
		return nil, ioErr("failed to write phase2: %w", err)
	}

	// Phase3 starts with a 2-byte size field inside the first decrypted
	// block; read one block, learn the total length, then read the rest.
	firstCipher := make([]byte, 16)
	if _, err := io.ReadFull(conn, firstCipher); err != nil {
		return nil, ioErr("failed to read phase3 header: %w", err)
	}
	firstPlain := make([]byte, 16)
	if err := decryptBlocks(decStream, firstPlain, firstCipher); err != nil {
		return nil, err
	}
	identSize := int(binary.BigEndian.Uint16(firstPlain[0:2]))
	total := 2 + identSize + 4 + wire.SignatureSize
	padded := total
	if rem := padded % 16; rem != 0 {
		padded += 16 - rem
	}
	if padded < 16 {
		return nil, protocolErr("phase3 length underflow")
	}
	restCipher := make([]byte, padded-16)
	if len(restCipher) > 0 {
		if _, err := io.ReadFull(conn, restCipher); err != nil {
			return nil, ioErr("failed to read phase3 body: %w", err)
		}
	}
	restPlain := make([]byte, len(restCipher))
	if err := decryptBlocks(decStream, restPlain, restCipher); err != nil {
		return nil, err
	}
	p3PlainBytes := append(firstPlain, restPlain...)
	p3Plain, err := wire.UnmarshalPhase3Plain(p3PlainBytes)
	if err != nil {
		return nil, protocolErr("malformed phase3: %w", err)
	}

	if err := skew.ValidateTimestampWithSkew(time.Unix(int64(p3Plain.Timestamp), 0), skew.HandshakeSkew); err != nil {
		return nil, protocolErr("phase3 timestamp out of tolerance: %w", err)
	}

	remoteIdentHashArr := hash.SHA256(p3Plain.Ident)
	remoteInfo, err := lookupRemote(remoteIdentHashArr)
	if err != nil {
		return nil, protocolErr("failed to resolve phase3 identity: %w", err)
	}

	verifySigned := wire.SignedData{
		X: p1.PubKey, Y: localY, RemoteIdent: localIdentHash,
		TsA: p3Plain.Timestamp, TsB: tsB,
	}
	if err := verifyDSA(remoteInfo.DSAPublicKey(), verifySigned.Marshal(), p3Plain.Signature); err != nil {
		return nil, cryptoErr("phase3 signature verification failed: %w", err)
	}

	sendSigned := wire.SignedData{
		X: p1.PubKey, Y: localY, RemoteIdent: remoteIdentHashArr,
		TsA: p3Plain.Timestamp, TsB: tsB,
	}
	sig, err := local.Sign(sendSigned.Marshal())
	if err != nil {
		return nil, cryptoErr("failed to sign phase4: %w", err)
	}
	p4Plain := wire.Phase4Plain{Signature: sig}
	p4PlainBytes := wire.PadToBlock(p4Plain.Marshal(), 16)
	p4CipherBytes := make([]byte, len(p4PlainBytes))
	if err := encryptBlocks(encStream, p4CipherBytes, p4PlainBytes); err != nil {
		return nil, err
	}
	if _, err := conn.Write(p4CipherBytes); err != nil {
		return nil, ioErr("failed to write phase4: %w", err)
	}

	log.WithFields(fields).Debug("NTCP v1 handshake established")
	return &Result{Encrypt: encStream, Decrypt: decStream, RemoteIdentity: p3Plain.Ident}, nil
}

func encryptBlocks(s *aescrypt.StreamState, dst, src []byte) error {
	if len(dst) != len(src) || len(src)%16 != 0 {
		return internalErr("block buffers must be equal-length multiples of 16")
	}
	for off := 0; off < len(src); off += 16 {
		if err := s.ProcessBlock(dst[off:off+16], src[off:off+16]); err != nil {
			return cryptoErr("block encrypt failed: %w", err)
		}
	}
	return nil
}

func decryptBlocks(s *aescrypt.StreamState, dst, src []byte) error {
	if len(dst) != len(src) || len(src)%16 != 0 {
		return internalErr("block buffers must be equal-length multiples of 16")
	}
	for off := 0; off < len(src); off += 16 {
		if err := s.ProcessBlock(dst[off:off+16], src[off:off+16]); err != nil {
			return cryptoErr("block decrypt failed: %w", err)
		}
	}
	return nil
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	var v byte
	for i := range a {
		v |= a[i] ^ b[i]
	}
	return v == 0
}

// verifyDSA checks sig (40 bytes: r[20] || s[20]) over data using the
// remote's DSA public key bytes (the Y component, fixed-width per the
// shared group parameters from package dsa).
func verifyDSA(pubKeyBytes []byte, data []byte, sig [wire.SignatureSize]byte) error {
	var pub dsacrypto.DSAPublicKey
	copy(pub[len(pub)-len(pubKeyBytes):], pubKeyBytes)
	verifier, err := pub.NewVerifier()
	if err != nil {
		return oops.Errorf("failed to construct DSA verifier: %w", err)
	}
	return verifier.Verify(data, sig[:])
}

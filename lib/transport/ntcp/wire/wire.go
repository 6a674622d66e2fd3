// Package wire packs and unpacks the fixed-layout NTCP v1 handshake records
// and the post-handshake frame. It performs no cryptography and no I/O; it
// only knows byte layouts and big-endian integers.
package wire

import (
	"encoding/binary"

	"github.com/samber/oops"
)

// Fixed sizes from the legacy handshake's wire format.
const (
	PubKeySize     = 256
	HXxorHISize    = 32
	Phase1Size     = PubKeySize + HXxorHISize
	HXYSize        = 32
	Phase2PlainLen = HXYSize + 4 + 12 // hxy || timestamp || filler, AES-CBC'd as one 48-byte block
	SignatureSize  = 40
	SignedDataSize = PubKeySize + PubKeySize + 32 + 4 + 4 // x || y || ident || tsA || tsB
)

// Phase1 is the cleartext record an initiator sends first:
// pubKey[256] || HXxorHI[32].
type Phase1 struct {
	PubKey   [PubKeySize]byte
	HXxorHI  [HXxorHISize]byte
}

func (p *Phase1) Marshal() []byte {
	buf := make([]byte, Phase1Size)
	copy(buf[0:PubKeySize], p.PubKey[:])
	copy(buf[PubKeySize:], p.HXxorHI[:])
	return buf
}

func UnmarshalPhase1(buf []byte) (*Phase1, error) {
	if len(buf) != Phase1Size {
		return nil, oops.Errorf("phase1: expected %d bytes, got %d", Phase1Size, len(buf))
	}
	p := &Phase1{}
	copy(p.PubKey[:], buf[0:PubKeySize])
	copy(p.HXxorHI[:], buf[PubKeySize:])
	return p, nil
}

// Phase2Plain is the 48-byte plaintext block AES-CBC encrypted inside Phase2:
// hxy[32] || timestamp[4] || filler[12].
type Phase2Plain struct {
	HXY       [HXYSize]byte
	Timestamp uint32
	Filler    [12]byte
}

func (p *Phase2Plain) Marshal() []byte {
	buf := make([]byte, Phase2PlainLen)
	copy(buf[0:HXYSize], p.HXY[:])
	binary.BigEndian.PutUint32(buf[HXYSize:HXYSize+4], p.Timestamp)
	copy(buf[HXYSize+4:], p.Filler[:])
	return buf
}

func UnmarshalPhase2Plain(buf []byte) (*Phase2Plain, error) {
	if len(buf) != Phase2PlainLen {
		return nil, oops.Errorf("phase2: expected %d plaintext bytes, got %d", Phase2PlainLen, len(buf))
	}
	p := &Phase2Plain{}
	copy(p.HXY[:], buf[0:HXYSize])
	p.Timestamp = binary.BigEndian.Uint32(buf[HXYSize : HXYSize+4])
	copy(p.Filler[:], buf[HXYSize+4:])
	return p, nil
}

// Phase2 is pubKey[256] || ciphertext(Phase2Plain, 48 bytes) = 304 bytes on
// the wire; the cleartext pubKey and ciphertext are kept separate here since
// only the ciphertext portion is AES-CBC processed.
type Phase2 struct {
	PubKey     [PubKeySize]byte
	Ciphertext [Phase2PlainLen]byte
}

func (p *Phase2) Marshal() []byte {
	buf := make([]byte, PubKeySize+Phase2PlainLen)
	copy(buf[0:PubKeySize], p.PubKey[:])
	copy(buf[PubKeySize:], p.Ciphertext[:])
	return buf
}

func UnmarshalPhase2(buf []byte) (*Phase2, error) {
	if len(buf) != PubKeySize+Phase2PlainLen {
		return nil, oops.Errorf("phase2: expected %d bytes, got %d", PubKeySize+Phase2PlainLen, len(buf))
	}
	p := &Phase2{}
	copy(p.PubKey[:], buf[0:PubKeySize])
	copy(p.Ciphertext[:], buf[PubKeySize:])
	return p, nil
}

// SignedData is the 552-byte structure DSA-signs in Phase3/Phase4:
// x[256] || y[256] || remoteIdent[32] || tsA[4] || tsB[4].
type SignedData struct {
	X           [PubKeySize]byte
	Y           [PubKeySize]byte
	RemoteIdent [32]byte
	TsA         uint32
	TsB         uint32
}

func (s *SignedData) Marshal() []byte {
	buf := make([]byte, SignedDataSize)
	off := 0
	copy(buf[off:], s.X[:])
	off += PubKeySize
	copy(buf[off:], s.Y[:])
	off += PubKeySize
	copy(buf[off:], s.RemoteIdent[:])
	off += 32
	binary.BigEndian.PutUint32(buf[off:], s.TsA)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], s.TsB)
	return buf
}

// Phase3Plain is the plaintext Phase3 payload before AES-CBC and padding:
// size[2] || ident[size] || timestamp[4] || signature[40].
type Phase3Plain struct {
	Ident     []byte
	Timestamp uint32
	Signature [SignatureSize]byte
}

// Marshal returns the unpadded plaintext; the caller pads to an AES block
// multiple before encrypting.
func (p *Phase3Plain) Marshal() []byte {
	buf := make([]byte, 2+len(p.Ident)+4+SignatureSize)
	binary.BigEndian.PutUint16(buf[0:2], uint16(len(p.Ident)))
	off := 2
	copy(buf[off:], p.Ident)
	off += len(p.Ident)
	binary.BigEndian.PutUint32(buf[off:off+4], p.Timestamp)
	off += 4
	copy(buf[off:], p.Signature[:])
	return buf
}

// UnmarshalPhase3Plain parses the decrypted Phase3 plaintext. buf may carry
// trailing padding beyond the signature; it is ignored.
func UnmarshalPhase3Plain(buf []byte) (*Phase3Plain, error) {
	if len(buf) < 2 {
		return nil, oops.Errorf("phase3: truncated size field")
	}
	size := int(binary.BigEndian.Uint16(buf[0:2]))
	need := 2 + size + 4 + SignatureSize
	if len(buf) < need {
		return nil, oops.Errorf("phase3: expected at least %d bytes, got %d", need, len(buf))
	}
	p := &Phase3Plain{Ident: append([]byte(nil), buf[2:2+size]...)}
	off := 2 + size
	p.Timestamp = binary.BigEndian.Uint32(buf[off : off+4])
	off += 4
	copy(p.Signature[:], buf[off:off+SignatureSize])
	return p, nil
}

// Phase4Plain is signature[40] before padding.
type Phase4Plain struct {
	Signature [SignatureSize]byte
}

func (p *Phase4Plain) Marshal() []byte {
	buf := make([]byte, SignatureSize)
	copy(buf, p.Signature[:])
	return buf
}

func UnmarshalPhase4Plain(buf []byte) (*Phase4Plain, error) {
	if len(buf) < SignatureSize {
		return nil, oops.Errorf("phase4: expected at least %d bytes, got %d", SignatureSize, len(buf))
	}
	p := &Phase4Plain{}
	copy(p.Signature[:], buf[0:SignatureSize])
	return p, nil
}

// PadToBlock pads buf with zero bytes up to the next multiple of blockSize,
// the way Phase3/Phase4 are padded before AES-CBC encryption.
func PadToBlock(buf []byte, blockSize int) []byte {
	rem := len(buf) % blockSize
	if rem == 0 {
		return buf
	}
	return append(buf, make([]byte, blockSize-rem)...)
}

// FramePadding returns the number of padding bytes a post-handshake frame
// needs so that size+2+padding+4 is a multiple of 16, per spec.md §3/§4.6.
func FramePadding(payloadLen int) int {
	rem := (payloadLen + 6) % 16
	if rem == 0 {
		return 0
	}
	return 16 - rem
}

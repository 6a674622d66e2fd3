// Package record implements the post-handshake streaming frame layer
// shared by both protocols once a session reaches Established (spec.md
// §4.6): block-granular AES-CBC decrypt with inner-message reassembly on
// receive, and padded+checksummed framing on send.
package record

import (
	"encoding/binary"
	"time"

	aescrypt "github.com/go-i2p/go-i2p/lib/crypto/aes"
	"github.com/go-i2p/go-i2p/lib/crypto/hash"
	"github.com/go-i2p/go-i2p/lib/transport/ntcp/iface"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// inProgress tracks the inner message currently being reassembled across
// successive 16-byte blocks.
type inProgress struct {
	msg    iface.Message
	offset int // bytes written into msg.Buf() so far
	size   int // declared payload size (the 2-byte size field)
	total  int // size + 2 + padding + 4, a multiple of 16
}

// Reassembler decrypts a session's inbound byte stream one AES block at a
// time and reassembles complete inner messages, per spec.md §4.6.
// Reassembler is not safe for concurrent use; spec.md §5 requires a single
// reader per session.
type Reassembler struct {
	stream  *aescrypt.StreamState
	factory iface.MessageFactory
	cur     *inProgress
}

func NewReassembler(stream *aescrypt.StreamState, factory iface.MessageFactory) *Reassembler {
	return &Reassembler{stream: stream, factory: factory}
}

// ErrProtocol is returned (wrapped) when the peer's byte stream cannot be a
// valid frame sequence — a fatal, session-terminating condition.
var ErrProtocol = oops.Errorf("ntcp record protocol violation")

// FeedBlock consumes exactly one 16-byte ciphertext block, advancing
// reassembly. It returns a complete message once its checksum has been
// verified, or nil while more blocks are still needed. Keep-alive frames
// (size == 0) are consumed silently and yield (nil, nil).
func (r *Reassembler) FeedBlock(ciphertext []byte) (iface.Message, error) {
	if len(ciphertext) != aescrypt.BlockSize {
		return nil, oops.Errorf("%w: block must be exactly %d bytes", ErrProtocol, aescrypt.BlockSize)
	}

	if r.cur == nil {
		msg := r.factory.NewMessage()
		buf := msg.Buf()
		if len(buf) < 16 {
			return nil, oops.Errorf("%w: message buffer smaller than one block", ErrProtocol)
		}
		if err := r.stream.ProcessBlock(buf[0:16], ciphertext); err != nil {
			return nil, oops.Errorf("block decrypt failed: %w", err)
		}
		size := binary.BigEndian.Uint16(buf[0:2])
		if size == 0 {
			log.Debug("received keep-alive frame")
			r.factory.DeleteMessage(msg)
			return nil, nil
		}
		msg.SetOffset(2)
		msg.SetLen(int(size))
		total := int(size) + 2 + framePadding(int(size)) + 4
		if total > len(buf) {
			r.factory.DeleteMessage(msg)
			return nil, oops.Errorf("%w: frame length %d exceeds message buffer", ErrProtocol, total)
		}
		r.cur = &inProgress{msg: msg, offset: 16, size: int(size), total: total}
		return r.deliverIfComplete()
	}

	buf := r.cur.msg.Buf()
	if r.cur.offset+16 > len(buf) {
		return nil, oops.Errorf("%w: message exceeds buffer capacity", ErrProtocol)
	}
	if err := r.stream.ProcessBlock(buf[r.cur.offset:r.cur.offset+16], ciphertext); err != nil {
		return nil, oops.Errorf("block decrypt failed: %w", err)
	}
	r.cur.offset += 16
	return r.deliverIfComplete()
}

func (r *Reassembler) deliverIfComplete() (iface.Message, error) {
	if r.cur.offset < r.cur.total {
		return nil, nil
	}
	cur := r.cur
	r.cur = nil
	buf := cur.msg.Buf()
	plaintext := buf[0 : cur.total-4]
	wantChecksum := binary.BigEndian.Uint32(buf[cur.total-4 : cur.total])
	gotChecksum := hash.Adler32(plaintext)
	if gotChecksum != wantChecksum {
		r.factory.DeleteMessage(cur.msg)
		return nil, oops.Errorf("%w: adler-32 checksum mismatch", ErrProtocol)
	}
	return cur.msg, nil
}

// Sender frames and encrypts outbound inner messages. Its AES-CBC stream
// must only be touched while holding the caller's outbound mutex
// (spec.md §5); Sender itself does not lock, since the session owns the
// serialization discipline around both the encrypt step and the socket
// write.
type Sender struct {
	stream *aescrypt.StreamState
}

func NewSender(stream *aescrypt.StreamState) *Sender {
	return &Sender{stream: stream}
}

// FrameMessage builds and encrypts the wire frame for an inner message,
// returning ciphertext ready to write to the socket. msg.Offset() must be
// >= 2 (spec.md §4.6/§7 InternalError).
func (s *Sender) FrameMessage(msg iface.Message) ([]byte, error) {
	if msg.Offset() < 2 {
		return nil, oops.Errorf("malformed outbound message: offset %d < 2", msg.Offset())
	}
	payload := msg.Buf()[msg.Offset() : msg.Offset()+msg.Len()]
	size := len(payload)
	padding := framePadding(size)

	plain := make([]byte, size+2+padding+4)
	binary.BigEndian.PutUint16(plain[0:2], uint16(size))
	copy(plain[2:2+size], payload)
	// padding bytes left zero
	checksum := hash.Adler32(plain[0 : size+2+padding])
	binary.BigEndian.PutUint32(plain[size+2+padding:], checksum)

	return s.encryptInPlace(plain)
}

// FrameKeepAlive builds and encrypts a size==0 timestamp frame: the 2-byte
// size field is literally 0 (a marker, not a length), followed by the
// 4-byte timestamp "payload", then padding and checksum computed from the
// general frame formula with len=4, per spec.md §4.6/§9.
func (s *Sender) FrameKeepAlive(now time.Time) ([]byte, error) {
	const payloadLen = 4
	padding := framePadding(payloadLen)
	plain := make([]byte, payloadLen+2+padding+4)
	binary.BigEndian.PutUint16(plain[0:2], 0)
	binary.BigEndian.PutUint32(plain[2:6], uint32(now.Unix()))
	// padding bytes left zero
	checksum := hash.Adler32(plain[0 : payloadLen+2+padding])
	binary.BigEndian.PutUint32(plain[payloadLen+2+padding:], checksum)
	return s.encryptInPlace(plain)
}

func (s *Sender) encryptInPlace(plain []byte) ([]byte, error) {
	if len(plain)%16 != 0 {
		return nil, oops.Errorf("internal error: frame length %d not a multiple of 16", len(plain))
	}
	out := make([]byte, len(plain))
	for off := 0; off < len(plain); off += 16 {
		if err := s.stream.ProcessBlock(out[off:off+16], plain[off:off+16]); err != nil {
			return nil, oops.Errorf("block encrypt failed: %w", err)
		}
	}
	return out, nil
}

// framePadding returns the smallest non-negative padding so that
// size+2+padding+4 is a multiple of 16, per spec.md §3.
func framePadding(size int) int {
	rem := (size + 6) % 16
	if rem == 0 {
		return 0
	}
	return 16 - rem
}

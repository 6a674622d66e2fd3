// Package session implements the session lifecycle (spec.md §4.7/§9):
// establishment notification, idempotent termination, registry membership,
// and the single deferred-outbound slot held before establishment.
package session

import (
	"net"
	"sync"
	"sync/atomic"

	aescrypt "github.com/go-i2p/go-i2p/lib/crypto/aes"
	"github.com/go-i2p/go-i2p/lib/transport/ntcp/handshake"
	"github.com/go-i2p/go-i2p/lib/transport/ntcp/iface"
	"github.com/go-i2p/go-i2p/lib/transport/ntcp/record"
	"github.com/go-i2p/logger"
	"github.com/samber/oops"
)

var log = logger.GetGoI2PLogger()

// Session owns one transport connection from Established until Terminate.
// Exactly one goroutine reads (the receive loop); sends are serialized by
// outMu, matching spec.md §5's single-reader/mutex-guarded-writer model.
type Session struct {
	id      string
	conn    net.Conn
	factory iface.MessageFactory
	reg     iface.Registry

	established atomic.Bool
	terminated  atomic.Bool

	reassembler *record.Reassembler

	outMu  sync.Mutex
	sender *record.Sender

	deferredMu sync.Mutex
	deferred   iface.Message
}

// New wraps a completed handshake's encrypt/decrypt streams into a Session.
// The session is not yet established; call Connected once the caller has
// finished any handshake-specific bookkeeping.
func New(id string, conn net.Conn, encrypt, decrypt *aescrypt.StreamState, factory iface.MessageFactory, reg iface.Registry) *Session {
	return &Session{
		id:          id,
		conn:        conn,
		factory:     factory,
		reg:         reg,
		reassembler: record.NewReassembler(decrypt, factory),
		sender:      record.NewSender(encrypt),
	}
}

// Connected registers the session, sends the identity announcement as the
// first inner message, then flushes the deferred slot if occupied — in
// that literal order, per spec.md §4.6 "Lifecycle".
func (s *Session) Connected() error {
	startClockSync()
	s.reg.Add(s.id, s)
	s.established.Store(true)

	if err := s.sendNow(s.factory.CreateDatabaseStoreMsg()); err != nil {
		return oops.Errorf("failed to send identity announcement: %w", err)
	}

	s.deferredMu.Lock()
	deferred := s.deferred
	s.deferred = nil
	s.deferredMu.Unlock()
	if deferred != nil {
		if err := s.sendNow(deferred); err != nil {
			return oops.Errorf("failed to flush deferred message: %w", err)
		}
	}

	log.WithField("session_id", s.id).Debug("session established")
	return nil
}

// Submit sends msg if established, otherwise stores it in the one-slot
// deferred queue. A message submitted while the slot is already occupied is
// dropped with InternalError (spec.md §9's resolution of the deferred-slot
// overflow open question: bound the slot to one, free/drop rather than
// leak).
func (s *Session) Submit(msg iface.Message) error {
	if s.established.Load() {
		return s.sendNow(msg)
	}
	s.deferredMu.Lock()
	defer s.deferredMu.Unlock()
	if s.deferred != nil {
		s.factory.DeleteMessage(msg)
		return oops.Errorf("internal error: deferred slot already occupied, dropping message")
	}
	s.deferred = msg
	return nil
}

func (s *Session) sendNow(msg iface.Message) error {
	if msg.Offset() < 2 {
		s.factory.DeleteMessage(msg)
		return oops.Errorf("internal error: malformed outbound message, offset %d < 2", msg.Offset())
	}
	s.outMu.Lock()
	defer s.outMu.Unlock()
	frame, err := s.sender.FrameMessage(msg)
	s.factory.DeleteMessage(msg)
	if err != nil {
		return err
	}
	// Write happens inside the critical section so frames reach the socket
	// in the same order they were encrypted (spec.md §5 ordering guarantee).
	if _, err := s.conn.Write(frame); err != nil {
		return oops.Errorf("failed to write frame: %w", err)
	}
	return nil
}

// SendTimeSync writes a size==0 keep-alive frame carrying the current
// NTP-corrected time (spec.md §4.6 "Send(null)"). It bypasses the deferred
// slot entirely: a liveness probe has no value queued before establishment.
func (s *Session) SendTimeSync() error {
	s.outMu.Lock()
	defer s.outMu.Unlock()
	frame, err := s.sender.FrameKeepAlive(handshake.Clock.Now())
	if err != nil {
		return err
	}
	if _, err := s.conn.Write(frame); err != nil {
		return oops.Errorf("failed to write keep-alive frame: %w", err)
	}
	return nil
}

// ReceiveLoop reads and reassembles inbound frames until the connection
// closes or a protocol violation occurs, dispatching each complete message
// to the factory's handler. It is meant to run on its own goroutine per
// session — the stand-in for spec.md's single reactor task.
func (s *Session) ReceiveLoop() {
	buf := make([]byte, aescrypt.BlockSize)
	for {
		if _, err := readFull(s.conn, buf); err != nil {
			log.WithField("session_id", s.id).WithError(err).Debug("receive loop ended")
			s.Terminate()
			return
		}
		msg, err := s.reassembler.FeedBlock(buf)
		if err != nil {
			log.WithField("session_id", s.id).WithError(err).Warn("protocol violation, terminating")
			s.Terminate()
			return
		}
		if msg != nil {
			s.factory.HandleMessage(msg)
		}
	}
}

func readFull(conn net.Conn, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := conn.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// Terminate is idempotent: only the first caller performs teardown. It
// clears established, closes the socket, frees the deferred message, and
// removes the session from the registry (spec.md §4.7).
func (s *Session) Terminate() {
	if !s.terminated.CompareAndSwap(false, true) {
		return
	}
	s.established.Store(false)
	_ = s.conn.Close()

	s.deferredMu.Lock()
	if s.deferred != nil {
		s.factory.DeleteMessage(s.deferred)
		s.deferred = nil
	}
	s.deferredMu.Unlock()

	s.reg.Remove(s.id)
	log.WithField("session_id", s.id).Debug("session terminated")
}

// Established reports whether Connected has completed and Terminate has not
// yet run.
func (s *Session) Established() bool {
	return s.established.Load()
}

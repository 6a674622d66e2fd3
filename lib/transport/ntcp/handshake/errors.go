package handshake

import "github.com/samber/oops"

// Kind classifies a handshake failure the way spec.md §7 requires, so a
// caller can branch on category while still getting oops's wrapped context.
type Kind int

const (
	KindIO Kind = iota
	KindCrypto
	KindProtocol
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindIO:
		return "io"
	case KindCrypto:
		return "crypto"
	case KindProtocol:
		return "protocol"
	case KindInternal:
		return "internal"
	default:
		return "unknown"
	}
}

// Error wraps an oops error with a Kind so callers can classify failures
// (spec.md §7: IoError, CryptoError, ProtocolError, InternalError) without
// losing oops's stack/context.
type Error struct {
	Kind Kind
	Err  error
}

func (e *Error) Error() string { return e.Kind.String() + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }

func ioErr(format string, args ...any) error {
	return &Error{Kind: KindIO, Err: oops.Errorf(format, args...)}
}

func cryptoErr(format string, args ...any) error {
	return &Error{Kind: KindCrypto, Err: oops.Errorf(format, args...)}
}

func protocolErr(format string, args ...any) error {
	return &Error{Kind: KindProtocol, Err: oops.Errorf(format, args...)}
}

func internalErr(format string, args ...any) error {
	return &Error{Kind: KindInternal, Err: oops.Errorf(format, args...)}
}

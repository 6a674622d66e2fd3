// Package iface declares the narrow interfaces the handshake and record-layer
// core consumes from its surrounding router process. None of these are
// implemented here: router identity storage, tunnel dispatch, and transport
// selection are explicitly out of scope (spec.md §1) and remain external
// collaborators.
package iface

// RouterContext is the local router's identity and signing capability.
type RouterContext interface {
	// IdentityBytes returns the local router's full identity struct bytes,
	// embedded verbatim in Phase3.
	IdentityBytes() []byte
	// IdentHash returns SHA-256 of the local router's identity.
	IdentHash() [32]byte
	// Sign produces a 40-byte DSA-SHA1 signature over data.
	Sign(data []byte) ([40]byte, error)
}

// RouterInfo is a remote peer's advertised identity and transport
// parameters.
type RouterInfo interface {
	// IdentHash returns SHA-256 of the remote router's identity.
	IdentHash() [32]byte
	// DSAPublicKey returns the remote router's DSA public key bytes (the Y
	// component, fixed-width per the shared group parameters).
	DSAPublicKey() []byte
	// RouterIdentity returns the full identity struct bytes, as embedded by
	// the remote in its own Phase3.
	RouterIdentity() []byte
	// NTCP2StaticKey and NTCP2IV return the remote's advertised NTCP2
	// static X25519 public key and AES obfuscation IV; ok is false if the
	// remote has not advertised NTCP2 support.
	NTCP2StaticKey() (key [32]byte, ok bool)
	NTCP2IV() (iv [16]byte, ok bool)
}

// Message is an opaque inner network message (I-Msg); the core treats it as
// opaque beyond Offset/Len.
type Message interface {
	// Buf is the backing buffer; Offset is the first usable byte, Len is the
	// number of usable bytes starting at Offset.
	Buf() []byte
	Offset() int
	Len() int
	SetOffset(int)
	SetLen(int)
}

// MessageFactory creates and recycles inner messages and dispatches
// completed ones to the router's inbound handler.
type MessageFactory interface {
	NewMessage() Message
	DeleteMessage(m Message)
	HandleMessage(m Message)
	// CreateDatabaseStoreMsg returns the identity-announcement I-Msg sent as
	// the first outbound message after establishment (spec.md §4.6).
	CreateDatabaseStoreMsg() Message
}

// Registry tracks live sessions so the router can route outbound traffic and
// tear down connections. Add/Remove must be safe for concurrent use
// (spec.md §5/§6).
type Registry interface {
	Add(sessionID string, session any)
	Remove(sessionID string)
}

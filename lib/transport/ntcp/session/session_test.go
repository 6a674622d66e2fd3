package session

import (
	"net"
	"testing"
	"time"

	aescrypt "github.com/go-i2p/go-i2p/lib/crypto/aes"
	"github.com/go-i2p/go-i2p/lib/transport/ntcp/iface"
	"github.com/stretchr/testify/require"
)

func newLoopbackPair(t *testing.T) (clientConn, serverConn net.Conn) {
	t.Helper()
	clientConn, serverConn = net.Pipe()
	return
}

func newStreams(t *testing.T) (enc, dec *aescrypt.StreamState) {
	t.Helper()
	key := make([]byte, 32)
	iv := make([]byte, 16)
	for i := range key {
		key[i] = byte(i + 1)
	}
	enc, err := aescrypt.NewEncryptStream(key, iv)
	require.NoError(t, err)
	dec, err = aescrypt.NewDecryptStream(key, iv)
	require.NoError(t, err)
	return enc, dec
}

// TestConnectedOrdersAnnouncementBeforeDeferred verifies spec.md scenario 8:
// a message submitted before Established is deferred, then Connected sends
// the identity announcement first and the deferred message second.
func TestConnectedOrdersAnnouncementBeforeDeferred(t *testing.T) {
	clientConn, serverConn := newLoopbackPair(t)
	defer clientConn.Close()
	defer serverConn.Close()

	encA, decA := newStreams(t)
	encB, decB := newStreams(t)

	var received [][]byte
	recvDone := make(chan struct{})
	serverFactory := &iface.BufferMessageFactory{
		MessageSize: 128,
		OnMessage: func(m iface.Message) {
			buf := append([]byte{}, m.Buf()[m.Offset():m.Offset()+m.Len()]...)
			received = append(received, buf)
			if len(received) == 2 {
				close(recvDone)
			}
		},
	}
	serverReg := NewRegistry()
	serverSess := New("server", serverConn, encB, decA, serverFactory, serverReg)
	go serverSess.ReceiveLoop()

	announceCalled := false
	clientFactory := &iface.BufferMessageFactory{
		MessageSize: 128,
		DBStore: func() iface.Message {
			announceCalled = true
			m := iface.NewBufferMessage(128)
			copy(m.Buf()[2:], []byte("announce"))
			m.SetOffset(2)
			m.SetLen(len("announce"))
			return m
		},
	}
	clientReg := NewRegistry()
	clientSess := New("client", clientConn, encA, decB, clientFactory, clientReg)

	deferredMsg := iface.NewBufferMessage(128)
	copy(deferredMsg.Buf()[2:], []byte("deferred"))
	deferredMsg.SetOffset(2)
	deferredMsg.SetLen(len("deferred"))
	require.NoError(t, clientSess.Submit(deferredMsg))
	require.False(t, clientSess.Established())

	require.NoError(t, clientSess.Connected())
	require.True(t, announceCalled)
	require.True(t, clientSess.Established())
	require.Equal(t, 1, clientReg.Len())

	select {
	case <-recvDone:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for both messages")
	}

	require.Equal(t, []byte("announce"), received[0])
	require.Equal(t, []byte("deferred"), received[1])
}

func TestSendTimeSyncProducesNoInnerMessage(t *testing.T) {
	clientConn, serverConn := newLoopbackPair(t)
	defer clientConn.Close()
	defer serverConn.Close()

	encA, decA := newStreams(t)
	encB, decB := newStreams(t)

	var gotMessage bool
	serverFactory := &iface.BufferMessageFactory{
		MessageSize: 64,
		OnMessage:   func(iface.Message) { gotMessage = true },
	}
	serverReg := NewRegistry()
	serverSess := New("server", serverConn, encB, decA, serverFactory, serverReg)
	done := make(chan struct{})
	go func() {
		serverSess.ReceiveLoop()
		close(done)
	}()

	clientFactory := &iface.BufferMessageFactory{MessageSize: 64}
	clientReg := NewRegistry()
	clientSess := New("client", clientConn, encA, decB, clientFactory, clientReg)

	require.NoError(t, clientSess.SendTimeSync())
	clientConn.Close()

	<-done
	require.False(t, gotMessage)
}

func TestTerminateIsIdempotent(t *testing.T) {
	clientConn, serverConn := newLoopbackPair(t)
	defer serverConn.Close()

	encA, decA := newStreams(t)
	factory := &iface.BufferMessageFactory{MessageSize: 64}
	reg := NewRegistry()
	sess := New("x", clientConn, encA, decA, factory, reg)
	reg.Add("x", sess)

	sess.Terminate()
	require.Equal(t, 0, reg.Len())
	require.NotPanics(t, func() { sess.Terminate() })
}

func TestSubmitDropsSecondDeferredMessage(t *testing.T) {
	clientConn, serverConn := newLoopbackPair(t)
	defer clientConn.Close()
	defer serverConn.Close()

	encA, decA := newStreams(t)
	factory := &iface.BufferMessageFactory{MessageSize: 64}
	reg := NewRegistry()
	sess := New("y", clientConn, encA, decA, factory, reg)

	m1 := iface.NewBufferMessage(64)
	m1.SetOffset(2)
	m1.SetLen(4)
	m2 := iface.NewBufferMessage(64)
	m2.SetOffset(2)
	m2.SetLen(4)

	require.NoError(t, sess.Submit(m1))
	require.Error(t, sess.Submit(m2))
}

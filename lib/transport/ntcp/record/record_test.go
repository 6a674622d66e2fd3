package record

import (
	"testing"
	"time"

	aescrypt "github.com/go-i2p/go-i2p/lib/crypto/aes"
	"github.com/go-i2p/go-i2p/lib/transport/ntcp/iface"
	"github.com/stretchr/testify/require"
)

func newStreamPair(t *testing.T) (enc, dec *aescrypt.StreamState) {
	t.Helper()
	key := make([]byte, 32)
	iv := make([]byte, 16)
	for i := range key {
		key[i] = byte(i)
	}
	for i := range iv {
		iv[i] = byte(i * 2)
	}
	enc, err := aescrypt.NewEncryptStream(key, iv)
	require.NoError(t, err)
	dec, err = aescrypt.NewDecryptStream(key, iv)
	require.NoError(t, err)
	return enc, dec
}

func feedAll(t *testing.T, r *Reassembler, ciphertext []byte) iface.Message {
	t.Helper()
	var got iface.Message
	for off := 0; off < len(ciphertext); off += 16 {
		msg, err := r.FeedBlock(ciphertext[off : off+16])
		require.NoError(t, err)
		if msg != nil {
			got = msg
		}
	}
	return got
}

func TestSendReceiveRoundTrip(t *testing.T) {
	enc, dec := newStreamPair(t)
	sender := NewSender(enc)

	payload := []byte("hello mix network, this is a 36B msg")
	msg := iface.NewBufferMessage(64)
	copy(msg.Buf()[2:], payload)
	msg.SetOffset(2)
	msg.SetLen(len(payload))

	frame, err := sender.FrameMessage(msg)
	require.NoError(t, err)
	require.Zero(t, len(frame)%16)

	factory := &iface.BufferMessageFactory{MessageSize: 64}
	reassembler := NewReassembler(dec, factory)
	got := feedAll(t, reassembler, frame)
	require.NotNil(t, got)

	require.Equal(t, payload, got.Buf()[got.Offset():got.Offset()+got.Len()])
}

func TestKeepAliveProducesNoMessage(t *testing.T) {
	enc, dec := newStreamPair(t)
	sender := NewSender(enc)

	frame, err := sender.FrameKeepAlive(time.Unix(1700000000, 0))
	require.NoError(t, err)
	require.Len(t, frame, 16)

	factory := &iface.BufferMessageFactory{MessageSize: 64}
	reassembler := NewReassembler(dec, factory)
	msg := feedAll(t, reassembler, frame)
	require.Nil(t, msg)
}

func TestCorruptedChecksumTerminates(t *testing.T) {
	enc, dec := newStreamPair(t)
	sender := NewSender(enc)

	msg := iface.NewBufferMessage(64)
	copy(msg.Buf()[2:], []byte("short"))
	msg.SetOffset(2)
	msg.SetLen(5)
	frame, err := sender.FrameMessage(msg)
	require.NoError(t, err)

	frame[len(frame)-1] ^= 0xFF // corrupt the adler-32 trailer ciphertext

	factory := &iface.BufferMessageFactory{MessageSize: 64}
	reassembler := NewReassembler(dec, factory)

	var lastErr error
	for off := 0; off < len(frame); off += 16 {
		_, err := reassembler.FeedBlock(frame[off : off+16])
		if err != nil {
			lastErr = err
		}
	}
	require.Error(t, lastErr)
}

func TestFrameMessageRejectsBadOffset(t *testing.T) {
	enc, _ := newStreamPair(t)
	sender := NewSender(enc)
	msg := iface.NewBufferMessage(64)
	msg.SetOffset(1)
	msg.SetLen(5)
	_, err := sender.FrameMessage(msg)
	require.Error(t, err)
}

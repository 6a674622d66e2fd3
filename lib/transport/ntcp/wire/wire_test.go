package wire

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPhase1RoundTrip(t *testing.T) {
	p := &Phase1{}
	for i := range p.PubKey {
		p.PubKey[i] = byte(i)
	}
	for i := range p.HXxorHI {
		p.HXxorHI[i] = byte(255 - i)
	}
	buf := p.Marshal()
	require.Len(t, buf, Phase1Size)

	got, err := UnmarshalPhase1(buf)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestUnmarshalPhase1RejectsBadLength(t *testing.T) {
	_, err := UnmarshalPhase1(make([]byte, Phase1Size-1))
	require.Error(t, err)
}

func TestPhase2PlainRoundTrip(t *testing.T) {
	p := &Phase2Plain{Timestamp: 1234567890}
	for i := range p.HXY {
		p.HXY[i] = byte(i * 3)
	}
	for i := range p.Filler {
		p.Filler[i] = byte(i + 1)
	}
	got, err := UnmarshalPhase2Plain(p.Marshal())
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestPhase3PlainRoundTrip(t *testing.T) {
	p := &Phase3Plain{Ident: []byte("a fake router identity struct"), Timestamp: 42}
	for i := range p.Signature {
		p.Signature[i] = byte(i)
	}
	buf := PadToBlock(p.Marshal(), 16)
	require.Zero(t, len(buf)%16)

	got, err := UnmarshalPhase3Plain(buf)
	require.NoError(t, err)
	require.Equal(t, p.Ident, got.Ident)
	require.Equal(t, p.Timestamp, got.Timestamp)
	require.Equal(t, p.Signature, got.Signature)
}

func TestFramePadding(t *testing.T) {
	cases := []struct {
		size int
		want int
	}{
		{14, 12}, // 14+2+12+4 = 32
		{10, 0},  // 10+2+0+4 = 16
	}
	for _, c := range cases {
		got := FramePadding(c.size)
		require.Equal(t, c.want, got, "size=%d", c.size)
		total := c.size + 2 + got + 4
		require.Zero(t, total%16)
	}
}

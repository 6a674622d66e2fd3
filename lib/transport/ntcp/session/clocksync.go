package session

import (
	"sync"

	"github.com/go-i2p/go-i2p/lib/transport/ntcp/handshake"
	ntcp2handshake "github.com/go-i2p/go-i2p/lib/transport/ntcp2/handshake"
	"github.com/go-i2p/go-i2p/lib/util/time/sntp"
)

var clockSyncOnce sync.Once

// startClockSync launches the process-wide background NTP timestamper the
// first time any session reaches Established, and attaches both handshake
// packages' Clock values as listeners so tsA/tsB and keep-alive frames
// (spec.md §4.6 scenario 6) track NTP-disciplined time instead of raw system
// time. Safe to call from every Connected call; only the first does anything.
func startClockSync() {
	clockSyncOnce.Do(func() {
		rt := sntp.NewRouterTimestamper(&sntp.DefaultNTPClient{})
		rt.AddListener(handshake.Clock)
		rt.AddListener(ntcp2handshake.Clock)
		rt.Start()
		log.Debug("started NTP clock sync for handshake timestamps")
	})
}

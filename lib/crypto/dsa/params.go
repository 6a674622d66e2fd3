package dsa

import (
	"crypto/dsa"
	"crypto/rand"
	"sync"

	"github.com/samber/oops"
)

// groupParams holds the DSA-1024 domain parameters (p, q, g) shared by every
// router in the overlay. NTCP v1 Phase3/Phase4 signatures are only
// meaningful between peers that agree on the same group, so the group is
// fixed once per process rather than generated per key.
var (
	groupParams dsa.Parameters
	groupOnce   sync.Once
	groupErr    error
)

// groupParameters returns the shared 1024-bit/160-bit DSA domain parameters,
// generating them on first use and caching the result for the life of the
// process.
func groupParameters() (dsa.Parameters, error) {
	groupOnce.Do(func() {
		var p dsa.Parameters
		if err := dsa.GenerateParameters(&p, rand.Reader, dsa.L1024N160); err != nil {
			groupErr = oops.Errorf("failed to generate DSA-1024 group parameters: %w", err)
			return
		}
		groupParams = p
	})
	return groupParams, groupErr
}

package compiler

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var ids = newIDGenerator()

// idGenerator hands out monotonic ULIDs. MonotonicEntropy is not safe for
// concurrent use, hence the mutex.
type idGenerator struct {
	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func newIDGenerator() *idGenerator {
	return &idGenerator{entropy: ulid.Monotonic(rand.Reader, 0)}
}

func (g *idGenerator) next() ulid.ULID {
	g.mu.Lock()
	defer g.mu.Unlock()

	id, err := ulid.New(ulid.Timestamp(time.Now()), g.entropy)
	if err != nil {
		// Entropy overflow within one millisecond.
		return ulid.Make()
	}
	return id
}

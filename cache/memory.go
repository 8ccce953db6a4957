package cache

import (
	"sync"
	"sync/atomic"

	"github.com/Konsultn-Engineering/fastprop/compiler"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// Memory is an unbounded cache. Entries are never removed, which suits the
// usual case of a fixed set of types and property names per process.
type Memory struct {
	entries sync.Map // map[Key]*compiler.Accessors
	size    atomic.Int64
	group   singleflight.Group

	log   logrus.FieldLogger
	stats *counters
}

var _ AccessorCache = (*Memory)(nil)

// New returns an empty unbounded cache.
func New(opts ...Option) *Memory {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	return &Memory{
		log:   o.logger,
		stats: newCounters(o),
	}
}

func (c *Memory) GetOrCreate(key Key, factory Factory) (*compiler.Accessors, error) {
	if a, ok := c.entries.Load(key); ok {
		c.stats.hit()
		return a.(*compiler.Accessors), nil
	}
	c.stats.miss()

	v, err, _ := c.group.Do(key.flightKey(), func() (any, error) {
		// A previous flight may have finished between Load and Do.
		if a, ok := c.entries.Load(key); ok {
			return a, nil
		}
		a, err := factory()
		if err != nil {
			c.stats.failed()
			logFailure(c.log, key, err)
			return nil, err
		}
		c.stats.synthesized()

		actual, loaded := c.entries.LoadOrStore(key, a)
		if !loaded {
			c.size.Add(1)
			logSynthesis(c.log, key, a)
		}
		return actual, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*compiler.Accessors), nil
}

// Peek returns the stored pair without counting a lookup.
func (c *Memory) Peek(key Key) (*compiler.Accessors, bool) {
	a, ok := c.entries.Load(key)
	if !ok {
		return nil, false
	}
	return a.(*compiler.Accessors), true
}

func (c *Memory) Len() int {
	return int(c.size.Load())
}

func (c *Memory) Stats() Stats {
	return c.stats.snapshot()
}

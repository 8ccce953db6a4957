package cache

import (
	"github.com/Konsultn-Engineering/fastprop/compiler"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// LRU is a bounded cache that drops the least recently used pair when full.
// Eviction only forgets the entry: facades that already hold the pair keep
// using it, and the next lookup synthesizes a new one.
type LRU struct {
	entries *lru.Cache[Key, *compiler.Accessors]
	group   singleflight.Group

	log     logrus.FieldLogger
	stats   *counters
	onEvict func(Key, *compiler.Accessors)
}

var _ AccessorCache = (*LRU)(nil)

// NewLRU returns a cache holding at most size pairs. size must be positive.
func NewLRU(size int, opts ...Option) (*LRU, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}
	c := &LRU{
		log:     o.logger,
		stats:   newCounters(o),
		onEvict: o.onEvict,
	}
	entries, err := lru.NewWithEvict(size, c.evicted)
	if err != nil {
		return nil, errors.Wrapf(err, "create accessor cache of size %d", size)
	}
	c.entries = entries
	return c, nil
}

func (c *LRU) GetOrCreate(key Key, factory Factory) (*compiler.Accessors, error) {
	if a, ok := c.entries.Get(key); ok {
		c.stats.hit()
		return a, nil
	}
	c.stats.miss()

	v, err, _ := c.group.Do(key.flightKey(), func() (any, error) {
		if a, ok := c.entries.Peek(key); ok {
			return a, nil
		}
		a, err := factory()
		if err != nil {
			c.stats.failed()
			logFailure(c.log, key, err)
			return nil, err
		}
		c.stats.synthesized()

		if previous, ok, _ := c.entries.PeekOrAdd(key, a); ok {
			return previous, nil
		}
		logSynthesis(c.log, key, a)
		return a, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*compiler.Accessors), nil
}

func (c *LRU) evicted(key Key, a *compiler.Accessors) {
	c.stats.evicted()
	c.log.WithFields(logrus.Fields{
		"type":      key.Type,
		"property":  key.Name,
		"synthesis": a.ID,
	}).Debug("accessor evicted")
	if c.onEvict != nil {
		c.onEvict(key, a)
	}
}

// Purge drops every entry, calling the eviction callback for each.
func (c *LRU) Purge() {
	c.entries.Purge()
}

func (c *LRU) Len() int {
	return c.entries.Len()
}

func (c *LRU) Stats() Stats {
	return c.stats.snapshot()
}

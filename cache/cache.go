// Package cache stores compiled accessor pairs by Key. Lookups for a key
// that is already present never call the factory; concurrent misses for the
// same key share a single factory call.
package cache

import (
	"sync"

	"github.com/Konsultn-Engineering/fastprop/compiler"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// Factory produces the accessor pair for a key on a miss. Its error is
// returned to every caller waiting on that miss and is not cached.
type Factory func() (*compiler.Accessors, error)

// AccessorCache maps property keys to synthesized accessor pairs.
type AccessorCache interface {
	// GetOrCreate returns the pair stored under key, calling factory only
	// when none is stored. At most one pair is ever installed per key.
	GetOrCreate(key Key, factory Factory) (*compiler.Accessors, error)
	Len() int
	Stats() Stats
}

// Stats is a snapshot of cache activity.
type Stats struct {
	Hits      uint64
	Misses    uint64
	Syntheses uint64 // factory calls that produced a pair
	Failures  uint64 // factory calls that returned an error
	Evictions uint64
}

// Option configures a cache.
type Option func(*options)

type options struct {
	logger     logrus.FieldLogger
	registerer prometheus.Registerer
	onEvict    func(Key, *compiler.Accessors)
}

func defaultOptions() *options {
	return &options{logger: logrus.StandardLogger()}
}

// WithLogger sets the logger for synthesis and eviction events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics registers the cache counters with reg. Caches sharing a
// registerer share the counters.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(o *options) { o.registerer = reg }
}

// WithEvictionCallback is called for every entry a bounded cache drops.
func WithEvictionCallback(fn func(Key, *compiler.Accessors)) Option {
	return func(o *options) { o.onEvict = fn }
}

var defaultCache = sync.OnceValue(func() AccessorCache { return New() })

// Default returns the process-wide cache used when no cache is injected.
func Default() AccessorCache {
	return defaultCache()
}

func logSynthesis(l logrus.FieldLogger, key Key, a *compiler.Accessors) {
	l.WithFields(logrus.Fields{
		"type":      key.Type,
		"property":  key.Name,
		"source":    a.Property.Source,
		"synthesis": a.ID,
	}).Debug("accessor synthesized")
}

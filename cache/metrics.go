package cache

import (
	"sync/atomic"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// counters tracks Stats locally and mirrors them to Prometheus when the
// cache was built WithMetrics.
type counters struct {
	hits      atomic.Uint64
	misses    atomic.Uint64
	syntheses atomic.Uint64
	failures  atomic.Uint64
	evictions atomic.Uint64

	prom *promCounters
}

type promCounters struct {
	lookups   *prometheus.CounterVec
	syntheses prometheus.Counter
	failures  prometheus.Counter
	evictions prometheus.Counter
}

func newCounters(o *options) *counters {
	c := &counters{}
	if o.registerer != nil {
		p, err := newPromCounters(o.registerer)
		if err != nil {
			o.logger.WithError(err).Warn("accessor cache metrics disabled")
		} else {
			c.prom = p
		}
	}
	return c
}

func newPromCounters(reg prometheus.Registerer) (*promCounters, error) {
	p := &promCounters{
		lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "fastprop",
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Accessor cache lookups by result.",
		}, []string{"result"}),
		syntheses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fastprop",
			Subsystem: "cache",
			Name:      "syntheses_total",
			Help:      "Accessor pairs synthesized on cache misses.",
		}),
		failures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fastprop",
			Subsystem: "cache",
			Name:      "synthesis_failures_total",
			Help:      "Cache misses whose synthesis returned an error.",
		}),
		evictions: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "fastprop",
			Subsystem: "cache",
			Name:      "evictions_total",
			Help:      "Accessor pairs dropped by a bounded cache.",
		}),
	}

	var err error
	if p.lookups, err = register(reg, p.lookups); err != nil {
		return nil, err
	}
	if p.syntheses, err = register(reg, p.syntheses); err != nil {
		return nil, err
	}
	if p.failures, err = register(reg, p.failures); err != nil {
		return nil, err
	}
	if p.evictions, err = register(reg, p.evictions); err != nil {
		return nil, err
	}
	return p, nil
}

// register adds c to reg, or returns the collector already registered under
// the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}
	return c, errors.Wrap(err, "register accessor cache metrics")
}

func (c *counters) hit() {
	c.hits.Add(1)
	if c.prom != nil {
		c.prom.lookups.WithLabelValues("hit").Inc()
	}
}

func (c *counters) miss() {
	c.misses.Add(1)
	if c.prom != nil {
		c.prom.lookups.WithLabelValues("miss").Inc()
	}
}

func (c *counters) synthesized() {
	c.syntheses.Add(1)
	if c.prom != nil {
		c.prom.syntheses.Inc()
	}
}

func (c *counters) failed() {
	c.failures.Add(1)
	if c.prom != nil {
		c.prom.failures.Inc()
	}
}

func (c *counters) evicted() {
	c.evictions.Add(1)
	if c.prom != nil {
		c.prom.evictions.Inc()
	}
}

func (c *counters) snapshot() Stats {
	return Stats{
		Hits:      c.hits.Load(),
		Misses:    c.misses.Load(),
		Syntheses: c.syntheses.Load(),
		Failures:  c.failures.Load(),
		Evictions: c.evictions.Load(),
	}
}

func logFailure(l logrus.FieldLogger, key Key, err error) {
	l.WithError(err).WithField("key", key.String()).Debug("accessor synthesis failed")
}

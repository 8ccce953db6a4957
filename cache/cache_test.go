package cache

import (
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Konsultn-Engineering/fastprop/compiler"
	"github.com/Konsultn-Engineering/fastprop/schema"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type Widget struct {
	ID    int
	Name  string
	Color string
}

type Gadget struct {
	ID int
}

func build(t reflect.Type, name string) Factory {
	return func() (*compiler.Accessors, error) {
		return compiler.Build(t, name, schema.DefaultOptions())
	}
}

func countingFactory(calls *atomic.Int32, f Factory) Factory {
	return func() (*compiler.Accessors, error) {
		calls.Add(1)
		return f()
	}
}

func caches(t *testing.T) map[string]func(...Option) AccessorCache {
	t.Helper()
	return map[string]func(...Option) AccessorCache{
		"Memory": func(opts ...Option) AccessorCache { return New(opts...) },
		"LRU": func(opts ...Option) AccessorCache {
			c, err := NewLRU(64, opts...)
			require.NoError(t, err)
			return c
		},
	}
}

// =========================================================================
// Key Tests
// =========================================================================

func TestNewKeyNormalizesPointers(t *testing.T) {
	a := NewKey(reflect.TypeOf(Widget{}), "ID", schema.DefaultOptions())
	b := NewKey(reflect.TypeOf(&Widget{}), "ID", schema.DefaultOptions())
	assert.Equal(t, a, b)
	assert.Equal(t, a.flightKey(), b.flightKey())
	assert.Equal(t, "cache.Widget.ID", a.String())

	snake := schema.DefaultOptions()
	snake.Naming = schema.NamingSnakeCase
	c := NewKey(reflect.TypeOf(Widget{}), "ID", snake)
	assert.NotEqual(t, a, c)
	assert.NotEqual(t, a.flightKey(), c.flightKey())
	assert.Contains(t, c.String(), "snake_case")
}

func TestFlightKeyDistinguishesSameNamedTypes(t *testing.T) {
	first := func() reflect.Type {
		type local struct{ X int }
		return reflect.TypeOf(local{})
	}()
	second := func() reflect.Type {
		type local struct{ X int }
		return reflect.TypeOf(local{})
	}()
	require.Equal(t, first.String(), second.String())

	a := NewKey(first, "X", schema.DefaultOptions())
	b := NewKey(second, "X", schema.DefaultOptions())
	assert.NotEqual(t, a.flightKey(), b.flightKey())

	tagA := Key{Type: first, Name: "b|c", Options: schema.Options{TagName: "a"}}
	tagB := Key{Type: first, Name: "c", Options: schema.Options{TagName: "a|b"}}
	assert.NotEqual(t, tagA.flightKey(), tagB.flightKey())
}

// =========================================================================
// Cache Behaviour Tests
// =========================================================================

func TestGetOrCreate(t *testing.T) {
	for name, newCache := range caches(t) {
		t.Run(name, func(t *testing.T) {
			c := newCache()
			key := NewKey(reflect.TypeOf(Widget{}), "Name", schema.DefaultOptions())
			var calls atomic.Int32
			factory := countingFactory(&calls, build(key.Type, key.Name))

			first, err := c.GetOrCreate(key, factory)
			require.NoError(t, err)
			second, err := c.GetOrCreate(key, factory)
			require.NoError(t, err)

			assert.Same(t, first, second)
			assert.Equal(t, first.ID, second.ID)
			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, 1, c.Len())
			assert.Equal(t, Stats{Hits: 1, Misses: 1, Syntheses: 1}, c.Stats())
		})
	}
}

func TestErrorsAreNotCached(t *testing.T) {
	for name, newCache := range caches(t) {
		t.Run(name, func(t *testing.T) {
			c := newCache()
			key := NewKey(reflect.TypeOf(Widget{}), "Missing", schema.DefaultOptions())
			var calls atomic.Int32
			factory := countingFactory(&calls, build(key.Type, key.Name))

			_, err := c.GetOrCreate(key, factory)
			assert.ErrorIs(t, err, schema.ErrPropertyNotFound)
			_, err = c.GetOrCreate(key, factory)
			assert.ErrorIs(t, err, schema.ErrPropertyNotFound)

			assert.Equal(t, int32(2), calls.Load())
			assert.Equal(t, 0, c.Len())
			stats := c.Stats()
			assert.Equal(t, uint64(2), stats.Failures)
			assert.Equal(t, uint64(0), stats.Syntheses)
		})
	}
}

func TestConcurrentMissesSynthesizeOnce(t *testing.T) {
	for name, newCache := range caches(t) {
		t.Run(name, func(t *testing.T) {
			c := newCache()
			key := NewKey(reflect.TypeOf(Widget{}), "ID", schema.DefaultOptions())

			var calls atomic.Int32
			slow := func() (*compiler.Accessors, error) {
				calls.Add(1)
				time.Sleep(10 * time.Millisecond)
				return compiler.Build(key.Type, key.Name, schema.DefaultOptions())
			}

			const goroutines = 100
			results := make([]*compiler.Accessors, goroutines)
			var wg sync.WaitGroup
			start := make(chan struct{})
			for i := 0; i < goroutines; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					<-start
					a, err := c.GetOrCreate(key, slow)
					assert.NoError(t, err)
					results[i] = a
				}(i)
			}
			close(start)
			wg.Wait()

			assert.Equal(t, int32(1), calls.Load())
			assert.Equal(t, uint64(1), c.Stats().Syntheses)
			for _, a := range results {
				assert.Same(t, results[0], a)
			}
		})
	}
}

func TestDistinctKeysDoNotShare(t *testing.T) {
	c := New()
	widget := NewKey(reflect.TypeOf(Widget{}), "ID", schema.DefaultOptions())
	gadget := NewKey(reflect.TypeOf(Gadget{}), "ID", schema.DefaultOptions())

	a, err := c.GetOrCreate(widget, build(widget.Type, widget.Name))
	require.NoError(t, err)
	b, err := c.GetOrCreate(gadget, build(gadget.Type, gadget.Name))
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, reflect.TypeOf(Widget{}), a.Property.Owner)
	assert.Equal(t, reflect.TypeOf(Gadget{}), b.Property.Owner)
	assert.Equal(t, 2, c.Len())

	peeked, ok := c.Peek(widget)
	require.True(t, ok)
	assert.Same(t, a, peeked)
	assert.Equal(t, uint64(0), c.Stats().Hits)
}

func TestDefaultIsShared(t *testing.T) {
	assert.Same(t, Default(), Default())
}

// =========================================================================
// LRU Tests
// =========================================================================

func TestLRUEviction(t *testing.T) {
	var evicted []Key
	c, err := NewLRU(2, WithEvictionCallback(func(k Key, _ *compiler.Accessors) {
		evicted = append(evicted, k)
	}))
	require.NoError(t, err)

	typ := reflect.TypeOf(Widget{})
	id := NewKey(typ, "ID", schema.DefaultOptions())
	name := NewKey(typ, "Name", schema.DefaultOptions())
	color := NewKey(typ, "Color", schema.DefaultOptions())

	first, err := c.GetOrCreate(id, build(typ, "ID"))
	require.NoError(t, err)
	_, err = c.GetOrCreate(name, build(typ, "Name"))
	require.NoError(t, err)
	_, err = c.GetOrCreate(color, build(typ, "Color"))
	require.NoError(t, err)

	assert.Equal(t, 2, c.Len())
	assert.Equal(t, []Key{id}, evicted)
	assert.Equal(t, uint64(1), c.Stats().Evictions)

	again, err := c.GetOrCreate(id, build(typ, "ID"))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, again.ID, "evicted keys are synthesized again")

	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestNewLRUInvalidSize(t *testing.T) {
	_, err := NewLRU(0)
	assert.Error(t, err)
}

// =========================================================================
// Observability Tests
// =========================================================================

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := New(WithMetrics(reg))
	// A second cache on the same registry shares the counters.
	other := New(WithMetrics(reg))

	key := NewKey(reflect.TypeOf(Widget{}), "ID", schema.DefaultOptions())
	_, err := c.GetOrCreate(key, build(key.Type, key.Name))
	require.NoError(t, err)
	_, err = c.GetOrCreate(key, build(key.Type, key.Name))
	require.NoError(t, err)
	_, err = other.GetOrCreate(key, build(key.Type, key.Name))
	require.NoError(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)

	values := map[string]float64{}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			name := mf.GetName()
			for _, l := range m.GetLabel() {
				name += "/" + l.GetValue()
			}
			values[name] = m.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, values["fastprop_cache_lookups_total/hit"])
	assert.Equal(t, 2.0, values["fastprop_cache_lookups_total/miss"])
	assert.Equal(t, 2.0, values["fastprop_cache_syntheses_total"])
}

func TestSynthesisIsLogged(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	c := New(WithLogger(logger))

	key := NewKey(reflect.TypeOf(Widget{}), "Color", schema.DefaultOptions())
	a, err := c.GetOrCreate(key, build(key.Type, key.Name))
	require.NoError(t, err)
	_, err = c.GetOrCreate(key, build(key.Type, key.Name))
	require.NoError(t, err)

	require.Len(t, hook.AllEntries(), 1)
	entry := hook.LastEntry()
	assert.Equal(t, "accessor synthesized", entry.Message)
	assert.Equal(t, "Color", entry.Data["property"])
	assert.Equal(t, a.ID, entry.Data["synthesis"])

	failing := NewKey(reflect.TypeOf(Widget{}), "Nope", schema.DefaultOptions())
	_, err = c.GetOrCreate(failing, func() (*compiler.Accessors, error) {
		return nil, errors.New("boom")
	})
	assert.EqualError(t, err, "boom")
	assert.Equal(t, "accessor synthesis failed", hook.LastEntry().Message)
}

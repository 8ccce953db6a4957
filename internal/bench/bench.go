// Package bench times property access through direct field access, fastprop
// accessors and plain reflection on sample.TestObject.
package bench

import (
	"fmt"
	"io"
	"reflect"
	"text/tabwriter"
	"time"

	"github.com/Konsultn-Engineering/fastprop"
	"github.com/Konsultn-Engineering/fastprop/internal/sample"
	"github.com/creasty/defaults"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Config selects what propbench measures.
type Config struct {
	Iterations int      `default:"1000000"`
	Properties []string `default:"[\"Int\",\"String\"]"`
	Debug      bool
}

// NewConfig returns a Config with defaults applied.
func NewConfig() (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, errors.Wrap(err, "apply benchmark defaults")
	}
	return cfg, nil
}

// Op is the timed operation, get or set.
type Op string

const (
	OpGet Op = "get"
	OpSet Op = "set"
)

// Result holds the timings of one operation on one property. A zero
// duration means the method does not apply to the property.
type Result struct {
	Property string
	Op       Op
	Direct   time.Duration
	Accessor time.Duration
	Reflect  time.Duration
}

// direct holds hand-written access for Int and String.
var direct = map[string]struct {
	get func(*sample.TestObject)
	set func(*sample.TestObject)
}{
	"Int": {
		get: func(o *sample.TestObject) { sinkInt = o.Int },
		set: func(o *sample.TestObject) { o.Int = 123 },
	},
	"String": {
		get: func(o *sample.TestObject) { sinkString = o.String },
		set: func(o *sample.TestObject) { o.String = "Test" },
	},
}

var (
	sinkInt    int
	sinkString string
	sinkAny    any
)

// Run times every configured property and returns the results in order.
func Run(cfg *Config, log logrus.FieldLogger) ([]Result, error) {
	if cfg.Iterations <= 0 {
		return nil, errors.Errorf("iterations must be positive, got %d", cfg.Iterations)
	}

	results := make([]Result, 0, 2*len(cfg.Properties))
	for _, name := range cfg.Properties {
		get, set, err := runProperty(cfg.Iterations, name)
		if err != nil {
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"property": name,
			"get":      get.Accessor,
			"set":      set.Accessor,
		}).Debug("property benchmarked")
		results = append(results, get, set)
	}
	return results, nil
}

func runProperty(n int, name string) (Result, Result, error) {
	get := Result{Property: name, Op: OpGet}
	set := Result{Property: name, Op: OpSet}

	obj := sample.New()
	acc, err := fastprop.For[sample.TestObject](name)
	if err != nil {
		return get, set, errors.Wrapf(err, "benchmark %s", name)
	}

	if d, ok := direct[name]; ok {
		get.Direct = timeIt(n, func() { d.get(obj) })
		set.Direct = timeIt(n, func() { d.set(obj) })
	}

	if acc.CanRead() {
		get.Accessor = timeIt(n, func() { _, _ = acc.Get(obj) })
	}
	if acc.CanRead() && acc.CanWrite() {
		current, err := acc.Get(obj)
		if err != nil {
			return get, set, errors.Wrapf(err, "benchmark %s", name)
		}
		set.Accessor = timeIt(n, func() { _ = acc.Set(obj, current) })
	}

	if f, ok := reflect.TypeFor[sample.TestObject]().FieldByName(name); ok && f.IsExported() {
		rv := reflect.ValueOf(obj).Elem()
		get.Reflect = timeIt(n, func() { sinkAny = rv.FieldByName(name).Interface() })
		current := rv.FieldByIndex(f.Index)
		set.Reflect = timeIt(n, func() { rv.FieldByName(name).Set(current) })
	}

	return get, set, nil
}

func timeIt(n int, fn func()) time.Duration {
	start := time.Now()
	for i := 0; i < n; i++ {
		fn()
	}
	return time.Since(start)
}

// Print writes results as an aligned table with timings in milliseconds.
func Print(w io.Writer, iterations int, results []Result) error {
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', 0)
	fmt.Fprintf(tw, "%d iterations\n", iterations)
	fmt.Fprintln(tw, "PROPERTY\tOP\tDIRECT ms\tFASTPROP ms\tREFLECT ms")
	for _, r := range results {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.Property, r.Op, millis(r.Direct), millis(r.Accessor), millis(r.Reflect))
	}
	return tw.Flush()
}

func millis(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%.3f", float64(d)/float64(time.Millisecond))
}

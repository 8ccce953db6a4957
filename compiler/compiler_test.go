package compiler

import (
	"math"
	"reflect"
	"sync"
	"testing"
	"time"
	"unsafe"

	"github.com/Konsultn-Engineering/fastprop/schema"
	"github.com/Konsultn-Engineering/fastprop/value"
	"github.com/google/go-cmp/cmp"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/inf.v0"
)

// =========================================================================
// Test Data Structures
// =========================================================================

type priority int8

type scores []float64

type Header struct {
	Revision uint32
}

type Link struct {
	Target string
}

func (l Link) Host() string { return l.Target }

func (l *Link) SetHost(v string) { l.Target = v }

type Record struct {
	Header
	*Link

	Flag     bool
	Count    int
	Small    int8
	Medium   int16
	Char     rune
	Large    int64
	Word     uint
	Octet    byte
	Short    uint16
	Big      uint64
	Addr     uintptr
	Ratio    float32
	Weight   float64
	Name     string
	When     time.Time
	Timeout  time.Duration
	Price    *inf.Dec
	Items    []int
	Level    priority
	Scores   scores
	Frozen   string `prop:";readonly"`
	Password string `prop:";writeonly"`

	note string
}

func (r *Record) Note() string { return r.note }

func (r *Record) SetNote(v string) error {
	if v == "" {
		return errEmptyNote
	}
	r.note = v
	return nil
}

func (r *Record) Checksum() (uint64, error) {
	if r.Name == "" {
		return 0, errEmptyNote
	}
	return uint64(len(r.Name)), nil
}

var errEmptyNote = errors.New("empty note")

func compile(t *testing.T, name string) *Accessors {
	t.Helper()
	a, err := Build(reflect.TypeOf(Record{}), name, schema.DefaultOptions())
	require.NoError(t, err)
	require.NotNil(t, a)
	return a
}

func addr(r *Record) unsafe.Pointer { return unsafe.Pointer(r) }

// =========================================================================
// Field Accessor Tests
// =========================================================================

func TestFieldRoundTrip(t *testing.T) {
	when := time.Date(2005, 3, 6, 0, 0, 0, 0, time.UTC)
	price := inf.NewDec(987987981221, 4)
	items := []int{1, 2, 3}

	tests := []struct {
		property string
		in       value.Value
	}{
		{"Flag", value.Bool(true)},
		{"Count", value.Int(319)},
		{"Small", value.Int8(12)},
		{"Medium", value.Int16(-673)},
		{"Char", value.Rune('a')},
		{"Large", value.Int64(8798798798)},
		{"Word", value.Uint(42)},
		{"Octet", value.Byte(234)},
		{"Short", value.Uint16(511)},
		{"Big", value.Uint64(918297981798)},
		{"Addr", value.Uintptr(0xdead)},
		{"Ratio", value.Float32(123.12)},
		{"Weight", value.Float64(789.12)},
		{"Name", value.String("Test string.")},
		{"When", value.Time(when)},
		{"Timeout", value.Duration(90 * time.Second)},
		{"Price", value.Decimal(price)},
		{"Items", value.Sequence(items)},
		{"Level", value.Int8(3)},
		{"Scores", value.Sequence(scores{1.5})},
		{"Revision", value.Uint32(7)},
	}

	for _, tt := range tests {
		t.Run(tt.property, func(t *testing.T) {
			a := compile(t, tt.property)
			r := &Record{}

			require.NoError(t, a.Set(addr(r), tt.in))
			got, err := a.Get(addr(r))
			require.NoError(t, err)
			assert.True(t, tt.in.Equal(got), "got %v, want %v", got, tt.in)
		})
	}
}

func TestFieldWritesMemory(t *testing.T) {
	r := &Record{}

	require.NoError(t, compile(t, "Count").Set(addr(r), value.Int(319)))
	require.NoError(t, compile(t, "Name").Set(addr(r), value.String("Test")))
	require.NoError(t, compile(t, "Level").Set(addr(r), value.Int8(-2)))
	require.NoError(t, compile(t, "Scores").Set(addr(r), value.Sequence(scores{1, 2})))

	assert.Equal(t, 319, r.Count)
	assert.Equal(t, "Test", r.Name)
	assert.Equal(t, priority(-2), r.Level)
	assert.Empty(t, cmp.Diff(scores{1, 2}, r.Scores))
}

func TestFloatBitsPreserved(t *testing.T) {
	r := &Record{}
	a := compile(t, "Weight")

	nan := math.Float64frombits(0x7ff8000000000abc)
	require.NoError(t, a.Set(addr(r), value.Float64(nan)))
	assert.Equal(t, uint64(0x7ff8000000000abc), math.Float64bits(r.Weight))

	negZero := math.Copysign(0, -1)
	require.NoError(t, a.Set(addr(r), value.Float64(negZero)))
	got, err := a.Get(addr(r))
	require.NoError(t, err)
	assert.True(t, got.Equal(value.Float64(negZero)))
	assert.False(t, got.Equal(value.Float64(0)))
}

func TestReferencesAreShared(t *testing.T) {
	r := &Record{}
	price := inf.NewDec(1, 2)
	items := []int{1, 2, 3}

	require.NoError(t, compile(t, "Price").Set(addr(r), value.Decimal(price)))
	require.NoError(t, compile(t, "Items").Set(addr(r), value.Sequence(items)))

	assert.Same(t, price, r.Price)
	items[0] = 99
	assert.Equal(t, 99, r.Items[0])
}

func TestSetTypeMismatch(t *testing.T) {
	tests := []struct {
		property string
		in       value.Value
	}{
		{"Count", value.Int64(319)},
		{"Count", value.Value{}},
		{"Name", value.Int(1)},
		{"Char", value.Uint32('a')},
		{"Level", value.Int(3)},
		{"Items", value.Sequence([]int64{1})},
		{"Scores", value.Sequence([]float64{1})},
		{"Revision", value.Int32(7)},
	}

	for _, tt := range tests {
		t.Run(tt.property, func(t *testing.T) {
			r := &Record{Count: 5, Name: "keep", Char: 'x', Level: 1, Header: Header{Revision: 2}}
			before := *r

			err := compile(t, tt.property).Set(addr(r), tt.in)
			require.Error(t, err)
			assert.ErrorIs(t, err, schema.ErrTypeMismatch)
			assert.Equal(t, before, *r)
		})
	}
}

func TestEmbeddedPointer(t *testing.T) {
	a := compile(t, "Target")
	assert.False(t, a.Property.Direct())

	r := &Record{}
	_, err := a.Get(addr(r))
	assert.ErrorIs(t, err, schema.ErrTypeMismatch)
	assert.ErrorIs(t, a.Set(addr(r), value.String("x")), schema.ErrTypeMismatch)
	assert.Nil(t, r.Link, "nil embedded pointers are never allocated")

	r.Link = &Link{}
	require.NoError(t, a.Set(addr(r), value.String("home")))
	assert.Equal(t, "home", r.Link.Target)

	got, err := a.Get(addr(r))
	require.NoError(t, err)
	assert.True(t, got.Equal(value.String("home")))
}

func TestEmbeddedPointerMethod(t *testing.T) {
	a := compile(t, "Host")
	assert.Equal(t, schema.SourceMethod, a.Property.Source)

	r := &Record{}
	_, err := a.Get(addr(r))
	assert.ErrorIs(t, err, schema.ErrTypeMismatch)
	assert.ErrorIs(t, a.Set(addr(r), value.String("x")), schema.ErrTypeMismatch)
	assert.Nil(t, r.Link, "nil embedded pointers are never allocated")

	r.Link = &Link{}
	require.NoError(t, a.Set(addr(r), value.String("edge")))
	assert.Equal(t, "edge", r.Link.Target)

	got, err := a.Get(addr(r))
	require.NoError(t, err)
	assert.True(t, got.Equal(value.String("edge")))
}

func TestReadOnlyWriteOnly(t *testing.T) {
	r := &Record{Frozen: "ice", Password: "hunter2"}

	frozen := compile(t, "Frozen")
	got, err := frozen.Get(addr(r))
	require.NoError(t, err)
	assert.True(t, got.Equal(value.String("ice")))
	assert.ErrorIs(t, frozen.Set(addr(r), value.String("water")), schema.ErrPropertyNotWritable)
	assert.Equal(t, "ice", r.Frozen)

	password := compile(t, "Password")
	_, err = password.Get(addr(r))
	assert.ErrorIs(t, err, schema.ErrPropertyNotReadable)
	require.NoError(t, password.Set(addr(r), value.String("secret")))
	assert.Equal(t, "secret", r.Password)
}

// =========================================================================
// Method Accessor Tests
// =========================================================================

func TestMethodAccessors(t *testing.T) {
	r := &Record{}
	a := compile(t, "Note")
	assert.Equal(t, schema.SourceMethod, a.Property.Source)

	require.NoError(t, a.Set(addr(r), value.String("hello")))
	assert.Equal(t, "hello", r.note)

	got, err := a.Get(addr(r))
	require.NoError(t, err)
	assert.True(t, got.Equal(value.String("hello")))

	err = a.Set(addr(r), value.String(""))
	assert.ErrorIs(t, err, errEmptyNote)
	assert.Equal(t, "hello", r.note)

	err = a.Set(addr(r), value.Int(1))
	assert.ErrorIs(t, err, schema.ErrTypeMismatch)
}

func TestMethodGetterError(t *testing.T) {
	a := compile(t, "Checksum")
	assert.False(t, a.Property.CanWrite)

	_, err := a.Get(addr(&Record{}))
	assert.ErrorIs(t, err, errEmptyNote)

	var pe *schema.PropertyError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, "get", pe.Op)

	got, err := a.Get(addr(&Record{Name: "abc"}))
	require.NoError(t, err)
	assert.True(t, got.Equal(value.Uint64(3)))

	assert.ErrorIs(t, a.Set(addr(&Record{}), value.Uint64(1)), schema.ErrPropertyNotWritable)
}

// =========================================================================
// Registration Tests
// =========================================================================

type Point struct {
	x, y int
}

func TestRegister(t *testing.T) {
	require.NoError(t, Register("X",
		func(p *Point) int { return p.x },
		func(p *Point, v int) { p.x = v },
	))
	require.NoError(t, Register[Point, int]("Y", func(p *Point) int { return p.y }, nil))
	t.Cleanup(func() {
		Unregister[Point]("X")
		Unregister[Point]("Y")
	})

	x, err := Build(reflect.TypeOf(&Point{}), "X", schema.DefaultOptions())
	require.NoError(t, err)
	assert.Equal(t, schema.SourceRegistered, x.Property.Source)

	p := &Point{y: 4}
	require.NoError(t, x.Set(unsafe.Pointer(p), value.Int(3)))
	assert.Equal(t, 3, p.x)
	assert.ErrorIs(t, x.Set(unsafe.Pointer(p), value.Int64(3)), schema.ErrTypeMismatch)

	y, ok := Registered(reflect.TypeOf(Point{}), "Y")
	require.True(t, ok)
	got, err := y.Get(unsafe.Pointer(p))
	require.NoError(t, err)
	assert.True(t, got.Equal(value.Int(4)))
	assert.ErrorIs(t, y.Set(unsafe.Pointer(p), value.Int(1)), schema.ErrPropertyNotWritable)

	recompiled := Compile(x.Property)
	assert.NotEqual(t, x.ID, recompiled.ID)
	require.NoError(t, recompiled.Set(unsafe.Pointer(p), value.Int(8)))
	assert.Equal(t, 8, p.x)
}

func TestRegisterErrors(t *testing.T) {
	err := Register[int, int]("X", func(*int) int { return 0 }, nil)
	assert.ErrorIs(t, err, schema.ErrTypeMismatch)

	err = Register[Point, int]("", func(*Point) int { return 0 }, nil)
	assert.ErrorIs(t, err, schema.ErrPropertyNotFound)

	err = Register[Point, int]("Z", nil, nil)
	assert.ErrorIs(t, err, schema.ErrPropertyNotAccessible)

	err = Register[Point, map[int]int]("M", func(*Point) map[int]int { return nil }, nil)
	assert.ErrorIs(t, err, schema.ErrUnsupportedType)

	_, ok := Registered(reflect.TypeOf(Point{}), "Z")
	assert.False(t, ok)
}

func TestRegisterFieldType(t *testing.T) {
	type Tagged struct {
		Level priority
	}
	require.NoError(t, RegisterFieldType[priority]())
	t.Cleanup(func() { fieldCreators.Delete(reflect.TypeFor[priority]()) })

	a, err := Build(reflect.TypeOf(Tagged{}), "Level", schema.DefaultOptions())
	require.NoError(t, err)

	v := &Tagged{}
	require.NoError(t, a.Set(unsafe.Pointer(v), value.Int8(5)))
	assert.Equal(t, priority(5), v.Level)

	assert.ErrorIs(t, RegisterFieldType[map[string]int](), schema.ErrUnsupportedType)
}

// =========================================================================
// Identity and Concurrency Tests
// =========================================================================

func TestCompileAssignsDistinctIDs(t *testing.T) {
	p, err := schema.Resolve(reflect.TypeOf(Record{}), "Count", schema.DefaultOptions())
	require.NoError(t, err)

	const n = 64
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[ulid.ULID]struct{}, n)
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := Compile(p).ID
			mu.Lock()
			seen[id] = struct{}{}
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, n)
}

func TestConcurrentAccess(t *testing.T) {
	count := compile(t, "Count")
	name := compile(t, "Name")

	const goroutines = 16
	records := make([]*Record, goroutines)
	var wg sync.WaitGroup
	start := make(chan struct{})

	for i := range records {
		records[i] = &Record{}
		wg.Add(1)
		go func(r *Record, i int) {
			defer wg.Done()
			<-start
			for j := 0; j < 1000; j++ {
				_ = count.Set(addr(r), value.Int(i*1000+j))
				_ = name.Set(addr(r), value.String("worker"))
				_, _ = count.Get(addr(r))
			}
		}(records[i], i)
	}
	close(start)
	wg.Wait()

	for i, r := range records {
		assert.Equal(t, i*1000+999, r.Count)
		assert.Equal(t, "worker", r.Name)
	}
}

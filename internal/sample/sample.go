// Package sample holds the object used by benchmarks and cross-package tests.
package sample

import (
	"time"

	"gopkg.in/inf.v0"
)

const (
	Integer = 319
	String  = "Test string."
	Sbyte   = int8(12)
	Byte    = byte(234)
	Char    = 'a'
	Short   = int16(-673)
	UShort  = uint16(511)
	Long    = int64(8798798798)
	ULong   = uint64(918297981798)
	Bool    = false
	Double  = 789.12
	Float   = float32(123.12)
)

var (
	DateTime = time.Date(2005, 3, 6, 0, 0, 0, 0, time.UTC)
	Array    = []int{1, 2, 3}
)

// Decimal returns a fresh 98798798.1221.
func Decimal() *inf.Dec {
	return inf.NewDec(987987981221, 4)
}

// TestObject has one property of every supported kind.
type TestObject struct {
	Int      int
	String   string
	Bool     bool
	Byte     byte
	Char     rune
	DateTime time.Time
	Decimal  *inf.Dec
	Double   float64
	Float    float32
	Long     int64
	Sbyte    int8
	Short    int16
	ULong    uint64
	UShort   uint16
	UInt     uint32
	Ptr      uintptr
	Elapsed  time.Duration
	List     []int

	label string
}

// Label is exposed as a method property.
func (o *TestObject) Label() string { return o.label }

func (o *TestObject) SetLabel(v string) { o.label = v }

// New returns a TestObject populated with the benchmark constants.
func New() *TestObject {
	return &TestObject{
		Int:      Integer,
		String:   String,
		Bool:     Bool,
		Byte:     Byte,
		Char:     Char,
		DateTime: DateTime,
		Decimal:  Decimal(),
		Double:   Double,
		Float:    Float,
		Long:     Long,
		Sbyte:    Sbyte,
		Short:    Short,
		ULong:    ULong,
		UShort:   UShort,
		List:     append([]int(nil), Array...),
	}
}

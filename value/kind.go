package value

import (
	"reflect"
	"strconv"
	"time"

	"gopkg.in/inf.v0"
)

// Kind enumerates the value representations a property can have.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindUintptr
	KindFloat32
	KindFloat64
	KindString
	KindTime
	KindDuration
	KindDecimal
	KindSequence

	// KindTotal is the number of kinds defined above, KindInvalid included.
	KindTotal = int(iota)
)

var kindNames = [...]string{
	KindInvalid:  "invalid",
	KindBool:     "bool",
	KindInt:      "int",
	KindInt8:     "int8",
	KindInt16:    "int16",
	KindInt32:    "int32",
	KindInt64:    "int64",
	KindUint:     "uint",
	KindUint8:    "uint8",
	KindUint16:   "uint16",
	KindUint32:   "uint32",
	KindUint64:   "uint64",
	KindUintptr:  "uintptr",
	KindFloat32:  "float32",
	KindFloat64:  "float64",
	KindString:   "string",
	KindTime:     "time",
	KindDuration: "duration",
	KindDecimal:  "decimal",
	KindSequence: "sequence",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// IsSigned reports whether k is one of the signed integer kinds.
// Durations are stored as signed integers but are not reported here.
func (k Kind) IsSigned() bool {
	return k >= KindInt && k <= KindInt64
}

// IsUnsigned reports whether k is one of the unsigned integer kinds.
func (k Kind) IsUnsigned() bool {
	return k >= KindUint && k <= KindUintptr
}

// IsFloat reports whether k is a floating point kind.
func (k Kind) IsFloat() bool {
	return k == KindFloat32 || k == KindFloat64
}

var (
	timeType     = reflect.TypeOf(time.Time{})
	durationType = reflect.TypeOf(time.Duration(0))
	decimalType  = reflect.TypeOf((*inf.Dec)(nil))
)

var reflectKinds = [...]Kind{
	reflect.Bool:    KindBool,
	reflect.Int:     KindInt,
	reflect.Int8:    KindInt8,
	reflect.Int16:   KindInt16,
	reflect.Int32:   KindInt32,
	reflect.Int64:   KindInt64,
	reflect.Uint:    KindUint,
	reflect.Uint8:   KindUint8,
	reflect.Uint16:  KindUint16,
	reflect.Uint32:  KindUint32,
	reflect.Uint64:  KindUint64,
	reflect.Uintptr: KindUintptr,
	reflect.Float32: KindFloat32,
	reflect.Float64: KindFloat64,
	reflect.String:  KindString,
	reflect.Slice:   KindSequence,
}

// KindOf maps a Go type to the Kind used to box it. Named types follow their
// underlying representation, except that time.Time, time.Duration and
// *inf.Dec are recognized by identity. The second result is false for types
// that cannot be boxed.
func KindOf(t reflect.Type) (Kind, bool) {
	if t == nil {
		return KindInvalid, false
	}
	switch t {
	case timeType:
		return KindTime, true
	case durationType:
		return KindDuration, true
	case decimalType:
		return KindDecimal, true
	}
	rk := t.Kind()
	if int(rk) < len(reflectKinds) {
		if k := reflectKinds[rk]; k != KindInvalid {
			return k, true
		}
	}
	return KindInvalid, false
}

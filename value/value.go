// Package value defines the boxed representation used at the property access
// boundary. A Value is a closed tagged union over the kinds listed in Kind, so
// callers can move any supported property through a single type without
// falling back to an open-ended interface{}.
package value

import (
	"fmt"
	"math"
	"reflect"
	"time"

	"gopkg.in/inf.v0"
)

// Value is a boxed property value. The zero Value is invalid.
//
// Scalars live in bits: booleans as 0/1, signed integers sign-extended,
// floats as their IEEE-754 bit pattern. Strings live in str. Times, decimals
// and sequences are held in ref with their exact Go type.
type Value struct {
	kind Kind
	bits uint64
	str  string
	ref  any
}

// Bool and the constructors below box a value of the matching kind.
func Bool(b bool) Value {
	v := Value{kind: KindBool}
	if b {
		v.bits = 1
	}
	return v
}

func Int(i int) Value         { return Value{kind: KindInt, bits: uint64(int64(i))} }
func Int8(i int8) Value       { return Value{kind: KindInt8, bits: uint64(int64(i))} }
func Int16(i int16) Value     { return Value{kind: KindInt16, bits: uint64(int64(i))} }
func Int32(i int32) Value     { return Value{kind: KindInt32, bits: uint64(int64(i))} }
func Int64(i int64) Value     { return Value{kind: KindInt64, bits: uint64(i)} }
func Uint(u uint) Value       { return Value{kind: KindUint, bits: uint64(u)} }
func Uint8(u uint8) Value     { return Value{kind: KindUint8, bits: uint64(u)} }
func Uint16(u uint16) Value   { return Value{kind: KindUint16, bits: uint64(u)} }
func Uint32(u uint32) Value   { return Value{kind: KindUint32, bits: uint64(u)} }
func Uint64(u uint64) Value   { return Value{kind: KindUint64, bits: u} }
func Uintptr(u uintptr) Value { return Value{kind: KindUintptr, bits: uint64(u)} }
func String(s string) Value   { return Value{kind: KindString, str: s} }

// Rune boxes a character. Go's rune is an alias of int32, so the result has
// KindInt32 and fits rune and int32 properties alike.
func Rune(r rune) Value { return Int32(r) }

// Byte boxes a byte. byte is an alias of uint8.
func Byte(b byte) Value { return Uint8(b) }

func Float32(f float32) Value {
	return Value{kind: KindFloat32, bits: uint64(math.Float32bits(f))}
}

func Float64(f float64) Value {
	return Value{kind: KindFloat64, bits: math.Float64bits(f)}
}

func Time(t time.Time) Value {
	return Value{kind: KindTime, ref: t}
}

func Duration(d time.Duration) Value {
	return Value{kind: KindDuration, bits: uint64(int64(d))}
}

// Decimal boxes an arbitrary-precision decimal by reference. A nil pointer is
// a valid decimal value.
func Decimal(d *inf.Dec) Value {
	return Value{kind: KindDecimal, ref: d}
}

// Sequence boxes a slice by reference. The slice keeps its exact type, named
// slice types included, and a setter only accepts it for a property declared
// with that same type.
func Sequence[S ~[]E, E any](s S) Value {
	return Value{kind: KindSequence, ref: s}
}

func (v Value) Kind() Kind { return v.kind }

func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Type returns the Go type Interface would produce. For sequences this is the
// exact slice type that was boxed.
func (v Value) Type() reflect.Type {
	switch v.kind {
	case KindSequence:
		return reflect.TypeOf(v.ref)
	case KindTime:
		return timeType
	case KindDuration:
		return durationType
	case KindDecimal:
		return decimalType
	case KindInvalid:
		return nil
	}
	return scalarTypes[v.kind]
}

var scalarTypes = [...]reflect.Type{
	KindBool:    reflect.TypeOf(false),
	KindInt:     reflect.TypeOf(int(0)),
	KindInt8:    reflect.TypeOf(int8(0)),
	KindInt16:   reflect.TypeOf(int16(0)),
	KindInt32:   reflect.TypeOf(int32(0)),
	KindInt64:   reflect.TypeOf(int64(0)),
	KindUint:    reflect.TypeOf(uint(0)),
	KindUint8:   reflect.TypeOf(uint8(0)),
	KindUint16:  reflect.TypeOf(uint16(0)),
	KindUint32:  reflect.TypeOf(uint32(0)),
	KindUint64:  reflect.TypeOf(uint64(0)),
	KindUintptr: reflect.TypeOf(uintptr(0)),
	KindFloat32: reflect.TypeOf(float32(0)),
	KindFloat64: reflect.TypeOf(float64(0)),
	KindString:  reflect.TypeOf(""),
}

// The exact accessors below report ok only when v holds that kind.

func (v Value) Bool() (bool, bool)       { return v.bits != 0, v.kind == KindBool }
func (v Value) Int() (int, bool)         { return int(int64(v.bits)), v.kind == KindInt }
func (v Value) Int8() (int8, bool)       { return int8(int64(v.bits)), v.kind == KindInt8 }
func (v Value) Int16() (int16, bool)     { return int16(int64(v.bits)), v.kind == KindInt16 }
func (v Value) Int32() (int32, bool)     { return int32(int64(v.bits)), v.kind == KindInt32 }
func (v Value) Int64() (int64, bool)     { return int64(v.bits), v.kind == KindInt64 }
func (v Value) Uint() (uint, bool)       { return uint(v.bits), v.kind == KindUint }
func (v Value) Uint8() (uint8, bool)     { return uint8(v.bits), v.kind == KindUint8 }
func (v Value) Uint16() (uint16, bool)   { return uint16(v.bits), v.kind == KindUint16 }
func (v Value) Uint32() (uint32, bool)   { return uint32(v.bits), v.kind == KindUint32 }
func (v Value) Uint64() (uint64, bool)   { return v.bits, v.kind == KindUint64 }
func (v Value) Uintptr() (uintptr, bool) { return uintptr(v.bits), v.kind == KindUintptr }

func (v Value) Float32() (float32, bool) {
	return math.Float32frombits(uint32(v.bits)), v.kind == KindFloat32
}

func (v Value) Float64() (float64, bool) {
	return math.Float64frombits(v.bits), v.kind == KindFloat64
}

func (v Value) Duration() (time.Duration, bool) {
	return time.Duration(int64(v.bits)), v.kind == KindDuration
}

func (v Value) Time() (time.Time, bool) {
	if v.kind != KindTime {
		return time.Time{}, false
	}
	return v.ref.(time.Time), true
}

func (v Value) Decimal() (*inf.Dec, bool) {
	if v.kind != KindDecimal {
		return nil, false
	}
	return v.ref.(*inf.Dec), true
}

// Sequence returns the boxed slice with its exact type.
func (v Value) Sequence() (any, bool) {
	if v.kind != KindSequence {
		return nil, false
	}
	return v.ref, true
}

// AsString is the exact accessor for KindString. It is not named String so
// that Value does not look like a fmt.Stringer.
func (v Value) AsString() (string, bool) { return v.str, v.kind == KindString }

// AsInt64 widens any signed integer kind, durations included.
func (v Value) AsInt64() (int64, bool) {
	return int64(v.bits), v.kind.IsSigned() || v.kind == KindDuration
}

// AsUint64 widens any unsigned integer kind.
func (v Value) AsUint64() (uint64, bool) {
	return v.bits, v.kind.IsUnsigned()
}

// AsFloat64 widens either float kind.
func (v Value) AsFloat64() (float64, bool) {
	switch v.kind {
	case KindFloat32:
		return float64(math.Float32frombits(uint32(v.bits))), true
	case KindFloat64:
		return math.Float64frombits(v.bits), true
	}
	return 0, false
}

// Interface unboxes v into the Go value it represents: int32 for KindInt32,
// time.Time for KindTime, the boxed slice for KindSequence, and so on. It
// returns nil for the invalid Value.
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.bits != 0
	case KindInt:
		return int(int64(v.bits))
	case KindInt8:
		return int8(int64(v.bits))
	case KindInt16:
		return int16(int64(v.bits))
	case KindInt32:
		return int32(int64(v.bits))
	case KindInt64:
		return int64(v.bits)
	case KindUint:
		return uint(v.bits)
	case KindUint8:
		return uint8(v.bits)
	case KindUint16:
		return uint16(v.bits)
	case KindUint32:
		return uint32(v.bits)
	case KindUint64:
		return v.bits
	case KindUintptr:
		return uintptr(v.bits)
	case KindFloat32:
		return math.Float32frombits(uint32(v.bits))
	case KindFloat64:
		return math.Float64frombits(v.bits)
	case KindString:
		return v.str
	case KindDuration:
		return time.Duration(int64(v.bits))
	case KindTime, KindDecimal, KindSequence:
		return v.ref
	}
	return nil
}

// Equal reports whether v and o are observably identical. Scalars compare
// bit for bit, so NaNs with the same payload are equal and 0.0 differs from
// -0.0. Decimals compare by pointer, and sequences compare by type, backing
// array, length and capacity.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.bits != o.bits || v.str != o.str {
		return false
	}
	switch v.kind {
	case KindTime:
		return v.ref.(time.Time) == o.ref.(time.Time)
	case KindDecimal:
		return v.ref.(*inf.Dec) == o.ref.(*inf.Dec)
	case KindSequence:
		a, b := reflect.ValueOf(v.ref), reflect.ValueOf(o.ref)
		return a.Type() == b.Type() &&
			a.UnsafePointer() == b.UnsafePointer() &&
			a.Len() == b.Len() &&
			a.Cap() == b.Cap()
	}
	return true
}

// Format implements fmt.Formatter so a Value prints as kind(value).
func (v Value) Format(f fmt.State, verb rune) {
	if v.kind == KindInvalid {
		fmt.Fprint(f, "invalid")
		return
	}
	if verb == 'v' && f.Flag('#') {
		fmt.Fprintf(f, "%s(%#v)", v.kind, v.Interface())
		return
	}
	fmt.Fprintf(f, "%s(%v)", v.kind, v.Interface())
}

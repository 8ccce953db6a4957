package value

import (
	"math"
	"reflect"
	"time"

	"github.com/pkg/errors"
	"gopkg.in/inf.v0"
)

// ErrUnsupported is returned when a Go value has no Kind.
var ErrUnsupported = errors.New("unsupported value type")

// Of boxes an arbitrary Go value. Predeclared types take a type switch;
// named types go through reflection once per call.
func Of(x any) (Value, error) {
	switch x := x.(type) {
	case nil:
		return Value{}, errors.Wrap(ErrUnsupported, "nil")
	case bool:
		return Bool(x), nil
	case int:
		return Int(x), nil
	case int8:
		return Int8(x), nil
	case int16:
		return Int16(x), nil
	case int32:
		return Int32(x), nil
	case int64:
		return Int64(x), nil
	case uint:
		return Uint(x), nil
	case uint8:
		return Uint8(x), nil
	case uint16:
		return Uint16(x), nil
	case uint32:
		return Uint32(x), nil
	case uint64:
		return Uint64(x), nil
	case uintptr:
		return Uintptr(x), nil
	case float32:
		return Float32(x), nil
	case float64:
		return Float64(x), nil
	case string:
		return String(x), nil
	case time.Time:
		return Time(x), nil
	case time.Duration:
		return Duration(x), nil
	case *inf.Dec:
		return Decimal(x), nil
	case Value:
		return x, nil
	}
	return FromReflect(reflect.ValueOf(x))
}

// MustOf is Of for values known to be supported. It panics otherwise.
func MustOf(x any) Value {
	v, err := Of(x)
	if err != nil {
		panic(err)
	}
	return v
}

// FromReflect boxes rv according to KindOf(rv.Type()). rv must be valid and
// must not have been obtained through unexported fields.
func FromReflect(rv reflect.Value) (Value, error) {
	if !rv.IsValid() {
		return Value{}, errors.Wrap(ErrUnsupported, "invalid reflect.Value")
	}
	k, ok := KindOf(rv.Type())
	if !ok {
		return Value{}, errors.Wrapf(ErrUnsupported, "%s", rv.Type())
	}
	switch {
	case k == KindBool:
		return Bool(rv.Bool()), nil
	case k.IsSigned(), k == KindDuration:
		return Value{kind: k, bits: uint64(rv.Int())}, nil
	case k.IsUnsigned():
		return Value{kind: k, bits: rv.Uint()}, nil
	case k == KindFloat32:
		return Float32(float32(rv.Float())), nil
	case k == KindFloat64:
		return Float64(rv.Float()), nil
	case k == KindString:
		return String(rv.String()), nil
	}
	// Time, decimal and sequence: the exact type travels with the value.
	return Value{kind: k, ref: rv.Interface()}, nil
}

// Assignable reports whether v can be stored in a location of type t without
// conversion: the kinds must match, and sequences must carry exactly t.
func (v Value) Assignable(t reflect.Type) bool {
	k, ok := KindOf(t)
	if !ok || k != v.kind {
		return false
	}
	if k == KindSequence {
		return reflect.TypeOf(v.ref) == t
	}
	return true
}

// Reflect unboxes v into a new reflect.Value of type t. Named types whose
// underlying kind matches are accepted, so Int32(5) can produce a value of
// type `type Status int32`. It returns false when v is not Assignable to t.
func (v Value) Reflect(t reflect.Type) (reflect.Value, bool) {
	if !v.Assignable(t) {
		return reflect.Value{}, false
	}
	switch {
	case v.kind == KindTime, v.kind == KindDecimal, v.kind == KindSequence:
		return reflect.ValueOf(v.ref), true
	}
	rv := reflect.New(t).Elem()
	switch {
	case v.kind == KindBool:
		rv.SetBool(v.bits != 0)
	case v.kind.IsSigned(), v.kind == KindDuration:
		rv.SetInt(int64(v.bits))
	case v.kind.IsUnsigned():
		rv.SetUint(v.bits)
	case v.kind == KindFloat32:
		rv.SetFloat(float64(math.Float32frombits(uint32(v.bits))))
	case v.kind == KindFloat64:
		rv.SetFloat(math.Float64frombits(v.bits))
	case v.kind == KindString:
		rv.SetString(v.str)
	}
	return rv, true
}

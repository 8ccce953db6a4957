package value

import (
	"reflect"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"gopkg.in/inf.v0"
)

// Codec converts between a Go type T and Value without reflection. Build it
// once with CodecFor and keep it; Box and Unbox are safe for concurrent use.
type Codec[T any] struct {
	Kind  Kind
	Box   func(T) Value
	Unbox func(Value) (T, bool)
}

// CodecFor builds the Codec for T. Named scalar types reuse the codec of
// their underlying kind, which is sound because they share its memory layout.
func CodecFor[T any]() (Codec[T], error) {
	t := reflect.TypeFor[T]()
	k, ok := KindOf(t)
	if !ok {
		return Codec[T]{}, errors.Wrapf(ErrUnsupported, "%s", t)
	}
	c := Codec[T]{Kind: k}
	switch k {
	case KindTime, KindDecimal, KindSequence:
		c.Box = func(x T) Value { return Value{kind: k, ref: x} }
		c.Unbox = func(v Value) (T, bool) {
			if v.kind != k {
				var zero T
				return zero, false
			}
			x, ok := v.ref.(T)
			return x, ok
		}
	case KindString:
		c.Box = func(x T) Value { return String(*(*string)(unsafe.Pointer(&x))) }
		c.Unbox = func(v Value) (x T, ok bool) {
			if v.kind == KindString {
				*(*string)(unsafe.Pointer(&x)) = v.str
				ok = true
			}
			return
		}
	default:
		c.Box = func(x T) Value {
			return Value{kind: k, bits: readBits(k, unsafe.Pointer(&x))}
		}
		c.Unbox = func(v Value) (x T, ok bool) {
			if v.kind != k {
				return x, false
			}
			writeBits(k, unsafe.Pointer(&x), v.bits)
			return x, true
		}
	}
	return c, nil
}

// Load boxes the value of type t stored at p, where k is KindOf(t). It is
// the pointer-level counterpart of Codec.Box for callers that only know the
// type at runtime. Only sequences go through reflection.
func Load(k Kind, t reflect.Type, p unsafe.Pointer) Value {
	switch k {
	case KindString:
		return String(*(*string)(p))
	case KindTime:
		return Time(*(*time.Time)(p))
	case KindDecimal:
		return Decimal(*(**inf.Dec)(p))
	case KindSequence:
		return Value{kind: k, ref: reflect.NewAt(t, p).Elem().Interface()}
	}
	return Value{kind: k, bits: readBits(k, p)}
}

// Store writes v to the location p of type t. It reports false, leaving p
// untouched, when v is not Assignable to t.
func Store(t reflect.Type, p unsafe.Pointer, v Value) bool {
	if !v.Assignable(t) {
		return false
	}
	switch v.kind {
	case KindString:
		*(*string)(p) = v.str
	case KindTime:
		*(*time.Time)(p) = v.ref.(time.Time)
	case KindDecimal:
		*(**inf.Dec)(p) = v.ref.(*inf.Dec)
	case KindSequence:
		reflect.NewAt(t, p).Elem().Set(reflect.ValueOf(v.ref))
	default:
		writeBits(v.kind, p, v.bits)
	}
	return true
}

// readBits reinterprets the scalar at p as the fixed-width type behind k.
// float32 and float64 travel as their bit patterns, so they read as uint32
// and uint64.
func readBits(k Kind, p unsafe.Pointer) uint64 {
	switch k {
	case KindBool:
		if *(*bool)(p) {
			return 1
		}
		return 0
	case KindInt:
		return uint64(int64(*(*int)(p)))
	case KindInt8:
		return uint64(int64(*(*int8)(p)))
	case KindInt16:
		return uint64(int64(*(*int16)(p)))
	case KindInt32:
		return uint64(int64(*(*int32)(p)))
	case KindInt64, KindDuration:
		return uint64(*(*int64)(p))
	case KindUint:
		return uint64(*(*uint)(p))
	case KindUint8:
		return uint64(*(*uint8)(p))
	case KindUint16:
		return uint64(*(*uint16)(p))
	case KindUint32, KindFloat32:
		return uint64(*(*uint32)(p))
	case KindUint64, KindFloat64:
		return *(*uint64)(p)
	case KindUintptr:
		return uint64(*(*uintptr)(p))
	}
	panic("value: no scalar representation for " + k.String())
}

func writeBits(k Kind, p unsafe.Pointer, bits uint64) {
	switch k {
	case KindBool:
		*(*bool)(p) = bits != 0
	case KindInt:
		*(*int)(p) = int(int64(bits))
	case KindInt8:
		*(*int8)(p) = int8(int64(bits))
	case KindInt16:
		*(*int16)(p) = int16(int64(bits))
	case KindInt32:
		*(*int32)(p) = int32(int64(bits))
	case KindInt64, KindDuration:
		*(*int64)(p) = int64(bits)
	case KindUint:
		*(*uint)(p) = uint(bits)
	case KindUint8:
		*(*uint8)(p) = uint8(bits)
	case KindUint16:
		*(*uint16)(p) = uint16(bits)
	case KindUint32, KindFloat32:
		*(*uint32)(p) = uint32(bits)
	case KindUint64, KindFloat64:
		*(*uint64)(p) = bits
	case KindUintptr:
		*(*uintptr)(p) = uintptr(bits)
	default:
		panic("value: no scalar representation for " + k.String())
	}
}

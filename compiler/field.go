package compiler

import (
	"reflect"
	"sync"
	"time"
	"unsafe"

	"github.com/Konsultn-Engineering/fastprop/schema"
	"github.com/Konsultn-Engineering/fastprop/value"
	"github.com/pkg/errors"
	"gopkg.in/inf.v0"
)

type fieldCreator func(p *schema.Property) (Getter, Setter)

var fieldCreators sync.Map // map[reflect.Type]fieldCreator

func init() {
	mustRegisterFieldType[bool]()
	mustRegisterFieldType[int]()
	mustRegisterFieldType[int8]()
	mustRegisterFieldType[int16]()
	mustRegisterFieldType[int32]()
	mustRegisterFieldType[int64]()
	mustRegisterFieldType[uint]()
	mustRegisterFieldType[uint8]()
	mustRegisterFieldType[uint16]()
	mustRegisterFieldType[uint32]()
	mustRegisterFieldType[uint64]()
	mustRegisterFieldType[uintptr]()
	mustRegisterFieldType[float32]()
	mustRegisterFieldType[float64]()
	mustRegisterFieldType[string]()
	mustRegisterFieldType[time.Time]()
	mustRegisterFieldType[time.Duration]()
	mustRegisterFieldType[*inf.Dec]()

	// Sequences
	mustRegisterFieldType[[]byte]()
	mustRegisterFieldType[[]int]()
	mustRegisterFieldType[[]int32]()
	mustRegisterFieldType[[]int64]()
	mustRegisterFieldType[[]uint64]()
	mustRegisterFieldType[[]float32]()
	mustRegisterFieldType[[]float64]()
	mustRegisterFieldType[[]string]()
	mustRegisterFieldType[[]bool]()
	mustRegisterFieldType[[]any]()
}

// RegisterFieldType installs statically typed field accessors for T. Fields
// of an unregistered type still work through kind-based access; registering
// the type removes the per-call kind dispatch. Call it before the first
// accessor for such a field is compiled.
func RegisterFieldType[T any]() error {
	c, err := value.CodecFor[T]()
	if err != nil {
		return errors.Wrap(schema.ErrUnsupportedType, err.Error())
	}
	fieldCreators.Store(reflect.TypeFor[T](), fieldCreator(func(p *schema.Property) (Getter, Setter) {
		return typedFieldAccessors(p, c)
	}))
	return nil
}

func mustRegisterFieldType[T any]() {
	if err := RegisterFieldType[T](); err != nil {
		panic(err)
	}
}

func typedFieldAccessors[T any](p *schema.Property, c value.Codec[T]) (Getter, Setter) {
	if p.Direct() {
		offset := p.Offset
		get := func(base unsafe.Pointer) (value.Value, error) {
			return c.Box(*(*T)(unsafe.Add(base, offset))), nil
		}
		set := func(base unsafe.Pointer, v value.Value) error {
			x, ok := c.Unbox(v)
			if !ok {
				return mismatch(p, v)
			}
			*(*T)(unsafe.Add(base, offset)) = x
			return nil
		}
		return get, set
	}

	nilGet, nilSet := nilPathErrors(p)
	get := func(base unsafe.Pointer) (value.Value, error) {
		ptr := locate(p.Path, base)
		if ptr == nil {
			return value.Value{}, nilGet
		}
		return c.Box(*(*T)(ptr)), nil
	}
	set := func(base unsafe.Pointer, v value.Value) error {
		x, ok := c.Unbox(v)
		if !ok {
			return mismatch(p, v)
		}
		ptr := locate(p.Path, base)
		if ptr == nil {
			return nilSet
		}
		*(*T)(ptr) = x
		return nil
	}
	return get, set
}

// kindFieldAccessors serves field types without a registered creator, such
// as named scalars and uncommon slices. Scalars are still read and written
// through unsafe pointers; only sequences involve reflection.
func kindFieldAccessors(p *schema.Property) (Getter, Setter) {
	k, t := p.Kind, p.Type
	nilGet, nilSet := nilPathErrors(p)

	get := func(base unsafe.Pointer) (value.Value, error) {
		ptr := locate(p.Path, base)
		if ptr == nil {
			return value.Value{}, nilGet
		}
		return value.Load(k, t, ptr), nil
	}
	set := func(base unsafe.Pointer, v value.Value) error {
		if !v.Assignable(t) {
			return mismatch(p, v)
		}
		ptr := locate(p.Path, base)
		if ptr == nil {
			return nilSet
		}
		value.Store(t, ptr, v)
		return nil
	}
	return get, set
}

// locate follows path from base to the field. It returns nil when an
// embedded pointer on the way is nil; such pointers are never allocated.
func locate(path []schema.Step, base unsafe.Pointer) unsafe.Pointer {
	ptr := base
	for _, s := range path {
		ptr = unsafe.Add(ptr, s.Offset)
		if s.Deref {
			ptr = *(*unsafe.Pointer)(ptr)
			if ptr == nil {
				return nil
			}
		}
	}
	return ptr
}

func nilPathErrors(p *schema.Property) (error, error) {
	cause := errors.Wrapf(schema.ErrTypeMismatch, "nil embedded pointer on the way to %s", p.GoName)
	return p.Error(opGet, cause), p.Error(opSet, cause)
}

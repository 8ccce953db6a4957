// Package fastprop reads and writes struct properties by name at runtime
// without paying for a reflective lookup on every call.
//
// An Accessor is built once per (type, property name). Building it resolves
// the property and synthesizes a getter/setter pair, which is kept in a cache
// so that every later Accessor for the same property shares it:
//
//	acc, err := fastprop.For[User]("Name")
//	if err != nil {
//		return err
//	}
//	v, err := acc.Get(user)               // value.String("Ada")
//	err = acc.Set(user, value.String("Grace"))
//
// Properties are exported fields (promoted fields included), Name/SetName
// accessor methods on *T, and pairs installed with compiler.Register.
package fastprop

import (
	"reflect"
	"unsafe"

	"github.com/Konsultn-Engineering/fastprop/cache"
	"github.com/Konsultn-Engineering/fastprop/compiler"
	"github.com/Konsultn-Engineering/fastprop/schema"
	"github.com/Konsultn-Engineering/fastprop/value"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

const (
	opNew = "new"
	opGet = "get"
	opSet = "set"
)

// Accessor gives type-erased access to one property of one struct type. It
// holds no mutable state and is safe for concurrent use.
type Accessor struct {
	key     cache.Key
	pair    *compiler.Accessors
	ptrType reflect.Type
}

// New returns the accessor for property name of t, which may be a struct
// type or a pointer to one. It fails with ErrPropertyNotFound,
// ErrPropertyNotAccessible, ErrUnsupportedType, or ErrTypeMismatch when t is
// not a struct.
func New(t reflect.Type, name string, opts ...Option) (*Accessor, error) {
	if t == nil {
		return nil, schema.NewError(opNew, nil, name, errors.Wrap(ErrTypeMismatch, "nil type"))
	}
	cfg := newConfig(opts)
	key := cache.NewKey(t, name, cfg.resolve)

	pair, err := cfg.cache.GetOrCreate(key, func() (*compiler.Accessors, error) {
		return compiler.Build(key.Type, key.Name, key.Options)
	})
	if err != nil {
		return nil, err
	}
	return &Accessor{
		key:     key,
		pair:    pair,
		ptrType: pair.Property.PtrType,
	}, nil
}

// For is New for the static type T.
func For[T any](name string, opts ...Option) (*Accessor, error) {
	return New(reflect.TypeFor[T](), name, opts...)
}

// Get reads the property from instance, which must be a non-nil *T. A T
// value is accepted as well and read from a copy.
func (a *Accessor) Get(instance any) (value.Value, error) {
	p, err := a.instance(opGet, instance, true)
	if err != nil {
		return value.Value{}, err
	}
	return a.pair.Get(p)
}

// Set writes v to the property of instance, which must be a non-nil *T. The
// kind of v must match the declared property type exactly; nothing is
// written otherwise.
func (a *Accessor) Set(instance any, v value.Value) error {
	p, err := a.instance(opSet, instance, false)
	if err != nil {
		return err
	}
	return a.pair.Set(p, v)
}

// GetInterface is Get followed by Value.Interface.
func (a *Accessor) GetInterface(instance any) (any, error) {
	v, err := a.Get(instance)
	if err != nil {
		return nil, err
	}
	return v.Interface(), nil
}

// SetInterface boxes x with value.Of and calls Set.
func (a *Accessor) SetInterface(instance any, x any) error {
	v, err := value.Of(x)
	if err != nil {
		return a.pair.Property.Error(opSet, errors.Wrap(ErrTypeMismatch, err.Error()))
	}
	return a.Set(instance, v)
}

// Key returns the cache key the accessor was looked up under.
func (a *Accessor) Key() cache.Key { return a.key }

// Property returns the resolved property metadata.
func (a *Accessor) Property() *schema.Property { return a.pair.Property }

// Type returns the declared type of the property value.
func (a *Accessor) Type() reflect.Type { return a.pair.Property.Type }

// Kind returns the value kind Get produces and Set expects.
func (a *Accessor) Kind() value.Kind { return a.pair.Property.Kind }

// CanRead reports whether Get is supported.
func (a *Accessor) CanRead() bool { return a.pair.Property.CanRead }

// CanWrite reports whether Set is supported.
func (a *Accessor) CanWrite() bool { return a.pair.Property.CanWrite }

// SynthesisID identifies the synthesis that produced the accessors.
func (a *Accessor) SynthesisID() ulid.ULID { return a.pair.ID }

// Accessors returns the underlying synthesized pair.
func (a *Accessor) Accessors() *compiler.Accessors { return a.pair }

// eface is the runtime layout of an interface{} value.
type eface struct {
	typ  unsafe.Pointer
	data unsafe.Pointer
}

// instance returns the struct address held by x. For a *T the pointer is
// taken straight out of the interface word.
func (a *Accessor) instance(op string, x any, allowValue bool) (unsafe.Pointer, error) {
	switch t := reflect.TypeOf(x); {
	case t == a.ptrType:
		p := (*eface)(unsafe.Pointer(&x)).data
		if p == nil {
			return nil, a.pair.Property.Error(op, errors.Wrapf(ErrTypeMismatch, "nil %s", a.ptrType))
		}
		return p, nil
	case allowValue && t == a.key.Type:
		cp := reflect.New(t)
		cp.Elem().Set(reflect.ValueOf(x))
		return cp.UnsafePointer(), nil
	case t == nil:
		return nil, a.pair.Property.Error(op, errors.Wrapf(ErrTypeMismatch, "want %s, got nil", a.ptrType))
	default:
		return nil, a.pair.Property.Error(op, errors.Wrapf(ErrTypeMismatch, "want %s, got %s", a.ptrType, t))
	}
}

// GetProperty reads property name from instance in one call. The accessor
// comes from the cache, so repeated calls only pay for the lookup.
func GetProperty(instance any, name string, opts ...Option) (value.Value, error) {
	a, err := New(reflect.TypeOf(instance), name, opts...)
	if err != nil {
		return value.Value{}, err
	}
	return a.Get(instance)
}

// SetProperty writes v to property name of instance in one call.
func SetProperty(instance any, name string, v value.Value, opts ...Option) error {
	a, err := New(reflect.TypeOf(instance), name, opts...)
	if err != nil {
		return err
	}
	return a.Set(instance, v)
}

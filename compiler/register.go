package compiler

import (
	"reflect"
	"sync"
	"unsafe"

	"github.com/Konsultn-Engineering/fastprop/schema"
	"github.com/Konsultn-Engineering/fastprop/value"
	"github.com/pkg/errors"
)

const opRegister = "register"

type registeredKey struct {
	owner reflect.Type
	name  string
}

var registered sync.Map // map[registeredKey]*Accessors

// Register installs hand-written accessors for property name on struct type
// T. They take precedence over fields and methods of the same name and need
// no reflection at call time. Either function may be nil, which makes the
// property write-only or read-only, but not both.
//
// Registering again replaces the pair for new lookups. Caches that already
// hold the old pair keep it, so register during initialization.
func Register[T, V any](name string, get func(*T) V, set func(*T, V)) error {
	t := reflect.TypeFor[T]()
	if t.Kind() != reflect.Struct {
		return schema.NewError(opRegister, t, name,
			errors.Wrapf(schema.ErrTypeMismatch, "%s is not a struct", t.Kind()))
	}
	if name == "" {
		return schema.NewError(opRegister, t, name, schema.ErrPropertyNotFound)
	}
	if get == nil && set == nil {
		return schema.NewError(opRegister, t, name,
			errors.Wrap(schema.ErrPropertyNotAccessible, "neither getter nor setter given"))
	}
	c, err := value.CodecFor[V]()
	if err != nil {
		return schema.NewError(opRegister, t, name, errors.Wrap(schema.ErrUnsupportedType, err.Error()))
	}

	p := &schema.Property{
		Owner:    t,
		PtrType:  reflect.PointerTo(t),
		Name:     name,
		GoName:   name,
		Type:     reflect.TypeFor[V](),
		Kind:     c.Kind,
		Source:   schema.SourceRegistered,
		CanRead:  get != nil,
		CanWrite: set != nil,
	}
	a := &Accessors{ID: ids.next(), Property: p}
	if get != nil {
		a.Get = func(base unsafe.Pointer) (value.Value, error) {
			return c.Box(get((*T)(base))), nil
		}
	}
	if set != nil {
		a.Set = func(base unsafe.Pointer, v value.Value) error {
			x, ok := c.Unbox(v)
			if !ok {
				return mismatch(p, v)
			}
			set((*T)(base), x)
			return nil
		}
	}
	seal(a)

	registered.Store(registeredKey{owner: t, name: name}, a)
	return nil
}

// Registered returns the pair installed with Register for name on t, which
// may be a struct type or a pointer to one.
func Registered(t reflect.Type, name string) (*Accessors, bool) {
	if t == nil {
		return nil, false
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	a, ok := registered.Load(registeredKey{owner: t, name: name})
	if !ok {
		return nil, false
	}
	return a.(*Accessors), true
}

// Unregister removes a pair installed with Register.
func Unregister[T any](name string) {
	registered.Delete(registeredKey{owner: reflect.TypeFor[T](), name: name})
}

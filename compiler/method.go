package compiler

import (
	"reflect"
	"unsafe"

	"github.com/Konsultn-Engineering/fastprop/schema"
	"github.com/Konsultn-Engineering/fastprop/value"
	"github.com/pkg/errors"
)

// methodAccessors wraps Name() and SetName(v) methods. The method values are
// looked up once here; each call costs a single reflect Call. A method
// promoted through a nil embedded pointer is never called.
func methodAccessors(p *schema.Property) (Getter, Setter) {
	var (
		get            Getter
		set            Setter
		owner          = p.Owner
		nilGet, nilSet = nilPathErrors(p)
	)

	if p.CanRead {
		fn, hasErr, via := p.Getter.Func, p.GetterHasError, p.GetterPath
		get = func(base unsafe.Pointer) (value.Value, error) {
			if via != nil && locate(via, base) == nil {
				return value.Value{}, nilGet
			}
			out := fn.Call([]reflect.Value{reflect.NewAt(owner, base)})
			if hasErr {
				if err := callError(out[1]); err != nil {
					return value.Value{}, p.Error(opGet, err)
				}
			}
			v, err := value.FromReflect(out[0])
			if err != nil {
				return value.Value{}, p.Error(opGet, errors.Wrap(schema.ErrTypeMismatch, err.Error()))
			}
			return v, nil
		}
	}

	if p.CanWrite {
		fn, hasErr, via := p.Setter.Func, p.SetterHasError, p.SetterPath
		set = func(base unsafe.Pointer, v value.Value) error {
			arg, ok := v.Reflect(p.Type)
			if !ok {
				return mismatch(p, v)
			}
			if via != nil && locate(via, base) == nil {
				return nilSet
			}
			out := fn.Call([]reflect.Value{reflect.NewAt(owner, base), arg})
			if hasErr {
				if err := callError(out[0]); err != nil {
					return p.Error(opSet, err)
				}
			}
			return nil
		}
	}

	return get, set
}

func callError(rv reflect.Value) error {
	if rv.IsNil() {
		return nil
	}
	return rv.Interface().(error)
}

// Package compiler synthesizes the getter/setter pair for a resolved
// property. Synthesis happens once; the resulting closures are immutable and
// can be called concurrently without locks.
package compiler

import (
	"reflect"
	"unsafe"

	"github.com/Konsultn-Engineering/fastprop/schema"
	"github.com/Konsultn-Engineering/fastprop/value"
	"github.com/oklog/ulid/v2"
	"github.com/pkg/errors"
)

const (
	opGet = "get"
	opSet = "set"
)

// Getter reads the property from the struct that instance points to.
type Getter func(instance unsafe.Pointer) (value.Value, error)

// Setter writes v to the property of the struct that instance points to. It
// checks v against the declared type before touching memory.
type Setter func(instance unsafe.Pointer, v value.Value) error

// Accessors is the compiled pair for one property. Get and Set are never nil:
// a missing direction is compiled into a function that returns
// ErrPropertyNotReadable or ErrPropertyNotWritable.
type Accessors struct {
	ID       ulid.ULID // identifies this synthesis
	Property *schema.Property
	Get      Getter
	Set      Setter
}

// Build returns the accessors for name on t. A pair installed with Register
// wins; otherwise the property is resolved with opts and compiled.
func Build(t reflect.Type, name string, opts schema.Options) (*Accessors, error) {
	if a, ok := Registered(t, name); ok {
		return a, nil
	}
	p, err := schema.Resolve(t, name, opts)
	if err != nil {
		return nil, err
	}
	return Compile(p), nil
}

// Compile synthesizes the accessor pair for p. It does not fail: everything
// that can go wrong was reported by schema.Resolve.
func Compile(p *schema.Property) *Accessors {
	a := &Accessors{ID: ids.next(), Property: p}

	switch p.Source {
	case schema.SourceField:
		if creator, ok := fieldCreators.Load(p.Type); ok {
			a.Get, a.Set = creator.(fieldCreator)(p)
		} else {
			a.Get, a.Set = kindFieldAccessors(p)
		}
	case schema.SourceMethod:
		a.Get, a.Set = methodAccessors(p)
	case schema.SourceRegistered:
		if r, ok := Registered(p.Owner, p.Name); ok {
			a.Get, a.Set = r.Get, r.Set
		}
	}

	seal(a)
	return a
}

// seal replaces the directions the property does not support.
func seal(a *Accessors) {
	p := a.Property
	if !p.CanRead || a.Get == nil {
		err := p.Error(opGet, schema.ErrPropertyNotReadable)
		a.Get = func(unsafe.Pointer) (value.Value, error) { return value.Value{}, err }
	}
	if !p.CanWrite || a.Set == nil {
		err := p.Error(opSet, schema.ErrPropertyNotWritable)
		a.Set = func(unsafe.Pointer, value.Value) error { return err }
	}
}

func mismatch(p *schema.Property, v value.Value) error {
	return p.Error(opSet, errors.Wrapf(schema.ErrTypeMismatch, "cannot assign %s to %s", v.Kind(), p.Type))
}

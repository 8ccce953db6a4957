package schema

import (
	"reflect"

	"github.com/Konsultn-Engineering/fastprop/value"
)

// Source tells where a property's accessors come from.
type Source uint8

const (
	SourceField      Source = iota // exported struct field, possibly promoted
	SourceMethod                   // Name() / SetName(v) accessor methods
	SourceRegistered               // typed accessors installed by the caller
)

func (s Source) String() string {
	switch s {
	case SourceField:
		return "field"
	case SourceMethod:
		return "method"
	case SourceRegistered:
		return "registered"
	default:
		return "unknown"
	}
}

// Step is one hop along the path from the owner struct to a field. A field
// promoted through an embedded pointer needs a dereference after the hop.
type Step struct {
	Offset uintptr
	Deref  bool
}

// Property is the resolved metadata for one (type, name) pair. It is built
// once by Resolve and never modified afterwards.
type Property struct {
	Owner   reflect.Type // struct type the property belongs to
	PtrType reflect.Type // *Owner, the instance type accepted by accessors
	Name    string       // name as requested by the caller
	GoName  string       // field name, or getter name for method properties
	Type    reflect.Type // declared value type
	Kind    value.Kind
	Source  Source

	CanRead  bool
	CanWrite bool

	// Field properties. Offset is only meaningful when Path has no Deref
	// step; it is then the field's offset from the start of Owner.
	Index  []int
	Offset uintptr
	Path   []Step

	// Method properties. A zero Func means the accessor is absent.
	// GetterPath and SetterPath hold the embedded pointers a promoted method
	// goes through; each must be non-nil before the method is called.
	Getter         reflect.Method
	Setter         reflect.Method
	GetterHasError bool
	SetterHasError bool
	GetterPath     []Step
	SetterPath     []Step

	Tag *ParsedTag
}

// Direct reports whether the field sits at a fixed offset inside Owner, with
// no embedded pointer to follow.
func (p *Property) Direct() bool {
	for _, s := range p.Path {
		if s.Deref {
			return false
		}
	}
	return true
}

// Error wraps err in a PropertyError for op on this property.
func (p *Property) Error(op string, err error) *PropertyError {
	return NewError(op, p.Owner, p.Name, err)
}

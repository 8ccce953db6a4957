package schema

import (
	"reflect"
	"strings"

	"github.com/pkg/errors"
)

var (
	// ErrPropertyNotFound means no exported field, tag alias or accessor
	// method matches the requested name.
	ErrPropertyNotFound = errors.New("property not found")
	// ErrPropertyNotAccessible means something with the requested name exists
	// but cannot be reached through exported accessors.
	ErrPropertyNotAccessible = errors.New("property not accessible")
	// ErrPropertyNotReadable is returned by Get on a property without getter.
	ErrPropertyNotReadable = errors.New("property not readable")
	// ErrPropertyNotWritable is returned by Set on a property without setter.
	ErrPropertyNotWritable = errors.New("property not writable")
	// ErrTypeMismatch covers an instance of the wrong type and a value whose
	// kind does not match the declared property type.
	ErrTypeMismatch = errors.New("type mismatch")
	// ErrUnsupportedType means the declared property type has no value.Kind.
	ErrUnsupportedType = errors.New("unsupported property type")
)

// PropertyError records the operation, owner type and property that failed.
// Err wraps one of the sentinel errors above, so errors.Is works on it.
type PropertyError struct {
	Op       string
	Type     reflect.Type
	Property string
	Err      error
}

func (e *PropertyError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	b.WriteByte(' ')
	if e.Type != nil {
		b.WriteString(e.Type.String())
		b.WriteByte('.')
	}
	b.WriteString(e.Property)
	b.WriteString(": ")
	b.WriteString(e.Err.Error())
	return b.String()
}

func (e *PropertyError) Unwrap() error { return e.Err }

// NewError builds a PropertyError for op on property name of type t.
func NewError(op string, t reflect.Type, name string, err error) *PropertyError {
	return &PropertyError{Op: op, Type: t, Property: name, Err: err}
}

package cache

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/Konsultn-Engineering/fastprop/schema"
)

// Key identifies one accessor pair: the owner struct type, the requested
// property name, and the resolution options used to find it. Keys are
// comparable and reflect.Type identity is stable for the process lifetime.
type Key struct {
	Type    reflect.Type
	Name    string
	Options schema.Options
}

// NewKey builds a Key, normalizing *T to T so both forms share an entry.
func NewKey(t reflect.Type, name string, opts schema.Options) Key {
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return Key{Type: t, Name: name, Options: opts}
}

func (k Key) String() string {
	var b strings.Builder
	if k.Type != nil {
		b.WriteString(k.Type.String())
		b.WriteByte('.')
	}
	b.WriteString(k.Name)
	if k.Options != schema.DefaultOptions() {
		fmt.Fprintf(&b, " [%s tag=%q]", k.Options.Naming, k.Options.TagName)
	}
	return b.String()
}

// flightKey is the singleflight key for k. Two distinct types can share a
// String form (local types, same-named packages), so the type's address is
// used instead, and variable-length parts are length-prefixed.
func (k Key) flightKey() string {
	var b strings.Builder
	b.Grow(32 + len(k.Name) + len(k.Options.TagName))
	fmt.Fprintf(&b, "%p", k.Type)
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(int(k.Options.Naming)))
	b.WriteByte('|')
	b.WriteString(strconv.Itoa(len(k.Options.TagName)))
	b.WriteByte(':')
	b.WriteString(k.Options.TagName)
	b.WriteByte('|')
	b.WriteString(k.Name)
	return b.String()
}

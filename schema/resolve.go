package schema

import (
	"reflect"
	"strings"

	"github.com/Konsultn-Engineering/fastprop/value"
	"github.com/pkg/errors"
)

const opResolve = "resolve"

var errorType = reflect.TypeFor[error]()

// Options controls how names are matched during resolution. It is comparable
// so it can take part in cache keys.
type Options struct {
	Naming  NamingStyle
	TagName string // empty disables tag aliases and tag flags
}

// DefaultOptions matches names exactly and reads the prop tag.
func DefaultOptions() Options {
	return Options{Naming: NamingExact, TagName: DefaultTagName}
}

// Resolve finds the property called name on t, which may be a struct type or
// a pointer to one. Lookup order is: exported field (including promoted
// fields), tag alias, Name/SetName methods on *T, and finally the same three
// under opts.Naming. Resolve has no side effects.
func Resolve(t reflect.Type, name string, opts Options) (*Property, error) {
	if t == nil {
		return nil, NewError(opResolve, nil, name, ErrTypeMismatch)
	}
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil, NewError(opResolve, t, name,
			errors.Wrapf(ErrTypeMismatch, "%s is not a struct", t.Kind()))
	}
	if name == "" {
		return nil, NewError(opResolve, t, name, ErrPropertyNotFound)
	}

	r := &resolver{
		owner:   t,
		ptrType: reflect.PointerTo(t),
		name:    name,
		opts:    opts,
		fields:  reflect.VisibleFields(t),
	}
	if opts.TagName != "" {
		r.tags = tagParserFor(opts.TagName)
	}
	return r.resolve()
}

type resolver struct {
	owner   reflect.Type
	ptrType reflect.Type
	name    string
	opts    Options
	fields  []reflect.StructField
	tags    *TagParser

	// hidden records the first reason a candidate was rejected, so a failed
	// lookup can report NotAccessible instead of NotFound.
	hidden error
}

type matchFunc func(goName string) bool

func (r *resolver) resolve() (*Property, error) {
	exact := func(goName string) bool { return goName == r.name }

	if p, err := r.byField(exact); p != nil || err != nil {
		return p, err
	}
	if p, err := r.byAlias(exact); p != nil || err != nil {
		return p, err
	}
	if p, err := r.byMethods(exact); p != nil || err != nil {
		return p, err
	}

	if r.opts.Naming != NamingExact {
		styled := func(goName string) bool { return r.opts.Naming.Matches(goName, r.name) }
		if p, err := r.byField(styled); p != nil || err != nil {
			return p, err
		}
		if p, err := r.byAlias(styled); p != nil || err != nil {
			return p, err
		}
		if p, err := r.byMethods(styled); p != nil || err != nil {
			return p, err
		}
	}

	if r.hidden != nil {
		return nil, NewError(opResolve, r.owner, r.name, r.hidden)
	}
	for _, f := range r.fields {
		if f.Name != "" && !f.IsExported() && strings.EqualFold(f.Name, r.name) {
			return nil, NewError(opResolve, r.owner, r.name,
				errors.Wrapf(ErrPropertyNotAccessible, "field %s is unexported", f.Name))
		}
	}
	return nil, NewError(opResolve, r.owner, r.name, ErrPropertyNotFound)
}

func (r *resolver) hide(err error) {
	if r.hidden == nil {
		r.hidden = err
	}
}

func (r *resolver) tagOf(f reflect.StructField) (*ParsedTag, error) {
	if r.tags == nil {
		return nil, nil
	}
	return r.tags.ParseTag(f.Name, f.Tag)
}

// byField looks for an exported field whose Go name satisfies match.
// VisibleFields leaves out ambiguous promoted fields, so they never match.
func (r *resolver) byField(match matchFunc) (*Property, error) {
	for _, f := range r.fields {
		if f.Name == "" || !f.IsExported() || !match(f.Name) {
			continue
		}
		tag, err := r.tagOf(f)
		if err != nil {
			r.hide(errors.Wrap(ErrPropertyNotAccessible, err.Error()))
			continue
		}
		if tag != nil && tag.Skip {
			r.hide(errors.Wrapf(ErrPropertyNotAccessible, "field %s is hidden by its tag", f.Name))
			continue
		}
		return r.fieldProperty(f, tag)
	}
	return nil, nil
}

// byAlias looks for an exported field whose tag alias satisfies match.
func (r *resolver) byAlias(match matchFunc) (*Property, error) {
	if r.tags == nil {
		return nil, nil
	}
	for _, f := range r.fields {
		if f.Name == "" || !f.IsExported() {
			continue
		}
		// Malformed tags on unrelated fields do not fail the lookup.
		tag, err := r.tagOf(f)
		if err != nil || tag == nil || tag.Skip || tag.Alias == "" || !match(tag.Alias) {
			continue
		}
		return r.fieldProperty(f, tag)
	}
	return nil, nil
}

func (r *resolver) fieldProperty(f reflect.StructField, tag *ParsedTag) (*Property, error) {
	k, ok := value.KindOf(f.Type)
	if !ok {
		return nil, NewError(opResolve, r.owner, r.name,
			errors.Wrapf(ErrUnsupportedType, "field %s has type %s", f.Name, f.Type))
	}
	path, offset := fieldPath(r.owner, f.Index)
	p := &Property{
		Owner:    r.owner,
		PtrType:  r.ptrType,
		Name:     r.name,
		GoName:   f.Name,
		Type:     f.Type,
		Kind:     k,
		Source:   SourceField,
		CanRead:  true,
		CanWrite: true,
		Index:    f.Index,
		Offset:   offset,
		Path:     path,
		Tag:      tag,
	}
	if tag != nil {
		p.CanRead = !tag.WriteOnly
		p.CanWrite = !tag.ReadOnly
	}
	return p, nil
}

// fieldPath folds the index chain of a (possibly promoted) field into offset
// steps. Consecutive embedded values collapse into one step; each embedded
// pointer ends a step with a dereference. offset is the total when no
// dereference is needed.
func fieldPath(t reflect.Type, index []int) ([]Step, uintptr) {
	var (
		path  []Step
		acc   uintptr
		total uintptr
	)
	cur := t
	for i, idx := range index {
		sf := cur.Field(idx)
		acc += sf.Offset
		total += sf.Offset
		cur = sf.Type
		if i < len(index)-1 && cur.Kind() == reflect.Pointer {
			path = append(path, Step{Offset: acc, Deref: true})
			acc = 0
			cur = cur.Elem()
		}
	}
	path = append(path, Step{Offset: acc})
	return path, total
}

// byMethods looks for a getter N() and/or setter SetN(v) on *T where N
// satisfies match.
func (r *resolver) byMethods(match matchFunc) (*Property, error) {
	getterName, setterName := "", ""
	for i := 0; i < r.ptrType.NumMethod(); i++ {
		m := r.ptrType.Method(i)
		if match(m.Name) {
			getterName = m.Name
			break
		}
	}
	if getterName == "" {
		for i := 0; i < r.ptrType.NumMethod(); i++ {
			m := r.ptrType.Method(i)
			if base, ok := strings.CutPrefix(m.Name, "Set"); ok && base != "" && match(base) {
				setterName = m.Name
				getterName = base
				break
			}
		}
	} else {
		setterName = "Set" + getterName
	}
	if getterName == "" {
		return nil, nil
	}

	p := &Property{
		Owner:   r.owner,
		PtrType: r.ptrType,
		Name:    r.name,
		GoName:  getterName,
		Source:  SourceMethod,
	}

	if getter, ok := r.ptrType.MethodByName(getterName); ok {
		out, hasErr, ok := getterShape(getter.Type)
		if !ok {
			return nil, NewError(opResolve, r.owner, r.name,
				errors.Wrapf(ErrPropertyNotAccessible, "method %s is not a getter", getter.Name))
		}
		p.Getter, p.GetterHasError, p.CanRead, p.Type = getter, hasErr, true, out
		p.GetterPath = r.promotedPath(getter.Name)
	}

	if setter, ok := r.ptrType.MethodByName(setterName); ok {
		in, hasErr, ok := setterShape(setter.Type)
		switch {
		case !ok:
			if !p.CanRead {
				return nil, NewError(opResolve, r.owner, r.name,
					errors.Wrapf(ErrPropertyNotAccessible, "method %s is not a setter", setter.Name))
			}
		case p.CanRead && in != p.Type:
			return nil, NewError(opResolve, r.owner, r.name,
				errors.Wrapf(ErrPropertyNotAccessible, "%s takes %s but %s returns %s",
					setter.Name, in, getterName, p.Type))
		default:
			p.Setter, p.SetterHasError, p.CanWrite, p.Type = setter, hasErr, true, in
			p.SetterPath = r.promotedPath(setter.Name)
		}
	}

	if !p.CanRead && !p.CanWrite {
		return nil, nil
	}

	k, ok := value.KindOf(p.Type)
	if !ok {
		return nil, NewError(opResolve, r.owner, r.name,
			errors.Wrapf(ErrUnsupportedType, "method %s uses type %s", p.GoName, p.Type))
	}
	p.Kind = k
	return p, nil
}

// promotedPath returns the embedded pointers and interfaces that the method
// called name is promoted through, following the shallowest embedded field
// whose method set has it at each level. It is nil when no embedded field
// provides the method.
func (r *resolver) promotedPath(name string) []Step {
	var chain []int
	for {
		next := r.embeddedWith(name, chain)
		if next == nil {
			break
		}
		chain = next
	}
	if chain == nil {
		return nil
	}

	var (
		path []Step
		acc  uintptr
	)
	cur := r.owner
	for _, idx := range chain {
		sf := cur.Field(idx)
		acc += sf.Offset
		cur = sf.Type
		switch cur.Kind() {
		case reflect.Pointer:
			path = append(path, Step{Offset: acc, Deref: true})
			acc = 0
			cur = cur.Elem()
		case reflect.Interface:
			// The first word of a nil interface is nil.
			path = append(path, Step{Offset: acc, Deref: true})
			acc = 0
		}
	}
	return path
}

// embeddedWith finds the shallowest embedded field below prefix whose method
// set has name.
func (r *resolver) embeddedWith(name string, prefix []int) []int {
	var best []int
	for _, f := range r.fields {
		if !f.Anonymous || len(f.Index) <= len(prefix) || !hasPrefix(f.Index, prefix) {
			continue
		}
		if best != nil && len(f.Index) >= len(best) {
			continue
		}
		if hasMethod(f.Type, name) {
			best = f.Index
		}
	}
	return best
}

func hasMethod(t reflect.Type, name string) bool {
	switch t.Kind() {
	case reflect.Interface:
	case reflect.Pointer:
		t = t.Elem()
		fallthrough
	default:
		t = reflect.PointerTo(t)
	}
	_, ok := t.MethodByName(name)
	return ok
}

func hasPrefix(index, prefix []int) bool {
	for i, v := range prefix {
		if index[i] != v {
			return false
		}
	}
	return true
}

// getterShape accepts func(*T) V and func(*T) (V, error).
func getterShape(ft reflect.Type) (reflect.Type, bool, bool) {
	if ft.NumIn() != 1 {
		return nil, false, false
	}
	switch ft.NumOut() {
	case 1:
		if ft.Out(0) == errorType {
			return nil, false, false
		}
		return ft.Out(0), false, true
	case 2:
		if ft.Out(1) != errorType {
			return nil, false, false
		}
		return ft.Out(0), true, true
	}
	return nil, false, false
}

// setterShape accepts func(*T, V) and func(*T, V) error.
func setterShape(ft reflect.Type) (reflect.Type, bool, bool) {
	if ft.NumIn() != 2 || ft.IsVariadic() {
		return nil, false, false
	}
	switch ft.NumOut() {
	case 0:
		return ft.In(1), false, true
	case 1:
		if ft.Out(0) != errorType {
			return nil, false, false
		}
		return ft.In(1), true, true
	}
	return nil, false, false
}

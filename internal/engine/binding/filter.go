package binding

import (
	"reflect"
	"scopebind/internal/engine/contextid"
)

// Candidate is one raw instance produced by a locator before filtering.
type Candidate struct {
	Instance  any
	NodeName  string
	NodePath  string
	Context   contextid.Identity
	FromAsset bool
	AssetPath string
}

// Type returns the dynamic type of the candidate instance.
func (c Candidate) Type() reflect.Type {
	return reflect.TypeOf(c.Instance)
}

// Filter narrows a candidate set. Filters run in declaration order; an error or
// panic from Keep discards every candidate of the binding for that call.
type Filter interface {
	Name() string
	Keep(c Candidate) (bool, error)
}

// TypedFilter is a Filter that only makes sense for candidates of one type. The
// validator rejects collection bindings whose typed filters cannot apply.
type TypedFilter interface {
	Filter
	FilterType() reflect.Type
}

type funcFilter struct {
	name string
	fn   func(Candidate) (bool, error)
}

func (f funcFilter) Name() string                   { return f.name }
func (f funcFilter) Keep(c Candidate) (bool, error) { return f.fn(c) }

// FilterFunc adapts a predicate into a Filter.
func FilterFunc(name string, fn func(Candidate) bool) Filter {
	return funcFilter{name: name, fn: func(c Candidate) (bool, error) { return fn(c), nil }}
}

// FilterFuncErr adapts a fallible predicate into a Filter.
func FilterFuncErr(name string, fn func(Candidate) (bool, error)) Filter {
	return funcFilter{name: name, fn: fn}
}

type typeFilter struct {
	t reflect.Type
}

// OfType keeps candidates assignable to t.
func OfType(t reflect.Type) TypedFilter {
	return typeFilter{t: t}
}

func (f typeFilter) Name() string             { return "type(" + TypeName(f.t) + ")" }
func (f typeFilter) FilterType() reflect.Type { return f.t }

func (f typeFilter) Keep(c Candidate) (bool, error) {
	ct := c.Type()
	return ct != nil && f.t != nil && ct.AssignableTo(f.t), nil
}

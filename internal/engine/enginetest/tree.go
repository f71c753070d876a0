// Package enginetest provides an in-memory object hierarchy for engine tests.
package enginetest

import (
	"context"
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/contextid"
	"scopebind/internal/engine/hierarchy"
	"testing"
)

// Object is a positioned object with members and children.
type Object struct {
	Name     string
	Members  []any
	Children []*Object
	// Kind, when set, starts a new context keyed by the object's path.
	Kind contextid.Kind
	// Isolated marks Kind as meaningful; the zero Kind is Independent.
	Isolated bool
}

// Obj builds an object.
func Obj(name string, members ...any) *Object {
	return &Object{Name: name, Members: members}
}

// With appends children and returns o.
func (o *Object) With(children ...*Object) *Object {
	o.Children = append(o.Children, children...)
	return o
}

// In makes o the root of a context of the given kind.
func (o *Object) In(kind contextid.Kind) *Object {
	o.Kind = kind
	o.Isolated = true
	return o
}

// Provider implements hierarchy.Provider and hierarchy.Classifier over Objects.
type Provider struct{}

func (Provider) Name(obj any) string {
	return obj.(*Object).Name
}

func (Provider) Children(obj any) []any {
	o := obj.(*Object)
	out := make([]any, 0, len(o.Children))
	for _, c := range o.Children {
		out = append(out, c)
	}
	return out
}

func (Provider) Members(obj any) []any {
	return obj.(*Object).Members
}

func (Provider) Classify(obj any, path string, parent *contextid.Identity) contextid.Identity {
	if o := obj.(*Object); o.Isolated {
		return contextid.New(o.Kind, path)
	}
	if parent != nil {
		return *parent
	}
	return contextid.New(contextid.KindShared, "")
}

// Scope is a member declaring bindings through a callback.
type Scope struct {
	Declare func(d *binding.Declarations)
}

func (s *Scope) DeclareBindings(d *binding.Declarations) error {
	if s.Declare != nil {
		s.Declare(d)
	}
	return nil
}

// FailingScope is a member whose declaration step returns Err or panics when Err is nil.
type FailingScope struct {
	Err error
}

func (s *FailingScope) DeclareBindings(*binding.Declarations) error {
	if s.Err == nil {
		panic("declaration exploded")
	}
	return s.Err
}

// Project builds a projection over roots and fails the test on error.
func Project(t testing.TB, isolation bool, inspector hierarchy.SiteInspector, roots ...*Object) *hierarchy.Projection {
	t.Helper()
	objs := make([]any, 0, len(roots))
	for _, r := range roots {
		objs = append(objs, r)
	}
	p, err := hierarchy.Project(context.Background(), objs, hierarchy.Options{
		Provider:   Provider{},
		Classifier: Provider{},
		Inspector:  inspector,
		Isolation:  isolation,
	})
	if err != nil {
		t.Fatalf("project: %v", err)
	}
	return p
}

// MustFind returns the node at path or fails the test.
func MustFind(t testing.TB, p *hierarchy.Projection, path string) hierarchy.NodeID {
	t.Helper()
	id, err := p.FindPath(path)
	if err != nil || id == hierarchy.NoNode {
		t.Fatalf("node %q not found (err=%v)", path, err)
	}
	return id
}

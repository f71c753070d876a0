// Package hierarchy projects an external object hierarchy into an arena of nodes
// annotated with context identity, scopes and injection sites. A projection is built
// fresh for every resolution run and discarded afterwards.
package hierarchy

import (
	"reflect"
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/contextid"
)

// Provider walks the host's object hierarchy.
type Provider interface {
	Name(obj any) string
	Children(obj any) []any
	Members(obj any) []any
}

// Classifier computes the context identity of an object. parent is nil for roots.
type Classifier interface {
	Classify(obj any, path string, parent *contextid.Identity) contextid.Identity
}

// SiteInspector discovers the injection sites hosted by a member.
type SiteInspector interface {
	Sites(member any) []SiteSpec
}

// ScopeDeclarer is implemented by members that declare a scope. DeclareBindings may
// return an error or panic; both abort the scope's sub-hierarchy.
type ScopeDeclarer interface {
	DeclareBindings(d *binding.Declarations) error
}

// SiteKind distinguishes field sites from method parameter sites.
type SiteKind int

const (
	SiteField SiteKind = iota
	SiteMethodParam
)

func (k SiteKind) String() string {
	if k == SiteMethodParam {
		return "method"
	}
	return "field"
}

// SiteSpec is what an inspector reports for a single injection site.
type SiteSpec struct {
	Kind          SiteKind
	DeclaringType reflect.Type
	MemberName    string
	// Type is the requested type; for collections it is the element type.
	Type       reflect.Type
	Collection bool
	ID         string
	Optional   bool
	// Target is an opaque token the SiteWriter uses to assign the value.
	Target any
}

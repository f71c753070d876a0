// Package binding holds the declared-binding model, its single-assignment builder and
// the static validator that decides which bindings are eligible for resolution.
package binding

import (
	"fmt"
	"reflect"
)

// Category decides which source a binding is resolved against.
type Category int

const (
	// CategoryComponent bindings are resolved by searching the projected hierarchy.
	CategoryComponent Category = iota
	// CategoryAsset bindings are resolved through the asset catalog.
	CategoryAsset
	// CategoryGlobal bindings promote a located instance into the global registry.
	CategoryGlobal
)

func (c Category) String() string {
	switch c {
	case CategoryComponent:
		return "component"
	case CategoryAsset:
		return "asset"
	case CategoryGlobal:
		return "global"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

// Origin is where a hierarchy search starts.
type Origin int

const (
	OriginScope Origin = iota
	OriginRoot
	OriginSite
	OriginNamed
	OriginAnywhere
)

func (o Origin) String() string {
	switch o {
	case OriginScope:
		return "scope"
	case OriginRoot:
		return "root"
	case OriginSite:
		return "site"
	case OriginNamed:
		return "named"
	case OriginAnywhere:
		return "anywhere"
	default:
		return fmt.Sprintf("origin(%d)", int(o))
	}
}

// Direction is how a hierarchy search moves relative to its origin.
type Direction int

const (
	DirectionSelf Direction = iota
	DirectionParent
	DirectionAncestors
	DirectionFirstChild
	DirectionLastChild
	DirectionChildAt
	DirectionDescendants
	DirectionSiblings
	DirectionAnywhere
)

func (d Direction) String() string {
	switch d {
	case DirectionSelf:
		return "self"
	case DirectionParent:
		return "parent"
	case DirectionAncestors:
		return "ancestors"
	case DirectionFirstChild:
		return "first-child"
	case DirectionLastChild:
		return "last-child"
	case DirectionChildAt:
		return "child-at"
	case DirectionDescendants:
		return "descendants"
	case DirectionSiblings:
		return "siblings"
	case DirectionAnywhere:
		return "anywhere"
	default:
		return fmt.Sprintf("direction(%d)", int(d))
	}
}

var origins = map[string]Origin{
	"scope":    OriginScope,
	"root":     OriginRoot,
	"site":     OriginSite,
	"target":   OriginSite,
	"named":    OriginNamed,
	"node":     OriginNamed,
	"anywhere": OriginAnywhere,
}

var directions = map[string]Direction{
	"self":        DirectionSelf,
	"parent":      DirectionParent,
	"ancestors":   DirectionAncestors,
	"first-child": DirectionFirstChild,
	"last-child":  DirectionLastChild,
	"child-at":    DirectionChildAt,
	"descendants": DirectionDescendants,
	"siblings":    DirectionSiblings,
	"anywhere":    DirectionAnywhere,
}

func ParseOrigin(raw string) (Origin, error) {
	o, ok := origins[raw]
	if !ok {
		return 0, fmt.Errorf("unknown search origin %q", raw)
	}
	return o, nil
}

func ParseDirection(raw string) (Direction, error) {
	d, ok := directions[raw]
	if !ok {
		return 0, fmt.Errorf("unknown search direction %q", raw)
	}
	return d, nil
}

// Search is a locator strategy: an origin combined with a direction.
type Search struct {
	Origin      Origin
	Direction   Direction
	IncludeSelf bool
	ChildIndex  int
	// NodePath is a glob over slash-separated node paths, used with OriginNamed.
	NodePath string
}

// SearchFrom builds a Search for the given origin and direction.
func SearchFrom(origin Origin, direction Direction) Search {
	if origin == OriginAnywhere {
		direction = DirectionAnywhere
	}
	return Search{Origin: origin, Direction: direction}
}

// WithSelf includes the origin node in ancestor and descendant walks.
func (s Search) WithSelf() Search {
	s.IncludeSelf = true
	return s
}

// At selects the child at index (DirectionChildAt).
func (s Search) At(index int) Search {
	s.Direction = DirectionChildAt
	s.ChildIndex = index
	return s
}

// Named starts the search at the first node whose path matches pattern.
func (s Search) Named(pattern string) Search {
	s.Origin = OriginNamed
	s.NodePath = pattern
	return s
}

func (s Search) String() string {
	out := s.Origin.String() + "/" + s.Direction.String()
	if s.Origin == OriginNamed {
		out = "node(" + s.NodePath + ")/" + s.Direction.String()
	}
	if s.Direction == DirectionChildAt {
		out += fmt.Sprintf("[%d]", s.ChildIndex)
	}
	if s.IncludeSelf {
		out += "+self"
	}
	return out
}

// DefaultSearch is used by component and global bindings that declare no strategy.
func DefaultSearch() Search {
	return SearchFrom(OriginScope, DirectionDescendants).WithSelf()
}

// AssetLoad selects how an asset binding queries the catalog.
type AssetLoad int

const (
	LoadNone AssetLoad = iota
	LoadOne
	LoadAll
	LoadFolder
	LoadInstances
)

func (l AssetLoad) String() string {
	switch l {
	case LoadNone:
		return "none"
	case LoadOne:
		return "one"
	case LoadAll:
		return "all"
	case LoadFolder:
		return "folder"
	case LoadInstances:
		return "instances"
	default:
		return fmt.Sprintf("load(%d)", int(l))
	}
}

// RequiresPath reports whether the load strategy needs a catalog path.
func (l AssetLoad) RequiresPath() bool {
	return l == LoadOne || l == LoadAll || l == LoadFolder
}

// AssetSource describes the catalog query of an asset binding.
type AssetSource struct {
	Load      AssetLoad
	Path      string
	Instances []any
}

// TypeOf returns the reflect.Type of T, including interface types.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}

// TypeName renders a type the way diagnostics print it.
func TypeName(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}

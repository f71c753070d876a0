// Package contextid classifies hierarchy positions into isolation boundaries.
package contextid

import (
	"fmt"
	"strings"
)

// Kind is the discriminant of an Identity.
type Kind int

const (
	// KindIndependent marks an independently instantiated sub-hierarchy. Its key is the
	// path of the instance root.
	KindIndependent Kind = iota
	// KindShared marks a persistent hierarchy shared by everything loaded from it.
	KindShared
	// KindTemplate marks the contents of a template asset being edited in isolation.
	KindTemplate
	// KindGlobal marks objects visible from every context.
	KindGlobal
)

func (k Kind) String() string {
	switch k {
	case KindIndependent:
		return "independent"
	case KindShared:
		return "shared"
	case KindTemplate:
		return "template"
	case KindGlobal:
		return "global"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// ParseKind maps the textual form used in documents and config back to a Kind.
func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "independent", "instance":
		return KindIndependent, nil
	case "shared", "":
		return KindShared, nil
	case "template", "asset":
		return KindTemplate, nil
	case "global":
		return KindGlobal, nil
	default:
		return 0, fmt.Errorf("unknown context kind %q", raw)
	}
}

// Identity is a comparable value; two nodes belong to the same isolation boundary iff
// their identities are equal.
type Identity struct {
	Kind Kind
	Key  string
}

func New(kind Kind, key string) Identity {
	return Identity{Kind: kind, Key: key}
}

// Global is the single identity shared by every globally visible object.
func Global() Identity {
	return Identity{Kind: KindGlobal}
}

func (i Identity) IsGlobal() bool {
	return i.Kind == KindGlobal
}

func (i Identity) Equal(other Identity) bool {
	return i == other
}

func (i Identity) String() string {
	if i.Key == "" {
		return i.Kind.String()
	}
	return i.Kind.String() + ":" + i.Key
}

// CrossResolves reports whether an object in context a may satisfy a dependency
// declared in context b. The relation is symmetric.
func CrossResolves(a, b Identity) bool {
	return a == b || a.IsGlobal() || b.IsGlobal()
}

package binding

import (
	"fmt"
	"reflect"
	"slices"
	"strings"
)

// Binding is a declared rule describing how to locate a dependency. Values are only
// produced by Declarations.Build and never change afterwards.
type Binding struct {
	iface      reflect.Type
	concrete   reflect.Type
	collection bool
	category   Category

	search    Search
	searchSet bool
	asset     AssetSource

	ids            []string
	declaringTypes []reflect.Type
	memberNames    []string
	filters        []Filter

	indirect  bool
	index     int
	scopePath string

	// problems are builder misuse (single-assignment violations) found while declaring.
	problems []string
}

func (b *Binding) Interface() reflect.Type { return b.iface }
func (b *Binding) Concrete() reflect.Type  { return b.concrete }
func (b *Binding) Collection() bool        { return b.collection }
func (b *Binding) Category() Category      { return b.category }
func (b *Binding) Indirect() bool          { return b.indirect }
func (b *Binding) Index() int              { return b.index }
func (b *Binding) ScopePath() string       { return b.scopePath }
func (b *Binding) Asset() AssetSource      { return b.asset }

// Requested is the type injection sites ask for: the interface type when set,
// otherwise the concrete type.
func (b *Binding) Requested() reflect.Type {
	if b.iface != nil {
		return b.iface
	}
	return b.concrete
}

// Located is the type candidates must be assignable to.
func (b *Binding) Located() reflect.Type {
	if b.concrete != nil {
		return b.concrete
	}
	return b.iface
}

// Search returns the effective strategy and whether it was declared explicitly.
func (b *Binding) Search() (Search, bool) {
	if !b.searchSet {
		return DefaultSearch(), false
	}
	return b.search, true
}

func (b *Binding) IDs() []string                  { return slices.Clone(b.ids) }
func (b *Binding) DeclaringTypes() []reflect.Type { return slices.Clone(b.declaringTypes) }
func (b *Binding) MemberNames() []string          { return slices.Clone(b.memberNames) }
func (b *Binding) Filters() []Filter              { return slices.Clone(b.filters) }

// Serves reports whether the binding can answer a request for t with the given
// collection-ness. Qualifiers are checked separately.
func (b *Binding) Serves(t reflect.Type, collection bool) bool {
	if b.collection != collection {
		return false
	}
	return t != nil && t == b.Requested()
}

// MatchesID passes when the binding has no id qualifier or lists id.
func (b *Binding) MatchesID(id string) bool {
	return len(b.ids) == 0 || slices.Contains(b.ids, id)
}

// MatchesDeclaringType passes when the binding has no type qualifier, or one of its
// types equals or is assignable from the declaring type.
func (b *Binding) MatchesDeclaringType(t reflect.Type) bool {
	if len(b.declaringTypes) == 0 {
		return true
	}
	if t == nil {
		return false
	}
	for _, q := range b.declaringTypes {
		if q == t || t.AssignableTo(q) {
			return true
		}
		if t.Kind() != reflect.Pointer && reflect.PointerTo(t).AssignableTo(q) {
			return true
		}
	}
	return false
}

// MatchesMember passes when the binding has no member qualifier or lists name.
func (b *Binding) MatchesMember(name string) bool {
	return len(b.memberNames) == 0 || slices.Contains(b.memberNames, name)
}

// Qualifies combines the three qualifier checks.
func (b *Binding) Qualifies(id string, declaring reflect.Type, member string) bool {
	return b.MatchesID(id) && b.MatchesDeclaringType(declaring) && b.MatchesMember(member)
}

// Signature identifies a binding for duplicate detection: requested types, category,
// collection-ness and qualifiers. The locator strategy is not part of it.
func (b *Binding) Signature() string {
	var sb strings.Builder
	sb.WriteString(b.category.String())
	sb.WriteString("<")
	sb.WriteString(typeLabel(b.iface))
	sb.WriteString(",")
	sb.WriteString(typeLabel(b.concrete))
	sb.WriteString(">")
	if b.collection {
		sb.WriteString("[]")
	}
	writeSet(&sb, "id", sortedCopy(b.ids))
	names := make([]string, 0, len(b.declaringTypes))
	for _, t := range b.declaringTypes {
		names = append(names, TypeName(t))
	}
	writeSet(&sb, "in", sortedCopy(names))
	writeSet(&sb, "member", sortedCopy(b.memberNames))
	return sb.String()
}

// String is the human readable form used in diagnostics.
func (b *Binding) String() string {
	var sb strings.Builder
	if b.scopePath != "" {
		sb.WriteString(b.scopePath)
		sb.WriteString(": ")
	}
	sb.WriteString("Bind<")
	sb.WriteString(typeLabel(b.iface))
	if b.concrete != nil {
		sb.WriteString(" -> ")
		sb.WriteString(TypeName(b.concrete))
	}
	sb.WriteString(">")
	if b.collection {
		sb.WriteString(" many")
	}
	sb.WriteString(" ")
	sb.WriteString(b.category.String())
	switch {
	case b.indirect:
		sb.WriteString(" via indirection")
	case b.category == CategoryAsset:
		sb.WriteString(fmt.Sprintf(" load=%s", b.asset.Load))
		if b.asset.Path != "" {
			sb.WriteString(fmt.Sprintf("(%s)", b.asset.Path))
		}
	default:
		s, _ := b.Search()
		sb.WriteString(" from ")
		sb.WriteString(s.String())
	}
	writeSet(&sb, "id", b.ids)
	names := make([]string, 0, len(b.declaringTypes))
	for _, t := range b.declaringTypes {
		names = append(names, TypeName(t))
	}
	writeSet(&sb, "in", names)
	writeSet(&sb, "member", b.memberNames)
	return sb.String()
}

func typeLabel(t reflect.Type) string {
	if t == nil {
		return "_"
	}
	return t.String()
}

func writeSet(sb *strings.Builder, label string, values []string) {
	if len(values) == 0 {
		return
	}
	sb.WriteString(" ")
	sb.WriteString(label)
	sb.WriteString("=[")
	sb.WriteString(strings.Join(values, ","))
	sb.WriteString("]")
}

func sortedCopy(in []string) []string {
	out := slices.Clone(in)
	slices.Sort(out)
	return slices.Compact(out)
}

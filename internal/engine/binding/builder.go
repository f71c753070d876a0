package binding

import (
	"fmt"
	"reflect"
	"slices"
)

// Declarations collects the bindings one scope declares. It is handed to a scope's
// declaration step and frozen by Build.
type Declarations struct {
	scopePath string
	builders  []*Builder
	built     bool
}

func NewDeclarations(scopePath string) *Declarations {
	return &Declarations{scopePath: scopePath}
}

// Component starts a binding resolved by hierarchy search. t may be an interface
// (then To names the concrete type) or a concrete type.
func (d *Declarations) Component(t reflect.Type) *Builder {
	return d.start(CategoryComponent, t)
}

// Asset starts a binding resolved through the asset catalog.
func (d *Declarations) Asset(t reflect.Type) *Builder {
	return d.start(CategoryAsset, t)
}

// Global starts a binding whose located instance is promoted into the global registry.
func (d *Declarations) Global(t reflect.Type) *Builder {
	return d.start(CategoryGlobal, t)
}

func (d *Declarations) start(category Category, t reflect.Type) *Builder {
	b := &Builder{b: &Binding{category: category, scopePath: d.scopePath}, decl: d}
	if d.built {
		b.problem("binding declared after declarations were built")
	}
	if t != nil {
		if t.Kind() == reflect.Interface {
			b.b.iface = t
		} else {
			b.b.concrete = t
		}
	}
	d.builders = append(d.builders, b)
	return b
}

// Len is the number of bindings declared so far.
func (d *Declarations) Len() int {
	return len(d.builders)
}

// Build freezes the declarations and returns the bindings in declaration order.
// The returned bindings are copies; builders kept by the caller cannot reach them.
func (d *Declarations) Build() []*Binding {
	d.built = true
	out := make([]*Binding, 0, len(d.builders))
	for i, b := range d.builders {
		b.b.index = i
		out = append(out, b.b.snapshot())
	}
	return out
}

func (b *Binding) snapshot() *Binding {
	c := *b
	c.ids = slices.Clone(b.ids)
	c.declaringTypes = slices.Clone(b.declaringTypes)
	c.memberNames = slices.Clone(b.memberNames)
	c.filters = slices.Clone(b.filters)
	c.asset.Instances = slices.Clone(b.asset.Instances)
	c.problems = slices.Clone(b.problems)
	return &c
}

// Builder configures one binding. Every setter may be called once; a repeated call
// is recorded as a problem and makes the binding invalid.
type Builder struct {
	b    *Binding
	decl *Declarations
	seen map[string]bool
}

func (b *Builder) frozen(field string) bool {
	if b.decl == nil || !b.decl.built {
		return false
	}
	b.problem(fmt.Sprintf("%s assigned after declarations were built", field))
	return true
}

func (b *Builder) once(field string) bool {
	if b.frozen(field) {
		return false
	}
	if b.seen == nil {
		b.seen = make(map[string]bool)
	}
	if b.seen[field] {
		b.problem(fmt.Sprintf("%s assigned more than once", field))
		return false
	}
	b.seen[field] = true
	return true
}

func (b *Builder) problem(msg string) {
	b.b.problems = append(b.b.problems, msg)
}

// To names the concrete type located for an interface binding.
func (b *Builder) To(concrete reflect.Type) *Builder {
	if !b.once("concrete type") {
		return b
	}
	if b.b.concrete != nil {
		b.problem("concrete type already given by the bound type")
		return b
	}
	b.b.concrete = concrete
	return b
}

// Many resolves to every eligible candidate instead of exactly one.
func (b *Builder) Many() *Builder {
	if b.once("collection") {
		b.b.collection = true
	}
	return b
}

// Locate sets the hierarchy search strategy.
func (b *Builder) Locate(s Search) *Builder {
	if b.once("search") {
		b.b.search = s
		b.b.searchSet = true
	}
	return b
}

func (b *Builder) source(src AssetSource) *Builder {
	if b.once("asset source") {
		b.b.asset = src
	}
	return b
}

// LoadOne resolves the single asset at path.
func (b *Builder) LoadOne(path string) *Builder {
	return b.source(AssetSource{Load: LoadOne, Path: path})
}

// LoadAll resolves every asset stored at path.
func (b *Builder) LoadAll(path string) *Builder {
	return b.source(AssetSource{Load: LoadAll, Path: path})
}

// LoadFolder resolves every asset of the requested type under folder.
func (b *Builder) LoadFolder(folder string) *Builder {
	return b.source(AssetSource{Load: LoadFolder, Path: folder})
}

// FromInstances resolves against an explicitly supplied instance list.
func (b *Builder) FromInstances(instances ...any) *Builder {
	return b.source(AssetSource{Load: LoadInstances, Instances: append([]any(nil), instances...)})
}

// WithID restricts the binding to sites carrying one of ids.
func (b *Builder) WithID(ids ...string) *Builder {
	if b.once("id qualifier") {
		b.b.ids = append([]string(nil), ids...)
	}
	return b
}

// ForTypes restricts the binding to sites declared on (or assignable to) one of types.
func (b *Builder) ForTypes(types ...reflect.Type) *Builder {
	if b.once("type qualifier") {
		b.b.declaringTypes = append([]reflect.Type(nil), types...)
	}
	return b
}

// ForMembers restricts the binding to sites with one of the member names.
func (b *Builder) ForMembers(names ...string) *Builder {
	if b.once("member qualifier") {
		b.b.memberNames = append([]string(nil), names...)
	}
	return b
}

// Where appends filters; they run in the order they were added.
func (b *Builder) Where(filters ...Filter) *Builder {
	if b.frozen("filter") {
		return b
	}
	b.b.filters = append(b.b.filters, filters...)
	return b
}

// ViaIndirection resolves the binding through a cross-context indirection object.
func (b *Builder) ViaIndirection() *Builder {
	if b.once("indirection") {
		b.b.indirect = true
	}
	return b
}

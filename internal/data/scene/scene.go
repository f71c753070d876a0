package scene

import (
	"fmt"
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/contextid"
	"scopebind/internal/engine/locator"
	"strings"

	"github.com/BurntSushi/toml"
)

// Object is a materialized document object.
type Object struct {
	Name     string
	Members  []any
	Children []*Object
	// Kind starts a new context when Isolated is set.
	Kind     contextid.Kind
	Isolated bool
}

// Scene is a materialized document.
type Scene struct {
	Name   string
	Source string
	Roots  []*Object
	Assets []locator.Asset
}

// Build instantiates every component and asset of doc through types.
func Build(doc *Document, types *TypeRegistry) (*Scene, error) {
	if types == nil {
		return nil, fmt.Errorf("scene %s: type registry is required", doc.Name)
	}
	s := &Scene{Name: doc.Name, Source: doc.source}
	for i := range doc.Assets {
		spec := &doc.Assets[i]
		inst, err := doc.instantiate(types, spec.Type, spec.Fields)
		if err != nil {
			return nil, fmt.Errorf("scene %s: asset %s: %w", doc.Name, spec.Path, err)
		}
		s.Assets = append(s.Assets, locator.Asset{Path: strings.Trim(spec.Path, "/"), Instance: inst})
	}
	for i := range doc.Objects {
		obj, err := doc.build(&doc.Objects[i], types, doc.Objects[i].Name)
		if err != nil {
			return nil, fmt.Errorf("scene %s: %w", doc.Name, err)
		}
		s.Roots = append(s.Roots, obj)
	}
	return s, nil
}

func (d *Document) build(spec *ObjectSpec, types *TypeRegistry, path string) (*Object, error) {
	obj := &Object{Name: strings.TrimSpace(spec.Name)}
	if raw := strings.TrimSpace(spec.Context); raw != "" {
		kind, err := contextid.ParseKind(raw)
		if err != nil {
			return nil, fmt.Errorf("object %s: %w", path, err)
		}
		obj.Kind = kind
		obj.Isolated = true
	}
	if spec.Scope != nil {
		ds := &DeclaredScope{Bindings: spec.Scope.Bindings, types: types}
		for i := range ds.Bindings {
			listed := ds.Bindings[i].Instances
			if len(listed) == 0 {
				continue
			}
			if ds.instances == nil {
				ds.instances = make(map[int][]any)
			}
			for _, c := range listed {
				inst, err := d.instantiate(types, c.Type, c.Fields)
				if err != nil {
					return nil, fmt.Errorf("object %s: binding #%d: instance %s: %w", path, i, c.Type, err)
				}
				ds.instances[i] = append(ds.instances[i], inst)
			}
		}
		obj.Members = append(obj.Members, ds)
	}
	for j := range spec.Components {
		c := &spec.Components[j]
		inst, err := d.instantiate(types, c.Type, c.Fields)
		if err != nil {
			return nil, fmt.Errorf("object %s: component %s: %w", path, c.Type, err)
		}
		obj.Members = append(obj.Members, inst)
	}
	for j := range spec.Children {
		child := &spec.Children[j]
		built, err := d.build(child, types, path+"/"+child.Name)
		if err != nil {
			return nil, err
		}
		obj.Children = append(obj.Children, built)
	}
	return obj, nil
}

func (d *Document) instantiate(types *TypeRegistry, name string, fields toml.Primitive) (any, error) {
	inst, err := types.New(name)
	if err != nil {
		return nil, err
	}
	if err := d.md.PrimitiveDecode(fields, inst); err != nil {
		return nil, fmt.Errorf("decode fields: %w", err)
	}
	return inst, nil
}

// RootObjects returns the roots in the form hierarchy.Project expects.
func (s *Scene) RootObjects() []any {
	out := make([]any, 0, len(s.Roots))
	for _, r := range s.Roots {
		out = append(out, r)
	}
	return out
}

// Walker exposes the scene through hierarchy.Provider and hierarchy.Classifier.
func (s *Scene) Walker() Walker {
	return Walker{scene: s.Name}
}

// Walker walks Objects. Shared contexts are keyed by scene name, the other kinds
// by scene name and object path.
type Walker struct {
	scene string
}

func (Walker) Name(obj any) string { return obj.(*Object).Name }

func (Walker) Children(obj any) []any {
	o := obj.(*Object)
	out := make([]any, 0, len(o.Children))
	for _, c := range o.Children {
		out = append(out, c)
	}
	return out
}

func (Walker) Members(obj any) []any {
	return obj.(*Object).Members
}

// Classify puts roots without an explicit kind into the scene's shared context.
func (w Walker) Classify(obj any, path string, parent *contextid.Identity) contextid.Identity {
	o := obj.(*Object)
	if !o.Isolated {
		if parent != nil {
			return *parent
		}
		return contextid.New(contextid.KindShared, w.scene)
	}
	switch o.Kind {
	case contextid.KindGlobal:
		return contextid.Global()
	case contextid.KindShared:
		return contextid.New(contextid.KindShared, w.scene)
	default:
		return contextid.New(o.Kind, w.scene+":"+path)
	}
}

// DeclaredScope replays document bindings through the binding builder. Unknown
// type names and malformed strategies fail the declaration step.
type DeclaredScope struct {
	Bindings  []BindingSpec
	types     *TypeRegistry
	// instances holds the built instance lists keyed by binding position.
	instances map[int][]any
}

func (s *DeclaredScope) DeclareBindings(d *binding.Declarations) error {
	for i := range s.Bindings {
		if err := s.declare(d, i); err != nil {
			return fmt.Errorf("binding #%d: %w", i, err)
		}
	}
	return nil
}

func (s *DeclaredScope) declare(d *binding.Declarations, i int) error {
	spec := &s.Bindings[i]
	t, err := s.types.Lookup(spec.Type)
	if err != nil {
		return err
	}

	var b *binding.Builder
	switch strings.ToLower(strings.TrimSpace(spec.Category)) {
	case "", "component":
		b = d.Component(t)
	case "asset":
		b = d.Asset(t)
	case "global":
		b = d.Global(t)
	default:
		return fmt.Errorf("unknown category %q", spec.Category)
	}

	if spec.To != "" {
		concrete, err := s.types.Lookup(spec.To)
		if err != nil {
			return err
		}
		b.To(concrete)
	}
	if spec.Many {
		b.Many()
	}
	if search, ok, err := spec.search(); err != nil {
		return err
	} else if ok {
		b.Locate(search)
	}
	switch strings.ToLower(strings.TrimSpace(spec.Load)) {
	case "":
	case "one":
		b.LoadOne(spec.Path)
	case "all":
		b.LoadAll(spec.Path)
	case "folder":
		b.LoadFolder(spec.Path)
	case "instances":
		b.FromInstances(s.instances[i]...)
	default:
		return fmt.Errorf("unknown asset load %q", spec.Load)
	}
	if len(spec.IDs) > 0 {
		b.WithID(spec.IDs...)
	}
	if len(spec.ForTypes) > 0 {
		declaring, err := s.types.LookupAll(spec.ForTypes)
		if err != nil {
			return err
		}
		b.ForTypes(declaring...)
	}
	if len(spec.Members) > 0 {
		b.ForMembers(spec.Members...)
	}
	if len(spec.Filters) > 0 {
		filters := make([]binding.Filter, 0, len(spec.Filters))
		for _, fs := range spec.Filters {
			f, err := BuildFilter(fs, s.types)
			if err != nil {
				return err
			}
			filters = append(filters, f)
		}
		b.Where(filters...)
	}
	if spec.Indirect {
		b.ViaIndirection()
	}
	return nil
}

// search reports the explicit strategy of spec, if any.
func (spec *BindingSpec) search() (binding.Search, bool, error) {
	rawOrigin := strings.TrimSpace(spec.Origin)
	rawDirection := strings.TrimSpace(spec.Direction)
	if rawOrigin == "" && rawDirection == "" && spec.Node == "" && spec.ChildIndex == nil {
		return binding.Search{}, false, nil
	}

	origin := binding.OriginScope
	if spec.Node != "" {
		origin = binding.OriginNamed
	}
	if rawOrigin != "" {
		o, err := binding.ParseOrigin(rawOrigin)
		if err != nil {
			return binding.Search{}, false, err
		}
		origin = o
	}
	direction := binding.DirectionDescendants
	if spec.ChildIndex != nil {
		direction = binding.DirectionChildAt
	}
	if rawDirection != "" {
		dir, err := binding.ParseDirection(rawDirection)
		if err != nil {
			return binding.Search{}, false, err
		}
		direction = dir
	}
	if spec.ChildIndex != nil && direction != binding.DirectionChildAt {
		return binding.Search{}, false, fmt.Errorf("child_index needs direction %q, got %q", binding.DirectionChildAt, direction)
	}

	search := binding.SearchFrom(origin, direction)
	if origin == binding.OriginNamed {
		if spec.Node == "" {
			return binding.Search{}, false, fmt.Errorf("named origin needs a node path")
		}
		search = search.Named(spec.Node)
	}
	if spec.ChildIndex != nil {
		search = search.At(*spec.ChildIndex)
	}
	if spec.IncludeSelf {
		search = search.WithSelf()
	}
	return search, true, nil
}

// Package introspect discovers injection sites on Go values with reflection and
// writes resolved values back into them.
//
// A struct field becomes a site when it carries an inject tag:
//
//	Logger   Logger   `inject:""`
//	Spawners []Spawner `inject:"id=enemies,optional"`
//
// Every exported method whose name starts with "Inject" becomes one site per
// parameter; the method is invoked once all of its parameters resolved.
package introspect

import (
	"reflect"
	"scopebind/internal/engine/hierarchy"
	"strings"
	"sync"
)

// TagName is the struct tag marking injected fields.
const TagName = "inject"

// MethodPrefix marks injected methods.
const MethodPrefix = "Inject"

// FieldTarget addresses a (possibly promoted) struct field.
type FieldTarget struct {
	Index    []int
	Exported bool
}

// ParamTarget addresses one parameter of an injected method.
type ParamTarget struct {
	Method string
	Param  int
	Arity  int
}

// Inspector implements hierarchy.SiteInspector. Results are cached per type.
type Inspector struct {
	mu    sync.Mutex
	cache map[reflect.Type][]hierarchy.SiteSpec
}

func NewInspector() *Inspector {
	return &Inspector{cache: make(map[reflect.Type][]hierarchy.SiteSpec)}
}

func (in *Inspector) Sites(member any) []hierarchy.SiteSpec {
	if member == nil {
		return nil
	}
	t := reflect.TypeOf(member)
	in.mu.Lock()
	defer in.mu.Unlock()
	specs, ok := in.cache[t]
	if !ok {
		specs = inspect(t)
		in.cache[t] = specs
	}
	return specs
}

func inspect(t reflect.Type) []hierarchy.SiteSpec {
	declaring := t
	if t.Kind() == reflect.Pointer {
		declaring = t.Elem()
	}

	var specs []hierarchy.SiteSpec
	if t.Kind() == reflect.Pointer && declaring.Kind() == reflect.Struct {
		for _, f := range reflect.VisibleFields(declaring) {
			raw, ok := f.Tag.Lookup(TagName)
			if !ok {
				continue
			}
			id, optional := parseTag(raw)
			elem, collection := unwrap(f.Type)
			specs = append(specs, hierarchy.SiteSpec{
				Kind:          hierarchy.SiteField,
				DeclaringType: declaring,
				MemberName:    f.Name,
				Type:          elem,
				Collection:    collection,
				ID:            id,
				Optional:      optional,
				Target:        FieldTarget{Index: f.Index, Exported: f.IsExported()},
			})
		}
	}

	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if !strings.HasPrefix(m.Name, MethodPrefix) {
			continue
		}
		// In receives the receiver as parameter 0.
		arity := m.Type.NumIn() - 1
		for p := 0; p < arity; p++ {
			elem, collection := unwrap(m.Type.In(p + 1))
			specs = append(specs, hierarchy.SiteSpec{
				Kind:          hierarchy.SiteMethodParam,
				DeclaringType: declaring,
				MemberName:    m.Name,
				Type:          elem,
				Collection:    collection,
				Target:        ParamTarget{Method: m.Name, Param: p, Arity: arity},
			})
		}
	}
	return specs
}

func parseTag(raw string) (id string, optional bool) {
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "optional":
			optional = true
		case strings.HasPrefix(part, "id="):
			id = strings.TrimSpace(strings.TrimPrefix(part, "id="))
		}
	}
	return id, optional
}

// unwrap returns the element type of slices and arrays.
func unwrap(t reflect.Type) (reflect.Type, bool) {
	switch t.Kind() {
	case reflect.Slice, reflect.Array:
		return t.Elem(), true
	default:
		return t, false
	}
}

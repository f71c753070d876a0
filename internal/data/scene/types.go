package scene

import (
	"fmt"
	"reflect"
	"scopebind/internal/engine/binding"
	"sort"
	"strings"
	"sync"
)

// TypeRegistry maps the type names used in scene documents to Go types.
type TypeRegistry struct {
	mu    sync.RWMutex
	types map[string]reflect.Type
}

func NewTypeRegistry() *TypeRegistry {
	return &TypeRegistry{types: make(map[string]reflect.Type)}
}

// Register adds types under their printed names. A pointer type also registers its
// element type so documents may name either form.
func (r *TypeRegistry) Register(types ...reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range types {
		if t == nil {
			continue
		}
		r.types[binding.TypeName(t)] = t
		if t.Kind() == reflect.Pointer {
			r.types[binding.TypeName(t.Elem())] = t.Elem()
		}
	}
}

// RegisterValues registers the dynamic types of samples.
func (r *TypeRegistry) RegisterValues(samples ...any) {
	types := make([]reflect.Type, 0, len(samples))
	for _, s := range samples {
		types = append(types, reflect.TypeOf(s))
	}
	r.Register(types...)
}

// Alias registers t under an additional name.
func (r *TypeRegistry) Alias(name string, t reflect.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[strings.TrimSpace(name)] = t
}

// Lookup returns the type registered under name.
func (r *TypeRegistry) Lookup(name string) (reflect.Type, error) {
	name = strings.TrimSpace(name)
	r.mu.RLock()
	t, ok := r.types[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown type %q", name)
	}
	return t, nil
}

// LookupAll resolves every name, failing on the first unknown one.
func (r *TypeRegistry) LookupAll(names []string) ([]reflect.Type, error) {
	out := make([]reflect.Type, 0, len(names))
	for _, name := range names {
		t, err := r.Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// New allocates a zero instance of the named type. Struct types and pointers to
// structs both yield a pointer so decoded field values stay addressable.
func (r *TypeRegistry) New(name string) (any, error) {
	t, err := r.Lookup(name)
	if err != nil {
		return nil, err
	}
	switch {
	case t.Kind() == reflect.Pointer:
		return reflect.New(t.Elem()).Interface(), nil
	case t.Kind() == reflect.Interface:
		return nil, fmt.Errorf("type %q is an interface and cannot be instantiated", name)
	default:
		return reflect.New(t).Interface(), nil
	}
}

// Names lists registered names in sorted order.
func (r *TypeRegistry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for name := range r.types {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

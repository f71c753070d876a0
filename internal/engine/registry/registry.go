// Package registry is the process-wide store of instances promoted by global
// bindings. Every registration is owned by the scope that made it and is released
// when that scope is torn down.
package registry

import (
	"fmt"
	"reflect"
	"scopebind/internal/core/errors"
	"scopebind/internal/engine/contextid"
	"sync"
)

type entry struct {
	instance any
	owner    any
	context  contextid.Identity
}

// Registry guards its entries with a single mutex so that only one writer mutates
// it at a time.
type Registry struct {
	mu      sync.Mutex
	entries []entry
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the process-wide registry.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultRegistry = New()
	})
	return defaultRegistry
}

// New returns an empty registry, mainly for tests and embedded hosts.
func New() *Registry {
	return &Registry{}
}

// Register records instance as owned by owner inside ctx. Registering the same
// instance twice with the same owner is a no-op; registering it under a different
// owner is a conflict.
func (r *Registry) Register(instance, owner any, ctx contextid.Identity) error {
	if instance == nil {
		return errors.New(errors.CodeValidationError, "cannot register a nil instance")
	}
	if owner == nil || !reflect.TypeOf(owner).Comparable() {
		return errors.New(errors.CodeValidationError, "registration requires a comparable owner")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if i := r.indexOf(instance); i >= 0 {
		if sameInstance(r.entries[i].owner, owner) {
			return nil
		}
		err := errors.New(errors.CodeConflict, fmt.Sprintf("%T is already registered by another owner", instance))
		return errors.AddContext(err, errors.CtxType, fmt.Sprintf("%T", instance))
	}
	r.entries = append(r.entries, entry{instance: instance, owner: owner, context: ctx})
	return nil
}

// Unregister removes a registration. Removing something that is not registered is
// a no-op; removing another owner's registration is denied.
func (r *Registry) Unregister(instance, owner any) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(instance)
	if i < 0 {
		return nil
	}
	if !sameInstance(r.entries[i].owner, owner) {
		return errors.New(errors.CodePermissionDenied, fmt.Sprintf("%T was registered by another owner", instance))
	}
	r.entries = append(r.entries[:i], r.entries[i+1:]...)
	return nil
}

// Release drops every registration made by owner and returns how many were removed.
func (r *Registry) Release(owner any) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	kept := r.entries[:0]
	removed := 0
	for _, e := range r.entries {
		if sameInstance(e.owner, owner) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	clear(r.entries[len(kept):])
	r.entries = kept
	return removed
}

// Get returns the first instance assignable to t registered from ctx. Instances
// registered from the global context are visible everywhere and are used when ctx
// has no registration of its own.
func (r *Registry) Get(t reflect.Type, ctx contextid.Identity) (any, bool) {
	if t == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var fallback any
	for _, e := range r.entries {
		if !reflect.TypeOf(e.instance).AssignableTo(t) {
			continue
		}
		if e.context == ctx {
			return e.instance, true
		}
		if fallback == nil && e.context.IsGlobal() {
			fallback = e.instance
		}
	}
	return fallback, fallback != nil
}

// Find returns the first instance assignable to t regardless of context.
func (r *Registry) Find(t reflect.Type) (any, bool) {
	if t == nil {
		return nil, false
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		if reflect.TypeOf(e.instance).AssignableTo(t) {
			return e.instance, true
		}
	}
	return nil, false
}

// Len reports the number of live registrations.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) indexOf(instance any) int {
	for i, e := range r.entries {
		if sameInstance(e.instance, instance) {
			return i
		}
	}
	return -1
}

// sameInstance compares by identity for pointer-shaped values and by value
// otherwise. Values whose dynamic contents cannot be compared are never equal.
func sameInstance(a, b any) (same bool) {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || ta == nil {
		return false
	}
	if !ta.Comparable() {
		return false
	}
	switch ta.Kind() {
	case reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return a == b
	}
	defer func() {
		if recover() != nil {
			same = false
		}
	}()
	return a == b
}

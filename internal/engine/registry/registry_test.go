package registry

import (
	"reflect"
	"scopebind/internal/core/errors"
	"scopebind/internal/engine/contextid"
	"testing"
)

type clock interface{ Now() int }

type fixedClock struct{ at int }

func (c *fixedClock) Now() int { return c.at }

var clockType = reflect.TypeOf((*clock)(nil)).Elem()

type owner struct{ name string }

func TestRegistry_RegisterIsIdempotentPerOwner(t *testing.T) {
	r := New()
	a := &owner{name: "a"}
	inst := &fixedClock{at: 1}
	ctx := contextid.New(contextid.KindShared, "level")

	if err := r.Register(inst, a, ctx); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := r.Register(inst, a, ctx); err != nil {
		t.Fatalf("second register by same owner: %v", err)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 registration, got %d", r.Len())
	}

	err := r.Register(inst, &owner{name: "b"}, ctx)
	if !errors.IsCode(err, errors.CodeConflict) {
		t.Fatalf("expected conflict for foreign owner, got %v", err)
	}
}

func TestRegistry_UnregisterIsOwnerChecked(t *testing.T) {
	r := New()
	a, b := &owner{name: "a"}, &owner{name: "b"}
	inst := &fixedClock{}
	if err := r.Register(inst, a, contextid.Global()); err != nil {
		t.Fatalf("register: %v", err)
	}

	if err := r.Unregister(inst, b); !errors.IsCode(err, errors.CodePermissionDenied) {
		t.Fatalf("expected permission denied, got %v", err)
	}
	if err := r.Unregister(inst, a); err != nil {
		t.Fatalf("unregister by owner: %v", err)
	}
	if err := r.Unregister(inst, a); err != nil {
		t.Fatalf("unregister twice should be a no-op, got %v", err)
	}
	if r.Len() != 0 {
		t.Fatalf("expected empty registry, got %d", r.Len())
	}
}

func TestRegistry_GetPrefersOwnContext(t *testing.T) {
	r := New()
	left := contextid.New(contextid.KindIndependent, "Left")
	right := contextid.New(contextid.KindIndependent, "Right")
	leftClock, rightClock, globalClock := &fixedClock{at: 1}, &fixedClock{at: 2}, &fixedClock{at: 3}

	mustRegister(t, r, globalClock, &owner{"g"}, contextid.Global())
	mustRegister(t, r, leftClock, &owner{"l"}, left)
	mustRegister(t, r, rightClock, &owner{"r"}, right)

	tests := []struct {
		ctx  contextid.Identity
		want *fixedClock
	}{
		{left, leftClock},
		{right, rightClock},
		{contextid.New(contextid.KindShared, "other"), globalClock},
	}
	for _, tt := range tests {
		got, ok := r.Get(clockType, tt.ctx)
		if !ok || got != tt.want {
			t.Errorf("Get(%s) = %v, %v; want %v", tt.ctx, got, ok, tt.want)
		}
	}
}

func TestRegistry_FindIgnoresContext(t *testing.T) {
	r := New()
	if _, ok := r.Find(clockType); ok {
		t.Fatal("expected empty registry to find nothing")
	}
	inst := &fixedClock{at: 4}
	mustRegister(t, r, inst, &owner{"l"}, contextid.New(contextid.KindIndependent, "Left"))

	got, ok := r.Find(clockType)
	if !ok || got != inst {
		t.Fatalf("Find = %v, %v; want %v", got, ok, inst)
	}
	if _, ok := r.Get(clockType, contextid.New(contextid.KindIndependent, "Right")); ok {
		t.Fatal("Get must not cross into another independent context")
	}
}

func TestRegistry_ReleaseDropsOwnerEntries(t *testing.T) {
	r := New()
	a := &owner{name: "a"}
	mustRegister(t, r, &fixedClock{}, a, contextid.Global())
	mustRegister(t, r, &fixedClock{}, a, contextid.Global())
	mustRegister(t, r, &fixedClock{}, &owner{name: "b"}, contextid.Global())

	if n := r.Release(a); n != 2 {
		t.Fatalf("expected 2 released, got %d", n)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", r.Len())
	}
}

func TestRegistry_RejectsNilAndUncomparableOwner(t *testing.T) {
	r := New()
	if err := r.Register(nil, &owner{}, contextid.Global()); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error for nil instance, got %v", err)
	}
	if err := r.Register(&fixedClock{}, []string{"x"}, contextid.Global()); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error for slice owner, got %v", err)
	}
}

type tagged struct {
	Name  string
	Extra any
}

func TestRegistry_UncomparableContentsAreDistinct(t *testing.T) {
	r := New()
	o := &owner{name: "a"}
	inst := tagged{Name: "x", Extra: []int{1}}

	mustRegister(t, r, inst, o, contextid.Global())
	mustRegister(t, r, inst, o, contextid.Global())
	if r.Len() != 2 {
		t.Fatalf("expected uncomparable values to register separately, got %d", r.Len())
	}
	if err := r.Unregister(inst, o); err != nil {
		t.Fatalf("Unregister: %v", err)
	}
	if err := r.Register(&fixedClock{}, tagged{Name: "owner", Extra: map[string]int{}}, contextid.Global()); err != nil {
		t.Fatalf("Register with uncomparable owner contents: %v", err)
	}
	if n := r.Release(o); n != 2 {
		t.Fatalf("expected both value registrations released, got %d", n)
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 remaining, got %d", r.Len())
	}
}

func TestDefault_IsSingleton(t *testing.T) {
	if Default() != Default() {
		t.Fatal("expected Default to return the same registry")
	}
}

func mustRegister(t *testing.T, r *Registry, inst, owner any, ctx contextid.Identity) {
	t.Helper()
	if err := r.Register(inst, owner, ctx); err != nil {
		t.Fatalf("register %T: %v", inst, err)
	}
}

package resolver

import (
	"context"
	"errors"
	"reflect"
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/contextid"
	"scopebind/internal/engine/enginetest"
	"scopebind/internal/engine/hierarchy"
	"scopebind/internal/engine/indirection"
	"scopebind/internal/engine/introspect"
	"scopebind/internal/engine/registry"
	"strings"
	"testing"
)

type Foo interface {
	Name() string
}

type Concrete struct {
	name string
}

func (c *Concrete) Name() string {
	return c.name
}

type Consumer struct {
	Foo Foo `inject:""`
}

type OptionalConsumer struct {
	Foo Foo `inject:"optional"`
}

type IDConsumer struct {
	Foo Foo `inject:"id=special"`
}

type ManyConsumer struct {
	All []Foo `inject:""`
}

type HiddenConsumer struct {
	foo Foo `inject:""`
}

type MethodConsumer struct {
	first Foo
	all   []Foo
	calls int
}

func (m *MethodConsumer) InjectDeps(first Foo, all []Foo) {
	m.first = first
	m.all = all
	m.calls++
}

var (
	fooType      = binding.TypeOf[Foo]()
	concreteType = binding.TypeOf[*Concrete]()
)

func scope(fn func(d *binding.Declarations)) *enginetest.Scope {
	return &enginetest.Scope{Declare: fn}
}

func bindFoo(search binding.Search) func(d *binding.Declarations) {
	return func(d *binding.Declarations) {
		d.Component(fooType).To(concreteType).Locate(search)
	}
}

type harness struct {
	opts Options
	deps Deps
}

func (h harness) run(t *testing.T, roots ...*enginetest.Object) *Summary {
	t.Helper()
	if h.deps.Registry == nil {
		h.deps.Registry = registry.New()
	}
	tree := enginetest.Project(t, true, introspect.NewInspector(), roots...)
	summary, err := New(h.deps, h.opts).Run(context.Background(), tree)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	return summary
}

func name(f Foo) string {
	if f == nil {
		return "<nil>"
	}
	return f.Name()
}

func diagnosticClasses(s *Summary) []Class {
	out := make([]Class, 0, len(s.Diagnostics))
	for _, d := range s.Diagnostics {
		out = append(out, d.Class)
	}
	return out
}

func TestRun_NearestScopeWins(t *testing.T) {
	self := binding.SearchFrom(binding.OriginScope, binding.DirectionSelf)
	inner := &Consumer{}
	outer := &Consumer{}
	root := enginetest.Obj("Root", scope(bindFoo(self)), &Concrete{"root"}, outer).With(
		enginetest.Obj("Child", scope(bindFoo(self)), &Concrete{"child"}).With(
			enginetest.Obj("Leaf", inner),
		),
	)

	s := harness{}.run(t, root)
	if name(inner.Foo) != "child" {
		t.Fatalf("expected nearest scope to win, got %s", name(inner.Foo))
	}
	if name(outer.Foo) != "root" {
		t.Fatalf("expected root scope for root consumer, got %s", name(outer.Foo))
	}
	if s.FieldsInjected != 2 || s.HasErrors() {
		t.Fatalf("unexpected summary: %+v", s.Diagnostics)
	}
}

func TestRun_FirstMatchingBindingInDeclarationOrder(t *testing.T) {
	c := &Consumer{}
	root := enginetest.Obj("Root", scope(func(d *binding.Declarations) {
		d.Component(fooType).To(concreteType).Locate(binding.SearchFrom(binding.OriginScope, binding.DirectionFirstChild))
		d.Component(fooType).To(concreteType).ForMembers("Other").Locate(binding.SearchFrom(binding.OriginScope, binding.DirectionLastChild))
	}), c).With(
		enginetest.Obj("First", &Concrete{"first"}),
		enginetest.Obj("Last", &Concrete{"last"}),
	)

	s := harness{}.run(t, root)
	if name(c.Foo) != "first" {
		t.Fatalf("expected first declared binding, got %s", name(c.Foo))
	}
	if len(s.Unused()) != 1 {
		t.Fatalf("expected the second binding to be unused, got %v", s.Unused())
	}
}

func TestRun_QualifiersOnlyNarrow(t *testing.T) {
	consumerType := reflect.TypeOf(Consumer{})
	otherType := reflect.TypeOf(ManyConsumer{})

	tests := []struct {
		name      string
		qualify   func(b *binding.Builder)
		wantMatch bool
	}{
		{"no qualifiers", func(*binding.Builder) {}, true},
		{"matching id", func(b *binding.Builder) { b.WithID("") }, true},
		{"other id", func(b *binding.Builder) { b.WithID("special") }, false},
		{"matching declaring type", func(b *binding.Builder) { b.ForTypes(consumerType) }, true},
		{"pointer declaring type", func(b *binding.Builder) { b.ForTypes(reflect.PointerTo(consumerType)) }, true},
		{"other declaring type", func(b *binding.Builder) { b.ForTypes(otherType) }, false},
		{"matching member", func(b *binding.Builder) { b.ForMembers("Foo", "Bar") }, true},
		{"other member", func(b *binding.Builder) { b.ForMembers("Bar") }, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Consumer{}
			root := enginetest.Obj("Root", scope(func(d *binding.Declarations) {
				tt.qualify(d.Component(fooType).To(concreteType))
			}), &Concrete{"x"}, c)

			s := harness{}.run(t, root)
			if got := c.Foo != nil; got != tt.wantMatch {
				t.Fatalf("expected match=%v, got %v (%v)", tt.wantMatch, got, s.Diagnostics)
			}
			if !tt.wantMatch && s.Count(ClassMissingBinding) != 1 {
				t.Fatalf("expected MissingBinding, got %v", diagnosticClasses(s))
			}
		})
	}
}

func TestRun_QualifiedChildFallsBackToParent(t *testing.T) {
	self := binding.SearchFrom(binding.OriginScope, binding.DirectionSelf)
	plain, special := &Consumer{}, &IDConsumer{}
	root := enginetest.Obj("Root", scope(bindFoo(self)), &Concrete{"root"}).With(
		enginetest.Obj("Child", scope(func(d *binding.Declarations) {
			d.Component(fooType).To(concreteType).WithID("special").Locate(self)
		}), &Concrete{"child"}, plain, special),
	)

	harness{}.run(t, root)
	if name(special.Foo) != "child" || name(plain.Foo) != "root" {
		t.Fatalf("unexpected resolution special=%s plain=%s", name(special.Foo), name(plain.Foo))
	}
}

// A root scope binds Foo from its descendants; the concrete instance sits three
// levels down in one branch and the consumer in another.
func TestRun_DescendantSearchFromRootScope(t *testing.T) {
	c := &Consumer{}
	root := enginetest.Obj("Root", scope(bindFoo(binding.SearchFrom(binding.OriginScope, binding.DirectionDescendants)))).With(
		enginetest.Obj("A").With(enginetest.Obj("B").With(enginetest.Obj("C", &Concrete{"deep"}))),
		enginetest.Obj("Sibling", c),
	)
	s := harness{}.run(t, root)
	if name(c.Foo) != "deep" || s.HasErrors() {
		t.Fatalf("expected deep instance, got %s (%v)", name(c.Foo), s.Diagnostics)
	}
}

func TestRun_InstanceOutsideScopeSubtree(t *testing.T) {
	c := &Consumer{}
	root := enginetest.Obj("Root").With(
		enginetest.Obj("A").With(enginetest.Obj("B").With(enginetest.Obj("C", &Concrete{"deep"}))),
		enginetest.Obj("Sibling", scope(bindFoo(binding.SearchFrom(binding.OriginScope, binding.DirectionDescendants)))).With(
			enginetest.Obj("Consumer", c),
		),
	)
	s := harness{}.run(t, root)
	if c.Foo != nil {
		t.Fatalf("expected no injection, got %s", name(c.Foo))
	}
	errs := s.Errors()
	if len(errs) != 1 || errs[0].Class != ClassMissingDependency {
		t.Fatalf("expected a single MissingDependency, got %v", errs)
	}
	if len(errs[0].Rejected) != 0 {
		t.Fatalf("expected no context rejections, got %v", errs[0].Rejected)
	}
}

func TestRun_ContextRejectionsAreReported(t *testing.T) {
	c := &Consumer{}
	root := enginetest.Obj("Root", scope(bindFoo(binding.DefaultSearch())), c).With(
		enginetest.Obj("Instance", &Concrete{"foreign"}).In(contextid.KindIndependent),
	)
	s := harness{}.run(t, root)
	errs := s.Errors()
	if len(errs) != 1 || errs[0].Class != ClassMissingDependency {
		t.Fatalf("expected MissingDependency, got %v", errs)
	}
	if want := []string{"*resolver.Concrete"}; !reflect.DeepEqual(errs[0].Rejected, want) {
		t.Fatalf("expected rejected %v, got %v", want, errs[0].Rejected)
	}
}

func TestRun_SiblingHierarchiesKeepTheirOwnGlobals(t *testing.T) {
	reg := registry.New()
	build := func(label string, c *Consumer) *enginetest.Object {
		return enginetest.Obj(label, scope(func(d *binding.Declarations) {
			d.Global(fooType).To(concreteType)
		}), &Concrete{label}, c).In(contextid.KindIndependent)
	}
	left, right := &Consumer{}, &Consumer{}

	s := harness{deps: Deps{Registry: reg}}.run(t, build("Left", left), build("Right", right))
	if name(left.Foo) != "Left" || name(right.Foo) != "Right" {
		t.Fatalf("expected own globals, got left=%s right=%s", name(left.Foo), name(right.Foo))
	}
	if s.GlobalRegistrations != 2 {
		t.Fatalf("expected 2 registrations, got %d", s.GlobalRegistrations)
	}
	if reg.Len() != 0 {
		t.Fatalf("expected registrations to be released, %d left", reg.Len())
	}
	if len(s.Unused()) != 0 {
		t.Fatalf("registered globals count as used, got %v", s.Unused())
	}
}

func TestRun_MissingGlobalObject(t *testing.T) {
	c := &Consumer{}
	root := enginetest.Obj("Root", scope(func(d *binding.Declarations) {
		d.Global(fooType).To(concreteType).Locate(binding.SearchFrom(binding.OriginScope, binding.DirectionParent))
	}), c)
	s := harness{}.run(t, root)
	if s.Count(ClassMissingGlobalObject) != 1 || c.Foo != nil {
		t.Fatalf("expected MissingGlobalObject, got %v", diagnosticClasses(s))
	}
}

func TestRun_GlobalRegistrationConflictIsReported(t *testing.T) {
	reg := registry.New()
	shared := &Concrete{"shared"}
	if err := reg.Register(shared, "host", contextid.Global()); err != nil {
		t.Fatalf("seed registry: %v", err)
	}
	root := enginetest.Obj("Root", scope(func(d *binding.Declarations) {
		d.Global(fooType).To(concreteType)
	}), shared)

	s := harness{deps: Deps{Registry: reg}}.run(t, root)
	if s.Count(ClassMissingGlobalObject) != 1 {
		t.Fatalf("expected the conflict as MissingGlobalObject, got %v", diagnosticClasses(s))
	}
	if d := s.Diagnostics[0]; d.Scope != "Root" || !strings.Contains(d.Message, "another owner") {
		t.Fatalf("unexpected diagnostic %+v", d)
	}
	if s.GlobalRegistrations != 0 {
		t.Fatalf("expected no registrations, got %d", s.GlobalRegistrations)
	}
	if len(s.Unused()) != 0 {
		t.Fatalf("rejected global must not be reported unused, got %v", s.Unused())
	}
	if reg.Len() != 1 {
		t.Fatalf("expected the foreign registration to survive, got %d", reg.Len())
	}
}

func TestRun_MissingBindingAndOptionalSuppression(t *testing.T) {
	required, optional := &Consumer{}, &OptionalConsumer{}
	root := enginetest.Obj("Root", required, optional)

	s := harness{}.run(t, root)
	if got := diagnosticClasses(s); !reflect.DeepEqual(got, []Class{ClassMissingBinding}) {
		t.Fatalf("expected only the required site to be reported, got %v", got)
	}
	if s.Diagnostics[0].Site != "Root:resolver.Consumer.Foo" {
		t.Fatalf("unexpected site label %q", s.Diagnostics[0].Site)
	}
	if s.SitesVisited != 2 || s.FieldsInjected != 0 {
		t.Fatalf("unexpected counts %+v", s)
	}
}

func TestRun_CollectionsAndEmptyPolicy(t *testing.T) {
	many := &ManyConsumer{}
	root := enginetest.Obj("Root", scope(func(d *binding.Declarations) {
		d.Component(fooType).To(concreteType).Many()
	}), many).With(
		enginetest.Obj("A", &Concrete{"a"}),
		enginetest.Obj("B", &Concrete{"b"}),
	)
	harness{}.run(t, root)
	if len(many.All) != 2 || many.All[0].Name() != "a" || many.All[1].Name() != "b" {
		t.Fatalf("unexpected collection %v", many.All)
	}

	emptyTree := func(c *ManyConsumer) *enginetest.Object {
		return enginetest.Obj("Root", scope(func(d *binding.Declarations) {
			d.Component(fooType).To(concreteType).Many()
		}), c)
	}

	strict := &ManyConsumer{All: []Foo{&Concrete{"stale"}}}
	s := harness{opts: Options{EmptyCollection: EmptyCollectionError}}.run(t, emptyTree(strict))
	if s.Count(ClassMissingDependencies) != 1 {
		t.Fatalf("expected MissingDependencies, got %v", diagnosticClasses(s))
	}
	if strict.All == nil || len(strict.All) != 0 {
		t.Fatalf("expected empty collection to be written, got %v", strict.All)
	}

	lenient := &ManyConsumer{}
	s = harness{opts: Options{EmptyCollection: EmptyCollectionAllow}}.run(t, emptyTree(lenient))
	if s.HasErrors() || lenient.All == nil {
		t.Fatalf("expected silent empty collection, got %v / %v", s.Diagnostics, lenient.All)
	}
}

func TestRun_UnusedBindingsReportedOnce(t *testing.T) {
	c := &Consumer{}
	root := enginetest.Obj("Root", scope(func(d *binding.Declarations) {
		d.Component(fooType).To(concreteType)
		d.Component(fooType).To(concreteType).Many()
		d.Asset(fooType).To(concreteType).FromInstances(&Concrete{"asset"}).WithID("never")
	}), c, &Concrete{"x"}).With(
		enginetest.Obj("Child", scope(func(d *binding.Declarations) {
			d.Component(concreteType)
		})),
	)

	s := harness{}.run(t, root)
	unused := s.Unused()
	if len(unused) != 3 {
		t.Fatalf("expected 3 unused bindings, got %v", unused)
	}
	seen := make(map[string]bool)
	for _, d := range unused {
		if seen[d.Binding] {
			t.Fatalf("binding %s reported twice", d.Binding)
		}
		seen[d.Binding] = true
		if d.Severity != SeverityWarning {
			t.Fatalf("unused bindings are warnings, got %v", d.Severity)
		}
	}

	s = harness{opts: Options{SkipUnused: true}}.run(t, root)
	if len(s.Unused()) != 0 {
		t.Fatalf("expected no unused warnings, got %v", s.Unused())
	}
}

func TestRun_InvalidAndDuplicateBindingsAreExcluded(t *testing.T) {
	c := &Consumer{}
	root := enginetest.Obj("Root", scope(func(d *binding.Declarations) {
		d.Component(fooType).To(concreteType).ViaIndirection().Locate(binding.DefaultSearch())
		d.Component(fooType).To(concreteType)
		d.Component(fooType).To(concreteType)
	}), c, &Concrete{"x"})

	s := harness{}.run(t, root)
	if s.Count(ClassInvalidBinding) != 2 {
		t.Fatalf("expected invalid and duplicate bindings, got %v", s.Diagnostics)
	}
	if name(c.Foo) != "x" {
		t.Fatalf("expected the valid binding to resolve, got %s", name(c.Foo))
	}
	if s.BindingsActive != 1 || len(s.Unused()) != 0 {
		t.Fatalf("expected exactly one active binding, got %d active and %v unused", s.BindingsActive, s.Unused())
	}
}

func TestRun_DeclarationFailureSkipsSubtree(t *testing.T) {
	healthy, skipped := &Consumer{}, &Consumer{}
	root := enginetest.Obj("Root", scope(bindFoo(binding.DefaultSearch())), &Concrete{"x"}, healthy).With(
		enginetest.Obj("Broken", &enginetest.FailingScope{Err: errors.New("bad config")}).With(
			enginetest.Obj("Inside", skipped),
		),
		enginetest.Obj("Panicking", &enginetest.FailingScope{}),
	)

	s := harness{}.run(t, root)
	if s.Count(ClassDeclarationException) != 2 {
		t.Fatalf("expected two declaration failures, got %v", diagnosticClasses(s))
	}
	if healthy.Foo == nil || skipped.Foo != nil {
		t.Fatalf("expected healthy injected and skipped untouched, got %v / %v", healthy.Foo, skipped.Foo)
	}
	if s.SitesSkipped != 1 || s.SitesVisited != 1 {
		t.Fatalf("unexpected site counts visited=%d skipped=%d", s.SitesVisited, s.SitesSkipped)
	}
}

func TestRun_FilterExceptionAbortsOnlyThatBinding(t *testing.T) {
	broken, fine := &Consumer{}, &IDConsumer{}
	root := enginetest.Obj("Root", scope(func(d *binding.Declarations) {
		d.Component(fooType).To(concreteType).WithID("").Where(binding.FilterFunc("explode", func(binding.Candidate) bool {
			panic("boom")
		}))
		d.Component(fooType).To(concreteType).WithID("special")
	}), &Concrete{"x"}, broken, fine)

	s := harness{}.run(t, root)
	if s.Count(ClassFilterException) != 1 {
		t.Fatalf("expected FilterException, got %v", diagnosticClasses(s))
	}
	if broken.Foo != nil || name(fine.Foo) != "x" {
		t.Fatalf("unexpected injection broken=%v fine=%v", broken.Foo, fine.Foo)
	}
}

type memoryCatalog struct {
	existing map[reflect.Type]any
	requests []indirection.ProvisionRequest
}

func (m *memoryCatalog) FindExisting(t reflect.Type) (any, bool) {
	inst, ok := m.existing[t]
	return inst, ok
}

func (m *memoryCatalog) RequestCreate(req indirection.ProvisionRequest) error {
	m.requests = append(m.requests, req)
	return nil
}

func TestRun_IndirectionPendingThenReady(t *testing.T) {
	catalog := &memoryCatalog{existing: map[reflect.Type]any{}}
	tree := func(c1, c2 *Consumer) *enginetest.Object {
		return enginetest.Obj("Root", scope(func(d *binding.Declarations) {
			d.Component(fooType).To(concreteType).ViaIndirection()
		}), c1).With(enginetest.Obj("Child", c2))
	}
	h := harness{deps: Deps{Indirection: catalog}}

	first, second := &Consumer{}, &Consumer{}
	s := h.run(t, tree(first, second))
	if s.PendingIndirections != 2 || len(s.Pending) != 1 || len(catalog.requests) != 1 {
		t.Fatalf("expected one request for two pending sites, got %d sites, %v", s.PendingIndirections, s.Pending)
	}
	if s.HasErrors() || s.Count(ClassPendingIndirection) != 2 {
		t.Fatalf("pending indirection is informational, got %v", s.Diagnostics)
	}
	if s.Pending[0].ProxyName != "ConcreteProxy" || first.Foo != nil {
		t.Fatalf("unexpected pending state %+v", s.Pending[0])
	}

	catalog.existing[concreteType] = &Concrete{"proxy"}
	first, second = &Consumer{}, &Consumer{}
	s = h.run(t, tree(first, second))
	if name(first.Foo) != "proxy" || name(second.Foo) != "proxy" || s.PendingIndirections != 0 {
		t.Fatalf("expected proxy to be injected, got %s/%s", name(first.Foo), name(second.Foo))
	}
}

func TestRun_MethodInvokedOnlyWhenAllParametersResolve(t *testing.T) {
	m := &MethodConsumer{}
	root := enginetest.Obj("Root", scope(func(d *binding.Declarations) {
		d.Component(fooType).To(concreteType).Locate(binding.SearchFrom(binding.OriginScope, binding.DirectionFirstChild))
		d.Component(fooType).To(concreteType).Many()
	}), m).With(
		enginetest.Obj("A", &Concrete{"a"}),
		enginetest.Obj("B", &Concrete{"b"}),
	)
	s := harness{}.run(t, root)
	if m.calls != 1 || name(m.first) != "a" || len(m.all) != 2 {
		t.Fatalf("unexpected method injection %+v", m)
	}
	if s.MethodsInvoked != 1 {
		t.Fatalf("expected 1 method invoked, got %d", s.MethodsInvoked)
	}

	unresolved := &MethodConsumer{}
	s = harness{}.run(t, enginetest.Obj("Root", scope(func(d *binding.Declarations) {
		d.Component(fooType).To(concreteType).Many()
	}), unresolved))
	if unresolved.calls != 0 || s.MethodsInvoked != 0 {
		t.Fatalf("expected no invocation with a missing parameter, got %d calls", unresolved.calls)
	}
	if s.Count(ClassMissingBinding) != 1 {
		t.Fatalf("expected MissingBinding for the singular parameter, got %v", diagnosticClasses(s))
	}
}

func TestRun_WriteExceptionIsReported(t *testing.T) {
	h := &HiddenConsumer{}
	root := enginetest.Obj("Root", scope(bindFoo(binding.DefaultSearch())), &Concrete{"x"}, h)
	s := harness{}.run(t, root)
	if s.Count(ClassWriteException) != 1 || s.FieldsInjected != 0 {
		t.Fatalf("expected WriteException, got %v", diagnosticClasses(s))
	}
}

func TestRun_IsIdempotent(t *testing.T) {
	build := func() (*enginetest.Object, *Consumer, *ManyConsumer) {
		c, many := &Consumer{}, &ManyConsumer{}
		root := enginetest.Obj("Root", scope(func(d *binding.Declarations) {
			d.Component(fooType).To(concreteType)
			d.Component(fooType).To(concreteType).Many()
			d.Component(concreteType).WithID("unused")
		}), c, many).With(enginetest.Obj("A", &Concrete{"a"}), enginetest.Obj("B", &Concrete{"b"}))
		return root, c, many
	}
	root, c, many := build()
	reg := registry.New()
	h := harness{deps: Deps{Registry: reg}}
	first := h.run(t, root)
	firstFoo, firstAll := c.Foo, many.All
	second := h.run(t, root)

	if c.Foo != firstFoo || !reflect.DeepEqual(many.All, firstAll) {
		t.Fatal("expected identical values after the second run")
	}
	if !reflect.DeepEqual(first.Diagnostics, second.Diagnostics) {
		t.Fatalf("diagnostics differ:\n%v\n%v", first.Diagnostics, second.Diagnostics)
	}
	if first.FieldsInjected != second.FieldsInjected || first.ScopesProcessed != second.ScopesProcessed {
		t.Fatalf("counts differ: %+v vs %+v", first, second)
	}
	if first.RunID == second.RunID {
		t.Fatal("expected a fresh run id per run")
	}
}

func TestRun_HonoursCancellation(t *testing.T) {
	reg := registry.New()
	root := enginetest.Obj("Root", scope(func(d *binding.Declarations) {
		d.Global(concreteType)
	}), &Concrete{"x"}, &Consumer{})
	tree := enginetest.Project(t, true, introspect.NewInspector(), root)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New(Deps{Registry: reg}, Options{}).Run(ctx, tree); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if reg.Len() != 0 {
		t.Fatal("expected registrations to be released after cancellation")
	}
}

func TestPass_ResolveAtMostOneWinner(t *testing.T) {
	root := enginetest.Obj("Root", scope(bindFoo(binding.DefaultSearch())), &Consumer{}).With(
		enginetest.Obj("A", &Concrete{"a"}),
		enginetest.Obj("B", &Concrete{"b"}),
	)
	tree := enginetest.Project(t, true, introspect.NewInspector(), root)
	pass := New(Deps{Registry: registry.New()}, Options{}).Begin(tree)
	defer pass.Close()

	for _, site := range tree.Sites() {
		res := pass.Resolve(site)
		if len(res.Values) != 1 || res.Value().(Foo).Name() != "a" {
			t.Fatalf("expected the first candidate only, got %v", res.Values)
		}
		if pass.Usage().Wins(res.Binding) != 1 {
			t.Fatalf("expected the binding to be marked used")
		}
	}
}

func TestParseEmptyCollectionPolicy(t *testing.T) {
	for raw, want := range map[string]EmptyCollectionPolicy{"": EmptyCollectionError, "Error": EmptyCollectionError, " allow ": EmptyCollectionAllow} {
		got, err := ParseEmptyCollectionPolicy(raw)
		if err != nil || got != want {
			t.Fatalf("ParseEmptyCollectionPolicy(%q) = %q, %v", raw, got, err)
		}
	}
	if _, err := ParseEmptyCollectionPolicy("maybe"); err == nil {
		t.Fatal("expected error for unknown policy")
	}
}

func TestSummaryCountsIncludeEveryClass(t *testing.T) {
	s := &Summary{Diagnostics: []Diagnostic{*newDiagnostic(ClassMissingBinding, "x"), *newDiagnostic(ClassUnusedBinding, "y")}}
	counts := s.Counts()
	if len(counts) != len(Classes()) || counts["MissingBinding"] != 1 || counts["WriteException"] != 0 {
		t.Fatalf("unexpected counts %v", counts)
	}
	if len(s.Errors()) != 1 || len(s.Warnings()) != 1 {
		t.Fatalf("unexpected severity split %v", s.Diagnostics)
	}
	var c Class
	if err := c.UnmarshalText([]byte("filterexception")); err != nil || c != ClassFilterException {
		t.Fatalf("unmarshal class: %v %v", c, err)
	}
}

var _ hierarchy.SiteInspector = (*introspect.Inspector)(nil)

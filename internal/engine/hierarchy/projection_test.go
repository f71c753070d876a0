package hierarchy_test

import (
	"context"
	"errors"
	"reflect"
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/contextid"
	"scopebind/internal/engine/enginetest"
	"scopebind/internal/engine/hierarchy"
	"testing"
)

func paths(p *hierarchy.Projection, ids []hierarchy.NodeID) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		out = append(out, p.Node(id).Path)
	}
	return out
}

func sample() *enginetest.Object {
	return enginetest.Obj("Level").With(
		enginetest.Obj("Player").With(
			enginetest.Obj("Camera"),
			enginetest.Obj("Weapon"),
		),
		enginetest.Obj("Enemies").With(
			enginetest.Obj("Grunt").In(contextid.KindIndependent).With(enginetest.Obj("Gun")),
		),
	)
}

func TestProjectWalksInEncounterOrder(t *testing.T) {
	p := enginetest.Project(t, true, nil, sample(), enginetest.Obj("Managers"))

	want := []string{"Level", "Level/Player", "Level/Player/Camera", "Level/Player/Weapon", "Level/Enemies", "Level/Enemies/Grunt", "Level/Enemies/Grunt/Gun", "Managers"}
	if got := paths(p, p.All()); !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	if p.Len() != len(want) || len(p.Roots()) != 2 {
		t.Fatalf("unexpected size %d / roots %d", p.Len(), len(p.Roots()))
	}

	weapon := enginetest.MustFind(t, p, "Level/Player/Weapon")
	if got := paths(p, p.Ancestors(weapon, true)); !reflect.DeepEqual(got, []string{"Level/Player/Weapon", "Level/Player", "Level"}) {
		t.Fatalf("unexpected ancestors %v", got)
	}
	if got := paths(p, p.Siblings(weapon)); !reflect.DeepEqual(got, []string{"Level/Player/Camera"}) {
		t.Fatalf("unexpected siblings %v", got)
	}
	if got := paths(p, p.Siblings(p.Roots()[0])); !reflect.DeepEqual(got, []string{"Managers"}) {
		t.Fatalf("roots are siblings of each other, got %v", got)
	}
	if got := paths(p, p.Descendants(enginetest.MustFind(t, p, "Level/Player"), false)); !reflect.DeepEqual(got, []string{"Level/Player/Camera", "Level/Player/Weapon"}) {
		t.Fatalf("unexpected descendants %v", got)
	}
	if p.Root(weapon) != p.Roots()[0] {
		t.Fatal("expected Level as root of Weapon")
	}
}

func TestProjectClassifiesContexts(t *testing.T) {
	p := enginetest.Project(t, true, nil, sample())
	gun := enginetest.MustFind(t, p, "*/*/Grunt/Gun")
	grunt := enginetest.MustFind(t, p, "Level/Enemies/Grunt")

	if got := p.Context(gun); got != contextid.New(contextid.KindIndependent, "Level/Enemies/Grunt") {
		t.Fatalf("unexpected context %v", got)
	}
	if p.Context(grunt) == p.Context(p.Roots()[0]) {
		t.Fatal("independent instance must not share the level's context")
	}
	if p.ContextRoot(gun) != grunt {
		t.Fatalf("expected Grunt as context root, got %s", p.Node(p.ContextRoot(gun)).Path)
	}
}

func TestProjectLinksParentScopes(t *testing.T) {
	build := func() *enginetest.Object {
		return enginetest.Obj("Level", &enginetest.Scope{}).With(
			enginetest.Obj("Enemies").With(
				enginetest.Obj("Grunt", &enginetest.Scope{}).In(contextid.KindIndependent).With(
					enginetest.Obj("Gun", &enginetest.Scope{}),
				),
			),
		)
	}

	isolated := enginetest.Project(t, true, nil, build())
	gun := isolated.Node(enginetest.MustFind(t, isolated, "Level/Enemies/Grunt/Gun")).Scope
	grunt := isolated.Node(enginetest.MustFind(t, isolated, "Level/Enemies/Grunt")).Scope
	if gun.Parent != grunt {
		t.Fatalf("expected Gun scope parent to be Grunt, got %v", gun.Parent)
	}
	if grunt.Parent != nil {
		t.Fatal("with isolation the instance scope must not link to the level scope")
	}

	open := enginetest.Project(t, false, nil, build())
	grunt = open.Node(enginetest.MustFind(t, open, "Level/Enemies/Grunt")).Scope
	if grunt.Parent == nil || grunt.Parent.Path != "Level" {
		t.Fatalf("without isolation the level scope is the parent, got %v", grunt.Parent)
	}

	enemies := enginetest.MustFind(t, isolated, "Level/Enemies")
	if s := isolated.NearestScope(enemies); s == nil || s.Path != "Level" {
		t.Fatalf("expected Level as nearest scope of Enemies, got %v", s)
	}
}

func TestProjectAbortsFailedScopeSubtree(t *testing.T) {
	root := enginetest.Obj("Level", &enginetest.Scope{}).With(
		enginetest.Obj("Broken", &enginetest.FailingScope{Err: errors.New("bad")}).With(enginetest.Obj("Inner")),
		enginetest.Obj("Double", &enginetest.Scope{}, &enginetest.Scope{}),
		enginetest.Obj("Healthy"),
	)
	p := enginetest.Project(t, true, nil, root)

	failures := p.Failures()
	if len(failures) != 2 || failures[0].ScopePath != "Level/Broken" || failures[1].ScopePath != "Level/Double" {
		t.Fatalf("unexpected failures %v", failures)
	}
	if !p.Node(enginetest.MustFind(t, p, "Level/Broken/Inner")).Aborted {
		t.Fatal("expected subtree of failed scope to be aborted")
	}
	if p.Node(enginetest.MustFind(t, p, "Level/Healthy")).Aborted {
		t.Fatal("siblings of a failed scope are not aborted")
	}
	if p.Node(enginetest.MustFind(t, p, "Level/Double")).Scope == nil {
		t.Fatal("the first declarer on a node still owns its scope")
	}
	if len(p.Scopes()) != 2 {
		t.Fatalf("expected 2 scopes, got %d", len(p.Scopes()))
	}
}

func TestProjectRejectsSharedObjects(t *testing.T) {
	shared := enginetest.Obj("Shared")
	root := enginetest.Obj("Root").With(shared, shared)
	_, err := hierarchy.Project(context.Background(), []any{root}, hierarchy.Options{Provider: enginetest.Provider{}})
	if err == nil {
		t.Fatal("expected error for an object reached twice")
	}
}

func TestProjectRequiresProviderAndLiveContext(t *testing.T) {
	if _, err := hierarchy.Project(context.Background(), nil, hierarchy.Options{}); err == nil {
		t.Fatal("expected error without provider")
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := hierarchy.Project(ctx, []any{sample()}, hierarchy.Options{Provider: enginetest.Provider{}})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

type tagInspector struct{}

type wantsClock struct{}

func (tagInspector) Sites(member any) []hierarchy.SiteSpec {
	if _, ok := member.(*wantsClock); !ok {
		return nil
	}
	return []hierarchy.SiteSpec{{DeclaringType: reflect.TypeOf(wantsClock{}), MemberName: "Clock", Type: reflect.TypeOf(0)}}
}

func TestProjectCollectsSites(t *testing.T) {
	root := enginetest.Obj("Root", &enginetest.Scope{Declare: func(d *binding.Declarations) {
		d.Component(reflect.TypeOf(0))
	}}).With(enginetest.Obj("Child", "plain member", &wantsClock{}))
	p := enginetest.Project(t, true, tagInspector{}, root)

	sites := p.Sites()
	if len(sites) != 1 {
		t.Fatalf("expected one site, got %d", len(sites))
	}
	s := sites[0]
	if s.Path != "Root/Child" || s.MemberIndex != 1 || s.String() != "Root/Child:hierarchy_test.wantsClock.Clock" {
		t.Fatalf("unexpected site %+v (%s)", s, s)
	}
	scope := p.Node(p.Roots()[0]).Scope
	if len(scope.Bindings) != 1 || scope.Bindings[0].ScopePath() != "Root" {
		t.Fatalf("unexpected scope bindings %v", scope.Bindings)
	}
}

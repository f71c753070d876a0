package history

import (
	"context"
	"scopebind/internal/engine/resolver"
	"testing"
	"time"
)

func TestAdapter_RecordReturnsDeltaAgainstPreviousRun(t *testing.T) {
	adapter := NewAdapter(openStore(t))
	ctx := context.Background()
	base := time.Date(2026, 10, 2, 9, 0, 0, 0, time.UTC)

	first := &resolver.Summary{
		RunID:        "r1",
		Hierarchy:    "forest.toml",
		StartedAt:    base,
		SitesVisited: 4,
		Diagnostics: []resolver.Diagnostic{
			{Class: resolver.ClassMissingBinding, Severity: resolver.SeverityError},
			{Class: resolver.ClassMissingBinding, Severity: resolver.SeverityError},
		},
	}
	delta, err := adapter.Record(ctx, first)
	if err != nil {
		t.Fatalf("record first run: %v", err)
	}
	if delta.Errors != 0 || delta.Classes != nil {
		t.Fatalf("first run has no delta, got %+v", delta)
	}

	second := &resolver.Summary{
		RunID:       "r2",
		Hierarchy:   "forest.toml",
		StartedAt:   base.Add(time.Minute),
		Diagnostics: []resolver.Diagnostic{{Class: resolver.ClassUnusedBinding, Severity: resolver.SeverityWarning}},
	}
	delta, err = adapter.Record(ctx, second)
	if err != nil {
		t.Fatalf("record second run: %v", err)
	}
	if delta.Errors != -2 || delta.Warnings != 1 || delta.Classes["MissingBinding"] != -2 {
		t.Fatalf("unexpected delta %+v", delta)
	}

	runs, err := adapter.LoadRuns(ctx, "forest.toml", time.Time{})
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 || runs[0].SiteCount != 4 || runs[0].ClassCounts["MissingBinding"] != 2 {
		t.Fatalf("unexpected stored runs %+v", runs)
	}
}

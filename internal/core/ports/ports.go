package ports

import (
	"context"
	"scopebind/internal/data/history"
	"scopebind/internal/engine/indirection"
	"scopebind/internal/engine/resolver"
	"time"
)

// HistoryStore abstracts run persistence for trend and delta reporting.
type HistoryStore interface {
	Record(ctx context.Context, summary *resolver.Summary) (history.Delta, error)
	LoadRuns(ctx context.Context, hierarchy string, since time.Time) ([]history.RunSnapshot, error)
}

// BatchRequest selects the hierarchies of a batch. Empty Paths means every scene
// file matched by the configured patterns.
type BatchRequest struct {
	Paths []string
}

// HierarchyResult is the outcome of one hierarchy in a batch. Err is set when the
// hierarchy could not be loaded or its run failed outright; diagnostics live in
// Summary.
type HierarchyResult struct {
	Name    string
	Path    string
	Summary *resolver.Summary
	Delta   *history.Delta
	Err     error
}

// BatchResult summarizes a batch run.
type BatchResult struct {
	Hierarchies []HierarchyResult
	Pending     []indirection.ProvisionRequest
	Warnings    []string
	Duration    time.Duration
}

// Failed counts hierarchies that errored or produced error diagnostics.
func (r BatchResult) Failed() int {
	n := 0
	for _, h := range r.Hierarchies {
		if h.Err != nil || (h.Summary != nil && h.Summary.HasErrors()) {
			n++
		}
	}
	return n
}

// ProvisionResult counts proxies moved from pending requests into the catalog.
type ProvisionResult struct {
	Provisioned int
	Remaining   int
}

// ResolutionService is the driving port over batch resolution use cases.
type ResolutionService interface {
	RunBatch(ctx context.Context, req BatchRequest) (BatchResult, error)
	RunHierarchy(ctx context.Context, path string) (HierarchyResult, error)
	Provision(ctx context.Context) (ProvisionResult, error)
	AwaitProvision(ctx context.Context) (bool, error)
	History(ctx context.Context, hierarchy string, since time.Time) ([]history.RunSnapshot, error)
}

package history

import (
	"context"
	"scopebind/internal/engine/resolver"
	"time"
)

// Adapter bridges Store to the core HistoryStore port.
type Adapter struct {
	store *Store
}

func NewAdapter(store *Store) *Adapter {
	return &Adapter{store: store}
}

// Record converts a run summary into a snapshot, stores it and returns the change
// since the previous run of the same hierarchy. The delta is zero for a first run.
func (a *Adapter) Record(ctx context.Context, summary *resolver.Summary) (Delta, error) {
	snap := FromSummary(summary)
	prev, prevErr := a.store.LatestRun(ctx, snap.Hierarchy)
	if err := a.store.SaveRun(ctx, snap); err != nil {
		return Delta{}, err
	}
	if prevErr != nil {
		return Delta{}, nil
	}
	return Diff(prev, snap), nil
}

func (a *Adapter) LoadRuns(ctx context.Context, hierarchy string, since time.Time) ([]RunSnapshot, error) {
	return a.store.LoadRuns(ctx, hierarchy, since)
}

// FromSummary flattens a resolver summary into a snapshot.
func FromSummary(s *resolver.Summary) RunSnapshot {
	snap := RunSnapshot{
		SchemaVersion:       SchemaVersion,
		RunID:               s.RunID,
		Hierarchy:           s.Hierarchy,
		Timestamp:           s.StartedAt.UTC(),
		DurationMS:          s.Duration.Milliseconds(),
		ScopeCount:          s.ScopesProcessed,
		BindingCount:        s.BindingsActive,
		SiteCount:           s.SitesVisited,
		SkippedCount:        s.SitesSkipped,
		FieldsInjected:      s.FieldsInjected,
		MethodsInvoked:      s.MethodsInvoked,
		GlobalRegistrations: s.GlobalRegistrations,
		PendingIndirections: s.PendingIndirections,
		ErrorCount:          len(s.Errors()),
		WarningCount:        len(s.Warnings()),
		ClassCounts:         make(map[string]int),
	}
	for class, n := range s.Counts() {
		if n > 0 {
			snap.ClassCounts[class] = n
		}
	}
	return snap
}

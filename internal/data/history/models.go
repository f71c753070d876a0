package history

import (
	"time"
)

const SchemaVersion = 1

// RunSnapshot is the persisted outcome of one resolution run over one hierarchy.
type RunSnapshot struct {
	SchemaVersion       int            `json:"schema_version"`
	RunID               string         `json:"run_id"`
	Hierarchy           string         `json:"hierarchy"`
	Timestamp           time.Time      `json:"timestamp"`
	DurationMS          int64          `json:"duration_ms"`
	ScopeCount          int            `json:"scope_count"`
	BindingCount        int            `json:"binding_count"`
	SiteCount           int            `json:"site_count"`
	SkippedCount        int            `json:"skipped_count"`
	FieldsInjected      int            `json:"fields_injected"`
	MethodsInvoked      int            `json:"methods_invoked"`
	GlobalRegistrations int            `json:"global_registrations"`
	PendingIndirections int            `json:"pending_indirections"`
	ErrorCount          int            `json:"error_count"`
	WarningCount        int            `json:"warning_count"`
	ClassCounts         map[string]int `json:"class_counts,omitempty"`
}

// Delta is the change of diagnostic counts between two runs of a hierarchy.
type Delta struct {
	Errors   int            `json:"errors"`
	Warnings int            `json:"warnings"`
	Classes  map[string]int `json:"classes,omitempty"`
}

// Diff compares cur against prev. Classes only lists non-zero changes.
func Diff(prev, cur RunSnapshot) Delta {
	d := Delta{
		Errors:   cur.ErrorCount - prev.ErrorCount,
		Warnings: cur.WarningCount - prev.WarningCount,
	}
	for class, n := range cur.ClassCounts {
		if change := n - prev.ClassCounts[class]; change != 0 {
			if d.Classes == nil {
				d.Classes = make(map[string]int)
			}
			d.Classes[class] = change
		}
	}
	for class, n := range prev.ClassCounts {
		if _, ok := cur.ClassCounts[class]; !ok && n != 0 {
			if d.Classes == nil {
				d.Classes = make(map[string]int)
			}
			d.Classes[class] = -n
		}
	}
	return d
}

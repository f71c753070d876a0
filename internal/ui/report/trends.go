package report

import (
	"encoding/json"
	"fmt"
	"scopebind/internal/core/ports"
	"scopebind/internal/data/history"
	"scopebind/internal/engine/indirection"
	"scopebind/internal/engine/resolver"
	"strings"
	"time"
)

// RenderHistoryTSV renders run snapshots as one row per run. Class columns cover
// every diagnostic class so rows from different runs line up.
func RenderHistoryTSV(runs []history.RunSnapshot) ([]byte, error) {
	var buf strings.Builder

	classes := resolver.Classes()
	buf.WriteString("Timestamp\tRunID\tHierarchy\tDurationMS\tScopes\tBindings\tSites\tSkipped\tFields\tMethods\tGlobals\tPending\tErrors\tWarnings")
	for _, c := range classes {
		buf.WriteString("\t")
		buf.WriteString(c.String())
	}
	buf.WriteString("\n")

	for _, run := range runs {
		buf.WriteString(fmt.Sprintf(
			"%s\t%s\t%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d",
			run.Timestamp.Format(time.RFC3339),
			run.RunID,
			run.Hierarchy,
			run.DurationMS,
			run.ScopeCount,
			run.BindingCount,
			run.SiteCount,
			run.SkippedCount,
			run.FieldsInjected,
			run.MethodsInvoked,
			run.GlobalRegistrations,
			run.PendingIndirections,
			run.ErrorCount,
			run.WarningCount,
		))
		for _, c := range classes {
			buf.WriteString(fmt.Sprintf("\t%d", run.ClassCounts[c.String()]))
		}
		buf.WriteString("\n")
	}

	return []byte(buf.String()), nil
}

func RenderHistoryJSON(runs []history.RunSnapshot) ([]byte, error) {
	if runs == nil {
		runs = []history.RunSnapshot{}
	}
	return json.MarshalIndent(runs, "", "  ")
}

type batchJSON struct {
	Hierarchies []hierarchyJSON                `json:"hierarchies"`
	Failed      int                            `json:"failed"`
	DurationMS  int64                          `json:"duration_ms"`
	Pending     []indirection.ProvisionRequest `json:"pending,omitempty"`
	Warnings    []string                       `json:"warnings,omitempty"`
}

type hierarchyJSON struct {
	Name    string            `json:"name"`
	Path    string            `json:"path"`
	Error   string            `json:"error,omitempty"`
	Counts  map[string]int    `json:"counts,omitempty"`
	Summary *resolver.Summary `json:"summary,omitempty"`
	Delta   *history.Delta    `json:"delta,omitempty"`
}

// RenderBatchJSON renders a batch for machine consumption.
func RenderBatchJSON(res ports.BatchResult) ([]byte, error) {
	out := batchJSON{
		Hierarchies: make([]hierarchyJSON, 0, len(res.Hierarchies)),
		Failed:      res.Failed(),
		DurationMS:  res.Duration.Milliseconds(),
		Pending:     res.Pending,
		Warnings:    res.Warnings,
	}
	for _, h := range res.Hierarchies {
		entry := hierarchyJSON{Name: h.Name, Path: h.Path, Summary: h.Summary, Delta: h.Delta}
		if h.Err != nil {
			entry.Error = h.Err.Error()
		}
		if h.Summary != nil {
			entry.Counts = nonZero(h.Summary.Counts())
		}
		out.Hierarchies = append(out.Hierarchies, entry)
	}
	return json.MarshalIndent(out, "", "  ")
}

func nonZero(counts map[string]int) map[string]int {
	out := make(map[string]int)
	for k, n := range counts {
		if n != 0 {
			out[k] = n
		}
	}
	return out
}

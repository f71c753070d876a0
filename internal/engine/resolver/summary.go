package resolver

import (
	"scopebind/internal/engine/indirection"
	"time"
)

// Summary aggregates one run. It only counts; nothing in it fails the run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Hierarchy string        `json:"hierarchy,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`

	ScopesProcessed     int `json:"scopes_processed"`
	BindingsActive      int `json:"bindings_active"`
	SitesVisited        int `json:"sites_visited"`
	SitesSkipped        int `json:"sites_skipped"`
	FieldsInjected      int `json:"fields_injected"`
	MethodsInvoked      int `json:"methods_invoked"`
	GlobalRegistrations int `json:"global_registrations"`
	PendingIndirections int `json:"pending_indirections"`

	Diagnostics []Diagnostic                   `json:"diagnostics"`
	Pending     []indirection.ProvisionRequest `json:"pending,omitempty"`
	Results     []Result                       `json:"-"`
}

func (s *Summary) add(d *Diagnostic) {
	if d != nil {
		s.Diagnostics = append(s.Diagnostics, *d)
	}
}

// Count returns the number of diagnostics of class c.
func (s *Summary) Count(c Class) int {
	n := 0
	for _, d := range s.Diagnostics {
		if d.Class == c {
			n++
		}
	}
	return n
}

// Counts maps every class name to its diagnostic count, zero counts included.
func (s *Summary) Counts() map[string]int {
	out := make(map[string]int, len(classNames))
	for _, c := range Classes() {
		out[c.String()] = 0
	}
	for _, d := range s.Diagnostics {
		out[d.Class.String()]++
	}
	return out
}

func (s *Summary) bySeverity(sev Severity) []Diagnostic {
	var out []Diagnostic
	for _, d := range s.Diagnostics {
		if d.Severity == sev {
			out = append(out, d)
		}
	}
	return out
}

func (s *Summary) Errors() []Diagnostic   { return s.bySeverity(SeverityError) }
func (s *Summary) Warnings() []Diagnostic { return s.bySeverity(SeverityWarning) }
func (s *Summary) HasErrors() bool        { return len(s.Errors()) > 0 }

// Unused lists the UnusedBinding diagnostics.
func (s *Summary) Unused() []Diagnostic {
	var out []Diagnostic
	for _, d := range s.Diagnostics {
		if d.Class == ClassUnusedBinding {
			out = append(out, d)
		}
	}
	return out
}

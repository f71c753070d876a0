package report

import (
	"fmt"
	"path/filepath"
	"scopebind/internal/core/ports"
	"scopebind/internal/data/history"
	"scopebind/internal/engine/resolver"
	"scopebind/internal/shared/util"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// TextOptions control RenderBatchText. Root shortens hierarchy paths.
type TextOptions struct {
	Color bool
	Root  string
}

// RenderBatchText renders a batch as a human-readable report.
func RenderBatchText(res ports.BatchResult, opts TextOptions) string {
	st := newStyles(opts.Color)
	var b strings.Builder

	failed := res.Failed()
	b.WriteString(st.title.Render(fmt.Sprintf("scopebind: %d hierarchies, %d failed", len(res.Hierarchies), failed)))
	b.WriteString(st.muted.Render(fmt.Sprintf(" (%s)", res.Duration.Round(time.Millisecond))))
	b.WriteString("\n")

	for _, h := range res.Hierarchies {
		b.WriteString("\n")
		renderHierarchy(&b, st, h, opts.Root)
	}

	if len(res.Pending) > 0 {
		b.WriteString("\n")
		b.WriteString(st.info.Render(fmt.Sprintf("Pending indirection objects (%d):", len(res.Pending))))
		b.WriteString("\n")
		for _, req := range res.Pending {
			fmt.Fprintf(&b, "  %s for %s\n", req.ProxyName, req.TypeName)
		}
	}
	for _, w := range res.Warnings {
		b.WriteString(st.warning.Render("warning: " + w))
		b.WriteString("\n")
	}
	return b.String()
}

func renderHierarchy(b *strings.Builder, st styles, h ports.HierarchyResult, root string) {
	name := h.Name
	if name == "" {
		name = strings.TrimSuffix(filepath.Base(h.Path), filepath.Ext(h.Path))
	}
	b.WriteString(st.name.Render(name))
	b.WriteString("  ")
	b.WriteString(st.muted.Render(displayPath(h.Path, root)))
	b.WriteString("\n")

	if h.Err != nil {
		b.WriteString("  ")
		b.WriteString(st.err.Render("failed: " + h.Err.Error()))
		b.WriteString("\n")
		return
	}
	s := h.Summary
	if s == nil {
		return
	}
	fmt.Fprintf(b, "  scopes %d  bindings %d  sites %d (%d skipped)  fields %d  methods %d  globals %d  pending %d\n",
		s.ScopesProcessed, s.BindingsActive, s.SitesVisited, s.SitesSkipped,
		s.FieldsInjected, s.MethodsInvoked, s.GlobalRegistrations, s.PendingIndirections)

	if len(s.Diagnostics) == 0 {
		b.WriteString("  ")
		b.WriteString(st.success.Render("ok, no diagnostics"))
		b.WriteString("\n")
	}
	for _, d := range s.Diagnostics {
		b.WriteString("  ")
		b.WriteString(severityStyle(st, d.Severity).Render(strings.ToUpper(d.Severity.String())))
		b.WriteString(" ")
		b.WriteString(d.String())
		b.WriteString("\n")
	}
	if h.Delta != nil {
		b.WriteString("  ")
		b.WriteString(st.muted.Render(renderDelta(*h.Delta)))
		b.WriteString("\n")
	}
}

func severityStyle(st styles, sev resolver.Severity) lipgloss.Style {
	switch sev {
	case resolver.SeverityError:
		return st.err
	case resolver.SeverityWarning:
		return st.warning
	default:
		return st.info
	}
}

func renderDelta(d history.Delta) string {
	var b strings.Builder
	fmt.Fprintf(&b, "since last run: errors %+d, warnings %+d", d.Errors, d.Warnings)
	for _, class := range util.SortedStringKeys(d.Classes) {
		fmt.Fprintf(&b, ", %s %+d", class, d.Classes[class])
	}
	return b.String()
}

func displayPath(path, root string) string {
	if root == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

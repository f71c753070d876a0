package scene

import (
	"fmt"
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/contextid"
	"strings"

	"github.com/gobwas/glob"
)

// FilterSpec is a built-in filter named in a document.
type FilterSpec struct {
	Kind    string `toml:"kind"`
	Pattern string `toml:"pattern"`
}

type globFilter struct {
	name  string
	g     glob.Glob
	field func(binding.Candidate) string
}

func (f globFilter) Name() string { return f.name }

func (f globFilter) Keep(c binding.Candidate) (bool, error) {
	return f.g.Match(f.field(c)), nil
}

type contextFilter struct {
	kind contextid.Kind
}

func (f contextFilter) Name() string { return "context(" + f.kind.String() + ")" }

func (f contextFilter) Keep(c binding.Candidate) (bool, error) {
	return c.Context.Kind == f.kind, nil
}

// BuildFilter compiles spec into a binding filter. name, path and asset match
// globs against the node name, node path and asset path; type keeps candidates
// assignable to a registered type; context keeps candidates of one context kind.
func BuildFilter(spec FilterSpec, types *TypeRegistry) (binding.Filter, error) {
	kind := strings.ToLower(strings.TrimSpace(spec.Kind))
	pattern := strings.TrimSpace(spec.Pattern)
	switch kind {
	case "name", "path", "asset":
		g, err := glob.Compile(pattern, '/')
		if err != nil {
			return nil, fmt.Errorf("compile %s filter %q: %w", kind, pattern, err)
		}
		f := globFilter{name: kind + "(" + pattern + ")", g: g}
		switch kind {
		case "name":
			f.field = func(c binding.Candidate) string { return c.NodeName }
		case "path":
			f.field = func(c binding.Candidate) string { return c.NodePath }
		default:
			f.field = func(c binding.Candidate) string { return c.AssetPath }
		}
		return f, nil
	case "type":
		if types == nil {
			return nil, fmt.Errorf("type filter %q needs a type registry", pattern)
		}
		t, err := types.Lookup(pattern)
		if err != nil {
			return nil, fmt.Errorf("type filter: %w", err)
		}
		return binding.OfType(t), nil
	case "context":
		k, err := contextid.ParseKind(pattern)
		if err != nil {
			return nil, fmt.Errorf("context filter: %w", err)
		}
		return contextFilter{kind: k}, nil
	default:
		return nil, fmt.Errorf("unknown filter kind %q", spec.Kind)
	}
}

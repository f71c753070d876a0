// Package locator turns a binding into a candidate set by walking the projected
// hierarchy or querying the asset catalog, then applies filters and context
// isolation.
package locator

import (
	"errors"
	"fmt"
	"reflect"
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/contextid"
	"scopebind/internal/engine/hierarchy"
)

// Asset is one catalog entry.
type Asset struct {
	Path     string
	Instance any
}

// AssetCatalog answers asset-like bindings.
type AssetCatalog interface {
	LoadOne(path string, t reflect.Type) ([]Asset, error)
	LoadAll(path string, t reflect.Type) ([]Asset, error)
	LoadFolder(folder string, t reflect.Type) ([]Asset, error)
}

// ErrNoCatalog is returned for asset bindings located without a catalog.
var ErrNoCatalog = errors.New("no asset catalog configured")

// FilterError reports a filter that failed or panicked.
type FilterError struct {
	Filter  string
	Binding *binding.Binding
	Err     error
}

func (e *FilterError) Error() string {
	return fmt.Sprintf("filter %s of %s failed: %v", e.Filter, e.Binding, e.Err)
}

func (e *FilterError) Unwrap() error {
	return e.Err
}

// Result is the outcome of one Locate call.
type Result struct {
	Candidates []binding.Candidate
	// Raw counts candidates before context filtering.
	Raw int
	// Rejected lists the type names removed by context isolation.
	Rejected []string
}

type Locator struct {
	tree   *hierarchy.Projection
	assets AssetCatalog
}

func New(tree *hierarchy.Projection, assets AssetCatalog) *Locator {
	return &Locator{tree: tree, assets: assets}
}

// Locate enumerates the candidates of b for a request made at site. scope is the
// scope declaring b.
func (l *Locator) Locate(b *binding.Binding, scope *hierarchy.Scope, site hierarchy.NodeID) (Result, error) {
	var (
		raw []binding.Candidate
		err error
	)
	switch b.Category() {
	case binding.CategoryAsset:
		raw, err = l.fromAssets(b)
	default:
		raw, err = l.fromHierarchy(b, scope, site)
	}
	if err != nil {
		return Result{}, err
	}

	for _, f := range b.Filters() {
		raw, err = applyFilter(b, f, raw)
		if err != nil {
			return Result{}, err
		}
	}

	res := Result{Raw: len(raw)}
	if !l.tree.Isolation() {
		res.Candidates = raw
		return res, nil
	}
	seen := make(map[string]bool)
	for _, c := range raw {
		if c.FromAsset || contextid.CrossResolves(c.Context, scope.Context) {
			res.Candidates = append(res.Candidates, c)
			continue
		}
		name := binding.TypeName(c.Type())
		if !seen[name] {
			seen[name] = true
			res.Rejected = append(res.Rejected, name)
		}
	}
	return res, nil
}

func applyFilter(b *binding.Binding, f binding.Filter, in []binding.Candidate) (out []binding.Candidate, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = &FilterError{Filter: f.Name(), Binding: b, Err: fmt.Errorf("panic: %v", rec)}
		}
	}()
	out = make([]binding.Candidate, 0, len(in))
	for _, c := range in {
		keep, ferr := f.Keep(c)
		if ferr != nil {
			return nil, &FilterError{Filter: f.Name(), Binding: b, Err: ferr}
		}
		if keep {
			out = append(out, c)
		}
	}
	return out, nil
}

func (l *Locator) fromHierarchy(b *binding.Binding, scope *hierarchy.Scope, site hierarchy.NodeID) ([]binding.Candidate, error) {
	search, _ := b.Search()
	nodes, err := l.Nodes(search, scope, site)
	if err != nil {
		return nil, err
	}
	want := b.Located()
	var out []binding.Candidate
	for _, id := range nodes {
		node := l.tree.Node(id)
		for _, member := range node.Members {
			if member == nil || !reflect.TypeOf(member).AssignableTo(want) {
				continue
			}
			out = append(out, binding.Candidate{
				Instance: member,
				NodeName: node.Name,
				NodePath: node.Path,
				Context:  node.Context,
			})
		}
	}
	return out, nil
}

// Nodes returns the nodes visited by search, in walk order.
func (l *Locator) Nodes(search binding.Search, scope *hierarchy.Scope, site hierarchy.NodeID) ([]hierarchy.NodeID, error) {
	t := l.tree
	if search.Origin == binding.OriginAnywhere || search.Direction == binding.DirectionAnywhere {
		if scope != nil && scope.Context.Kind == contextid.KindTemplate {
			return t.Descendants(t.ContextRoot(scope.Node), true), nil
		}
		return t.All(), nil
	}

	var origin hierarchy.NodeID
	switch search.Origin {
	case binding.OriginScope:
		origin = scope.Node
	case binding.OriginRoot:
		origin = t.Root(scope.Node)
	case binding.OriginSite:
		origin = site
	case binding.OriginNamed:
		id, err := t.FindPath(search.NodePath)
		if err != nil {
			return nil, err
		}
		if id == hierarchy.NoNode {
			return nil, nil
		}
		origin = id
	default:
		return nil, fmt.Errorf("unsupported search origin %s", search.Origin)
	}
	if !t.Valid(origin) {
		return nil, nil
	}

	node := t.Node(origin)
	switch search.Direction {
	case binding.DirectionSelf:
		return []hierarchy.NodeID{origin}, nil
	case binding.DirectionParent:
		if node.Parent == hierarchy.NoNode {
			return nil, nil
		}
		return []hierarchy.NodeID{node.Parent}, nil
	case binding.DirectionAncestors:
		return t.Ancestors(origin, search.IncludeSelf), nil
	case binding.DirectionFirstChild:
		if len(node.Children) == 0 {
			return nil, nil
		}
		return node.Children[:1], nil
	case binding.DirectionLastChild:
		if len(node.Children) == 0 {
			return nil, nil
		}
		return node.Children[len(node.Children)-1:], nil
	case binding.DirectionChildAt:
		if search.ChildIndex < 0 || search.ChildIndex >= len(node.Children) {
			return nil, nil
		}
		return []hierarchy.NodeID{node.Children[search.ChildIndex]}, nil
	case binding.DirectionDescendants:
		return t.Descendants(origin, search.IncludeSelf), nil
	case binding.DirectionSiblings:
		return t.Siblings(origin), nil
	default:
		return nil, fmt.Errorf("unsupported search direction %s", search.Direction)
	}
}

func (l *Locator) fromAssets(b *binding.Binding) ([]binding.Candidate, error) {
	src := b.Asset()
	want := b.Located()
	var (
		assets []Asset
		err    error
	)
	switch src.Load {
	case binding.LoadInstances:
		for _, inst := range src.Instances {
			if inst != nil && reflect.TypeOf(inst).AssignableTo(want) {
				assets = append(assets, Asset{Instance: inst})
			}
		}
	case binding.LoadOne, binding.LoadAll, binding.LoadFolder:
		if l.assets == nil {
			return nil, ErrNoCatalog
		}
		switch src.Load {
		case binding.LoadOne:
			assets, err = l.assets.LoadOne(src.Path, want)
		case binding.LoadAll:
			assets, err = l.assets.LoadAll(src.Path, want)
		default:
			assets, err = l.assets.LoadFolder(src.Path, want)
		}
		if err != nil {
			return nil, fmt.Errorf("load %s assets at %q: %w", src.Load, src.Path, err)
		}
	default:
		return nil, fmt.Errorf("asset binding has no load strategy")
	}

	out := make([]binding.Candidate, 0, len(assets))
	for _, a := range assets {
		out = append(out, binding.Candidate{
			Instance:  a.Instance,
			FromAsset: true,
			AssetPath: a.Path,
			Context:   contextid.Global(),
		})
	}
	return out, nil
}

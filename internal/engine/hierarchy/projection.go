package hierarchy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/contextid"
	"strings"

	"github.com/gobwas/glob"
)

// NodeID indexes a node inside its projection.
type NodeID int

// NoNode is the parent of a root.
const NoNode NodeID = -1

type Node struct {
	ID       NodeID
	Object   any
	Name     string
	Path     string
	Parent   NodeID
	Children []NodeID
	Members  []any
	Context  contextid.Identity
	Scope    *Scope
	// Aborted is set on every node below a scope whose declaration step failed.
	Aborted bool
}

// Scope is the set of bindings declared at one node.
type Scope struct {
	Node     NodeID
	Path     string
	Context  contextid.Identity
	Owner    any
	Bindings []*binding.Binding
	Parent   *Scope
}

// Site is an injection site located in the projection.
type Site struct {
	SiteSpec
	Node        NodeID
	Member      any
	MemberIndex int
	Path        string
}

// String renders node path, member type and member name.
func (s *Site) String() string {
	return fmt.Sprintf("%s:%s.%s", s.Path, binding.TypeName(s.DeclaringType), s.MemberName)
}

// DeclarationError reports a scope whose declaration step failed.
type DeclarationError struct {
	ScopePath string
	Err       error
}

func (e *DeclarationError) Error() string {
	return fmt.Sprintf("scope %s: declaration failed: %v", e.ScopePath, e.Err)
}

func (e *DeclarationError) Unwrap() error {
	return e.Err
}

// Options configure Project.
type Options struct {
	Provider   Provider
	Classifier Classifier
	Inspector  SiteInspector
	// Isolation makes ParentScope skip ancestors from another context.
	Isolation bool
	Logger    *slog.Logger
}

// Projection is the read-only node tree of one run.
type Projection struct {
	nodes     []Node
	roots     []NodeID
	scopes    []*Scope
	sites     []*Site
	failures  []*DeclarationError
	isolation bool
}

// Project walks roots depth-first in encounter order.
func Project(ctx context.Context, roots []any, opts Options) (*Projection, error) {
	if opts.Provider == nil {
		return nil, errors.New("hierarchy provider is required")
	}
	if opts.Classifier == nil {
		opts.Classifier = SharedClassifier{}
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	p := &Projection{isolation: opts.Isolation}
	visited := make(map[any]bool)
	for _, root := range roots {
		id, err := p.add(ctx, root, NoNode, opts, visited)
		if err != nil {
			return nil, err
		}
		p.roots = append(p.roots, id)
	}
	p.linkScopes()
	return p, nil
}

func (p *Projection) add(ctx context.Context, obj any, parent NodeID, opts Options, visited map[any]bool) (NodeID, error) {
	if err := ctx.Err(); err != nil {
		return NoNode, err
	}
	if obj == nil {
		return NoNode, errors.New("nil object in hierarchy")
	}
	if t := reflect.TypeOf(obj); t.Comparable() {
		if visited[obj] {
			return NoNode, fmt.Errorf("object %q reached twice; hierarchy must be a tree", opts.Provider.Name(obj))
		}
		visited[obj] = true
	}

	id := NodeID(len(p.nodes))
	name := opts.Provider.Name(obj)
	path := name
	var parentCtx *contextid.Identity
	aborted := false
	if parent != NoNode {
		pn := &p.nodes[parent]
		path = pn.Path + "/" + name
		c := pn.Context
		parentCtx = &c
		aborted = pn.Aborted
	}
	p.nodes = append(p.nodes, Node{
		ID:      id,
		Object:  obj,
		Name:    name,
		Path:    path,
		Parent:  parent,
		Members: opts.Provider.Members(obj),
		Context: opts.Classifier.Classify(obj, path, parentCtx),
		Aborted: aborted,
	})
	if parent != NoNode {
		p.nodes[parent].Children = append(p.nodes[parent].Children, id)
	}

	p.attach(id, opts)

	for _, child := range opts.Provider.Children(obj) {
		if _, err := p.add(ctx, child, id, opts, visited); err != nil {
			return NoNode, err
		}
	}
	return id, nil
}

// attach declares the node's scope and collects its injection sites.
func (p *Projection) attach(id NodeID, opts Options) {
	node := &p.nodes[id]
	for i, member := range node.Members {
		if declarer, ok := member.(ScopeDeclarer); ok {
			if node.Scope != nil {
				p.failures = append(p.failures, &DeclarationError{
					ScopePath: node.Path,
					Err:       fmt.Errorf("member %T declares a second scope on the node", member),
				})
			} else if err := p.declare(node, declarer); err != nil {
				opts.Logger.Warn("scope declaration failed; skipping sub-hierarchy", "scope", node.Path, "error", err)
				p.failures = append(p.failures, &DeclarationError{ScopePath: node.Path, Err: err})
				node.Aborted = true
			}
		}
		if opts.Inspector == nil {
			continue
		}
		for _, spec := range opts.Inspector.Sites(member) {
			p.sites = append(p.sites, &Site{
				SiteSpec:    spec,
				Node:        id,
				Member:      member,
				MemberIndex: i,
				Path:        node.Path,
			})
		}
	}
}

func (p *Projection) declare(node *Node, declarer ScopeDeclarer) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("panic: %v", rec)
		}
	}()
	decls := binding.NewDeclarations(node.Path)
	if err := declarer.DeclareBindings(decls); err != nil {
		return err
	}
	scope := &Scope{
		Node:     node.ID,
		Path:     node.Path,
		Context:  node.Context,
		Owner:    declarer,
		Bindings: decls.Build(),
	}
	node.Scope = scope
	p.scopes = append(p.scopes, scope)
	return nil
}

func (p *Projection) linkScopes() {
	for _, s := range p.scopes {
		for cur := p.nodes[s.Node].Parent; cur != NoNode; cur = p.nodes[cur].Parent {
			candidate := p.nodes[cur].Scope
			if candidate == nil {
				continue
			}
			if p.isolation && candidate.Context != s.Context {
				continue
			}
			s.Parent = candidate
			break
		}
	}
}

func (p *Projection) Len() int                             { return len(p.nodes) }
func (p *Projection) Node(id NodeID) *Node                 { return &p.nodes[id] }
func (p *Projection) Roots() []NodeID                      { return append([]NodeID(nil), p.roots...) }
func (p *Projection) Scopes() []*Scope                     { return append([]*Scope(nil), p.scopes...) }
func (p *Projection) Sites() []*Site                       { return append([]*Site(nil), p.sites...) }
func (p *Projection) Failures() []*DeclarationError        { return append([]*DeclarationError(nil), p.failures...) }
func (p *Projection) Isolation() bool                      { return p.isolation }
func (p *Projection) Valid(id NodeID) bool                 { return id >= 0 && int(id) < len(p.nodes) }
func (p *Projection) Context(id NodeID) contextid.Identity { return p.nodes[id].Context }

// Root returns the topmost ancestor of id.
func (p *Projection) Root(id NodeID) NodeID {
	for p.nodes[id].Parent != NoNode {
		id = p.nodes[id].Parent
	}
	return id
}

// ContextRoot returns the topmost ancestor of id that still shares its context.
func (p *Projection) ContextRoot(id NodeID) NodeID {
	ctx := p.nodes[id].Context
	for {
		parent := p.nodes[id].Parent
		if parent == NoNode || p.nodes[parent].Context != ctx {
			return id
		}
		id = parent
	}
}

// Ancestors lists the parents of id from nearest to farthest.
func (p *Projection) Ancestors(id NodeID, includeSelf bool) []NodeID {
	var out []NodeID
	if includeSelf {
		out = append(out, id)
	}
	for cur := p.nodes[id].Parent; cur != NoNode; cur = p.nodes[cur].Parent {
		out = append(out, cur)
	}
	return out
}

// Descendants lists the subtree of id in pre-order.
func (p *Projection) Descendants(id NodeID, includeSelf bool) []NodeID {
	var out []NodeID
	if includeSelf {
		out = append(out, id)
	}
	var walk func(NodeID)
	walk = func(n NodeID) {
		for _, c := range p.nodes[n].Children {
			out = append(out, c)
			walk(c)
		}
	}
	walk(id)
	return out
}

// Siblings lists the other children of id's parent, or the other roots.
func (p *Projection) Siblings(id NodeID) []NodeID {
	peers := p.roots
	if parent := p.nodes[id].Parent; parent != NoNode {
		peers = p.nodes[parent].Children
	}
	out := make([]NodeID, 0, len(peers))
	for _, n := range peers {
		if n != id {
			out = append(out, n)
		}
	}
	return out
}

// All lists every node in encounter order.
func (p *Projection) All() []NodeID {
	out := make([]NodeID, len(p.nodes))
	for i := range p.nodes {
		out[i] = NodeID(i)
	}
	return out
}

// FindPath returns the first node whose path matches pattern ('/' separated glob).
func (p *Projection) FindPath(pattern string) (NodeID, error) {
	pattern = strings.Trim(strings.TrimSpace(pattern), "/")
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return NoNode, fmt.Errorf("compile node path %q: %w", pattern, err)
	}
	for i := range p.nodes {
		if g.Match(p.nodes[i].Path) {
			return NodeID(i), nil
		}
	}
	return NoNode, nil
}

// NearestScope returns the scope declared at id or its nearest ancestor. With
// isolation enabled only scopes sharing id's context qualify.
func (p *Projection) NearestScope(id NodeID) *Scope {
	ctx := p.nodes[id].Context
	for cur := id; cur != NoNode; cur = p.nodes[cur].Parent {
		s := p.nodes[cur].Scope
		if s == nil {
			continue
		}
		if p.isolation && s.Context != ctx {
			continue
		}
		return s
	}
	return nil
}

// SharedClassifier puts every object into one shared context.
type SharedClassifier struct{}

func (SharedClassifier) Classify(_ any, _ string, parent *contextid.Identity) contextid.Identity {
	if parent != nil {
		return *parent
	}
	return contextid.New(contextid.KindShared, "")
}

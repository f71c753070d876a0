// Package resolver selects, for every injection site, the binding that answers it
// and the instances that binding locates, then writes the results back.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/hierarchy"
	"scopebind/internal/engine/indirection"
	"scopebind/internal/engine/introspect"
	"scopebind/internal/engine/locator"
	"scopebind/internal/engine/registry"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SiteWriter assigns resolved values to injection sites. Collection values are
// passed as []any.
type SiteWriter interface {
	WriteField(site *hierarchy.Site, value any) error
	InvokeMethod(sites []*hierarchy.Site, args []any) error
}

// EmptyCollectionPolicy decides whether a collection site that located nothing is
// reported. The empty collection is written either way.
type EmptyCollectionPolicy string

const (
	EmptyCollectionError EmptyCollectionPolicy = "error"
	EmptyCollectionAllow EmptyCollectionPolicy = "allow"
)

func ParseEmptyCollectionPolicy(raw string) (EmptyCollectionPolicy, error) {
	switch EmptyCollectionPolicy(strings.ToLower(strings.TrimSpace(raw))) {
	case "", EmptyCollectionError:
		return EmptyCollectionError, nil
	case EmptyCollectionAllow:
		return EmptyCollectionAllow, nil
	default:
		return "", fmt.Errorf("unknown empty collection policy %q", raw)
	}
}

type Options struct {
	EmptyCollection EmptyCollectionPolicy
	// SkipUnused turns off UnusedBinding warnings.
	SkipUnused bool
	Logger     *slog.Logger
}

// Deps are the collaborators of a run. Nil Registry and Writer fall back to
// registry.Default and introspect.Writer.
type Deps struct {
	Assets      locator.AssetCatalog
	Indirection indirection.Catalog
	Registry    *registry.Registry
	Writer      SiteWriter
}

type Resolver struct {
	deps Deps
	opts Options
}

func New(deps Deps, opts Options) *Resolver {
	if deps.Registry == nil {
		deps.Registry = registry.Default()
	}
	if deps.Writer == nil {
		deps.Writer = introspect.Writer{}
	}
	if opts.EmptyCollection == "" {
		opts.EmptyCollection = EmptyCollectionError
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Resolver{deps: deps, opts: opts}
}

// Result is the outcome for one injection site.
type Result struct {
	Site    *hierarchy.Site
	Scope   *hierarchy.Scope
	Binding *binding.Binding
	Values  []any
	// Write is set when Value should be assigned to the site.
	Write      bool
	Diagnostic *Diagnostic
	Pending    *indirection.ProvisionRequest
}

// Value is what gets written: the instance for singular sites, the values as []any
// for collection sites.
func (r Result) Value() any {
	if r.Site != nil && r.Site.Collection {
		if r.Values == nil {
			return []any{}
		}
		return r.Values
	}
	if len(r.Values) == 0 {
		return nil
	}
	return r.Values[0]
}

// Run resolves every site of tree and writes the results back. Global
// registrations made by the run are released before it returns.
func (r *Resolver) Run(ctx context.Context, tree *hierarchy.Projection) (*Summary, error) {
	if tree == nil {
		return nil, errors.New("projection is required")
	}
	p := r.Begin(tree)
	defer p.Close()

	p.RegisterGlobals()

	sites := tree.Sites()
	results := make([]Result, 0, len(sites))
	for _, site := range sites {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if tree.Node(site.Node).Aborted {
			p.summary.SitesSkipped++
			continue
		}
		p.summary.SitesVisited++
		res := p.Resolve(site)
		p.record(res)
		results = append(results, res)
	}
	p.writeBack(results)
	p.reportUnused()
	return p.Finish(results), nil
}

// Pass is the state of one run over one projection.
type Pass struct {
	r        *Resolver
	tree     *hierarchy.Projection
	locator  *locator.Locator
	indirect *indirection.Resolver
	active   map[*hierarchy.Scope][]*binding.Binding
	usage    *Usage
	summary  *Summary
	owners   []*hierarchy.Scope
}

// Begin validates every scope of tree and prepares a pass. Callers must Close it.
func (r *Resolver) Begin(tree *hierarchy.Projection) *Pass {
	p := &Pass{
		r:        r,
		tree:     tree,
		locator:  locator.New(tree, r.deps.Assets),
		indirect: indirection.NewResolver(r.deps.Indirection),
		active:   make(map[*hierarchy.Scope][]*binding.Binding),
		usage:    NewUsage(),
		summary:  &Summary{RunID: uuid.NewString(), StartedAt: time.Now()},
	}

	for _, f := range tree.Failures() {
		d := newDiagnostic(ClassDeclarationException, "%v", f.Err)
		d.Scope = f.ScopePath
		p.summary.add(d)
	}

	for _, s := range tree.Scopes() {
		if tree.Node(s.Node).Aborted {
			continue
		}
		active, invalid := binding.ValidateScope(s.Bindings)
		for _, inv := range invalid {
			d := newDiagnostic(ClassInvalidBinding, "%s", invalidReason(inv.Err))
			d.Scope = s.Path
			d.Binding = inv.Binding.String()
			p.summary.add(d)
		}
		p.active[s] = active
		for _, b := range active {
			p.usage.Track(s, b)
		}
		p.summary.ScopesProcessed++
		p.summary.BindingsActive += len(active)
		r.opts.Logger.Debug("scope validated", "scope", s.Path, "active", len(active), "invalid", len(invalid))
	}
	return p
}

func invalidReason(err error) string {
	var ve *binding.ValidationError
	if errors.As(err, &ve) {
		return strings.Join(ve.Reasons, "; ")
	}
	return err.Error()
}

// Usage exposes the usage tracker of the pass.
func (p *Pass) Usage() *Usage {
	return p.usage
}

// RegisterGlobals locates the instance of every global binding and registers it,
// owned by the declaring scope, under that scope's context.
func (p *Pass) RegisterGlobals() {
	reg := p.r.deps.Registry
	for _, s := range p.tree.Scopes() {
		for _, b := range p.active[s] {
			if b.Category() != binding.CategoryGlobal {
				continue
			}
			located, err := p.locator.Locate(b, s, s.Node)
			if err != nil {
				p.summary.add(p.locateFailure(nil, s, b, err))
				continue
			}
			if len(located.Candidates) == 0 {
				p.r.opts.Logger.Debug("global binding located nothing", "scope", s.Path, "binding", b.String())
				continue
			}
			inst := located.Candidates[0].Instance
			if err := reg.Register(inst, s, s.Context); err != nil {
				p.r.opts.Logger.Warn("global registration rejected", "scope", s.Path, "binding", b.String(), "error", err)
				p.usage.MarkUsed(b)
				p.summary.add(p.locateFailure(nil, s, b, err))
				continue
			}
			p.addOwner(s)
			p.usage.MarkUsed(b)
			p.summary.GlobalRegistrations++
		}
	}
}

func (p *Pass) addOwner(s *hierarchy.Scope) {
	for _, o := range p.owners {
		if o == s {
			return
		}
	}
	p.owners = append(p.owners, s)
}

// Resolve walks the scope chain of site outward, picks the first qualifying
// binding and produces its value or a classified failure.
func (p *Pass) Resolve(site *hierarchy.Site) Result {
	res := Result{Site: site}
	b, owner := p.match(p.tree.NearestScope(site.Node), site)
	if b == nil {
		res.Diagnostic = p.siteDiagnostic(ClassMissingBinding, site, nil, "no binding for %s", request(site))
		return res
	}
	res.Binding, res.Scope = b, owner
	p.usage.MarkUsed(b)

	switch {
	case b.Category() == binding.CategoryGlobal:
		inst, ok := p.r.deps.Registry.Get(b.Located(), owner.Context)
		if !ok && !p.tree.Isolation() {
			inst, ok = p.r.deps.Registry.Find(b.Located())
		}
		if !ok {
			res.Diagnostic = p.siteDiagnostic(ClassMissingGlobalObject, site, b,
				"no %s registered for context %s", binding.TypeName(b.Located()), owner.Context)
			return res
		}
		res.Values, res.Write = []any{inst}, true

	case b.Indirect():
		handle, err := p.indirect.Resolve(b.Concrete(), b.Interface())
		if err != nil {
			res.Diagnostic = p.siteDiagnostic(ClassMissingDependency, site, b, "indirection failed: %v", err)
			return res
		}
		if !handle.Ready() {
			res.Pending = handle.Pending
			res.Diagnostic = p.siteDiagnostic(ClassPendingIndirection, site, b,
				"%s requested; run again once it is provisioned", handle.Pending.ProxyName)
			return res
		}
		res.Values, res.Write = []any{handle.Instance}, true

	default:
		located, err := p.locator.Locate(b, owner, site.Node)
		if err != nil {
			res.Diagnostic = p.locateFailure(site, owner, b, err)
			return res
		}
		switch {
		case len(located.Candidates) == 0 && site.Collection:
			res.Values, res.Write = []any{}, true
			if p.r.opts.EmptyCollection == EmptyCollectionError {
				res.Diagnostic = p.siteDiagnostic(ClassMissingDependencies, site, b,
					"no %s located (%d before context filtering)", binding.TypeName(b.Located()), located.Raw)
				res.Diagnostic.Rejected = located.Rejected
			}
		case len(located.Candidates) == 0:
			res.Diagnostic = p.siteDiagnostic(ClassMissingDependency, site, b,
				"no %s located (%d before context filtering)", binding.TypeName(b.Located()), located.Raw)
			res.Diagnostic.Rejected = located.Rejected
		case site.Collection:
			res.Values = make([]any, 0, len(located.Candidates))
			for _, c := range located.Candidates {
				res.Values = append(res.Values, c.Instance)
			}
			res.Write = true
		default:
			if len(located.Candidates) > 1 {
				p.r.opts.Logger.Debug("several candidates for singular site; using the first",
					"site", site.String(), "count", len(located.Candidates))
			}
			res.Values, res.Write = []any{located.Candidates[0].Instance}, true
		}
	}

	p.r.opts.Logger.Debug("site resolved", "site", site.String(), "binding", b.String(), "values", len(res.Values))
	return res
}

func (p *Pass) match(scope *hierarchy.Scope, site *hierarchy.Site) (*binding.Binding, *hierarchy.Scope) {
	for s := scope; s != nil; s = s.Parent {
		for _, b := range p.active[s] {
			if !b.Serves(site.Type, site.Collection) {
				continue
			}
			if b.Qualifies(site.ID, site.DeclaringType, site.MemberName) {
				return b, s
			}
		}
	}
	return nil, nil
}

func (p *Pass) locateFailure(site *hierarchy.Site, scope *hierarchy.Scope, b *binding.Binding, err error) *Diagnostic {
	class := ClassMissingDependency
	if b.Category() == binding.CategoryGlobal {
		class = ClassMissingGlobalObject
	}
	var fe *locator.FilterError
	if errors.As(err, &fe) {
		class = ClassFilterException
	}
	d := p.siteDiagnostic(class, site, b, "%v", err)
	d.Scope = scope.Path
	return d
}

func (p *Pass) siteDiagnostic(class Class, site *hierarchy.Site, b *binding.Binding, format string, args ...any) *Diagnostic {
	d := newDiagnostic(class, format, args...)
	if site != nil {
		d.Site = site.String()
	}
	if b != nil {
		d.Binding = b.String()
		d.Scope = b.ScopePath()
	}
	return d
}

func request(site *hierarchy.Site) string {
	out := binding.TypeName(site.Type)
	if site.Collection {
		out = "[]" + out
	}
	if site.ID != "" {
		out += " id=" + site.ID
	}
	return out
}

func (p *Pass) record(res Result) {
	d := res.Diagnostic
	if d == nil {
		return
	}
	if res.Site != nil && res.Site.Optional && d.Class.Suppressible() {
		return
	}
	p.summary.add(d)
}

type methodKey struct {
	node   hierarchy.NodeID
	member int
	name   string
}

// writeBack assigns field results and invokes methods whose parameters all resolved.
func (p *Pass) writeBack(results []Result) {
	writer := p.r.deps.Writer
	calls := make(map[methodKey][]Result)
	var order []methodKey

	for _, res := range results {
		site := res.Site
		if site.Kind == hierarchy.SiteMethodParam {
			key := methodKey{node: site.Node, member: site.MemberIndex, name: site.MemberName}
			if _, ok := calls[key]; !ok {
				order = append(order, key)
			}
			calls[key] = append(calls[key], res)
			continue
		}
		if !res.Write {
			continue
		}
		if err := writer.WriteField(site, res.Value()); err != nil {
			p.summary.add(p.siteDiagnostic(ClassWriteException, site, res.Binding, "%v", err))
			continue
		}
		p.summary.FieldsInjected++
	}

	for _, key := range order {
		group := calls[key]
		sites := make([]*hierarchy.Site, 0, len(group))
		args := make([]any, 0, len(group))
		ready := true
		for _, res := range group {
			if !res.Write {
				ready = false
				break
			}
			sites = append(sites, res.Site)
			args = append(args, res.Value())
		}
		if !ready {
			p.r.opts.Logger.Debug("method not invoked; a parameter is unresolved", "site", group[0].Site.String())
			continue
		}
		if err := writer.InvokeMethod(sites, args); err != nil {
			p.summary.add(p.siteDiagnostic(ClassWriteException, sites[0], group[0].Binding, "%v", err))
			continue
		}
		p.summary.MethodsInvoked++
	}
}

func (p *Pass) reportUnused() {
	if p.r.opts.SkipUnused {
		return
	}
	for _, b := range p.usage.Unused() {
		d := newDiagnostic(ClassUnusedBinding, "binding never used")
		d.Scope = b.ScopePath()
		d.Binding = b.String()
		p.summary.add(d)
	}
}

// Finish stamps the summary with the outcome of results.
func (p *Pass) Finish(results []Result) *Summary {
	s := p.summary
	s.Duration = time.Since(s.StartedAt)
	s.Pending = p.indirect.Requests()
	s.Results = results
	s.PendingIndirections = 0
	for _, res := range results {
		if res.Pending != nil {
			s.PendingIndirections++
		}
	}
	return s
}

// Close releases the global registrations made by the pass.
func (p *Pass) Close() {
	for _, s := range p.owners {
		p.r.deps.Registry.Release(s)
	}
	p.owners = nil
}

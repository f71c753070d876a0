package app

import (
	"context"
	"fmt"
	"scopebind/internal/core/errors"
	"scopebind/internal/core/ports"
	"scopebind/internal/data/scene"
	"scopebind/internal/engine/hierarchy"
	"scopebind/internal/engine/introspect"
	"scopebind/internal/engine/resolver"
	"scopebind/internal/shared/observability"
	"scopebind/internal/shared/util"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// RunHierarchy loads one scene file and runs a fresh resolution over it. A panic
// anywhere below is confined to this hierarchy and reported as its error.
func (a *App) RunHierarchy(ctx context.Context, path string) (res ports.HierarchyResult) {
	res.Path = path
	ctx, span := observability.Tracer.Start(ctx, "app.RunHierarchy",
		trace.WithAttributes(attribute.String("scene.path", path)))
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := errors.New(errors.CodeInternal, fmt.Sprintf("hierarchy run panicked: %v", r))
			res.Summary = nil
			res.Err = errors.AddContext(err, errors.CtxPath, path)
		}
		outcome := "ok"
		switch {
		case res.Err != nil:
			outcome = "error"
			span.RecordError(res.Err)
			span.SetStatus(codes.Error, res.Err.Error())
		case res.Summary != nil && res.Summary.HasErrors():
			outcome = "diagnostics"
		}
		observability.RunsTotal.WithLabelValues(outcome).Inc()
		observability.RunDuration.Observe(time.Since(start).Seconds())
	}()

	summary, name, err := a.resolve(ctx, path)
	res.Name = name
	if err != nil {
		res.Err = errors.AddContext(err, errors.CtxPath, path)
		return res
	}
	res.Summary = summary
	span.SetAttributes(
		attribute.String("scene.name", name),
		attribute.Int("sites.visited", summary.SitesVisited),
		attribute.Int("diagnostics", len(summary.Diagnostics)),
	)
	a.observe(summary)

	if a.History != nil {
		delta, err := a.History.Record(ctx, summary)
		if err != nil {
			observability.HistoryWriteErrorsTotal.Inc()
			a.logger.Warn("failed to record run history", "hierarchy", name, "error", err)
		} else {
			res.Delta = &delta
		}
	}
	return res
}

func (a *App) resolve(ctx context.Context, path string) (*resolver.Summary, string, error) {
	doc, err := scene.Load(path)
	if err != nil {
		return nil, "", err
	}
	sc, err := scene.Build(doc, a.Types)
	if err != nil {
		return nil, doc.Name, errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "build scene"), errors.CtxHierarchy, doc.Name)
	}

	assets := a.SharedAssets()
	assets.Add(sc.Assets...)

	walker := sc.Walker()
	tree, err := hierarchy.Project(ctx, sc.RootObjects(), hierarchy.Options{
		Provider:   walker,
		Classifier: walker,
		Inspector:  introspect.NewInspector(),
		Isolation:  a.Config.Engine.IsolationEnabled(),
		Logger:     a.logger,
	})
	if err != nil {
		return nil, doc.Name, errors.AddContext(err, errors.CtxOperation, "project_hierarchy")
	}

	r := resolver.New(resolver.Deps{
		Assets:      assets,
		Indirection: a.Catalog,
		Registry:    a.Registry,
	}, resolver.Options{
		EmptyCollection: a.policy,
		SkipUnused:      !a.Config.Engine.ReportUnusedEnabled(),
		Logger:          a.logger.With("hierarchy", doc.Name),
	})
	summary, err := r.Run(ctx, tree)
	if err != nil {
		return nil, doc.Name, errors.AddContext(err, errors.CtxOperation, "resolve_hierarchy")
	}
	summary.Hierarchy = doc.Name
	a.logger.Debug("hierarchy resolved",
		"hierarchy", doc.Name,
		"sites", summary.SitesVisited,
		"diagnostics", len(summary.Diagnostics),
		"heap_mb", util.HeapAllocMB())
	return summary, doc.Name, nil
}

func (a *App) observe(s *resolver.Summary) {
	for _, res := range s.Results {
		observability.SitesResolved.WithLabelValues(siteOutcome(res)).Inc()
	}
	for _, d := range s.Diagnostics {
		observability.DiagnosticsTotal.WithLabelValues(d.Class.String()).Inc()
	}
	observability.GlobalRegistrations.Set(float64(s.GlobalRegistrations))
	observability.PendingIndirections.Set(float64(s.PendingIndirections))
}

func siteOutcome(res resolver.Result) string {
	switch {
	case res.Pending != nil:
		return "pending"
	case res.Diagnostic != nil && res.Diagnostic.Severity == resolver.SeverityError:
		return "failed"
	case res.Write:
		return "injected"
	default:
		return "unresolved"
	}
}

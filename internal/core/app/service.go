package app

import (
	"context"
	"fmt"
	"scopebind/internal/core/app/helpers"
	"scopebind/internal/core/errors"
	"scopebind/internal/core/ports"
	"scopebind/internal/core/watcher"
	"scopebind/internal/data/history"
	"scopebind/internal/shared/observability"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type resolutionService struct {
	app *App
}

var _ ports.ResolutionService = (*resolutionService)(nil)

func NewResolutionService(app *App) ports.ResolutionService {
	return &resolutionService{app: app}
}

func (a *App) ResolutionService() ports.ResolutionService {
	return NewResolutionService(a)
}

// RunBatch resolves each hierarchy in turn. A failing hierarchy is recorded in
// the result and the batch continues unless batch.fail_fast is set.
func (s *resolutionService) RunBatch(ctx context.Context, req ports.BatchRequest) (ports.BatchResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "resolutionService.RunBatch", trace.WithAttributes())
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.BatchResult{}, err
	}
	if s.app == nil {
		return ports.BatchResult{}, fmt.Errorf("app is required")
	}

	start := time.Now()
	paths, assetDocs := s.app.splitExplicit(helpers.UniquePaths(req.Paths))
	if len(req.Paths) == 0 {
		discovered, err := s.app.DiscoverScenes()
		if err != nil {
			return ports.BatchResult{}, errors.AddContext(err, errors.CtxOperation, "discover_scenes")
		}
		paths = discovered
	}
	span.SetAttributes(attribute.Int("batch.hierarchies", len(paths)))

	result := ports.BatchResult{Hierarchies: make([]ports.HierarchyResult, 0, len(paths))}
	for _, path := range assetDocs {
		result.Warnings = append(result.Warnings, fmt.Sprintf("skipped asset document %s", path))
	}
	if len(paths) == 0 {
		result.Warnings = append(result.Warnings, "no scene files matched the configured patterns")
	}
	for _, path := range paths {
		if err := s.app.limiter.Wait(ctx, 1); err != nil {
			return result, err
		}
		if err := ctx.Err(); err != nil {
			return result, err
		}
		res := s.app.RunHierarchy(ctx, path)
		result.Hierarchies = append(result.Hierarchies, res)
		if res.Err != nil {
			s.app.logger.Error("hierarchy failed", "path", path, "error", res.Err)
			if s.app.Config.Batch.FailFast {
				result.Warnings = append(result.Warnings, fmt.Sprintf("batch stopped after %s", path))
				break
			}
		}
	}
	result.Pending = s.app.Catalog.Pending()
	result.Duration = time.Since(start)
	return result, nil
}

func (s *resolutionService) RunHierarchy(ctx context.Context, path string) (ports.HierarchyResult, error) {
	if err := ctx.Err(); err != nil {
		return ports.HierarchyResult{}, err
	}
	if s.app == nil {
		return ports.HierarchyResult{}, fmt.Errorf("app is required")
	}
	res := s.app.RunHierarchy(ctx, path)
	return res, res.Err
}

// Provision promotes pending requests whose proxy types are registered.
func (s *resolutionService) Provision(ctx context.Context) (ports.ProvisionResult, error) {
	ctx, span := observability.Tracer.Start(ctx, "resolutionService.Provision")
	defer span.End()

	if err := ctx.Err(); err != nil {
		return ports.ProvisionResult{}, err
	}
	if s.app == nil {
		return ports.ProvisionResult{}, fmt.Errorf("app is required")
	}
	n, err := s.app.Catalog.Provision()
	if err != nil {
		return ports.ProvisionResult{}, errors.AddContext(err, errors.CtxPath, s.app.Catalog.Path())
	}
	return ports.ProvisionResult{Provisioned: n, Remaining: len(s.app.Catalog.Pending())}, nil
}

// AwaitProvision waits for the indirection catalog to change and reloads it. It
// reports false when nothing is pending or the wait timed out.
func (s *resolutionService) AwaitProvision(ctx context.Context) (bool, error) {
	ctx, span := observability.Tracer.Start(ctx, "resolutionService.AwaitProvision")
	defer span.End()

	if s.app == nil {
		return false, fmt.Errorf("app is required")
	}
	if len(s.app.Catalog.Pending()) == 0 {
		return false, nil
	}
	cfg := s.app.Config
	s.app.logger.Info("waiting for indirection provisioning",
		"catalog", s.app.Catalog.Path(),
		"pending", len(s.app.Catalog.Pending()),
		"timeout", cfg.Indirection.AwaitTimeout)

	changed, err := watcher.AwaitFile(ctx, s.app.Catalog.Path(), cfg.Watch.Debounce, cfg.Indirection.AwaitTimeout)
	if err != nil {
		return false, errors.AddContext(err, errors.CtxOperation, "await_provision")
	}
	if !changed {
		return false, nil
	}
	if err := s.app.Catalog.Reload(); err != nil {
		return false, errors.AddContext(err, errors.CtxPath, s.app.Catalog.Path())
	}
	return true, nil
}

func (s *resolutionService) History(ctx context.Context, hierarchy string, since time.Time) ([]history.RunSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.app == nil || s.app.History == nil {
		return nil, errors.New(errors.CodeNotSupported, "run history is disabled")
	}
	runs, err := s.app.History.LoadRuns(ctx, hierarchy, since)
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxHierarchy, hierarchy)
	}
	return runs, nil
}

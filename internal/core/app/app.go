package app

import (
	"fmt"
	"log/slog"
	"scopebind/internal/core/app/helpers"
	"scopebind/internal/core/config"
	"scopebind/internal/core/errors"
	"scopebind/internal/core/ports"
	"scopebind/internal/data/catalog"
	"scopebind/internal/data/history"
	"scopebind/internal/data/scene"
	"scopebind/internal/engine/registry"
	"scopebind/internal/engine/resolver"
	"scopebind/internal/shared/util"

	"github.com/gobwas/glob"
)

// Options carry the collaborators New cannot derive from configuration.
type Options struct {
	Types *scene.TypeRegistry
	// Registry defaults to registry.Default.
	Registry *registry.Registry
	// History overrides the store opened from the db section.
	History ports.HistoryStore
	Logger  *slog.Logger
}

// App owns everything a batch needs: configuration, the type registry, catalogs
// and the optional run history.
type App struct {
	Config   *config.Config
	Paths    config.ResolvedPaths
	Types    *scene.TypeRegistry
	Registry *registry.Registry
	Catalog  *catalog.Indirection
	History  ports.HistoryStore

	historyStore *history.Store
	sharedAssets *catalog.Assets
	sceneGlobs   []glob.Glob
	assetGlobs   []glob.Glob
	policy       resolver.EmptyCollectionPolicy
	limiter      *util.Limiter
	logger       *slog.Logger
}

func New(cfg *config.Config, paths config.ResolvedPaths, opts Options) (*App, error) {
	if cfg == nil {
		return nil, errors.New(errors.CodeValidationError, "config is required")
	}
	if opts.Types == nil {
		return nil, errors.New(errors.CodeValidationError, "type registry is required")
	}
	policy, err := resolver.ParseEmptyCollectionPolicy(cfg.Engine.EmptyCollection)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "engine.empty_collection")
	}
	sceneGlobs, err := helpers.CompileGlobs(paths.Scenes, "scene")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "paths.scenes")
	}
	assetGlobs, err := helpers.CompileGlobs(paths.Assets, "asset")
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "paths.assets")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	reg := opts.Registry
	if reg == nil {
		reg = registry.Default()
	}

	cat, err := catalog.OpenIndirection(paths.CatalogPath, opts.Types)
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "open indirection catalog"), errors.CtxPath, paths.CatalogPath)
	}

	a := &App{
		Config:       cfg,
		Paths:        paths,
		Types:        opts.Types,
		Registry:     reg,
		Catalog:      cat,
		History:      opts.History,
		sharedAssets: catalog.NewAssets(),
		sceneGlobs:   sceneGlobs,
		assetGlobs:   assetGlobs,
		policy:       policy,
		limiter:      util.NewLimiter(cfg.Batch.Rate, cfg.Batch.Burst),
		logger:       logger,
	}

	if a.History == nil && cfg.DB.Enabled {
		store, err := history.Open(paths.DBPath, cfg.DB.BusyTimeout)
		switch {
		case err == nil:
			a.historyStore = store
			a.History = history.NewAdapter(store)
		case history.IsCorruptError(err):
			logger.Warn("run history unreadable, continuing without it", "path", paths.DBPath, "error", err)
		default:
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "open run history"), errors.CtxPath, paths.DBPath)
		}
	}

	if err := a.LoadAssets(); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// LoadAssets rebuilds the shared asset catalog from the asset documents matched
// by paths.assets.
func (a *App) LoadAssets() error {
	files, err := Discover(a.Paths.ProjectRoot, a.assetGlobs)
	if err != nil {
		return errors.AddContext(err, errors.CtxOperation, "discover_assets")
	}
	assets := catalog.NewAssets()
	for _, path := range files {
		doc, err := scene.Load(path)
		if err != nil {
			return errors.AddContext(err, errors.CtxOperation, "load_assets")
		}
		sc, err := scene.Build(doc, a.Types)
		if err != nil {
			return errors.AddContext(errors.Wrap(err, errors.CodeValidationError, "build asset document"), errors.CtxPath, path)
		}
		assets.Add(sc.Assets...)
	}
	a.sharedAssets = assets
	a.logger.Debug("shared assets loaded", "documents", len(files), "assets", assets.Len())
	return nil
}

// SharedAssets returns a copy of the assets every hierarchy starts from.
func (a *App) SharedAssets() *catalog.Assets {
	return a.sharedAssets.Clone()
}

func (a *App) Close() error {
	if a.historyStore == nil {
		return nil
	}
	err := a.historyStore.Close()
	a.historyStore = nil
	if err != nil {
		return fmt.Errorf("close history: %w", err)
	}
	return nil
}

package app

import (
	"io/fs"
	"os"
	"path/filepath"
	"scopebind/internal/core/app/helpers"
	"scopebind/internal/core/errors"
	"scopebind/internal/shared/util"
	"sort"
	"strings"

	"github.com/gobwas/glob"
)

// Discover walks root and returns the files whose slash-separated path relative to
// root matches one of globs, sorted. Hidden directories are skipped.
func Discover(root string, globs []glob.Glob) ([]string, error) {
	if len(globs) == 0 {
		return nil, nil
	}
	if _, err := os.Stat(root); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "project root not found"), errors.CtxPath, root)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "stat project root"), errors.CtxPath, root)
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != root && strings.HasPrefix(d.Name(), ".") {
				return filepath.SkipDir
			}
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if helpers.MatchAny(globs, util.NormalizePatternPath(rel)) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "walk project root"), errors.CtxPath, root)
	}
	sort.Strings(files)
	return files, nil
}

// DiscoverScenes lists the scene files of the project.
func (a *App) DiscoverScenes() ([]string, error) {
	return Discover(a.Paths.ProjectRoot, a.sceneGlobs)
}

// IsSceneFile reports whether path is matched by the scene patterns.
func (a *App) IsSceneFile(path string) bool {
	rel, err := filepath.Rel(a.Paths.ProjectRoot, path)
	if err != nil || !a.Paths.InsideRoot(path) {
		return false
	}
	return helpers.MatchAny(a.sceneGlobs, util.NormalizePatternPath(rel))
}

// IsAssetFile reports whether path is matched by the asset patterns.
func (a *App) IsAssetFile(path string) bool {
	rel, err := filepath.Rel(a.Paths.ProjectRoot, path)
	if err != nil || !a.Paths.InsideRoot(path) {
		return false
	}
	return helpers.MatchAny(a.assetGlobs, util.NormalizePatternPath(rel))
}

// splitExplicit separates asset documents from the paths named in a batch
// request. Paths outside the scene patterns are still treated as scenes.
func (a *App) splitExplicit(paths []string) (scenes, assets []string) {
	for _, path := range paths {
		abs, err := filepath.Abs(path)
		if err == nil && a.IsAssetFile(abs) && !a.IsSceneFile(abs) {
			assets = append(assets, path)
			continue
		}
		scenes = append(scenes, path)
	}
	return scenes, assets
}

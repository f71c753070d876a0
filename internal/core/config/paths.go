package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// projectMarkers identify a project directory, most specific first.
var projectMarkers = []string{
	"scopebind.toml",
	filepath.Join("data", "config", "scopebind.toml"),
	"go.mod",
	".git",
}

// ResolvedPaths are the absolute locations derived from the paths, db and
// indirection sections.
type ResolvedPaths struct {
	ProjectRoot string
	StateDir    string
	DatabaseDir string
	DBPath      string
	CatalogPath string
	// Scenes and Assets are slash-separated patterns relative to ProjectRoot.
	Scenes []string
	Assets []string
}

// ResolvePaths anchors relative config paths. An explicit project_root is taken
// relative to cwd; otherwise the root is the nearest ancestor of cwd carrying a
// project marker. The state and database dirs hang off the root, the catalog off
// the state dir and the database file off the database dir.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	var root string
	if explicit := strings.TrimSpace(cfg.Paths.ProjectRoot); explicit != "" {
		root = ResolveRelative(cwd, explicit)
	} else {
		detected, err := DetectProjectRoot([]string{cwd})
		if err != nil {
			return ResolvedPaths{}, err
		}
		root = detected
	}

	p := ResolvedPaths{
		ProjectRoot: filepath.Clean(root),
		StateDir:    ResolveRelative(root, cfg.Paths.StateDir),
		DatabaseDir: ResolveRelative(root, cfg.Paths.DatabaseDir),
		Scenes:      append([]string(nil), cfg.Paths.Scenes...),
		Assets:      append([]string(nil), cfg.Paths.Assets...),
	}
	p.DBPath = ResolveRelative(p.DatabaseDir, cfg.DB.Path)
	p.CatalogPath = ResolveRelative(p.StateDir, cfg.Indirection.Catalog)
	return p, nil
}

// InsideRoot reports whether path lies below the project root.
func (p ResolvedPaths) InsideRoot(path string) bool {
	rel, err := filepath.Rel(p.ProjectRoot, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// ResolveRelative joins value onto base unless value is absolute. An empty value
// yields base.
func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	switch {
	case raw == "":
		return filepath.Clean(base)
	case filepath.IsAbs(raw):
		return filepath.Clean(raw)
	default:
		return filepath.Join(base, raw)
	}
}

// DetectProjectRoot returns the nearest ancestor of any candidate that holds a
// project marker, falling back to the working directory.
func DetectProjectRoot(candidates []string) (string, error) {
	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}
		start, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		if info, err := os.Stat(start); err == nil && !info.IsDir() {
			start = filepath.Dir(start)
		}
		if root, ok := findUp(start); ok {
			return root, nil
		}
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}

func findUp(dir string) (string, bool) {
	for {
		for _, marker := range projectMarkers {
			if _, err := os.Stat(filepath.Join(dir, marker)); err == nil {
				return filepath.Clean(dir), true
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

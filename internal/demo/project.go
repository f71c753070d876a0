package demo

import (
	"embed"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"scopebind/internal/shared/util"
)

//go:embed project
var projectFS embed.FS

// WriteProject copies the example project (config, scenes and asset documents)
// into dir. Existing files are left untouched unless overwrite is set.
func WriteProject(dir string, overwrite bool) ([]string, error) {
	var written []string
	err := fs.WalkDir(projectFS, "project", func(p string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		rel := path.Clean(p[len("project/"):])
		target := filepath.Join(dir, filepath.FromSlash(rel))
		if !overwrite {
			if _, err := os.Stat(target); err == nil {
				return nil
			}
		}
		data, err := projectFS.ReadFile(p)
		if err != nil {
			return err
		}
		if err := util.WriteFileAtomic(target, data, 0o644); err != nil {
			return err
		}
		written = append(written, rel)
		return nil
	})
	return written, err
}

package watcher

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/gobwas/glob"
)

// AwaitFile blocks until file is written, created or replaced, timeout elapses or
// ctx is done. It reports whether a change was seen. A non-positive timeout waits
// until ctx is done.
func AwaitFile(ctx context.Context, file string, debounce, timeout time.Duration) (bool, error) {
	dir := filepath.Dir(file)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return false, err
	}

	changed := make(chan struct{}, 1)
	w, err := NewWatcher(debounce, []string{glob.QuoteMeta(filepath.Base(file))}, []string{".*"}, func([]string) {
		select {
		case changed <- struct{}{}:
		default:
		}
	})
	if err != nil {
		return false, err
	}
	defer w.Close()

	if err := w.Watch([]string{dir}); err != nil {
		return false, err
	}

	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	select {
	case <-changed:
		return true, nil
	case <-expired:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}

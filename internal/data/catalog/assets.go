// Package catalog holds the external stores the engine queries during a run: the
// asset catalog and the indirection catalog.
package catalog

import (
	"fmt"
	"reflect"
	"scopebind/internal/engine/locator"
	"strings"
	"sync"

	"github.com/gobwas/glob"
)

// Assets is an in-memory asset catalog keyed by slash-separated asset paths.
type Assets struct {
	mu      sync.RWMutex
	entries []locator.Asset
	globs   map[string]glob.Glob
}

func NewAssets(entries ...locator.Asset) *Assets {
	c := &Assets{globs: make(map[string]glob.Glob)}
	c.Add(entries...)
	return c
}

// Add appends entries in order. Paths are stored without leading or trailing slashes.
func (c *Assets) Add(entries ...locator.Asset) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, e := range entries {
		if e.Instance == nil {
			continue
		}
		e.Path = cleanPath(e.Path)
		c.entries = append(c.entries, e)
	}
}

// Clone copies the catalog so per-hierarchy entries do not leak into the shared set.
func (c *Assets) Clone() *Assets {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := NewAssets()
	out.entries = append(out.entries, c.entries...)
	return out
}

func (c *Assets) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// LoadOne returns the first entry at path assignable to t.
func (c *Assets) LoadOne(path string, t reflect.Type) ([]locator.Asset, error) {
	all, err := c.LoadAll(path, t)
	if err != nil || len(all) == 0 {
		return nil, err
	}
	return all[:1], nil
}

// LoadAll returns every entry at path assignable to t.
func (c *Assets) LoadAll(path string, t reflect.Type) ([]locator.Asset, error) {
	path = cleanPath(path)
	return c.collect(t, func(p string) bool { return p == path }), nil
}

// LoadFolder returns the entries below folder assignable to t. A folder containing
// glob syntax is matched as a pattern instead.
func (c *Assets) LoadFolder(folder string, t reflect.Type) ([]locator.Asset, error) {
	pattern := cleanPath(folder)
	if !strings.ContainsAny(pattern, "*?[{") {
		if pattern == "" {
			pattern = "**"
		} else {
			pattern += "/**"
		}
	}
	g, err := c.compile(pattern)
	if err != nil {
		return nil, err
	}
	return c.collect(t, g.Match), nil
}

func (c *Assets) compile(pattern string) (glob.Glob, error) {
	c.mu.RLock()
	g, ok := c.globs[pattern]
	c.mu.RUnlock()
	if ok {
		return g, nil
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, fmt.Errorf("compile asset folder %q: %w", pattern, err)
	}
	c.mu.Lock()
	c.globs[pattern] = g
	c.mu.Unlock()
	return g, nil
}

func (c *Assets) collect(t reflect.Type, match func(string) bool) []locator.Asset {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var out []locator.Asset
	for _, e := range c.entries {
		if !match(e.Path) {
			continue
		}
		if t != nil && !reflect.TypeOf(e.Instance).AssignableTo(t) {
			continue
		}
		out = append(out, e)
	}
	return out
}

func cleanPath(p string) string {
	return strings.Trim(strings.TrimSpace(p), "/")
}

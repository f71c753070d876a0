package catalog

import (
	"bytes"
	"fmt"
	"os"
	"reflect"
	"scopebind/internal/data/scene"
	"scopebind/internal/engine/binding"
	"scopebind/internal/engine/indirection"
	"scopebind/internal/shared/util"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"
)

// Proxy is a provisioned indirection object: Type is the concrete type it stands
// in for, Proxy the registered type that gets instantiated.
type Proxy struct {
	Type   string `toml:"type"`
	Proxy  string `toml:"proxy"`
	Target string `toml:"target,omitempty"`
}

// Targeted is implemented by proxy types that want to know which object they stand for.
type Targeted interface {
	SetTarget(target string)
}

type indirectionFile struct {
	Proxies  []Proxy                        `toml:"proxies"`
	Requests []indirection.ProvisionRequest `toml:"requests"`
}

// Indirection is a TOML file backed indirection catalog. Pending provisioning
// requests are persisted to the file so the host can act on them between runs.
type Indirection struct {
	mu        sync.Mutex
	path      string
	types     *scene.TypeRegistry
	file      indirectionFile
	instances map[string]any
}

// OpenIndirection reads path. A missing file is an empty catalog; it is created on
// the first request.
func OpenIndirection(path string, types *scene.TypeRegistry) (*Indirection, error) {
	if types == nil {
		return nil, fmt.Errorf("indirection catalog %s needs a type registry", path)
	}
	c := &Indirection{path: path, types: types}
	if err := c.Reload(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Indirection) Path() string {
	return c.path
}

// Reload re-reads the catalog file and drops cached proxy instances.
func (c *Indirection) Reload() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances = make(map[string]any)
	c.file = indirectionFile{}
	data, err := os.ReadFile(c.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read indirection catalog %s: %w", c.path, err)
	}
	if _, err := toml.Decode(string(data), &c.file); err != nil {
		return fmt.Errorf("decode indirection catalog %s: %w", c.path, err)
	}
	return nil
}

// FindExisting instantiates the proxy provisioned for concrete. The same instance is
// returned until the next Reload.
func (c *Indirection) FindExisting(concrete reflect.Type) (any, bool) {
	name := binding.TypeName(concrete)
	c.mu.Lock()
	defer c.mu.Unlock()
	if inst, ok := c.instances[name]; ok {
		return inst, true
	}
	for _, p := range c.file.Proxies {
		if strings.TrimSpace(p.Type) != name {
			continue
		}
		inst, err := c.types.New(p.Proxy)
		if err != nil {
			return nil, false
		}
		if t, ok := inst.(Targeted); ok && p.Target != "" {
			t.SetTarget(p.Target)
		}
		c.instances[name] = inst
		return inst, true
	}
	return nil, false
}

// RequestCreate records req unless a request for the same type is already pending.
func (c *Indirection) RequestCreate(req indirection.ProvisionRequest) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, existing := range c.file.Requests {
		if existing.TypeName == req.TypeName {
			return nil
		}
	}
	c.file.Requests = append(c.file.Requests, req)
	return c.save()
}

// Pending lists the persisted provisioning requests.
func (c *Indirection) Pending() []indirection.ProvisionRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]indirection.ProvisionRequest(nil), c.file.Requests...)
}

// Proxies lists the provisioned proxies.
func (c *Indirection) Proxies() []Proxy {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Proxy(nil), c.file.Proxies...)
}

// Provision turns every pending request whose proxy type is registered into a
// provisioned proxy and persists the file. It returns the number provisioned.
func (c *Indirection) Provision() (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var (
		remaining []indirection.ProvisionRequest
		count     int
	)
	for _, req := range c.file.Requests {
		if _, err := c.types.Lookup(req.ProxyName); err != nil {
			remaining = append(remaining, req)
			continue
		}
		c.file.Proxies = append(c.file.Proxies, Proxy{Type: req.TypeName, Proxy: req.ProxyName})
		count++
	}
	if count == 0 {
		return 0, nil
	}
	c.file.Requests = remaining
	return count, c.save()
}

func (c *Indirection) save() error {
	var buf bytes.Buffer
	if err := toml.NewEncoder(&buf).Encode(c.file); err != nil {
		return fmt.Errorf("encode indirection catalog: %w", err)
	}
	if err := util.WriteFileAtomic(c.path, buf.Bytes(), 0o644); err != nil {
		return fmt.Errorf("write indirection catalog %s: %w", c.path, err)
	}
	return nil
}

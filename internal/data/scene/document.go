// Package scene loads persisted object hierarchies from TOML documents and exposes
// them to the engine through the hierarchy ports.
package scene

import (
	"fmt"
	"os"
	"path/filepath"
	"scopebind/internal/core/errors"
	"strings"

	"github.com/BurntSushi/toml"
)

// Document is the on-disk form of one hierarchy.
type Document struct {
	Name    string       `toml:"name"`
	Assets  []AssetSpec  `toml:"assets"`
	Objects []ObjectSpec `toml:"objects"`

	source string
	md     toml.MetaData
}

// ObjectSpec is one positioned object. Context, when set, starts a new context of
// that kind at the object.
type ObjectSpec struct {
	Name       string          `toml:"name"`
	Context    string          `toml:"context"`
	Scope      *ScopeSpec      `toml:"scope"`
	Components []ComponentSpec `toml:"components"`
	Children   []ObjectSpec    `toml:"children"`
}

// ComponentSpec names a registered type; Fields are decoded into a fresh instance.
type ComponentSpec struct {
	Type   string         `toml:"type"`
	Fields toml.Primitive `toml:"fields"`
}

// AssetSpec is a catalog entry stored alongside the hierarchy.
type AssetSpec struct {
	Path   string         `toml:"path"`
	Type   string         `toml:"type"`
	Fields toml.Primitive `toml:"fields"`
}

// ScopeSpec declares the bindings of the scope hosted by an object.
type ScopeSpec struct {
	Bindings []BindingSpec `toml:"bindings"`
}

// BindingSpec mirrors the binding builder. Origin and Direction select an explicit
// search; leaving both empty keeps the default strategy of the category. A child
// index alone selects the child-at direction.
type BindingSpec struct {
	Category    string          `toml:"category"`
	Type        string          `toml:"type"`
	To          string          `toml:"to"`
	Many        bool            `toml:"many"`
	Origin      string          `toml:"origin"`
	Direction   string          `toml:"direction"`
	IncludeSelf bool            `toml:"include_self"`
	ChildIndex  *int            `toml:"child_index"`
	Node        string          `toml:"node"`
	Load        string          `toml:"load"`
	Path        string          `toml:"path"`
	// Instances back load = "instances"; they are built like components.
	Instances   []ComponentSpec `toml:"instances"`
	IDs         []string        `toml:"ids"`
	ForTypes    []string        `toml:"for_types"`
	Members     []string        `toml:"members"`
	Indirect    bool            `toml:"indirect"`
	Filters     []FilterSpec    `toml:"filters"`
}

// Load reads and decodes a document. An empty name falls back to the file name.
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.AddContext(errors.Wrap(err, errors.CodeNotFound, "scene file not found"), errors.CtxPath, path)
		}
		return nil, errors.AddContext(errors.Wrap(err, errors.CodeInternal, "read scene file"), errors.CtxPath, path)
	}
	doc, err := Decode(string(data))
	if err != nil {
		return nil, errors.AddContext(err, errors.CtxPath, path)
	}
	doc.source = path
	if doc.Name == "" {
		doc.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return doc, nil
}

// Decode parses document text.
func Decode(text string) (*Document, error) {
	var doc Document
	md, err := toml.Decode(text, &doc)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "decode scene document")
	}
	doc.md = md
	doc.Name = strings.TrimSpace(doc.Name)
	if err := validateObjects(doc.Objects, ""); err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid scene document")
	}
	for i, a := range doc.Assets {
		if strings.TrimSpace(a.Path) == "" || strings.TrimSpace(a.Type) == "" {
			return nil, errors.New(errors.CodeValidationError, fmt.Sprintf("asset #%d needs a path and a type", i))
		}
	}
	return &doc, nil
}

// Source is the file the document was loaded from, if any.
func (d *Document) Source() string {
	return d.source
}

func validateObjects(objects []ObjectSpec, parent string) error {
	for i, o := range objects {
		name := strings.TrimSpace(o.Name)
		if name == "" {
			return fmt.Errorf("object #%d under %q has no name", i, parent)
		}
		if strings.Contains(name, "/") {
			return fmt.Errorf("object name %q must not contain '/'", name)
		}
		path := name
		if parent != "" {
			path = parent + "/" + name
		}
		if err := validateObjects(o.Children, path); err != nil {
			return err
		}
	}
	return nil
}

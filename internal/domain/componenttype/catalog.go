package componenttype

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog is the YAML document listing component types to register.
type Catalog struct {
	Types []CatalogEntry `yaml:"component_types"`
}

type CatalogEntry struct {
	Model    string `yaml:"model"`
	ViewForm string `yaml:"view_form"`
	Name     string `yaml:"name"`
	Code     string `yaml:"code"`
	Ordering int    `yaml:"ordering"`
}

// ParseCatalog decodes and checks a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var cat Catalog
	if err := yaml.Unmarshal(data, &cat); err != nil {
		return nil, fmt.Errorf("parse component type catalog: %w", err)
	}
	seen := make(map[string]bool)
	for i, e := range cat.Types {
		if e.Model == "" || e.ViewForm == "" {
			return nil, fmt.Errorf("catalog entry %d: model and view_form are required", i)
		}
		key := e.Model + "/" + e.ViewForm
		if seen[key] {
			return nil, fmt.Errorf("catalog entry %d: duplicate %s", i, key)
		}
		seen[key] = true
	}
	return &cat, nil
}

// DefaultCatalog returns the built-in five component kinds.
func DefaultCatalog() *Catalog {
	cat, err := ParseCatalog(defaultCatalog)
	if err != nil {
		panic(err)
	}
	return cat
}

// LoadCatalog reads path, or returns the default catalog when path is empty.
func LoadCatalog(path string) (*Catalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	return ParseCatalog(data)
}

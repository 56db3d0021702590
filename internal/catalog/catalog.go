// Package catalog resolves documentation links for rejection errors.
//
// The catalog file is a two level YAML map, field then error:
//
//	service:
//	  inactive: https://docs.example.com/errors/service-inactive
//	app_key:
//	  required: https://docs.example.com/errors/app-key-required
package catalog

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is a read-only lookup built once at startup.
type Catalog struct {
	entries map[string]map[string]string
}

// Empty returns a catalog with no documentation.
func Empty() *Catalog {
	return &Catalog{entries: map[string]map[string]string{}}
}

// Load reads the catalog file. An empty path yields an empty catalog.
func Load(path string) (*Catalog, error) {
	if path == "" {
		return Empty(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read errors file: %w", err)
	}
	return Parse(data)
}

// Parse decodes catalog YAML.
func Parse(data []byte) (*Catalog, error) {
	entries := map[string]map[string]string{}
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("failed to parse errors yaml: %w", err)
	}
	if entries == nil {
		entries = map[string]map[string]string{}
	}
	return &Catalog{entries: entries}, nil
}

// Docs returns the documentation link for field.error, or "" when unknown.
func (c *Catalog) Docs(field, errorCode string) string {
	if c == nil {
		return ""
	}
	return c.entries[field][errorCode]
}

// Len returns the number of documented errors.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	n := 0
	for _, errs := range c.entries {
		n += len(errs)
	}
	return n
}

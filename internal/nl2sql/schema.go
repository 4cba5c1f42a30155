package nl2sql

import (
	"embed"
	"fmt"
	"path"
	"sort"
	"strings"
)

// DefaultSchema is used when a request names a schema without a description.
const DefaultSchema = "star_dwh"

//go:embed schemas/*.txt
var schemaFS embed.FS

type SchemaCatalog struct {
	descriptions map[string]string
}

// LoadSchemas reads the embedded schema descriptions. The file name without
// extension is the schema name.
func LoadSchemas() (*SchemaCatalog, error) {
	entries, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("read embedded schemas: %w", err)
	}
	catalog := &SchemaCatalog{descriptions: make(map[string]string, len(entries))}
	for _, entry := range entries {
		if entry.IsDir() || path.Ext(entry.Name()) != ".txt" {
			continue
		}
		raw, err := schemaFS.ReadFile(path.Join("schemas", entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", entry.Name(), err)
		}
		name := strings.TrimSuffix(entry.Name(), ".txt")
		catalog.descriptions[name] = strings.TrimSpace(string(raw))
	}
	if _, ok := catalog.descriptions[DefaultSchema]; !ok {
		return nil, fmt.Errorf("default schema %q is not embedded", DefaultSchema)
	}
	return catalog, nil
}

// Resolve returns the description for name, falling back to the default
// schema. exact is false when the fallback was taken.
func (c *SchemaCatalog) Resolve(name string) (resolved, description string, exact bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultSchema
	}
	if description, ok := c.descriptions[key]; ok {
		return key, description, true
	}
	return DefaultSchema, c.descriptions[DefaultSchema], false
}

func (c *SchemaCatalog) Names() []string {
	names := make([]string, 0, len(c.descriptions))
	for name := range c.descriptions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

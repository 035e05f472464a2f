package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"

	yaml "gopkg.in/yaml.v3"
)

// EncodeJSON encodes the catalog as two-space indented JSON with a trailing
// newline. Map keys are sorted, so equal catalogs encode identically.
func (c *Catalog) EncodeJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(c.normalized()); err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeYAML encodes the catalog as YAML with the same field names as JSON.
func (c *Catalog) EncodeYAML() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(c.normalized()); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encode yaml: %w", err)
	}
	return buf.Bytes(), nil
}

// normalized guarantees endpoints encode as an empty object rather than null.
func (c *Catalog) normalized() *Catalog {
	if c.Endpoints != nil {
		return c
	}
	cp := *c
	cp.Endpoints = map[string]Endpoint{}
	return &cp
}

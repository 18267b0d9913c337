package catalog

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// yamlSchema is the top-level layout of a YAML schema file:
//
//	tables:
//	  - name: posts
//	    columns: [id, title, {name: published_at, type: timestamp}]
//	    associations:
//	      - {name: comments, kind: has_many, table: comments, foreign_key: post_id}
type yamlSchema struct {
	Tables []TableDef `yaml:"tables"`
}

// UnmarshalYAML accepts either a bare column name or a {name, type} map.
func (c *Column) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind == yaml.ScalarNode {
		c.Name = value.Value
		return nil
	}

	type plain Column
	var p plain
	if err := value.Decode(&p); err != nil {
		return err
	}
	*c = Column(p)
	return nil
}

// LoadYAML reads and parses a YAML schema file.
func LoadYAML(path string) (*Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML parses a YAML schema. Unknown fields are rejected so typos
// such as "foreignkey:" fail loudly.
func ParseYAML(data []byte) (*Schema, error) {
	var doc yamlSchema
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if len(doc.Tables) == 0 {
		return nil, fmt.Errorf("invalid schema: tables list is required and must be non-empty")
	}

	schema, err := NewSchema(doc.Tables...)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return schema, nil
}

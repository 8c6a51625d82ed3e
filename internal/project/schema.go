package project

import (
	"fmt"
	"strconv"

	"gopkg.in/yaml.v3"
)

// schemaFile is the subset of a dbt properties file that declares models.
type schemaFile struct {
	Version int           `yaml:"version"`
	Models  []schemaModel `yaml:"models"`
}

type schemaModel struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Columns     []schemaColumn `yaml:"columns"`
	Meta        map[string]any `yaml:"meta"`
	Config      struct {
		Materialized string         `yaml:"materialized"`
		Meta         map[string]any `yaml:"meta"`
	} `yaml:"config"`
}

type schemaColumn struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	DataType    string `yaml:"data_type"`
}

// Declaration is what a properties file says about one model.
type Declaration struct {
	Name    string
	File    string
	Columns []string
	// Rollup is set from meta.rollup or config.meta.rollup
	Rollup *bool
}

// SchemaParseError reports a properties file that could not be read.
type SchemaParseError struct {
	File    string
	Line    int
	Message string
}

func (e *SchemaParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Message)
}

// parseSchema extracts model declarations from properties file content.
func parseSchema(file string, content []byte) ([]Declaration, error) {
	var sf schemaFile
	if err := yaml.Unmarshal(content, &sf); err != nil {
		perr := &SchemaParseError{File: file, Message: fmt.Sprintf("invalid YAML: %v", err)}
		if te, ok := err.(*yaml.TypeError); ok && len(te.Errors) > 0 {
			perr.Message = te.Errors[0]
		}
		return nil, perr
	}

	decls := make([]Declaration, 0, len(sf.Models))
	for i, m := range sf.Models {
		if m.Name == "" {
			return nil, &SchemaParseError{File: file, Message: fmt.Sprintf("models[%d] has no name", i)}
		}
		d := Declaration{Name: m.Name, File: file}
		for _, c := range m.Columns {
			if c.Name != "" {
				d.Columns = append(d.Columns, c.Name)
			}
		}
		// config.meta is the newer location and wins
		if v, ok := metaBool(m.Meta, "rollup"); ok {
			d.Rollup = &v
		}
		if v, ok := metaBool(m.Config.Meta, "rollup"); ok {
			d.Rollup = &v
		}
		decls = append(decls, d)
	}
	return decls, nil
}

func metaBool(meta map[string]any, key string) (bool, bool) {
	switch v := meta[key].(type) {
	case bool:
		return v, true
	case string:
		b, err := strconv.ParseBool(v)
		return b, err == nil
	}
	return false, false
}

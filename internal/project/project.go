// Package project loads model units from a dbt-style models directory.
//
// Every .sql file becomes a unit named after its file stem. Properties files
// (.yml/.yaml) contribute declared columns and rollup flags; models declared
// there without a SQL file become path-less units.
package project

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// Project is a loaded models directory.
type Project struct {
	// Root is the absolute models directory
	Root string
	// Warnings lists files that were skipped and why
	Warnings []string

	units map[string]*core.Unit
}

// Load walks modelsDir and builds its units.
func Load(modelsDir string) (*Project, error) {
	root, err := filepath.Abs(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("resolve models dir: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("models dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("models dir %s is not a directory", root)
	}

	sqlFiles, schemaFiles, err := files(root)
	if err != nil {
		return nil, fmt.Errorf("walk models dir: %w", err)
	}

	p := &Project{Root: root, units: make(map[string]*core.Unit)}
	for _, path := range sqlFiles {
		name := core.StemName(path)
		if existing, ok := p.units[name]; ok {
			p.warnf("%s: duplicate model name %q, already defined by %s", p.rel(path), name, p.rel(existing.Path))
			continue
		}
		p.units[name] = &core.Unit{Name: name, Path: path}
	}

	declared := make(map[string]string)
	for _, path := range schemaFiles {
		content, err := os.ReadFile(path)
		if err != nil {
			p.warnf("%s: %v", p.rel(path), err)
			continue
		}
		decls, err := parseSchema(p.rel(path), content)
		if err != nil {
			p.Warnings = append(p.Warnings, err.Error())
			continue
		}
		for _, d := range decls {
			if first, ok := declared[d.Name]; ok {
				p.warnf("%s: model %q already declared in %s", d.File, d.Name, first)
				continue
			}
			declared[d.Name] = d.File
			p.attach(d)
		}
	}

	return p, nil
}

// Units returns all units sorted by name.
func (p *Project) Units() []core.Unit {
	units := make([]core.Unit, 0, len(p.units))
	for _, u := range p.units {
		units = append(units, *u)
	}
	sort.Slice(units, func(i, j int) bool {
		return units[i].Name < units[j].Name
	})
	return units
}

// Unit returns the unit with the given name.
func (p *Project) Unit(name string) (core.Unit, bool) {
	u, ok := p.units[name]
	if !ok {
		return core.Unit{}, false
	}
	return *u, true
}

func (p *Project) attach(d Declaration) {
	u, ok := p.units[d.Name]
	if !ok {
		u = &core.Unit{Name: d.Name}
		p.units[d.Name] = u
	}
	u.DeclaredColumns = d.Columns
	u.DeclaredRollup = d.Rollup
}

func (p *Project) rel(path string) string {
	if rel, err := filepath.Rel(p.Root, path); err == nil {
		return rel
	}
	return path
}

func (p *Project) warnf(format string, args ...any) {
	p.Warnings = append(p.Warnings, fmt.Sprintf(format, args...))
}

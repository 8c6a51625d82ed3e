package core

import (
	"path/filepath"
	"strings"
)

// Unit identifies one transformation model handed to the discovery engine.
// Only Name or Path is required; everything else is an optional declaration
// coming from the project model provider.
type Unit struct {
	// Name is the model name (filename without extension when omitted)
	Name string
	// Path is the SQL file backing the model, if any
	Path string
	// DeclaredRollup overrides rollup classification when no SQL is available
	DeclaredRollup *bool
	// DeclaredColumns are column names declared outside the SQL (schema files, catalogs)
	DeclaredColumns []string
}

// UnitName returns Name, or the file stem of Path when Name is empty.
func (u Unit) UnitName() string {
	if u.Name != "" {
		return u.Name
	}
	return StemName(u.Path)
}

// CacheKey returns the composite identity used to memoize discovery results.
func (u Unit) CacheKey() string {
	return u.UnitName() + "\x00" + u.Path
}

// StemName returns the base file name without its extension, or "unknown"
// when path is empty.
func StemName(path string) string {
	if path == "" {
		return "unknown"
	}
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// BoolPtr returns a pointer to b, for populating optional declarations.
func BoolPtr(b bool) *bool {
	return &b
}

// Package normalize strips dbt/Jinja templating from model SQL so the result
// resembles plain SQL that a parser can read.
//
// Normalization is a pure text substitution. It never fails and returns the
// input unchanged when no templating markers are present.
package normalize

import (
	"regexp"
	"strings"
)

// Placeholder replaces template expressions whose value cannot be resolved
// statically.
const Placeholder = "placeholder_table"

var (
	commentPattern = regexp.MustCompile(`(?s)\{#.*?#\}`)
	configPattern  = regexp.MustCompile(`(?s)\{\{-?\s*config\s*\(.*?\)\s*-?\}\}`)
	refPattern     = regexp.MustCompile(`\{\{-?\s*ref\s*\(\s*['"]([^'"]+)['"]\s*(?:,\s*['"]([^'"]+)['"]\s*)?(?:,\s*v(?:ersion)?\s*=\s*[^)]*)?\)\s*-?\}\}`)
	sourcePattern  = regexp.MustCompile(`\{\{-?\s*source\s*\(\s*['"]([^'"]+)['"]\s*,\s*['"]([^'"]+)['"]\s*\)\s*-?\}\}`)
	tagPattern     = regexp.MustCompile(`(?s)\{%-?.*?-?%\}`)
	exprPattern    = regexp.MustCompile(`(?s)\{\{.*?\}\}`)
)

// Normalize rewrites templated SQL into plain SQL:
//
//   - {# ... #} comments and {{ config(...) }} blocks are removed
//   - {{ ref('model') }} and {{ ref('package', 'model') }} become the model name
//   - {{ source('src', 'table') }} becomes src.table
//   - {% ... %} statement tags are removed, their enclosed text is kept
//   - any other {{ ... }} expression becomes Placeholder
func Normalize(raw string) string {
	if !HasTemplating(raw) {
		return raw
	}

	sql := commentPattern.ReplaceAllString(raw, "")
	sql = configPattern.ReplaceAllString(sql, "")

	sql = refPattern.ReplaceAllStringFunc(sql, func(m string) string {
		sub := refPattern.FindStringSubmatch(m)
		if sub[2] != "" {
			return sub[2]
		}
		return sub[1]
	})
	sql = sourcePattern.ReplaceAllString(sql, "$1.$2")

	sql = tagPattern.ReplaceAllString(sql, "")
	sql = exprPattern.ReplaceAllString(sql, Placeholder)

	return sql
}

// HasTemplating reports whether text contains any Jinja markers.
func HasTemplating(text string) bool {
	return strings.Contains(text, "{{") ||
		strings.Contains(text, "{%") ||
		strings.Contains(text, "{#")
}

package metrics

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

var (
	nameSuffix  = regexp.MustCompile(`(?i)_(value|count|total|sum|avg|amount)$`)
	baseSuffix  = regexp.MustCompile(`(?i)_(numerator|denominator|value|count|total|sum|avg|amount)$`)
	numerator   = regexp.MustCompile(`(?i)_numerator$`)
	denominator = regexp.MustCompile(`(?i)_denominator$`)
	letterRun   = regexp.MustCompile(`\p{L}+`)
)

// DerivedName turns a column or base name into a display name:
// "total_revenue_value" becomes "Total Revenue". Every run of letters is
// title-cased on its own, so "p95latency" becomes "P95Latency".
func DerivedName(column string) string {
	name := nameSuffix.ReplaceAllString(column, "")
	name = strings.ReplaceAll(name, "_", " ")
	title := cases.Title(language.Und)
	return letterRun.ReplaceAllStringFunc(name, title.String)
}

// ShortCode abbreviates a name to the first three characters of each
// underscore-delimited word: "total_revenue_value" becomes "tot_rev_val".
func ShortCode(column string) string {
	var parts []string
	for _, word := range strings.Split(column, "_") {
		if word == "" {
			continue
		}
		r := []rune(word)
		if len(r) > 3 {
			r = r[:3]
		}
		parts = append(parts, string(r))
	}
	return strings.ToLower(strings.Join(parts, "_"))
}

// BaseName strips a known metric suffix so related columns group together.
func BaseName(column string) string {
	return baseSuffix.ReplaceAllString(column, "")
}

// InferCategory matches the derived name against NameCategoryRules, then the
// unit name against UnitCategoryRules.
func InferCategory(derivedName, unitName string) core.Category {
	if c, ok := matchCategory(NameCategoryRules, derivedName); ok {
		return c
	}
	if c, ok := matchCategory(UnitCategoryRules, unitName); ok {
		return c
	}
	return core.CategoryGeneral
}

func matchCategory(rules []CategoryRule, text string) (core.Category, bool) {
	lower := strings.ToLower(text)
	for _, rule := range rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Category, true
			}
		}
	}
	return "", false
}

// BusinessKeyword returns the first business keyword contained in text.
func BusinessKeyword(text string) (string, bool) {
	lower := strings.ToLower(text)
	for _, kw := range BusinessKeywords {
		if strings.Contains(lower, kw) {
			return kw, true
		}
	}
	return "", false
}

func isGenericName(derivedName string) bool {
	lower := strings.ToLower(derivedName)
	for _, g := range GenericNames {
		if lower == g {
			return true
		}
	}
	return false
}

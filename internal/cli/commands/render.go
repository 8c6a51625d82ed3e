package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var titleCaser = cases.Title(language.English)

// kindLabel turns "single_value" into "Single Value".
func kindLabel(k core.MetricKind) string {
	return titleCaser.String(strings.ReplaceAll(k.String(), "_", " "))
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func formatConfidence(c float64) string {
	return fmt.Sprintf("%.2f", c)
}

// renderDiscovery writes one discovery result in text or markdown form.
func renderDiscovery(r *output.Renderer, res *core.DiscoveryResult) {
	r.Header(2, res.UnitName)
	if res.SourcePath != "" {
		r.KeyValue("Source", res.SourcePath)
	}
	r.KeyValue("Rollup", yesNo(res.IsRollupUnit))
	r.KeyValue("Parse", res.Attempt.String())
	r.KeyValue("Confidence", formatConfidence(res.OverallConfidence))
	r.Println("")

	if len(res.Candidates) > 0 {
		rows := make([][]string, 0, len(res.Candidates))
		for _, c := range res.Candidates {
			rows = append(rows, []string{
				c.DerivedName,
				c.DerivedShortCode,
				kindLabel(c.Kind),
				string(c.Category),
				strings.Join(c.Columns(), " / "),
				formatConfidence(c.Confidence),
			})
		}
		r.Table([]string{"Metric", "Code", "Kind", "Category", "Columns", "Confidence"}, rows)
	}

	if len(res.Notes) > 0 {
		for _, note := range res.Notes {
			r.Println(r.Muted("- " + note))
		}
		r.Println("")
	}

	if len(res.ColumnNotes) > 0 {
		names := make([]string, 0, len(res.ColumnNotes))
		for name := range res.ColumnNotes {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			r.KeyValue(name, res.ColumnNotes[name])
		}
		r.Println("")
	}
}

// renderDiscoveries writes results in the renderer's effective mode.
func renderDiscoveries(r *output.Renderer, results []*core.DiscoveryResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(results)
	}
	for _, res := range results {
		renderDiscovery(r, res)
	}
	return nil
}

// summaryRows builds one table row per result.
func summaryRows(results []*core.DiscoveryResult) [][]string {
	rows := make([][]string, 0, len(results))
	for _, res := range results {
		top := ""
		if len(res.Candidates) > 0 {
			top = res.Candidates[0].DerivedName
		}
		rows = append(rows, []string{
			res.UnitName,
			yesNo(res.IsRollupUnit),
			fmt.Sprintf("%d", len(res.Candidates)),
			formatConfidence(res.OverallConfidence),
			top,
			res.Attempt.String(),
		})
	}
	return rows
}

var summaryHeader = []string{"Model", "Rollup", "Candidates", "Confidence", "Top Metric", "Parse"}

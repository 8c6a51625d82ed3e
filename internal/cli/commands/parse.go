package commands

import (
	"log/slog"
	"strings"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/sqlfacts"
	"github.com/spf13/cobra"
)

// NewParseCommand creates the parse command.
func NewParseCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <file>",
		Short: "Show the structural facts extracted from a SQL model",
		Long: `Parse a SQL model and print what discovery sees: output columns,
aggregates, referenced tables, CTE names, rollup classification and any
parse diagnostics.`,
		Example: `  leapmetrics parse models/marts/customer_rollup.sql`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			res := sqlfacts.ParseFile(args[0])
			if res.UsedFallback() {
				cmdCtx.Logger.Warn("structural parse failed, used fallback",
					slog.String("model", res.UnitName), slog.Int("errors", len(res.ParseErrors)))
			}
			return renderParse(cmdCtx.Renderer, res)
		},
	}
}

func renderParse(r *output.Renderer, res *core.ParseResult) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(res)
	}

	r.Header(2, res.UnitName)
	r.KeyValue("Source", res.SourcePath)
	r.KeyValue("Parse", res.Attempt.String())
	r.KeyValue("Rollup", yesNo(res.IsRollupUnit))
	r.KeyValue("Tables", joinOrNone(res.ReferencedTables))
	r.KeyValue("CTEs", joinOrNone(res.NamedSubqueries))
	r.Println("")

	if len(res.Columns) > 0 {
		rows := make([][]string, 0, len(res.Columns))
		for _, c := range res.Columns {
			rows = append(rows, []string{c.Name, c.QualifyingTable, string(c.AggregateFunction), c.SourceExpression})
		}
		r.Table([]string{"Column", "Table", "Aggregate", "Expression"}, rows)
	}

	for _, e := range res.ParseErrors {
		r.Println(r.Muted("- " + e))
	}
	return nil
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none"
	}
	return strings.Join(items, ", ")
}

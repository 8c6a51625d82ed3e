package commands

import (
	"fmt"
	"path/filepath"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/spf13/cobra"
)

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>...",
		Short: "Discover metric candidates in SQL model files",
		Long: `Analyze one or more SQL model files and propose metric definitions.

Each file is treated as a model named after its file stem. Templated dbt SQL
is normalized before parsing.`,
		Example: `  # Analyze one model
  leapmetrics analyze models/marts/customer_rollup.sql

  # Analyze several models as JSON
  leapmetrics analyze models/marts/*.sql --output json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args)
		},
	}
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	cmdCtx := NewCommandContext(cmd)

	units := make([]core.Unit, 0, len(args))
	for _, arg := range args {
		path, err := filepath.Abs(arg)
		if err != nil {
			return fmt.Errorf("resolve %s: %w", arg, err)
		}
		units = append(units, core.Unit{Path: path})
	}

	results := cmdCtx.NewEngine().BatchAnalyze(cmd.Context(), units)
	return renderDiscoveries(cmdCtx.Renderer, results)
}

package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/state"
	"github.com/spf13/cobra"
)

// RunDetail is the JSON shape of one run with its units.
type RunDetail struct {
	Run   *state.Run       `json:"run"`
	Units []*state.RunUnit `json:"units"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recorded scans, or show one scan's models",
		Long: `Show scans stored with 'scan --record'. Without arguments the most recent
runs are listed; with a run ID the per-model outcome of that run is shown.`,
		Example: `  leapmetrics history --limit 5
  leapmetrics history 6f1c2a90-4d1e-4c59-9a43-2f0a8c1b7e55`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmdCtx := NewCommandContext(cmd)
			if _, err := os.Stat(cmdCtx.Cfg.StatePath); os.IsNotExist(err) {
				return fmt.Errorf("no run history at %s\nHint: record a run with 'leapmetrics scan --record'", cmdCtx.Cfg.StatePath)
			}

			store, cleanup, err := cmdCtx.OpenStore()
			if err != nil {
				return fmt.Errorf("failed to open run history: %w", err)
			}
			defer cleanup()

			if len(args) == 1 {
				return showRun(cmd, cmdCtx.Renderer, store, args[0])
			}
			return listRuns(cmd, cmdCtx.Renderer, store, limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to list (0 for all)")
	return cmd
}

func listRuns(cmd *cobra.Command, r *output.Renderer, store state.Store, limit int) error {
	runs, err := store.ListRuns(cmd.Context(), limit)
	if err != nil {
		return err
	}
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(runs)
	}

	r.Header(1, fmt.Sprintf("Runs (%d shown)", len(runs)))
	if len(runs) == 0 {
		r.Println(r.Muted("No runs recorded."))
		return nil
	}
	rows := make([][]string, 0, len(runs))
	for _, run := range runs {
		rows = append(rows, []string{
			run.ID,
			run.StartedAt.Local().Format(time.DateTime),
			run.CompletedAt.Sub(run.StartedAt).Round(time.Millisecond).String(),
			fmt.Sprintf("%d", run.UnitsTotal),
			fmt.Sprintf("%d", run.Rollups),
			fmt.Sprintf("%d", run.CandidatesTotal),
		})
	}
	r.Table([]string{"Run", "Started", "Duration", "Models", "Rollups", "Candidates"}, rows)
	return nil
}

func showRun(cmd *cobra.Command, r *output.Renderer, store state.Store, id string) error {
	run, err := store.GetRun(cmd.Context(), id)
	if errors.Is(err, state.ErrRunNotFound) {
		return fmt.Errorf("%w\nHint: list runs with 'leapmetrics history'", err)
	}
	if err != nil {
		return err
	}
	units, err := store.GetRunUnits(cmd.Context(), id)
	if err != nil {
		return err
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(RunDetail{Run: run, Units: units})
	}

	r.Header(1, "Run "+run.ID)
	r.KeyValue("Started", run.StartedAt.Local().Format(time.DateTime))
	r.KeyValue("Models dir", run.ModelsDir)
	r.Println("")

	rows := make([][]string, 0, len(units))
	for _, u := range units {
		rows = append(rows, []string{
			u.UnitName,
			yesNo(u.IsRollup),
			fmt.Sprintf("%d", u.Candidates),
			formatConfidence(u.OverallConfidence),
			u.Attempt,
		})
	}
	r.Table([]string{"Model", "Rollup", "Candidates", "Confidence", "Parse"}, rows)
	return nil
}

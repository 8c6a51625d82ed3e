package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/leapstack-labs/leapmetrics/internal/cli/output"
	"github.com/leapstack-labs/leapmetrics/internal/discovery"
	"github.com/leapstack-labs/leapmetrics/internal/project"
	"github.com/leapstack-labs/leapmetrics/internal/state"
	"github.com/leapstack-labs/leapmetrics/internal/watch"
	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/spf13/cobra"
)

// ScanOutput is the JSON shape of one scan.
type ScanOutput struct {
	ModelsDir string                  `json:"models_dir"`
	Summary   ScanSummary             `json:"summary"`
	Results   []*core.DiscoveryResult `json:"results"`
	Warnings  []string                `json:"warnings"`
	RunID     string                  `json:"run_id,omitempty"`
}

// ScanSummary counts what a scan found.
type ScanSummary struct {
	Units      int `json:"units"`
	Rollups    int `json:"rollups"`
	Candidates int `json:"candidates"`
	// Hidden counts results below --min-confidence
	Hidden int `json:"hidden"`
}

type scanOptions struct {
	details       bool
	minConfidence float64
	watch         bool
}

// NewScanCommand creates the scan command.
func NewScanCommand() *cobra.Command {
	opts := &scanOptions{}

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Discover metric candidates across the models directory",
		Long: `Scan every SQL model under the models directory and summarize the
metric candidates found in each.

Column and rollup declarations from dbt properties files (schema.yml) are
used for models whose SQL is missing or unreadable.`,
		Example: `  # Summarize the project
  leapmetrics scan

  # Show every candidate for models worth a look
  leapmetrics scan --details --min-confidence 0.5

  # Store the run in history and keep scanning on change
  leapmetrics scan --record --watch`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.details, "details", false, "Show every discovery, not only the summary")
	cmd.Flags().Float64Var(&opts.minConfidence, "min-confidence", 0, "Hide models whose overall confidence is below this value")
	cmd.Flags().BoolVarP(&opts.watch, "watch", "w", false, "Re-scan when model files change")
	cmd.Flags().Bool("record", false, "Store the run in history")
	cmd.Flags().Int("workers", 0, "Models analyzed in parallel (default 1)")

	return cmd
}

func runScan(cmd *cobra.Command, opts *scanOptions) error {
	cmdCtx := NewCommandContext(cmd)
	if err := cmdCtx.Cfg.ValidateDirectories(); err != nil {
		return err
	}

	eng := cmdCtx.NewEngine()
	if err := scanOnce(cmd.Context(), cmdCtx, eng, opts); err != nil {
		return err
	}
	if !opts.watch {
		return nil
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	w, err := watch.New(cmdCtx.Cfg.ModelsDir, watch.Config{Logger: cmdCtx.Logger})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	cmdCtx.Renderer.Println(cmdCtx.Renderer.Muted("Watching for changes. Press Ctrl+C to stop."))
	return w.Run(ctx, func(changed []string) {
		eng.ClearCache()
		cmdCtx.Logger.Info("rescanning", slog.Int("changed", len(changed)))
		cmdCtx.Renderer.Println(cmdCtx.Renderer.Muted(fmt.Sprintf("%d file(s) changed, rescanning", len(changed))))
		if err := scanOnce(ctx, cmdCtx, eng, opts); err != nil {
			cmdCtx.Renderer.Warning(err.Error())
		}
	})
}

// scanOnce loads the project, analyzes it and renders the outcome.
func scanOnce(ctx context.Context, cmdCtx *CommandContext, eng *discovery.Engine, opts *scanOptions) error {
	r := cmdCtx.Renderer
	started := time.Now()

	proj, err := project.Load(cmdCtx.Cfg.ModelsDir)
	if err != nil {
		return fmt.Errorf("failed to load models: %w", err)
	}
	for _, w := range proj.Warnings {
		cmdCtx.Logger.Warn("skipped file", slog.String("reason", w))
		if r.EffectiveMode() != output.ModeJSON {
			r.Warning(w)
		}
	}

	results := eng.BatchAnalyze(ctx, proj.Units())

	out := ScanOutput{
		ModelsDir: proj.Root,
		Results:   make([]*core.DiscoveryResult, 0, len(results)),
		Warnings:  proj.Warnings,
	}
	if out.Warnings == nil {
		out.Warnings = []string{}
	}
	for _, res := range results {
		out.Summary.Units++
		if res.IsRollupUnit {
			out.Summary.Rollups++
		}
		out.Summary.Candidates += len(res.Candidates)
		if res.OverallConfidence < opts.minConfidence {
			out.Summary.Hidden++
			continue
		}
		out.Results = append(out.Results, res)
	}

	if cmdCtx.Cfg.Record {
		run, err := recordRun(ctx, cmdCtx, proj.Root, started, results)
		if err != nil {
			return err
		}
		out.RunID = run.ID
	}

	return renderScan(r, &out, opts.details)
}

func recordRun(ctx context.Context, cmdCtx *CommandContext, modelsDir string, started time.Time, results []*core.DiscoveryResult) (*state.Run, error) {
	store, cleanup, err := cmdCtx.OpenStore()
	if err != nil {
		return nil, fmt.Errorf("failed to open run history: %w", err)
	}
	defer cleanup()

	run, err := store.RecordRun(ctx, state.RunSummary{
		ModelsDir:   modelsDir,
		StartedAt:   started,
		CompletedAt: time.Now(),
		Results:     results,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to record run: %w", err)
	}
	return run, nil
}

func renderScan(r *output.Renderer, out *ScanOutput, details bool) error {
	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(out)
	}

	r.Header(1, fmt.Sprintf("Metric discovery (%d models)", out.Summary.Units))
	if len(out.Results) > 0 {
		r.Table(summaryHeader, summaryRows(out.Results))
	}

	r.KeyValue("Rollups", fmt.Sprintf("%d", out.Summary.Rollups))
	r.KeyValue("Candidates", fmt.Sprintf("%d", out.Summary.Candidates))
	if out.Summary.Hidden > 0 {
		r.KeyValue("Hidden", fmt.Sprintf("%d below min confidence", out.Summary.Hidden))
	}
	if out.RunID != "" {
		r.KeyValue("Run", r.ID(out.RunID))
	}
	r.Println("")

	if details {
		for _, res := range out.Results {
			renderDiscovery(r, res)
		}
	}
	return nil
}

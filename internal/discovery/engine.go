// Package discovery orchestrates metric discovery over model units.
//
// The Engine reads each unit's SQL once, runs the parse and metric pipeline,
// and memoizes the result per unit. Results are never invalidated on their
// own: callers clear the cache after model files change.
package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
	"github.com/leapstack-labs/leapmetrics/pkg/metrics"
	"github.com/leapstack-labs/leapmetrics/pkg/sqlfacts"
)

// Config holds Engine dependencies.
type Config struct {
	Logger *slog.Logger
	// Workers bounds BatchAnalyze parallelism. Values below 2 run sequentially.
	Workers int
	// ReadFile reads model SQL. Defaults to os.ReadFile.
	ReadFile func(path string) ([]byte, error)
}

// Engine runs discovery and owns the result cache.
type Engine struct {
	cache    *cache
	logger   *slog.Logger
	workers  int
	readFile func(string) ([]byte, error)
}

// New creates an Engine with an empty cache.
func New(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	readFile := cfg.ReadFile
	if readFile == nil {
		readFile = os.ReadFile
	}
	return &Engine{
		cache:    newCache(),
		logger:   logger,
		workers:  cfg.Workers,
		readFile: readFile,
	}
}

// Analyze returns the discovery result for u, computing it on first use.
// Repeated calls return the same result until ClearCache.
func (e *Engine) Analyze(u core.Unit) (*core.DiscoveryResult, error) {
	if u.Name == "" && u.Path == "" {
		return nil, ErrInvalidUnit
	}

	key := u.CacheKey()
	result, hit, err := e.cache.getOrCompute(key, func() (*core.DiscoveryResult, error) {
		return e.discover(u)
	})
	if err != nil {
		return nil, err
	}
	if hit {
		e.logger.Debug("discovery cache hit", "unit", u.UnitName())
	}
	return result, nil
}

// AnalyzeSQL runs discovery over ad-hoc SQL text without caching.
func (e *Engine) AnalyzeSQL(name, sql string) *core.DiscoveryResult {
	pr := sqlfacts.ParseSQL(sql, "")
	return metrics.Discover(metrics.NewContext(name, pr))
}

// BatchAnalyze analyzes units and returns one result per unit in input order.
// A unit that fails, or is not started before ctx is done, yields a failure
// result instead of aborting the batch.
func (e *Engine) BatchAnalyze(ctx context.Context, units []core.Unit) []*core.DiscoveryResult {
	results := make([]*core.DiscoveryResult, len(units))

	if e.workers < 2 {
		for i, u := range units {
			results[i] = e.analyzeOne(ctx, u)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(e.workers)
		for i, u := range units {
			g.Go(func() error {
				results[i] = e.analyzeOne(ctx, u)
				return nil
			})
		}
		_ = g.Wait()
	}

	var failed, rollups, candidates int
	for _, r := range results {
		if r.IsRollupUnit {
			rollups++
		}
		candidates += len(r.Candidates)
		if isFailure(r) {
			failed++
		}
	}
	e.logger.Info("batch analysis complete",
		"units", len(units),
		"rollups", rollups,
		"candidates", candidates,
		"failed", failed)

	return results
}

// ClearCache drops every memoized result.
func (e *Engine) ClearCache() {
	e.cache.clear()
	e.logger.Debug("discovery cache cleared")
}

// CacheLen returns the number of memoized results.
func (e *Engine) CacheLen() int {
	return e.cache.len()
}

func (e *Engine) analyzeOne(ctx context.Context, u core.Unit) *core.DiscoveryResult {
	if err := ctx.Err(); err != nil {
		return core.Failed(u, failureNote(err))
	}
	r, err := e.Analyze(u)
	if err != nil {
		e.logger.Warn("unit analysis failed", "unit", u.UnitName(), "error", err)
		return core.Failed(u, failureNote(err))
	}
	return r
}

func (e *Engine) discover(u core.Unit) (result *core.DiscoveryResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &AnalysisError{Unit: u.UnitName(), Err: fmt.Errorf("panic: %v", r)}
		}
	}()

	ctx := e.buildContext(u)
	result = metrics.Discover(ctx)

	e.logger.Debug("unit analyzed",
		"unit", result.UnitName,
		"attempt", ctx.Attempt.String(),
		"rollup", result.IsRollupUnit,
		"candidates", len(result.Candidates))
	return result, nil
}

// buildContext reads and parses the unit's SQL, or falls back to its declared
// columns when there is no readable file.
func (e *Engine) buildContext(u core.Unit) metrics.Context {
	name := u.UnitName()
	if u.Path == "" {
		return declaredContext(u)
	}

	content, err := e.readFile(u.Path)
	if err != nil {
		e.logger.Warn("model file unreadable", "unit", name, "path", u.Path, "error", err)
		ctx := declaredContext(u)
		ctx.ParseErrors = []string{(&sqlfacts.ParseError{Stage: sqlfacts.StageRead, Message: err.Error()}).Error()}
		return ctx
	}

	pr := sqlfacts.ParseSQL(string(content), u.Path)
	if pr.UsedFallback() {
		e.logger.Warn("structural parse failed, used fallback", "unit", name, "errors", pr.ParseErrors)
	}
	return metrics.NewContext(name, pr)
}

func declaredContext(u core.Unit) metrics.Context {
	columns := make([]core.ColumnFact, 0, len(u.DeclaredColumns))
	for _, c := range u.DeclaredColumns {
		columns = append(columns, core.ColumnFact{Name: c, SourceExpression: c})
	}

	rollup := metrics.IsRollup("", columns)
	if u.DeclaredRollup != nil {
		rollup = *u.DeclaredRollup
	}

	return metrics.Context{
		UnitName:         u.UnitName(),
		SourcePath:       u.Path,
		Columns:          columns,
		IsRollup:         rollup,
		ReferencedTables: []string{},
		Attempt:          core.AttemptNone,
		Notes:            []string{metrics.NoteDeclaredOnly},
	}
}

func failureNote(err error) string {
	return metrics.NoteAnalysisError + ": " + err.Error()
}

func isFailure(r *core.DiscoveryResult) bool {
	return len(r.Notes) > 0 && strings.HasPrefix(r.Notes[0], metrics.NoteAnalysisError+":")
}

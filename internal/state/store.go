// Package state records discovery runs in a local SQLite database.
// It tracks each scan and the per-unit outcome so that runs can be listed
// and compared later. The discovery engine never writes here; only the
// CLI does, when asked to record a scan.
package state

import (
	"context"
	"errors"
	"time"

	"github.com/leapstack-labs/leapmetrics/pkg/core"
)

// ErrRunNotFound is returned when a run ID has no row.
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded scan.
type Run struct {
	ID              string    `json:"id"`
	StartedAt       time.Time `json:"started_at"`
	CompletedAt     time.Time `json:"completed_at"`
	ModelsDir       string    `json:"models_dir"`
	UnitsTotal      int       `json:"units_total"`
	Rollups         int       `json:"rollups"`
	CandidatesTotal int       `json:"candidates_total"`
}

// RunUnit is the stored outcome of one unit within a run.
type RunUnit struct {
	RunID             string   `json:"run_id"`
	UnitName          string   `json:"unit_name"`
	SourcePath        string   `json:"source_path"`
	Attempt           string   `json:"attempt"`
	IsRollup          bool     `json:"is_rollup"`
	Candidates        int      `json:"candidates"`
	OverallConfidence float64  `json:"overall_confidence"`
	Notes             []string `json:"notes"`
}

// RunSummary is what a finished scan hands to RecordRun.
type RunSummary struct {
	ModelsDir   string
	StartedAt   time.Time
	CompletedAt time.Time
	Results     []*core.DiscoveryResult
}

// Store persists run history.
type Store interface {
	Open(path string) error
	Close() error
	Migrate() error
	RecordRun(ctx context.Context, summary RunSummary) (*Run, error)
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	GetRunUnits(ctx context.Context, runID string) ([]*RunUnit, error)
}

var _ Store = (*SQLiteStore)(nil)

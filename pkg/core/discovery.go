package core

// DiscoveryResult is the final discovery output for one model.
type DiscoveryResult struct {
	UnitName   string `json:"unit_name"`
	SourcePath string `json:"source_path"`
	// Candidates are sorted by descending confidence, ties in generation order
	Candidates []MetricCandidate `json:"candidates"`
	// OverallConfidence signals whether the model is worth a human look
	OverallConfidence float64 `json:"overall_confidence"`
	// Notes are ordered diagnostics and counts
	Notes []string `json:"notes"`
	// ColumnNotes maps a column name to a short annotation
	ColumnNotes map[string]string `json:"column_notes"`
	// IsRollupUnit mirrors the underlying ParseResult
	IsRollupUnit bool `json:"is_rollup_unit"`
	// Attempt mirrors the parse path of the underlying ParseResult
	Attempt ParseAttempt `json:"attempt"`
}

// CountByKind returns the number of candidates of the given kind.
func (r *DiscoveryResult) CountByKind(kind MetricKind) int {
	n := 0
	for _, c := range r.Candidates {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Failed returns a result describing a unit whose analysis could not run.
func Failed(unit Unit, msg string) *DiscoveryResult {
	return &DiscoveryResult{
		UnitName:    unit.UnitName(),
		SourcePath:  unit.Path,
		Candidates:  []MetricCandidate{},
		Notes:       []string{msg},
		ColumnNotes: map[string]string{},
	}
}

// Package metrics turns parsed column facts into ranked metric candidates.
//
// The package holds the fixed heuristics tables (suffix patterns, aggregate
// baselines, business keywords, category rules) as plain data so they can be
// enumerated, and the pure functions that apply them:
//
//   - IsRollup classifies a query as an aggregation model
//   - Generate proposes single-value, ratio, and custom-expression candidates
//   - Score adjusts, filters, and ranks candidates
//   - Notes and ColumnNotes explain the outcome to a human
//
// Nothing here performs I/O or keeps state between calls.
package metrics

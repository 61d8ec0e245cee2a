package model

import "time"

// RunStatus is the lifecycle state of a pipeline run.
type RunStatus string

const (
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Run is one invocation of the pipeline against a manifest.
type Run struct {
	ID        string      `json:"id"`
	Manifest  string      `json:"manifest"`
	Status    RunStatus   `json:"status"`
	Summary   *RunSummary `json:"summary,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

// RunSummary carries the per-run observability counters: what was parsed,
// what was dropped, and how the spatial assignment went. Dropped and
// unmatched counts are first-class outputs, not log noise.
type RunSummary struct {
	Points          int `json:"points"`
	DroppedPoints   int `json:"dropped_points"`
	Matched         int `json:"matched"`
	Unmatched       int `json:"unmatched"`
	Tracts          int `json:"tracts"`
	EntityRows      int `json:"entity_rows"`
	DroppedEntities int `json:"dropped_entities"`
	MergedRows      int `json:"merged_rows"`
}

package ports

import (
	"context"

	"gotrial/domain/core"
	"gotrial/domain/run"
)

// RunLedgerPort archives run manifests and their artifact records. The
// ledger is best-effort infrastructure: the pipeline runs identically with
// no ledger configured.
type RunLedgerPort interface {
	// StoreManifest persists a completed run's manifest
	StoreManifest(ctx context.Context, manifest *run.Manifest) error

	// GetManifest retrieves a run by id
	GetManifest(ctx context.Context, runID core.RunID) (*run.Manifest, error)

	// ListRuns returns recent run summaries, newest first
	ListRuns(ctx context.Context, filters RunFilters) ([]RunSummary, error)

	// StoreArtifact records one produced output file for a run
	StoreArtifact(ctx context.Context, runID core.RunID, artifact core.Artifact) error

	// GetArtifactsByRun lists a run's recorded outputs
	GetArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error)
}

// RunFilters for querying runs
type RunFilters struct {
	Limit  int
	Offset int
}

// RunSummary is the run-browser row: identity plus headline counts
type RunSummary struct {
	RunID        core.RunID      `json:"run_id"`
	Seed         int64           `json:"seed"`
	Participants int             `json:"participants"`
	CohortHash   core.CohortHash `json:"cohort_hash"`
	WarningCount int             `json:"warning_count"`
	CreatedAt    core.Timestamp  `json:"created_at"`
}

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"gotrial/domain/core"
	"gotrial/domain/run"
	"gotrial/models"
	"gotrial/ports"
)

// RunLedgerImpl implements RunLedgerPort for PostgreSQL
type RunLedgerImpl struct {
	db *sqlx.DB
}

// NewRunLedger creates a new PostgreSQL run ledger
func NewRunLedger(db *sqlx.DB) ports.RunLedgerPort {
	return &RunLedgerImpl{db: db}
}

// StoreManifest persists a run row plus any artifacts already attached to
// the manifest. Re-storing the same run updates its warnings, so a run can
// be archived once more after late stages degrade.
func (r *RunLedgerImpl) StoreManifest(ctx context.Context, manifest *run.Manifest) error {
	if err := manifest.Validate(); err != nil {
		return err
	}
	record := models.NewRunRecord(manifest)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO runs (id, seed, participants, cohort_hash, model_spec, code_version, fingerprint, warnings, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE
		SET warnings = EXCLUDED.warnings, fingerprint = EXCLUDED.fingerprint
	`, record.ID, record.Seed, record.Participants, record.CohortHash,
		record.ModelSpec, record.CodeVersion, record.Fingerprint,
		record.Warnings, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("store run manifest: %w", err)
	}

	for _, artifact := range manifest.Artifacts {
		if err := r.StoreArtifact(ctx, manifest.RunID, artifact); err != nil {
			return err
		}
	}
	return nil
}

// GetManifest retrieves a run with its artifacts attached
func (r *RunLedgerImpl) GetManifest(ctx context.Context, runID core.RunID) (*run.Manifest, error) {
	var record models.RunRecord
	err := r.db.GetContext(ctx, &record, `
		SELECT id, seed, participants, cohort_hash, model_spec, code_version, fingerprint, warnings, created_at
		FROM runs
		WHERE id = $1
	`, runID.String())
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", core.ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("get run manifest: %w", err)
	}

	manifest := record.ToManifest()
	artifacts, err := r.GetArtifactsByRun(ctx, runID)
	if err != nil {
		return nil, err
	}
	manifest.Artifacts = artifacts
	return manifest, nil
}

// ListRuns returns run summaries, newest first
func (r *RunLedgerImpl) ListRuns(ctx context.Context, filters ports.RunFilters) ([]ports.RunSummary, error) {
	limit := filters.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := filters.Offset
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, seed, participants, cohort_hash, warnings, created_at
		FROM runs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var summaries []ports.RunSummary
	for rows.Next() {
		var record models.RunRecord
		err := rows.Scan(
			&record.ID,
			&record.Seed,
			&record.Participants,
			&record.CohortHash,
			&record.Warnings,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		summaries = append(summaries, ports.RunSummary{
			RunID:        core.RunID(record.ID),
			Seed:         record.Seed,
			Participants: record.Participants,
			CohortHash:   core.CohortHash(record.CohortHash),
			WarningCount: len(record.Warnings),
			CreatedAt:    core.NewTimestamp(record.CreatedAt),
		})
	}
	return summaries, rows.Err()
}

// StoreArtifact records one produced output file for a run
func (r *RunLedgerImpl) StoreArtifact(ctx context.Context, runID core.RunID, artifact core.Artifact) error {
	record := models.NewArtifactRecord(runID, artifact)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO run_artifacts (id, run_id, kind, filename, size_bytes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO NOTHING
	`, record.ID, record.RunID, record.Kind, record.Filename, record.SizeBytes, record.CreatedAt)
	if err != nil {
		return fmt.Errorf("store artifact %s: %w", artifact.Filename, err)
	}
	return nil
}

// GetArtifactsByRun lists a run's recorded outputs in creation order
func (r *RunLedgerImpl) GetArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, run_id, kind, filename, size_bytes, created_at
		FROM run_artifacts
		WHERE run_id = $1
		ORDER BY created_at ASC, filename ASC
	`, runID.String())
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var artifacts []core.Artifact
	for rows.Next() {
		var record models.ArtifactRecord
		err := rows.Scan(
			&record.ID,
			&record.RunID,
			&record.Kind,
			&record.Filename,
			&record.SizeBytes,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan artifact row: %w", err)
		}
		artifacts = append(artifacts, record.ToArtifact())
	}
	return artifacts, rows.Err()
}

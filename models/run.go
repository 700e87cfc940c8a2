package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gotrial/domain/core"
	"gotrial/domain/run"
)

// JSONBStrings is a custom type for PostgreSQL JSONB columns holding a
// plain string array
type JSONBStrings []string

// Value implements driver.Valuer interface
func (j JSONBStrings) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONBStrings) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*j = nil
		return nil
	}

	if len(bytes) == 0 {
		*j = nil
		return nil
	}

	var result JSONBStrings
	if err := json.Unmarshal(bytes, &result); err != nil {
		return err
	}
	*j = result
	return nil
}

// RunRecord is the database row for one study run. The fingerprint struct
// is not stored as a blob: it is recomputed from the determinism columns on
// load, so the stored hash doubles as a tamper check.
type RunRecord struct {
	ID           string       `json:"id" db:"id"`
	Seed         int64        `json:"seed" db:"seed"`
	Participants int          `json:"participants" db:"participants"`
	CohortHash   string       `json:"cohort_hash" db:"cohort_hash"`
	ModelSpec    string       `json:"model_spec" db:"model_spec"`
	CodeVersion  string       `json:"code_version" db:"code_version"`
	Fingerprint  string       `json:"fingerprint" db:"fingerprint"`
	Warnings     JSONBStrings `json:"warnings" db:"warnings"`
	CreatedAt    time.Time    `json:"created_at" db:"created_at"`
}

// NewRunRecord converts a run manifest into its database row
func NewRunRecord(m *run.Manifest) *RunRecord {
	return &RunRecord{
		ID:           m.RunID.String(),
		Seed:         m.Seed,
		Participants: m.Participants,
		CohortHash:   string(m.CohortHash),
		ModelSpec:    m.ModelSpec,
		CodeVersion:  m.CodeVersion,
		Fingerprint:  string(m.Fingerprint.Fingerprint),
		Warnings:     JSONBStrings(m.Warnings),
		CreatedAt:    m.CreatedAt.Time(),
	}
}

// ToManifest rebuilds the domain manifest from the row. Artifacts live in
// their own table and are attached by the repository.
func (r *RunRecord) ToManifest() *run.Manifest {
	return &run.Manifest{
		RunID:        core.RunID(r.ID),
		Seed:         r.Seed,
		Participants: r.Participants,
		CohortHash:   core.CohortHash(r.CohortHash),
		ModelSpec:    r.ModelSpec,
		CodeVersion:  r.CodeVersion,
		Fingerprint: run.NewRunFingerprint(r.Seed, r.Participants,
			core.CohortHash(r.CohortHash), r.ModelSpec, r.CodeVersion),
		Warnings:  []string(r.Warnings),
		CreatedAt: core.NewTimestamp(r.CreatedAt),
	}
}

// FingerprintMatches reports whether the stored hash equals the one
// recomputed from the determinism columns
func (r *RunRecord) FingerprintMatches() bool {
	recomputed := run.NewRunFingerprint(r.Seed, r.Participants,
		core.CohortHash(r.CohortHash), r.ModelSpec, r.CodeVersion)
	return string(recomputed.Fingerprint) == r.Fingerprint
}

// ArtifactRecord is the database row for one produced output file
type ArtifactRecord struct {
	ID        string    `json:"id" db:"id"`
	RunID     string    `json:"run_id" db:"run_id"`
	Kind      string    `json:"kind" db:"kind"`
	Filename  string    `json:"filename" db:"filename"`
	SizeBytes int64     `json:"size_bytes" db:"size_bytes"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// NewArtifactRecord converts a domain artifact into its database row
func NewArtifactRecord(runID core.RunID, a core.Artifact) *ArtifactRecord {
	return &ArtifactRecord{
		ID:        a.ID.String(),
		RunID:     runID.String(),
		Kind:      string(a.Kind),
		Filename:  a.Filename,
		SizeBytes: a.SizeBytes,
		CreatedAt: a.CreatedAt.Time(),
	}
}

// ToArtifact rebuilds the domain artifact from the row
func (r *ArtifactRecord) ToArtifact() core.Artifact {
	return core.Artifact{
		ID:        core.ID(r.ID),
		Kind:      core.ArtifactKind(r.Kind),
		Filename:  r.Filename,
		SizeBytes: r.SizeBytes,
		CreatedAt: core.NewTimestamp(r.CreatedAt),
	}
}

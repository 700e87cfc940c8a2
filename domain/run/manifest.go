package run

import (
	"gotrial/domain/core"
)

// Manifest is the complete record of one study run. This is the truth
// source for replay: regenerating with the recorded seed and participant
// count must reproduce the recorded cohort hash.
type Manifest struct {
	RunID        core.RunID      `json:"run_id"`
	Seed         int64           `json:"seed"`
	Participants int             `json:"participants"`
	CohortHash   core.CohortHash `json:"cohort_hash"`
	ModelSpec    string          `json:"model_spec"`
	CodeVersion  string          `json:"code_version"`
	Fingerprint  RunFingerprint  `json:"fingerprint"` // Determinism fingerprint
	Warnings     []string        `json:"warnings,omitempty"`
	Artifacts    []core.Artifact `json:"artifacts,omitempty"`
	CreatedAt    core.Timestamp  `json:"created_at"`
}

// NewManifest creates a run manifest from the generation parameters
func NewManifest(runID core.RunID, seed int64, participants int,
	cohortHash core.CohortHash, modelSpec, codeVersion string) *Manifest {

	fingerprint := NewRunFingerprint(seed, participants, cohortHash, modelSpec, codeVersion)

	return &Manifest{
		RunID:        runID,
		Seed:         seed,
		Participants: participants,
		CohortHash:   cohortHash,
		ModelSpec:    modelSpec,
		CodeVersion:  codeVersion,
		Fingerprint:  fingerprint,
		CreatedAt:    core.Now(),
	}
}

// AddWarning records a degraded stage without failing the run
func (m *Manifest) AddWarning(msg string) {
	m.Warnings = append(m.Warnings, msg)
}

// AddArtifact records a produced output file
func (m *Manifest) AddArtifact(a core.Artifact) {
	m.Artifacts = append(m.Artifacts, a)
}

// Validate checks if the manifest is complete
func (m *Manifest) Validate() error {
	if core.ID(m.RunID).IsEmpty() {
		return core.NewInvalidArgument("run_id", "cannot be empty")
	}
	if m.Participants <= 0 {
		return core.NewInvalidArgument("participants", "must be positive")
	}
	if m.CohortHash == "" {
		return core.NewInvalidArgument("cohort_hash", "cannot be empty")
	}
	if m.CodeVersion == "" {
		return core.NewInvalidArgument("code_version", "cannot be empty")
	}
	return nil
}

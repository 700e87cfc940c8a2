package run

import (
	"crypto/sha256"
	"fmt"

	"gotrial/domain/core"
)

// RunFingerprint captures everything that determines a study run's output.
// Two runs with equal fingerprints produce byte-identical datasets.
type RunFingerprint struct {
	Seed         int64           `json:"seed"`
	Participants int             `json:"participants"`
	CohortHash   core.CohortHash `json:"cohort_hash"`
	ModelSpec    string          `json:"model_spec"`
	CodeVersion  string          `json:"code_version"`
	Fingerprint  core.Hash       `json:"fingerprint"` // Hash of all above
}

// NewRunFingerprint creates a fingerprint from determinism parameters
func NewRunFingerprint(seed int64, participants int, cohortHash core.CohortHash,
	modelSpec, codeVersion string) RunFingerprint {

	fingerprint := computeRunFingerprint(seed, participants, cohortHash, modelSpec, codeVersion)

	return RunFingerprint{
		Seed:         seed,
		Participants: participants,
		CohortHash:   cohortHash,
		ModelSpec:    modelSpec,
		CodeVersion:  codeVersion,
		Fingerprint:  fingerprint,
	}
}

// computeRunFingerprint generates a deterministic hash from all determinism parameters
func computeRunFingerprint(seed int64, participants int, cohortHash core.CohortHash,
	modelSpec, codeVersion string) core.Hash {

	data := fmt.Sprintf("seed:%d|participants:%d|cohort:%s|model:%s|code:%s",
		seed, participants, cohortHash, modelSpec, codeVersion)

	hash := sha256.Sum256([]byte(data))
	return core.Hash(fmt.Sprintf("%x", hash))
}

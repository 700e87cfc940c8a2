package artifacts

import (
	"fmt"
	"path/filepath"
	"strings"

	"gotrial/domain/core"
)

// Note: ArtifactKind is defined in domain/core

// ArtifactSchema defines the structure of an artifact kind: which run output
// filenames belong to it and what a well-formed record looks like.
type ArtifactSchema struct {
	Kind          core.ArtifactKind
	SchemaVersion string
	MatchFunc     func(filename string) bool // Filename classification function
	ValidateFunc  func(core.Artifact) error  // Validation function
}

// Registry maps artifact kinds to their schemas
var Registry = map[core.ArtifactKind]ArtifactSchema{
	core.ArtifactRunManifest: {
		Kind:          core.ArtifactRunManifest,
		SchemaVersion: "1.0.0",
		MatchFunc:     matchRunManifest,
		ValidateFunc:  validateRunManifest,
	},
	core.ArtifactSEMDiagram: {
		Kind:          core.ArtifactSEMDiagram,
		SchemaVersion: "1.0.0",
		MatchFunc:     matchSEMDiagram,
		ValidateFunc:  validateSEMDiagram,
	},
	core.ArtifactChart: {
		Kind:          core.ArtifactChart,
		SchemaVersion: "1.0.0",
		MatchFunc:     matchChart,
		ValidateFunc:  validateChart,
	},
	core.ArtifactSummaryReport: {
		Kind:          core.ArtifactSummaryReport,
		SchemaVersion: "1.0.0",
		MatchFunc:     matchSummaryReport,
		ValidateFunc:  validateSummaryReport,
	},
	core.ArtifactCohortExport: {
		Kind:          core.ArtifactCohortExport,
		SchemaVersion: "1.0.0",
		MatchFunc:     matchCohortExport,
		ValidateFunc:  validateCohortExport,
	},
}

// classifyOrder fixes the match priority: specific filenames win over bare
// extension matches (the SEM diagram is a PNG too).
var classifyOrder = []core.ArtifactKind{
	core.ArtifactRunManifest,
	core.ArtifactSEMDiagram,
	core.ArtifactChart,
	core.ArtifactSummaryReport,
	core.ArtifactCohortExport,
}

// Classify resolves the artifact kind for a run output file by its name.
func Classify(filename string) (core.ArtifactKind, error) {
	base := filepath.Base(filename)
	for _, kind := range classifyOrder {
		if Registry[kind].MatchFunc(base) {
			return kind, nil
		}
	}
	return "", fmt.Errorf("unclassifiable artifact filename: %s", base)
}

// NewFileArtifact builds a classified, validated artifact record for a run
// output file.
func NewFileArtifact(filename string, sizeBytes int64) (core.Artifact, error) {
	kind, err := Classify(filename)
	if err != nil {
		return core.Artifact{}, err
	}
	artifact := core.Artifact{
		ID:        core.NewID(),
		Kind:      kind,
		Filename:  filepath.Base(filename),
		SizeBytes: sizeBytes,
		CreatedAt: core.Now(),
	}
	if err := ValidateArtifact(artifact); err != nil {
		return core.Artifact{}, err
	}
	return artifact, nil
}

// GetSchema returns the schema for an artifact kind
func GetSchema(kind core.ArtifactKind) (ArtifactSchema, error) {
	schema, exists := Registry[kind]
	if !exists {
		return ArtifactSchema{}, fmt.Errorf("unknown artifact kind: %s", kind)
	}
	return schema, nil
}

// ValidateArtifact validates an artifact against its schema
func ValidateArtifact(artifact core.Artifact) error {
	schema, err := GetSchema(artifact.Kind)
	if err != nil {
		return err
	}
	return schema.ValidateFunc(artifact)
}

// Match functions for each artifact type
func matchRunManifest(base string) bool {
	return base == "run_manifest.json"
}

func matchSEMDiagram(base string) bool {
	return strings.HasPrefix(base, "sem_") && filepath.Ext(base) == ".png"
}

func matchChart(base string) bool {
	return filepath.Ext(base) == ".png"
}

func matchSummaryReport(base string) bool {
	return filepath.Ext(base) == ".html"
}

func matchCohortExport(base string) bool {
	ext := filepath.Ext(base)
	return ext == ".csv" || ext == ".xlsx"
}

// Validation functions for each artifact type
func validateRunManifest(artifact core.Artifact) error {
	if artifact.Kind != core.ArtifactRunManifest {
		return fmt.Errorf("expected kind %s, got %s", core.ArtifactRunManifest, artifact.Kind)
	}
	if artifact.ID.IsEmpty() {
		return fmt.Errorf("run manifest artifact missing ID")
	}
	if !matchRunManifest(filepath.Base(artifact.Filename)) {
		return fmt.Errorf("run manifest artifact has unexpected filename %q", artifact.Filename)
	}
	return nil
}

func validateSEMDiagram(artifact core.Artifact) error {
	if artifact.Kind != core.ArtifactSEMDiagram {
		return fmt.Errorf("expected kind %s, got %s", core.ArtifactSEMDiagram, artifact.Kind)
	}
	if artifact.ID.IsEmpty() {
		return fmt.Errorf("sem diagram artifact missing ID")
	}
	if !matchSEMDiagram(filepath.Base(artifact.Filename)) {
		return fmt.Errorf("sem diagram artifact has unexpected filename %q", artifact.Filename)
	}
	return nil
}

func validateChart(artifact core.Artifact) error {
	if artifact.Kind != core.ArtifactChart {
		return fmt.Errorf("expected kind %s, got %s", core.ArtifactChart, artifact.Kind)
	}
	if artifact.ID.IsEmpty() {
		return fmt.Errorf("chart artifact missing ID")
	}
	if filepath.Ext(artifact.Filename) != ".png" {
		return fmt.Errorf("chart artifact has unexpected filename %q", artifact.Filename)
	}
	return nil
}

func validateSummaryReport(artifact core.Artifact) error {
	if artifact.Kind != core.ArtifactSummaryReport {
		return fmt.Errorf("expected kind %s, got %s", core.ArtifactSummaryReport, artifact.Kind)
	}
	if artifact.ID.IsEmpty() {
		return fmt.Errorf("summary report artifact missing ID")
	}
	if !matchSummaryReport(filepath.Base(artifact.Filename)) {
		return fmt.Errorf("summary report artifact has unexpected filename %q", artifact.Filename)
	}
	return nil
}

func validateCohortExport(artifact core.Artifact) error {
	if artifact.Kind != core.ArtifactCohortExport {
		return fmt.Errorf("expected kind %s, got %s", core.ArtifactCohortExport, artifact.Kind)
	}
	if artifact.ID.IsEmpty() {
		return fmt.Errorf("cohort export artifact missing ID")
	}
	if !matchCohortExport(filepath.Base(artifact.Filename)) {
		return fmt.Errorf("cohort export artifact has unexpected filename %q", artifact.Filename)
	}
	return nil
}

package artifacts

import (
	"testing"

	"gotrial/domain/core"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		filename string
		want     core.ArtifactKind
	}{
		{"run_manifest.json", core.ArtifactRunManifest},
		{"/tmp/out/run_manifest.json", core.ArtifactRunManifest},
		{"sem_diagram_basic.png", core.ArtifactSEMDiagram},
		{"llm_completion_violin.png", core.ArtifactChart},
		{"herbal_performance_stackedbar.png", core.ArtifactChart},
		{"summary_statistics.html", core.ArtifactSummaryReport},
		{"cohort.csv", core.ArtifactCohortExport},
		{"cohort.xlsx", core.ArtifactCohortExport},
	}

	for _, tc := range testCases {
		t.Run(tc.filename, func(t *testing.T) {
			kind, err := Classify(tc.filename)
			if err != nil {
				t.Fatalf("Classify(%q) failed: %v", tc.filename, err)
			}
			if kind != tc.want {
				t.Errorf("Classify(%q) = %s, want %s", tc.filename, kind, tc.want)
			}
		})
	}
}

func TestClassify_Unknown(t *testing.T) {
	if _, err := Classify("notes.txt"); err == nil {
		t.Errorf("Expected error for unclassifiable filename")
	}
}

func TestNewFileArtifact(t *testing.T) {
	artifact, err := NewFileArtifact("/tmp/out/age_distribution.png", 2048)
	if err != nil {
		t.Fatalf("NewFileArtifact failed: %v", err)
	}
	if artifact.Kind != core.ArtifactChart {
		t.Errorf("Expected chart kind, got %s", artifact.Kind)
	}
	if artifact.Filename != "age_distribution.png" {
		t.Errorf("Expected base filename, got %q", artifact.Filename)
	}
	if artifact.ID.IsEmpty() {
		t.Errorf("Artifact ID not assigned")
	}
	if artifact.SizeBytes != 2048 {
		t.Errorf("Expected size 2048, got %d", artifact.SizeBytes)
	}
}

func TestValidateArtifact_KindMismatch(t *testing.T) {
	// A chart record pointing at an HTML file should not validate
	artifact := core.Artifact{
		ID:       core.NewID(),
		Kind:     core.ArtifactChart,
		Filename: "summary_statistics.html",
	}
	if err := ValidateArtifact(artifact); err == nil {
		t.Errorf("Expected validation failure for extension mismatch")
	}
}

func TestValidateArtifact_MissingID(t *testing.T) {
	artifact := core.Artifact{
		Kind:     core.ArtifactRunManifest,
		Filename: "run_manifest.json",
	}
	if err := ValidateArtifact(artifact); err == nil {
		t.Errorf("Expected validation failure for missing ID")
	}
}

func TestGetSchema_Unknown(t *testing.T) {
	if _, err := GetSchema("hologram"); err == nil {
		t.Errorf("Expected error for unknown artifact kind")
	}
}

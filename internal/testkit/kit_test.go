package testkit

import (
	"context"
	"testing"

	"gotrial/domain/core"
	"gotrial/domain/run"
	"gotrial/ports"
)

func TestNewTestKit(t *testing.T) {
	kit, err := NewTestKit()
	if err != nil {
		t.Fatalf("NewTestKit() error = %v", err)
	}

	table := kit.Table()
	if table.RowCount() != demoParticipants {
		t.Errorf("RowCount() = %d, want %d", table.RowCount(), demoParticipants)
	}

	resolved, err := kit.CohortResolverAdapter().Resolve(context.Background())
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if resolved != table {
		t.Error("resolver should return the kit's own table")
	}
}

func TestNewTestKit_Deterministic(t *testing.T) {
	a, err := NewTestKit()
	if err != nil {
		t.Fatalf("NewTestKit() error = %v", err)
	}
	b, err := NewTestKit()
	if err != nil {
		t.Fatalf("NewTestKit() error = %v", err)
	}

	if a.Table().Fingerprint() != b.Table().Fingerprint() {
		t.Errorf("demo cohorts differ: %s vs %s",
			a.Table().Fingerprint(), b.Table().Fingerprint())
	}
}

func TestNewTestKitWithWorkbook_MissingFile(t *testing.T) {
	kit, err := NewTestKitWithWorkbook("no_such_cohort.xlsx")
	if err != nil {
		t.Fatalf("NewTestKitWithWorkbook() error = %v", err)
	}

	// Falls back to the synthetic demo cohort
	if kit.Table().RowCount() != demoParticipants {
		t.Errorf("fallback RowCount() = %d, want %d", kit.Table().RowCount(), demoParticipants)
	}
}

func TestInMemoryLedger_ManifestRoundTrip(t *testing.T) {
	ledger := NewInMemoryLedgerAdapter()
	ctx := context.Background()

	first := run.NewManifest(core.RunID(core.NewID()), 42, 40, core.CohortHash("hash-a"), "", "test")
	second := run.NewManifest(core.RunID(core.NewID()), 7, 80, core.CohortHash("hash-b"), "", "test")
	second.AddWarning("ipma skipped: Rscript not found")

	if err := ledger.StoreManifest(ctx, first); err != nil {
		t.Fatalf("StoreManifest() error = %v", err)
	}
	if err := ledger.StoreManifest(ctx, second); err != nil {
		t.Fatalf("StoreManifest() error = %v", err)
	}

	got, err := ledger.GetManifest(ctx, first.RunID)
	if err != nil {
		t.Fatalf("GetManifest() error = %v", err)
	}
	if got.Seed != 42 || got.Participants != 40 {
		t.Errorf("GetManifest() = seed %d participants %d, want 42 40", got.Seed, got.Participants)
	}

	summaries, err := ledger.ListRuns(ctx, ports.RunFilters{Limit: 10})
	if err != nil {
		t.Fatalf("ListRuns() error = %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("ListRuns() returned %d summaries, want 2", len(summaries))
	}
	// Newest first
	if summaries[0].RunID != second.RunID {
		t.Errorf("ListRuns()[0] = %s, want most recent %s", summaries[0].RunID, second.RunID)
	}
	if summaries[0].WarningCount != 1 {
		t.Errorf("WarningCount = %d, want 1", summaries[0].WarningCount)
	}
}

func TestInMemoryLedger_GetManifestNotFound(t *testing.T) {
	ledger := NewInMemoryLedgerAdapter()

	_, err := ledger.GetManifest(context.Background(), core.RunID("missing"))
	if err == nil {
		t.Fatal("expected error for unknown run")
	}
	if !core.IsNotFoundError(err) {
		t.Errorf("error = %v, want not-found", err)
	}
}

func TestInMemoryLedger_Artifacts(t *testing.T) {
	ledger := NewInMemoryLedgerAdapter()
	ctx := context.Background()
	runID := core.RunID(core.NewID())

	artifact := core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactChart,
		Filename:  "age_distribution.png",
		SizeBytes: 2048,
		CreatedAt: core.Now(),
	}
	if err := ledger.StoreArtifact(ctx, runID, artifact); err != nil {
		t.Fatalf("StoreArtifact() error = %v", err)
	}

	got, err := ledger.GetArtifactsByRun(ctx, runID)
	if err != nil {
		t.Fatalf("GetArtifactsByRun() error = %v", err)
	}
	if len(got) != 1 || got[0].Filename != "age_distribution.png" {
		t.Errorf("GetArtifactsByRun() = %+v, want the stored chart", got)
	}

	empty, err := ledger.GetArtifactsByRun(ctx, core.RunID("other"))
	if err != nil {
		t.Fatalf("GetArtifactsByRun() error = %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no artifacts for unknown run, got %d", len(empty))
	}
}

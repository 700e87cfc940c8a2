package testkit

import (
	"context"
	"log"
	"sync"
	"time"

	"gotrial/adapters/excel"
	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/run"
	"gotrial/internal/simulate"
	"gotrial/ports"
)

// Demo cohort parameters. Fixed so every kit resolves the same table.
const (
	demoParticipants = 40
	demoSeed         = 42
)

// TestKit provides a ready-made cohort and an in-memory ledger for tests
// and the standalone explorer.
type TestKit struct {
	table  *cohort.Table
	ledger *InMemoryLedgerAdapter
}

// NewTestKit creates a test kit around a deterministic synthetic cohort
func NewTestKit() (*TestKit, error) {
	table, err := simulate.Generate(simulate.Config{
		Participants: demoParticipants,
		Seed:         demoSeed,
	})
	if err != nil {
		return nil, err
	}

	return &TestKit{
		table:  table,
		ledger: NewInMemoryLedgerAdapter(),
	}, nil
}

// NewTestKitWithWorkbook creates a test kit whose cohort is read from a
// CSV or XLSX file. A missing or unreadable file falls back to the
// synthetic demo cohort so the explorer still starts.
func NewTestKitWithWorkbook(path string) (*TestKit, error) {
	log.Printf("Initializing test kit with workbook: %s", path)

	reader, err := excel.NewDataReader(path)
	if err != nil {
		log.Printf("Warning: %v, falling back to synthetic cohort", err)
		return NewTestKit()
	}

	loadStart := time.Now()
	table, err := reader.ReadCohort(cohort.StudySchema())
	if err != nil {
		log.Printf("Warning: Could not read workbook during initialization: %v", err)
		return NewTestKit()
	}

	loadTime := time.Since(loadStart)
	log.Printf("[Performance] Workbook pre-loaded in %.2fms (%d columns, %d rows)",
		float64(loadTime.Nanoseconds())/1e6, table.ColumnCount(), table.RowCount())

	return &TestKit{
		table:  table,
		ledger: NewInMemoryLedgerAdapter(),
	}, nil
}

// Table returns the kit's cohort
func (t *TestKit) Table() *cohort.Table {
	return t.table
}

// CohortResolverAdapter returns a resolver over the kit's cohort
func (t *TestKit) CohortResolverAdapter() ports.CohortResolverPort {
	return &StaticResolverAdapter{table: t.table}
}

// LedgerAdapter returns the shared in-memory ledger so UI and pipeline
// use the same storage
func (t *TestKit) LedgerAdapter() ports.RunLedgerPort {
	return t.ledger
}

// StaticResolverAdapter implements CohortResolverPort over a fixed table
type StaticResolverAdapter struct {
	table *cohort.Table
}

// NewStaticResolver wraps an already-built table in a resolver
func NewStaticResolver(table *cohort.Table) *StaticResolverAdapter {
	return &StaticResolverAdapter{table: table}
}

func (s *StaticResolverAdapter) Resolve(ctx context.Context) (*cohort.Table, error) {
	if s.table == nil {
		return nil, core.NewNotFoundError("cohort", "demo")
	}
	return s.table, nil
}

// InMemoryLedgerAdapter implements RunLedgerPort with in-memory storage
type InMemoryLedgerAdapter struct {
	manifests map[core.RunID]*run.Manifest
	artifacts map[core.RunID][]core.Artifact
	order     []core.RunID
	mu        sync.RWMutex
}

func NewInMemoryLedgerAdapter() *InMemoryLedgerAdapter {
	return &InMemoryLedgerAdapter{
		manifests: make(map[core.RunID]*run.Manifest),
		artifacts: make(map[core.RunID][]core.Artifact),
	}
}

func (s *InMemoryLedgerAdapter) StoreManifest(ctx context.Context, manifest *run.Manifest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	copied := *manifest
	if _, exists := s.manifests[manifest.RunID]; !exists {
		s.order = append(s.order, manifest.RunID)
	}
	s.manifests[manifest.RunID] = &copied

	return nil
}

func (s *InMemoryLedgerAdapter) GetManifest(ctx context.Context, runID core.RunID) (*run.Manifest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	manifest, exists := s.manifests[runID]
	if !exists {
		return nil, core.NewNotFoundError("run", string(runID))
	}

	copied := *manifest
	return &copied, nil
}

func (s *InMemoryLedgerAdapter) ListRuns(ctx context.Context, filters ports.RunFilters) ([]ports.RunSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summaries := make([]ports.RunSummary, 0, len(s.order))
	skipped := 0

	// Newest first: walk insertion order backwards
	for i := len(s.order) - 1; i >= 0; i-- {
		manifest, exists := s.manifests[s.order[i]]
		if !exists {
			continue
		}
		if skipped < filters.Offset {
			skipped++
			continue
		}

		summaries = append(summaries, ports.RunSummary{
			RunID:        manifest.RunID,
			Seed:         manifest.Seed,
			Participants: manifest.Participants,
			CohortHash:   manifest.CohortHash,
			WarningCount: len(manifest.Warnings),
			CreatedAt:    manifest.CreatedAt,
		})
		if filters.Limit > 0 && len(summaries) >= filters.Limit {
			break
		}
	}

	return summaries, nil
}

func (s *InMemoryLedgerAdapter) StoreArtifact(ctx context.Context, runID core.RunID, artifact core.Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.artifacts[runID] = append(s.artifacts[runID], artifact)
	return nil
}

func (s *InMemoryLedgerAdapter) GetArtifactsByRun(ctx context.Context, runID core.RunID) ([]core.Artifact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stored, exists := s.artifacts[runID]
	if !exists {
		return []core.Artifact{}, nil
	}

	artifacts := make([]core.Artifact, len(stored))
	copy(artifacts, stored)
	return artifacts, nil
}

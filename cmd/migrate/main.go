package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"gotrial/adapters/postgres"
	"gotrial/domain/core"
	"gotrial/domain/run"
	"gotrial/internal/migration"
)

// Archives on-disk study runs into the Postgres run ledger. Runs executed
// through the CLI (or against a server without a database) leave their
// run_manifest.json behind in the output directory; this tool walks an
// output tree and stores every manifest it finds.
func main() {
	if len(os.Args) < 3 {
		log.Fatal("Usage: migrate <database_url> <output_dir>")
	}

	databaseURL := os.Args[1]
	outputDir := os.Args[2]

	log.Printf("Archiving study runs from %s into the run ledger", outputDir)

	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	ctx := context.Background()

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		log.Fatalf("Failed to run schema migrations: %v", err)
	}

	ledger := postgres.NewRunLedger(db)

	files, err := findManifestFiles(outputDir)
	if err != nil {
		log.Fatalf("Failed to scan output directory: %v", err)
	}

	log.Printf("Found %d run manifests to archive", len(files))

	archived := 0
	skipped := 0

	for _, file := range files {
		manifest, err := loadManifestFromFile(file)
		if err != nil {
			log.Printf("Failed to load manifest %s: %v", file, err)
			skipped++
			continue
		}

		if err := ledger.StoreManifest(ctx, manifest); err != nil {
			log.Printf("Failed to archive run %s: %v", manifest.RunID, err)
			skipped++
			continue
		}

		archived++
		log.Printf("Archived run %s (seed %d, %d participants, %d artifacts)",
			manifest.RunID, manifest.Seed, manifest.Participants, len(manifest.Artifacts))
	}

	log.Printf("Archive complete: %d archived, %d skipped", archived, skipped)
}

func findManifestFiles(dir string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && filepath.Base(path) == "run_manifest.json" {
			files = append(files, path)
		}
		return nil
	})

	return files, err
}

// loadManifestFromFile parses a run manifest and appends the manifest file
// itself to the artifact list. The on-disk copy cannot list itself, but the
// archived ledger row should account for every file the run produced.
func loadManifestFromFile(filePath string) (*run.Manifest, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, err
	}

	var manifest run.Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, err
	}
	if err := manifest.Validate(); err != nil {
		return nil, err
	}

	info, err := os.Stat(filePath)
	if err != nil {
		return nil, err
	}
	manifest.AddArtifact(core.Artifact{
		ID:        core.NewID(),
		Kind:      core.ArtifactRunManifest,
		Filename:  filepath.Base(filePath),
		SizeBytes: info.Size(),
		CreatedAt: core.NewTimestamp(info.ModTime()),
	})

	return &manifest, nil
}

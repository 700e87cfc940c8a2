package main

import (
	"context"
	"embed"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"gotrial/adapters/excel"
	"gotrial/adapters/postgres"
	"gotrial/adapters/report"
	"gotrial/adapters/rstats"
	"gotrial/adapters/semfit"
	"gotrial/app"
	"gotrial/internal/analysis"
	"gotrial/internal/config"
	"gotrial/internal/errors"
	"gotrial/internal/migration"
	"gotrial/internal/testkit"
	"gotrial/ports"
	"gotrial/ui"
)

//go:embed ui/templates ui/static
var embeddedFiles embed.FS

// initDatabase connects to PostgreSQL and brings the run ledger schema up
// to date
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}

	if err := db.Ping(); err != nil {
		return nil, errors.Wrap(err, "failed to ping database")
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(context.Background(), db); err != nil {
		return nil, errors.Wrap(err, "database migration failed")
	}

	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	gin.SetMode(appConfig.Server.GinMode)

	// Run ledger: PostgreSQL when configured, in-memory otherwise. Either
	// way runs still land on disk, so the browser can recover them later.
	var ledger ports.RunLedgerPort
	if appConfig.Database.Enabled() {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatal("Failed to initialize database:", err)
		}
		defer db.Close()
		ledger = postgres.NewRunLedger(db)
		log.Println("Run ledger backed by PostgreSQL")
	} else {
		ledger = testkit.NewInMemoryLedgerAdapter()
		log.Println("DATABASE_URL not set, keeping the run ledger in memory")
	}

	reporter, err := report.NewWriter()
	if err != nil {
		log.Fatalf("Failed to initialize report writer: %v", err)
	}

	analyzer := analysis.NewAnalyzer()
	ols := analysis.NewOLS()
	ipmaRunner := rstats.NewRunner(appConfig.External.RscriptBin, appConfig.External.IPMATimeout)
	if !ipmaRunner.Available() {
		log.Printf("Rscript binary %q not found, IPMA sections will degrade to warnings", appConfig.External.RscriptBin)
	}
	semClient := semfit.NewClient(appConfig.External.SEMServiceURL, appConfig.External.SEMTimeout)
	renderOpts := app.RenderOptions{
		MaxParallel: int64(appConfig.Render.MaxParallel),
		Width:       appConfig.Render.ChartWidth,
		Height:      appConfig.Render.ChartHeight,
	}

	studyService := app.NewStudyService(
		analyzer,
		ols,
		ipmaRunner,
		semClient,
		reporter,
		excel.NewWriter(),
		ledger,
		renderOpts,
		appConfig.Study.CodeVersion,
	)

	// Demo cohort for the explorer: an imported workbook when configured,
	// a deterministic synthetic cohort otherwise
	var kit *testkit.TestKit
	if appConfig.Paths.ImportFile != "" {
		log.Printf("Using imported cohort: %s", appConfig.Paths.ImportFile)
		kit, err = testkit.NewTestKitWithWorkbook(appConfig.Paths.ImportFile)
	} else {
		log.Printf("No import file configured, using a synthetic demo cohort")
		kit, err = testkit.NewTestKit()
	}
	if err != nil {
		log.Fatalf("Failed to initialize demo cohort: %v", err)
	}

	exploreService := app.NewExploreService(
		kit.CohortResolverAdapter(),
		analyzer,
		ols,
		ipmaRunner,
		semClient,
		renderOpts,
	)

	server := ui.NewServer(embeddedFiles)
	if err := server.Initialize(studyService, exploreService, ledger, ui.Defaults{
		Seed:         appConfig.Study.DefaultSeed,
		Participants: appConfig.Study.DefaultParticipants,
		OutputRoot:   appConfig.Study.OutputDir,
		Theme:        appConfig.Render.Theme,
	}); err != nil {
		log.Fatalf("Failed to initialize server: %v", err)
	}

	log.Printf("🚀 Starting study console on port %s", appConfig.Server.Port)
	log.Fatal(server.Start(":" + appConfig.Server.Port))
}

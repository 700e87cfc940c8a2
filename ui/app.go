package ui

import (
	"embed"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"gotrial/adapters/rstats"
	"gotrial/adapters/semfit"
	"gotrial/app"
	"gotrial/internal/analysis"
	"gotrial/internal/testkit"
)

//go:embed templates/* static/*
var embeddedFiles embed.FS

// App is the standalone explorer. It runs against an in-memory demo
// cohort, so it needs no database and no output directory.
type App struct {
	router    *chi.Mux
	testkit   *testkit.TestKit
	explore   *app.ExploreService
	templates *template.Template
	port      string
}

// Config holds explorer application configuration
type Config struct {
	Port          string
	RscriptBin    string
	SEMServiceURL string
	ImportFile    string
}

// NewApp creates a new explorer application
func NewApp(config Config) (*App, error) {
	// Demo cohort from the test kit, or an imported workbook when given
	var kit *testkit.TestKit
	var err error
	if config.ImportFile != "" {
		kit, err = testkit.NewTestKitWithWorkbook(config.ImportFile)
	} else {
		kit, err = testkit.NewTestKit()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialize test kit: %w", err)
	}

	rscriptBin := config.RscriptBin
	if rscriptBin == "" {
		rscriptBin = "Rscript"
	}

	explore := app.NewExploreService(
		kit.CohortResolverAdapter(),
		analysis.NewAnalyzer(),
		analysis.NewOLS(),
		rstats.NewRunner(rscriptBin, 60*time.Second),
		semfit.NewClient(config.SEMServiceURL, 30*time.Second),
		app.RenderOptions{Width: 800, Height: 600},
	)

	templates, err := template.New("").Funcs(templateFuncs()).ParseFS(embeddedFiles,
		"templates/*.html", "templates/fragments/*.html")
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	a := &App{
		router:    chi.NewRouter(),
		testkit:   kit,
		explore:   explore,
		templates: templates,
		port:      config.Port,
	}

	a.setupMiddleware()
	a.setupRoutes()

	return a, nil
}

// setupMiddleware configures HTTP middleware
func (a *App) setupMiddleware() {
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)
	a.router.Use(middleware.Compress(5))

	// Embedded paths already start with static/, so no prefix stripping
	a.router.Handle("/static/*", http.FileServer(http.FS(embeddedFiles)))
}

// setupRoutes configures the application routes
func (a *App) setupRoutes() {
	a.router.Get("/", a.handleExplorerHome)

	// API endpoints
	a.router.Get("/api/cohort", a.handleCohortInfo)
	a.router.Get("/api/variables", a.handleVariableList)
	a.router.Get("/api/describe", a.handleDescribeJSON)
	a.router.Post("/api/explore/plot", a.handlePlot)
	a.router.Post("/api/regression", a.handleRegressionFit)
	a.router.Post("/api/ipma", a.handleIPMAFit)
	a.router.Post("/api/ipma/plot", a.handleIPMAFigure)
	a.router.Post("/api/sem", a.handleSEMFit)
	a.router.Post("/api/sem/importance", a.handleSEMFigure)

	// HTMX fragment endpoints
	a.router.Get("/api/fragments/describe", a.handleDescribeRows)
}

// Start starts the HTTP server
func (a *App) Start() error {
	port := a.port
	if port == "" {
		port = "8080"
	}
	addr := port
	if !strings.HasPrefix(addr, ":") {
		addr = ":" + addr
	}
	log.Printf("Starting cohort explorer on %s", addr)
	return http.ListenAndServe(addr, a.router)
}

// Template helpers
func (a *App) renderTemplate(w http.ResponseWriter, templateName string, data interface{}) {
	w.Header().Set("Content-Type", "text/html")
	if err := a.templates.ExecuteTemplate(w, templateName, data); err != nil {
		log.Printf("Template error: %v", err)
		http.Error(w, "Template error", http.StatusInternalServerError)
	}
}

// HTMX helpers
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func (a *App) renderPartial(w http.ResponseWriter, templateName string, data interface{}) {
	a.renderTemplate(w, templateName, data)
}

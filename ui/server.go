package ui

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"

	"gotrial/app"
	"gotrial/domain/core"
	"gotrial/domain/run"
	"gotrial/ports"
)

// Server is the study web console: it triggers simulation runs, browses the
// archived run ledger, serves run artifacts, and hosts the cohort explorer.
type Server struct {
	router        *gin.Engine
	study         *app.StudyService
	explore       *app.ExploreService
	ledger        ports.RunLedgerPort
	templates     *template.Template
	embeddedFiles embed.FS
	defaults      Defaults

	// Run directories are remembered per process and rediscovered from
	// on-disk manifests after a restart.
	runDirMu sync.RWMutex
	runDirs  map[core.RunID]string
}

// Defaults seeds the dashboard form and names the directory new runs land in.
type Defaults struct {
	Seed         int64
	Participants int
	OutputRoot   string
	Theme        string
}

// NewServer creates a new web server instance
func NewServer(embeddedFiles embed.FS) *Server {
	return &Server{
		router:        gin.Default(),
		embeddedFiles: embeddedFiles,
		runDirs:       make(map[core.RunID]string),
	}
}

// Initialize sets up the server with dependencies. A nil ledger limits the
// run browser to manifests found under the output root.
func (s *Server) Initialize(study *app.StudyService, explore *app.ExploreService, ledger ports.RunLedgerPort, defaults Defaults) error {
	s.study = study
	s.explore = explore
	s.ledger = ledger
	s.defaults = defaults

	templatesFS, err := fs.Sub(s.embeddedFiles, "ui/templates")
	if err != nil {
		return fmt.Errorf("failed to create templates filesystem: %w", err)
	}

	// ParseFS names templates by base name, so fragments are referenced
	// as "run_rows.html" rather than "fragments/run_rows.html".
	s.templates, err = template.New("").Funcs(templateFuncs()).ParseFS(templatesFS, "*.html", "fragments/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse templates: %w", err)
	}

	names := make([]string, 0)
	for _, t := range s.templates.Templates() {
		names = append(names, t.Name())
	}
	log.Printf("[TemplateInit] Parsed %d templates: %v", len(names), names)

	s.setupMiddleware()
	s.setupRoutes()
	return nil
}

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	staticFS, err := fs.Sub(s.embeddedFiles, "ui/static")
	if err != nil {
		log.Printf("[Static] Error creating static filesystem: %v", err)
		return
	}
	s.router.StaticFS("/static", http.FS(staticFS))
}

// setupRoutes configures the application routes
func (s *Server) setupRoutes() {
	// Pages
	s.router.GET("/", s.handleIndex)
	s.router.GET("/runs", s.handleRunsPage)
	s.router.GET("/runs/:id", s.handleRunDetail)
	s.router.GET("/runs/:id/report", s.handleRunReport)
	s.router.GET("/runs/:id/files/:filename", s.handleRunFile)
	s.router.GET("/explorer", s.handleExplorerPage)

	// JSON and figure API
	api := s.router.Group("/api")
	{
		api.POST("/runs", s.handleStartRun)
		api.GET("/runs", s.handleListRuns)
		api.GET("/runs/:id", s.handleGetRun)
		api.GET("/variables", s.handleVariables)
		api.GET("/describe", s.handleDescribe)
		api.POST("/explore/plot", s.handleExplorePlot)
		api.POST("/regression", s.handleRegression)
		api.POST("/ipma", s.handleIPMA)
		api.POST("/ipma/plot", s.handleIPMAPlot)
		api.POST("/sem", s.handleSEM)
		api.POST("/sem/importance", s.handleSEMImportance)
	}

	// HTMX fragment endpoints
	s.router.GET("/api/fragments/runs", s.handleRunsFragment)
	s.router.GET("/api/fragments/describe", s.handleDescribeFragment)
}

// Start starts the web server
func (s *Server) Start(addr string) error {
	log.Printf("Starting study console on http://%s", addr)
	return s.router.Run(addr)
}

// templateFuncs returns the helpers both web surfaces register before
// parsing the shared template set.
func templateFuncs() template.FuncMap {
	return template.FuncMap{
		"fmtTime": func(ts core.Timestamp) string {
			return ts.Time().Format("2006-01-02 15:04:05")
		},
		"fmtBytes": func(n int64) string {
			switch {
			case n >= 1<<20:
				return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
			case n >= 1<<10:
				return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
			default:
				return fmt.Sprintf("%d B", n)
			}
		},
		"shortID": func(id core.RunID) string {
			if len(id) > 8 {
				return string(id)[:8]
			}
			return string(id)
		},
		"shortHash": func(h core.CohortHash) string {
			if len(h) > 12 {
				return string(h)[:12]
			}
			return string(h)
		},
	}
}

// Template helpers
func (s *Server) renderTemplate(c *gin.Context, templateName string, data interface{}) {
	c.Header("Content-Type", "text/html")
	if err := s.templates.ExecuteTemplate(c.Writer, templateName, data); err != nil {
		log.Printf("Template error: %v", err)
		c.AbortWithStatus(http.StatusInternalServerError)
	}
}

func (s *Server) renderPartial(c *gin.Context, templateName string, data interface{}) {
	s.renderTemplate(c, templateName, data)
}

// statusFor maps domain error families onto HTTP status codes
func statusFor(err error) int {
	switch {
	case core.IsInvalidArgument(err):
		return http.StatusBadRequest
	case core.IsNotFoundError(err):
		return http.StatusNotFound
	case core.IsDataShapeError(err), core.IsFitError(err):
		return http.StatusUnprocessableEntity
	case core.IsAdapterError(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) rememberRunDir(runID core.RunID, dir string) {
	s.runDirMu.Lock()
	s.runDirs[runID] = dir
	s.runDirMu.Unlock()
}

// runDir resolves the output directory for a run, scanning the output root
// for a matching on-disk manifest when the process has no record of it.
func (s *Server) runDir(runID core.RunID) (string, error) {
	s.runDirMu.RLock()
	dir, ok := s.runDirs[runID]
	s.runDirMu.RUnlock()
	if ok {
		return dir, nil
	}

	entries, err := os.ReadDir(s.defaults.OutputRoot)
	if err != nil {
		return "", core.NewNotFoundError("run", string(runID))
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		candidate := filepath.Join(s.defaults.OutputRoot, entry.Name())
		manifest, err := readManifestFile(candidate)
		if err != nil || manifest.RunID != runID {
			continue
		}
		s.rememberRunDir(runID, candidate)
		return candidate, nil
	}
	return "", core.NewNotFoundError("run", string(runID))
}

// loadManifest prefers the ledger copy and falls back to the on-disk
// manifest, so run pages survive both a missing database and a restart.
func (s *Server) loadManifest(ctx context.Context, runID core.RunID) (*run.Manifest, error) {
	if s.ledger != nil {
		if manifest, err := s.ledger.GetManifest(ctx, runID); err == nil {
			return manifest, nil
		}
	}
	dir, err := s.runDir(runID)
	if err != nil {
		return nil, err
	}
	return readManifestFile(dir)
}

// loadRunSummaries merges ledger rows with manifests discovered on disk,
// newest first. Disk-only entries cover runs archived by earlier processes.
func (s *Server) loadRunSummaries(ctx context.Context, limit int) []ports.RunSummary {
	seen := make(map[core.RunID]bool)
	var merged []ports.RunSummary

	if s.ledger != nil {
		summaries, err := s.ledger.ListRuns(ctx, ports.RunFilters{Limit: limit})
		if err != nil {
			log.Printf("[RunBrowser] ledger list failed: %v", err)
		}
		for _, summary := range summaries {
			seen[summary.RunID] = true
			merged = append(merged, summary)
		}
	}

	for _, summary := range s.diskRunSummaries() {
		if !seen[summary.RunID] {
			merged = append(merged, summary)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if limit > 0 && len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func (s *Server) diskRunSummaries() []ports.RunSummary {
	entries, err := os.ReadDir(s.defaults.OutputRoot)
	if err != nil {
		return nil
	}
	var summaries []ports.RunSummary
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(s.defaults.OutputRoot, entry.Name())
		manifest, err := readManifestFile(dir)
		if err != nil {
			continue
		}
		s.rememberRunDir(manifest.RunID, dir)
		summaries = append(summaries, ports.RunSummary{
			RunID:        manifest.RunID,
			Seed:         manifest.Seed,
			Participants: manifest.Participants,
			CohortHash:   manifest.CohortHash,
			WarningCount: len(manifest.Warnings),
			CreatedAt:    manifest.CreatedAt,
		})
	}
	return summaries
}

func readManifestFile(dir string) (*run.Manifest, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "run_manifest.json"))
	if err != nil {
		return nil, err
	}
	var manifest run.Manifest
	if err := json.Unmarshal(raw, &manifest); err != nil {
		return nil, fmt.Errorf("decode manifest in %s: %w", dir, err)
	}
	return &manifest, nil
}

package ui

import (
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"

	"gotrial/adapters/render"
	"gotrial/app"
	"gotrial/domain/cohort"
	"gotrial/domain/core"
)

func (s *Server) handleIndex(c *gin.Context) {
	data := gin.H{
		"Title":     "Study Console",
		"Defaults":  s.defaults,
		"Themes":    render.ThemeNames(),
		"Variables": cohort.StudySchema(),
		"Runs":      s.loadRunSummaries(c.Request.Context(), 8),
	}
	s.renderTemplate(c, "index.html", data)
}

func (s *Server) handleRunsPage(c *gin.Context) {
	data := gin.H{
		"Title": "Run Browser",
		"Runs":  s.loadRunSummaries(c.Request.Context(), 50),
	}
	s.renderTemplate(c, "runs.html", data)
}

func (s *Server) handleRunsFragment(c *gin.Context) {
	data := gin.H{
		"Runs": s.loadRunSummaries(c.Request.Context(), 50),
	}
	s.renderPartial(c, "run_rows.html", data)
}

func (s *Server) handleRunDetail(c *gin.Context) {
	runID := core.RunID(c.Param("id"))
	manifest, err := s.loadManifest(c.Request.Context(), runID)
	if err != nil {
		c.String(http.StatusNotFound, "Run not found: %s", runID)
		return
	}

	hasReport := false
	if dir, err := s.runDir(runID); err == nil {
		if _, err := os.Stat(filepath.Join(dir, "summary_statistics.html")); err == nil {
			hasReport = true
		}
	}

	data := gin.H{
		"Title":     fmt.Sprintf("Run %s", runID),
		"Manifest":  manifest,
		"HasReport": hasReport,
	}
	s.renderTemplate(c, "run_detail.html", data)
}

// handleRunReport serves the archived HTML report for a run
func (s *Server) handleRunReport(c *gin.Context) {
	runID := core.RunID(c.Param("id"))
	dir, err := s.runDir(runID)
	if err != nil {
		c.String(http.StatusNotFound, "Run not found: %s", runID)
		return
	}
	reportPath := filepath.Join(dir, "summary_statistics.html")
	if _, err := os.Stat(reportPath); err != nil {
		c.String(http.StatusNotFound, "This run produced no report")
		return
	}
	c.File(reportPath)
}

// handleRunFile serves one recorded run artifact. Only filenames the
// manifest lists are reachable.
func (s *Server) handleRunFile(c *gin.Context) {
	runID := core.RunID(c.Param("id"))
	base := filepath.Base(c.Param("filename"))

	manifest, err := s.loadManifest(c.Request.Context(), runID)
	if err != nil {
		c.String(http.StatusNotFound, "Run not found: %s", runID)
		return
	}

	listed := base == "run_manifest.json"
	for _, artifact := range manifest.Artifacts {
		if artifact.Filename == base {
			listed = true
			break
		}
	}
	if !listed {
		c.String(http.StatusNotFound, "No such artifact: %s", base)
		return
	}

	dir, err := s.runDir(runID)
	if err != nil {
		c.String(http.StatusNotFound, "Run directory missing for %s", runID)
		return
	}
	c.File(filepath.Join(dir, base))
}

// handleStartRun triggers a full study run. Zero participants selects the
// configured default; the seed passes through untouched.
func (s *Server) handleStartRun(c *gin.Context) {
	var req struct {
		Participants  int      `json:"participants"`
		Seed          int64    `json:"seed"`
		ModelSpec     string   `json:"model_spec"`
		Style         string   `json:"style"`
		ExportFormats []string `json:"export_formats"`
		ImportFile    string   `json:"import_file"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request data"})
		return
	}
	if req.Participants == 0 {
		req.Participants = s.defaults.Participants
	}
	if req.Style == "" {
		req.Style = s.defaults.Theme
	}

	outputDir := filepath.Join(s.defaults.OutputRoot, fmt.Sprintf("run_%d", time.Now().UnixNano()))

	result, err := s.study.RunStudy(c.Request.Context(), app.StudyRequest{
		Participants:  req.Participants,
		Seed:          req.Seed,
		OutputDir:     outputDir,
		ImportFile:    req.ImportFile,
		ModelSpec:     req.ModelSpec,
		Style:         req.Style,
		ExportFormats: req.ExportFormats,
	})
	if err != nil {
		log.Printf("[StartRun] failed: %v", err)
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	s.rememberRunDir(result.RunID, outputDir)

	c.JSON(http.StatusOK, gin.H{
		"run_id":       result.RunID,
		"participants": result.Table.RowCount(),
		"seed":         req.Seed,
		"warnings":     result.Warnings,
		"artifacts":    len(result.Artifacts),
		"charts":       len(result.ChartPaths),
		"runtime_ms":   result.RuntimeMs,
		"detail_url":   fmt.Sprintf("/runs/%s", result.RunID),
		"report_url":   fmt.Sprintf("/runs/%s/report", result.RunID),
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	summaries := s.loadRunSummaries(c.Request.Context(), 100)
	c.JSON(http.StatusOK, gin.H{
		"runs":  summaries,
		"count": len(summaries),
	})
}

func (s *Server) handleGetRun(c *gin.Context) {
	runID := core.RunID(c.Param("id"))
	manifest, err := s.loadManifest(c.Request.Context(), runID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("run not found: %s", runID)})
		return
	}
	c.JSON(http.StatusOK, manifest)
}

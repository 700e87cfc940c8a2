package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gotrial/adapters/excel"
	"gotrial/adapters/render"
	"gotrial/adapters/report"
	"gotrial/domain/artifacts"
	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/run"
	"gotrial/domain/study"
	"gotrial/internal"
	"gotrial/internal/analysis"
	"gotrial/internal/qualitative"
	"gotrial/internal/simulate"
	"gotrial/ports"
)

// StudyService orchestrates a full study run: cohort, statistics, external
// model backends, figures, report, exports, and the run ledger.
type StudyService struct {
	analyzer    *analysis.Analyzer
	ols         *analysis.OLS
	ipma        ports.IPMARunnerPort
	sem         ports.SEMFitterPort
	reporter    *report.Writer
	exporter    *excel.Writer
	ledger      ports.RunLedgerPort
	render      RenderOptions
	logger      *internal.Logger
	codeVersion string
}

// RenderOptions configure the per-run chart battery
type RenderOptions struct {
	MaxParallel int64
	Width       int
	Height      int
}

// StudyRequest defines inputs for one study run
type StudyRequest struct {
	Participants  int
	Seed          int64
	OutputDir     string
	ImportFile    string   // analyze an external cohort file instead of generating
	ModelSpec     string   // structural model text; empty uses the default study model
	Style         string   // chart theme name; empty uses the house style
	ExportFormats []string // cohort dumps to write: csv, xlsx
}

// StudyResult carries every section of a completed run. Sections a degraded
// stage could not produce stay nil; the cause is in Warnings.
type StudyResult struct {
	RunID        core.RunID
	Table        *cohort.Table
	Processed    *cohort.Table
	Descriptives study.Descriptives
	Correlations *study.CorrelationMatrix
	Comparisons  []study.TTestComparison
	Regression   *study.RegressionResult
	IPMA         *study.IPMAResult
	SEM          *study.SEMFit
	Qualitative  *study.QualitativeSummary
	ChartPaths   []string
	ReportPath   string
	Artifacts    []core.Artifact
	Manifest     *run.Manifest
	Warnings     []string
	RuntimeMs    int64
}

// NewStudyService creates a study service. A nil ledger disables archiving.
func NewStudyService(analyzer *analysis.Analyzer, ols *analysis.OLS, ipma ports.IPMARunnerPort,
	sem ports.SEMFitterPort, reporter *report.Writer, exporter *excel.Writer,
	ledger ports.RunLedgerPort, render RenderOptions, codeVersion string) *StudyService {

	return &StudyService{
		analyzer:    analyzer,
		ols:         ols,
		ipma:        ipma,
		sem:         sem,
		reporter:    reporter,
		exporter:    exporter,
		ledger:      ledger,
		render:      render,
		logger:      internal.NewDefaultLogger().WithComponent("Study"),
		codeVersion: codeVersion,
	}
}

// RunStudy executes the pipeline end to end. Cohort and preprocessing
// failures abort; every later stage degrades to an absent section plus a
// recorded warning, so a run with a dead R backend still yields a report.
func (s *StudyService) RunStudy(ctx context.Context, req StudyRequest) (*StudyResult, error) {
	startTime := time.Now()

	if strings.TrimSpace(req.OutputDir) == "" {
		return nil, core.NewInvalidArgument("output_dir", "cannot be empty")
	}
	spec, err := resolveModelSpec(req.ModelSpec)
	if err != nil {
		return nil, err
	}

	table, err := s.resolveCohort(req)
	if err != nil {
		return nil, fmt.Errorf("cohort stage failed: %w", err)
	}
	if err := spec.Validate(table.Schema()); err != nil {
		return nil, fmt.Errorf("model spec validation failed: %w", err)
	}

	runID := core.RunID(core.NewID())
	s.logger.Info("run %s: %d participants, seed %d", runID, table.RowCount(), req.Seed)

	result := &StudyResult{RunID: runID, Table: table}
	manifest := run.NewManifest(runID, req.Seed, table.RowCount(), table.Fingerprint(),
		spec.Source, s.codeVersion)

	warn := func(stage string, cause error) {
		msg := fmt.Sprintf("%s: %v", stage, cause)
		s.logger.Warn("run %s degraded: %s", runID, msg)
		result.Warnings = append(result.Warnings, msg)
		manifest.AddWarning(msg)
	}

	processed, err := analysis.Preprocess(table)
	if err != nil {
		return nil, fmt.Errorf("preprocess stage failed: %w", err)
	}
	result.Processed = processed
	s.logger.Debug("run %s: %d feature columns after preprocessing", runID, processed.ColumnCount())

	if desc, err := s.analyzer.Summarize(table); err != nil {
		warn("descriptives", err)
	} else {
		result.Descriptives = desc
	}
	if corr, err := s.analyzer.OutcomeCorrelations(table); err != nil {
		warn("correlations", err)
	} else {
		result.Correlations = &corr
	}
	if comps, err := s.analyzer.CompareArms(table, cohort.VarLLMUsage); err != nil {
		warn("arm comparisons", err)
	} else {
		result.Comparisons = comps
	}

	if reg, err := s.ols.DefaultModel(table); err != nil {
		warn("regression", err)
	} else {
		result.Regression = &reg
	}

	predictors, outcome := cohort.DefaultImportanceModel()
	if ipmaRes, err := s.ipma.Run(ctx, table, predictors, outcome); err != nil {
		warn("ipma", err)
	} else {
		result.IPMA = &ipmaRes
	}

	// A partial SEM fit survives when only the importance table failed
	fit, err := s.sem.Fit(ctx, table, spec, cohort.VarPerformance)
	if err != nil {
		warn("sem", err)
	}
	result.SEM = fit

	if qual, err := qualitative.NewSimulator(req.Seed).Summarize(table); err != nil {
		warn("qualitative", err)
	} else {
		result.Qualitative = &qual
	}

	battery := render.NewBattery(
		render.NewRendererSize(render.ThemeByName(req.Style), s.render.Width, s.render.Height),
		s.render.MaxParallel)
	charts, err := battery.RenderStudyCharts(ctx, table, req.OutputDir)
	if err != nil {
		for _, cause := range joinedErrors(err) {
			warn("charts", cause)
		}
	}
	result.ChartPaths = charts
	outputs := append([]string{}, charts...)

	reportPath := filepath.Join(req.OutputDir, "summary_statistics.html")
	if err := s.reporter.WriteSummary(reportPath, s.buildSummary(req, manifest, result)); err != nil {
		warn("report", err)
	} else {
		result.ReportPath = reportPath
		outputs = append(outputs, reportPath)
	}

	outputs = append(outputs, s.writeExports(req, table, result, warn)...)

	for _, path := range outputs {
		artifact, err := indexArtifact(path)
		if err != nil {
			warn("artifact index", err)
			continue
		}
		manifest.AddArtifact(artifact)
		result.Artifacts = append(result.Artifacts, artifact)
	}

	// The on-disk manifest lists every artifact except itself; the ledger
	// copy gains the manifest entry too.
	manifestPath := filepath.Join(req.OutputDir, "run_manifest.json")
	if err := writeManifestFile(manifestPath, manifest); err != nil {
		warn("manifest", err)
	} else if artifact, err := indexArtifact(manifestPath); err != nil {
		warn("manifest", err)
	} else {
		manifest.AddArtifact(artifact)
		result.Artifacts = append(result.Artifacts, artifact)
	}

	if s.ledger != nil {
		if err := s.ledger.StoreManifest(ctx, manifest); err != nil {
			warn("ledger", err)
		}
	}

	result.Manifest = manifest
	result.RuntimeMs = time.Since(startTime).Milliseconds()
	s.logger.Info("run %s complete: %d artifacts, %d warnings in %dms",
		runID, len(result.Artifacts), len(result.Warnings), result.RuntimeMs)
	return result, nil
}

// resolveCohort generates a synthetic table, or loads one from disk when the
// request names an import file.
func (s *StudyService) resolveCohort(req StudyRequest) (*cohort.Table, error) {
	if req.ImportFile != "" {
		reader, err := excel.NewDataReader(req.ImportFile)
		if err != nil {
			return nil, err
		}
		return reader.ReadCohort(cohort.StudySchema())
	}
	return simulate.Generate(simulate.Config{Participants: req.Participants, Seed: req.Seed})
}

func (s *StudyService) buildSummary(req StudyRequest, manifest *run.Manifest, result *StudyResult) report.Summary {
	return report.Summary{
		RunID:        string(result.RunID),
		GeneratedAt:  manifest.CreatedAt.Time().Format(time.RFC1123),
		ParticipantN: result.Table.RowCount(),
		Seed:         req.Seed,
		Descriptives: result.Descriptives,
		Correlations: result.Correlations,
		Comparisons:  result.Comparisons,
		Regression:   result.Regression,
		IPMA:         result.IPMA,
		SEM:          result.SEM,
		Qualitative:  result.Qualitative,
		Charts:       result.ChartPaths,
		Warnings:     result.Warnings,
	}
}

// writeExports dumps the cohort in every requested format and returns the
// paths written. Unknown formats and write failures degrade to warnings.
func (s *StudyService) writeExports(req StudyRequest, table *cohort.Table,
	result *StudyResult, warn func(string, error)) []string {

	var desc *study.Descriptives
	if len(result.Descriptives.Rows) > 0 {
		desc = &result.Descriptives
	}

	var written []string
	for _, format := range req.ExportFormats {
		switch strings.ToLower(strings.TrimSpace(format)) {
		case "xlsx":
			path := filepath.Join(req.OutputDir, "cohort.xlsx")
			if err := s.exporter.WriteCohortXLSX(path, table, desc); err != nil {
				warn("export xlsx", err)
				continue
			}
			written = append(written, path)
		case "csv":
			path := filepath.Join(req.OutputDir, "cohort.csv")
			if err := s.exporter.WriteCohortCSV(path, table); err != nil {
				warn("export csv", err)
				continue
			}
			written = append(written, path)
		default:
			warn("export", core.NewInvalidArgument("format",
				fmt.Sprintf("unsupported export format %q", format)))
		}
	}
	return written
}

// resolveModelSpec parses structural-model text, empty text selecting the
// default study model.
func resolveModelSpec(text string) (*study.ModelSpec, error) {
	if strings.TrimSpace(text) == "" {
		return study.DefaultModelSpec(), nil
	}
	return study.ParseModelSpec(text)
}

// indexArtifact classifies and sizes one written output file via the
// artifact registry.
func indexArtifact(path string) (core.Artifact, error) {
	info, err := os.Stat(path)
	if err != nil {
		return core.Artifact{}, fmt.Errorf("stat artifact: %w", err)
	}
	return artifacts.NewFileArtifact(path, info.Size())
}

func writeManifestFile(path string, manifest *run.Manifest) error {
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}
	return nil
}

// joinedErrors flattens an errors.Join result into its parts
func joinedErrors(err error) []error {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		return joined.Unwrap()
	}
	return []error{err}
}

package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"gotrial/adapters/excel"
	"gotrial/adapters/report"
	"gotrial/adapters/rstats"
	"gotrial/adapters/semfit"
	"gotrial/app"
	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
	"gotrial/internal/analysis"
	"gotrial/internal/config"
	"gotrial/internal/qualitative"
	"gotrial/internal/simulate"
	"gotrial/internal/testkit"
	"gotrial/ui"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "gotrial-cli",
		Short: "Study pipeline CLI: cohorts, statistics, figures, and external backends",
	}

	rootCmd.AddCommand(
		newGenerateCmd(),
		newRunCmd(),
		newDescribeCmd(),
		newReportCmd(),
		newExploreCmd(),
		newIPMACmd(),
		newSEMCmd(),
		newServeCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newGenerateCmd() *cobra.Command {
	var participants int
	var seed int64
	var outDir string
	var formats []string

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic cohort and optionally export it",
		Long: `Generate a deterministic synthetic participant cohort.

The participant count must be a positive multiple of 4 so the four
treatment cells stay balanced.

Example: gotrial-cli generate --participants 80 --seed 7 --out ./cohort --format csv --format xlsx`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(participants, seed, outDir, formats)
		},
	}

	cmd.Flags().IntVar(&participants, "participants", 40, "Cohort size (multiple of 4)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().StringVar(&outDir, "out", "", "Directory to write cohort exports into")
	cmd.Flags().StringSliceVar(&formats, "format", []string{"csv"}, "Export formats: csv, xlsx")

	return cmd
}

func newRunCmd() *cobra.Command {
	var participants int
	var seed int64
	var outDir string
	var style string
	var modelSpec string
	var importFile string
	var formats []string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the full study pipeline",
		Long: `Run the complete study pipeline: cohort, descriptive statistics,
arm comparisons, regression, IPMA, SEM, charts, HTML report, and exports.

External backends degrade gracefully: a missing Rscript or SEM service
turns into a recorded warning, not a failed run.

Example: gotrial-cli run --participants 80 --seed 7 --out ./output/run1 --style neon`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStudy(cmd.Context(), studyParams{
				participants: participants,
				seed:         seed,
				outDir:       outDir,
				style:        style,
				modelSpec:    modelSpec,
				importFile:   importFile,
				formats:      formats,
			})
		},
	}

	cmd.Flags().IntVar(&participants, "participants", 0, "Cohort size (default from STUDY_PARTICIPANTS)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().StringVar(&outDir, "out", "", "Run output directory (default under OUTPUT_DIR)")
	cmd.Flags().StringVar(&style, "style", "", "Chart theme: neon, paper (default from CHART_THEME)")
	cmd.Flags().StringVar(&modelSpec, "model-spec", "", "Structural model text (default study model)")
	cmd.Flags().StringVar(&importFile, "import", "", "Analyze a CSV/XLSX cohort instead of generating")
	cmd.Flags().StringSliceVar(&formats, "export", []string{"csv"}, "Cohort export formats: csv, xlsx")

	return cmd
}

func newDescribeCmd() *cobra.Command {
	var participants int
	var seed int64
	var importFile string

	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print descriptive statistics, correlations, and arm comparisons",
		Long: `Summarize a cohort without writing any files: per-variable summary
statistics, the outcome correlation matrix, and arm comparisons on the
tutoring assignment.

Example: gotrial-cli describe --participants 120 --seed 7`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(participants, seed, importFile)
		},
	}

	cmd.Flags().IntVar(&participants, "participants", 40, "Cohort size (multiple of 4)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().StringVar(&importFile, "import", "", "Describe a CSV/XLSX cohort instead of generating")

	return cmd
}

func newReportCmd() *cobra.Command {
	var participants int
	var seed int64
	var importFile string
	var outFile string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write the HTML summary report without the full pipeline",
		Long: `Analyze a cohort and write only the HTML summary report: descriptive
statistics, outcome correlations, arm comparisons, regression, and the
simulated qualitative record. Charts, exports, and the external IPMA
and SEM backends are skipped.

Example: gotrial-cli report --participants 80 --seed 7 --out summary.html`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(participants, seed, importFile, outFile)
		},
	}

	cmd.Flags().IntVar(&participants, "participants", 40, "Cohort size (multiple of 4)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().StringVar(&importFile, "import", "", "Report on a CSV/XLSX cohort instead of generating")
	cmd.Flags().StringVar(&outFile, "out", "summary_statistics.html", "Output HTML path")

	return cmd
}

func newExploreCmd() *cobra.Command {
	var participants int
	var seed int64
	var importFile string
	var groupBy string
	var bins int
	var style string
	var outFile string

	cmd := &cobra.Command{
		Use:   "explore [kind] [x] [y]",
		Short: "Render one explorer figure to a PNG file",
		Long: `Render a single figure the way the web explorer would.

Kinds: histogram, violin, scatter, box, density2d. Histogram needs only
x; scatter and density2d need x and y; violin and box need a numeric y
plus a grouping variable.

Example: gotrial-cli explore violin LLMUsage CompletionTime --out violin.png`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			y := ""
			if len(args) == 3 {
				y = args[2]
			}
			return runExplore(cmd.Context(), exploreParams{
				kind:         args[0],
				x:            args[1],
				y:            y,
				groupBy:      groupBy,
				bins:         bins,
				style:        style,
				outFile:      outFile,
				participants: participants,
				seed:         seed,
				importFile:   importFile,
			})
		},
	}

	cmd.Flags().IntVar(&participants, "participants", 40, "Cohort size (multiple of 4)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().StringVar(&importFile, "import", "", "Plot a CSV/XLSX cohort instead of generating")
	cmd.Flags().StringVar(&groupBy, "group-by", "", "Grouping variable for violin/box")
	cmd.Flags().IntVar(&bins, "bins", 0, "Histogram bin count (0 = auto)")
	cmd.Flags().StringVar(&style, "style", "", "Chart theme: neon, paper")
	cmd.Flags().StringVar(&outFile, "out", "figure.png", "Output PNG path")

	return cmd
}

func newIPMACmd() *cobra.Command {
	var participants int
	var seed int64
	var importFile string
	var predictors []string
	var outcome string

	cmd := &cobra.Command{
		Use:   "ipma",
		Short: "Run importance-performance analysis through the R backend",
		Long: `Run an importance-performance analysis. This needs Rscript on the
PATH (or RSCRIPT_BIN pointing at it) with the cSEM and plspm packages
installed; without them the command reports the backend as unavailable.

Example: gotrial-cli ipma --predictors FinalSelfEfficacy --outcome Performance`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIPMA(cmd.Context(), participants, seed, importFile, predictors, outcome)
		},
	}

	cmd.Flags().IntVar(&participants, "participants", 40, "Cohort size (multiple of 4)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().StringVar(&importFile, "import", "", "Analyze a CSV/XLSX cohort instead of generating")
	cmd.Flags().StringSliceVar(&predictors, "predictors", nil, "Predictor variables (default study selection)")
	cmd.Flags().StringVar(&outcome, "outcome", "", "Outcome variable (default Performance)")

	return cmd
}

func newSEMCmd() *cobra.Command {
	var participants int
	var seed int64
	var importFile string
	var spec string
	var target string

	cmd := &cobra.Command{
		Use:   "sem",
		Short: "Fit a structural model through the semopy sidecar",
		Long: `Fit a structural equation model via the Python semopy sidecar
service. Set SEM_SERVICE_URL to the sidecar's base URL; without it the
command reports the backend as unavailable.

Example: gotrial-cli sem --spec "Performance ~ LLMUsage + InitialSelfEfficacy"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSEM(cmd.Context(), participants, seed, importFile, spec, target)
		},
	}

	cmd.Flags().IntVar(&participants, "participants", 40, "Cohort size (multiple of 4)")
	cmd.Flags().Int64Var(&seed, "seed", 42, "Random seed for deterministic generation")
	cmd.Flags().StringVar(&importFile, "import", "", "Analyze a CSV/XLSX cohort instead of generating")
	cmd.Flags().StringVar(&spec, "spec", "", "Structural model text (default study model)")
	cmd.Flags().StringVar(&target, "target", "", "Importance target variable (default Performance)")

	return cmd
}

func newServeCmd() *cobra.Command {
	var port string
	var importFile string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the cohort explorer web app",
		Long: `Start the standalone cohort explorer web app. It serves a demo
cohort, or an imported workbook, with interactive figure, regression,
IPMA, and SEM endpoints.

Example: gotrial-cli serve --port 8090`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(port, importFile)
		},
	}

	cmd.Flags().StringVar(&port, "port", "", "Listen port (default PORT or 8080)")
	cmd.Flags().StringVar(&importFile, "import", "", "Serve a CSV/XLSX cohort instead of the demo cohort")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the analysis code version",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			fmt.Printf("gotrial %s\n", cfg.Study.CodeVersion)
			return nil
		},
	}
}

// resolveTable builds the cohort a command analyzes: an imported file when
// given, a fresh synthetic cohort otherwise.
func resolveTable(participants int, seed int64, importFile string) (*cohort.Table, error) {
	if importFile != "" {
		reader, err := excel.NewDataReader(importFile)
		if err != nil {
			return nil, err
		}
		return reader.ReadCohort(cohort.StudySchema())
	}
	return simulate.Generate(simulate.Config{Participants: participants, Seed: seed})
}

// newExploreService wires an explorer over an already-built table
func newExploreService(cfg *config.Config, table *cohort.Table) *app.ExploreService {
	return app.NewExploreService(
		testkit.NewStaticResolver(table),
		analysis.NewAnalyzer(),
		analysis.NewOLS(),
		rstats.NewRunner(cfg.External.RscriptBin, cfg.External.IPMATimeout),
		semfit.NewClient(cfg.External.SEMServiceURL, cfg.External.SEMTimeout),
		app.RenderOptions{
			MaxParallel: int64(cfg.Render.MaxParallel),
			Width:       cfg.Render.ChartWidth,
			Height:      cfg.Render.ChartHeight,
		},
	)
}

func runGenerate(participants int, seed int64, outDir string, formats []string) error {
	table, err := simulate.Generate(simulate.Config{Participants: participants, Seed: seed})
	if err != nil {
		return fmt.Errorf("cohort generation failed: %w", err)
	}

	fmt.Printf("=== COHORT ===\n")
	fmt.Printf("Participants: %d\n", table.RowCount())
	fmt.Printf("Columns: %d\n", table.ColumnCount())
	fmt.Printf("Seed: %d\n", seed)
	fmt.Printf("Cohort Hash: %s\n", table.Fingerprint())

	fmt.Printf("\n=== SCHEMA ===\n")
	for i, spec := range table.Schema() {
		fmt.Printf("%2d. %-24s %s\n", i+1, spec.Key, spec.Type)
	}

	if outDir == "" {
		fmt.Printf("\n✅ Cohort generated (no --out directory, nothing written)\n")
		return nil
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	writer := excel.NewWriter()
	for _, format := range formats {
		switch format {
		case "csv":
			path := filepath.Join(outDir, "cohort.csv")
			if err := writer.WriteCohortCSV(path, table); err != nil {
				return fmt.Errorf("csv export failed: %w", err)
			}
			fmt.Printf("\nWrote %s\n", path)
		case "xlsx":
			path := filepath.Join(outDir, "cohort.xlsx")
			if err := writer.WriteCohortXLSX(path, table, nil); err != nil {
				return fmt.Errorf("xlsx export failed: %w", err)
			}
			fmt.Printf("\nWrote %s\n", path)
		default:
			return fmt.Errorf("unsupported export format %q (expected csv or xlsx)", format)
		}
	}

	fmt.Printf("\n✅ Cohort exported. Regenerate it exactly with --seed %d --participants %d\n",
		seed, table.RowCount())
	return nil
}

type studyParams struct {
	participants int
	seed         int64
	outDir       string
	style        string
	modelSpec    string
	importFile   string
	formats      []string
}

func runStudy(ctx context.Context, params studyParams) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if params.participants == 0 {
		params.participants = cfg.Study.DefaultParticipants
	}
	if params.style == "" {
		params.style = cfg.Render.Theme
	}
	if params.outDir == "" {
		params.outDir = filepath.Join(cfg.Study.OutputDir, fmt.Sprintf("run_%d", time.Now().UnixNano()))
	}
	if err := os.MkdirAll(params.outDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	reporter, err := report.NewWriter()
	if err != nil {
		return fmt.Errorf("failed to initialize report writer: %w", err)
	}

	service := app.NewStudyService(
		analysis.NewAnalyzer(),
		analysis.NewOLS(),
		rstats.NewRunner(cfg.External.RscriptBin, cfg.External.IPMATimeout),
		semfit.NewClient(cfg.External.SEMServiceURL, cfg.External.SEMTimeout),
		reporter,
		excel.NewWriter(),
		nil, // no run ledger for CLI runs
		app.RenderOptions{
			MaxParallel: int64(cfg.Render.MaxParallel),
			Width:       cfg.Render.ChartWidth,
			Height:      cfg.Render.ChartHeight,
		},
		cfg.Study.CodeVersion,
	)

	fmt.Printf("Running study pipeline into %s...\n", params.outDir)
	result, err := service.RunStudy(ctx, app.StudyRequest{
		Participants:  params.participants,
		Seed:          params.seed,
		OutputDir:     params.outDir,
		ImportFile:    params.importFile,
		ModelSpec:     params.modelSpec,
		Style:         params.style,
		ExportFormats: params.formats,
	})
	if err != nil {
		return fmt.Errorf("study run failed: %w", err)
	}

	fmt.Printf("\n=== STUDY RUN ===\n")
	fmt.Printf("Run ID: %s\n", result.RunID)
	fmt.Printf("Participants: %d\n", result.Table.RowCount())
	fmt.Printf("Cohort Hash: %s\n", result.Table.Fingerprint())
	fmt.Printf("Fingerprint: %s\n", result.Manifest.Fingerprint.Fingerprint)
	fmt.Printf("Runtime: %d ms\n", result.RuntimeMs)

	printDescriptives(result.Descriptives)
	if result.Correlations != nil {
		printCorrelations(*result.Correlations)
	}
	printComparisons(result.Comparisons)

	if result.Regression != nil {
		printRegression(result.Regression)
	}

	if result.IPMA != nil {
		printIPMA(result.IPMA)
	} else {
		fmt.Printf("\n=== IMPORTANCE-PERFORMANCE ===\n(skipped; see warnings)\n")
	}

	if result.SEM != nil {
		printSEM(result.SEM)
	} else {
		fmt.Printf("\n=== STRUCTURAL MODEL ===\n(skipped; see warnings)\n")
	}

	fmt.Printf("\n=== ARTIFACTS ===\n")
	for i, artifact := range result.Artifacts {
		fmt.Printf("%2d. %-36s %-14s %d bytes\n", i+1, artifact.Filename, artifact.Kind, artifact.SizeBytes)
	}
	if result.ReportPath != "" {
		fmt.Printf("\nReport: %s\n", result.ReportPath)
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("\n=== WARNINGS ===\n")
		for _, warning := range result.Warnings {
			fmt.Printf("⚠️  %s\n", warning)
		}
	}

	fmt.Printf("\n✅ STUDY RUN COMPLETED\n")
	fmt.Printf("Replay this run exactly with --seed %d --participants %d\n",
		result.Manifest.Seed, result.Manifest.Participants)
	return nil
}

func runDescribe(participants int, seed int64, importFile string) error {
	table, err := resolveTable(participants, seed, importFile)
	if err != nil {
		return fmt.Errorf("cohort stage failed: %w", err)
	}

	analyzer := analysis.NewAnalyzer()

	desc, err := analyzer.Summarize(table)
	if err != nil {
		return fmt.Errorf("descriptives failed: %w", err)
	}
	printDescriptives(desc)

	corr, err := analyzer.OutcomeCorrelations(table)
	if err != nil {
		return fmt.Errorf("correlations failed: %w", err)
	}
	printCorrelations(corr)

	comps, err := analyzer.CompareArms(table, cohort.VarLLMUsage)
	if err != nil {
		return fmt.Errorf("arm comparisons failed: %w", err)
	}
	printComparisons(comps)

	return nil
}

func runReport(participants int, seed int64, importFile, outFile string) error {
	table, err := resolveTable(participants, seed, importFile)
	if err != nil {
		return fmt.Errorf("cohort stage failed: %w", err)
	}

	summary := report.Summary{
		RunID:        string(core.NewID()),
		GeneratedAt:  time.Now().Format(time.RFC1123),
		ParticipantN: table.RowCount(),
		Seed:         seed,
	}
	warn := func(stage string, cause error) {
		summary.Warnings = append(summary.Warnings, fmt.Sprintf("%s: %v", stage, cause))
	}

	analyzer := analysis.NewAnalyzer()
	if desc, err := analyzer.Summarize(table); err != nil {
		warn("descriptives", err)
	} else {
		summary.Descriptives = desc
	}
	if corr, err := analyzer.OutcomeCorrelations(table); err != nil {
		warn("correlations", err)
	} else {
		summary.Correlations = &corr
	}
	if comps, err := analyzer.CompareArms(table, cohort.VarLLMUsage); err != nil {
		warn("arm comparisons", err)
	} else {
		summary.Comparisons = comps
	}
	if reg, err := analysis.NewOLS().DefaultModel(table); err != nil {
		warn("regression", err)
	} else {
		summary.Regression = &reg
	}
	if qual, err := qualitative.NewSimulator(seed).Summarize(table); err != nil {
		warn("qualitative", err)
	} else {
		summary.Qualitative = &qual
	}

	reporter, err := report.NewWriter()
	if err != nil {
		return fmt.Errorf("failed to initialize report writer: %w", err)
	}
	if err := reporter.WriteSummary(outFile, summary); err != nil {
		return fmt.Errorf("report failed: %w", err)
	}

	fmt.Printf("✅ Wrote %s\n", outFile)
	for _, warning := range summary.Warnings {
		fmt.Printf("⚠️  %s\n", warning)
	}
	return nil
}

type exploreParams struct {
	kind         string
	x            string
	y            string
	groupBy      string
	bins         int
	style        string
	outFile      string
	participants int
	seed         int64
	importFile   string
}

func runExplore(ctx context.Context, params exploreParams) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	table, err := resolveTable(params.participants, params.seed, params.importFile)
	if err != nil {
		return fmt.Errorf("cohort stage failed: %w", err)
	}

	explorer := newExploreService(cfg, table)
	result, err := explorer.Explore(ctx, app.ExploreRequest{
		Kind:    app.PlotKind(params.kind),
		X:       core.VariableKey(params.x),
		Y:       core.VariableKey(params.y),
		GroupBy: core.VariableKey(params.groupBy),
		Bins:    params.bins,
		Style:   params.style,
	})
	if err != nil {
		return fmt.Errorf("figure failed: %w", err)
	}

	if err := os.WriteFile(params.outFile, result.PNG, 0o644); err != nil {
		return fmt.Errorf("write figure: %w", err)
	}

	fmt.Printf("✅ Wrote %s %s to %s (%d bytes)\n", result.Kind, result.X, params.outFile, len(result.PNG))
	return nil
}

func runIPMA(ctx context.Context, participants int, seed int64, importFile string,
	predictorNames []string, outcomeName string) error {

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	table, err := resolveTable(participants, seed, importFile)
	if err != nil {
		return fmt.Errorf("cohort stage failed: %w", err)
	}

	predictors := make([]core.VariableKey, len(predictorNames))
	for i, name := range predictorNames {
		predictors[i] = core.VariableKey(name)
	}
	outcome := core.VariableKey(outcomeName)
	if len(predictors) == 0 && outcome == "" {
		predictors, outcome = cohort.DefaultImportanceModel()
	}

	explorer := newExploreService(cfg, table)
	result, err := explorer.RunIPMA(ctx, app.IPMARequest{Predictors: predictors, Outcome: outcome})
	if err != nil {
		if core.IsAdapterError(err) {
			fmt.Printf("❌ R backend unavailable: %v\n", err)
			fmt.Printf("Install R with the cSEM and plspm packages, or point RSCRIPT_BIN at Rscript.\n")
			return nil
		}
		return fmt.Errorf("ipma failed: %w", err)
	}

	printIPMA(result)
	return nil
}

func runSEM(ctx context.Context, participants int, seed int64, importFile,
	spec, targetName string) error {

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	table, err := resolveTable(participants, seed, importFile)
	if err != nil {
		return fmt.Errorf("cohort stage failed: %w", err)
	}

	explorer := newExploreService(cfg, table)
	fit, err := explorer.FitSEM(ctx, app.SEMRequest{
		ModelSpec: spec,
		Target:    core.VariableKey(targetName),
	})
	if err != nil {
		if core.IsAdapterError(err) {
			fmt.Printf("❌ SEM sidecar unavailable: %v\n", err)
			fmt.Printf("Start the semopy sidecar and set SEM_SERVICE_URL to its base URL.\n")
			return nil
		}
		return fmt.Errorf("sem failed: %w", err)
	}

	printSEM(fit)
	return nil
}

func runServe(port, importFile string) error {
	if port == "" {
		port = os.Getenv("PORT")
	}
	if importFile == "" {
		importFile = os.Getenv("IMPORT_FILE")
	}

	explorer, err := ui.NewApp(ui.Config{
		Port:          port,
		RscriptBin:    os.Getenv("RSCRIPT_BIN"),
		SEMServiceURL: os.Getenv("SEM_SERVICE_URL"),
		ImportFile:    importFile,
	})
	if err != nil {
		return fmt.Errorf("failed to create explorer app: %w", err)
	}
	return explorer.Start()
}

func printDescriptives(desc study.Descriptives) {
	if len(desc.Rows) == 0 {
		return
	}
	fmt.Printf("\n=== DESCRIPTIVE STATISTICS ===\n")
	fmt.Printf("%-24s %5s %10s %9s %10s %10s %10s\n",
		"Variable", "N", "Mean", "SD", "Min", "Median", "Max")
	for _, row := range desc.Rows {
		fmt.Printf("%-24s %5d %10.3f %9.3f %10.3f %10.3f %10.3f\n",
			row.Key, row.Count, row.Mean, row.SD, row.Min, row.Median, row.Max)
	}
}

func printCorrelations(corr study.CorrelationMatrix) {
	fmt.Printf("\n=== OUTCOME CORRELATIONS ===\n")
	fmt.Printf("%-20s", "")
	for _, key := range corr.Keys {
		fmt.Printf(" %18s", key)
	}
	fmt.Println()
	for i, key := range corr.Keys {
		fmt.Printf("%-20s", key)
		for j := range corr.Keys {
			fmt.Printf(" %18.3f", corr.Cells[i][j])
		}
		fmt.Println()
	}
}

func printComparisons(comps []study.TTestComparison) {
	if len(comps) == 0 {
		return
	}
	fmt.Printf("\n=== ARM COMPARISONS (%s) ===\n", comps[0].GroupVar)
	for _, comp := range comps {
		if comp.Degenerate() {
			fmt.Printf("%-20s treated %.2f (n=%d) vs control %.2f (n=%d): not estimable\n",
				comp.Outcome, comp.TreatedMean, comp.TreatedN, comp.ControlMean, comp.ControlN)
			continue
		}
		fmt.Printf("%-20s diff=%+.3f  t=%+.3f  df=%.1f  p=%.4f\n",
			comp.Outcome, comp.MeanDiff, comp.TStat, comp.DF, comp.PValue)
	}
}

func printRegression(reg *study.RegressionResult) {
	fmt.Printf("\n=== REGRESSION: %s ===\n", reg.Outcome)
	fmt.Printf("%-24s %10s %10s %8s %8s\n", "Term", "Coef", "SE", "t", "p")
	for _, term := range reg.Terms {
		fmt.Printf("%-24s %10.4f %10.4f %8.3f %8.4f\n",
			term.Term, term.Coef, term.StdErr, term.TStat, term.PValue)
	}
	fmt.Printf("N=%d  R²=%.4f  adj R²=%.4f  F(%d,%d)=%.3f  p=%.4f\n",
		reg.N, reg.RSquared, reg.AdjRSquared, reg.DFModel, reg.DFResid, reg.FStat, reg.FPValue)
}

func printIPMA(result *study.IPMAResult) {
	fmt.Printf("\n=== IMPORTANCE-PERFORMANCE (%s) ===\n", result.Outcome)
	fmt.Printf("Backend: %s\n", result.Backend)
	for name, effect := range result.EffectSizes {
		if effect == nil {
			fmt.Printf("%-24s (not estimable)\n", name)
			continue
		}
		fmt.Printf("%-24s effect=%.4f\n", name, *effect)
	}
	if len(result.Bottlenecks) > 0 {
		fmt.Printf("Bottleneck steps: %d (outcome %.1f..%.1f)\n",
			len(result.Bottlenecks),
			result.Bottlenecks[0].OutcomeLevel,
			result.Bottlenecks[len(result.Bottlenecks)-1].OutcomeLevel)
	}
}

func printSEM(fit *study.SEMFit) {
	fmt.Printf("\n=== STRUCTURAL MODEL ===\n")
	fmt.Printf("Backend: %s  Converged: %t\n", fit.Backend, fit.Converged)
	fmt.Printf("%-40s %10s %10s %8s %8s\n", "Path", "Estimate", "SE", "z", "p")
	for _, path := range fit.Paths {
		label := fmt.Sprintf("%s %s %s", path.LHS, path.Op, path.RHS)
		fmt.Printf("%-40s %10.4f %10.4f %8.3f %8.4f\n",
			label, path.Estimate, path.StdErr, path.ZValue, path.PValue)
	}
	if len(fit.Importance) > 0 {
		fmt.Printf("\n%-24s %12s %12s\n", "Variable", "Total", "Importance")
		for _, row := range fit.Importance {
			fmt.Printf("%-24s %12.4f %12.4f\n", row.Variable, row.Total, row.Importance)
		}
	}
}

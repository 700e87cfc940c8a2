package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
	"gotrial/domain/study"
)

func fp(v float64) *float64 { return &v }

// fullSummary populates every report section with recognizable values.
func fullSummary() Summary {
	return Summary{
		RunID:        "run-42",
		GeneratedAt:  "2025-07-01T12:00:00Z",
		ParticipantN: 40,
		Seed:         42,
		Descriptives: study.Descriptives{
			Rows: []study.SummaryStats{
				{Key: cohort.VarAge, Count: 40, Mean: 23.5, SD: 3.4, Min: 18, Q1: 21, Median: 23, Q3: 26, Max: 29},
				{Key: cohort.VarFinalAnxiety, Count: 40, Mean: 2.31, SD: 0.58, Min: 1, Q1: 1.9, Median: 2.3, Q3: 2.7, Max: 3.8},
			},
		},
		Correlations: &study.CorrelationMatrix{
			Keys: []core.VariableKey{cohort.VarFinalSelfEfficacy, cohort.VarFinalAnxiety, cohort.VarPerformance},
			Cells: [][]float64{
				{1, -0.4, math.NaN()},
				{-0.4, 1, 0.2},
				{math.NaN(), 0.2, 1},
			},
		},
		Comparisons: []study.TTestComparison{
			{Outcome: cohort.VarFinalSelfEfficacy, GroupVar: cohort.VarLLMUsage, TreatedN: 20, ControlN: 20,
				TreatedMean: 3.9, ControlMean: 3.4, MeanDiff: 0.5, TStat: 4.21, DF: 38, PValue: 0.00003},
			{Outcome: cohort.VarFinalAnxiety, GroupVar: cohort.VarLLMUsage, TreatedN: 1, ControlN: 39,
				TreatedMean: 2.0, ControlMean: 2.4, MeanDiff: -0.4, TStat: math.NaN(), DF: 38, PValue: math.NaN()},
		},
		Regression: &study.RegressionResult{
			Outcome: cohort.VarPerformance,
			Terms: []study.CoefEstimate{
				{Term: "Intercept", Coef: 10.2, StdErr: 1.1, TStat: 9.3, PValue: 0.00001, CILower: 8.0, CIUpper: 12.4},
				{Term: "LLMUsage", Coef: 1.7, StdErr: 0.4, TStat: 4.25, PValue: 0.0002, CILower: 0.9, CIUpper: 2.5},
			},
			N: 40, RSquared: 0.42, AdjRSquared: 0.38, FStat: 7.1, FPValue: 0.0003, DFModel: 4, DFResid: 35,
		},
		IPMA: &study.IPMAResult{
			Outcome: cohort.VarPerformance,
			EffectSizes: map[string]*float64{
				"LLMUsage":    fp(0.42),
				"HerbalBlend": nil,
			},
			Bottlenecks: []study.BottleneckStep{
				{OutcomeLevel: 10, Required: map[string]float64{"LLMUsage": 0.2, "HerbalBlend": 0.1}},
				{OutcomeLevel: 12, Required: map[string]float64{"LLMUsage": 0.6, "HerbalBlend": 0.4}},
			},
			XCeiling: []float64{0, 1},
			YCeiling: []float64{9.5, 13.5},
			Backend:  "Rscript",
		},
		SEM: &study.SEMFit{
			Spec:      "Performance ~ FinalSelfEfficacy + FinalAnxiety",
			Converged: true,
			Backend:   "semopy",
			Paths: []study.PathEstimate{
				{LHS: "Performance", Op: "~", RHS: "FinalSelfEfficacy", Estimate: 0.51, StdErr: 0.12, ZValue: 4.25, PValue: 0.0001},
			},
			Importance: []study.ImportanceRow{
				{Variable: "FinalSelfEfficacy", Total: 0.51, Importance: 0.31},
			},
		},
		Qualitative: &study.QualitativeSummary{
			Prompts: study.PromptAnalysis{
				AverageLength: 11.5,
				TopKeywords:   []study.KeywordCount{{Word: "code", Count: 17}, {Word: "error", Count: 9}},
				QuestionTypes: []string{"debug", "explain", "optimize", "general help"},
			},
			Interviews: study.InterviewAnalysis{
				PerceivedUsefulnessLLM: 4.1,
				AnxietyReductionLLM:    1.8,
				AnxietyReductionHerbal: 1.9,
				Feedback:               []string{"P1: The LLM helped me find the bug quickly."},
			},
		},
		Charts:   []string{"llm_completion_violin.png", "sem_diagram_basic.png"},
		Warnings: []string{"IPMA adapter unavailable: Rscript not on PATH"},
	}
}

// TestNewWriter parses the embedded templates.
func TestNewWriter(t *testing.T) {
	if _, err := NewWriter(); err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
}

// TestRenderSummary_FullReport checks every section lands in the output
// with NaN statistics still visible.
func TestRenderSummary_FullReport(t *testing.T) {
	w, err := NewWriter()
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	var buf bytes.Buffer
	if err := w.RenderSummary(&buf, fullSummary()); err != nil {
		t.Fatalf("RenderSummary returned error: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		"<title>Summary Statistics</title>",
		"<h1>Descriptive Statistics</h1>",
		"25%",
		"FinalAnxiety",
		"Outcome Correlations",
		"Group Comparisons",
		"NaN",
		"&lt;0.0001",
		"Regression: Performance",
		"Intercept",
		"Importance-Performance (R): Performance",
		"Not available",
		"Bottleneck Table",
		"Structural Model (semopy)",
		"Total Effect vs. Importance",
		"Qualitative Findings",
		"general help",
		"The LLM helped me find the bug quickly.",
		"llm_completion_violin.png",
		"Warnings",
		"Rscript not on PATH",
		"Methods",
		"</html>",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("report missing %q", want)
		}
	}
}

// TestRenderSummary_MinimalOmitsSections leaves optional sections out when
// their data is absent.
func TestRenderSummary_MinimalOmitsSections(t *testing.T) {
	w, err := NewWriter()
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	summary := Summary{
		Descriptives: study.Descriptives{
			Rows: []study.SummaryStats{{Key: cohort.VarAge, Count: 4, Mean: 20}},
		},
	}
	var buf bytes.Buffer
	if err := w.RenderSummary(&buf, summary); err != nil {
		t.Fatalf("RenderSummary returned error: %v", err)
	}
	html := buf.String()

	for _, absent := range []string{
		"Outcome Correlations",
		"Group Comparisons",
		"Regression:",
		"Importance-Performance",
		"Structural Model",
		"Qualitative Findings",
		"Figures",
		"Warnings",
	} {
		if strings.Contains(html, absent) {
			t.Errorf("minimal report should not contain %q", absent)
		}
	}
	if !strings.Contains(html, "Methods") {
		t.Error("minimal report should still carry the methods section")
	}
}

// TestRenderSummary_EmptyIPMASkipped hides the section when the analysis
// degraded to the empty result.
func TestRenderSummary_EmptyIPMASkipped(t *testing.T) {
	w, err := NewWriter()
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	summary := Summary{
		Descriptives: study.Descriptives{Rows: []study.SummaryStats{{Key: cohort.VarAge, Count: 4}}},
		IPMA:         &study.IPMAResult{Outcome: cohort.VarPerformance},
	}
	var buf bytes.Buffer
	if err := w.RenderSummary(&buf, summary); err != nil {
		t.Fatalf("RenderSummary returned error: %v", err)
	}
	if strings.Contains(buf.String(), "Importance-Performance") {
		t.Error("empty IPMA result should not produce a section")
	}
}

// TestWriteSummary creates parent directories and writes a complete file.
func TestWriteSummary(t *testing.T) {
	w, err := NewWriter()
	if err != nil {
		t.Fatalf("NewWriter returned error: %v", err)
	}
	path := filepath.Join(t.TempDir(), "reports", "summary_statistics.html")
	if err := w.WriteSummary(path, fullSummary()); err != nil {
		t.Fatalf("WriteSummary returned error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !strings.Contains(string(data), "</html>") {
		t.Error("written report appears truncated")
	}
}

// TestHeatCell maps the correlation extremes onto the diverging palette.
func TestHeatCell(t *testing.T) {
	if got := string(heatCell(1)); !strings.Contains(got, "rgb(180,4,38)") {
		t.Errorf("expected full red at r=1, got %s", got)
	}
	if got := string(heatCell(-1)); !strings.Contains(got, "rgb(59,76,192)") {
		t.Errorf("expected full blue at r=-1, got %s", got)
	}
	if got := string(heatCell(0)); !strings.Contains(got, "rgb(221,221,221)") {
		t.Errorf("expected neutral at r=0, got %s", got)
	}
	if got := string(heatCell(math.NaN())); !strings.Contains(got, "#444444") {
		t.Errorf("expected gray for NaN, got %s", got)
	}
}

// TestFmtP formats small, ordinary, and undefined p-values.
func TestFmtP(t *testing.T) {
	if got := fmtP(math.NaN()); got != "NaN" {
		t.Errorf("expected NaN, got %s", got)
	}
	if got := fmtP(0.00005); got != "<0.0001" {
		t.Errorf("expected <0.0001, got %s", got)
	}
	if got := fmtP(0.0345); got != "0.0345" {
		t.Errorf("expected 0.0345, got %s", got)
	}
}

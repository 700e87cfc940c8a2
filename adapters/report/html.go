package report

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"gotrial/domain/study"
)

//go:embed templates/*.html
var templateFS embed.FS

// Summary is everything the report can show. Nil pointers and empty slices
// drop their sections; the descriptive table is the only mandatory part.
type Summary struct {
	Title        string
	RunID        string
	GeneratedAt  string
	ParticipantN int
	Seed         int64

	Descriptives study.Descriptives
	Correlations *study.CorrelationMatrix
	Comparisons  []study.TTestComparison
	Regression   *study.RegressionResult
	IPMA         *study.IPMAResult
	SEM          *study.SEMFit
	Qualitative  *study.QualitativeSummary

	Charts   []string
	Warnings []string

	// MethodsMarkdown overrides the canned methods text. MethodsHTML is
	// filled during rendering.
	MethodsMarkdown string
	MethodsHTML     template.HTML
}

const defaultMethods = `Participants were assigned to one of four cells crossing assistant access
with the herbal supplement. Before modeling, numeric measures were
standardized to zero mean and unit variance and the categorical demographics
were expanded into indicator columns.

* Descriptive statistics and pairwise Pearson correlations over the primary
  outcomes.
* Independent two-sample t-tests comparing the assisted and unassisted arms
  on each primary outcome, pooled variance.
* Ordinary least squares for task performance on the two interventions and
  the baseline psychological measures, with 95% confidence intervals.
* Importance-performance analysis delegated to R, and a structural equation
  model delegated to a semopy sidecar, both reported as provided.

Undefined statistics are reported as NaN rather than dropped. Tests use a
0.05 significance level.`

// Writer renders study summaries to HTML
type Writer struct {
	templates *template.Template
}

// NewWriter parses the embedded report templates
func NewWriter() (*Writer, error) {
	funcMap := template.FuncMap{
		"fmtStat": fmtStat,
		"fmtCorr": fmtCorr,
		"fmtP":    fmtP,
		"fmtEffect": func(v *float64) string {
			if v == nil {
				return "Not available"
			}
			return fmt.Sprintf("%.2f", *v)
		},
		"heatCell": heatCell,
		"join":     strings.Join,
		"base":     filepath.Base,
	}

	sub, err := fs.Sub(templateFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("report templates: %w", err)
	}
	tmpl, err := template.New("").Funcs(funcMap).ParseFS(sub, "*.html")
	if err != nil {
		return nil, fmt.Errorf("parse report templates: %w", err)
	}
	return &Writer{templates: tmpl}, nil
}

// RenderSummary writes the summary HTML to out. The template runs against a
// buffer first so a rendering error never leaves partial output behind.
func (w *Writer) RenderSummary(out io.Writer, summary Summary) error {
	if summary.Title == "" {
		summary.Title = "Summary Statistics"
	}
	if summary.MethodsMarkdown == "" {
		summary.MethodsMarkdown = defaultMethods
	}
	summary.MethodsHTML = renderMarkdown(summary.MethodsMarkdown)

	var buf bytes.Buffer
	if err := w.templates.ExecuteTemplate(&buf, "summary_statistics.html", summary); err != nil {
		return fmt.Errorf("render summary: %w", err)
	}
	if _, err := buf.WriteTo(out); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// WriteSummary renders the summary into the named file, creating parent
// directories as needed.
func (w *Writer) WriteSummary(path string, summary Summary) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create report file: %w", err)
	}
	defer f.Close()
	if err := w.RenderSummary(f, summary); err != nil {
		return err
	}
	log.Printf("[Report] wrote %s", path)
	return nil
}

func renderMarkdown(md string) template.HTML {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	doc := p.Parse([]byte(md))
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	return template.HTML(markdown.Render(doc, renderer))
}

func fmtStat(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.4f", v)
}

func fmtCorr(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	return fmt.Sprintf("%.2f", v)
}

func fmtP(v float64) string {
	if math.IsNaN(v) {
		return "NaN"
	}
	if v < 0.0001 {
		return "<0.0001"
	}
	return fmt.Sprintf("%.4f", v)
}

// heatCell maps a correlation onto a blue-white-red background, the usual
// diverging palette. NaN cells go flat gray.
func heatCell(r float64) template.CSS {
	if math.IsNaN(r) {
		return "background-color:#444444"
	}
	if r > 1 {
		r = 1
	}
	if r < -1 {
		r = -1
	}
	lerp := func(a, b int, t float64) int {
		return a + int(t*float64(b-a)+0.5)
	}
	var red, green, blue int
	if r < 0 {
		t := r + 1
		red = lerp(59, 221, t)
		green = lerp(76, 221, t)
		blue = lerp(192, 221, t)
	} else {
		red = lerp(221, 180, r)
		green = lerp(221, 4, r)
		blue = lerp(221, 38, r)
	}
	return template.CSS(fmt.Sprintf("background-color:rgb(%d,%d,%d)", red, green, blue))
}

package render

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"math"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"gotrial/domain/cohort"
	"gotrial/domain/core"
)

// studyTable builds a small two-arm cohort with the columns the figure
// battery touches.
func studyTable(t *testing.T) *cohort.Table {
	t.Helper()
	table := cohort.NewTable([]string{"1", "2", "3", "4", "5", "6", "7", "8"})
	add := func(spec cohort.ColumnSpec, values []float64) {
		t.Helper()
		if err := table.AddColumn(spec, values); err != nil {
			t.Fatalf("add column %s: %v", spec.Key, err)
		}
	}
	add(cohort.ColumnSpec{Key: cohort.VarLLMUsage, Type: cohort.TypeBinary}, []float64{1, 1, 0, 0, 1, 1, 0, 0})
	add(cohort.ColumnSpec{Key: cohort.VarHerbalBlend, Type: cohort.TypeBinary}, []float64{1, 0, 1, 0, 1, 0, 1, 0})
	add(cohort.ColumnSpec{Key: cohort.VarGender, Type: cohort.TypeCategorical, Levels: []string{"Female", "Male", "Other"}},
		[]float64{0, 1, 2, 0, 1, 0, 1, 0})
	add(cohort.ColumnSpec{Key: cohort.VarProgrammingExperience, Type: cohort.TypeCategorical, Levels: []string{"Beginner", "Intermediate", "Advanced"}},
		[]float64{0, 1, 2, 0, 1, 2, 0, 1})
	add(cohort.ColumnSpec{Key: cohort.VarCompletionTime, Type: cohort.TypeNumeric},
		[]float64{220, 310, 295, 340, 250, 270, 330, 360})
	add(cohort.ColumnSpec{Key: cohort.VarErrorsIdentified, Type: cohort.TypeNumeric},
		[]float64{14, 9, 11, 7, 16, 12, 8, 10})
	add(cohort.ColumnSpec{Key: cohort.VarFinalSelfEfficacy, Type: cohort.TypeNumeric},
		[]float64{4.2, 3.1, 3.4, 2.9, 4.5, 3.8, 3.0, 3.3})
	add(cohort.ColumnSpec{Key: cohort.VarFinalAnxiety, Type: cohort.TypeNumeric},
		[]float64{1.8, 2.6, 2.2, 2.9, 1.6, 2.1, 2.8, 2.4})
	return table
}

func decodePNG(t *testing.T, data []byte) (int, int) {
	t.Helper()
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("decode png: %v", err)
	}
	return cfg.Width, cfg.Height
}

// TestRenderer_Histogram verifies a histogram renders at the standard size.
func TestRenderer_Histogram(t *testing.T) {
	r := NewRenderer(NeonTheme())
	values := []float64{1, 2, 2, 3, 3, 3, 4, 4, 5, 6, 7, 8, 9, 10, 12, 15, 18, 20}
	data, err := r.Histogram(values, "ErrorsIdentified")
	if err != nil {
		t.Fatalf("Histogram returned error: %v", err)
	}
	w, h := decodePNG(t, data)
	if w != 800 || h != 600 {
		t.Errorf("expected 800x600 image, got %dx%d", w, h)
	}
}

// TestRenderer_HistogramDegenerate covers constant and empty inputs.
func TestRenderer_HistogramDegenerate(t *testing.T) {
	r := NewRenderer(NeonTheme())
	if _, err := r.Histogram(nil, "Age"); err == nil {
		t.Error("expected error for empty input")
	}
	data, err := r.Histogram([]float64{3, 3, 3, 3}, "Age")
	if err != nil {
		t.Fatalf("constant column should still render: %v", err)
	}
	decodePNG(t, data)
}

// TestRenderer_Violin renders a two-group violin.
func TestRenderer_Violin(t *testing.T) {
	r := NewRenderer(NeonTheme())
	groups := map[string][]float64{
		"0": {300, 320, 340, 310, 355, 330},
		"1": {240, 260, 250, 270, 255, 245},
	}
	data, err := r.Violin(groups, []string{"0", "1"}, "LLMUsage", "CompletionTime")
	if err != nil {
		t.Fatalf("Violin returned error: %v", err)
	}
	decodePNG(t, data)

	if _, err := r.Violin(nil, nil, "LLMUsage", "CompletionTime"); err == nil {
		t.Error("expected error for empty group set")
	}
}

// TestRenderer_Box renders quartile boxes including an outlier beyond the
// whisker fence.
func TestRenderer_Box(t *testing.T) {
	r := NewRenderer(NeonTheme())
	groups := map[string][]float64{
		"0": {10, 11, 12, 13, 14, 15, 40},
		"1": {5, 6, 7, 8, 9, 10, 11},
	}
	data, err := r.Box(groups, []string{"0", "1"}, "LLMUsage", "ErrorsIdentified")
	if err != nil {
		t.Fatalf("Box returned error: %v", err)
	}
	decodePNG(t, data)
}

// TestRenderer_BoxConstantGroup keeps a flat distribution renderable.
func TestRenderer_BoxConstantGroup(t *testing.T) {
	r := NewRenderer(NeonTheme())
	groups := map[string][]float64{"0": {7, 7, 7, 7}}
	data, err := r.Box(groups, []string{"0"}, "LLMUsage", "ErrorsIdentified")
	if err != nil {
		t.Fatalf("Box returned error: %v", err)
	}
	decodePNG(t, data)
}

// TestRenderer_Scatter renders paired observations and rejects mismatched
// inputs.
func TestRenderer_Scatter(t *testing.T) {
	r := NewRenderer(NeonTheme())
	xs := []float64{1, 2, 3, 4, 5}
	ys := []float64{2.1, 3.9, 6.2, 8.1, 9.8}
	data, err := r.Scatter(xs, ys, "InitialSelfEfficacy", "Performance")
	if err != nil {
		t.Fatalf("Scatter returned error: %v", err)
	}
	decodePNG(t, data)

	if _, err := r.Scatter(xs, ys[:3], "a", "b"); err == nil {
		t.Error("expected error for mismatched lengths")
	}
}

// TestRenderer_ScatterConstantColumn renders when one axis has no spread.
func TestRenderer_ScatterConstantColumn(t *testing.T) {
	r := NewRenderer(NeonTheme())
	xs := []float64{1, 1, 1, 1}
	ys := []float64{2, 3, 4, 5}
	data, err := r.Scatter(xs, ys, "LLMUsage", "Performance")
	if err != nil {
		t.Fatalf("Scatter returned error: %v", err)
	}
	decodePNG(t, data)
}

// TestRenderer_Density2D renders contour lines for a point cloud.
func TestRenderer_Density2D(t *testing.T) {
	r := NewRenderer(NeonTheme())
	var xs, ys []float64
	for i := 0; i < 30; i++ {
		xs = append(xs, float64(i%6)+0.3*float64(i%5))
		ys = append(ys, float64(i%5)+0.2*float64(i%7))
	}
	data, err := r.Density2D(xs, ys, "FinalSelfEfficacy", "Performance")
	if err != nil {
		t.Fatalf("Density2D returned error: %v", err)
	}
	decodePNG(t, data)

	if _, err := r.Density2D([]float64{1}, []float64{2}, "a", "b"); err == nil {
		t.Error("expected error for a single observation")
	}
}

// TestRenderer_StackedGroupMeans renders stacked outlines and rejects ragged
// stacks.
func TestRenderer_StackedGroupMeans(t *testing.T) {
	r := NewRenderer(NeonTheme())
	categories := []string{"Advanced", "Beginner", "Intermediate"}
	stacks := [][]float64{
		{310, 340, 325},
		{250, 290, 270},
	}
	data, err := r.StackedGroupMeans(categories, stacks, "ProgrammingExperience", "CompletionTime", "LLMUsage")
	if err != nil {
		t.Fatalf("StackedGroupMeans returned error: %v", err)
	}
	decodePNG(t, data)

	if _, err := r.StackedGroupMeans(categories, [][]float64{{1, 2}}, "x", "y", "s"); err == nil {
		t.Error("expected error for ragged stack")
	}
}

// TestRenderer_StackedGroupMeansSkipsNaN drops empty cells instead of
// propagating NaN into the geometry.
func TestRenderer_StackedGroupMeansSkipsNaN(t *testing.T) {
	r := NewRenderer(NeonTheme())
	stacks := [][]float64{
		{math.NaN(), 340},
		{250, math.NaN()},
	}
	data, err := r.StackedGroupMeans([]string{"Female", "Male"}, stacks, "Gender", "CompletionTime", "HerbalBlend")
	if err != nil {
		t.Fatalf("StackedGroupMeans returned error: %v", err)
	}
	decodePNG(t, data)
}

// TestRenderer_CeilingScatter renders the frontier overlay when ceiling
// coordinates are present and degrades to plain points when they are not.
func TestRenderer_CeilingScatter(t *testing.T) {
	r := NewRenderer(NeonTheme())
	xs := []float64{0, 0, 1, 1, 1}
	ys := []float64{8, 9, 12, 13, 11}
	data, err := r.CeilingScatter(xs, ys, []float64{0, 1}, []float64{9.5, 13.5}, "LLMUsage", "Performance")
	if err != nil {
		t.Fatalf("CeilingScatter returned error: %v", err)
	}
	decodePNG(t, data)

	data, err = r.CeilingScatter(xs, ys, nil, nil, "LLMUsage", "Performance")
	if err != nil {
		t.Fatalf("CeilingScatter without ceiling returned error: %v", err)
	}
	decodePNG(t, data)
}

// TestRenderer_ImportanceScatter renders the total effect against importance.
func TestRenderer_ImportanceScatter(t *testing.T) {
	r := NewRenderer(NeonTheme())
	data, err := r.ImportanceScatter([]float64{0.3, 0.5, 0.1}, []float64{0.2, 0.6, 0.15})
	if err != nil {
		t.Fatalf("ImportanceScatter returned error: %v", err)
	}
	decodePNG(t, data)

	if _, err := r.ImportanceScatter(nil, nil); err == nil {
		t.Error("expected error for empty input")
	}
}

// TestRenderer_PathDiagram renders the default path model at full size.
func TestRenderer_PathDiagram(t *testing.T) {
	r := NewRenderer(NeonTheme())
	data, err := r.PathDiagram(DefaultDiagram())
	if err != nil {
		t.Fatalf("PathDiagram returned error: %v", err)
	}
	w, h := decodePNG(t, data)
	if w != 800 || h != 600 {
		t.Errorf("expected 800x600 image, got %dx%d", w, h)
	}
}

// TestRenderer_PathDiagramBadEdges rejects edges naming unknown nodes.
func TestRenderer_PathDiagramBadEdges(t *testing.T) {
	r := NewRenderer(NeonTheme())
	spec := DiagramSpec{
		Name:  "broken",
		Nodes: []DiagramNode{{Label: "A", X: 0, Y: 0}},
		Edges: []DiagramEdge{{From: "A", To: "B"}},
	}
	if _, err := r.PathDiagram(spec); err == nil {
		t.Error("expected error for edge to unknown node")
	}
	if _, err := r.PathDiagram(DiagramSpec{Name: "empty"}); err == nil {
		t.Error("expected error for empty node set")
	}
}

// TestBattery_RenderStudyCharts writes the full thirteen-figure battery.
func TestBattery_RenderStudyCharts(t *testing.T) {
	battery := NewBattery(NewRenderer(NeonTheme()), 3)
	dir := t.TempDir()

	written, err := battery.RenderStudyCharts(context.Background(), studyTable(t), dir)
	if err != nil {
		t.Fatalf("RenderStudyCharts returned error: %v", err)
	}
	expected := []string{
		"experience_anxiety_llm_stackedbar.png",
		"experience_completion_llm_stackedbar.png",
		"experience_errors_llm_stackedbar.png",
		"experience_selfefficacy_llm_stackedbar.png",
		"gender_completion_herbal_stackedbar.png",
		"gender_errors_herbal_stackedbar.png",
		"herbal_anxiety_violin.png",
		"herbal_completion_violin.png",
		"herbal_errors_violin.png",
		"llm_completion_violin.png",
		"llm_errors_violin.png",
		"llm_selfefficacy_violin.png",
		"sem_diagram_basic.png",
	}
	if len(written) != len(expected) {
		t.Fatalf("expected %d charts, got %d: %v", len(expected), len(written), written)
	}
	if !sort.StringsAreSorted(written) {
		t.Errorf("written paths are not sorted: %v", written)
	}
	for i, path := range written {
		if filepath.Base(path) != expected[i] {
			t.Errorf("chart %d: expected %s, got %s", i, expected[i], filepath.Base(path))
		}
		info, statErr := os.Stat(path)
		if statErr != nil {
			t.Errorf("chart %s not written: %v", path, statErr)
			continue
		}
		if info.Size() == 0 {
			t.Errorf("chart %s is empty", path)
		}
	}
}

// TestBattery_MissingColumn keeps the rest of the battery rendering when one
// column is absent.
func TestBattery_MissingColumn(t *testing.T) {
	table := cohort.NewTable([]string{"1", "2", "3", "4"})
	mustAdd := func(spec cohort.ColumnSpec, values []float64) {
		t.Helper()
		if err := table.AddColumn(spec, values); err != nil {
			t.Fatalf("add column %s: %v", spec.Key, err)
		}
	}
	mustAdd(cohort.ColumnSpec{Key: cohort.VarLLMUsage, Type: cohort.TypeBinary}, []float64{1, 1, 0, 0})
	mustAdd(cohort.ColumnSpec{Key: cohort.VarHerbalBlend, Type: cohort.TypeBinary}, []float64{1, 0, 1, 0})
	mustAdd(cohort.ColumnSpec{Key: cohort.VarGender, Type: cohort.TypeCategorical, Levels: []string{"Female", "Male", "Other"}},
		[]float64{0, 1, 2, 0})
	mustAdd(cohort.ColumnSpec{Key: cohort.VarProgrammingExperience, Type: cohort.TypeCategorical, Levels: []string{"Beginner", "Intermediate", "Advanced"}},
		[]float64{0, 1, 2, 0})
	mustAdd(cohort.ColumnSpec{Key: cohort.VarErrorsIdentified, Type: cohort.TypeNumeric}, []float64{14, 9, 11, 7})
	mustAdd(cohort.ColumnSpec{Key: cohort.VarFinalSelfEfficacy, Type: cohort.TypeNumeric}, []float64{4.2, 3.1, 3.4, 2.9})
	mustAdd(cohort.ColumnSpec{Key: cohort.VarFinalAnxiety, Type: cohort.TypeNumeric}, []float64{1.8, 2.6, 2.2, 2.9})

	battery := NewBattery(NewRenderer(NeonTheme()), 2)
	written, err := battery.RenderStudyCharts(context.Background(), table, t.TempDir())
	if err == nil {
		t.Fatal("expected an error for the missing CompletionTime column")
	}
	if !errors.Is(err, core.ErrUnknownVariable) {
		t.Errorf("expected unknown variable error, got %v", err)
	}
	// Four figures depend on CompletionTime, the other nine should land.
	if len(written) != 9 {
		t.Errorf("expected 9 surviving charts, got %d: %v", len(written), written)
	}
	for _, path := range written {
		if base := filepath.Base(path); base == "llm_completion_violin.png" ||
			base == "herbal_completion_violin.png" ||
			base == "experience_completion_llm_stackedbar.png" ||
			base == "gender_completion_herbal_stackedbar.png" {
			t.Errorf("chart %s should not have rendered", base)
		}
	}
}

// TestGroupValues splits outcome values by a binary arm in label order.
func TestGroupValues(t *testing.T) {
	table := studyTable(t)
	groups, order, err := GroupValues(table, cohort.VarLLMUsage, cohort.VarErrorsIdentified)
	if err != nil {
		t.Fatalf("GroupValues returned error: %v", err)
	}
	if len(order) != 2 || order[0] != "0" || order[1] != "1" {
		t.Fatalf("expected group order [0 1], got %v", order)
	}
	wantTreated := []float64{14, 9, 16, 12}
	if got := groups["1"]; len(got) != len(wantTreated) {
		t.Fatalf("expected %d treated values, got %d", len(wantTreated), len(got))
	} else {
		for i, v := range wantTreated {
			if got[i] != v {
				t.Errorf("treated value %d: expected %v, got %v", i, v, got[i])
			}
		}
	}
	if len(groups["0"]) != 4 {
		t.Errorf("expected 4 control values, got %d", len(groups["0"]))
	}
}

// TestGroupValues_Errors rejects unknown and unsuitable columns.
func TestGroupValues_Errors(t *testing.T) {
	table := studyTable(t)
	if _, _, err := GroupValues(table, "NoSuchColumn", cohort.VarErrorsIdentified); !errors.Is(err, core.ErrUnknownVariable) {
		t.Errorf("expected unknown variable error, got %v", err)
	}
	if _, _, err := GroupValues(table, cohort.VarCompletionTime, cohort.VarErrorsIdentified); !core.IsDataShapeError(err) {
		t.Errorf("expected data shape error for numeric grouping column, got %v", err)
	}
	if _, _, err := GroupValues(table, cohort.VarLLMUsage, cohort.VarGender); !core.IsDataShapeError(err) {
		t.Errorf("expected data shape error for categorical value column, got %v", err)
	}
}

// TestStackedMeans computes per-cell means and marks empty cells NaN.
func TestStackedMeans(t *testing.T) {
	table := cohort.NewTable([]string{"1", "2", "3", "4"})
	mustAdd := func(spec cohort.ColumnSpec, values []float64) {
		t.Helper()
		if err := table.AddColumn(spec, values); err != nil {
			t.Fatalf("add column %s: %v", spec.Key, err)
		}
	}
	mustAdd(cohort.ColumnSpec{Key: cohort.VarGender, Type: cohort.TypeCategorical, Levels: []string{"Female", "Male", "Other"}},
		[]float64{0, 1, 2, 0})
	mustAdd(cohort.ColumnSpec{Key: cohort.VarLLMUsage, Type: cohort.TypeBinary}, []float64{1, 1, 0, 0})
	mustAdd(cohort.ColumnSpec{Key: cohort.VarCompletionTime, Type: cohort.TypeNumeric}, []float64{10, 20, 30, 40})

	categories, stacks, err := stackedMeans(table, cohort.VarGender, cohort.VarCompletionTime, cohort.VarLLMUsage)
	if err != nil {
		t.Fatalf("stackedMeans returned error: %v", err)
	}
	wantCategories := []string{"Female", "Male", "Other"}
	for i, c := range wantCategories {
		if categories[i] != c {
			t.Fatalf("expected categories %v, got %v", wantCategories, categories)
		}
	}
	if len(stacks) != 2 {
		t.Fatalf("expected 2 stack levels, got %d", len(stacks))
	}
	// Level "0": Female row 4 only, Male empty, Other row 3.
	if stacks[0][0] != 40 {
		t.Errorf("expected control Female mean 40, got %v", stacks[0][0])
	}
	if !math.IsNaN(stacks[0][1]) {
		t.Errorf("expected NaN for the empty control Male cell, got %v", stacks[0][1])
	}
	if stacks[0][2] != 30 {
		t.Errorf("expected control Other mean 30, got %v", stacks[0][2])
	}
	// Level "1": Female row 1, Male row 2, Other empty.
	if stacks[1][0] != 10 || stacks[1][1] != 20 {
		t.Errorf("expected treated means [10 20], got [%v %v]", stacks[1][0], stacks[1][1])
	}
	if !math.IsNaN(stacks[1][2]) {
		t.Errorf("expected NaN for the empty treated Other cell, got %v", stacks[1][2])
	}
}

// TestKDECurve checks the estimated density is finite, positive, and
// carries roughly unit mass over the evaluation grid.
func TestKDECurve(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5, 6}
	xs, ys := kdeCurve(values, 256)
	if len(xs) != 256 || len(ys) != 256 {
		t.Fatalf("expected 256 grid points, got %d and %d", len(xs), len(ys))
	}
	var mass float64
	for i := 1; i < len(xs); i++ {
		if math.IsNaN(ys[i]) || ys[i] < 0 {
			t.Fatalf("density at %v is %v", xs[i], ys[i])
		}
		mass += (xs[i] - xs[i-1]) * (ys[i] + ys[i-1]) / 2
	}
	if mass < 0.9 || mass > 1.02 {
		t.Errorf("expected near-unit mass on the grid, got %v", mass)
	}
}

// TestScottBandwidth falls back to a positive width for constant samples.
func TestScottBandwidth(t *testing.T) {
	if h := scottBandwidth([]float64{5, 5, 5, 5}, 1); h <= 0 {
		t.Errorf("expected positive fallback bandwidth, got %v", h)
	}
	h := scottBandwidth([]float64{1, 2, 3, 4, 5, 6}, 1)
	if h <= 0 || math.IsNaN(h) {
		t.Errorf("expected positive bandwidth, got %v", h)
	}
}

// TestQuartiles checks the midpoint quartile cuts for even and odd samples.
func TestQuartiles(t *testing.T) {
	cases := []struct {
		name       string
		values     []float64
		q1, q2, q3 float64
	}{
		{"even", []float64{1, 2, 3, 4, 5, 6, 7, 8}, 2.5, 4.5, 6.5},
		{"odd", []float64{1, 2, 3, 4, 5, 6, 7}, 2, 4, 6},
		{"single", []float64{9}, 9, 9, 9},
	}
	for _, tc := range cases {
		q1, q2, q3 := quartiles(tc.values)
		if q1 != tc.q1 || q2 != tc.q2 || q3 != tc.q3 {
			t.Errorf("%s: expected quartiles (%v %v %v), got (%v %v %v)",
				tc.name, tc.q1, tc.q2, tc.q3, q1, q2, q3)
		}
	}
}

// TestContourSegments extracts segments around a single peak and nothing
// above the maximum.
func TestContourSegments(t *testing.T) {
	g := grid2D{
		cells: [][]float64{
			{0, 0, 0},
			{0, 1, 0},
			{0, 0, 0},
		},
		x0: 0, x1: 2, y0: 0, y1: 2,
	}
	segs := contourSegments(g, 0.5)
	if len(segs) == 0 {
		t.Fatal("expected contour segments around the peak")
	}
	for _, s := range segs {
		for _, v := range []float64{s.x1, s.y1, s.x2, s.y2} {
			if v < 0 || v > 2 {
				t.Errorf("segment point %v outside the grid extent", v)
			}
		}
	}
	if segs = contourSegments(g, 2.0); len(segs) != 0 {
		t.Errorf("expected no segments above the peak, got %d", len(segs))
	}
}

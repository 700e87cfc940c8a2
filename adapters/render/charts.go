package render

import (
	"bytes"
	"fmt"
	"math"

	"github.com/wcharczuk/go-chart/v2"
)

// Renderer draws study figures as PNG images in the configured theme. Plot
// shapes and titles mirror the lab's standard figure battery: outlined
// histograms, violins, stacked group means, contour densities.
type Renderer struct {
	theme  Theme
	width  int
	height int
}

// NewRenderer returns a renderer producing 800x600 PNGs.
func NewRenderer(theme Theme) *Renderer {
	return &Renderer{theme: theme, width: 800, height: 600}
}

// NewRendererSize returns a renderer producing PNGs at the given pixel size.
// Non-positive dimensions fall back to the 800x600 default.
func NewRendererSize(theme Theme, width, height int) *Renderer {
	if width <= 0 {
		width = 800
	}
	if height <= 0 {
		height = 600
	}
	return &Renderer{theme: theme, width: width, height: height}
}

func (r *Renderer) renderPNG(graph chart.Chart) ([]byte, error) {
	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("render chart %q: %w", graph.Title, err)
	}
	return buf.Bytes(), nil
}

// Histogram bins the values into ten equal-width bars drawn as unfilled
// outlines.
func (r *Renderer) Histogram(values []float64, name string) ([]byte, error) {
	return r.HistogramBins(values, name, 10)
}

// HistogramBins is Histogram with a caller-chosen bin count. Counts below
// one fall back to ten.
func (r *Renderer) HistogramBins(values []float64, name string, bins int) ([]byte, error) {
	if len(values) == 0 {
		return nil, fmt.Errorf("histogram of %s: no observations", name)
	}
	if bins < 1 {
		bins = 10
	}
	lo, hi := minMax(values)
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}
	width := (hi - lo) / float64(bins)
	counts := make([]float64, bins)
	for _, v := range values {
		b := int((v - lo) / width)
		if b >= bins {
			b = bins - 1
		}
		counts[b]++
	}

	graph := r.theme.base(fmt.Sprintf("Histogram of %s", name), r.width, r.height)
	graph.XAxis.Name = name
	graph.YAxis.Name = "Frequency"
	for b, c := range counts {
		x0 := lo + float64(b)*width
		graph.Series = append(graph.Series, r.rect(x0, 0, x0+width, c, r.theme.seriesStyle()))
	}
	return r.renderPNG(graph)
}

// Violin draws one mirrored density outline per group, in the order given.
// Group positions are integer slots labelled with the group names.
func (r *Renderer) Violin(groups map[string][]float64, order []string, xName, yName string) ([]byte, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("violin of %s by %s: no groups", yName, xName)
	}
	graph := r.theme.base(fmt.Sprintf("Violin Plot of %s by %s", yName, xName), r.width, r.height)
	graph.XAxis.Name = xName
	graph.YAxis.Name = yName
	graph.XAxis.Range = &chart.ContinuousRange{Min: -0.5, Max: float64(len(order)) - 0.5}
	for i, label := range order {
		graph.XAxis.Ticks = append(graph.XAxis.Ticks, chart.Tick{Value: float64(i), Label: label})
		values := groups[label]
		if len(values) == 0 {
			continue
		}
		graph.Series = append(graph.Series, r.violinOutline(values, float64(i)))
	}
	if len(graph.Series) == 0 {
		return nil, fmt.Errorf("violin of %s by %s: all groups empty", yName, xName)
	}
	return r.renderPNG(graph)
}

// violinOutline evaluates the group density and mirrors it around the slot
// center, scaled so the widest point spans 0.4 slot units.
func (r *Renderer) violinOutline(values []float64, center float64) chart.Series {
	const points = 64
	heights, dens := kdeCurve(values, points)
	var peak float64
	for _, d := range dens {
		if d > peak {
			peak = d
		}
	}
	if peak == 0 {
		peak = 1
	}
	xs := make([]float64, 0, 2*points+1)
	ys := make([]float64, 0, 2*points+1)
	for i := 0; i < points; i++ {
		xs = append(xs, center+0.4*dens[i]/peak)
		ys = append(ys, heights[i])
	}
	for i := points - 1; i >= 0; i-- {
		xs = append(xs, center-0.4*dens[i]/peak)
		ys = append(ys, heights[i])
	}
	xs = append(xs, xs[0])
	ys = append(ys, ys[0])
	return chart.ContinuousSeries{XValues: xs, YValues: ys, Style: r.theme.seriesStyle()}
}

// Box draws quartile boxes with 1.5 IQR whiskers. Medians and whisker caps
// use the accent color, points beyond the fences are drawn individually.
func (r *Renderer) Box(groups map[string][]float64, order []string, xName, yName string) ([]byte, error) {
	if len(order) == 0 {
		return nil, fmt.Errorf("box of %s by %s: no groups", yName, xName)
	}
	graph := r.theme.base(fmt.Sprintf("Box Plot of %s by %s", yName, xName), r.width, r.height)
	graph.XAxis.Name = xName
	graph.YAxis.Name = yName
	graph.XAxis.Range = &chart.ContinuousRange{Min: -0.5, Max: float64(len(order)) - 0.5}

	outline := r.theme.seriesStyle()
	accent := chart.Style{StrokeColor: r.theme.Accent, StrokeWidth: 2.0}
	var allY []float64
	for i, label := range order {
		graph.XAxis.Ticks = append(graph.XAxis.Ticks, chart.Tick{Value: float64(i), Label: label})
		values := groups[label]
		if len(values) == 0 {
			continue
		}
		allY = append(allY, values...)
		c := float64(i)
		q1, q2, q3 := quartiles(values)
		iqr := q3 - q1
		loFence, hiFence := q1-1.5*iqr, q3+1.5*iqr
		loWhisk, hiWhisk := q2, q2
		first := true
		var fliersX, fliersY []float64
		for _, v := range values {
			if v < loFence || v > hiFence {
				fliersX = append(fliersX, c)
				fliersY = append(fliersY, v)
				continue
			}
			if first || v < loWhisk {
				loWhisk = v
			}
			if first || v > hiWhisk {
				hiWhisk = v
			}
			first = false
		}
		if first {
			loWhisk, hiWhisk = q1, q3
		}

		graph.Series = append(graph.Series,
			r.rect(c-0.3, q1, c+0.3, q3, outline),
			r.line(c-0.3, q2, c+0.3, q2, accent),
			r.line(c, q3, c, hiWhisk, outline),
			r.line(c, q1, c, loWhisk, outline),
			r.line(c-0.15, hiWhisk, c+0.15, hiWhisk, accent),
			r.line(c-0.15, loWhisk, c+0.15, loWhisk, accent),
		)
		if len(fliersX) > 0 {
			graph.Series = append(graph.Series, chart.ContinuousSeries{
				XValues: fliersX,
				YValues: fliersY,
				Style:   r.theme.dotStyle(r.theme.Accent),
			})
		}
	}
	if len(graph.Series) == 0 {
		return nil, fmt.Errorf("box of %s by %s: all groups empty", yName, xName)
	}
	if lo, hi := minMax(allY); lo == hi {
		graph.YAxis.Range = &chart.ContinuousRange{Min: lo - 0.5, Max: hi + 0.5}
	}
	return r.renderPNG(graph)
}

// Scatter plots paired observations as dots.
func (r *Renderer) Scatter(xs, ys []float64, xName, yName string) ([]byte, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil, fmt.Errorf("scatter of %s vs %s: need matching observations, got %d and %d", xName, yName, len(xs), len(ys))
	}
	graph := r.theme.base(fmt.Sprintf("Scatter Plot of %s vs. %s", xName, yName), r.width, r.height)
	graph.XAxis.Name = xName
	graph.YAxis.Name = yName
	padDegenerateRanges(&graph, xs, ys)
	graph.Series = []chart.Series{chart.ContinuousSeries{
		XValues: xs,
		YValues: ys,
		Style:   r.theme.dotStyle(r.theme.Palette[0]),
	}}
	return r.renderPNG(graph)
}

// Density2D draws the joint density of two variables as ten unfilled
// contour levels.
func (r *Renderer) Density2D(xs, ys []float64, xName, yName string) ([]byte, error) {
	if len(xs) < 2 || len(xs) != len(ys) {
		return nil, fmt.Errorf("density of %s vs %s: need matching observations, got %d and %d", xName, yName, len(xs), len(ys))
	}
	graph := r.theme.base(fmt.Sprintf("KDE Plot of %s vs. %s", xName, yName), r.width, r.height)
	graph.XAxis.Name = xName
	graph.YAxis.Name = yName

	const gridSize = 40
	const levels = 10
	g := kdeGrid2D(xs, ys, gridSize)
	peak := g.max()
	if peak == 0 {
		return nil, fmt.Errorf("density of %s vs %s: degenerate distribution", xName, yName)
	}
	style := r.theme.seriesStyle()
	for l := 1; l <= levels; l++ {
		level := peak * float64(l) / float64(levels+1)
		for _, s := range contourSegments(g, level) {
			graph.Series = append(graph.Series, r.line(s.x1, s.y1, s.x2, s.y2, style))
		}
	}
	if len(graph.Series) == 0 {
		return nil, fmt.Errorf("density of %s vs %s: no contours at any level", xName, yName)
	}
	return r.renderPNG(graph)
}

// StackedGroupMeans draws per-category bars stacked from the given mean
// segments. stacks[k][i] is the mean for stack level k in category i; levels
// stack in slice order from the baseline up. Bars are outlines only.
func (r *Renderer) StackedGroupMeans(categories []string, stacks [][]float64, xName, yName, stackName string) ([]byte, error) {
	if len(categories) == 0 || len(stacks) == 0 {
		return nil, fmt.Errorf("stacked bars of %s by %s: no categories", yName, xName)
	}
	for k, stack := range stacks {
		if len(stack) != len(categories) {
			return nil, fmt.Errorf("stacked bars of %s by %s: stack %d has %d values for %d categories", yName, xName, k, len(stack), len(categories))
		}
	}
	graph := r.theme.base(fmt.Sprintf("Stacked Bar Plot of %s by %s and %s", yName, xName, stackName), r.width, r.height)
	graph.XAxis.Name = xName
	graph.YAxis.Name = yName
	graph.XAxis.Range = &chart.ContinuousRange{Min: -0.5, Max: float64(len(categories)) - 0.5}

	style := r.theme.seriesStyle()
	var allY []float64
	for i, label := range categories {
		graph.XAxis.Ticks = append(graph.XAxis.Ticks, chart.Tick{Value: float64(i), Label: label})
		c := float64(i)
		var base float64
		for _, stack := range stacks {
			v := stack[i]
			if math.IsNaN(v) {
				continue
			}
			graph.Series = append(graph.Series, r.rect(c-0.3, base, c+0.3, base+v, style))
			base += v
			allY = append(allY, base)
		}
	}
	if len(graph.Series) == 0 {
		return nil, fmt.Errorf("stacked bars of %s by %s: nothing to draw", yName, xName)
	}
	allY = append(allY, 0)
	if lo, hi := minMax(allY); lo == hi {
		graph.YAxis.Range = &chart.ContinuousRange{Min: lo - 0.5, Max: hi + 0.5}
	}
	return r.renderPNG(graph)
}

// CeilingScatter plots observations with an overlaid attainment frontier,
// the figure produced for importance-performance runs.
func (r *Renderer) CeilingScatter(xs, ys, ceilingX, ceilingY []float64, xName, yName string) ([]byte, error) {
	if len(xs) == 0 || len(xs) != len(ys) {
		return nil, fmt.Errorf("ceiling scatter of %s vs %s: need matching observations, got %d and %d", xName, yName, len(xs), len(ys))
	}
	graph := r.theme.base(fmt.Sprintf("IPMA (R): %s vs. %s", xName, yName), r.width, r.height)
	graph.XAxis.Name = xName
	graph.YAxis.Name = yName
	padDegenerateRanges(&graph, xs, ys)
	graph.Series = []chart.Series{chart.ContinuousSeries{
		Name:    "Data Points",
		XValues: xs,
		YValues: ys,
		Style:   r.theme.dotStyle(r.theme.Palette[0]),
	}}
	if len(ceilingX) > 1 && len(ceilingX) == len(ceilingY) {
		graph.Series = append(graph.Series, chart.ContinuousSeries{
			Name:    "Ceiling Line",
			XValues: ceilingX,
			YValues: ceilingY,
			Style:   chart.Style{StrokeColor: r.theme.Accent, StrokeWidth: 2.0},
		})
	}
	return r.renderPNG(graph)
}

// ImportanceScatter plots total effects against importance weights.
func (r *Renderer) ImportanceScatter(totals, importances []float64) ([]byte, error) {
	if len(totals) == 0 || len(totals) != len(importances) {
		return nil, fmt.Errorf("importance scatter: need matching observations, got %d and %d", len(totals), len(importances))
	}
	graph := r.theme.base("IPMA: Total Effect vs. Importance", r.width, r.height)
	graph.XAxis.Name = "total"
	graph.YAxis.Name = "importance"
	padDegenerateRanges(&graph, totals, importances)
	graph.Series = []chart.Series{chart.ContinuousSeries{
		XValues: totals,
		YValues: importances,
		Style:   r.theme.dotStyle(r.theme.Axis),
	}}
	return r.renderPNG(graph)
}

// padDegenerateRanges widens a zero-span axis so constant columns still
// render instead of tripping the range math.
func padDegenerateRanges(graph *chart.Chart, xs, ys []float64) {
	if lo, hi := minMax(xs); lo == hi {
		graph.XAxis.Range = &chart.ContinuousRange{Min: lo - 0.5, Max: hi + 0.5}
	}
	if lo, hi := minMax(ys); lo == hi {
		graph.YAxis.Range = &chart.ContinuousRange{Min: lo - 0.5, Max: hi + 0.5}
	}
}

func (r *Renderer) rect(x0, y0, x1, y1 float64, style chart.Style) chart.Series {
	return chart.ContinuousSeries{
		XValues: []float64{x0, x1, x1, x0, x0},
		YValues: []float64{y0, y0, y1, y1, y0},
		Style:   style,
	}
}

func (r *Renderer) line(x0, y0, x1, y1 float64, style chart.Style) chart.Series {
	return chart.ContinuousSeries{
		XValues: []float64{x0, x1},
		YValues: []float64{y0, y1},
		Style:   style,
	}
}

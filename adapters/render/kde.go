package render

import (
	"math"
	"sort"
)

// Gaussian kernel density estimation used by the violin and density plots.
// Bandwidths follow Scott's rule, which is what the plotting stacks this
// pipeline replaces used by default.

func gaussianKernel(u float64) float64 {
	return math.Exp(-0.5*u*u) / math.Sqrt(2*math.Pi)
}

func meanStd(values []float64) (float64, float64) {
	n := float64(len(values))
	if n == 0 {
		return 0, 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n
	var ss float64
	for _, v := range values {
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / n)
}

// scottBandwidth computes sigma * n^(-1/(d+4)) for d estimated dimensions.
// A zero spread falls back to a small constant so degenerate groups still
// render as a sliver rather than dividing by zero.
func scottBandwidth(values []float64, dims int) float64 {
	_, sigma := meanStd(values)
	if sigma == 0 {
		return 1e-3
	}
	n := float64(len(values))
	return sigma * math.Pow(n, -1.0/float64(dims+4))
}

func densityAt(values []float64, x, h float64) float64 {
	var sum float64
	for _, v := range values {
		sum += gaussianKernel((x - v) / h)
	}
	return sum / (float64(len(values)) * h)
}

// kdeCurve evaluates the estimated density on an evenly spaced grid
// extended two bandwidths past the observed range.
func kdeCurve(values []float64, points int) (xs, ys []float64) {
	if len(values) == 0 || points < 2 {
		return nil, nil
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	h := scottBandwidth(values, 1)
	lo := sorted[0] - 2*h
	hi := sorted[len(sorted)-1] + 2*h
	step := (hi - lo) / float64(points-1)
	xs = make([]float64, points)
	ys = make([]float64, points)
	for i := 0; i < points; i++ {
		x := lo + float64(i)*step
		xs[i] = x
		ys[i] = densityAt(values, x, h)
	}
	return xs, ys
}

// grid2D is a rectangular density field with its data-space extent.
type grid2D struct {
	cells          [][]float64
	x0, x1, y0, y1 float64
}

func (g grid2D) max() float64 {
	var m float64
	for _, row := range g.cells {
		for _, v := range row {
			if v > m {
				m = v
			}
		}
	}
	return m
}

// kdeGrid2D evaluates a product-kernel density over a square grid spanning
// the observed ranges, padded by two bandwidths on each side.
func kdeGrid2D(xs, ys []float64, size int) grid2D {
	hx := scottBandwidth(xs, 2)
	hy := scottBandwidth(ys, 2)
	minX, maxX := minMax(xs)
	minY, maxY := minMax(ys)
	g := grid2D{
		cells: make([][]float64, size),
		x0:    minX - 2*hx,
		x1:    maxX + 2*hx,
		y0:    minY - 2*hy,
		y1:    maxY + 2*hy,
	}
	n := float64(len(xs))
	norm := n * hx * hy
	for i := 0; i < size; i++ {
		g.cells[i] = make([]float64, size)
		gy := g.y0 + (g.y1-g.y0)*float64(i)/float64(size-1)
		for j := 0; j < size; j++ {
			gx := g.x0 + (g.x1-g.x0)*float64(j)/float64(size-1)
			var sum float64
			for k := range xs {
				sum += gaussianKernel((gx-xs[k])/hx) * gaussianKernel((gy-ys[k])/hy)
			}
			g.cells[i][j] = sum / norm
		}
	}
	return g
}

type segment struct {
	x1, y1, x2, y2 float64
}

// contourSegments extracts the iso-line at the given level with a marching
// squares pass. Segments are returned unjoined; the renderer draws each one
// as its own short polyline.
func contourSegments(g grid2D, level float64) []segment {
	rows := len(g.cells)
	if rows < 2 {
		return nil
	}
	cols := len(g.cells[0])
	stepX := (g.x1 - g.x0) / float64(cols-1)
	stepY := (g.y1 - g.y0) / float64(rows-1)

	var segs []segment
	for i := 0; i < rows-1; i++ {
		for j := 0; j < cols-1; j++ {
			// Cell corners, counterclockwise from bottom-left.
			bl := g.cells[i][j]
			br := g.cells[i][j+1]
			tr := g.cells[i+1][j+1]
			tl := g.cells[i+1][j]

			idx := 0
			if bl > level {
				idx |= 1
			}
			if br > level {
				idx |= 2
			}
			if tr > level {
				idx |= 4
			}
			if tl > level {
				idx |= 8
			}
			if idx == 0 || idx == 15 {
				continue
			}

			x := g.x0 + float64(j)*stepX
			y := g.y0 + float64(i)*stepY

			bottom := func() (float64, float64) {
				return x + stepX*interp(bl, br, level), y
			}
			top := func() (float64, float64) {
				return x + stepX*interp(tl, tr, level), y + stepY
			}
			left := func() (float64, float64) {
				return x, y + stepY*interp(bl, tl, level)
			}
			right := func() (float64, float64) {
				return x + stepX, y + stepY*interp(br, tr, level)
			}

			add := func(ax, ay, bx, by float64) {
				segs = append(segs, segment{ax, ay, bx, by})
			}

			switch idx {
			case 1, 14:
				ax, ay := left()
				bx, by := bottom()
				add(ax, ay, bx, by)
			case 2, 13:
				ax, ay := bottom()
				bx, by := right()
				add(ax, ay, bx, by)
			case 3, 12:
				ax, ay := left()
				bx, by := right()
				add(ax, ay, bx, by)
			case 4, 11:
				ax, ay := top()
				bx, by := right()
				add(ax, ay, bx, by)
			case 6, 9:
				ax, ay := bottom()
				bx, by := top()
				add(ax, ay, bx, by)
			case 7, 8:
				ax, ay := left()
				bx, by := top()
				add(ax, ay, bx, by)
			case 5:
				ax, ay := left()
				bx, by := bottom()
				add(ax, ay, bx, by)
				cx, cy := top()
				dx, dy := right()
				add(cx, cy, dx, dy)
			case 10:
				ax, ay := left()
				bx, by := top()
				add(ax, ay, bx, by)
				cx, cy := bottom()
				dx, dy := right()
				add(cx, cy, dx, dy)
			}
		}
	}
	return segs
}

// interp locates the level crossing between two corner values as a 0..1
// fraction along the edge.
func interp(a, b, level float64) float64 {
	if a == b {
		return 0.5
	}
	t := (level - a) / (b - a)
	if t < 0 {
		return 0
	}
	if t > 1 {
		return 1
	}
	return t
}

func minMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

// quartiles returns the three quartile cuts of a sample using midpoint
// medians, enough for whisker geometry.
func quartiles(values []float64) (q1, q2, q3 float64) {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n == 0 {
		return 0, 0, 0
	}
	q2 = medianSorted(sorted)
	if n < 2 {
		return sorted[0], q2, sorted[0]
	}
	half := n / 2
	q1 = medianSorted(sorted[:half])
	if n%2 == 0 {
		q3 = medianSorted(sorted[half:])
	} else {
		q3 = medianSorted(sorted[half+1:])
	}
	return q1, q2, q3
}

func medianSorted(sorted []float64) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"

	"github.com/wcharczuk/go-chart/v2/drawing"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DiagramNode is a labelled circle at a layout position.
type DiagramNode struct {
	Label string
	X, Y  float64
}

// DiagramEdge is a directed path between two node labels.
type DiagramEdge struct {
	From, To string
}

// DiagramSpec describes a conceptual path diagram: named nodes on an
// abstract grid and directed edges between them.
type DiagramSpec struct {
	Name  string
	Nodes []DiagramNode
	Edges []DiagramEdge
}

// DefaultDiagram is the study's hypothesized path model: the two
// interventions feed the psychological states, everything feeds performance.
func DefaultDiagram() DiagramSpec {
	return DiagramSpec{
		Name: "Basic Model",
		Nodes: []DiagramNode{
			{Label: "LLM Usage", X: 1, Y: 3},
			{Label: "Herbal Blend", X: 1, Y: 1},
			{Label: "Self-Efficacy", X: 3, Y: 4},
			{Label: "Anxiety", X: 3, Y: 2},
			{Label: "Performance", X: 5, Y: 3},
		},
		Edges: []DiagramEdge{
			{From: "LLM Usage", To: "Self-Efficacy"},
			{From: "LLM Usage", To: "Anxiety"},
			{From: "LLM Usage", To: "Performance"},
			{From: "Herbal Blend", To: "Anxiety"},
			{From: "Self-Efficacy", To: "Performance"},
			{From: "Anxiety", To: "Performance"},
		},
	}
}

// Node circles use this radius in layout units.
const diagramNodeRadius = 0.3

// PathDiagram renders a diagram as a PNG: cyan circle outlines, green labels
// and arrows, title on top. Edges draw underneath the nodes, center to
// center, with a filled arrowhead at the target.
func (r *Renderer) PathDiagram(spec DiagramSpec) ([]byte, error) {
	if len(spec.Nodes) == 0 {
		return nil, fmt.Errorf("diagram %q: no nodes", spec.Name)
	}
	pos := make(map[string]DiagramNode, len(spec.Nodes))
	for _, n := range spec.Nodes {
		pos[n.Label] = n
	}
	for _, e := range spec.Edges {
		if _, ok := pos[e.From]; !ok {
			return nil, fmt.Errorf("diagram %q: edge from unknown node %q", spec.Name, e.From)
		}
		if _, ok := pos[e.To]; !ok {
			return nil, fmt.Errorf("diagram %q: edge to unknown node %q", spec.Name, e.To)
		}
	}

	img := image.NewRGBA(image.Rect(0, 0, r.width, r.height))
	draw.Draw(img, img.Bounds(), image.NewUniform(rgba(r.theme.Background)), image.Point{}, draw.Src)

	proj := newProjection(spec.Nodes, r.width, r.height)
	text := rgba(r.theme.Text)
	axis := rgba(r.theme.Axis)

	for _, e := range spec.Edges {
		from, to := pos[e.From], pos[e.To]
		x1, y1 := proj.point(from.X, from.Y)
		x2, y2 := proj.point(to.X, to.Y)
		drawArrow(img, x1, y1, x2, y2, proj.length(0.2), proj.length(0.075), text)
	}
	radius := proj.length(diagramNodeRadius)
	for _, n := range spec.Nodes {
		x, y := proj.point(n.X, n.Y)
		drawCircle(img, x, y, radius, axis)
		drawCenteredText(img, n.Label, x, y, text)
	}
	drawCenteredText(img, fmt.Sprintf("SEM Model: %s", spec.Name), r.width/2, 24, axis)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode diagram %q: %w", spec.Name, err)
	}
	return buf.Bytes(), nil
}

// projection maps layout coordinates onto the image with a uniform scale,
// flipped y, and room reserved for the title.
type projection struct {
	scale      float64
	minX, maxY float64
	offX, offY int
}

func newProjection(nodes []DiagramNode, width, height int) projection {
	pad := diagramNodeRadius + 0.35
	minX, minY := nodes[0].X, nodes[0].Y
	maxX, maxY := minX, minY
	for _, n := range nodes[1:] {
		minX = math.Min(minX, n.X)
		maxX = math.Max(maxX, n.X)
		minY = math.Min(minY, n.Y)
		maxY = math.Max(maxY, n.Y)
	}
	minX, maxX = minX-pad, maxX+pad
	minY, maxY = minY-pad, maxY+pad

	const side = 30
	const top = 50
	const bottom = 30
	sx := float64(width-2*side) / (maxX - minX)
	sy := float64(height-top-bottom) / (maxY - minY)
	s := math.Min(sx, sy)
	offX := side + int((float64(width-2*side)-s*(maxX-minX))/2)
	offY := top + int((float64(height-top-bottom)-s*(maxY-minY))/2)
	return projection{scale: s, minX: minX, maxY: maxY, offX: offX, offY: offY}
}

// Layout y grows upward, image y grows downward.
func (p projection) point(x, y float64) (int, int) {
	px := p.offX + int(p.scale*(x-p.minX)+0.5)
	py := p.offY + int(p.scale*(p.maxY-y)+0.5)
	return px, py
}

func (p projection) length(v float64) int {
	l := int(p.scale*v + 0.5)
	if l < 1 {
		l = 1
	}
	return l
}

func rgba(c drawing.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// drawLine plots a 2px Bresenham line.
func drawLine(img *image.RGBA, x1, y1, x2, y2 int, c color.RGBA) {
	dx := abs(x2 - x1)
	dy := -abs(y2 - y1)
	sx, sy := 1, 1
	if x1 > x2 {
		sx = -1
	}
	if y1 > y2 {
		sy = -1
	}
	err := dx + dy
	x, y := x1, y1
	for {
		setThick(img, x, y, c)
		if x == x2 && y == y2 {
			break
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x += sx
		}
		if e2 <= dx {
			err += dx
			y += sy
		}
	}
}

func setThick(img *image.RGBA, x, y int, c color.RGBA) {
	img.SetRGBA(x, y, c)
	img.SetRGBA(x+1, y, c)
	img.SetRGBA(x, y+1, c)
	img.SetRGBA(x+1, y+1, c)
}

// drawCircle plots a 2px midpoint circle outline.
func drawCircle(img *image.RGBA, cx, cy, radius int, c color.RGBA) {
	for _, r := range []int{radius, radius - 1} {
		if r < 1 {
			continue
		}
		x, y := r, 0
		err := 1 - r
		for x >= y {
			for _, p := range [][2]int{
				{cx + x, cy + y}, {cx + y, cy + x},
				{cx - y, cy + x}, {cx - x, cy + y},
				{cx - x, cy - y}, {cx - y, cy - x},
				{cx + y, cy - x}, {cx + x, cy - y},
			} {
				img.SetRGBA(p[0], p[1], c)
			}
			y++
			if err < 0 {
				err += 2*y + 1
			} else {
				x--
				err += 2*(y-x) + 1
			}
		}
	}
}

// drawArrow draws a shaft from (x1,y1) to (x2,y2) with a filled triangular
// head at the target end; the head length is included in the overall span.
func drawArrow(img *image.RGBA, x1, y1, x2, y2, headLen, headHalfWidth int, c color.RGBA) {
	fx1, fy1 := float64(x1), float64(y1)
	fx2, fy2 := float64(x2), float64(y2)
	dist := math.Hypot(fx2-fx1, fy2-fy1)
	if dist == 0 {
		return
	}
	ux, uy := (fx2-fx1)/dist, (fy2-fy1)/dist
	// Base of the head sits headLen back from the tip.
	bx, by := fx2-ux*float64(headLen), fy2-uy*float64(headLen)
	px, py := -uy, ux
	ax, ay := bx+px*float64(headHalfWidth), by+py*float64(headHalfWidth)
	cx, cy := bx-px*float64(headHalfWidth), by-py*float64(headHalfWidth)

	drawLine(img, x1, y1, int(bx+0.5), int(by+0.5), c)
	fillTriangle(img,
		image.Point{X: x2, Y: y2},
		image.Point{X: int(ax + 0.5), Y: int(ay + 0.5)},
		image.Point{X: int(cx + 0.5), Y: int(cy + 0.5)},
		c)
}

func fillTriangle(img *image.RGBA, a, b, d image.Point, c color.RGBA) {
	minX := min3(a.X, b.X, d.X)
	maxX := max3(a.X, b.X, d.X)
	minY := min3(a.Y, b.Y, d.Y)
	maxY := max3(a.Y, b.Y, d.Y)
	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			if inTriangle(x, y, a, b, d) {
				img.SetRGBA(x, y, c)
			}
		}
	}
}

func inTriangle(x, y int, a, b, c image.Point) bool {
	s1 := cross(a, b, x, y)
	s2 := cross(b, c, x, y)
	s3 := cross(c, a, x, y)
	hasNeg := s1 < 0 || s2 < 0 || s3 < 0
	hasPos := s1 > 0 || s2 > 0 || s3 > 0
	return !(hasNeg && hasPos)
}

func cross(p, q image.Point, x, y int) int {
	return (q.X-p.X)*(y-p.Y) - (q.Y-p.Y)*(x-p.X)
}

// drawCenteredText places a label centered on (x, y) with the fixed 7x13
// bitmap face.
func drawCenteredText(img *image.RGBA, s string, x, y int, c color.RGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
	}
	w := d.MeasureString(s).Ceil()
	d.Dot = fixed.P(x-w/2, y+4)
	d.DrawString(s)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func min3(a, b, c int) int {
	if b < a {
		a = b
	}
	if c < a {
		a = c
	}
	return a
}

func max3(a, b, c int) int {
	if b > a {
		a = b
	}
	if c > a {
		a = c
	}
	return a
}

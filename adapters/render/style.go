package render

import (
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// Theme is the chart color scheme. The default look is the minimalist neon
// style: black canvas, green text, cyan axes and outlines, magenta accents,
// no filled areas.
type Theme struct {
	Name       string
	Background drawing.Color
	Text       drawing.Color
	Axis       drawing.Color
	Grid       drawing.Color
	Accent     drawing.Color
	Palette    []drawing.Color
}

// NeonTheme is the study's house style
func NeonTheme() Theme {
	return Theme{
		Name:       "neon",
		Background: drawing.ColorFromHex("000000"),
		Text:       drawing.ColorFromHex("00FF00"),
		Axis:       drawing.ColorFromHex("00FFFF"),
		Grid:       drawing.ColorFromHex("444444"),
		Accent:     drawing.ColorFromHex("FF00FF"),
		Palette: []drawing.Color{
			drawing.ColorFromHex("00FF00"),
			drawing.ColorFromHex("00FFFF"),
			drawing.ColorFromHex("FF00FF"),
			drawing.ColorFromHex("FFFF00"),
		},
	}
}

// PaperTheme is a light alternative for print-oriented reports
func PaperTheme() Theme {
	return Theme{
		Name:       "paper",
		Background: drawing.ColorFromHex("FFFFFF"),
		Text:       drawing.ColorFromHex("222222"),
		Axis:       drawing.ColorFromHex("333333"),
		Grid:       drawing.ColorFromHex("DDDDDD"),
		Accent:     drawing.ColorFromHex("CC0066"),
		Palette: []drawing.Color{
			drawing.ColorFromHex("00767B"),
			drawing.ColorFromHex("CC0066"),
			drawing.ColorFromHex("E69500"),
			drawing.ColorFromHex("554488"),
		},
	}
}

// ThemeByName resolves a configured theme name, falling back to neon
func ThemeByName(name string) Theme {
	switch name {
	case "paper":
		return PaperTheme()
	default:
		return NeonTheme()
	}
}

// ThemeNames lists the selectable theme names, house style first
func ThemeNames() []string {
	return []string{"neon", "paper"}
}

// base builds a chart frame carrying the theme: background, title, axis
// and grid styling. Callers attach series and axis names.
func (t Theme) base(title string, width, height int) chart.Chart {
	return chart.Chart{
		Title:  title,
		Width:  width,
		Height: height,
		TitleStyle: chart.Style{
			FontColor: t.Axis,
			FontSize:  14.0,
		},
		Background: chart.Style{
			FillColor: t.Background,
		},
		Canvas: chart.Style{
			FillColor: t.Background,
		},
		XAxis: chart.XAxis{
			Style: chart.Style{
				FontColor:   t.Axis,
				StrokeColor: t.Axis,
			},
			NameStyle: chart.Style{
				FontColor: t.Axis,
			},
			GridMajorStyle: chart.Style{
				StrokeColor: t.Grid,
				StrokeWidth: 1.0,
			},
		},
		YAxis: chart.YAxis{
			Style: chart.Style{
				FontColor:   t.Axis,
				StrokeColor: t.Axis,
			},
			NameStyle: chart.Style{
				FontColor: t.Axis,
			},
			GridMajorStyle: chart.Style{
				StrokeColor: t.Grid,
				StrokeWidth: 1.0,
			},
		},
	}
}

// seriesStyle is the default outline style for data series
func (t Theme) seriesStyle() chart.Style {
	return chart.Style{
		StrokeColor: t.Axis,
		StrokeWidth: 2.0,
	}
}

// dotStyle renders point markers without connecting lines
func (t Theme) dotStyle(color drawing.Color) chart.Style {
	return chart.Style{
		StrokeWidth: chart.Disabled,
		DotWidth:    4.0,
		DotColor:    color,
	}
}

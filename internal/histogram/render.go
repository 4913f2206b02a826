package histogram

import (
	"fmt"
	"io"
	"math"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
	"gonum.org/v1/gonum/floats"
)

var palette = []drawing.Color{
	chart.ColorBlue,
	chart.ColorGreen,
	chart.ColorRed,
	chart.ColorOrange,
	chart.ColorCyan,
	chart.ColorAlternateGray,
}

// RenderOptions sizes the rendered image.
type RenderOptions struct {
	Title  string
	Width  int
	Height int
}

// Render draws the summaries as step curves into a PNG written to w.
func Render(w io.Writer, summaries []Summary, opts RenderOptions) error {
	if opts.Width <= 0 {
		opts.Width = 900
	}
	if opts.Height <= 0 {
		opts.Height = 500
	}

	var series []chart.Series
	ymax := 0.0
	for i, s := range summaries {
		ymax = math.Max(ymax, peak(s))
		xs, ys := steps(s)
		col := palette[i%len(palette)]
		series = append(series, chart.ContinuousSeries{
			Name:    s.Label,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: 1.5,
				FillColor:   col.WithAlpha(48),
			},
		})
		if !math.IsNaN(s.Mode) {
			series = append(series, chart.ContinuousSeries{
				Name:    fmt.Sprintf("mode=%.4g", s.Mode),
				XValues: []float64{s.Mode, s.Mode},
				YValues: []float64{0, peak(s)},
				Style: chart.Style{
					StrokeColor:     col,
					StrokeWidth:     1,
					StrokeDashArray: []float64{4, 3},
				},
			})
		}
	}
	if len(series) == 0 {
		series = append(series, chart.ContinuousSeries{XValues: []float64{0, 1}, YValues: []float64{0, 0}})
	}
	// go-chart rejects a zero-height range.
	if ymax == 0 {
		ymax = 1
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 24, Left: 16, Right: 12, Bottom: 16}},
		XAxis:      chart.XAxis{Name: "value"},
		YAxis:      chart.YAxis{Name: "density", Range: &chart.ContinuousRange{Min: 0, Max: ymax * 1.05}},
		Series:     series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("rendering histogram: %w", err)
	}
	return nil
}

// steps turns bins into the outline of a bar histogram.
func steps(s Summary) (xs, ys []float64) {
	xs = make([]float64, 0, 2*len(s.Counts)+2)
	ys = make([]float64, 0, 2*len(s.Counts)+2)
	xs = append(xs, s.Edges[0])
	ys = append(ys, 0)
	for i, c := range s.Counts {
		xs = append(xs, s.Edges[i], s.Edges[i+1])
		ys = append(ys, c, c)
	}
	xs = append(xs, s.Edges[len(s.Edges)-1])
	ys = append(ys, 0)
	return xs, ys
}

func peak(s Summary) float64 {
	if len(s.Counts) == 0 {
		return 0
	}
	return s.Counts[floats.MaxIdx(s.Counts)]
}

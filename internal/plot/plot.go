// Package plot renders epidemic curves to PNG.
package plot

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"sirsim/internal/model"
)

type Options struct {
	Title  string
	Width  int
	Height int
	// YMax fixes the top of the y axis; zero means the largest plotted value.
	YMax float64
}

func (o Options) withDefaults() Options {
	if o.Width <= 0 {
		o.Width = 960
	}
	if o.Height <= 0 {
		o.Height = 540
	}
	return o
}

var compartmentColors = map[model.Compartment]drawing.Color{
	model.Susceptible: chart.ColorBlue,
	model.Infected:    chart.ColorRed,
	model.Recovered:   chart.ColorGreen,
}

// Curves draws the mean S, I and R series against the time step.
func Curves(w io.Writer, mean []model.Point, opts Options) error {
	if len(mean) < 2 {
		return fmt.Errorf("need at least 2 points to plot, got %d", len(mean))
	}
	x := timeAxis(len(mean))
	series := make([]chart.Series, 0, 3)
	for _, c := range []model.Compartment{model.Susceptible, model.Infected, model.Recovered} {
		series = append(series, chart.ContinuousSeries{
			Name:    c.String(),
			XValues: x,
			YValues: column(mean, c),
			Style:   chart.Style{StrokeColor: compartmentColors[c], StrokeWidth: 2.0},
		})
	}
	return render(w, series, len(mean)-1, maxTotal(mean), opts)
}

// Overlay draws one compartment of several series on shared axes, e.g. the
// infected curve of each village or of each sweep point.
func Overlay(w io.Writer, labels []string, series [][]model.Point, c model.Compartment, opts Options) error {
	if len(series) == 0 {
		return fmt.Errorf("nothing to plot")
	}
	if len(labels) != len(series) {
		return fmt.Errorf("%d labels for %d series", len(labels), len(series))
	}
	steps := 0
	yMax := 0.0
	out := make([]chart.Series, 0, len(series))
	for i, s := range series {
		if len(s) < 2 {
			return fmt.Errorf("series %q needs at least 2 points, got %d", labels[i], len(s))
		}
		if len(s)-1 > steps {
			steps = len(s) - 1
		}
		if total := maxTotal(s); total > yMax {
			yMax = total
		}
		out = append(out, chart.ContinuousSeries{
			Name:    labels[i],
			XValues: timeAxis(len(s)),
			YValues: column(s, c),
			Style:   chart.Style{StrokeColor: chart.GetDefaultColor(i), StrokeWidth: 2.0},
		})
	}
	return render(w, out, steps, yMax, opts)
}

// WriteFile renders into path, creating parent directories.
func WriteFile(path string, draw func(io.Writer) error) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := draw(file); err != nil {
		_ = file.Close()
		_ = os.Remove(path)
		return err
	}
	return file.Close()
}

func render(w io.Writer, series []chart.Series, steps int, yMax float64, opts Options) error {
	opts = opts.withDefaults()
	if opts.YMax > 0 {
		yMax = opts.YMax
	}
	if yMax <= 0 {
		yMax = 1
	}
	graph := chart.Chart{
		Title:  opts.Title,
		Width:  opts.Width,
		Height: opts.Height,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 20, Right: 20, Bottom: 20},
		},
		XAxis: chart.XAxis{
			Name:  "t",
			Range: &chart.ContinuousRange{Min: 0, Max: float64(steps)},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  "agents",
			Range: &chart.ContinuousRange{Min: 0, Max: yMax},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}
	return graph.Render(chart.PNG, w)
}

func timeAxis(n int) []float64 {
	x := make([]float64, n)
	for t := range x {
		x[t] = float64(t)
	}
	return x
}

func column(series []model.Point, c model.Compartment) []float64 {
	out := make([]float64, len(series))
	for i, p := range series {
		switch c {
		case model.Susceptible:
			out[i] = p.S
		case model.Infected:
			out[i] = p.I
		default:
			out[i] = p.R
		}
	}
	return out
}

func maxTotal(series []model.Point) float64 {
	m := 0.0
	for _, p := range series {
		if total := p.Total(); total > m {
			m = total
		}
	}
	return m
}

package export

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/wcharczuk/go-chart/v2"
)

var ErrTooFewSamples = errors.New("export: chart needs at least two samples")

type ChartOptions struct {
	Title  string
	Width  int
	Height int
	// Format is "png" (default) or "svg".
	Format string
}

func (o ChartOptions) renderer() (chart.RendererProvider, error) {
	switch strings.ToLower(o.Format) {
	case "", "png":
		return chart.PNG, nil
	case "svg":
		return chart.SVG, nil
	}
	return nil, fmt.Errorf("export: unknown chart format %q", o.Format)
}

func (o ChartOptions) size() (int, int) {
	w, h := o.Width, o.Height
	if w <= 0 {
		w = 1280
	}
	if h <= 0 {
		h = 720
	}
	return w, h
}

// Trajectory renders every species mass against time as a line chart.
func Trajectory(w io.Writer, result *dynamo.Result, opts ChartOptions) error {
	if len(result.States) < 2 {
		return ErrTooFewSamples
	}
	provider, err := opts.renderer()
	if err != nil {
		return err
	}

	series := make([]chart.Series, 0, len(result.States[0]))
	for i := range result.States[0] {
		series = append(series, chart.ContinuousSeries{
			Name:    label(result, i),
			XValues: result.Times,
			YValues: result.Column(i),
		})
	}

	width, height := opts.size()
	graph := chart.Chart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		Background: chart.Style{
			Padding: chart.Box{
				Top:  50,
				Left: 20,
			},
		},
		XAxis:  chart.XAxis{Name: "Time (s)"},
		YAxis:  chart.YAxis{Name: "Plastic Mass (kg)"},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(provider, w)
}

// FinalMasses renders the last reported mass of every species as bars.
func FinalMasses(w io.Writer, result *dynamo.Result, opts ChartOptions) error {
	final := result.Final()
	if final == nil {
		return ErrTooFewSamples
	}
	provider, err := opts.renderer()
	if err != nil {
		return err
	}

	values := make([]chart.Value, 0, len(final))
	for i, v := range final {
		values = append(values, chart.Value{Label: label(result, i), Value: v})
	}

	width, height := opts.size()
	graph := chart.BarChart{
		Title: opts.Title,
		Background: chart.Style{
			Padding: chart.Box{
				Top: 50,
			},
		},
		Width:    width,
		Height:   height,
		BarWidth: 60,
		Bars:     values,
	}
	return graph.Render(provider, w)
}

func label(result *dynamo.Result, i int) string {
	if i < len(result.Labels) {
		return result.Labels[i]
	}
	return fmt.Sprintf("x%d", i)
}

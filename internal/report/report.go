// Package report summarises a finished pyrolysis run with physical units.
package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/ctessum/unit"

	"github.com/san-kum/pyrosim/internal/analysis"
	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/kinetics"
)

var (
	kgPerSecond = unit.Dimensions{unit.MassDim: 1, unit.TimeDim: -1}
	seconds     = unit.Dimensions{unit.TimeDim: 1}
)

var (
	panel = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#444466")).
		Padding(1, 2)

	title = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#00ffff"))

	label = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#888899"))

	value = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#00ccff")).
		Bold(true)

	warn = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#ffaa00"))
)

// Row is the summary of one tracked species.
type Row struct {
	Species     string
	Initial     *unit.Unit
	Final       *unit.Unit
	InitialRate *unit.Unit
	Yield       *unit.Unit
	Selectivity *unit.Unit
}

// Summary describes a run's outcome species by species.
type Summary struct {
	Name        string
	Temperature float64
	Policy      string
	Duration    *unit.Unit
	HalfLife    *unit.Unit
	Rows        []Row
	Metrics     map[string]float64
}

// New builds a summary of result. When model is nil the initial rates are
// estimated from the first two samples instead of the rate law.
func New(name string, model *kinetics.Model, result *dynamo.Result) (*Summary, error) {
	if result == nil || len(result.States) == 0 {
		return nil, fmt.Errorf("report: empty result")
	}
	first := result.States[0]
	final := result.Final()

	rates := initialRates(model, result)
	yields := analysis.Yields(result)
	selectivities := analysis.Selectivities(result)

	s := &Summary{
		Name:     name,
		Duration: unit.New(result.Times[len(result.Times)-1]-result.Times[0], seconds),
		Metrics:  result.Metrics,
	}
	if model != nil {
		s.Temperature = model.Conditions().Temperature
		s.Policy = model.Policy().String()
	}
	if hl, ok := analysis.HalfLife(result, 0); ok {
		s.HalfLife = unit.New(hl-result.Times[0], seconds)
	}

	for i := range first {
		r := Row{
			Species: columnLabel(result.Labels, i),
			Initial: unit.New(first[i], unit.Kilogram),
			Final:   unit.New(final[i], unit.Kilogram),
			Yield:   unit.New(yields[i], unit.Dimless),
		}
		if rates != nil {
			r.InitialRate = unit.New(rates[i], kgPerSecond)
		}
		if i > 0 {
			r.Selectivity = unit.New(selectivities[i], unit.Dimless)
		}
		s.Rows = append(s.Rows, r)
	}
	return s, nil
}

func initialRates(model *kinetics.Model, result *dynamo.Result) []float64 {
	if model != nil && model.StateDim() == len(result.States[0]) {
		return model.Derivative(result.States[0])
	}
	if len(result.States) < 2 {
		return nil
	}
	dt := result.Times[1] - result.Times[0]
	return result.States[1].Sub(result.States[0]).Scale(1 / dt)
}

func columnLabel(labels []string, i int) string {
	if i < len(labels) {
		return labels[i]
	}
	return fmt.Sprintf("x%d", i)
}

// Table lays the per-species rows out with units in the header.
func (s *Summary) Table() Table {
	header := []string{"Species"}
	columns := []struct {
		name string
		get  func(Row) *unit.Unit
	}{
		{"Initial", func(r Row) *unit.Unit { return r.Initial }},
		{"Final", func(r Row) *unit.Unit { return r.Final }},
		{"Initial rate", func(r Row) *unit.Unit { return r.InitialRate }},
		{"Yield", func(r Row) *unit.Unit { return r.Yield }},
		{"Selectivity", func(r Row) *unit.Unit { return r.Selectivity }},
	}
	for _, c := range columns {
		h := c.name
		for _, r := range s.Rows {
			if u := c.get(r); u != nil {
				if d := u.Dimensions(); len(d) > 0 {
					h += fmt.Sprintf(" (%s)", d.String())
				}
				break
			}
		}
		header = append(header, h)
	}

	t := Table{header}
	for _, r := range s.Rows {
		line := []string{r.Species}
		for _, c := range columns {
			u := c.get(r)
			if u == nil {
				line = append(line, "-")
				continue
			}
			line = append(line, fmt.Sprintf("%.6g", u.Value()))
		}
		t = append(t, line)
	}
	return t
}

// Render formats the summary for a terminal.
func (s *Summary) Render() string {
	var b strings.Builder
	b.WriteString(title.Render(s.Name))
	b.WriteString("\n\n")

	field := func(name, v string) {
		b.WriteString(label.Render(fmt.Sprintf("%-14s", name)))
		b.WriteString(value.Render(v))
		b.WriteString("\n")
	}
	if s.Temperature > 0 {
		field("temperature", fmt.Sprintf("%.2f K", s.Temperature))
	}
	if s.Policy != "" {
		field("policy", s.Policy)
	}
	field("duration", fmt.Sprintf("%.6g s", s.Duration.Value()))
	if s.HalfLife != nil {
		field("half-life", fmt.Sprintf("%.6g s", s.HalfLife.Value()))
	} else {
		b.WriteString(label.Render(fmt.Sprintf("%-14s", "half-life")))
		b.WriteString(warn.Render("not reached"))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	var tbl strings.Builder
	if _, err := s.Table().Tabbed(&tbl); err == nil {
		b.WriteString(tbl.String())
	}

	if len(s.Metrics) > 0 {
		b.WriteString("\n")
		for _, name := range sortedKeys(s.Metrics) {
			field(name, fmt.Sprintf("%.6g", s.Metrics[name]))
		}
	}
	return panel.Render(strings.TrimRight(b.String(), "\n"))
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// A Table holds a text representation of report data.
type Table [][]string

// Tabbed writes the table with aligned columns.
func (t Table) Tabbed(w io.Writer) (n int, err error) {
	tw := tabwriter.NewWriter(w, 0, 2, 2, ' ', 0)
	var nn int
	for _, line := range t {
		nn, err = fmt.Fprintln(tw, strings.Join(line, "\t"))
		n += nn
		if err != nil {
			return n, err
		}
	}
	return n, tw.Flush()
}

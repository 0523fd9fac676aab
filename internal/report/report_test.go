package report

import (
	"math"
	"strings"
	"testing"

	"github.com/san-kum/pyrosim/internal/dynamo"
	"github.com/san-kum/pyrosim/internal/kinetics"
)

func testModel(t *testing.T) *kinetics.Model {
	t.Helper()
	cond, err := kinetics.NewOperatingConditions(kinetics.PyrocycleTemperature)
	if err != nil {
		t.Fatal(err)
	}
	m, err := kinetics.NewModel(cond, kinetics.DefaultReactions(), kinetics.SpoutedBedDecay, kinetics.MassConservative)
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func testResult() *dynamo.Result {
	return &dynamo.Result{
		Times:   []float64{0, 10, 20},
		Labels:  []string{"polystyrene", "styrene", "benzene", "toluene"},
		States:  []dynamo.State{{10, 0, 0, 0}, {4, 4, 1, 1}, {2, 6, 1, 1}},
		Metrics: map[string]float64{"mass_closure": 0},
	}
}

func TestNew_UsesRateLaw(t *testing.T) {
	model := testModel(t)
	s, err := New("run", model, testResult())
	if err != nil {
		t.Fatal(err)
	}
	if len(s.Rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(s.Rows))
	}

	want := model.Derivative(dynamo.State{10, 0, 0, 0})
	for i, r := range s.Rows {
		if math.Abs(r.InitialRate.Value()-want[i]) > 1e-12 {
			t.Errorf("%s: initial rate %g, want %g", r.Species, r.InitialRate.Value(), want[i])
		}
	}
	if s.Temperature != kinetics.PyrocycleTemperature {
		t.Errorf("unexpected temperature %g", s.Temperature)
	}
	if s.Policy != kinetics.MassConservative.String() {
		t.Errorf("unexpected policy %q", s.Policy)
	}
}

func TestNew_YieldsAndSelectivity(t *testing.T) {
	s, err := New("run", nil, testResult())
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Rows[1].Yield.Value(); math.Abs(got-0.6) > 1e-12 {
		t.Errorf("styrene yield %g, want 0.6", got)
	}
	if got := s.Rows[1].Selectivity.Value(); math.Abs(got-0.75) > 1e-12 {
		t.Errorf("styrene selectivity %g, want 0.75", got)
	}
	if s.Rows[0].Selectivity != nil {
		t.Error("reactant should have no selectivity")
	}
	if got := s.Rows[0].Final.Value(); got != 2 {
		t.Errorf("final reactant mass %g, want 2", got)
	}
}

func TestNew_EstimatesRatesWithoutModel(t *testing.T) {
	s, err := New("run", nil, testResult())
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Rows[0].InitialRate.Value(); math.Abs(got+0.6) > 1e-12 {
		t.Errorf("estimated reactant rate %g, want -0.6", got)
	}
}

func TestNew_HalfLife(t *testing.T) {
	s, err := New("run", nil, testResult())
	if err != nil {
		t.Fatal(err)
	}
	if s.HalfLife == nil {
		t.Fatal("expected a half-life")
	}
	// 10 -> 4 over the first interval crosses 5 at t = 10*5/6.
	if got := s.HalfLife.Value(); math.Abs(got-50.0/6) > 1e-9 {
		t.Errorf("half-life %g, want %g", got, 50.0/6)
	}
	if got := s.Duration.Value(); got != 20 {
		t.Errorf("duration %g, want 20", got)
	}
}

func TestNew_EmptyResult(t *testing.T) {
	if _, err := New("run", nil, &dynamo.Result{}); err == nil {
		t.Error("expected an error for an empty result")
	}
}

func TestTable(t *testing.T) {
	s, err := New("run", testModel(t), testResult())
	if err != nil {
		t.Fatal(err)
	}
	tbl := s.Table()
	if len(tbl) != 5 {
		t.Fatalf("expected header plus 4 rows, got %d", len(tbl))
	}
	if !strings.HasPrefix(tbl[0][1], "Initial (") {
		t.Errorf("expected mass units in header, got %q", tbl[0][1])
	}
	if tbl[0][4] != "Yield" {
		t.Errorf("dimensionless column should have no units, got %q", tbl[0][4])
	}
	if tbl[1][5] != "-" {
		t.Errorf("reactant selectivity should be blank, got %q", tbl[1][5])
	}

	var b strings.Builder
	if _, err := tbl.Tabbed(&b); err != nil {
		t.Fatal(err)
	}
	if strings.Count(b.String(), "\n") != 5 {
		t.Errorf("expected 5 lines, got:\n%s", b.String())
	}
}

func TestRender(t *testing.T) {
	s, err := New("pyrocycle", testModel(t), testResult())
	if err != nil {
		t.Fatal(err)
	}
	out := s.Render()
	for _, want := range []string{"pyrocycle", "styrene", "mass_closure", "half-life"} {
		if !strings.Contains(out, want) {
			t.Errorf("render missing %q", want)
		}
	}
}

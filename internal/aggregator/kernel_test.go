package aggregator

import (
	"math/big"
	"testing"

	"github.com/ishaileshpant/fl-go/internal/model"
)

func rats(vals ...float64) []*big.Rat {
	out := make([]*big.Rat, len(vals))
	for i, v := range vals {
		r := new(big.Rat)
		r.SetFloat64(v)
		out[i] = r
	}
	return out
}

func modelOf(vals ...float64) model.Model {
	return model.Model{Weights: rats(vals...)}
}

func float64Of(t *testing.T, r *big.Rat) float64 {
	t.Helper()
	f, _ := r.Float64()
	return f
}

// Scenario A: single-round FedAvg, two participants, equal stakes.
func TestFedAvgScenarioA(t *testing.T) {
	locals := []model.Model{modelOf(2.0, 4.0), modelOf(4.0, 8.0)}
	stakes := []int64{1, 1}

	got, err := FedAvgWeighted(locals, stakes)
	if err != nil {
		t.Fatalf("FedAvgWeighted() error = %v", err)
	}
	want := []float64{3.0, 6.0}
	for i, w := range want {
		if got := float64Of(t, got.Weights[i]); got != w {
			t.Errorf("weight[%d] = %v, want %v", i, got, w)
		}
	}
}

// Scenario B: single-round FedAvg, unequal stakes.
func TestFedAvgScenarioB(t *testing.T) {
	locals := []model.Model{modelOf(0.0), modelOf(12.0)}
	stakes := []int64{1, 3}

	got, err := FedAvgWeighted(locals, stakes)
	if err != nil {
		t.Fatalf("FedAvgWeighted() error = %v", err)
	}
	if got := float64Of(t, got.Weights[0]); got != 9.0 {
		t.Errorf("weight[0] = %v, want 9.0", got)
	}
}

func TestFedAvgNoModels(t *testing.T) {
	if _, err := FedAvgWeighted(nil, nil); err != ErrNoModels {
		t.Fatalf("FedAvgWeighted(nil) error = %v, want ErrNoModels", err)
	}
}

// Scenario C: two-round FedAdam.
func TestFedAdamScenarioC(t *testing.T) {
	p := Params{
		Eta:   big.NewRat(1, 10),
		Beta1: big.NewRat(9, 10),
		Beta2: big.NewRat(99, 100),
		Tau:   ratFromDecimal(1, -9),
	}

	f := Features{
		Locals: []model.Model{modelOf(12.0)},
		Stakes: []int64{1},
		Global: modelOf(2.0),
	}

	global1, mt1, vt1, err := Aggregate(FedAdam, f, p)
	if err != nil {
		t.Fatalf("Aggregate() round 1 error = %v", err)
	}
	if got := float64Of(t, mt1.Weights[0]); got != 1.0 {
		t.Errorf("round 1 m_t = %v, want 1.0", got)
	}
	if got := float64Of(t, vt1.Weights[0]); got != 1.0 {
		t.Errorf("round 1 v_t = %v, want 1.0", got)
	}
	if got := float64Of(t, global1.Weights[0]); approxEqual(got, 12.1, 1e-6) == false {
		t.Errorf("round 1 global = %v, want ~12.1", got)
	}

	f2 := Features{
		Locals: []model.Model{modelOf(12.1)},
		Stakes: []int64{1},
		Global: global1,
		MT:     mt1,
		VT:     vt1,
	}
	global2, mt2, vt2, err := Aggregate(FedAdam, f2, p)
	if err != nil {
		t.Fatalf("Aggregate() round 2 error = %v", err)
	}
	if got := float64Of(t, mt2.Weights[0]); approxEqual(got, 0.9, 1e-6) == false {
		t.Errorf("round 2 m_t = %v, want ~0.9", got)
	}
	if got := float64Of(t, vt2.Weights[0]); approxEqual(got, 0.99, 1e-6) == false {
		t.Errorf("round 2 v_t = %v, want ~0.99", got)
	}
	want2 := 12.190454
	if got := float64Of(t, global2.Weights[0]); approxEqual(got, want2, 1e-4) == false {
		t.Errorf("round 2 global = %v, want ~%v", got, want2)
	}
}

func approxEqual(a, b, tol float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

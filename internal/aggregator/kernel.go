// Package aggregator implements the weighted-average and adaptive-optimizer
// aggregation kernel (spec §4.2) over arbitrary-precision rationals.
package aggregator

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/ishaileshpant/fl-go/internal/model"
)

// Errors returned by the kernel (spec §7).
var (
	ErrNoModels       = errors.New("aggregator: no models to aggregate")
	ErrMaskMismatch   = errors.New("aggregator: masked object configurations mismatch")
	ErrInvalidMask    = errors.New("aggregator: mask is not well-formed")
	ErrTooManyModels  = errors.New("aggregator: too many masked objects for model type")
	ErrLengthMismatch = errors.New("aggregator: model length mismatch")
)

// Strategy selects the aggregation algorithm (spec §6 process.strategy).
type Strategy string

const (
	FedAvg     Strategy = "FedAvg"
	FedAdaGrad Strategy = "FedAdaGrad"
	FedAdam    Strategy = "FedAdam"
	FedYogi    Strategy = "FedYogi"
)

// Params holds the aggregator hyperparameters (spec §3 Aggregator state,
// §4.2 defaults).
type Params struct {
	Eta    *big.Rat
	Beta1  *big.Rat
	Beta2  *big.Rat
	Tau    *big.Rat
	Quorum int // k, per_round_participants
}

// DefaultParams returns spec §4.2's documented defaults: eta=0.1,
// beta1=0.9, beta2=0.99, tau=1e-9.
func DefaultParams() Params {
	return Params{
		Eta:   big.NewRat(1, 10),
		Beta1: big.NewRat(9, 10),
		Beta2: big.NewRat(99, 100),
		Tau:   ratFromDecimal(1, -9),
	}
}

func ratFromDecimal(mantissa int64, exp int) *big.Rat {
	r := new(big.Rat).SetInt64(mantissa)
	ten := big.NewRat(10, 1)
	if exp >= 0 {
		for i := 0; i < exp; i++ {
			r.Mul(r, ten)
		}
	} else {
		for i := 0; i < -exp; i++ {
			r.Quo(r, ten)
		}
	}
	return r
}

// Features is the per-round accumulator plus cached cross-round state (spec
// §3 FeatureSet: locals, stakes, and cached global/m_t/v_t).
type Features struct {
	Locals []model.Model
	Stakes []int64
	Global model.Model
	MT     model.Model
	VT     model.Model
}

// FedAvgWeighted computes the stake-weighted elementwise average (spec
// §4.2). Fails with ErrNoModels when locals is empty (testable property 3).
func FedAvgWeighted(locals []model.Model, stakes []int64) (model.Model, error) {
	if len(locals) == 0 {
		return model.Model{}, ErrNoModels
	}
	n := locals[0].Len()
	for _, l := range locals {
		if l.Len() != n {
			return model.Model{}, ErrLengthMismatch
		}
	}

	total := new(big.Int)
	for _, s := range stakes {
		total.Add(total, big.NewInt(s))
	}
	if total.Sign() == 0 {
		// Degenerate but well-formed input: fall back to equal weighting
		// rather than dividing by zero.
		total = big.NewInt(int64(len(locals)))
		for i := range stakes {
			stakes[i] = 1
		}
	}

	sum := make([]*big.Rat, n)
	for j := 0; j < n; j++ {
		sum[j] = new(big.Rat)
	}
	for i, l := range locals {
		weight := new(big.Rat).SetFrac(big.NewInt(stakes[i]), total)
		for j, w := range l.Weights {
			term := new(big.Rat).Mul(weight, w)
			sum[j].Add(sum[j], term)
		}
	}
	return model.Model{Weights: sum}, nil
}

// Aggregate runs the configured strategy and returns the updated
// (global, m_t, v_t) triple, matching spec §4.2's adaptive-optimizer
// contract: x_t = FedAvg(locals, stakes); delta = x_t - global;
// m_t = beta1*m_prev + (1-beta1)*delta; v_t per variant;
// x_{t+1} = x_t + eta*m_t/(sqrt(v_t)+tau).
func Aggregate(strategy Strategy, f Features, p Params) (global, mt, vt model.Model, err error) {
	xt, err := FedAvgWeighted(f.Locals, f.Stakes)
	if err != nil {
		return model.Model{}, model.Model{}, model.Model{}, err
	}
	if strategy == FedAvg {
		return xt, model.Model{}, model.Model{}, nil
	}

	n := xt.Len()
	prevGlobal := orZeros(f.Global, n)
	prevMT := orZeros(f.MT, n)
	prevVT := orZeros(f.VT, n)

	delta := elementwise(xt, prevGlobal, (*big.Rat).Sub)
	oneMinusBeta1 := new(big.Rat).Sub(big.NewRat(1, 1), p.Beta1)
	newMT := make([]*big.Rat, n)
	for j := range newMT {
		a := new(big.Rat).Mul(p.Beta1, prevMT.Weights[j])
		b := new(big.Rat).Mul(oneMinusBeta1, delta.Weights[j])
		newMT[j] = new(big.Rat).Add(a, b)
	}
	mt = model.Model{Weights: newMT}

	var newVT model.Model
	switch strategy {
	case FedAdaGrad:
		newVT = fedAdaGradV(prevVT, delta)
	case FedAdam:
		newVT = fedAdamV(prevVT, delta, p.Beta2)
	case FedYogi:
		newVT = fedYogiV(prevVT, delta, p.Beta2)
	default:
		return model.Model{}, model.Model{}, model.Model{}, fmt.Errorf("aggregator: unknown strategy %q", strategy)
	}
	vt = newVT

	newGlobal := make([]*big.Rat, n)
	for j := 0; j < n; j++ {
		denom := new(big.Rat).Add(sqrtRat(newVT.Weights[j]), p.Tau)
		adj := new(big.Rat).Quo(newMT[j], denom)
		adj.Mul(adj, p.Eta)
		newGlobal[j] = new(big.Rat).Add(xt.Weights[j], adj)
	}
	global = model.Model{Weights: newGlobal}
	return global, mt, vt, nil
}

func orZeros(m model.Model, n int) model.Model {
	if m.IsEmpty() {
		return model.Zeros(n)
	}
	return m
}

func elementwise(a, b model.Model, op func(z, x, y *big.Rat) *big.Rat) model.Model {
	out := make([]*big.Rat, a.Len())
	for j := range out {
		out[j] = op(new(big.Rat), a.Weights[j], b.Weights[j])
	}
	return model.Model{Weights: out}
}

// fedAdaGradV: v_t = v_{t-1} + delta ⊙ delta.
func fedAdaGradV(prevVT, delta model.Model) model.Model {
	out := make([]*big.Rat, len(prevVT.Weights))
	for j := range out {
		sq := new(big.Rat).Mul(delta.Weights[j], delta.Weights[j])
		out[j] = new(big.Rat).Add(prevVT.Weights[j], sq)
	}
	return model.Model{Weights: out}
}

// fedAdamV: v_t = beta2*v_{t-1} + (1-beta2)*(delta ⊙ delta).
func fedAdamV(prevVT, delta model.Model, beta2 *big.Rat) model.Model {
	oneMinusBeta2 := new(big.Rat).Sub(big.NewRat(1, 1), beta2)
	out := make([]*big.Rat, len(prevVT.Weights))
	for j := range out {
		sq := new(big.Rat).Mul(delta.Weights[j], delta.Weights[j])
		a := new(big.Rat).Mul(beta2, prevVT.Weights[j])
		b := new(big.Rat).Mul(oneMinusBeta2, sq)
		out[j] = new(big.Rat).Add(a, b)
	}
	return model.Model{Weights: out}
}

// fedYogiV: v_t = v_{t-1} - (1-beta2)*(delta⊙delta)*sign(v_{t-1} - delta⊙delta).
func fedYogiV(prevVT, delta model.Model, beta2 *big.Rat) model.Model {
	oneMinusBeta2 := new(big.Rat).Sub(big.NewRat(1, 1), beta2)
	out := make([]*big.Rat, len(prevVT.Weights))
	for j := range out {
		sq := new(big.Rat).Mul(delta.Weights[j], delta.Weights[j])
		diff := new(big.Rat).Sub(prevVT.Weights[j], sq)
		sign := diff.Sign() // -1, 0, 1
		term := new(big.Rat).Mul(oneMinusBeta2, sq)
		term.Mul(term, big.NewRat(int64(sign), 1))
		out[j] = new(big.Rat).Sub(prevVT.Weights[j], term)
	}
	return model.Model{Weights: out}
}

// sqrtRat computes a high-precision rational approximation of sqrt(r) via
// Newton-Raphson. r is always non-negative in this kernel's call sites
// (sums of squares); a negative input returns zero rather than panicking.
func sqrtRat(r *big.Rat) *big.Rat {
	if r.Sign() <= 0 {
		return new(big.Rat)
	}
	f, _ := r.Float64()
	if f <= 0 {
		return new(big.Rat)
	}
	x := new(big.Rat).SetFloat64(math.Sqrt(f))
	// Each step roughly doubles both the correct bits and the size of the
	// exact rational; six steps from the 53-bit float seed give well over a
	// thousand correct bits while keeping the numbers tractable.
	for i := 0; i < 6; i++ {
		// x_{n+1} = (x_n + r/x_n) / 2
		quot := new(big.Rat).Quo(r, x)
		sum := new(big.Rat).Add(x, quot)
		x = sum.Quo(sum, big.NewRat(2, 1))
	}
	return x
}

package model

import "math/big"

// Model is an ordered sequence of weights, each an exact arbitrary-precision
// rational. A zero-length Model is the sentinel for "not yet initialized"
// (spec §3).
type Model struct {
	Weights []*big.Rat
	Shape   TensorShape
}

// NewModel builds a Model from a slice of rationals, taking ownership of it.
func NewModel(weights []*big.Rat) Model {
	return Model{Weights: weights}
}

// Zeros returns a Model of the given length, all elements zero. Used to seed
// the engine's cached global/m_t/v_t aggregates on the first round (spec
// §4.2: "default to zero-vectors of the appropriate length on first round").
func Zeros(n int) Model {
	w := make([]*big.Rat, n)
	for i := range w {
		w[i] = new(big.Rat)
	}
	return Model{Weights: w}
}

// Len returns the number of weights.
func (m Model) Len() int {
	return len(m.Weights)
}

// IsEmpty reports whether this is the "not yet initialized" sentinel.
func (m Model) IsEmpty() bool {
	return len(m.Weights) == 0
}

// Equal reports element-wise equality.
func (m Model) Equal(other Model) bool {
	if len(m.Weights) != len(other.Weights) {
		return false
	}
	for i, w := range m.Weights {
		if w.Cmp(other.Weights[i]) != 0 {
			return false
		}
	}
	return true
}

// Clone deep-copies the model's weights.
func (m Model) Clone() Model {
	w := make([]*big.Rat, len(m.Weights))
	for i, r := range m.Weights {
		w[i] = new(big.Rat).Set(r)
	}
	return Model{Weights: w, Shape: m.Shape}
}

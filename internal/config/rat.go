package config

import "math/big"

// ratFromFloat converts a YAML-decoded float64 hyperparameter into the
// exact rational the aggregator kernel operates on. The conversion from
// float64 to *big.Rat is itself exact (SetFloat64 never rounds); the
// float64 parse of the YAML literal is config's only floating-point step.
func ratFromFloat(f float64) *big.Rat {
	r := new(big.Rat)
	r.SetFloat64(f)
	return r
}

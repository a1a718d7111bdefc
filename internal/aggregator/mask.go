package aggregator

import (
	"encoding/binary"
	"math/big"

	"github.com/ishaileshpant/fl-go/internal/model"
)

// MaskGroupConfig carries the shift parameters used to map a rational into
// the finite group and back (spec §4.2: "shift-and-scale back into the
// rational domain using the configuration's add_shift and exp_shift").
type MaskGroupConfig struct {
	Order    *big.Int // group order
	AddShift *big.Rat // additive shift applied before masking
	ExpShift *big.Rat // multiplicative (exponential) scale applied before masking
}

// UnmaskSum reduces a sum of masked parts modulo the group order, subtracts
// the aggregate mask, and scales back into the rational domain:
//
//	(masked_sum + order - mask) mod order, then (value/exp_shift) - add_shift
//
// Fails with ErrTooManyModels if len(parts) exceeds the parts' own
// Config.ModelType.MaxModels(),
// ErrInvalidMask if mask is malformed, or ErrMaskMismatch if configs differ.
func UnmaskSum(parts []model.MaskedPart, mask model.MaskedPart, cfg MaskGroupConfig) (model.Model, error) {
	if len(parts) == 0 {
		return model.Model{}, ErrNoModels
	}
	first := parts[0].Config
	maxModels := first.ModelType.MaxModels()
	if maxModels > 0 && len(parts) > maxModels {
		return model.Model{}, ErrTooManyModels
	}
	for _, p := range parts {
		if p.Config != first {
			return model.Model{}, ErrMaskMismatch
		}
	}
	if mask.Config != first {
		return model.Model{}, ErrMaskMismatch
	}

	width, err := first.DataType.BytesPerElement()
	if err != nil || width == 0 {
		return model.Model{}, ErrInvalidMask
	}
	n := len(parts[0].Payload) / width
	for _, p := range parts {
		if len(p.Payload)%width != 0 || len(p.Payload)/width != n {
			return model.Model{}, ErrInvalidMask
		}
	}
	if len(mask.Payload)/width != n {
		return model.Model{}, ErrInvalidMask
	}

	out := make([]*big.Rat, n)
	for j := 0; j < n; j++ {
		sum := new(big.Int)
		for _, p := range parts {
			sum.Add(sum, elementAsUint(p.Payload, j, width))
		}
		maskVal := elementAsUint(mask.Payload, j, width)

		// (masked_sum + order - mask) mod order
		reduced := new(big.Int).Add(sum, cfg.Order)
		reduced.Sub(reduced, maskVal)
		reduced.Mod(reduced, cfg.Order)

		val := new(big.Rat).SetInt(reduced)
		if cfg.ExpShift != nil && cfg.ExpShift.Sign() != 0 {
			val.Quo(val, cfg.ExpShift)
		}
		if cfg.AddShift != nil {
			val.Sub(val, cfg.AddShift)
		}
		out[j] = val
	}
	return model.Model{Weights: out}, nil
}

func elementAsUint(payload []byte, idx, width int) *big.Int {
	off := idx * width
	elem := payload[off : off+width]
	v := new(big.Int)
	switch width {
	case 4:
		v.SetUint64(uint64(binary.BigEndian.Uint32(elem)))
	case 8:
		v.SetUint64(binary.BigEndian.Uint64(elem))
	default:
		b := make([]byte, 8)
		copy(b[8-width:], elem)
		v.SetUint64(binary.BigEndian.Uint64(b))
	}
	return v
}

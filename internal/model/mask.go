package model

import (
	"encoding/binary"
	"fmt"
)

// GroupType selects the finite group elements are masked into.
type GroupType uint8

const (
	GroupInteger GroupType = iota
	GroupPrime
	GroupPower2
)

// BoundType selects the value-range bound used to pick the mask modulus.
type BoundType uint8

const (
	BoundB0 BoundType = iota
	BoundB1
	BoundB2
)

// ModelType selects the limit on the number of aggregated masked objects
// (spec §4.2: the unmasker rejects with TooManyModels above this limit).
type ModelType uint8

const (
	ModelM3 ModelType = iota
	ModelM6
	ModelM9
	ModelM12
)

// MaxModels returns the maximum number of masked objects this ModelType may
// aggregate before the unmasker must reject with TooManyModels.
func (m ModelType) MaxModels() int {
	switch m {
	case ModelM3:
		return 1 << 3
	case ModelM6:
		return 1 << 6
	case ModelM9:
		return 1 << 9
	case ModelM12:
		return 1 << 12
	default:
		return 0
	}
}

// MaskConfig is the header carried by every masked part (spec §3:
// "(group_type, data_type, bound_type, model_type)").
type MaskConfig struct {
	GroupType GroupType
	DataType  DataType
	BoundType BoundType
	ModelType ModelType
}

const maskConfigLen = 4

func (c MaskConfig) encode(buf []byte) {
	buf[0] = byte(c.GroupType)
	buf[1] = byte(c.DataType)
	buf[2] = byte(c.BoundType)
	buf[3] = byte(c.ModelType)
}

func decodeMaskConfig(buf []byte) (MaskConfig, error) {
	if len(buf) < maskConfigLen {
		return MaskConfig{}, ErrShortBuffer
	}
	return MaskConfig{
		GroupType: GroupType(buf[0]),
		DataType:  DataType(buf[1]),
		BoundType: BoundType(buf[2]),
		ModelType: ModelType(buf[3]),
	}, nil
}

// MaskedPart is one half of a MaskedObject: a config header plus a
// length-prefixed, width-tagged payload serialized the same way as a plain
// Serialized Model Object (spec §3: "serialized identically").
type MaskedPart struct {
	Config  MaskConfig
	Payload []byte // raw masked integers, width per Config.DataType
}

// MaskedObject is the (vector_part, scalar_part) pair exchanged on the wire
// when masking is enabled (spec §3).
type MaskedObject struct {
	VectorPart MaskedPart
	ScalarPart MaskedPart
}

// EncodeMaskedPart serializes a part as [config:4][count:4 BE][payload].
func EncodeMaskedPart(p MaskedPart) ([]byte, error) {
	width, err := p.Config.DataType.BytesPerElement()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if width == 0 || len(p.Payload)%width != 0 {
		return nil, fmt.Errorf("%w: payload not a multiple of element width", ErrInvalidConfig)
	}
	count := len(p.Payload) / width

	buf := make([]byte, maskConfigLen+4+len(p.Payload))
	p.Config.encode(buf[:maskConfigLen])
	binary.BigEndian.PutUint32(buf[maskConfigLen:maskConfigLen+4], uint32(count))
	copy(buf[maskConfigLen+4:], p.Payload)
	return buf, nil
}

// DecodeMaskedPart parses a part encoded by EncodeMaskedPart.
func DecodeMaskedPart(b []byte) (MaskedPart, error) {
	if len(b) < maskConfigLen+4 {
		return MaskedPart{}, ErrShortBuffer
	}
	cfg, err := decodeMaskConfig(b[:maskConfigLen])
	if err != nil {
		return MaskedPart{}, err
	}
	width, err := cfg.DataType.BytesPerElement()
	if err != nil {
		return MaskedPart{}, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	count := int(binary.BigEndian.Uint32(b[maskConfigLen : maskConfigLen+4]))
	need := maskConfigLen + 4 + count*width
	if len(b) < need {
		return MaskedPart{}, ErrShortBuffer
	}
	payload := make([]byte, count*width)
	copy(payload, b[maskConfigLen+4:need])
	return MaskedPart{Config: cfg, Payload: payload}, nil
}

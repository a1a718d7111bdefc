// Package model implements the serialized model representation and codec
// described by the aggregation server's wire and object-storage format.
package model

import "fmt"

// DataType governs the on-wire / on-disk width of a model's elements.
// Internal arithmetic is always arbitrary precision; DataType only
// affects serialization.
type DataType uint8

const (
	F16 DataType = iota
	F32
	F64
	I8
	I16
	I32
	I64
	U8
	U16
	U32
	U64
	STRING
)

func (d DataType) String() string {
	switch d {
	case F16:
		return "F16"
	case F32:
		return "F32"
	case F64:
		return "F64"
	case I8:
		return "I8"
	case I16:
		return "I16"
	case I32:
		return "I32"
	case I64:
		return "I64"
	case U8:
		return "U8"
	case U16:
		return "U16"
	case U32:
		return "U32"
	case U64:
		return "U64"
	case STRING:
		return "STRING"
	default:
		return fmt.Sprintf("DataType(%d)", uint8(d))
	}
}

// ParseDataType maps a config string (spec §6 model.data_type) to a DataType.
func ParseDataType(s string) (DataType, error) {
	switch s {
	case "F16":
		return F16, nil
	case "F32":
		return F32, nil
	case "F64":
		return F64, nil
	case "I8":
		return I8, nil
	case "I16":
		return I16, nil
	case "I32":
		return I32, nil
	case "I64":
		return I64, nil
	case "U8":
		return U8, nil
	case "U16":
		return U16, nil
	case "U32":
		return U32, nil
	case "U64":
		return U64, nil
	case "STRING":
		return STRING, nil
	default:
		return 0, fmt.Errorf("model: unknown data type %q", s)
	}
}

// BytesPerElement returns the serialized width of one element of dt.
// STRING has no fixed width and is rejected by callers that need one.
func (d DataType) BytesPerElement() (int, error) {
	switch d {
	case F16:
		return 2, nil
	case F32, I32, U32:
		return 4, nil
	case F64, I64, U64:
		return 8, nil
	case I8, U8:
		return 1, nil
	case I16, U16:
		return 2, nil
	default:
		return 0, fmt.Errorf("model: data type %s has no fixed element width", d)
	}
}

// TensorShape is the optional rank/dimension metadata for a model. A
// dimension size of -1 denotes "unknown".
type TensorShape struct {
	Dims []int64 // nil means "no shape carried"
}

// HasShape reports whether a rank was recorded.
func (t TensorShape) HasShape() bool {
	return t.Dims != nil
}

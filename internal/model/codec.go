package model

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"math/big"
)

// Errors returned by the codec (spec §4.1, §7).
var (
	ErrInvalidConfig = errors.New("model: element does not fit target data type")
	ErrShortBuffer   = errors.New("model: buffer shorter than declared element count")
	ErrInvalidHeader = errors.New("model: invalid or unsupported header")
)

const headerLen = 5 // 1 byte data_type + 4 bytes element_count

// BufferLength returns the number of bytes Encode will produce for m at dt.
// MUST match the length Encode actually writes (spec §4.1).
func BufferLength(m Model, dt DataType) (int, error) {
	width, err := dt.BytesPerElement()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return headerLen + m.Len()*width, nil
}

// Encode serializes m as the wire/storage form described in spec §3:
// [data_type:1][element_count:4 BE][elements: count*width BE].
func Encode(m Model, dt DataType) ([]byte, error) {
	width, err := dt.BytesPerElement()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	buf := make([]byte, headerLen+m.Len()*width)
	buf[0] = byte(dt)
	binary.BigEndian.PutUint32(buf[1:5], uint32(m.Len()))

	off := headerLen
	for _, r := range m.Weights {
		elem, err := encodeElement(r, dt, width)
		if err != nil {
			return nil, err
		}
		copy(buf[off:off+width], elem)
		off += width
	}
	return buf, nil
}

func encodeElement(r *big.Rat, dt DataType, width int) ([]byte, error) {
	out := make([]byte, width)
	switch dt {
	case F16:
		f := ratioToFloat(r, 16)
		binary.BigEndian.PutUint16(out, float32ToFloat16(float32(f)))
	case F32:
		f := ratioToFloat(r, 32)
		binary.BigEndian.PutUint32(out, math.Float32bits(float32(f)))
	case F64:
		f := ratioToFloat(r, 64)
		binary.BigEndian.PutUint64(out, math.Float64bits(f))
	case I8:
		v := ratioToInt(r, 64)
		if v < math.MinInt8 || v > math.MaxInt8 {
			return nil, ErrInvalidConfig
		}
		out[0] = byte(int8(v))
	case I16:
		v := ratioToInt(r, 64)
		if v < math.MinInt16 || v > math.MaxInt16 {
			return nil, ErrInvalidConfig
		}
		binary.BigEndian.PutUint16(out, uint16(int16(v)))
	case I32:
		v := ratioToInt(r, 64)
		if v < math.MinInt32 || v > math.MaxInt32 {
			return nil, ErrInvalidConfig
		}
		binary.BigEndian.PutUint32(out, uint32(int32(v)))
	case I64:
		v := ratioToInt(r, 64)
		binary.BigEndian.PutUint64(out, uint64(v))
	case U8:
		v := ratioToUint(r, 64)
		if v > math.MaxUint8 {
			return nil, ErrInvalidConfig
		}
		out[0] = byte(v)
	case U16:
		v := ratioToUint(r, 64)
		if v > math.MaxUint16 {
			return nil, ErrInvalidConfig
		}
		binary.BigEndian.PutUint16(out, uint16(v))
	case U32:
		v := ratioToUint(r, 64)
		if v > math.MaxUint32 {
			return nil, ErrInvalidConfig
		}
		binary.BigEndian.PutUint32(out, uint32(v))
	case U64:
		v := ratioToUint(r, 64)
		binary.BigEndian.PutUint64(out, v)
	default:
		return nil, fmt.Errorf("%w: data type %s has no numeric encoding", ErrInvalidConfig, dt)
	}
	return out, nil
}

func decodeElement(b []byte, dt DataType) *big.Rat {
	switch dt {
	case F16:
		return ratioFromFloat(clampFloat(float64(float16ToFloat32(binary.BigEndian.Uint16(b))), 16))
	case F32:
		return ratioFromFloat(clampFloat(float64(math.Float32frombits(binary.BigEndian.Uint32(b))), 32))
	case F64:
		return ratioFromFloat(clampFloat(math.Float64frombits(binary.BigEndian.Uint64(b)), 64))
	case I8:
		return ratioFromInt(int64(int8(b[0])))
	case I16:
		return ratioFromInt(int64(int16(binary.BigEndian.Uint16(b))))
	case I32:
		return ratioFromInt(int64(int32(binary.BigEndian.Uint32(b))))
	case I64:
		return ratioFromInt(int64(binary.BigEndian.Uint64(b)))
	case U8:
		return ratioFromUint(uint64(b[0]))
	case U16:
		return ratioFromUint(uint64(binary.BigEndian.Uint16(b)))
	case U32:
		return ratioFromUint(uint64(binary.BigEndian.Uint32(b)))
	case U64:
		return ratioFromUint(binary.BigEndian.Uint64(b))
	default:
		return new(big.Rat)
	}
}

// Decode parses the wire/storage form back into a Model. Rejects buffers
// shorter than 5 + element_count*bytes_per_element (spec §3, testable
// property 2).
func Decode(b []byte) (Model, DataType, error) {
	if len(b) < headerLen {
		return Model{}, 0, ErrShortBuffer
	}
	dt := DataType(b[0])
	width, err := dt.BytesPerElement()
	if err != nil {
		return Model{}, 0, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	count := int(binary.BigEndian.Uint32(b[1:5]))
	need := headerLen + count*width
	if len(b) < need {
		return Model{}, 0, ErrShortBuffer
	}

	weights := make([]*big.Rat, count)
	off := headerLen
	for i := 0; i < count; i++ {
		weights[i] = decodeElement(b[off:off+width], dt)
		off += width
	}
	return Model{Weights: weights}, dt, nil
}

// byteReader is the minimal interface DecodeStream needs from an iterator
// of bytes; satisfied by any io.Reader (e.g. bufio.Reader over a stream).
type byteReader interface {
	Read(p []byte) (n int, err error)
}

// DecodeStream consumes exactly the bytes it needs from r: the 5-byte
// header, then count*width element bytes. No look-ahead past that point.
func DecodeStream(r byteReader) (Model, DataType, error) {
	header := make([]byte, headerLen)
	if _, err := readFull(r, header); err != nil {
		return Model{}, 0, fmt.Errorf("%w: %v", ErrShortBuffer, err)
	}
	dt := DataType(header[0])
	width, err := dt.BytesPerElement()
	if err != nil {
		return Model{}, 0, fmt.Errorf("%w: %v", ErrInvalidHeader, err)
	}
	count := int(binary.BigEndian.Uint32(header[1:5]))

	weights := make([]*big.Rat, count)
	elem := make([]byte, width)
	for i := 0; i < count; i++ {
		if _, err := readFull(r, elem); err != nil {
			return Model{}, 0, fmt.Errorf("%w: %v", ErrShortBuffer, err)
		}
		weights[i] = decodeElement(elem, dt)
	}
	return Model{Weights: weights}, dt, nil
}

func readFull(r byteReader, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := r.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
		if n == 0 {
			return total, fmt.Errorf("model: short read")
		}
	}
	return total, nil
}

package model

import (
	"bytes"
	"math"
	"math/big"
	"testing"
)

func ratInts(vals ...int64) []*big.Rat {
	out := make([]*big.Rat, len(vals))
	for i, v := range vals {
		out[i] = ratioFromInt(v)
	}
	return out
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		dt   DataType
		vals []int64
	}{
		{"F32 basic", F32, []int64{1, 2, 1, 2}},
		{"I32 negatives", I32, []int64{-5, 0, 5}},
		{"U8 range", U8, []int64{0, 255}},
		{"empty", F64, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel(ratInts(tt.vals...))
			b, err := Encode(m, tt.dt)
			if err != nil {
				t.Fatalf("Encode() error = %v", err)
			}
			wantLen, err := BufferLength(m, tt.dt)
			if err != nil {
				t.Fatalf("BufferLength() error = %v", err)
			}
			if len(b) != wantLen {
				t.Fatalf("Encode() produced %d bytes, BufferLength() said %d", len(b), wantLen)
			}

			got, dt, err := Decode(b)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if dt != tt.dt {
				t.Errorf("Decode() data type = %v, want %v", dt, tt.dt)
			}
			if !got.Equal(m) {
				t.Errorf("Decode(Encode(m)) = %v, want %v", got.Weights, m.Weights)
			}
		})
	}
}

func TestDecodeFraming(t *testing.T) {
	// Valid header, count=2 F32 elements, but only one element's worth of bytes.
	b := []byte{byte(F32), 0x00, 0x00, 0x00, 0x02, 0, 0, 0, 0}
	if _, _, err := Decode(b); err == nil {
		t.Fatal("Decode() should fail on a buffer shorter than declared element count")
	}

	if _, _, err := Decode([]byte{0, 0, 0}); err == nil {
		t.Fatal("Decode() should fail on a buffer shorter than the header")
	}
}

func TestDecodeStreamConsumesExactly(t *testing.T) {
	m := NewModel(ratInts(7, 8, 9))
	b, err := Encode(m, I32)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	trailer := []byte{0xde, 0xad}
	r := bytes.NewReader(append(append([]byte{}, b...), trailer...))

	got, dt, err := DecodeStream(r)
	if err != nil {
		t.Fatalf("DecodeStream() error = %v", err)
	}
	if dt != I32 || !got.Equal(m) {
		t.Fatalf("DecodeStream() = %v/%v, want %v/%v", got.Weights, dt, m.Weights, I32)
	}
	remaining := make([]byte, 4)
	n, _ := r.Read(remaining)
	if n != 2 || !bytes.Equal(remaining[:2], trailer) {
		t.Fatalf("DecodeStream() consumed trailer bytes, left %d: %v", n, remaining[:n])
	}
}

func TestNaNAndInfHandling(t *testing.T) {
	f32 := NewModel([]*big.Rat{
		ratioFromFloat(clampFloat(posInf(), 32)),
		ratioFromFloat(clampFloat(negInf(), 32)),
	})
	b, err := Encode(f32, F32)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	got, _, err := Decode(b)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	f, _ := got.Weights[0].Float64()
	if f <= 0 {
		t.Errorf("+Inf should clamp to a large positive finite value, got %v", f)
	}
}

func posInf() float64 { return math.Inf(1) }
func negInf() float64 { return math.Inf(-1) }

func TestMaskedPartRoundTrip(t *testing.T) {
	part := MaskedPart{
		Config:  MaskConfig{GroupType: GroupPrime, DataType: U32, BoundType: BoundB1, ModelType: ModelM6},
		Payload: []byte{0, 0, 0, 1, 0, 0, 0, 2},
	}
	b, err := EncodeMaskedPart(part)
	if err != nil {
		t.Fatalf("EncodeMaskedPart() error = %v", err)
	}
	got, err := DecodeMaskedPart(b)
	if err != nil {
		t.Fatalf("DecodeMaskedPart() error = %v", err)
	}
	if got.Config != part.Config || !bytes.Equal(got.Payload, part.Payload) {
		t.Errorf("DecodeMaskedPart() = %+v, want %+v", got, part)
	}
}

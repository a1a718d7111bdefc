package grpcapi

import (
	"math/big"
	"testing"

	"github.com/ishaileshpant/fl-go/internal/engine"
	"github.com/ishaileshpant/fl-go/internal/eventfabric"
	"github.com/ishaileshpant/fl-go/internal/model"
)

func TestEncodeDecodeResponseRoundTrip(t *testing.T) {
	cases := []engine.Response{
		{Kind: engine.ResponseOK},
		{Kind: engine.ResponseRejected, Reason: "stake must be positive"},
		{Kind: engine.ResponseCancelled},
	}
	for _, want := range cases {
		got, err := decodeResponse(encodeResponse(want))
		if err != nil {
			t.Fatalf("decodeResponse: %v", err)
		}
		if got != want {
			t.Errorf("round trip = %+v, want %+v", got, want)
		}
	}
}

func TestEncodeDecodeSharedModelRoundTrip(t *testing.T) {
	m := model.NewModel([]*big.Rat{big.NewRat(1, 2), big.NewRat(3, 1)})
	want := &eventfabric.SharedModel{Model: m, DataType: model.F32, RoundID: 7}

	b, err := encodeSharedModel(want)
	if err != nil {
		t.Fatalf("encodeSharedModel: %v", err)
	}
	got, err := decodeSharedModel(b)
	if err != nil {
		t.Fatalf("decodeSharedModel: %v", err)
	}
	if got.RoundID != want.RoundID || got.DataType != want.DataType || !got.Model.Equal(want.Model) {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestEncodeDecodeSharedModelNil(t *testing.T) {
	b, err := encodeSharedModel(nil)
	if err != nil {
		t.Fatalf("encodeSharedModel(nil): %v", err)
	}
	got, err := decodeSharedModel(b)
	if err != nil {
		t.Fatalf("decodeSharedModel: %v", err)
	}
	if got != nil {
		t.Errorf("decodeSharedModel(nil-encoded) = %+v, want nil", got)
	}
}

func TestEncodeDecodeStatsRoundTrip(t *testing.T) {
	want := &eventfabric.Stats{Entries: []eventfabric.StatEntry{
		{ClientID: "c1", RoundID: 3, Loss: 0.25, Samples: 100},
	}}
	b, err := encodeStats(want)
	if err != nil {
		t.Fatalf("encodeStats: %v", err)
	}
	got, err := decodeStats(b)
	if err != nil {
		t.Fatalf("decodeStats: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0] != want.Entries[0] {
		t.Errorf("round trip = %+v, want %+v", got, want)
	}
}

func TestEncodeDecodeStatsNil(t *testing.T) {
	b, err := encodeStats(nil)
	if err != nil {
		t.Fatalf("encodeStats(nil): %v", err)
	}
	got, err := decodeStats(b)
	if err != nil {
		t.Fatalf("decodeStats: %v", err)
	}
	if got != nil {
		t.Errorf("decodeStats(nil-encoded) = %+v, want nil", got)
	}
}

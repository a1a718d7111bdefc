package featurebuffer

import (
	"math/big"
	"testing"

	"github.com/ishaileshpant/fl-go/internal/model"
)

func oneWeightModel(v float64) model.Model {
	r := new(big.Rat)
	r.SetFloat64(v)
	return model.Model{Weights: []*big.Rat{r}}
}

func TestInsertAndTake(t *testing.T) {
	b := New()
	b.Insert(1, oneWeightModel(1.0), 10, StatsRecord{ClientID: "a", RoundID: 1, Samples: 10})
	b.Insert(1, oneWeightModel(2.0), 20, StatsRecord{ClientID: "b", RoundID: 1, Samples: 20})

	f := b.Take(1)
	if len(f.Locals) != 2 || len(f.Stakes) != 2 {
		t.Fatalf("Take() = %d locals / %d stakes, want 2/2", len(f.Locals), len(f.Stakes))
	}

	// Taking again yields an empty FeatureSet.
	f2 := b.Take(1)
	if len(f2.Locals) != 0 {
		t.Fatalf("second Take() = %d locals, want 0", len(f2.Locals))
	}
}

func TestCarrySeedsNextRound(t *testing.T) {
	b := New()
	global := oneWeightModel(5.0)
	b.Carry(2, global, model.Model{}, model.Model{})
	b.Insert(2, oneWeightModel(1.0), 1, StatsRecord{})

	f := b.Take(2)
	if !f.Global.Equal(global) {
		t.Fatalf("Take() global = %v, want carried %v", f.Global.Weights, global.Weights)
	}
	if len(f.Locals) != 1 {
		t.Fatalf("Take() locals = %d, want 1", len(f.Locals))
	}
}

func TestInsertKeyedReplacesDuplicate(t *testing.T) {
	b := New()
	var pk [32]byte
	pk[0] = 7

	b.InsertKeyed(1, pk, oneWeightModel(1.0), 10, StatsRecord{ClientID: "a", RoundID: 1, Samples: 10})
	b.InsertKeyed(1, pk, oneWeightModel(99.0), 50, StatsRecord{ClientID: "a", RoundID: 1, Samples: 50})

	f := b.Take(1)
	if len(f.Locals) != 1 {
		t.Fatalf("Take() = %d locals, want 1 (second insert should replace the first)", len(f.Locals))
	}
	if !f.Locals[0].Equal(oneWeightModel(99.0)) {
		t.Fatalf("Take().Locals[0] = %v, want the replacement value", f.Locals[0].Weights)
	}
	if f.Stakes[0] != 50 {
		t.Fatalf("Take().Stakes[0] = %d, want 50", f.Stakes[0])
	}
}

func TestTakeAbsentRoundIsEmpty(t *testing.T) {
	b := New()
	f := b.Take(99)
	if len(f.Locals) != 0 || len(f.Stakes) != 0 {
		t.Fatalf("Take() on absent round = %+v, want empty", f)
	}
}

func TestTakeStatsAfterTakeStillReturnsStats(t *testing.T) {
	b := New()
	b.Insert(1, oneWeightModel(1.0), 10, StatsRecord{ClientID: "a", RoundID: 1, Loss: 0.5, Samples: 10})
	b.Insert(1, oneWeightModel(2.0), 20, StatsRecord{ClientID: "b", RoundID: 1, Loss: 0.25, Samples: 20})

	// Engine calls TakeStats then Take, but TakeStats must also work if
	// called after Take has already removed the round's entry.
	f := b.Take(1)
	if len(f.Locals) != 2 {
		t.Fatalf("Take() = %d locals, want 2", len(f.Locals))
	}
	stats := b.TakeStats(1)
	if len(stats) != 2 {
		t.Fatalf("TakeStats() after Take = %d entries, want 2", len(stats))
	}

	// A second TakeStats for the same round yields nothing further.
	if stats2 := b.TakeStats(1); len(stats2) != 0 {
		t.Fatalf("second TakeStats() = %d entries, want 0", len(stats2))
	}
}

func TestTakeStatsBeforeTakeReturnsStats(t *testing.T) {
	b := New()
	b.Insert(1, oneWeightModel(1.0), 10, StatsRecord{ClientID: "a", RoundID: 1, Loss: 0.5, Samples: 10})

	stats := b.TakeStats(1)
	if len(stats) != 1 {
		t.Fatalf("TakeStats() before Take = %d entries, want 1", len(stats))
	}
	f := b.Take(1)
	if len(f.Locals) != 1 {
		t.Fatalf("Take() after TakeStats = %d locals, want 1", len(f.Locals))
	}
}

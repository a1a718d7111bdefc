// Package featurebuffer implements the per-round accumulator of accepted
// updates keyed by round id (spec §4.3 Feature buffer, §3 FeatureMap).
package featurebuffer

import (
	"sync"

	"github.com/ishaileshpant/fl-go/internal/aggregator"
	"github.com/ishaileshpant/fl-go/internal/model"
)

// StatsRecord is one per-update metric entry (spec §3 Cache.stats).
type StatsRecord struct {
	ClientID string
	RoundID  uint64
	Loss     float32
	Samples  uint32
}

// roundEntry is the mutable per-round state kept before Take moves it out.
type roundEntry struct {
	locals  []model.Model
	stakes  []int64
	stats   []StatsRecord
	byOwner map[[32]byte]int // participant_pk -> index into locals/stakes/stats, for duplicate replace semantics
}

// Buffer is the engine-local, synchronous FeatureMap (spec §4.3). All
// operations run on the engine's single task; the mutex only guards against
// the pipeline's CPU-pool goroutines racing on insert with the engine's own
// read of the map (decode happens off the hot path, insert is called from
// the engine task itself per spec §4.6, but the mutex keeps the type safe to
// reuse from tests or a future multi-writer caller).
type Buffer struct {
	mu         sync.Mutex
	rounds     map[uint64]*roundEntry
	carried    map[uint64]aggregator.Features
	takenStats map[uint64][]StatsRecord
}

// New creates an empty FeatureMap.
func New() *Buffer {
	return &Buffer{
		rounds:     make(map[uint64]*roundEntry),
		carried:    make(map[uint64]aggregator.Features),
		takenStats: make(map[uint64][]StatsRecord),
	}
}

// Insert appends model/stake/stats to roundID's FeatureSet, creating one if
// absent (spec §4.3 insert). participantPK is the zero key for callers (and
// existing tests) that do not care about duplicate semantics.
func (b *Buffer) Insert(roundID uint64, m model.Model, stake int64, stats StatsRecord) {
	b.InsertKeyed(roundID, [32]byte{}, m, stake, stats)
}

// InsertKeyed is Insert plus the duplicate-update semantics spec §4.6
// "Ordering & tie-breaks" requires a documented choice on: a second message
// sharing (participant_pk, model_version) REPLACES the former's FeatureSet
// entry in place (see DESIGN.md), rather than appending a second one or
// rejecting with DuplicateUpdate. A zero-valued participantPK never
// dedupes against another zero-valued one in practice because every real
// wire message carries a non-zero Ed25519 public key.
func (b *Buffer) InsertKeyed(roundID uint64, participantPK [32]byte, m model.Model, stake int64, stats StatsRecord) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.rounds[roundID]
	if !ok {
		e = &roundEntry{byOwner: make(map[[32]byte]int)}
		b.rounds[roundID] = e
	}
	if e.byOwner == nil {
		e.byOwner = make(map[[32]byte]int)
	}
	if idx, dup := e.byOwner[participantPK]; dup && participantPK != ([32]byte{}) {
		e.locals[idx] = m
		e.stakes[idx] = stake
		e.stats[idx] = stats
		return
	}
	e.byOwner[participantPK] = len(e.locals)
	e.locals = append(e.locals, m)
	e.stakes = append(e.stakes, stake)
	e.stats = append(e.stats, stats)
}

// Take removes and returns roundID's FeatureSet, seeded with the carried
// cross-round aggregates (spec §4.3 take; invariant: "no FeatureSet is
// mutated after take returns"). Yields an empty FeatureSet if absent. The
// round's stats records survive this call in takenStats so TakeStats can
// still retrieve them regardless of whether it is called before or after
// Take.
func (b *Buffer) Take(roundID uint64) aggregator.Features {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.rounds[roundID]
	delete(b.rounds, roundID)
	carried := b.carried[roundID]
	delete(b.carried, roundID)

	f := carried
	if ok {
		f.Locals = e.locals
		f.Stakes = e.stakes
		if b.takenStats == nil {
			b.takenStats = make(map[uint64][]StatsRecord)
		}
		b.takenStats[roundID] = e.stats
	}
	return f
}

// TakeStats returns the stats records accumulated for roundID. Safe to call
// either before or after Take for the same roundID: Take stashes the round's
// stats in takenStats rather than dropping them, so whichever of the two is
// called second still finds them. Called after Take, it also clears that
// stash; called before Take, it clears nothing, and the copy Take then
// stashes stays in takenStats until TakeStats is called for roundID again.
func (b *Buffer) TakeStats(roundID uint64) []StatsRecord {
	b.mu.Lock()
	defer b.mu.Unlock()
	if e, ok := b.rounds[roundID]; ok {
		return e.stats
	}
	if stats, ok := b.takenStats[roundID]; ok {
		delete(b.takenStats, roundID)
		return stats
	}
	return nil
}

// Carry seeds the next round's cached aggregates (spec §4.3 carry): the
// global model, m_t, and v_t produced by the just-completed Aggregate step,
// consumed by Take when the new round's FeatureSet is later taken.
func (b *Buffer) Carry(roundID uint64, global, mt, vt model.Model) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.carried == nil {
		b.carried = make(map[uint64]aggregator.Features)
	}
	b.carried[roundID] = aggregator.Features{Global: global, MT: mt, VT: vt}
}

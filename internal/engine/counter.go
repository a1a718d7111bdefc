package engine

import "sync"

// counterEntry is one round's (accepted, rejected) tally (spec §4.6
// MessageCounter).
type counterEntry struct {
	accepted int
	rejected int
}

// MessageCounter tracks accepted/rejected message counts per round_id
// (spec §4.6). Rejected messages never count toward quorum.
type MessageCounter struct {
	mu      sync.Mutex
	rounds  map[uint64]*counterEntry
	quorum  int
}

// NewMessageCounter creates a counter whose ReachedCeiling fires once a
// round's accepted count reaches quorum (k, spec §3 Aggregator state).
func NewMessageCounter(quorum int) *MessageCounter {
	return &MessageCounter{rounds: make(map[uint64]*counterEntry), quorum: quorum}
}

// Include increments accepted or rejected for roundID depending on
// accepted. clientID is accepted for parity with the spec's
// include(result, round_id, client_id) signature; this implementation does
// not need it beyond documentation purposes.
func (c *MessageCounter) Include(accepted bool, roundID uint64, clientID uint32) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.rounds[roundID]
	if !ok {
		e = &counterEntry{}
		c.rounds[roundID] = e
	}
	if accepted {
		e.accepted++
	} else {
		e.rejected++
	}
}

// ReachedCeiling reports whether roundID's accepted count has reached the
// configured quorum.
func (c *MessageCounter) ReachedCeiling(roundID uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.rounds[roundID]
	if !ok {
		return false
	}
	return e.accepted >= c.quorum
}

// Snapshot returns (accepted, rejected) for roundID, used by tests and by
// Aggregate's stats bookkeeping.
func (c *MessageCounter) Snapshot(roundID uint64) (accepted, rejected int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.rounds[roundID]
	if !ok {
		return 0, 0
	}
	return e.accepted, e.rejected
}

// Evict drops a round's counter entry once it has been aggregated, keeping
// the map from growing without bound across a long-lived engine.
func (c *MessageCounter) Evict(roundID uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rounds, roundID)
}

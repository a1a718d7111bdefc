// Package eventfabric implements the single-writer / many-reader
// latest-value channels described in spec §4.7: every published value
// replaces the previous one atomically, new subscribers read the latest
// value on subscribe, and readers that fall behind see only the latest
// value, never intermediate ones.
package eventfabric

import "sync"

// Latest is one such channel for a value of type T. It is the Go analogue
// of a watch channel: publish is non-blocking, and subscribers pull the
// current value rather than queuing every update.
type Latest[T any] struct {
	mu      sync.RWMutex
	value   T
	version uint64
	signal  chan struct{} // closed and replaced on every publish
}

// NewLatest creates a channel seeded with an initial value.
func NewLatest[T any](initial T) *Latest[T] {
	return &Latest[T]{value: initial, signal: make(chan struct{})}
}

// Publish replaces the current value atomically. Never blocks and cannot
// back-pressure the writer (spec §4.7 contract).
func (l *Latest[T]) Publish(v T) {
	l.mu.Lock()
	l.value = v
	l.version++
	old := l.signal
	l.signal = make(chan struct{})
	l.mu.Unlock()
	close(old)
}

// Get returns the latest published value and its monotonically increasing
// version.
func (l *Latest[T]) Get() (T, uint64) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.value, l.version
}

// Changed returns a channel that closes the next time Publish is called
// after this call to Changed. Callers select on it to wake on new
// publications without polling; because it is re-created on every publish,
// a reader that misses one still observes the latest value via Get, never
// an intermediate one.
func (l *Latest[T]) Changed() <-chan struct{} {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.signal
}

// Fabric bundles the five independent channels spec §4.7 enumerates.
type Fabric struct {
	Keys   *Latest[KeyPair]
	Params *Latest[RoundParameters]
	State  *Latest[StateName]
	Model  *Latest[*SharedModel] // nil until first publish
	Stats  *Latest[*Stats]       // nil until first publish
}

// New creates a Fabric with zero-value initial publications (spec §4.8:
// fetch services return None/nil until the first real publish).
func New() *Fabric {
	return &Fabric{
		Keys:   NewLatest(KeyPair{}),
		Params: NewLatest(RoundParameters{}),
		State:  NewLatest(StateIdle),
		Model:  NewLatest[*SharedModel](nil),
		Stats:  NewLatest[*Stats](nil),
	}
}

// Package fetch implements the read-only request/response adapters over the
// event fabric described in spec §4.8: every request is satisfied from the
// latest published value, with no round-trip into the engine.
package fetch

import (
	"context"

	"github.com/ishaileshpant/fl-go/internal/eventfabric"
	"golang.org/x/sync/semaphore"
)

// Service exposes fetch_model/fetch_stats over a Fabric, concurrency-limited
// as spec §4.8 requires ("Each is concurrency-limited and buffered").
type Service struct {
	fabric *eventfabric.Fabric
	sem    *semaphore.Weighted
}

// New creates a fetch Service bound to fabric, allowing up to maxConcurrent
// in-flight fetches at a time.
func New(fabric *eventfabric.Fabric, maxConcurrent int64) *Service {
	if maxConcurrent <= 0 {
		maxConcurrent = 64
	}
	return &Service{fabric: fabric, sem: semaphore.NewWeighted(maxConcurrent)}
}

// FetchModel returns the latest published model, or nil if none has been
// published yet (spec §4.8 fetch_model).
func (s *Service) FetchModel(ctx context.Context) (*eventfabric.SharedModel, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	v, _ := s.fabric.Model.Get()
	return v, nil
}

// FetchStats returns the latest published round stats, or nil if none has
// been published yet (spec §4.8 fetch_stats).
func (s *Service) FetchStats(ctx context.Context) (*eventfabric.Stats, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	v, _ := s.fabric.Stats.Get()
	return v, nil
}

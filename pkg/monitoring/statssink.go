package monitoring

import (
	"context"
	"fmt"
	"time"

	"github.com/ishaileshpant/fl-go/internal/eventfabric"
)

// StatsSink adapts a Storage backend into the engine's best-effort stats
// consumer (SPEC_FULL.md §4's "two best-effort consumers": this one and
// internal/jobsink's HTTP sink). One round's Stats is recorded as one
// RoundMetrics row plus one CollaboratorMetrics row per participant entry.
type StatsSink struct {
	Storage      Storage
	FederationID string
	Algorithm    string
}

// NewStatsSink builds a StatsSink writing into storage under federationID.
func NewStatsSink(storage Storage, federationID, algorithm string) *StatsSink {
	return &StatsSink{Storage: storage, FederationID: federationID, Algorithm: algorithm}
}

// PostStats implements the engine's StatsSink interface.
func (s *StatsSink) PostStats(_ context.Context, stats eventfabric.Stats) error {
	if s.Storage == nil {
		return nil
	}
	now := time.Now()

	var roundNumber int
	var totalLoss float64
	for _, e := range stats.Entries {
		roundNumber = int(e.RoundID)
		totalLoss += float64(e.Loss)
	}
	var avgLoss *float64
	if len(stats.Entries) > 0 {
		v := totalLoss / float64(len(stats.Entries))
		avgLoss = &v
	}

	round := RoundMetrics{
		ID:               fmt.Sprintf("%s-round-%d", s.FederationID, roundNumber),
		FederationID:     s.FederationID,
		RoundNumber:      roundNumber,
		Algorithm:        s.Algorithm,
		StartTime:        now,
		EndTime:          &now,
		ParticipantCount: len(stats.Entries),
		UpdatesReceived:  len(stats.Entries),
		ModelLoss:        avgLoss,
		Status:           "completed",
	}
	if err := s.Storage.StoreRoundMetrics(round); err != nil {
		return fmt.Errorf("monitoring: store round metrics: %w", err)
	}

	for _, e := range stats.Entries {
		collab := CollaboratorMetrics{
			ID:               e.ClientID,
			FederationID:     s.FederationID,
			Status:           CollabStatusTraining,
			LastSeen:         now,
			CurrentRound:     int(e.RoundID),
			UpdatesSubmitted: 1,
		}
		if err := s.Storage.StoreCollaboratorMetrics(collab); err != nil {
			return fmt.Errorf("monitoring: store collaborator metrics for %s: %w", e.ClientID, err)
		}
	}
	return nil
}

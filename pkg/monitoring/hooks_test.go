package monitoring

import (
	"context"
	"testing"

	"github.com/ishaileshpant/fl-go/pkg/federation"
)

func TestOnFederationStartReturnsUsableID(t *testing.T) {
	storage := NewMemoryStorage(&MonitoringConfig{Enabled: true})
	hooks := NewMonitoringHooks(storage, true)

	plan := &federation.FLPlan{
		Rounds:        3,
		Collaborators: []federation.Collaborator{{ID: "c1"}, {ID: "c2"}},
		Algorithm:     federation.AlgorithmConfig{Name: "fedavg"},
	}

	federationID, err := hooks.OnFederationStart(context.Background(), plan, "localhost:50051")
	if err != nil {
		t.Fatalf("OnFederationStart() error = %v", err)
	}
	if federationID == "" {
		t.Fatal("OnFederationStart() returned an empty federation id")
	}

	got, err := storage.GetFederation(context.Background(), federationID)
	if err != nil {
		t.Fatalf("GetFederation(%q) error = %v", federationID, err)
	}
	if got.TotalCollabs != 2 {
		t.Errorf("TotalCollabs = %d, want 2", got.TotalCollabs)
	}
}

func TestRoundAdapterDrivesRoundLifecycle(t *testing.T) {
	storage := NewMemoryStorage(&MonitoringConfig{Enabled: true})
	hooks := NewMonitoringHooks(storage, true)

	plan := &federation.FLPlan{Algorithm: federation.AlgorithmConfig{Name: "fedavg"}}
	federationID, err := hooks.OnFederationStart(context.Background(), plan, "localhost:50051")
	if err != nil {
		t.Fatalf("OnFederationStart() error = %v", err)
	}

	adapter := &RoundAdapter{Hooks: hooks, FederationID: federationID, Algorithm: "fedavg"}
	ctx := context.Background()

	adapter.OnRoundStart(ctx, 1, 3)
	adapter.OnModelUpdateReceived(ctx, 1, "collab-1", 4096)
	adapter.OnRoundEnd(ctx, 1, 0, 1)

	round, err := storage.GetRound(ctx, "round_"+federationID+"_1")
	if err != nil {
		t.Fatalf("GetRound() error = %v", err)
	}
	if round.Status != "completed" {
		t.Errorf("round status = %q, want %q", round.Status, "completed")
	}
	if round.UpdatesReceived != 1 {
		t.Errorf("round.UpdatesReceived = %d, want 1", round.UpdatesReceived)
	}

	updates, err := storage.GetModelUpdates(ctx, &MetricsFilter{FederationID: federationID})
	if err != nil {
		t.Fatalf("GetModelUpdates() error = %v", err)
	}
	if len(updates) != 1 {
		t.Fatalf("len(updates) = %d, want 1", len(updates))
	}
	if updates[0].UpdateSize != 4096 {
		t.Errorf("updates[0].UpdateSize = %d, want 4096", updates[0].UpdateSize)
	}
}

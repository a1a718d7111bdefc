package collaborator

import (
	"context"
	"crypto/ed25519"
	"math/big"
	"testing"

	"github.com/ishaileshpant/fl-go/internal/engine"
	"github.com/ishaileshpant/fl-go/internal/eventfabric"
	"github.com/ishaileshpant/fl-go/internal/model"
)

type fakeTransport struct {
	model    *eventfabric.SharedModel
	fetchErr error
	submit   func([]byte) (engine.Response, error)
}

func (f *fakeTransport) FetchModel(context.Context) (*eventfabric.SharedModel, error) {
	return f.model, f.fetchErr
}

func (f *fakeTransport) SubmitMessage(_ context.Context, raw []byte) (engine.Response, error) {
	return f.submit(raw)
}

type fakeHost struct {
	idleCount  int
	needsModel []RoundParameters
}

func (h *fakeHost) NotifyIdle() { h.idleCount++ }
func (h *fakeHost) NotifyNeedsModel(p RoundParameters) {
	h.needsModel = append(h.needsModel, p)
}

func newTestEngine(t *testing.T, tr Transport, host Host) *Engine {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(nil)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	_ = pub
	e, err := New(Config{ParticipantID: 1, SignPriv: priv}, tr, host)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func TestEngineFullCycleAcceptedGoesToAwaiting(t *testing.T) {
	host := &fakeHost{}
	tr := &fakeTransport{
		model:  &eventfabric.SharedModel{Model: model.Zeros(2), DataType: model.F32, RoundID: 3},
		submit: func([]byte) (engine.Response, error) { return engine.Response{Kind: engine.ResponseOK}, nil },
	}
	e := newTestEngine(t, tr, host)
	ctx := context.Background()

	if e.Phase() != PhaseAwaiting {
		t.Fatalf("initial phase = %v, want Awaiting", e.Phase())
	}
	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("Step in Awaiting: %v", err)
	}
	if host.idleCount != 1 {
		t.Errorf("idleCount = %d, want 1", host.idleCount)
	}

	e.StartRound()
	res, err := e.Step(ctx)
	if err != nil {
		t.Fatalf("Step NewRound: %v", err)
	}
	if !res.Complete || res.Phase != PhaseUpdate {
		t.Fatalf("NewRound step = %+v, want Complete(Update)", res)
	}
	if len(host.needsModel) != 1 || host.needsModel[0].RoundID != 3 {
		t.Fatalf("needsModel = %+v", host.needsModel)
	}

	res, err = e.Step(ctx)
	if err != nil {
		t.Fatalf("Step Update (no model): %v", err)
	}
	if res.Complete {
		t.Fatalf("Update step with no model loaded should be Pending, got %+v", res)
	}

	m := model.NewModel([]*big.Rat{big.NewRat(1, 1), big.NewRat(2, 1)})
	if err := e.LoadModel(m, 10, 0.5, nil); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	res, err = e.Step(ctx)
	if err != nil {
		t.Fatalf("Step Update (model loaded): %v", err)
	}
	if !res.Complete || res.Phase != PhaseSendingUpdate {
		t.Fatalf("Update step = %+v, want Complete(SendingUpdate)", res)
	}

	res, err = e.Step(ctx)
	if err != nil {
		t.Fatalf("Step SendingUpdate: %v", err)
	}
	if !res.Complete || res.Phase != PhaseAwaiting {
		t.Fatalf("SendingUpdate step = %+v, want Complete(Awaiting)", res)
	}
}

func TestEngineRejectedUpdateReturnsToNewRound(t *testing.T) {
	host := &fakeHost{}
	tr := &fakeTransport{
		model:  &eventfabric.SharedModel{Model: model.Zeros(1), DataType: model.F32, RoundID: 1},
		submit: func([]byte) (engine.Response, error) { return engine.Response{Kind: engine.ResponseRejected, Reason: "stale"}, nil },
	}
	e := newTestEngine(t, tr, host)
	ctx := context.Background()

	e.StartRound()
	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("Step NewRound: %v", err)
	}
	m := model.NewModel([]*big.Rat{big.NewRat(1, 1)})
	if err := e.LoadModel(m, 1, 0, nil); err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	if _, err := e.Step(ctx); err != nil {
		t.Fatalf("Step Update: %v", err)
	}
	res, err := e.Step(ctx)
	if err != nil {
		t.Fatalf("Step SendingUpdate: %v", err)
	}
	if !res.Complete || res.Phase != PhaseNewRound {
		t.Fatalf("SendingUpdate step on reject = %+v, want Complete(NewRound)", res)
	}
}

func TestLoadModelOutsideUpdateFails(t *testing.T) {
	e := newTestEngine(t, &fakeTransport{}, &fakeHost{})
	if err := e.LoadModel(model.Zeros(1), 1, 0, nil); err != ErrWrongPhase {
		t.Errorf("LoadModel outside Update = %v, want ErrWrongPhase", err)
	}
}

func TestSaveRestoreRoundTrip(t *testing.T) {
	host := &fakeHost{}
	tr := &fakeTransport{model: &eventfabric.SharedModel{Model: model.Zeros(1), DataType: model.F32, RoundID: 9}}
	e := newTestEngine(t, tr, host)
	e.StartRound()
	if _, err := e.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	saved := e.Save()
	restored, err := Restore(saved, tr, host)
	if err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Phase() != e.Phase() {
		t.Errorf("restored phase = %v, want %v", restored.Phase(), e.Phase())
	}
	if restored.round != e.round {
		t.Errorf("restored round = %+v, want %+v", restored.round, e.round)
	}
	if restored.participantID != e.participantID {
		t.Errorf("restored participantID = %d, want %d", restored.participantID, e.participantID)
	}
}

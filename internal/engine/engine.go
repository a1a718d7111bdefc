// Package engine implements the server state engine of spec §4.6: the
// phased protocol (Idle -> Collect -> Aggregate -> {Idle | Shutdown}, with
// Failure), its per-round bookkeeping, and its cancellation/shutdown
// behavior. It is the sole writer of the Cache, FeatureMap, and
// event-fabric publishers (spec §5).
package engine

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/ishaileshpant/fl-go/internal/aggregator"
	"github.com/ishaileshpant/fl-go/internal/blobstore"
	"github.com/ishaileshpant/fl-go/internal/crypto"
	"github.com/ishaileshpant/fl-go/internal/eventfabric"
	"github.com/ishaileshpant/fl-go/internal/featurebuffer"
	"github.com/ishaileshpant/fl-go/internal/model"
	"github.com/ishaileshpant/fl-go/internal/reqchannel"
)

// StatsSink is a best-effort consumer of a completed round's Stats (spec
// §4.6 Aggregate: "optionally posts the round stats to an external HTTP
// endpoint (best-effort, log on failure, do not fail the round)"). Multiple
// sinks may be registered (e.g. the job.* HTTP endpoint and the monitoring
// storage backend, per SPEC_FULL.md §4's "two best-effort consumers").
type StatsSink interface {
	PostStats(ctx context.Context, stats eventfabric.Stats) error
}

// RoundHooks receives best-effort lifecycle notifications for external
// federation-monitoring integrations (spec §4.6 Collect/Aggregate), kept
// separate from StatsSink because it reports progress as it happens rather
// than a single post-hoc summary. Nil-safe: Engine only calls through it
// when set.
type RoundHooks interface {
	OnRoundStart(ctx context.Context, roundID uint64, participantCount int)
	OnModelUpdateReceived(ctx context.Context, roundID uint64, clientID string, updateSize int)
	OnRoundEnd(ctx context.Context, roundID uint64, duration time.Duration, updatesReceived int)
}

// Config holds the engine's static, per-deployment parameters (spec §3
// Aggregator state, §6 process.* / model.* configuration).
type Config struct {
	DataType       model.DataType
	Strategy       aggregator.Strategy
	Params         aggregator.Params // Quorum is per_round_participants (k)
	TrainingRounds uint32
	BlobKey        string // stable key under which the global model is persisted (spec §4.9)
	MaskingEnabled bool
	FailureRetry   time.Duration // fixed backoff while waiting for store readiness in Failure (spec §4.6: "a fixed 5-second retry is acceptable")
}

// DefaultFailureRetry is the spec's suggested fixed backoff.
const DefaultFailureRetry = 5 * time.Second

// Engine drives the state chart. It owns Cache, FeatureMap, and the event
// fabric's publishers exclusively (spec §5).
type Engine struct {
	cfg     Config
	fabric  *eventfabric.Fabric
	reqCh   *reqchannel.Channel[Request, Response]
	buffer  *featurebuffer.Buffer
	store   blobstore.Store
	counter *MessageCounter
	sinks   []StatsSink
	log     zerolog.Logger

	signing crypto.SigningKeyPair
	boxKeys crypto.BoxKeyPair

	// OnRoundBoundary is called once per Collect->Aggregate transition,
	// after the FeatureSet for the closing round has been taken. It exists
	// so a caller can evict stale multipart-reassembly groups at the round
	// boundary (SPEC_FULL.md §4's multipart memory bound supplement)
	// without the engine importing the message/pipeline package.
	OnRoundBoundary func()

	// Hooks, when set, receives round-lifecycle notifications for an
	// external monitoring integration (SPEC_FULL.md's domain stack).
	Hooks RoundHooks
}

// New constructs an Engine with a freshly generated signing keypair and box
// keypair.
func New(cfg Config, fabric *eventfabric.Fabric, reqCh *reqchannel.Channel[Request, Response], buffer *featurebuffer.Buffer, store blobstore.Store, log zerolog.Logger, sinks ...StatsSink) (*Engine, error) {
	signing, err := crypto.GenerateSigningKeyPair()
	if err != nil {
		return nil, fmt.Errorf("engine: generate signing keypair: %w", err)
	}
	boxKeys, err := crypto.GenerateBoxKeyPair()
	if err != nil {
		return nil, fmt.Errorf("engine: generate box keypair: %w", err)
	}
	if cfg.FailureRetry <= 0 {
		cfg.FailureRetry = DefaultFailureRetry
	}
	return &Engine{
		cfg:     cfg,
		fabric:  fabric,
		reqCh:   reqCh,
		buffer:  buffer,
		store:   store,
		counter: NewMessageCounter(int(cfg.Params.Quorum)),
		sinks:   sinks,
		log:     log.With().Str("component", "engine").Logger(),
		signing: signing,
		boxKeys: boxKeys,
	}, nil
}

// CurrentBoxKeys returns the engine's live box keypair, for wiring into a
// crypto.MaskSeedDecrypter.
func (e *Engine) CurrentBoxKeys() crypto.BoxKeyPair { return e.boxKeys }

// phase is the engine's own notion of where it is in the state chart;
// eventfabric.StateName is the externally-published projection of it.
type phase int

const (
	phaseIdle phase = iota
	phaseCollect
	phaseAggregate
	phaseFailure
	phaseShutdown
)

// Run drives the engine until it reaches Shutdown or ctx is canceled.
// terminate is the host-level termination signal (spec §5 "a host-level
// termination signal (equivalent of Ctrl-C) races with the engine loop via
// a biased select").
func (e *Engine) Run(ctx context.Context, terminate <-chan struct{}) error {
	var (
		roundID    uint64
		global     model.Model
		mt, vt     model.Model
		failureErr error
		roundStart time.Time
	)

	ph := phaseIdle
	for {
		select {
		case <-terminate:
			e.log.Info().Msg("termination signal received, shutting down")
			ph = phaseShutdown
		default:
		}

		switch ph {
		case phaseIdle:
			e.fabric.Keys.Publish(eventfabric.KeyPair{PublicKey: pkArray(e.signing.Public)})

			stored, found, err := e.store.Get(ctx, e.cfg.BlobKey)
			if err != nil {
				failureErr = blobstore.Wrap("get", err)
				ph = phaseFailure
				continue
			}
			if found {
				m, dt, err := model.Decode(stored)
				if err != nil {
					failureErr = fmt.Errorf("engine: decode stored genesis model: %w", err)
					ph = phaseFailure
					continue
				}
				global = m
				if dt != e.cfg.DataType {
					e.log.Warn().Stringer("stored_dtype", dt).Stringer("configured_dtype", e.cfg.DataType).Msg("stored genesis model data type differs from configuration")
				}
			} else {
				global = model.Model{} // empty sentinel: "not yet initialized" (spec §3)
			}

			e.fabric.Model.Publish(&eventfabric.SharedModel{Model: global, DataType: e.cfg.DataType, RoundID: roundID})
			e.fabric.State.Publish(eventfabric.StateIdle)
			e.log.Info().Uint64("round_id", roundID).Msg("idle: published genesis model")
			ph = phaseCollect

		case phaseCollect:
			roundID++
			e.buffer.Carry(roundID, global, mt, vt)

			seed, params, err := e.newRoundParameters(roundID)
			if err != nil {
				failureErr = err
				ph = phaseFailure
				continue
			}
			_ = seed
			e.fabric.Params.Publish(params)
			e.fabric.State.Publish(eventfabric.StateCollect)
			e.log.Info().Uint64("round_id", roundID).Msg("collect: awaiting updates")

			roundStart = time.Now()
			if e.Hooks != nil {
				e.Hooks.OnRoundStart(ctx, roundID, int(e.cfg.Params.Quorum))
			}

			ph = e.collectLoop(ctx, roundID, terminate)

		case phaseAggregate:
			e.fabric.State.Publish(eventfabric.StateAggregate)
			stats := e.buffer.TakeStats(roundID)
			features := e.buffer.Take(roundID)
			accepted, rejected := e.counter.Snapshot(roundID)
			e.counter.Evict(roundID)
			if e.OnRoundBoundary != nil {
				e.OnRoundBoundary()
			}

			// features.{Global,MT,VT} were already seeded from the prior
			// round's carried aggregates by Buffer.Carry in Collect.
			newGlobal, newMT, newVT, err := aggregator.Aggregate(e.cfg.Strategy, aggregator.Features{
				Locals: features.Locals,
				Stakes: features.Stakes,
				Global: features.Global,
				MT:     features.MT,
				VT:     features.VT,
			}, e.cfg.Params)
			if err != nil {
				e.log.Error().Err(err).Uint64("round_id", roundID).Msg("aggregate failed, round discarded")
				failureErr = err
				ph = phaseFailure
				continue
			}
			global, mt, vt = newGlobal, newMT, newVT

			e.fabric.Model.Publish(&eventfabric.SharedModel{Model: global, DataType: e.cfg.DataType, RoundID: roundID})

			statEntries := make([]eventfabric.StatEntry, 0, len(stats))
			for _, s := range stats {
				statEntries = append(statEntries, eventfabric.StatEntry{ClientID: s.ClientID, RoundID: s.RoundID, Loss: s.Loss, Samples: s.Samples})
			}
			roundStats := eventfabric.Stats{Entries: statEntries}
			e.fabric.Stats.Publish(&roundStats)

			encoded, err := model.Encode(global, e.cfg.DataType)
			if err != nil {
				failureErr = fmt.Errorf("engine: encode aggregated model: %w", err)
				ph = phaseFailure
				continue
			}
			if err := e.store.Put(ctx, e.cfg.BlobKey, encoded); err != nil {
				failureErr = blobstore.Wrap("put", err)
				ph = phaseFailure
				continue
			}

			e.postStatsBestEffort(ctx, roundStats)

			if e.Hooks != nil {
				e.Hooks.OnRoundEnd(ctx, roundID, time.Since(roundStart), accepted)
			}

			e.log.Info().Uint64("round_id", roundID).Int("accepted", accepted).Int("rejected", rejected).Msg("aggregate: round closed")

			if uint32(roundID) >= e.cfg.TrainingRounds {
				ph = phaseShutdown
			} else {
				ph = phaseIdle
			}

		case phaseFailure:
			e.log.Error().Err(failureErr).Msg("engine entering failure state")
			for {
				if err := e.store.IsReady(ctx); err == nil {
					break
				}
				select {
				case <-time.After(e.cfg.FailureRetry):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			ph = phaseShutdown

		case phaseShutdown:
			e.fabric.State.Publish(eventfabric.StateShutdown)
			e.reqCh.Close()
			for _, env := range e.reqCh.Drain() {
				env.Respond(Response{Kind: ResponseCancelled})
			}
			e.log.Info().Msg("shutdown complete")
			if failureErr != nil {
				return failureErr
			}
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
	}
}

// collectLoop runs Collect's select loop (spec §4.6 Collect) until the
// round's quorum is reached or a termination signal arrives, returning the
// next phase.
func (e *Engine) collectLoop(ctx context.Context, roundID uint64, terminate <-chan struct{}) phase {
	// recvCtx also ends on terminate, so a signal that arrives while Recv is
	// waiting for the next request wakes it.
	recvCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-terminate:
			cancel()
		case <-recvCtx.Done():
		}
	}()

	for {
		select {
		case <-terminate:
			return phaseShutdown
		case <-ctx.Done():
			return phaseShutdown
		default:
		}

		env, ok := e.reqCh.Recv(recvCtx)
		if !ok {
			// Channel closed/ctx canceled without a queued envelope: treat
			// as a cancellation-driven shutdown.
			return phaseShutdown
		}

		resp := e.handleRequest(ctx, roundID, env.Request)
		env.Respond(resp)

		if e.counter.ReachedCeiling(roundID) {
			return phaseAggregate
		}
	}
}

// handleRequest implements spec §4.6 Collect's handle_request.
func (e *Engine) handleRequest(ctx context.Context, roundID uint64, req Request) Response {
	m, dt, err := model.Decode(req.ModelBytes)
	if err != nil {
		e.counter.Include(false, roundID, req.ParticipantID)
		return Response{Kind: ResponseRejected, Reason: fmt.Sprintf("decode model: %v", err)}
	}
	if dt != e.cfg.DataType {
		e.counter.Include(false, roundID, req.ParticipantID)
		return Response{Kind: ResponseRejected, Reason: "model data type does not match round configuration"}
	}

	targetRound := uint64(req.ModelVersion)
	if targetRound == 0 {
		targetRound = roundID
	}
	if !withinAcceptanceWindow(targetRound, roundID) {
		e.counter.Include(false, roundID, req.ParticipantID)
		return Response{Kind: ResponseRejected, Reason: "model_version outside the current round's acceptance window"}
	}
	if req.Stake == 0 {
		e.counter.Include(false, roundID, req.ParticipantID)
		return Response{Kind: ResponseRejected, Reason: "stake must be positive"}
	}

	e.buffer.InsertKeyed(targetRound, req.ParticipantPK, m, int64(req.Stake), featurebuffer.StatsRecord{
		ClientID: fmt.Sprintf("%d", req.ParticipantID),
		RoundID:  targetRound,
		Loss:     req.Loss,
		Samples:  req.Stake,
	})

	// Quorum is tracked against the round actually being collected, not the
	// (possibly slightly-ahead-or-behind) target round the update names.
	e.counter.Include(true, roundID, req.ParticipantID)
	if e.Hooks != nil {
		e.Hooks.OnModelUpdateReceived(ctx, roundID, fmt.Sprintf("%d", req.ParticipantID), len(req.ModelBytes))
	}
	return Response{Kind: ResponseOK}
}

// withinAcceptanceWindow tolerates updates arriving one round ahead of or
// behind the current round (spec §3 FeatureMap: "used to tolerate updates
// arriving slightly ahead of or behind the current round").
func withinAcceptanceWindow(target, current uint64) bool {
	if target == current {
		return true
	}
	if target+1 == current || target == current+1 {
		return true
	}
	return false
}

func (e *Engine) newRoundParameters(roundID uint64) ([32]byte, eventfabric.RoundParameters, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return seed, eventfabric.RoundParameters{}, fmt.Errorf("engine: generate round seed: %w", err)
	}
	return seed, eventfabric.RoundParameters{
		CoordinatorPublicKey: pkArray(e.signing.Public),
		RoundSeed:            seed,
		DataType:             e.cfg.DataType,
		PerRoundParticipants: uint32(e.cfg.Params.Quorum),
		TrainingRounds:       e.cfg.TrainingRounds,
		RoundID:              roundID,
	}, nil
}

func (e *Engine) postStatsBestEffort(ctx context.Context, stats eventfabric.Stats) {
	for _, sink := range e.sinks {
		if sink == nil {
			continue
		}
		if err := sink.PostStats(ctx, stats); err != nil {
			e.log.Warn().Err(err).Msg("stats sink post failed (best-effort, continuing)")
		}
	}
}

func pkArray(pk []byte) [32]byte {
	var out [32]byte
	copy(out[:], pk)
	return out
}

// ErrEngineDown re-exports reqchannel's sentinel for callers that only
// import this package.
var ErrEngineDown = reqchannel.ErrEngineDown

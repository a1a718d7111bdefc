// Package collaborator implements the client-side mirror of the
// aggregator's state machine (spec §4.10): Awaiting -> NewRound -> Update
// -> SendingUpdate -> Awaiting. It is driven by a host-provided ticker
// rather than owning its own goroutine, the same cooperative-polling shape
// the teacher's SimpleCollaborator used for its round loop, generalized
// here into an explicit phase machine instead of a fixed for-loop.
package collaborator

import (
	"context"
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
	"time"

	"github.com/ishaileshpant/fl-go/internal/crypto"
	"github.com/ishaileshpant/fl-go/internal/engine"
	"github.com/ishaileshpant/fl-go/internal/eventfabric"
	"github.com/ishaileshpant/fl-go/internal/message"
	"github.com/ishaileshpant/fl-go/internal/model"
)

// Transport is the subset of grpcapi.Client the engine needs, narrowed to
// an interface so tests can substitute a fake rather than dialing a real
// connection.
type Transport interface {
	SubmitMessage(ctx context.Context, raw []byte) (engine.Response, error)
	FetchModel(ctx context.Context) (*eventfabric.SharedModel, error)
}

// Phase is the client engine's current phase (spec §4.10).
type Phase uint8

const (
	PhaseAwaiting Phase = iota
	PhaseNewRound
	PhaseUpdate
	PhaseSendingUpdate
)

func (p Phase) String() string {
	switch p {
	case PhaseAwaiting:
		return "Awaiting"
	case PhaseNewRound:
		return "NewRound"
	case PhaseUpdate:
		return "Update"
	case PhaseSendingUpdate:
		return "SendingUpdate"
	default:
		return fmt.Sprintf("Phase(%d)", uint8(p))
	}
}

// RoundParameters is the subset of the server's round parameters the client
// needs: which round it is submitting against and the data type to encode
// the model in (spec §3 RoundParameters, narrowed to what fetch_model
// exposes to a participant).
type RoundParameters struct {
	RoundID  uint64
	DataType model.DataType
}

// Host receives the engine's phase-entry notifications (spec §4.10 "the
// host polls until Complete and then observes the new task / model
// requirement").
type Host interface {
	NotifyIdle()
	NotifyNeedsModel(RoundParameters)
}

// StepResult is Step's cooperative-polling return value: Pending means no
// phase change this tick, Complete names the phase the engine moved to.
type StepResult struct {
	Complete bool
	Phase    Phase
}

func pending(p Phase) StepResult  { return StepResult{Complete: false, Phase: p} }
func complete(p Phase) StepResult { return StepResult{Complete: true, Phase: p} }

// ErrWrongPhase is returned by LoadModel when called outside Update.
var ErrWrongPhase = errors.New("collaborator: LoadModel called outside the Update phase")

const defaultRetryBackoff = 2 * time.Second

// Engine is the client state engine (spec §4.10).
type Engine struct {
	phase Phase

	participantID     uint32
	signPriv          ed25519.PrivateKey
	participantPK     [32]byte
	coordinatorPK     [32]byte
	coordinatorBoxPub *[32]byte // nil disables mask-seed sealing

	client Transport
	host   Host

	round     RoundParameters
	haveRound bool

	pendingModel *model.Model
	stake        uint32
	loss         float32
	maskSeed     *[32]byte

	retryBackoff time.Duration
	nextRetry    time.Time
}

// Config bootstraps a new Engine. CoordinatorBoxPub is nil when masking is
// disabled for this deployment.
type Config struct {
	ParticipantID     uint32
	SignPriv          ed25519.PrivateKey
	CoordinatorPK     [32]byte
	CoordinatorBoxPub *[32]byte
	RetryBackoff      time.Duration
}

// New builds an Engine in the Awaiting phase, bound to client for transport
// and host for phase-entry notifications.
func New(cfg Config, client Transport, host Host) (*Engine, error) {
	if len(cfg.SignPriv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("collaborator: signing private key must be %d bytes", ed25519.PrivateKeySize)
	}
	backoff := cfg.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	e := &Engine{
		phase:             PhaseAwaiting,
		participantID:     cfg.ParticipantID,
		signPriv:          cfg.SignPriv,
		coordinatorPK:     cfg.CoordinatorPK,
		coordinatorBoxPub: cfg.CoordinatorBoxPub,
		client:            client,
		host:              host,
		retryBackoff:      backoff,
	}
	copy(e.participantPK[:], cfg.SignPriv.Public().(ed25519.PublicKey))
	return e, nil
}

// Phase reports the engine's current phase.
func (e *Engine) Phase() Phase { return e.phase }

// StartRound moves the engine out of Awaiting into NewRound. Awaiting has
// no automatic exit (spec §4.10 "No progress; yields Pending"); the host's
// ticker calls StartRound when it decides to pursue the next round.
func (e *Engine) StartRound() {
	if e.phase == PhaseAwaiting {
		e.phase = PhaseNewRound
		e.nextRetry = time.Time{}
	}
}

// LoadModel supplies the trained model for the in-flight round (spec §4.10
// Update: "wait for host to load a model into the local store"). Calling it
// outside Update is an error.
func (e *Engine) LoadModel(m model.Model, stake uint32, loss float32, maskSeed *[32]byte) error {
	if e.phase != PhaseUpdate {
		return ErrWrongPhase
	}
	e.pendingModel = &m
	e.stake = stake
	e.loss = loss
	e.maskSeed = maskSeed
	return nil
}

// Step advances the engine by one cooperative tick (spec §4.10).
func (e *Engine) Step(ctx context.Context) (StepResult, error) {
	switch e.phase {
	case PhaseAwaiting:
		e.host.NotifyIdle()
		return pending(PhaseAwaiting), nil

	case PhaseNewRound:
		return e.stepNewRound(ctx)

	case PhaseUpdate:
		if e.pendingModel == nil {
			e.host.NotifyNeedsModel(e.round)
			return pending(PhaseUpdate), nil
		}
		e.phase = PhaseSendingUpdate
		return complete(PhaseSendingUpdate), nil

	case PhaseSendingUpdate:
		return e.stepSendingUpdate(ctx)

	default:
		return pending(e.phase), fmt.Errorf("collaborator: unknown phase %v", e.phase)
	}
}

func (e *Engine) backoffElapsed() bool {
	return e.nextRetry.IsZero() || !time.Now().Before(e.nextRetry)
}

func (e *Engine) armBackoff() {
	e.nextRetry = time.Now().Add(e.retryBackoff)
}

// stepNewRound fetches the current round parameters (spec §4.10 NewRound
// entry action). Client deployments only expose fetch_model/fetch_stats
// (spec §4.8), so the round id and data type a participant trains against
// are read off the latest published model.
func (e *Engine) stepNewRound(ctx context.Context) (StepResult, error) {
	if !e.backoffElapsed() {
		return pending(PhaseNewRound), nil
	}
	shared, err := e.client.FetchModel(ctx)
	if err != nil {
		e.armBackoff()
		return pending(PhaseNewRound), nil
	}
	if shared == nil {
		// No model published yet; keep polling at the backoff cadence.
		e.armBackoff()
		return pending(PhaseNewRound), nil
	}
	e.round = RoundParameters{RoundID: shared.RoundID, DataType: shared.DataType}
	e.haveRound = true
	e.pendingModel = nil
	e.phase = PhaseUpdate
	e.host.NotifyNeedsModel(e.round)
	return complete(PhaseUpdate), nil
}

// stepSendingUpdate serializes, optionally seals a mask seed, signs, and
// submits the loaded model (spec §4.10 SendingUpdate entry action).
func (e *Engine) stepSendingUpdate(ctx context.Context) (StepResult, error) {
	if !e.backoffElapsed() {
		return pending(PhaseSendingUpdate), nil
	}
	raw, err := e.buildMessage()
	if err != nil {
		// A local encode failure cannot be retried by waiting; surface it
		// and fall back to NewRound to pick up fresh parameters.
		e.resetForNextRound()
		e.phase = PhaseNewRound
		return complete(PhaseNewRound), err
	}

	resp, err := e.client.SubmitMessage(ctx, raw)
	if err != nil {
		e.armBackoff()
		return pending(PhaseSendingUpdate), nil
	}

	switch resp.Kind {
	case engine.ResponseOK:
		e.resetForNextRound()
		e.phase = PhaseAwaiting
		return complete(PhaseAwaiting), nil
	default: // ResponseRejected, ResponseCancelled
		e.resetForNextRound()
		e.phase = PhaseNewRound
		return complete(PhaseNewRound), nil
	}
}

func (e *Engine) resetForNextRound() {
	e.pendingModel = nil
	e.maskSeed = nil
	e.nextRetry = time.Time{}
}

func (e *Engine) buildMessage() ([]byte, error) {
	modelBytes, err := model.Encode(*e.pendingModel, e.round.DataType)
	if err != nil {
		return nil, fmt.Errorf("collaborator: encode model: %w", err)
	}

	payload := message.UpdatePayload{
		ParticipantID: e.participantID,
		ModelVersion:  uint32(e.round.RoundID),
		ModelBytes:    modelBytes,
		Stake:         e.stake,
		Loss:          e.loss,
	}
	if e.maskSeed != nil {
		if e.coordinatorBoxPub == nil {
			return nil, errors.New("collaborator: mask seed set but no coordinator box key configured")
		}
		sealed, err := crypto.SealMaskSeed(*e.maskSeed, e.coordinatorBoxPub)
		if err != nil {
			return nil, fmt.Errorf("collaborator: seal mask seed: %w", err)
		}
		payload.MaskSeedSealed = sealed
	}

	msg := message.Message{
		ParticipantPK: e.participantPK,
		CoordinatorPK: e.coordinatorPK,
		Tag:           message.TagUpdate,
		Payload:       message.MarshalUpdate(payload),
	}
	msg.Sign(e.signPriv)
	return msg.Marshal(), nil
}

// Save serializes enough state to reconstruct the engine via Restore (spec
// §4.10 "save() returns an opaque byte sequence... Transport handles are
// NOT serialized"). The client's grpcapi.Client and Host are excluded;
// Restore accepts a fresh set.
func (e *Engine) Save() []byte {
	haveBox := byte(0)
	var boxBytes [32]byte
	if e.coordinatorBoxPub != nil {
		haveBox = 1
		boxBytes = *e.coordinatorBoxPub
	}
	haveRound := byte(0)
	if e.haveRound {
		haveRound = 1
	}

	buf := make([]byte, 0, 1+4+32+32+1+32+1+8+1+8+2+len(e.signPriv))
	buf = append(buf, byte(e.phase))
	var idBuf [4]byte
	binary.BigEndian.PutUint32(idBuf[:], e.participantID)
	buf = append(buf, idBuf[:]...)
	buf = append(buf, e.participantPK[:]...)
	buf = append(buf, e.coordinatorPK[:]...)
	buf = append(buf, haveBox)
	buf = append(buf, boxBytes[:]...)
	buf = append(buf, haveRound)
	var roundIDBuf [8]byte
	binary.BigEndian.PutUint64(roundIDBuf[:], e.round.RoundID)
	buf = append(buf, roundIDBuf[:]...)
	buf = append(buf, byte(e.round.DataType))
	var backoffBuf [8]byte
	binary.BigEndian.PutUint64(backoffBuf[:], uint64(e.retryBackoff))
	buf = append(buf, backoffBuf[:]...)
	var keyLenBuf [2]byte
	binary.BigEndian.PutUint16(keyLenBuf[:], uint16(len(e.signPriv)))
	buf = append(buf, keyLenBuf[:]...)
	buf = append(buf, e.signPriv...)
	return buf
}

// Restore reconstructs an Engine from a byte sequence produced by Save,
// binding it to a fresh client and host.
func Restore(b []byte, client Transport, host Host) (*Engine, error) {
	const fixedLen = 1 + 4 + 32 + 32 + 1 + 32 + 1 + 8 + 1 + 8 + 2
	if len(b) < fixedLen {
		return nil, fmt.Errorf("collaborator: restore buffer too short")
	}
	e := &Engine{client: client, host: host}
	off := 0
	e.phase = Phase(b[off])
	off++
	e.participantID = binary.BigEndian.Uint32(b[off:])
	off += 4
	copy(e.participantPK[:], b[off:off+32])
	off += 32
	copy(e.coordinatorPK[:], b[off:off+32])
	off += 32
	haveBox := b[off]
	off++
	if haveBox != 0 {
		var pub [32]byte
		copy(pub[:], b[off:off+32])
		e.coordinatorBoxPub = &pub
	}
	off += 32
	haveRound := b[off]
	off++
	e.haveRound = haveRound != 0
	e.round.RoundID = binary.BigEndian.Uint64(b[off:])
	off += 8
	e.round.DataType = model.DataType(b[off])
	off++
	e.retryBackoff = time.Duration(binary.BigEndian.Uint64(b[off:]))
	off += 8
	keyLen := int(binary.BigEndian.Uint16(b[off:]))
	off += 2
	if len(b) < off+keyLen {
		return nil, fmt.Errorf("collaborator: restore buffer truncated signing key")
	}
	e.signPriv = append(ed25519.PrivateKey(nil), b[off:off+keyLen]...)
	return e, nil
}

package message

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/semaphore"

	"github.com/ishaileshpant/fl-go/internal/engine"
	"github.com/ishaileshpant/fl-go/internal/eventfabric"
	"github.com/ishaileshpant/fl-go/internal/reqchannel"
)

// Additional pipeline errors beyond those in message.go (spec §7).
var (
	ErrUnexpectedMessage = errors.New("message: tag does not match the active phase")
	ErrDecryptFailed     = errors.New("message: decrypt failed")
	ErrCancelled         = errors.New("message: pipeline cancelled")
)

// Decrypter unseals a masked payload under the coordinator's current secret
// key (spec §4.4 step 7). Implemented by internal/crypto; declared here as
// an interface so this package does not import internal/crypto.
type Decrypter interface {
	Decrypt(ctx context.Context, payload []byte) ([]byte, error)
}

// Pipeline implements the ordered chain of spec §4.4.
type Pipeline struct {
	Fabric         *eventfabric.Fabric
	ReqChan        *reqchannel.Channel[engine.Request, engine.Response]
	CPUPool        *semaphore.Weighted // shared by signature-verify and decrypt (spec §5)
	Reassembler    *Reassembler
	MaskingEnabled bool
	Decrypter      Decrypter
}

// phaseAccepts maps the active engine phase to the tags it will admit (spec
// §4.4 step 2). Only Collect accepts client-submitted tags; every other
// phase rejects with UnexpectedMessage, matching the state chart's "only
// Collect processes requests" contract (spec §4.6).
func phaseAccepts(state eventfabric.StateName, tag Tag) bool {
	if state != eventfabric.StateCollect {
		return false
	}
	switch tag {
	case TagUpdate, TagSum, TagSum2, TagChunk:
		return true
	default:
		return false
	}
}

// Process runs raw bytes through every stage and returns the engine's
// response. It recurses once when multipart reassembly completes, re-
// running the full chain against the reassembled Message bytes (spec §4.4
// step 6: "concatenate and re-parse as the final payload").
func (p *Pipeline) Process(ctx context.Context, raw []byte) (engine.Response, error) {
	select {
	case <-ctx.Done():
		return engine.Response{Kind: engine.ResponseCancelled}, ErrCancelled
	default:
	}

	// 1. Buffer-wrap.
	msg, err := Unmarshal(raw)
	if err != nil {
		return engine.Response{}, err
	}

	// 2. Phase filter.
	state, _ := p.Fabric.State.Get()
	if !phaseAccepts(state, msg.Tag) {
		return engine.Response{}, ErrUnexpectedMessage
	}

	// 3. Signature verify, offloaded to the bounded CPU pool.
	if err := p.CPUPool.Acquire(ctx, 1); err != nil {
		return engine.Response{Kind: engine.ResponseCancelled}, ErrCancelled
	}
	ok := msg.VerifyDetached()
	p.CPUPool.Release(1)
	if !ok {
		return engine.Response{}, ErrInvalidSignature
	}

	// 4. Coordinator-key verify.
	keys, _ := p.Fabric.Keys.Get()
	if msg.CoordinatorPK != keys.PublicKey {
		return engine.Response{}, ErrInvalidCoordinatorKey
	}

	// 6. Multipart reassemble, if flagged — takes priority over Parse since
	// a CHUNK-tagged message's payload is a ChunkPayload, not the logical
	// payload itself.
	if msg.IsMultipart {
		chunk, err := UnmarshalChunk(msg.Payload)
		if err != nil {
			return engine.Response{}, err
		}
		full, complete, err := p.Reassembler.Add(msg.ParticipantPK, chunk)
		if err != nil {
			return engine.Response{}, err
		}
		if !complete {
			// Not an error: this chunk is accepted and buffered, but there
			// is nothing to dispatch yet.
			return engine.Response{Kind: engine.ResponseOK}, nil
		}
		return p.Process(ctx, full)
	}

	// 5. Parse.
	var payload UpdatePayload
	switch msg.Tag {
	case TagUpdate:
		payload, err = UnmarshalUpdate(msg.Payload)
		if err != nil {
			return engine.Response{}, err
		}
	default:
		// SUM/SUM2 masking-handshake payloads do not produce an
		// engine.Request in this implementation; acknowledge without
		// dispatch.
		return engine.Response{Kind: engine.ResponseOK}, nil
	}

	// 7. Decrypt, if masking enabled: unseal the mask seed carried alongside
	// the masked model bytes (SPEC_FULL.md §4 supplement). The model bytes
	// themselves are masked-object payloads consumed directly by the
	// aggregator's UnmaskSum, not symmetrically encrypted.
	var maskSeed *[32]byte
	if p.MaskingEnabled && len(payload.MaskSeedSealed) > 0 {
		if err := p.CPUPool.Acquire(ctx, 1); err != nil {
			return engine.Response{Kind: engine.ResponseCancelled}, ErrCancelled
		}
		raw, err := p.Decrypter.Decrypt(ctx, payload.MaskSeedSealed)
		p.CPUPool.Release(1)
		if err != nil {
			return engine.Response{}, fmt.Errorf("%w: %v", ErrDecryptFailed, err)
		}
		if len(raw) != 32 {
			return engine.Response{}, fmt.Errorf("%w: unsealed mask seed has length %d, want 32", ErrDecryptFailed, len(raw))
		}
		var seed [32]byte
		copy(seed[:], raw)
		maskSeed = &seed
	}

	// 8. Engine dispatch.
	req := engine.Request{
		ParticipantID: payload.ParticipantID,
		ModelVersion:  payload.ModelVersion,
		ModelBytes:    payload.ModelBytes,
		Stake:         payload.Stake,
		Loss:          payload.Loss,
		MaskSeed:      maskSeed,
	}
	copy(req.ParticipantPK[:], msg.ParticipantPK[:])

	resp, err := p.ReqChan.Send(ctx, req)
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return engine.Response{Kind: engine.ResponseCancelled}, ErrCancelled
	}
	return resp, err
}

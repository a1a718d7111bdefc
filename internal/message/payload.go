package message

import (
	"encoding/binary"
	"fmt"
	"math"
)

// UpdatePayload is the TagUpdate payload: the fields the pipeline's Parse
// stage decodes into an engine.Request (spec §6 EngineRequest carries
// participant_id, model_version, model_bytes, stake, loss, and an optional
// mask_seed).
//
// MaskSeedSealed carries the mask seed sealed under the coordinator's
// current box public key (SPEC_FULL.md §4 supplement resolving spec §9's
// "mask seed lifecycle" open question), not the raw 32-byte seed — it is
// variable-length because a NaCl anonymous sealed box adds a 32-byte
// ephemeral key and a 16-byte authentication tag to the 32-byte seed.
type UpdatePayload struct {
	ParticipantID  uint32
	ModelVersion   uint32
	ModelBytes     []byte
	Stake          uint32
	Loss           float32
	MaskSeedSealed []byte // present only when masking is enabled; nil otherwise
}

const updateFixedLen = 4 + 4 + 4 + 4 + 4 // participant_id, model_version, len(model_bytes), stake, loss

// MarshalUpdate serializes an UpdatePayload. A length-prefixed sealed mask
// seed is appended when present; a zero length prefix means absent.
func MarshalUpdate(p UpdatePayload) []byte {
	size := updateFixedLen + len(p.ModelBytes) + 2 + len(p.MaskSeedSealed)
	buf := make([]byte, size)
	off := 0
	binary.BigEndian.PutUint32(buf[off:], p.ParticipantID)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], p.ModelVersion)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], uint32(len(p.ModelBytes)))
	off += 4
	binary.BigEndian.PutUint32(buf[off:], p.Stake)
	off += 4
	binary.BigEndian.PutUint32(buf[off:], math.Float32bits(p.Loss))
	off += 4
	copy(buf[off:off+len(p.ModelBytes)], p.ModelBytes)
	off += len(p.ModelBytes)
	binary.BigEndian.PutUint16(buf[off:], uint16(len(p.MaskSeedSealed)))
	off += 2
	copy(buf[off:], p.MaskSeedSealed)
	return buf
}

// UnmarshalUpdate parses an UpdatePayload out of b.
func UnmarshalUpdate(b []byte) (UpdatePayload, error) {
	if len(b) < updateFixedLen {
		return UpdatePayload{}, fmt.Errorf("%w: update payload shorter than fixed fields", ErrMalformedPayload)
	}
	var p UpdatePayload
	off := 0
	p.ParticipantID = binary.BigEndian.Uint32(b[off:])
	off += 4
	p.ModelVersion = binary.BigEndian.Uint32(b[off:])
	off += 4
	modelLen := int(binary.BigEndian.Uint32(b[off:]))
	off += 4
	p.Stake = binary.BigEndian.Uint32(b[off:])
	off += 4
	p.Loss = math.Float32frombits(binary.BigEndian.Uint32(b[off:]))
	off += 4
	if len(b) < off+modelLen+2 {
		return UpdatePayload{}, fmt.Errorf("%w: update payload truncated model bytes", ErrMalformedPayload)
	}
	p.ModelBytes = append([]byte(nil), b[off:off+modelLen]...)
	off += modelLen
	sealedLen := int(binary.BigEndian.Uint16(b[off:]))
	off += 2
	if sealedLen > 0 {
		if len(b) < off+sealedLen {
			return UpdatePayload{}, fmt.Errorf("%w: update payload truncated mask seed", ErrMalformedPayload)
		}
		p.MaskSeedSealed = append([]byte(nil), b[off:off+sealedLen]...)
		off += sealedLen
	}
	return p, nil
}

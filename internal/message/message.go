// Package message implements the wire Message format, its payload variants,
// and the ingress pipeline of spec §4.4.
package message

import (
	"crypto/ed25519"
	"encoding/binary"
	"errors"
	"fmt"
)

// Tag discriminates the message payload (spec §3 Message).
type Tag uint8

const (
	TagSum Tag = iota
	TagUpdate
	TagSum2
	TagChunk
)

func (t Tag) String() string {
	switch t {
	case TagSum:
		return "SUM"
	case TagUpdate:
		return "UPDATE"
	case TagSum2:
		return "SUM2"
	case TagChunk:
		return "CHUNK"
	default:
		return fmt.Sprintf("Tag(%d)", uint8(t))
	}
}

const (
	sigLen   = 64
	pkLen    = 32
	headerLen = sigLen + pkLen + pkLen + 1 /*flags*/ + 1 /*tag*/
)

const flagMultipart = 0x01

// Errors returned while parsing/validating a Message (spec §7).
var (
	ErrTooShort          = errors.New("message: buffer shorter than the fixed header")
	ErrInvalidSignature  = errors.New("message: signature verification failed")
	ErrInvalidCoordinatorKey = errors.New("message: coordinator public key mismatch")
	ErrMalformedPayload  = errors.New("message: malformed payload")
)

// Message is the wire form described in spec §3.
type Message struct {
	Signature        [sigLen]byte
	ParticipantPK    [pkLen]byte
	CoordinatorPK    [pkLen]byte
	IsMultipart      bool
	Tag              Tag
	Payload          []byte
}

// Marshal serializes the fixed header followed by Payload.
func (m Message) Marshal() []byte {
	buf := make([]byte, headerLen+len(m.Payload))
	off := 0
	copy(buf[off:], m.Signature[:])
	off += sigLen
	copy(buf[off:], m.ParticipantPK[:])
	off += pkLen
	copy(buf[off:], m.CoordinatorPK[:])
	off += pkLen
	flags := byte(0)
	if m.IsMultipart {
		flags |= flagMultipart
	}
	buf[off] = flags
	off++
	buf[off] = byte(m.Tag)
	off++
	copy(buf[off:], m.Payload)
	return buf
}

// Unmarshal parses the fixed header and payload out of b. It does not
// verify the signature; that is the pipeline's signature-verify stage.
func Unmarshal(b []byte) (Message, error) {
	if len(b) < headerLen {
		return Message{}, ErrTooShort
	}
	var m Message
	off := 0
	copy(m.Signature[:], b[off:off+sigLen])
	off += sigLen
	copy(m.ParticipantPK[:], b[off:off+pkLen])
	off += pkLen
	copy(m.CoordinatorPK[:], b[off:off+pkLen])
	off += pkLen
	flags := b[off]
	off++
	m.IsMultipart = flags&flagMultipart != 0
	m.Tag = Tag(b[off])
	off++
	m.Payload = append([]byte(nil), b[off:]...)
	return m, nil
}

// signedContent is header (minus signature) || payload: what the signature
// covers (spec §3: "Signature covers header + payload").
func (m Message) signedContent() []byte {
	buf := make([]byte, pkLen+pkLen+1+1+len(m.Payload))
	off := 0
	copy(buf[off:], m.ParticipantPK[:])
	off += pkLen
	copy(buf[off:], m.CoordinatorPK[:])
	off += pkLen
	flags := byte(0)
	if m.IsMultipart {
		flags |= flagMultipart
	}
	buf[off] = flags
	off++
	buf[off] = byte(m.Tag)
	off++
	copy(buf[off:], m.Payload)
	return buf
}

// Sign computes m.Signature over header||payload using sk, the ed25519
// analogue of the original's `verify_detached` signing side.
func (m *Message) Sign(sk ed25519.PrivateKey) {
	sig := ed25519.Sign(sk, m.signedContent())
	copy(m.Signature[:], sig)
}

// VerifyDetached checks m.Signature against m.ParticipantPK, as spec §3
// requires ("verify_detached MUST succeed against the carried participant
// public key"). Grounded on crypto/ed25519 used directly (not via a
// third-party wrapper) in _examples/perplext-LLMrecon/src/update/sign.go.
func (m Message) VerifyDetached() bool {
	return ed25519.Verify(ed25519.PublicKey(m.ParticipantPK[:]), m.signedContent(), m.Signature[:])
}

// ChunkPayload is spec §3's chunk payload:
// (message_id:16b, chunk_id:16b, last:1b, data:bytes).
type ChunkPayload struct {
	MessageID [16]byte
	ChunkID   uint16
	Last      bool
	Data      []byte
}

// MarshalChunk serializes a ChunkPayload.
func MarshalChunk(c ChunkPayload) []byte {
	buf := make([]byte, 16+2+1+len(c.Data))
	copy(buf[0:16], c.MessageID[:])
	binary.BigEndian.PutUint16(buf[16:18], c.ChunkID)
	if c.Last {
		buf[18] = 1
	}
	copy(buf[19:], c.Data)
	return buf
}

// UnmarshalChunk parses a ChunkPayload.
func UnmarshalChunk(b []byte) (ChunkPayload, error) {
	if len(b) < 19 {
		return ChunkPayload{}, fmt.Errorf("%w: chunk payload too short", ErrMalformedPayload)
	}
	var c ChunkPayload
	copy(c.MessageID[:], b[0:16])
	c.ChunkID = binary.BigEndian.Uint16(b[16:18])
	c.Last = b[18] != 0
	c.Data = append([]byte(nil), b[19:]...)
	return c, nil
}

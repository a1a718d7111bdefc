package message

import (
	"bytes"
	"sync"
)

// groupKey identifies a multipart group (spec §4.4 step 6: "group by
// (participant_pk, message_id)").
type groupKey struct {
	participantPK [32]byte
	messageID     [16]byte
}

type chunkGroup struct {
	chunks      map[uint16][]byte
	lastChunkID uint16
	haveLast    bool
	bytes       int
}

// Reassembler buffers out-of-order chunks per spec §4.4 step 6. An
// implementation SHOULD bound per-participant outstanding bytes (spec §9
// Open Question); MaxBytesPerGroup enforces that bound, defaulting to 16
// MiB per the SPEC_FULL.md supplement.
type Reassembler struct {
	mu               sync.Mutex
	groups           map[groupKey]*chunkGroup
	MaxBytesPerGroup int
}

// DefaultMaxBytesPerGroup is the per-(participant, message_id) outstanding
// byte cap when the caller does not configure one explicitly.
const DefaultMaxBytesPerGroup = 16 << 20

// NewReassembler creates an empty Reassembler.
func NewReassembler() *Reassembler {
	return &Reassembler{
		groups:           make(map[groupKey]*chunkGroup),
		MaxBytesPerGroup: DefaultMaxBytesPerGroup,
	}
}

// ErrMultipartTooLarge is returned when a group's outstanding bytes would
// exceed MaxBytesPerGroup.
var ErrMultipartTooLarge = errMultipartTooLarge{}

type errMultipartTooLarge struct{}

func (errMultipartTooLarge) Error() string { return "message: multipart group exceeds byte cap" }

// Add ingests one chunk. It returns (payload, true, nil) once the group is
// complete (the chunk whose Last=true has been seen and the chunk count
// matches chunk_id+1, spec §4.4 step 6), or (nil, false, nil) if the group
// is still incomplete. Chunks may arrive out of order (testable property 9).
func (r *Reassembler) Add(participantPK [32]byte, c ChunkPayload) ([]byte, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := groupKey{participantPK: participantPK, messageID: c.MessageID}
	g, ok := r.groups[key]
	if !ok {
		g = &chunkGroup{chunks: make(map[uint16][]byte)}
		r.groups[key] = g
	}

	if _, dup := g.chunks[c.ChunkID]; !dup {
		g.bytes += len(c.Data)
		if r.MaxBytesPerGroup > 0 && g.bytes > r.MaxBytesPerGroup {
			delete(r.groups, key)
			return nil, false, ErrMultipartTooLarge
		}
	}
	g.chunks[c.ChunkID] = c.Data
	if c.Last {
		g.lastChunkID = c.ChunkID
		g.haveLast = true
	}

	if g.haveLast && len(g.chunks) == int(g.lastChunkID)+1 {
		delete(r.groups, key)
		var buf bytes.Buffer
		for i := uint16(0); i <= g.lastChunkID; i++ {
			buf.Write(g.chunks[i])
		}
		return buf.Bytes(), true, nil
	}
	return nil, false, nil
}

// EvictAll clears all in-flight groups, called at the Collect→Aggregate
// round boundary per the SPEC_FULL.md supplement ("evict stale groups at
// round boundaries").
func (r *Reassembler) EvictAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.groups = make(map[groupKey]*chunkGroup)
}

package eventfabric

import "github.com/ishaileshpant/fl-go/internal/model"

// KeyPair is the coordinator's current signing keypair (spec §3
// RoundParameters.coordinator_public_key, Aggregator state.keypair).
type KeyPair struct {
	PublicKey  [32]byte
	PrivateKey []byte // not published externally in practice; kept for engine-internal use
}

// RoundParameters mirrors spec §3: immutable within a round, rotated at
// each new round.
type RoundParameters struct {
	CoordinatorPublicKey [32]byte
	RoundSeed            [32]byte
	DataType             model.DataType
	PerRoundParticipants  uint32
	TrainingRounds       uint32
	RoundID              uint64
}

// StateName enumerates the engine's published phase (spec §6 Published
// events: StateName).
type StateName string

const (
	StateIdle      StateName = "Idle"
	StateCollect   StateName = "Collect"
	StateAggregate StateName = "Aggregate"
	StateFailure   StateName = "Failure"
	StateShutdown  StateName = "Shutdown"
)

// SharedModel is the reference-counted (here: immutable-after-publish)
// model wrapper broadcast on the model channel (spec §3 "Models embedded in
// published updates are shared-immutable after publication", §6
// ModelUpdate).
type SharedModel struct {
	Model    model.Model
	DataType model.DataType
	RoundID  uint64
}

// StatEntry is one per-client metric record (spec §6 Stats).
type StatEntry struct {
	ClientID string
	RoundID  uint64
	Loss     float32
	Samples  uint32
}

// Stats is the published list of per-update records for the most recently
// completed round.
type Stats struct {
	Entries []StatEntry
}

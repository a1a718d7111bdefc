package grpcapi

import (
	"encoding/binary"
	"encoding/json"
	"fmt"

	"github.com/ishaileshpant/fl-go/internal/engine"
	"github.com/ishaileshpant/fl-go/internal/eventfabric"
	"github.com/ishaileshpant/fl-go/internal/model"
)

// encodeResponse/decodeResponse carry engine.Response over the wire as
// [kind:1][reason_len:2 BE][reason bytes] (spec §6 "Engine response:
// Ok(()) | Rejected(reason) | Cancelled").
func encodeResponse(r engine.Response) []byte {
	reason := []byte(r.Reason)
	buf := make([]byte, 1+2+len(reason))
	buf[0] = byte(r.Kind)
	binary.BigEndian.PutUint16(buf[1:3], uint16(len(reason)))
	copy(buf[3:], reason)
	return buf
}

func decodeResponse(b []byte) (engine.Response, error) {
	if len(b) < 3 {
		return engine.Response{}, fmt.Errorf("grpcapi: response buffer too short")
	}
	kind := engine.ResponseKind(b[0])
	n := int(binary.BigEndian.Uint16(b[1:3]))
	if len(b) < 3+n {
		return engine.Response{}, fmt.Errorf("grpcapi: response buffer truncated")
	}
	return engine.Response{Kind: kind, Reason: string(b[3 : 3+n])}, nil
}

// encodeSharedModel serializes a fetched model as
// [present:1][round_id:8 BE][model object bytes...], matching spec §3's
// Serialized Model Object framing for the model portion (nil -> present=0,
// spec §4.8 "Returns None if no value has been published yet").
func encodeSharedModel(m *eventfabric.SharedModel) ([]byte, error) {
	if m == nil {
		return []byte{0}, nil
	}
	body, err := model.Encode(m.Model, m.DataType)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 1+8+len(body))
	buf[0] = 1
	binary.BigEndian.PutUint64(buf[1:9], m.RoundID)
	copy(buf[9:], body)
	return buf, nil
}

func decodeSharedModel(b []byte) (*eventfabric.SharedModel, error) {
	if len(b) == 0 || b[0] == 0 {
		return nil, nil
	}
	if len(b) < 9 {
		return nil, fmt.Errorf("grpcapi: shared model buffer too short")
	}
	roundID := binary.BigEndian.Uint64(b[1:9])
	m, dt, err := model.Decode(b[9:])
	if err != nil {
		return nil, err
	}
	return &eventfabric.SharedModel{Model: m, DataType: dt, RoundID: roundID}, nil
}

// encodeStats/decodeStats use plain JSON: Stats is an ancillary monitoring
// payload, not part of spec §3's wire model format, so there is no exact-
// framing requirement that would call for a custom binary layout.
func encodeStats(s *eventfabric.Stats) ([]byte, error) {
	if s == nil {
		return json.Marshal((*eventfabric.Stats)(nil))
	}
	return json.Marshal(s)
}

func decodeStats(b []byte) (*eventfabric.Stats, error) {
	var s *eventfabric.Stats
	if err := json.Unmarshal(b, &s); err != nil {
		return nil, err
	}
	return s, nil
}

package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"graphstate/internal/graph"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var ErrVersionMismatch = errors.New("record version mismatch")

// BuildSnapshot captures a split graph as a persistable Snapshot with a
// fresh identity. The State's leaves are flattened and JSON-encoded, so any
// non-JSON-codable leaf value fails here rather than at load time.
func BuildSnapshot(name string, def *graph.GraphDef, state *graph.State) (Snapshot, error) {
	defJSON, err := def.MarshalJSON()
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode graphdef: %w", err)
	}

	leaves, stateDef := state.Flatten()
	stateDefJSON, err := stateDef.MarshalJSON()
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode statedef: %w", err)
	}
	leavesJSON, err := json.Marshal(leaves)
	if err != nil {
		return Snapshot{}, fmt.Errorf("encode leaves: %w", err)
	}

	return Snapshot{
		VersionedRecord: VersionedRecord{
			SchemaVersion: CurrentSchemaVersion,
			CodecVersion:  CurrentCodecVersion,
		},
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		GraphDef:  defJSON,
		StateDef:  stateDefJSON,
		Leaves:    leavesJSON,
	}, nil
}

// RestoreSnapshot decodes a Snapshot back into a GraphDef and State. Leaf
// values come back in their generic JSON forms (float64, []any, ...).
func RestoreSnapshot(snapshot Snapshot) (*graph.GraphDef, *graph.State, error) {
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return nil, nil, err
	}

	def := &graph.GraphDef{}
	if err := def.UnmarshalJSON(snapshot.GraphDef); err != nil {
		return nil, nil, fmt.Errorf("decode graphdef: %w", err)
	}

	stateDef := &graph.StateDef{}
	if err := stateDef.UnmarshalJSON(snapshot.StateDef); err != nil {
		return nil, nil, fmt.Errorf("decode statedef: %w", err)
	}

	var leaves []any
	if err := json.Unmarshal(snapshot.Leaves, &leaves); err != nil {
		return nil, nil, fmt.Errorf("decode leaves: %w", err)
	}

	state, err := stateDef.Unflatten(leaves)
	if err != nil {
		return nil, nil, err
	}
	return def, state, nil
}

// EncodeSnapshot serializes a Snapshot for storage backends that persist
// whole records.
func EncodeSnapshot(snapshot Snapshot) ([]byte, error) {
	return json.Marshal(snapshot)
}

func DecodeSnapshot(data []byte) (Snapshot, error) {
	var snapshot Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return Snapshot{}, err
	}
	if err := checkVersion(snapshot.VersionedRecord); err != nil {
		return Snapshot{}, err
	}
	return snapshot, nil
}

func checkVersion(record VersionedRecord) error {
	if record.SchemaVersion != CurrentSchemaVersion || record.CodecVersion != CurrentCodecVersion {
		return fmt.Errorf("%w: schema=%d codec=%d", ErrVersionMismatch,
			record.SchemaVersion, record.CodecVersion)
	}
	return nil
}

package storage

import (
	"context"
	"encoding/json"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Snapshot is one persisted (GraphDef, State) pair: the structural
// description, the flattened state metadata, and the leaf values, each in
// their JSON forms. Leaf values must be JSON-codable; that is the host's
// side of the contract.
type Snapshot struct {
	VersionedRecord
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"created_at"`
	GraphDef  json.RawMessage `json:"graphdef"`
	StateDef  json.RawMessage `json:"statedef"`
	Leaves    json.RawMessage `json:"leaves"`
}

// Store defines persistence operations for graph snapshots.
type Store interface {
	Init(ctx context.Context) error
	SaveSnapshot(ctx context.Context, snapshot Snapshot) error
	GetSnapshot(ctx context.Context, id string) (Snapshot, bool, error)
	ListSnapshots(ctx context.Context) ([]Snapshot, error)
	DeleteSnapshot(ctx context.Context, id string) error
}

// CloseIfSupported closes stores that hold external resources.
func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

// Package graphstate is the public surface of the module: the split, merge
// and update operations over reference-semantics graphs, the filter
// combinators, and a snapshot client for persisting checkpoints.
package graphstate

import (
	"context"
	"errors"
	"fmt"

	"graphstate/internal/graph"
	"graphstate/internal/storage"
	"graphstate/internal/variable"
)

// Core types re-exported from the internal packages.
type (
	Node     = graph.Node
	Attr     = graph.Attr
	Value    = graph.Value
	GraphDef = graph.GraphDef
	State    = graph.State
	StateDef = graph.StateDef
	Filter   = graph.Filter
	Path     = graph.Path
	Scope    = graph.Scope
	Variable = variable.Variable
)

// Sentinel errors.
var (
	ErrStructuralMismatch = graph.ErrStructuralMismatch
	ErrFilterExhausted    = graph.ErrFilterExhausted
	ErrIdentityCycle      = graph.ErrIdentityCycle
	ErrStaleMutation      = graph.ErrStaleMutation
)

// Core operations.
var (
	Split      = graph.Split
	Merge      = graph.Merge
	Update     = graph.Update
	StateOf    = graph.StateOf
	GraphDefOf = graph.GraphDefOf
	NewScope   = graph.NewScope

	WalkNodes     = graph.WalkNodes
	Children      = graph.Children
	SetAttributes = graph.SetAttributes
	TrainMode     = graph.TrainMode
	EvalMode      = graph.EvalMode
)

// Filters.
var (
	OfKind     = graph.OfKind
	PathPrefix = graph.PathPrefix
	Everything = graph.Everything
	Nothing    = graph.Nothing
	Not        = graph.Not
	AnyOf      = graph.AnyOf
	AllOf      = graph.AllOf
)

// Variable constructors.
var (
	NewVariable = variable.New
	NewParam    = variable.Param
	NewCount    = variable.Count
)

// Node registration.
var (
	RegisterNodeKind     = graph.RegisterNodeKind
	MustRegisterNodeKind = graph.MustRegisterNodeKind
)

// Options configures a checkpoint Client.
type Options struct {
	StoreKind string // "memory" (default) or "sqlite"
	DBPath    string
}

// Client persists and restores graph checkpoints through a storage backend.
type Client struct {
	store storage.Store
}

// NewClient opens (and initializes) the configured store.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	store, err := storage.NewStore(opts.StoreKind, opts.DBPath)
	if err != nil {
		return nil, err
	}
	if err := store.Init(ctx); err != nil {
		return nil, fmt.Errorf("init %s store: %w", opts.StoreKind, err)
	}
	return &Client{store: store}, nil
}

// Close releases the underlying store if it holds external resources.
func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// SaveCheckpoint splits root with no filters and persists the result under
// name. It returns the snapshot ID.
func (c *Client) SaveCheckpoint(ctx context.Context, name string, root Node) (string, error) {
	def, states, err := graph.Split(root)
	if err != nil {
		return "", err
	}
	snapshot, err := storage.BuildSnapshot(name, def, states[0])
	if err != nil {
		return "", err
	}
	if err := c.store.SaveSnapshot(ctx, snapshot); err != nil {
		return "", err
	}
	return snapshot.ID, nil
}

// LoadCheckpoint rebuilds a fresh graph from the named snapshot. The node
// kinds recorded in the snapshot must be registered.
func (c *Client) LoadCheckpoint(ctx context.Context, id string) (Node, error) {
	def, state, err := c.snapshotParts(ctx, id)
	if err != nil {
		return nil, err
	}
	return def.Merge(state)
}

// RestoreCheckpoint writes the named snapshot's values into an existing
// graph in place. The snapshot's structure must match the graph's.
func (c *Client) RestoreCheckpoint(ctx context.Context, id string, root Node) error {
	snapshotDef, state, err := c.snapshotParts(ctx, id)
	if err != nil {
		return err
	}
	currentDef, err := graph.GraphDefOf(root)
	if err != nil {
		return err
	}
	if !currentDef.Equal(snapshotDef) {
		return fmt.Errorf("%w: snapshot %s was taken from a graph with a different shape",
			ErrStructuralMismatch, id)
	}
	return graph.Update(root, state)
}

// Snapshots lists the persisted snapshots ordered by creation time.
func (c *Client) Snapshots(ctx context.Context) ([]storage.Snapshot, error) {
	return c.store.ListSnapshots(ctx)
}

// DeleteSnapshot removes one snapshot.
func (c *Client) DeleteSnapshot(ctx context.Context, id string) error {
	return c.store.DeleteSnapshot(ctx, id)
}

func (c *Client) snapshotParts(ctx context.Context, id string) (*GraphDef, *State, error) {
	snapshot, ok, err := c.store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, errors.New("snapshot not found: " + id)
	}
	return storage.RestoreSnapshot(snapshot)
}

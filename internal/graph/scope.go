package graph

import "github.com/google/uuid"

// Scope is an explicit context token for work that crosses a value-semantics
// boundary. Variables installed by MergeIn are bound to the scope; once it
// is closed, writes through the rebuilt graph fail with ErrStaleMutation
// instead of silently invalidating snapshots taken before the boundary.
//
// Scopes carry no locks. The core assumes single-threaded sequential use;
// a concurrent host must add its own synchronization.
type Scope struct {
	id     string
	active bool
}

// NewScope returns an active scope with a fresh identity.
func NewScope() *Scope {
	return &Scope{id: uuid.NewString(), active: true}
}

func (s *Scope) ID() string { return s.id }

// Active reports whether the scope still permits mutation.
func (s *Scope) Active() bool { return s.active }

// Close deactivates the scope. Closing is idempotent.
func (s *Scope) Close() { s.active = false }

package variable

import (
	"errors"
	"fmt"
)

// ErrStaleMutation is returned when a Variable bound to a mutation guard is
// written after that guard has been released. It is a best-effort signal that
// a snapshot derived from this Variable is logically still in flight.
var ErrStaleMutation = errors.New("stale mutation: variable guard is no longer active")

// Guard restricts mutation of a Variable to callers that can present it.
// The graph package's Scope is the canonical implementation.
type Guard interface {
	ID() string
	Active() bool
}

// Variable is a mutable single-slot container for one leaf value. The kind is
// fixed at construction and acts as the Variable's filter key. Two Variables
// are the same entity only when they are the same instance; value equality
// never implies identity.
type Variable struct {
	kind  string
	value any
	guard Guard
}

// New returns a Variable of the given kind holding value.
func New(kind string, value any) *Variable {
	return &Variable{kind: kind, value: value}
}

// Param returns a Variable of the built-in "param" kind.
func Param(value any) *Variable { return New(KindParam, value) }

// BatchStat returns a Variable of the built-in "batch_stat" kind.
func BatchStat(value any) *Variable { return New(KindBatchStat, value) }

// Count returns a Variable of the built-in "count" kind.
func Count(value any) *Variable { return New(KindCount, value) }

func (v *Variable) Kind() string { return v.kind }

func (v *Variable) Value() any { return v.value }

// Set replaces the contained value in place. It fails if the Variable is
// bound to a guard that is no longer active.
func (v *Variable) Set(value any) error {
	if v.guard != nil && !v.guard.Active() {
		return fmt.Errorf("%w (guard %s)", ErrStaleMutation, v.guard.ID())
	}
	v.value = value
	return nil
}

// SetIn replaces the contained value on behalf of g. It fails if the Variable
// is bound to a different guard, or to one that has been released.
func (v *Variable) SetIn(g Guard, value any) error {
	if v.guard != nil && g != nil && v.guard.ID() != g.ID() {
		return fmt.Errorf("%w: guard %s does not own this variable", ErrStaleMutation, g.ID())
	}
	return v.Set(value)
}

// Bind attaches a mutation guard. Binding a nil guard detaches.
func (v *Variable) Bind(g Guard) { v.guard = g }

// Guarded reports whether the Variable is currently bound to a guard.
func (v *Variable) Guarded() bool { return v.guard != nil }

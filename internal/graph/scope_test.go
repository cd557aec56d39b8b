package graph

import (
	"errors"
	"testing"

	"graphstate/internal/variable"
)

func TestMergeInBindsVariablesToScope(t *testing.T) {
	def, states, err := Split(newScenario())
	if err != nil {
		t.Fatalf("split: %v", err)
	}

	scope := NewScope()
	rebuilt, err := def.MergeIn(scope, states[0])
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	got := rebuilt.(*scenario)

	if !got.w.Guarded() {
		t.Fatal("merged variables should be bound to the scope")
	}
	if err := got.w.Set([]float64{1}); err != nil {
		t.Fatalf("write inside an active scope: %v", err)
	}

	scope.Close()
	if err := got.w.Set([]float64{2}); !errors.Is(err, variable.ErrStaleMutation) {
		t.Fatalf("expected ErrStaleMutation after close, got %v", err)
	}
	if err := got.w.Set([]float64{2}); !errors.Is(err, ErrStaleMutation) {
		t.Fatalf("package-level alias should match too, got %v", err)
	}
}

func TestScopeCloseIsIdempotent(t *testing.T) {
	scope := NewScope()
	if !scope.Active() {
		t.Fatal("fresh scope should be active")
	}
	scope.Close()
	scope.Close()
	if scope.Active() {
		t.Fatal("closed scope should stay closed")
	}
}

func TestScopesHaveDistinctIdentities(t *testing.T) {
	a, b := NewScope(), NewScope()
	if a.ID() == b.ID() {
		t.Fatalf("two scopes share id %s", a.ID())
	}
}

func TestSetInRejectsForeignScope(t *testing.T) {
	owner := NewScope()
	other := NewScope()

	v := variable.Param(1.0)
	v.Bind(owner)

	if err := v.SetIn(other, 2.0); !errors.Is(err, variable.ErrStaleMutation) {
		t.Fatalf("expected ErrStaleMutation for foreign scope, got %v", err)
	}
	if err := v.SetIn(owner, 2.0); err != nil {
		t.Fatalf("owning scope write: %v", err)
	}
	if v.Value() != 2.0 {
		t.Fatalf("value: got %v, want 2", v.Value())
	}
}

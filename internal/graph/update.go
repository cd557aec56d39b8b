package graph

import (
	"fmt"

	"graphstate/internal/variable"
)

// Update writes the leaf values of the supplied States into the existing
// graph under root, in place. The Variable instances already in the graph
// are kept; only their contents change, so external references to them
// observe the new values. Paths absent from the States are left untouched.
//
// The target graph is re-traversed to recover its current path map, then
// every supplied path is validated against it before any value is written:
// a path with no Variable in the target, or a kind mismatch at a path, fails
// the whole call with the graph unchanged.
func Update(root Node, states ...*State) error {
	_, leaves, err := traverse(root)
	if err != nil {
		return err
	}

	target := make(map[string]*variable.Variable, len(leaves))
	for _, lf := range leaves {
		target[lf.path.String()] = lf.v
	}

	combined := MergeStates(states...)

	type assignment struct {
		dst   *variable.Variable
		value any
	}
	assignments := make([]assignment, 0, combined.Len())
	for _, path := range combined.paths {
		src := combined.vars[path.String()]
		dst, ok := target[path.String()]
		if !ok {
			return fmt.Errorf("%w: graph has no variable at supplied path %q", ErrStructuralMismatch, path)
		}
		if dst.Kind() != src.Kind() {
			return fmt.Errorf("%w: path %q holds kind %s but state supplies %s",
				ErrStructuralMismatch, path, dst.Kind(), src.Kind())
		}
		assignments = append(assignments, assignment{dst: dst, value: src.Value()})
	}

	for _, a := range assignments {
		if err := a.dst.Set(a.value); err != nil {
			return err
		}
	}
	return nil
}

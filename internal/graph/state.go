package graph

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"graphstate/internal/variable"
)

// State is an insertion-ordered mapping from structural paths to Variables,
// the value half of a split. States are snapshots: entries are added during
// traversal and never reordered afterwards.
type State struct {
	paths []Path
	vars  map[string]*variable.Variable
}

func NewState() *State {
	return &State{vars: make(map[string]*variable.Variable)}
}

func (s *State) add(path Path, v *variable.Variable) error {
	key := path.String()
	if _, exists := s.vars[key]; exists {
		return fmt.Errorf("%w: duplicate path %s", ErrStructuralMismatch, key)
	}
	s.paths = append(s.paths, path)
	s.vars[key] = v
	return nil
}

func (s *State) Len() int { return len(s.paths) }

// Get returns the Variable stored at path.
func (s *State) Get(path Path) (*variable.Variable, bool) {
	v, ok := s.vars[path.String()]
	return v, ok
}

// Paths returns the entry paths in insertion order. The slice is fresh; the
// paths themselves are shared.
func (s *State) Paths() []Path {
	out := make([]Path, len(s.paths))
	copy(out, s.paths)
	return out
}

// Variables returns the entry Variables in insertion order.
func (s *State) Variables() []*variable.Variable {
	out := make([]*variable.Variable, 0, len(s.paths))
	for _, path := range s.paths {
		out = append(out, s.vars[path.String()])
	}
	return out
}

// At returns the nested State under prefix: every entry whose path starts
// with prefix, re-keyed relative to it. The Variables are shared with the
// receiver.
func (s *State) At(prefix Path) *State {
	nested := NewState()
	for _, path := range s.paths {
		if !path.HasPrefix(prefix) {
			continue
		}
		trimmed := append(Path(nil), path[len(prefix):]...)
		// duplicate-free by construction; ignore the error path
		_ = nested.add(trimmed, s.vars[path.String()])
	}
	return nested
}

// Partition splits the entries across filters, first match wins. An entry
// matching no filter is a classification failure.
func (s *State) Partition(filters ...Filter) ([]*State, error) {
	if len(filters) == 0 {
		return []*State{s}, nil
	}
	out := make([]*State, len(filters))
	for i := range out {
		out[i] = NewState()
	}
	for _, path := range s.paths {
		v := s.vars[path.String()]
		assigned := false
		for i, f := range filters {
			if f.Matches(path, v.Kind()) {
				if err := out[i].add(path, v); err != nil {
					return nil, err
				}
				assigned = true
				break
			}
		}
		if !assigned {
			return nil, fmt.Errorf(
				"%w: variable at %s (kind %s) matched no filter; add a trailing Everything() to catch leftovers",
				ErrFilterExhausted, path, v.Kind(),
			)
		}
	}
	return out, nil
}

// MergeStates combines several States into one. Paths supplied by more than
// one State keep the first-supplied Variable, matching merge's lookup policy.
func MergeStates(states ...*State) *State {
	combined := NewState()
	for _, st := range states {
		if st == nil {
			continue
		}
		for _, path := range st.paths {
			if _, exists := combined.vars[path.String()]; exists {
				continue
			}
			_ = combined.add(path, st.vars[path.String()])
		}
	}
	return combined
}

// String renders the entries in insertion order, one per line.
func (s *State) String() string {
	var b strings.Builder
	for i, path := range s.paths {
		if i > 0 {
			b.WriteByte('\n')
		}
		v := s.vars[path.String()]
		fmt.Fprintf(&b, "%s: %s=%v", path, v.Kind(), v.Value())
	}
	return b.String()
}

// StateDef is the side metadata of a flattened State: the ordered paths and
// per-leaf kinds needed to rebuild a State of the same shape around a new
// sequence of leaf values. It is leaf-free and hashable, so a host
// transformation engine can treat it as an opaque cache key.
type StateDef struct {
	paths []Path
	kinds []string
}

// Flatten extracts the leaf values in entry order plus the metadata needed
// to reassemble an equivalent State via Unflatten.
func (s *State) Flatten() ([]any, *StateDef) {
	leaves := make([]any, 0, len(s.paths))
	def := &StateDef{
		paths: make([]Path, 0, len(s.paths)),
		kinds: make([]string, 0, len(s.paths)),
	}
	for _, path := range s.paths {
		v := s.vars[path.String()]
		leaves = append(leaves, v.Value())
		def.paths = append(def.paths, path)
		def.kinds = append(def.kinds, v.Kind())
	}
	return leaves, def
}

// Unflatten rebuilds a State from transformed leaves. The Variables are
// fresh instances carrying the recorded kinds; merge installs them into a
// reconstructed graph, update copies their values into an existing one.
func (d *StateDef) Unflatten(leaves []any) (*State, error) {
	if len(leaves) != len(d.paths) {
		return nil, fmt.Errorf("%w: state def declares %d leaves, got %d",
			ErrStructuralMismatch, len(d.paths), len(leaves))
	}
	st := NewState()
	for i, path := range d.paths {
		if err := st.add(path, variable.New(d.kinds[i], leaves[i])); err != nil {
			return nil, err
		}
	}
	return st, nil
}

func (d *StateDef) Len() int { return len(d.paths) }

// Paths returns the declared paths in order.
func (d *StateDef) Paths() []Path {
	out := make([]Path, len(d.paths))
	copy(out, d.paths)
	return out
}

// Kinds returns the declared per-leaf kinds in order.
func (d *StateDef) Kinds() []string {
	out := make([]string, len(d.kinds))
	copy(out, d.kinds)
	return out
}

// Fingerprint returns a stable content hash usable as a cache key.
func (d *StateDef) Fingerprint() string {
	parts := make([]string, 0, len(d.paths))
	for i, path := range d.paths {
		parts = append(parts, path.String()+"|"+d.kinds[i])
	}
	digest := sha1.Sum([]byte(strings.Join(parts, "\n")))
	return hex.EncodeToString(digest[:])
}

type stateDefJSON struct {
	Paths []string `json:"paths"`
	Kinds []string `json:"kinds"`
}

func (d *StateDef) MarshalJSON() ([]byte, error) {
	out := stateDefJSON{Kinds: d.kinds}
	for _, path := range d.paths {
		out.Paths = append(out.Paths, path.String())
	}
	return json.Marshal(out)
}

func (d *StateDef) UnmarshalJSON(data []byte) error {
	var in stateDefJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if len(in.Paths) != len(in.Kinds) {
		return fmt.Errorf("%w: %d paths but %d kinds", ErrStructuralMismatch, len(in.Paths), len(in.Kinds))
	}
	decoded := StateDef{kinds: in.Kinds}
	for _, s := range in.Paths {
		decoded.paths = append(decoded.paths, ParsePath(s))
	}
	*d = decoded
	return nil
}

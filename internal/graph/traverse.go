package graph

import (
	"encoding/json"
	"fmt"
	"strings"

	"graphstate/internal/variable"
)

// traversal walks an object graph depth-first, assigning each distinct node
// and Variable an identity index on first visit. Repeat visits produce bare
// references, which is how sharing and cycles terminate without duplication.
// A traversal is scoped to one call; no identity state outlives it.
type traversal struct {
	nextIndex int
	nodeIdx   map[Node]int
	varIdx    map[*variable.Variable]int
	nodes     []nodeDef
	leaves    []leaf
}

// leaf is one first-visit Variable in traversal order.
type leaf struct {
	path Path
	v    *variable.Variable
}

func newTraversal() *traversal {
	return &traversal{
		nodeIdx: make(map[Node]int),
		varIdx:  make(map[*variable.Variable]int),
	}
}

// traverse walks from root and returns the resulting GraphDef plus the
// ordered first-visit leaves.
func traverse(root Node) (*GraphDef, []leaf, error) {
	if root == nil {
		return nil, nil, fmt.Errorf("%w: root node is nil", ErrStructuralMismatch)
	}
	t := newTraversal()
	rootIndex, err := t.walkNode(root, Path{})
	if err != nil {
		return nil, nil, err
	}
	def := &GraphDef{root: rootIndex, count: t.nextIndex, nodes: t.nodes}
	return def, t.leaves, nil
}

func (t *traversal) walkNode(n Node, path Path) (int, error) {
	if idx, seen := t.nodeIdx[n]; seen {
		return idx, nil
	}
	idx := t.nextIndex
	t.nextIndex++
	t.nodeIdx[n] = idx

	attrs := n.GraphAttrs()
	def := nodeDef{index: idx, kind: n.GraphKind(), attrs: make([]attrDef, 0, len(attrs))}
	// reserve the arena slot before recursing so nodes appear in visit order
	slot := len(t.nodes)
	t.nodes = append(t.nodes, def)

	seen := make(map[string]struct{}, len(attrs))
	for _, attr := range attrs {
		if attr.Name == "" {
			return 0, fmt.Errorf("%w: node %s at %q declares an unnamed attribute",
				ErrStructuralMismatch, n.GraphKind(), path)
		}
		if _, dup := seen[attr.Name]; dup {
			return 0, fmt.Errorf("%w: node %s at %q declares attribute %q twice",
				ErrStructuralMismatch, n.GraphKind(), path, attr.Name)
		}
		seen[attr.Name] = struct{}{}

		value, err := t.classify(attr.Value, path.Child(attr.Name))
		if err != nil {
			return 0, err
		}
		def.attrs = append(def.attrs, attrDef{name: attr.Name, value: value})
	}
	t.nodes[slot] = def
	return idx, nil
}

// classify turns one attribute value into its def form, recursing through
// containers and recording first-visit Variables as leaves.
func (t *traversal) classify(v Value, path Path) (valueDef, error) {
	switch value := v.(type) {
	case VarValue:
		if value.Var == nil {
			return valueDef{}, fmt.Errorf("%w: nil variable at %q", ErrStructuralMismatch, path)
		}
		if idx, seen := t.varIdx[value.Var]; seen {
			return valueDef{tag: tagReference, index: idx}, nil
		}
		idx := t.nextIndex
		t.nextIndex++
		t.varIdx[value.Var] = idx
		t.leaves = append(t.leaves, leaf{path: path, v: value.Var})
		return valueDef{tag: tagVariable, index: idx, varKind: value.Var.Kind()}, nil

	case NodeValue:
		if value.Node == nil {
			return valueDef{}, fmt.Errorf("%w: nil node at %q", ErrStructuralMismatch, path)
		}
		if idx, seen := t.nodeIdx[value.Node]; seen {
			return valueDef{tag: tagReference, index: idx}, nil
		}
		idx, err := t.walkNode(value.Node, path)
		if err != nil {
			return valueDef{}, err
		}
		return valueDef{tag: tagNode, index: idx}, nil

	case ListValue:
		out := valueDef{tag: tagList, items: make([]valueDef, 0, len(value.Items))}
		for i, item := range value.Items {
			classified, err := t.classify(item, path.Child(itoa(i)))
			if err != nil {
				return valueDef{}, err
			}
			out.items = append(out.items, classified)
		}
		return out, nil

	case MapValue:
		if len(value.Keys) != len(value.Items) {
			return valueDef{}, fmt.Errorf("%w: map at %q declares %d keys but holds %d entries",
				ErrStructuralMismatch, path, len(value.Keys), len(value.Items))
		}
		out := valueDef{tag: tagMap, keys: append([]string(nil), value.Keys...), entries: make(map[string]valueDef, len(value.Keys))}
		for _, key := range value.Keys {
			// a separator inside a key would collide with nested paths
			if strings.Contains(key, PathSeparator) {
				return valueDef{}, fmt.Errorf("%w: map at %q has key %q containing %q",
					ErrStructuralMismatch, path, key, PathSeparator)
			}
			entry, ok := value.Items[key]
			if !ok {
				return valueDef{}, fmt.Errorf("%w: map at %q declares key %q but holds no entry for it",
					ErrStructuralMismatch, path, key)
			}
			classified, err := t.classify(entry, path.Child(key))
			if err != nil {
				return valueDef{}, err
			}
			out.entries[key] = classified
		}
		return out, nil

	case StaticValue:
		raw, err := json.Marshal(value.Value)
		if err != nil {
			return valueDef{}, fmt.Errorf("%w: static value at %q is not JSON-marshalable: %v",
				ErrStructuralMismatch, path, err)
		}
		return valueDef{tag: tagStatic, static: value.Value, staticRaw: raw}, nil

	case nil:
		return valueDef{}, fmt.Errorf("%w: attribute at %q has no value", ErrStructuralMismatch, path)

	default:
		return valueDef{}, fmt.Errorf("%w: attribute at %q has unsupported value type %T",
			ErrStructuralMismatch, path, v)
	}
}

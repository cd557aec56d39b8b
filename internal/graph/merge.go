package graph

import (
	"fmt"

	"graphstate/internal/variable"
)

// Merge reconstructs a fresh graph from def and the supplied States.
// Equivalent to def.Merge(states...).
func Merge(def *GraphDef, states ...*State) (Node, error) {
	return def.Merge(states...)
}

// Merge rebuilds a graph with the shape this def recorded, taking static
// attribute values from the def and Variables from the supplied States.
// Reconstruction is two-pass: every node is instantiated from its registered
// factory first, then attributes are filled in traversal order, so forward
// references and cycles resolve without special casing. Sharing is restored
// exactly: paths that shared a Variable or node before split share one
// instance again.
//
// Lookup across several States is first-supplied-wins; a path present in a
// later State that an earlier one already covered is ignored. A declared
// path absent from every State, a supplied path the def does not declare, a
// kind mismatch, or an unregistered node kind is fatal, and no partially
// built graph escapes.
func (d *GraphDef) Merge(states ...*State) (Node, error) {
	return d.merge(nil, states)
}

// MergeIn is Merge with every installed Variable bound to scope, so that
// mutations through the rebuilt graph after the scope closes are rejected.
func (d *GraphDef) MergeIn(scope *Scope, states ...*State) (Node, error) {
	return d.merge(scope, states)
}

func (d *GraphDef) merge(scope *Scope, states []*State) (Node, error) {
	combined := MergeStates(states...)

	declared := d.VariableKinds()
	for _, path := range combined.paths {
		if _, ok := declared[path.String()]; !ok {
			return nil, fmt.Errorf("%w: state supplies path %q the graph def does not declare",
				ErrStructuralMismatch, path)
		}
	}

	m := &merger{
		def:    d,
		states: combined,
		nodes:  make(map[int]Node, len(d.nodes)),
		defs:   make(map[int]nodeDef, len(d.nodes)),
		vars:   make(map[int]*variable.Variable),
		filled: make(map[int]bool, len(d.nodes)),
	}

	// pass 1: instantiate every node so references resolve in any order
	for _, nd := range d.nodes {
		factory, ok := nodeFactory(nd.kind)
		if !ok {
			return nil, fmt.Errorf("%w: node kind %q is not registered", ErrStructuralMismatch, nd.kind)
		}
		m.nodes[nd.index] = factory()
		m.defs[nd.index] = nd
	}

	root, ok := m.nodes[d.root]
	if !ok {
		return nil, fmt.Errorf("%w: root index %d is not a recorded node", ErrStructuralMismatch, d.root)
	}

	// pass 2: fill attributes in traversal order
	if err := m.fill(d.root, Path{}); err != nil {
		return nil, err
	}

	if scope != nil {
		for _, v := range m.vars {
			v.Bind(scope)
		}
	}
	return root, nil
}

type merger struct {
	def    *GraphDef
	states *State
	nodes  map[int]Node
	defs   map[int]nodeDef
	vars   map[int]*variable.Variable
	filled map[int]bool
}

func (m *merger) fill(index int, path Path) error {
	if m.filled[index] {
		return nil
	}
	m.filled[index] = true

	node := m.nodes[index]
	nd := m.defs[index]
	for _, attr := range nd.attrs {
		value, err := m.build(attr.value, path.Child(attr.name))
		if err != nil {
			return err
		}
		if err := node.SetGraphAttr(attr.name, value); err != nil {
			return fmt.Errorf("%w: node %s at %q rejected attribute %q: %v",
				ErrStructuralMismatch, nd.kind, path, attr.name, err)
		}
	}
	return nil
}

func (m *merger) build(v valueDef, path Path) (Value, error) {
	switch v.tag {
	case tagStatic:
		return StaticValue{Value: v.static}, nil

	case tagVariable:
		leafVar, ok := m.states.Get(path)
		if !ok {
			return nil, fmt.Errorf("%w: no state supplies required path %q (kind %s)",
				ErrStructuralMismatch, path, v.varKind)
		}
		if leafVar.Kind() != v.varKind {
			return nil, fmt.Errorf("%w: path %q declares kind %s but state holds %s",
				ErrStructuralMismatch, path, v.varKind, leafVar.Kind())
		}
		m.vars[v.index] = leafVar
		return VarValue{Var: leafVar}, nil

	case tagNode:
		child, ok := m.nodes[v.index]
		if !ok {
			return nil, fmt.Errorf("%w: index %d", ErrIdentityCycle, v.index)
		}
		if err := m.fill(v.index, path); err != nil {
			return nil, err
		}
		return NodeValue{Node: child}, nil

	case tagReference:
		if node, ok := m.nodes[v.index]; ok {
			return NodeValue{Node: node}, nil
		}
		if leafVar, ok := m.vars[v.index]; ok {
			return VarValue{Var: leafVar}, nil
		}
		return nil, fmt.Errorf("%w: reference to index %d precedes its definition",
			ErrIdentityCycle, v.index)

	case tagList:
		items := make([]Value, 0, len(v.items))
		for i, item := range v.items {
			built, err := m.build(item, path.Child(itoa(i)))
			if err != nil {
				return nil, err
			}
			items = append(items, built)
		}
		return ListValue{Items: items}, nil

	case tagMap:
		entries := make(map[string]Value, len(v.keys))
		for _, key := range v.keys {
			built, err := m.build(v.entries[key], path.Child(key))
			if err != nil {
				return nil, err
			}
			entries[key] = built
		}
		return MapValue{Keys: append([]string(nil), v.keys...), Items: entries}, nil
	}
	return nil, fmt.Errorf("%w: unknown value tag at %q", ErrStructuralMismatch, path)
}

package graph

import (
	"errors"
	"fmt"
	"sync"

	"graphstate/internal/variable"
)

// Node is the capability interface for graph participation. Implementations
// must be pointer types: traversal tracks nodes by identity, and a value
// receiver would defeat sharing detection.
//
// GraphAttrs must enumerate attributes in a fixed declaration order and
// return the same names on every call; GraphDef equality depends on it.
type Node interface {
	// GraphKind returns the node's type tag recorded in GraphDef.
	GraphKind() string
	// GraphAttrs returns the node's attributes in declaration order.
	GraphAttrs() []Attr
	// SetGraphAttr assigns one attribute during reconstruction or bulk
	// attribute updates. Unknown names must be rejected.
	SetGraphAttr(name string, value Value) error
}

// Attr is one named, classified attribute of a Node.
type Attr struct {
	Name  string
	Value Value
}

// Value is a closed set of tagged variants classifying attribute content:
// a Variable leaf, a sub-node, an ordered list, an ordered string-keyed map,
// or static data captured by value.
type Value interface {
	isValue()
}

// VarValue holds a Variable leaf.
type VarValue struct {
	Var *variable.Variable
}

// NodeValue holds a nested graph node.
type NodeValue struct {
	Node Node
}

// ListValue holds an ordered sequence whose elements are themselves Values.
type ListValue struct {
	Items []Value
}

// MapValue holds a string-keyed collection with an explicit key order.
type MapValue struct {
	Keys  []string
	Items map[string]Value
}

// StaticValue holds plain data captured by value. Static values must be
// JSON-marshalable; traversal rejects ones that are not.
type StaticValue struct {
	Value any
}

func (VarValue) isValue()    {}
func (NodeValue) isValue()   {}
func (ListValue) isValue()   {}
func (MapValue) isValue()    {}
func (StaticValue) isValue() {}

// Var wraps a Variable as an attribute value.
func Var(v *variable.Variable) Value { return VarValue{Var: v} }

// Sub wraps a nested node as an attribute value.
func Sub(n Node) Value { return NodeValue{Node: n} }

// List wraps an ordered sequence as an attribute value.
func List(items ...Value) Value { return ListValue{Items: items} }

// Static wraps plain data as an attribute value.
func Static(v any) Value { return StaticValue{Value: v} }

// MapOf wraps a keyed collection, preserving the given key order.
func MapOf(keys []string, items map[string]Value) Value {
	return MapValue{Keys: keys, Items: items}
}

var ErrNodeKindExists = errors.New("node kind already registered")

var nodeRegistry = struct {
	mu sync.RWMutex
	m  map[string]func() Node
}{
	m: make(map[string]func() Node),
}

// RegisterNodeKind records a factory producing an empty node of the given
// kind. Merge can only rebuild registered kinds.
func RegisterNodeKind(kind string, factory func() Node) error {
	if kind == "" {
		return errors.New("node kind is required")
	}
	if factory == nil {
		return errors.New("node factory is required")
	}

	nodeRegistry.mu.Lock()
	defer nodeRegistry.mu.Unlock()

	if _, exists := nodeRegistry.m[kind]; exists {
		return fmt.Errorf("%w: %s", ErrNodeKindExists, kind)
	}
	nodeRegistry.m[kind] = factory
	return nil
}

func MustRegisterNodeKind(kind string, factory func() Node) {
	if err := RegisterNodeKind(kind, factory); err != nil {
		panic(err)
	}
}

func nodeFactory(kind string) (func() Node, bool) {
	nodeRegistry.mu.RLock()
	defer nodeRegistry.mu.RUnlock()

	factory, ok := nodeRegistry.m[kind]
	return factory, ok
}

package graph

import (
	"fmt"
	"sort"
)

// WalkNodes visits every distinct node reachable from root exactly once,
// children before parents, and calls fn with each node's first-visit path.
// The root itself is visited last with the empty path. Returning an error
// from fn stops the walk.
func WalkNodes(root Node, fn func(path Path, n Node) error) error {
	if root == nil {
		return fmt.Errorf("%w: root node is nil", ErrStructuralMismatch)
	}
	visited := make(map[Node]bool)
	return walkNode(root, Path{}, visited, fn)
}

func walkNode(n Node, path Path, visited map[Node]bool, fn func(Path, Node) error) error {
	if visited[n] {
		return nil
	}
	visited[n] = true

	for _, attr := range n.GraphAttrs() {
		if err := walkValue(attr.Value, path.Child(attr.Name), visited, fn); err != nil {
			return err
		}
	}
	return fn(path, n)
}

func walkValue(v Value, path Path, visited map[Node]bool, fn func(Path, Node) error) error {
	switch value := v.(type) {
	case NodeValue:
		if value.Node == nil {
			return nil
		}
		return walkNode(value.Node, path, visited, fn)
	case ListValue:
		for i, item := range value.Items {
			if err := walkValue(item, path.Child(itoa(i)), visited, fn); err != nil {
				return err
			}
		}
	case MapValue:
		for _, key := range value.Keys {
			if err := walkValue(value.Items[key], path.Child(key), visited, fn); err != nil {
				return err
			}
		}
	}
	return nil
}

// Child is one immediate sub-node of a node.
type Child struct {
	Name string
	Node Node
}

// Children returns the immediate sub-nodes of n in attribute order. Nodes
// nested inside containers are included under their container path part.
func Children(n Node) []Child {
	var children []Child
	for _, attr := range n.GraphAttrs() {
		collectChildren(attr.Value, attr.Name, &children)
	}
	return children
}

func collectChildren(v Value, name string, out *[]Child) {
	switch value := v.(type) {
	case NodeValue:
		if value.Node != nil {
			*out = append(*out, Child{Name: name, Node: value.Node})
		}
	case ListValue:
		for i, item := range value.Items {
			collectChildren(item, name+PathSeparator+itoa(i), out)
		}
	case MapValue:
		for _, key := range value.Keys {
			collectChildren(value.Items[key], name+PathSeparator+key, out)
		}
	}
}

// NodeFilter selects nodes during bulk attribute updates.
type NodeFilter func(path Path, n Node) bool

// OfNodeKind selects nodes whose GraphKind is any of the given kinds.
func OfNodeKind(kinds ...string) NodeFilter {
	return func(_ Path, n Node) bool {
		for _, kind := range kinds {
			if n.GraphKind() == kind {
				return true
			}
		}
		return false
	}
}

// SetAttributes assigns static attributes by name across every node under
// root that matches one of the filters (all nodes when none are given).
// Nodes that do not declare an attribute are skipped. It is an error if an
// attribute name is found on no node at all.
func SetAttributes(root Node, updates map[string]any, filters ...NodeFilter) error {
	return setAttributes(root, updates, true, filters)
}

func setAttributes(root Node, updates map[string]any, raiseIfNotFound bool, filters []NodeFilter) error {
	names := make([]string, 0, len(updates))
	for name := range updates {
		names = append(names, name)
	}
	sort.Strings(names)

	remaining := make(map[string]bool, len(names))
	for _, name := range names {
		remaining[name] = true
	}

	err := WalkNodes(root, func(path Path, n Node) error {
		if len(filters) > 0 {
			matched := false
			for _, f := range filters {
				if f(path, n) {
					matched = true
					break
				}
			}
			if !matched {
				return nil
			}
		}
		declared := make(map[string]bool)
		for _, attr := range n.GraphAttrs() {
			if _, isStatic := attr.Value.(StaticValue); isStatic {
				declared[attr.Name] = true
			}
		}
		for _, name := range names {
			if !declared[name] {
				continue
			}
			delete(remaining, name)
			if err := n.SetGraphAttr(name, StaticValue{Value: updates[name]}); err != nil {
				return fmt.Errorf("%w: node %s at %q rejected attribute %q: %v",
					ErrStructuralMismatch, n.GraphKind(), path, name, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if raiseIfNotFound && len(remaining) > 0 {
		missing := make([]string, 0, len(remaining))
		for name := range remaining {
			missing = append(missing, name)
		}
		sort.Strings(missing)
		return fmt.Errorf("%w: no node declares attributes %v", ErrStructuralMismatch, missing)
	}
	return nil
}

// TrainMode flips the conventional mode flags for training: deterministic
// behavior off, running averages off. Nodes without these attributes are
// unaffected.
func TrainMode(root Node) error {
	return setAttributes(root, map[string]any{
		"deterministic":       false,
		"use_running_average": false,
	}, false, nil)
}

// EvalMode flips the conventional mode flags for evaluation.
func EvalMode(root Node) error {
	return setAttributes(root, map[string]any{
		"deterministic":       true,
		"use_running_average": true,
	}, false, nil)
}

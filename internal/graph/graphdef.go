package graph

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
)

func itoa(i int) string { return strconv.Itoa(i) }

// GraphDef is an immutable structural description of a traversed graph:
// a flat arena of node descriptions addressed by identity index, with repeat
// visits of a node or Variable recorded as bare index references. It holds
// no leaf values, so it is safe to hash, compare and reuse as a cache key.
type GraphDef struct {
	root  int
	count int
	nodes []nodeDef
}

type nodeDef struct {
	index int
	kind  string
	attrs []attrDef
}

type attrDef struct {
	name  string
	value valueDef
}

type defTag int

const (
	tagNode defTag = iota
	tagVariable
	tagReference
	tagList
	tagMap
	tagStatic
)

// valueDef describes one attribute value. Exactly one variant is populated,
// selected by tag. Static values carry both the live Go value (when the def
// was produced by traversal) and the canonical JSON form used for hashing
// and persistence.
type valueDef struct {
	tag       defTag
	index     int
	varKind   string
	items     []valueDef
	keys      []string
	entries   map[string]valueDef
	static    any
	staticRaw json.RawMessage
}

// RootIndex returns the identity index assigned to the root node.
func (d *GraphDef) RootIndex() int { return d.root }

// IndexCount returns how many identity indices the traversal assigned,
// counting nodes and Variables together.
func (d *GraphDef) IndexCount() int { return d.count }

// NumNodes returns the number of distinct nodes recorded in the arena.
func (d *GraphDef) NumNodes() int { return len(d.nodes) }

// NumVariables returns the number of distinct Variables the def declares.
func (d *GraphDef) NumVariables() int { return d.count - len(d.nodes) }

func (d *GraphDef) nodeAt(index int) (nodeDef, bool) {
	for _, n := range d.nodes {
		if n.index == index {
			return n, true
		}
	}
	return nodeDef{}, false
}

// VariablePaths returns the declared variable-attribute paths in traversal
// order. Shared Variables appear once, at their first-visit path.
func (d *GraphDef) VariablePaths() []Path {
	var paths []Path
	d.walkVariables(func(path Path, _ string, _ int) {
		paths = append(paths, path)
	})
	return paths
}

// VariableKinds returns the declared kind for every path of VariablePaths,
// keyed by the path's string form.
func (d *GraphDef) VariableKinds() map[string]string {
	kinds := make(map[string]string)
	d.walkVariables(func(path Path, kind string, _ int) {
		kinds[path.String()] = kind
	})
	return kinds
}

func (d *GraphDef) walkVariables(fn func(path Path, kind string, index int)) {
	root, ok := d.nodeAt(d.root)
	if !ok {
		return
	}
	d.walkNodeVariables(root, Path{}, fn)
}

func (d *GraphDef) walkNodeVariables(n nodeDef, path Path, fn func(Path, string, int)) {
	for _, attr := range n.attrs {
		d.walkValueVariables(attr.value, path.Child(attr.name), fn)
	}
}

func (d *GraphDef) walkValueVariables(v valueDef, path Path, fn func(Path, string, int)) {
	switch v.tag {
	case tagVariable:
		fn(path, v.varKind, v.index)
	case tagNode:
		if child, ok := d.nodeAt(v.index); ok {
			d.walkNodeVariables(child, path, fn)
		}
	case tagList:
		for i, item := range v.items {
			d.walkValueVariables(item, path.Child(itoa(i)), fn)
		}
	case tagMap:
		for _, key := range v.keys {
			d.walkValueVariables(v.entries[key], path.Child(key), fn)
		}
	}
}

// Signature summarises a GraphDef for comparison and display.
type Signature struct {
	Fingerprint string         `json:"fingerprint"`
	Nodes       int            `json:"nodes"`
	Variables   int            `json:"variables"`
	KindCounts  map[string]int `json:"kind_counts"`
	NodeKinds   map[string]int `json:"node_kinds"`
}

// Fingerprint returns a stable content hash of the def. Two defs produced
// from graphs with the same shape, identity pattern and static data share a
// fingerprint.
func (d *GraphDef) Fingerprint() string {
	payload, err := d.MarshalJSON()
	if err != nil {
		// Statics are validated during traversal; a decoded def is
		// canonical already. Reaching this means a hand-built def.
		panic(fmt.Sprintf("graphstate: unhashable graphdef: %v", err))
	}
	digest := sha1.Sum(payload)
	return hex.EncodeToString(digest[:])
}

// ComputeSignature returns the fingerprint plus structural counts.
func (d *GraphDef) ComputeSignature() Signature {
	sig := Signature{
		Fingerprint: d.Fingerprint(),
		Nodes:       d.NumNodes(),
		Variables:   d.NumVariables(),
		KindCounts:  make(map[string]int),
		NodeKinds:   make(map[string]int),
	}
	for _, n := range d.nodes {
		sig.NodeKinds[n.kind]++
	}
	d.walkVariables(func(_ Path, kind string, _ int) {
		sig.KindCounts[kind]++
	})
	return sig
}

// Equal reports structural equality of two defs.
func (d *GraphDef) Equal(other *GraphDef) bool {
	if d == nil || other == nil {
		return d == other
	}
	if d.root != other.root || d.count != other.count || len(d.nodes) != len(other.nodes) {
		return false
	}
	return d.Fingerprint() == other.Fingerprint()
}

// JSON wire form. Field order is fixed so the encoding doubles as the
// canonical hashing form.

type graphDefJSON struct {
	Root  int           `json:"root"`
	Count int           `json:"index_count"`
	Nodes []nodeDefJSON `json:"nodes"`
}

type nodeDefJSON struct {
	Index int           `json:"index"`
	Kind  string        `json:"kind"`
	Attrs []attrDefJSON `json:"attrs"`
}

type attrDefJSON struct {
	Name  string       `json:"name"`
	Value valueDefJSON `json:"value"`
}

type valueDefJSON struct {
	Tag     string                  `json:"t"`
	Index   int                     `json:"index,omitempty"`
	VarKind string                  `json:"var_kind,omitempty"`
	Items   []valueDefJSON          `json:"items,omitempty"`
	Keys    []string                `json:"keys,omitempty"`
	Entries map[string]valueDefJSON `json:"entries,omitempty"`
	Static  json.RawMessage         `json:"static,omitempty"`
}

var tagNames = map[defTag]string{
	tagNode:      "node",
	tagVariable:  "var",
	tagReference: "ref",
	tagList:      "list",
	tagMap:       "map",
	tagStatic:    "static",
}

func tagFromName(name string) (defTag, bool) {
	for tag, n := range tagNames {
		if n == name {
			return tag, true
		}
	}
	return 0, false
}

func (d *GraphDef) MarshalJSON() ([]byte, error) {
	out := graphDefJSON{Root: d.root, Count: d.count}
	for _, n := range d.nodes {
		nj := nodeDefJSON{Index: n.index, Kind: n.kind}
		for _, attr := range n.attrs {
			vj, err := attr.value.toJSON()
			if err != nil {
				return nil, fmt.Errorf("attr %s: %w", attr.name, err)
			}
			nj.Attrs = append(nj.Attrs, attrDefJSON{Name: attr.name, Value: vj})
		}
		out.Nodes = append(out.Nodes, nj)
	}
	return json.Marshal(out)
}

func (v valueDef) toJSON() (valueDefJSON, error) {
	out := valueDefJSON{Tag: tagNames[v.tag]}
	switch v.tag {
	case tagNode, tagReference:
		out.Index = v.index
	case tagVariable:
		out.Index = v.index
		out.VarKind = v.varKind
	case tagList:
		for _, item := range v.items {
			ij, err := item.toJSON()
			if err != nil {
				return valueDefJSON{}, err
			}
			out.Items = append(out.Items, ij)
		}
	case tagMap:
		out.Keys = v.keys
		out.Entries = make(map[string]valueDefJSON, len(v.entries))
		for key, entry := range v.entries {
			ej, err := entry.toJSON()
			if err != nil {
				return valueDefJSON{}, err
			}
			out.Entries[key] = ej
		}
	case tagStatic:
		raw := v.staticRaw
		if raw == nil {
			encoded, err := json.Marshal(v.static)
			if err != nil {
				return valueDefJSON{}, fmt.Errorf("static value is not JSON-marshalable: %w", err)
			}
			raw = encoded
		}
		out.Static = raw
	}
	return out, nil
}

func (d *GraphDef) UnmarshalJSON(data []byte) error {
	var in graphDefJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	decoded := GraphDef{root: in.Root, count: in.Count}
	for _, nj := range in.Nodes {
		n := nodeDef{index: nj.Index, kind: nj.Kind}
		for _, aj := range nj.Attrs {
			value, err := aj.Value.fromJSON()
			if err != nil {
				return fmt.Errorf("node %d attr %s: %w", nj.Index, aj.Name, err)
			}
			n.attrs = append(n.attrs, attrDef{name: aj.Name, value: value})
		}
		decoded.nodes = append(decoded.nodes, n)
	}
	*d = decoded
	return nil
}

func (vj valueDefJSON) fromJSON() (valueDef, error) {
	tag, ok := tagFromName(vj.Tag)
	if !ok {
		return valueDef{}, fmt.Errorf("unknown value tag %q", vj.Tag)
	}
	out := valueDef{tag: tag}
	switch tag {
	case tagNode, tagReference:
		out.index = vj.Index
	case tagVariable:
		out.index = vj.Index
		out.varKind = vj.VarKind
	case tagList:
		for _, ij := range vj.Items {
			item, err := ij.fromJSON()
			if err != nil {
				return valueDef{}, err
			}
			out.items = append(out.items, item)
		}
	case tagMap:
		out.keys = vj.Keys
		out.entries = make(map[string]valueDef, len(vj.Entries))
		for key, ej := range vj.Entries {
			entry, err := ej.fromJSON()
			if err != nil {
				return valueDef{}, err
			}
			out.entries[key] = entry
		}
	case tagStatic:
		out.staticRaw = append(json.RawMessage(nil), vj.Static...)
		var live any
		if err := json.Unmarshal(vj.Static, &live); err != nil {
			return valueDef{}, fmt.Errorf("static payload: %w", err)
		}
		out.static = live
	}
	return out, nil
}

// DescribeLines renders the def as indented lines for display. Output order
// follows the arena, so it is stable across runs.
func (d *GraphDef) DescribeLines() []string {
	var lines []string
	for _, n := range d.nodes {
		lines = append(lines, fmt.Sprintf("node %d kind=%s", n.index, n.kind))
		for _, attr := range n.attrs {
			lines = append(lines, "  "+attr.name+": "+describeValue(attr.value))
		}
	}
	return lines
}

func describeValue(v valueDef) string {
	switch v.tag {
	case tagNode:
		return fmt.Sprintf("node(%d)", v.index)
	case tagVariable:
		return fmt.Sprintf("var(%s, %d)", v.varKind, v.index)
	case tagReference:
		return fmt.Sprintf("ref(%d)", v.index)
	case tagList:
		return fmt.Sprintf("list(%d items)", len(v.items))
	case tagMap:
		return fmt.Sprintf("map(%d keys)", len(v.keys))
	case tagStatic:
		return fmt.Sprintf("static(%v)", v.static)
	}
	return "unknown"
}

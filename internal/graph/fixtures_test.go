package graph

import (
	"fmt"

	"graphstate/internal/variable"
)

// scenario is a node with two params (a 2x3 matrix and a length-3 vector)
// and one counter, the canonical split/merge/update exercise.
type scenario struct {
	w     *variable.Variable
	b     *variable.Variable
	count *variable.Variable
}

func newScenario() *scenario {
	return &scenario{
		w: variable.Param([][]float64{
			{1, 2, 3},
			{4, 5, 6},
		}),
		b:     variable.Param([]float64{0.1, 0.2, 0.3}),
		count: variable.Count(0),
	}
}

func (s *scenario) GraphKind() string { return "scenario" }

func (s *scenario) GraphAttrs() []Attr {
	return []Attr{
		{Name: "w", Value: Var(s.w)},
		{Name: "b", Value: Var(s.b)},
		{Name: "count", Value: Var(s.count)},
	}
}

func (s *scenario) SetGraphAttr(name string, value Value) error {
	vv, ok := value.(VarValue)
	if !ok {
		return fmt.Errorf("attribute %q wants a variable, got %T", name, value)
	}
	switch name {
	case "w":
		s.w = vv.Var
	case "b":
		s.b = vv.Var
	case "count":
		s.count = vv.Var
	default:
		return fmt.Errorf("scenario has no attribute %q", name)
	}
	return nil
}

func (s *scenario) incrementCount() {
	n := s.count.Value().(int)
	_ = s.count.Set(n + 1)
}

// pair holds two sub-nodes plus a static label; left and right may be the
// same instance to exercise node sharing.
type pair struct {
	label string
	left  Node
	right Node
}

func (p *pair) GraphKind() string { return "pair" }

func (p *pair) GraphAttrs() []Attr {
	return []Attr{
		{Name: "label", Value: Static(p.label)},
		{Name: "left", Value: Sub(p.left)},
		{Name: "right", Value: Sub(p.right)},
	}
}

func (p *pair) SetGraphAttr(name string, value Value) error {
	switch name {
	case "label":
		sv, ok := value.(StaticValue)
		if !ok {
			return fmt.Errorf("attribute %q wants static data, got %T", name, value)
		}
		label, ok := sv.Value.(string)
		if !ok {
			return fmt.Errorf("attribute %q wants a string, got %T", name, sv.Value)
		}
		p.label = label
	case "left", "right":
		nv, ok := value.(NodeValue)
		if !ok {
			return fmt.Errorf("attribute %q wants a node, got %T", name, value)
		}
		if name == "left" {
			p.left = nv.Node
		} else {
			p.right = nv.Node
		}
	default:
		return fmt.Errorf("pair has no attribute %q", name)
	}
	return nil
}

// tied shares one Variable through two attributes.
type tied struct {
	first  *variable.Variable
	second *variable.Variable
}

func newTied() *tied {
	shared := variable.Param([]float64{1, 2})
	return &tied{first: shared, second: shared}
}

func (t *tied) GraphKind() string { return "tied" }

func (t *tied) GraphAttrs() []Attr {
	return []Attr{
		{Name: "first", Value: Var(t.first)},
		{Name: "second", Value: Var(t.second)},
	}
}

func (t *tied) SetGraphAttr(name string, value Value) error {
	vv, ok := value.(VarValue)
	if !ok {
		return fmt.Errorf("attribute %q wants a variable, got %T", name, value)
	}
	switch name {
	case "first":
		t.first = vv.Var
	case "second":
		t.second = vv.Var
	default:
		return fmt.Errorf("tied has no attribute %q", name)
	}
	return nil
}

// loop points back at itself through an attribute, the smallest cyclic
// graph.
type loop struct {
	v    *variable.Variable
	self Node
}

func newLoop() *loop {
	l := &loop{v: variable.Count(7)}
	l.self = l
	return l
}

func (l *loop) GraphKind() string { return "loop" }

func (l *loop) GraphAttrs() []Attr {
	return []Attr{
		{Name: "v", Value: Var(l.v)},
		{Name: "self", Value: Sub(l.self)},
	}
}

func (l *loop) SetGraphAttr(name string, value Value) error {
	switch name {
	case "v":
		vv, ok := value.(VarValue)
		if !ok {
			return fmt.Errorf("attribute %q wants a variable, got %T", name, value)
		}
		l.v = vv.Var
	case "self":
		nv, ok := value.(NodeValue)
		if !ok {
			return fmt.Errorf("attribute %q wants a node, got %T", name, value)
		}
		l.self = nv.Node
	default:
		return fmt.Errorf("loop has no attribute %q", name)
	}
	return nil
}

// bag holds variables inside a list and a keyed map plus a mode flag, to
// exercise container classification and bulk static updates.
type bag struct {
	deterministic bool
	items         []*variable.Variable
	named         map[string]*variable.Variable
	order         []string
}

func newBag() *bag {
	return &bag{
		items: []*variable.Variable{
			variable.Param(1.0),
			variable.Count(0),
		},
		named: map[string]*variable.Variable{
			"alpha": variable.Param(2.0),
			"beta":  variable.BatchStat(3.0),
		},
		order: []string{"alpha", "beta"},
	}
}

func (b *bag) GraphKind() string { return "bag" }

func (b *bag) GraphAttrs() []Attr {
	items := make([]Value, 0, len(b.items))
	for _, v := range b.items {
		items = append(items, Var(v))
	}
	entries := make(map[string]Value, len(b.named))
	for key, v := range b.named {
		entries[key] = Var(v)
	}
	return []Attr{
		{Name: "deterministic", Value: Static(b.deterministic)},
		{Name: "items", Value: List(items...)},
		{Name: "named", Value: MapOf(b.order, entries)},
	}
}

func (b *bag) SetGraphAttr(name string, value Value) error {
	switch name {
	case "deterministic":
		sv, ok := value.(StaticValue)
		if !ok {
			return fmt.Errorf("attribute %q wants static data, got %T", name, value)
		}
		flag, ok := sv.Value.(bool)
		if !ok {
			return fmt.Errorf("attribute %q wants a bool, got %T", name, sv.Value)
		}
		b.deterministic = flag
	case "items":
		lv, ok := value.(ListValue)
		if !ok {
			return fmt.Errorf("attribute %q wants a list, got %T", name, value)
		}
		items := make([]*variable.Variable, 0, len(lv.Items))
		for i, item := range lv.Items {
			vv, ok := item.(VarValue)
			if !ok {
				return fmt.Errorf("items[%d] wants a variable, got %T", i, item)
			}
			items = append(items, vv.Var)
		}
		b.items = items
	case "named":
		mv, ok := value.(MapValue)
		if !ok {
			return fmt.Errorf("attribute %q wants a map, got %T", name, value)
		}
		named := make(map[string]*variable.Variable, len(mv.Keys))
		for _, key := range mv.Keys {
			vv, ok := mv.Items[key].(VarValue)
			if !ok {
				return fmt.Errorf("named[%s] wants a variable, got %T", key, mv.Items[key])
			}
			named[key] = vv.Var
		}
		b.named = named
		b.order = append([]string(nil), mv.Keys...)
	default:
		return fmt.Errorf("bag has no attribute %q", name)
	}
	return nil
}

func init() {
	MustRegisterNodeKind("scenario", func() Node { return &scenario{} })
	MustRegisterNodeKind("pair", func() Node { return &pair{} })
	MustRegisterNodeKind("tied", func() Node { return &tied{} })
	MustRegisterNodeKind("loop", func() Node { return &loop{} })
	MustRegisterNodeKind("bag", func() Node { return &bag{} })
}

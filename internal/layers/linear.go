package layers

import (
	"fmt"
	"math"
	"math/rand"

	"graphstate/internal/graph"
	"graphstate/internal/variable"
)

// Linear is a dense layer: w (param, out×in), b (param, out) and a count
// Variable tracking forward calls. It exists to exercise the graph core;
// the math is intentionally plain float64 slices.
type Linear struct {
	In  int
	Out int

	W     *variable.Variable
	B     *variable.Variable
	Count *variable.Variable
}

func init() {
	graph.MustRegisterNodeKind("linear", func() graph.Node { return &Linear{} })
	graph.MustRegisterNodeKind("dropout", func() graph.Node { return &Dropout{} })
	graph.MustRegisterNodeKind("counter", func() graph.Node { return &Counter{} })
	graph.MustRegisterNodeKind("block", func() graph.Node { return &Block{} })
	graph.MustRegisterNodeKind("mlp", func() graph.Node { return &MLP{} })
	graph.MustRegisterNodeKind("tied_autoencoder", func() graph.Node { return &TiedAutoencoder{} })
}

// NewLinear returns a Linear with Lecun-uniform weights and zero bias.
func NewLinear(in, out int, rng *rand.Rand) *Linear {
	limit := 1.0 / math.Sqrt(float64(in))
	w := make([][]float64, out)
	for i := range w {
		row := make([]float64, in)
		for j := range row {
			row[j] = (rng.Float64()*2 - 1) * limit
		}
		w[i] = row
	}
	return &Linear{
		In:    in,
		Out:   out,
		W:     variable.Param(w),
		B:     variable.Param(make([]float64, out)),
		Count: variable.Count(0),
	}
}

func (l *Linear) GraphKind() string { return "linear" }

func (l *Linear) GraphAttrs() []graph.Attr {
	return []graph.Attr{
		{Name: "in", Value: graph.Static(l.In)},
		{Name: "out", Value: graph.Static(l.Out)},
		{Name: "w", Value: graph.Var(l.W)},
		{Name: "b", Value: graph.Var(l.B)},
		{Name: "count", Value: graph.Var(l.Count)},
	}
}

func (l *Linear) SetGraphAttr(name string, value graph.Value) error {
	switch name {
	case "in":
		return setStaticInt(&l.In, name, value)
	case "out":
		return setStaticInt(&l.Out, name, value)
	case "w":
		return setVar(&l.W, name, value)
	case "b":
		return setVar(&l.B, name, value)
	case "count":
		return setVar(&l.Count, name, value)
	default:
		return fmt.Errorf("linear has no attribute %q", name)
	}
}

// Forward computes w·x + b and increments the call counter.
func (l *Linear) Forward(x []float64) ([]float64, error) {
	w, err := asMatrix(l.W.Value())
	if err != nil {
		return nil, fmt.Errorf("linear weight: %w", err)
	}
	b, err := asVector(l.B.Value())
	if err != nil {
		return nil, fmt.Errorf("linear bias: %w", err)
	}
	if len(x) != l.In {
		return nil, fmt.Errorf("linear expects input of length %d, got %d", l.In, len(x))
	}

	y := make([]float64, l.Out)
	for i := range y {
		total := b[i]
		for j, xj := range x {
			total += w[i][j] * xj
		}
		y[i] = total
	}
	if err := incrementCount(l.Count); err != nil {
		return nil, err
	}
	return y, nil
}

func incrementCount(count *variable.Variable) error {
	n, ok := count.Value().(int)
	if !ok {
		// counters round-trip through JSON as float64
		f, fok := count.Value().(float64)
		if !fok {
			return fmt.Errorf("count holds %T, want int", count.Value())
		}
		n = int(f)
	}
	return count.Set(n + 1)
}

// asVector accepts both live []float64 values and the []any form that leaf
// values take after a JSON round trip through a snapshot.
func asVector(v any) ([]float64, error) {
	switch vec := v.(type) {
	case []float64:
		return vec, nil
	case []any:
		out := make([]float64, len(vec))
		for i, elem := range vec {
			f, ok := elem.(float64)
			if !ok {
				return nil, fmt.Errorf("element %d holds %T, want float64", i, elem)
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, fmt.Errorf("holds %T, want []float64", v)
	}
}

func asMatrix(v any) ([][]float64, error) {
	switch mat := v.(type) {
	case [][]float64:
		return mat, nil
	case []any:
		out := make([][]float64, len(mat))
		for i, row := range mat {
			vec, err := asVector(row)
			if err != nil {
				return nil, fmt.Errorf("row %d: %w", i, err)
			}
			out[i] = vec
		}
		return out, nil
	default:
		return nil, fmt.Errorf("holds %T, want [][]float64", v)
	}
}

func setVar(dst **variable.Variable, name string, value graph.Value) error {
	vv, ok := value.(graph.VarValue)
	if !ok {
		return fmt.Errorf("attribute %q wants a variable, got %T", name, value)
	}
	*dst = vv.Var
	return nil
}

func setStaticInt(dst *int, name string, value graph.Value) error {
	sv, ok := value.(graph.StaticValue)
	if !ok {
		return fmt.Errorf("attribute %q wants static data, got %T", name, value)
	}
	switch n := sv.Value.(type) {
	case int:
		*dst = n
	case float64:
		*dst = int(n)
	default:
		return fmt.Errorf("attribute %q wants an int, got %T", name, sv.Value)
	}
	return nil
}

func setStaticFloat(dst *float64, name string, value graph.Value) error {
	sv, ok := value.(graph.StaticValue)
	if !ok {
		return fmt.Errorf("attribute %q wants static data, got %T", name, value)
	}
	f, ok := sv.Value.(float64)
	if !ok {
		return fmt.Errorf("attribute %q wants a float64, got %T", name, sv.Value)
	}
	*dst = f
	return nil
}

func setStaticBool(dst *bool, name string, value graph.Value) error {
	sv, ok := value.(graph.StaticValue)
	if !ok {
		return fmt.Errorf("attribute %q wants static data, got %T", name, value)
	}
	b, ok := sv.Value.(bool)
	if !ok {
		return fmt.Errorf("attribute %q wants a bool, got %T", name, sv.Value)
	}
	*dst = b
	return nil
}

func setSubLinear(dst **Linear, name string, value graph.Value) error {
	nv, ok := value.(graph.NodeValue)
	if !ok {
		return fmt.Errorf("attribute %q wants a node, got %T", name, value)
	}
	l, ok := nv.Node.(*Linear)
	if !ok {
		return fmt.Errorf("attribute %q wants a linear, got %T", name, nv.Node)
	}
	*dst = l
	return nil
}

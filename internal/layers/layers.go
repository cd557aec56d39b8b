package layers

import (
	"fmt"
	"math/rand"

	"graphstate/internal/graph"
	"graphstate/internal/variable"
)

// Counter is the smallest stateful node: one count Variable.
type Counter struct {
	N *variable.Variable
}

func NewCounter() *Counter {
	return &Counter{N: variable.Count(0)}
}

func (c *Counter) GraphKind() string { return "counter" }

func (c *Counter) GraphAttrs() []graph.Attr {
	return []graph.Attr{{Name: "n", Value: graph.Var(c.N)}}
}

func (c *Counter) SetGraphAttr(name string, value graph.Value) error {
	if name != "n" {
		return fmt.Errorf("counter has no attribute %q", name)
	}
	return setVar(&c.N, name, value)
}

func (c *Counter) Increment() error {
	return incrementCount(c.N)
}

// Dropout is a static-only node: its behavior flags live in the GraphDef,
// not in any State. It demonstrates TrainMode/EvalMode bulk updates.
type Dropout struct {
	Rate          float64
	Deterministic bool
}

func NewDropout(rate float64) *Dropout {
	return &Dropout{Rate: rate}
}

func (d *Dropout) GraphKind() string { return "dropout" }

func (d *Dropout) GraphAttrs() []graph.Attr {
	return []graph.Attr{
		{Name: "rate", Value: graph.Static(d.Rate)},
		{Name: "deterministic", Value: graph.Static(d.Deterministic)},
	}
}

func (d *Dropout) SetGraphAttr(name string, value graph.Value) error {
	switch name {
	case "rate":
		return setStaticFloat(&d.Rate, name, value)
	case "deterministic":
		return setStaticBool(&d.Deterministic, name, value)
	default:
		return fmt.Errorf("dropout has no attribute %q", name)
	}
}

// Forward zeroes nothing when deterministic; otherwise it applies inverted
// dropout with the given rng.
func (d *Dropout) Forward(x []float64, rng *rand.Rand) []float64 {
	if d.Deterministic || d.Rate <= 0 {
		return x
	}
	keep := 1 - d.Rate
	y := make([]float64, len(x))
	for i, xi := range x {
		if rng.Float64() < keep {
			y[i] = xi / keep
		}
	}
	return y
}

// Block is one hidden unit of an MLP: linear, dropout, shared activation
// bookkeeping via a counter.
type Block struct {
	Layer   *Linear
	Drop    *Dropout
	Counter *Counter
}

func NewBlock(in, out int, rate float64, rng *rand.Rand) *Block {
	return &Block{
		Layer:   NewLinear(in, out, rng),
		Drop:    NewDropout(rate),
		Counter: NewCounter(),
	}
}

func (b *Block) GraphKind() string { return "block" }

func (b *Block) GraphAttrs() []graph.Attr {
	return []graph.Attr{
		{Name: "layer", Value: graph.Sub(b.Layer)},
		{Name: "drop", Value: graph.Sub(b.Drop)},
		{Name: "counter", Value: graph.Sub(b.Counter)},
	}
}

func (b *Block) SetGraphAttr(name string, value graph.Value) error {
	nv, ok := value.(graph.NodeValue)
	if !ok {
		return fmt.Errorf("attribute %q wants a node, got %T", name, value)
	}
	switch name {
	case "layer":
		l, ok := nv.Node.(*Linear)
		if !ok {
			return fmt.Errorf("attribute %q wants a linear, got %T", name, nv.Node)
		}
		b.Layer = l
	case "drop":
		d, ok := nv.Node.(*Dropout)
		if !ok {
			return fmt.Errorf("attribute %q wants a dropout, got %T", name, nv.Node)
		}
		b.Drop = d
	case "counter":
		c, ok := nv.Node.(*Counter)
		if !ok {
			return fmt.Errorf("attribute %q wants a counter, got %T", name, nv.Node)
		}
		b.Counter = c
	default:
		return fmt.Errorf("block has no attribute %q", name)
	}
	return nil
}

func (b *Block) Forward(x []float64, rng *rand.Rand) ([]float64, error) {
	y, err := b.Layer.Forward(x)
	if err != nil {
		return nil, err
	}
	for i, yi := range y {
		if yi < 0 {
			y[i] = 0
		}
	}
	y = b.Drop.Forward(y, rng)
	if err := b.Counter.Increment(); err != nil {
		return nil, err
	}
	return y, nil
}

// MLP stacks blocks in an ordered list attribute.
type MLP struct {
	Blocks []*Block
}

func NewMLP(sizes []int, rate float64, rng *rand.Rand) (*MLP, error) {
	if len(sizes) < 2 {
		return nil, fmt.Errorf("mlp needs at least two sizes, got %d", len(sizes))
	}
	m := &MLP{}
	for i := 0; i+1 < len(sizes); i++ {
		m.Blocks = append(m.Blocks, NewBlock(sizes[i], sizes[i+1], rate, rng))
	}
	return m, nil
}

func (m *MLP) GraphKind() string { return "mlp" }

func (m *MLP) GraphAttrs() []graph.Attr {
	items := make([]graph.Value, 0, len(m.Blocks))
	for _, block := range m.Blocks {
		items = append(items, graph.Sub(block))
	}
	return []graph.Attr{{Name: "blocks", Value: graph.List(items...)}}
}

func (m *MLP) SetGraphAttr(name string, value graph.Value) error {
	if name != "blocks" {
		return fmt.Errorf("mlp has no attribute %q", name)
	}
	lv, ok := value.(graph.ListValue)
	if !ok {
		return fmt.Errorf("attribute %q wants a list, got %T", name, value)
	}
	blocks := make([]*Block, 0, len(lv.Items))
	for i, item := range lv.Items {
		nv, ok := item.(graph.NodeValue)
		if !ok {
			return fmt.Errorf("blocks[%d] wants a node, got %T", i, item)
		}
		block, ok := nv.Node.(*Block)
		if !ok {
			return fmt.Errorf("blocks[%d] wants a block, got %T", i, nv.Node)
		}
		blocks = append(blocks, block)
	}
	m.Blocks = blocks
	return nil
}

func (m *MLP) Forward(x []float64, rng *rand.Rand) ([]float64, error) {
	var err error
	for _, block := range m.Blocks {
		x, err = block.Forward(x, rng)
		if err != nil {
			return nil, err
		}
	}
	return x, nil
}

// TiedAutoencoder shares one Linear between its encode and decode slots:
// the same node instance reachable through two paths. Splitting it records
// the second path as a reference, and merging restores a single instance.
type TiedAutoencoder struct {
	Encoder *Linear
	Decoder *Linear
	Shared  *Linear
}

// NewTiedAutoencoder builds an autoencoder whose Shared layer is the same
// instance as Encoder.
func NewTiedAutoencoder(in, hidden int, rng *rand.Rand) *TiedAutoencoder {
	enc := NewLinear(in, hidden, rng)
	return &TiedAutoencoder{
		Encoder: enc,
		Decoder: NewLinear(hidden, in, rng),
		Shared:  enc,
	}
}

func (t *TiedAutoencoder) GraphKind() string { return "tied_autoencoder" }

func (t *TiedAutoencoder) GraphAttrs() []graph.Attr {
	return []graph.Attr{
		{Name: "encoder", Value: graph.Sub(t.Encoder)},
		{Name: "decoder", Value: graph.Sub(t.Decoder)},
		{Name: "shared", Value: graph.Sub(t.Shared)},
	}
}

func (t *TiedAutoencoder) SetGraphAttr(name string, value graph.Value) error {
	switch name {
	case "encoder":
		return setSubLinear(&t.Encoder, name, value)
	case "decoder":
		return setSubLinear(&t.Decoder, name, value)
	case "shared":
		return setSubLinear(&t.Shared, name, value)
	default:
		return fmt.Errorf("tied_autoencoder has no attribute %q", name)
	}
}

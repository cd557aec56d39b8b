package layers

import (
	"fmt"
	"math/rand"
	"sort"

	"graphstate/internal/graph"
)

// demoBuilders maps CLI model names to constructors with fixed shapes.
var demoBuilders = map[string]func(rng *rand.Rand) (graph.Node, error){
	"linear": func(rng *rand.Rand) (graph.Node, error) {
		return NewLinear(3, 2, rng), nil
	},
	"mlp": func(rng *rand.Rand) (graph.Node, error) {
		return NewMLP([]int{4, 8, 2}, 0.1, rng)
	},
	"tied": func(rng *rand.Rand) (graph.Node, error) {
		return NewTiedAutoencoder(6, 3, rng), nil
	},
}

// BuildDemo constructs one of the named demo graphs with a seeded rng.
func BuildDemo(name string, seed int64) (graph.Node, error) {
	builder, ok := demoBuilders[name]
	if !ok {
		return nil, fmt.Errorf("unknown demo model %q (have %v)", name, DemoNames())
	}
	return builder(rand.New(rand.NewSource(seed)))
}

// DemoNames lists the available demo models sorted by name.
func DemoNames() []string {
	names := make([]string, 0, len(demoBuilders))
	for name := range demoBuilders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package layers

import (
	"encoding/json"
	"math/rand"
	"reflect"
	"testing"

	"graphstate/internal/graph"
	"graphstate/internal/variable"
)

func TestLinearForwardIncrementsCount(t *testing.T) {
	l := NewLinear(3, 2, rand.New(rand.NewSource(1)))
	l.W = variable.Param([][]float64{
		{1, 0, 0},
		{0, 1, 1},
	})
	l.B = variable.Param([]float64{0.5, -0.5})

	y, err := l.Forward([]float64{1, 2, 3})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if !reflect.DeepEqual(y, []float64{1.5, 4.5}) {
		t.Fatalf("output: got %v", y)
	}
	if l.Count.Value() != 1 {
		t.Fatalf("count: got %v, want 1", l.Count.Value())
	}

	if _, err := l.Forward([]float64{1}); err == nil {
		t.Fatal("wrong input length should fail")
	}
}

func TestLinearSplitMergeRoundTrip(t *testing.T) {
	original := NewLinear(4, 3, rand.New(rand.NewSource(7)))

	def, states, err := graph.Split(original)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	rebuilt, err := def.Merge(states[0])
	if err != nil {
		t.Fatalf("merge: %v", err)
	}

	got := rebuilt.(*Linear)
	if got.In != 4 || got.Out != 3 {
		t.Fatalf("shape: %dx%d", got.In, got.Out)
	}
	if !reflect.DeepEqual(got.W.Value(), original.W.Value()) {
		t.Fatal("weights should survive the round trip")
	}
}

func TestMLPForwardRunsEveryBlock(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	m, err := NewMLP([]int{4, 8, 2}, 0, rng)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	y, err := m.Forward([]float64{1, 2, 3, 4}, rng)
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if len(y) != 2 {
		t.Fatalf("output length: got %d", len(y))
	}
	for i, block := range m.Blocks {
		if block.Layer.Count.Value() != 1 || block.Counter.N.Value() != 1 {
			t.Fatalf("block %d counters: layer=%v counter=%v",
				i, block.Layer.Count.Value(), block.Counter.N.Value())
		}
	}
}

func TestMLPNeedsAtLeastTwoSizes(t *testing.T) {
	if _, err := NewMLP([]int{4}, 0, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("one size should be rejected")
	}
}

func TestDropoutDeterministicPassesThrough(t *testing.T) {
	d := NewDropout(0.5)
	d.Deterministic = true
	x := []float64{1, 2, 3}
	if !reflect.DeepEqual(d.Forward(x, rand.New(rand.NewSource(1))), x) {
		t.Fatal("deterministic dropout must be the identity")
	}
}

func TestTiedAutoencoderSharingSurvivesMerge(t *testing.T) {
	original := NewTiedAutoencoder(6, 3, rand.New(rand.NewSource(5)))
	if original.Encoder != original.Shared {
		t.Fatal("fixture should share encoder and shared")
	}

	def, states, err := graph.Split(original)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	// shared layer's variables appear once, under the encoder path
	for _, path := range states[0].Paths() {
		if path.HasPrefix(graph.Path{"shared"}) {
			t.Fatalf("shared path leaked into the state: %s", path)
		}
	}

	rebuilt, err := def.Merge(states[0])
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	got := rebuilt.(*TiedAutoencoder)
	if got.Encoder != got.Shared {
		t.Fatal("merge must restore the shared instance")
	}
	if got.Encoder == got.Decoder {
		t.Fatal("decoder must stay distinct")
	}
}

func TestTrainEvalModeTogglesDropout(t *testing.T) {
	m, err := NewMLP([]int{4, 4, 2}, 0.2, rand.New(rand.NewSource(2)))
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if err := graph.EvalMode(m); err != nil {
		t.Fatalf("eval: %v", err)
	}
	for i, block := range m.Blocks {
		if !block.Drop.Deterministic {
			t.Fatalf("block %d dropout should be deterministic after eval", i)
		}
	}
	if err := graph.TrainMode(m); err != nil {
		t.Fatalf("train: %v", err)
	}
	for i, block := range m.Blocks {
		if block.Drop.Deterministic {
			t.Fatalf("block %d dropout should be live after train", i)
		}
	}
}

func TestForwardAfterJSONRoundTrip(t *testing.T) {
	original := NewLinear(2, 2, rand.New(rand.NewSource(9)))

	def, states, err := graph.Split(original)
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	leaves, sdef := states[0].Flatten()

	// snapshot persistence degrades leaf types to []any/float64
	encoded, err := json.Marshal(leaves)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var decoded []any
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	restored, err := sdef.Unflatten(decoded)
	if err != nil {
		t.Fatalf("unflatten: %v", err)
	}

	rebuilt, err := def.Merge(restored)
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	l := rebuilt.(*Linear)
	y, err := l.Forward([]float64{1, 1})
	if err != nil {
		t.Fatalf("forward on restored weights: %v", err)
	}
	want, err := original.Forward([]float64{1, 1})
	if err != nil {
		t.Fatalf("forward on original: %v", err)
	}
	if !reflect.DeepEqual(y, want) {
		t.Fatalf("outputs differ: restored %v, original %v", y, want)
	}
}

func TestBuildDemoNamesAreStable(t *testing.T) {
	want := []string{"linear", "mlp", "tied"}
	if !reflect.DeepEqual(DemoNames(), want) {
		t.Fatalf("names: got %v", DemoNames())
	}
	for _, name := range want {
		node, err := BuildDemo(name, 42)
		if err != nil {
			t.Fatalf("build %s: %v", name, err)
		}
		if node == nil {
			t.Fatalf("build %s returned nil", name)
		}
	}
	if _, err := BuildDemo("bogus", 1); err == nil {
		t.Fatal("unknown demo name should fail")
	}
}

func TestBuildDemoIsSeedDeterministic(t *testing.T) {
	a, err := BuildDemo("linear", 11)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	b, err := BuildDemo("linear", 11)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if !reflect.DeepEqual(a.(*Linear).W.Value(), b.(*Linear).W.Value()) {
		t.Fatal("same seed should give the same weights")
	}
}

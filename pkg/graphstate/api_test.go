package graphstate

import (
	"context"
	"errors"
	"math/rand"
	"reflect"
	"testing"

	"graphstate/internal/layers"
	"graphstate/internal/variable"
)

func newMemoryClient(t *testing.T) *Client {
	t.Helper()
	client, err := NewClient(context.Background(), Options{StoreKind: "memory"})
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestClientSaveAndLoadCheckpoint(t *testing.T) {
	ctx := context.Background()
	client := newMemoryClient(t)

	original := layers.NewLinear(3, 2, rand.New(rand.NewSource(31)))
	id, err := client.SaveCheckpoint(ctx, "linear", original)
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if id == "" {
		t.Fatal("save should return the snapshot id")
	}

	loaded, err := client.LoadCheckpoint(ctx, id)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	l := loaded.(*layers.Linear)
	if l == original {
		t.Fatal("load should build a fresh graph")
	}

	got, err := l.Forward([]float64{1, 2, 3})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	want, err := original.Forward([]float64{1, 2, 3})
	if err != nil {
		t.Fatalf("forward original: %v", err)
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("outputs differ: loaded %v, original %v", got, want)
	}
}

func TestClientRestoreCheckpointWritesInPlace(t *testing.T) {
	ctx := context.Background()
	client := newMemoryClient(t)

	model := layers.NewLinear(2, 2, rand.New(rand.NewSource(32)))
	id, err := client.SaveCheckpoint(ctx, "before-training", model)
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	saved, err := model.Forward([]float64{1, 1})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}

	// drift the weights, then roll back
	if err := model.W.Set([][]float64{{9, 9}, {9, 9}}); err != nil {
		t.Fatalf("set: %v", err)
	}
	held := model.W
	if err := client.RestoreCheckpoint(ctx, id, model); err != nil {
		t.Fatalf("restore: %v", err)
	}
	if model.W != held {
		t.Fatal("restore must keep the existing variable instances")
	}

	got, err := model.Forward([]float64{1, 1})
	if err != nil {
		t.Fatalf("forward: %v", err)
	}
	if !reflect.DeepEqual(got, saved) {
		t.Fatalf("restored output %v, want %v", got, saved)
	}
}

func TestClientRestoreRejectsDifferentShape(t *testing.T) {
	ctx := context.Background()
	client := newMemoryClient(t)

	id, err := client.SaveCheckpoint(ctx, "small", layers.NewLinear(2, 2, rand.New(rand.NewSource(33))))
	if err != nil {
		t.Fatalf("save: %v", err)
	}

	other := layers.NewLinear(3, 3, rand.New(rand.NewSource(34)))
	err = client.RestoreCheckpoint(ctx, id, other)
	if !errors.Is(err, ErrStructuralMismatch) {
		t.Fatalf("expected ErrStructuralMismatch, got %v", err)
	}
}

func TestClientSnapshotsAndDelete(t *testing.T) {
	ctx := context.Background()
	client := newMemoryClient(t)

	rng := rand.New(rand.NewSource(35))
	first, err := client.SaveCheckpoint(ctx, "first", layers.NewLinear(2, 2, rng))
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := client.SaveCheckpoint(ctx, "second", layers.NewLinear(2, 2, rng)); err != nil {
		t.Fatalf("save: %v", err)
	}

	listed, err := client.Snapshots(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("list: got %d snapshots", len(listed))
	}

	if err := client.DeleteSnapshot(ctx, first); err != nil {
		t.Fatalf("delete: %v", err)
	}
	listed, err = client.Snapshots(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].Name != "second" {
		t.Fatalf("after delete: %+v", listed)
	}

	if _, err := client.LoadCheckpoint(ctx, first); err == nil {
		t.Fatal("loading a deleted snapshot should fail")
	}
}

func TestPublicSurfaceOperations(t *testing.T) {
	model, err := layers.NewMLP([]int{4, 4, 2}, 0.1, rand.New(rand.NewSource(36)))
	if err != nil {
		t.Fatalf("mlp: %v", err)
	}

	def, states, err := Split(model, OfKind(variable.KindParam), Everything())
	if err != nil {
		t.Fatalf("split: %v", err)
	}
	if states[0].Len() == 0 || states[1].Len() == 0 {
		t.Fatal("both partitions should be populated")
	}

	rebuilt, err := Merge(def, states[0], states[1])
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if err := EvalMode(rebuilt); err != nil {
		t.Fatalf("eval: %v", err)
	}

	nodes := 0
	if err := WalkNodes(rebuilt, func(Path, Node) error { nodes++; return nil }); err != nil {
		t.Fatalf("walk: %v", err)
	}
	// 2 blocks of 3 nodes each, plus the mlp
	if nodes != 7 {
		t.Fatalf("walk visited %d nodes", nodes)
	}
}

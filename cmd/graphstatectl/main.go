package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"

	"graphstate/internal/graph"
	"graphstate/internal/layers"
	"graphstate/internal/storage"
	"graphstate/internal/variable"
	api "graphstate/pkg/graphstate"
)

const defaultDBPath = "graphstate.db"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "models":
		return runModels(ctx, args[1:])
	case "kinds":
		return runKinds(ctx, args[1:])
	case "inspect":
		return runInspect(ctx, args[1:])
	case "state":
		return runState(ctx, args[1:])
	case "save":
		return runSave(ctx, args[1:])
	case "snapshots":
		return runSnapshots(ctx, args[1:])
	case "show":
		return runShow(ctx, args[1:])
	case "restore":
		return runRestore(ctx, args[1:])
	case "delete":
		return runDelete(ctx, args[1:])
	case "diff":
		return runDiff(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func runModels(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("models", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, name := range layers.DemoNames() {
		fmt.Println(name)
	}
	return nil
}

func runKinds(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("kinds", flag.ContinueOnError)
	if err := fs.Parse(args); err != nil {
		return err
	}

	for _, spec := range variable.Kinds() {
		fmt.Printf("%s\t%s\n", spec.Name, spec.Description)
	}
	return nil
}

func runInspect(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("inspect", flag.ContinueOnError)
	model := fs.String("model", "linear", "demo model name (see models)")
	seed := fs.Int64("seed", 1, "construction seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	root, err := layers.BuildDemo(*model, *seed)
	if err != nil {
		return err
	}
	def, err := graph.GraphDefOf(root)
	if err != nil {
		return err
	}

	sig := def.ComputeSignature()
	fmt.Printf("model=%s fingerprint=%s\n", *model, sig.Fingerprint)
	fmt.Printf("nodes=%d variables=%d\n", sig.Nodes, sig.Variables)
	for _, kind := range sortedKeys(sig.NodeKinds) {
		fmt.Printf("node kind %-18s x%d\n", kind, sig.NodeKinds[kind])
	}
	for _, kind := range sortedKeys(sig.KindCounts) {
		fmt.Printf("variable kind %-14s x%d\n", kind, sig.KindCounts[kind])
	}
	for _, line := range def.DescribeLines() {
		fmt.Println(line)
	}
	return nil
}

func runState(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("state", flag.ContinueOnError)
	model := fs.String("model", "linear", "demo model name (see models)")
	seed := fs.Int64("seed", 1, "construction seed")
	kinds := fs.String("kinds", "", "comma-separated variable kinds to select")
	if err := fs.Parse(args); err != nil {
		return err
	}

	root, err := layers.BuildDemo(*model, *seed)
	if err != nil {
		return err
	}

	filters := []graph.Filter{}
	if *kinds != "" {
		filters = append(filters, graph.OfKind(strings.Split(*kinds, ",")...))
	}
	states, err := graph.StateOf(root, filters...)
	if err != nil {
		return err
	}
	fmt.Println(states[0].String())
	return nil
}

func runSave(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("save", flag.ContinueOnError)
	model := fs.String("model", "linear", "demo model name (see models)")
	seed := fs.Int64("seed", 1, "construction seed")
	name := fs.String("name", "", "snapshot label (defaults to the model name)")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	root, err := layers.BuildDemo(*model, *seed)
	if err != nil {
		return err
	}
	label := *name
	if label == "" {
		label = *model
	}

	client, err := api.NewClient(ctx, api.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	id, err := client.SaveCheckpoint(ctx, label, root)
	if err != nil {
		return err
	}
	fmt.Printf("saved snapshot id=%s name=%s\n", id, label)
	return nil
}

func runSnapshots(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("snapshots", flag.ContinueOnError)
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := api.NewClient(ctx, api.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	snapshots, err := client.Snapshots(ctx)
	if err != nil {
		return err
	}
	if len(snapshots) == 0 {
		fmt.Println("no snapshots")
		return nil
	}
	for _, snapshot := range snapshots {
		size := uint64(len(snapshot.GraphDef) + len(snapshot.StateDef) + len(snapshot.Leaves))
		fmt.Printf("%s  %-12s %-22s %s\n",
			snapshot.ID, snapshot.Name, humanize.Time(snapshot.CreatedAt), humanize.Bytes(size))
	}
	return nil
}

func runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	id := fs.String("id", "", "snapshot id")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return usageError("show requires --id")
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()
	if err := store.Init(ctx); err != nil {
		return err
	}

	snapshot, ok, err := store.GetSnapshot(ctx, *id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("snapshot not found: %s", *id)
	}

	def, state, err := storage.RestoreSnapshot(snapshot)
	if err != nil {
		return err
	}
	fmt.Printf("id=%s name=%s fingerprint=%s\n", snapshot.ID, snapshot.Name, def.Fingerprint())
	fmt.Println(state.String())
	return nil
}

func runRestore(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("restore", flag.ContinueOnError)
	id := fs.String("id", "", "snapshot id")
	model := fs.String("model", "linear", "demo model to restore into")
	seed := fs.Int64("seed", 1, "construction seed")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return usageError("restore requires --id")
	}

	root, err := layers.BuildDemo(*model, *seed)
	if err != nil {
		return err
	}

	client, err := api.NewClient(ctx, api.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.RestoreCheckpoint(ctx, *id, root); err != nil {
		return err
	}
	states, err := graph.StateOf(root)
	if err != nil {
		return err
	}
	fmt.Printf("restored snapshot %s into %s\n", *id, *model)
	fmt.Println(states[0].String())
	return nil
}

func runDelete(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("delete", flag.ContinueOnError)
	id := fs.String("id", "", "snapshot id")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *id == "" {
		return usageError("delete requires --id")
	}

	client, err := api.NewClient(ctx, api.Options{StoreKind: *storeKind, DBPath: *dbPath})
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.DeleteSnapshot(ctx, *id); err != nil {
		return err
	}
	fmt.Printf("deleted snapshot %s\n", *id)
	return nil
}

func runDiff(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diff", flag.ContinueOnError)
	a := fs.String("a", "", "first snapshot id")
	b := fs.String("b", "", "second snapshot id")
	storeKind := fs.String("store", storage.DefaultStoreKind(), "store backend: memory|sqlite")
	dbPath := fs.String("db-path", defaultDBPath, "sqlite database path")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *a == "" || *b == "" {
		return usageError("diff requires --a and --b")
	}

	store, err := storage.NewStore(*storeKind, *dbPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = storage.CloseIfSupported(store)
	}()
	if err := store.Init(ctx); err != nil {
		return err
	}

	defA, stateA, err := loadParts(ctx, store, *a)
	if err != nil {
		return err
	}
	defB, stateB, err := loadParts(ctx, store, *b)
	if err != nil {
		return err
	}

	if defA.Equal(defB) {
		fmt.Println("structure: identical")
	} else {
		fmt.Printf("structure: differs (%s vs %s)\n", defA.Fingerprint(), defB.Fingerprint())
	}

	changed := 0
	for _, path := range stateA.Paths() {
		va, _ := stateA.Get(path)
		vb, ok := stateB.Get(path)
		if !ok {
			fmt.Printf("only in a: %s\n", path)
			continue
		}
		if fmt.Sprintf("%v", va.Value()) != fmt.Sprintf("%v", vb.Value()) {
			fmt.Printf("changed: %s\n", path)
			changed++
		}
	}
	for _, path := range stateB.Paths() {
		if _, ok := stateA.Get(path); !ok {
			fmt.Printf("only in b: %s\n", path)
		}
	}
	fmt.Printf("%s changed leaves\n", humanize.Comma(int64(changed)))
	return nil
}

func loadParts(ctx context.Context, store storage.Store, id string) (*graph.GraphDef, *graph.State, error) {
	snapshot, ok, err := store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, fmt.Errorf("snapshot not found: %s", id)
	}
	return storage.RestoreSnapshot(snapshot)
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: graphstatectl <models|kinds|inspect|state|save|snapshots|show|restore|delete|diff> [flags]", msg)
}

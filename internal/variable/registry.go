package variable

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Built-in variable kinds. They mirror the usual taxonomy of a stateful
// model: trainable parameters, running batch statistics, call counters,
// cached activations and sown intermediates.
const (
	KindParam        = "param"
	KindBatchStat    = "batch_stat"
	KindCount        = "count"
	KindCache        = "cache"
	KindIntermediate = "intermediate"
)

var (
	ErrKindExists   = errors.New("variable kind already registered")
	ErrKindNotFound = errors.New("variable kind not found")
)

// KindSpec describes one registered variable kind.
type KindSpec struct {
	Name        string
	Description string
}

var kindRegistry = struct {
	mu sync.RWMutex
	m  map[string]KindSpec
}{
	m: make(map[string]KindSpec),
}

func init() {
	initializeBuiltInKinds()
}

func initializeBuiltInKinds() {
	MustRegisterKind(KindParam, "trainable parameter")
	MustRegisterKind(KindBatchStat, "running batch statistic")
	MustRegisterKind(KindCount, "call or step counter")
	MustRegisterKind(KindCache, "cached activation")
	MustRegisterKind(KindIntermediate, "sown intermediate value")
}

// RegisterKind records a variable kind so tooling can validate snapshots
// against the known taxonomy. Unregistered kinds are still usable; they are
// simply invisible to listing.
func RegisterKind(name, description string) error {
	if name == "" {
		return errors.New("variable kind name is required")
	}

	kindRegistry.mu.Lock()
	defer kindRegistry.mu.Unlock()

	if _, exists := kindRegistry.m[name]; exists {
		return fmt.Errorf("%w: %s", ErrKindExists, name)
	}
	kindRegistry.m[name] = KindSpec{Name: name, Description: description}
	return nil
}

func MustRegisterKind(name, description string) {
	if err := RegisterKind(name, description); err != nil {
		panic(err)
	}
}

// GetKind returns the spec for a registered kind.
func GetKind(name string) (KindSpec, error) {
	kindRegistry.mu.RLock()
	defer kindRegistry.mu.RUnlock()

	spec, ok := kindRegistry.m[name]
	if !ok {
		return KindSpec{}, fmt.Errorf("%w: %s", ErrKindNotFound, name)
	}
	return spec, nil
}

// Kinds returns the registered kinds sorted by name.
func Kinds() []KindSpec {
	kindRegistry.mu.RLock()
	defer kindRegistry.mu.RUnlock()

	specs := make([]KindSpec, 0, len(kindRegistry.m))
	for _, spec := range kindRegistry.m {
		specs = append(specs, spec)
	}
	sort.Slice(specs, func(i, j int) bool { return specs[i].Name < specs[j].Name })
	return specs
}

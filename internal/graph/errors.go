package graph

import (
	"errors"

	"graphstate/internal/variable"
)

var (
	// ErrStructuralMismatch reports that a GraphDef's declared shape
	// disagrees with the graph or States it was asked to work with:
	// a missing path, an unexpected path, a variable-kind mismatch, or an
	// attribute that cannot be classified.
	ErrStructuralMismatch = errors.New("structural mismatch")

	// ErrFilterExhausted reports a Variable that matched no filter during
	// split when no catch-all was supplied.
	ErrFilterExhausted = errors.New("filters are not exhaustive")

	// ErrIdentityCycle reports a reference to an identity index that cannot
	// be resolved at reconstruction time.
	ErrIdentityCycle = errors.New("unresolved identity reference")
)

// ErrStaleMutation mirrors the variable package's sentinel so callers can
// match it without importing both packages.
var ErrStaleMutation = variable.ErrStaleMutation

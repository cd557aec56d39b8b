// Package graph converts between reference-semantics object graphs and
// value-semantics (GraphDef, State) pairs.
//
// Split walks a graph of Nodes, records its shape and identity pattern in an
// immutable GraphDef, and extracts its Variables into ordered States, with
// filters partitioning them into disjoint collections. Merge rebuilds an
// equivalent graph from a GraphDef and States, restoring shared references
// exactly; Update writes State values back into an existing graph in place.
// The typical cycle is split outside a transformation boundary, transform
// the flattened State, merge inside, compute, split again, and update the
// original graph with the result.
//
// All operations are synchronous, single-threaded and scoped to one call;
// no identity tracking outlives a traversal.
package graph

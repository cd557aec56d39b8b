package graph

// Split traverses the graph under root and decomposes it into a GraphDef
// plus one State per filter. With no filters a single State holds every
// Variable. Each Variable is assigned to the first filter that matches it;
// a Variable matching no filter is a fatal classification error, so supply
// Everything() last when filters are not known to cover all kinds.
//
// A shared Variable appears exactly once across the returned States, at the
// path of its first visit.
func Split(root Node, filters ...Filter) (*GraphDef, []*State, error) {
	def, leaves, err := traverse(root)
	if err != nil {
		return nil, nil, err
	}

	all := NewState()
	for _, lf := range leaves {
		if err := all.add(lf.path, lf.v); err != nil {
			return nil, nil, err
		}
	}

	states, err := all.Partition(filters...)
	if err != nil {
		return nil, nil, err
	}
	return def, states, nil
}

// StateOf extracts the States of a graph without its GraphDef, for callers
// that only inspect or transform values.
func StateOf(root Node, filters ...Filter) ([]*State, error) {
	_, states, err := Split(root, filters...)
	return states, err
}

// GraphDefOf traverses root and returns only the structural description.
func GraphDefOf(root Node) (*GraphDef, error) {
	def, _, err := traverse(root)
	return def, err
}

package graph

import "slices"

// Filter is a predicate over a Variable's path and kind, used to partition
// one traversal into disjoint States. Assignment is first-match-wins in the
// order filters are supplied to Split.
type Filter interface {
	Matches(path Path, kind string) bool
}

// FilterFunc adapts a plain function into a Filter.
type FilterFunc func(path Path, kind string) bool

func (f FilterFunc) Matches(path Path, kind string) bool { return f(path, kind) }

// OfKind matches Variables whose kind is any of the given kinds.
func OfKind(kinds ...string) Filter {
	return FilterFunc(func(_ Path, kind string) bool {
		return slices.Contains(kinds, kind)
	})
}

// PathPrefix matches Variables whose path starts with the given parts.
func PathPrefix(parts ...string) Filter {
	prefix := Path(parts)
	return FilterFunc(func(path Path, _ string) bool {
		return path.HasPrefix(prefix)
	})
}

// Everything matches every Variable. Supply it last as the catch-all.
func Everything() Filter {
	return FilterFunc(func(Path, string) bool { return true })
}

// Nothing matches no Variable.
func Nothing() Filter {
	return FilterFunc(func(Path, string) bool { return false })
}

// Not inverts a filter.
func Not(f Filter) Filter {
	return FilterFunc(func(path Path, kind string) bool {
		return !f.Matches(path, kind)
	})
}

// AnyOf is the union of filters.
func AnyOf(filters ...Filter) Filter {
	return FilterFunc(func(path Path, kind string) bool {
		for _, f := range filters {
			if f.Matches(path, kind) {
				return true
			}
		}
		return false
	})
}

// AllOf is the intersection of filters.
func AllOf(filters ...Filter) Filter {
	return FilterFunc(func(path Path, kind string) bool {
		for _, f := range filters {
			if !f.Matches(path, kind) {
				return false
			}
		}
		return true
	})
}

package graph

import "strings"

// PathSeparator joins path parts into the canonical string form.
const PathSeparator = "/"

// Path is the sequence of attribute names from a root to an attribute.
// List elements use their decimal index as the part; map elements use their
// key.
type Path []string

// Child returns a new Path extended by one part. The receiver is not
// modified and no storage is shared with it.
func (p Path) Child(part string) Path {
	child := make(Path, 0, len(p)+1)
	child = append(child, p...)
	return append(child, part)
}

func (p Path) String() string {
	return strings.Join(p, PathSeparator)
}

// HasPrefix reports whether p starts with the given prefix parts.
func (p Path) HasPrefix(prefix Path) bool {
	if len(prefix) > len(p) {
		return false
	}
	for i, part := range prefix {
		if p[i] != part {
			return false
		}
	}
	return true
}

// ParsePath parses the canonical string form back into a Path. The empty
// string parses to the empty (root) path.
func ParsePath(s string) Path {
	if s == "" {
		return Path{}
	}
	return Path(strings.Split(s, PathSeparator))
}

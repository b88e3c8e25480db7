package digest

import "sort"

// Set is an unordered collection of digests.
type Set map[Digest]struct{}

func NewSet(ds ...Digest) Set {
	s := make(Set, len(ds))
	for _, d := range ds {
		s[d] = struct{}{}
	}
	return s
}

func (s Set) Add(d Digest) { s[d] = struct{}{} }

// Has reports membership. A nil Set contains nothing.
func (s Set) Has(d Digest) bool {
	_, ok := s[d]
	return ok
}

func (s Set) Len() int { return len(s) }

// Union returns a new set holding the members of s and other.
func (s Set) Union(other Set) Set {
	out := make(Set, len(s)+len(other))
	for d := range s {
		out[d] = struct{}{}
	}
	for d := range other {
		out[d] = struct{}{}
	}
	return out
}

// Sorted returns the members in ascending byte order.
func (s Set) Sorted() []Digest {
	out := make([]Digest, 0, len(s))
	for d := range s {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Compare(out[j]) < 0 })
	return out
}

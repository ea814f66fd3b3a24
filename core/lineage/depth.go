package lineage

import "sort"

// DepthSet is a sorted, de-duplicated set of depths.
type DepthSet []int

// newDepthSet builds a DepthSet from arbitrary depths.
func newDepthSet(depths ...int) DepthSet {
	seen := make(map[int]struct{}, len(depths))
	out := make(DepthSet, 0, len(depths))
	for _, d := range depths {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Ints(out)
	return out
}

// Contains reports whether d is in the set.
func (s DepthSet) Contains(d int) bool {
	i := sort.SearchInts(s, d)
	return i < len(s) && s[i] == d
}

// Min returns the smallest depth, or -1 for an empty set.
func (s DepthSet) Min() int {
	if len(s) == 0 {
		return -1
	}
	return s[0]
}

// Max returns the largest depth, or -1 for an empty set.
func (s DepthSet) Max() int {
	if len(s) == 0 {
		return -1
	}
	return s[len(s)-1]
}

// AnyBelow reports whether some depth is strictly less than d.
func (s DepthSet) AnyBelow(d int) bool {
	return len(s) > 0 && s[0] < d
}

// AnyAbove reports whether some depth is strictly greater than d.
func (s DepthSet) AnyAbove(d int) bool {
	return len(s) > 0 && s[len(s)-1] > d
}

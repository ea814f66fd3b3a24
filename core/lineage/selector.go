package lineage

import "github.com/hallamlab/Genome-announcements/core/ontology"

// MembersOf returns the ids of the subtree rooted at seed under the coverage
// rule. The seed is always included. With whitelist set every descendant is
// included. Otherwise a descendant is included once all of its recorded
// parents are included.
//
// Inclusion is evaluated to a fixed point: each time an id joins, its
// children are re-checked, so a child whose parents join in any order is
// admitted as soon as the last of them does.
func (r *Resolver) MembersOf(seed string, whitelist bool) ontology.IDSet {
	members := ontology.NewIDSet(seed)
	if whitelist {
		for _, id := range r.Descendants(seed) {
			members.Add(id)
		}
		return members
	}

	queue := []string{seed}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, child := range r.index.Children(cur) {
			if members.Has(child) || !r.covered(child, members) {
				continue
			}
			members.Add(child)
			queue = append(queue, child)
		}
	}
	return members
}

// covered reports whether every parent of id is already in members.
func (r *Resolver) covered(id string, members ontology.IDSet) bool {
	for p := range r.index.ParentSet(id) {
		if !members.Has(p) {
			return false
		}
	}
	return true
}

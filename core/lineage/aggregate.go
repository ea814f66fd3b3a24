package lineage

import "sort"

// Category is one aggregation bucket for a term: the top-level group below
// the root and the category at the group's configured depth.
type Category struct {
	Category string `json:"category"`
	Group    string `json:"group"`
}

// Aggregate maps id onto top-level categories. For every lineage the group
// is the id directly below the root (or the sole id of a one-element
// lineage); groups absent from depths are skipped, and the category is the
// lineage element at the group's depth. Lineages that end above that depth
// contribute nothing.
func (r *Resolver) Aggregate(id string, depths map[string]int) []Category {
	seen := make(map[Category]struct{})
	for _, path := range r.AllLineages(id) {
		group := path[0]
		if len(path) > 1 {
			group = path[1]
		}
		d, ok := depths[group]
		if !ok || d < 0 || d >= len(path) {
			continue
		}
		seen[Category{Category: path[d], Group: group}] = struct{}{}
	}

	out := make([]Category, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Group != out[j].Group {
			return out[i].Group < out[j].Group
		}
		return out[i].Category < out[j].Category
	})
	return out
}

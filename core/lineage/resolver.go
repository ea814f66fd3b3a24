// Package lineage answers depth-aware ancestry and subtree queries over a
// parent/child index.
//
// A Resolver carries the read-only index and its own depth memo, so several
// hierarchies can be queried side by side without shared state. A Resolver
// is not safe for concurrent use; create one per goroutine.
package lineage

import (
	"sort"

	"github.com/hallamlab/Genome-announcements/core/ontology"
)

// Resolver computes lineages, depth-sets and ancestor frontiers.
type Resolver struct {
	index  *ontology.Index
	depths map[string]DepthSet
}

// New creates a resolver over ix. The id graph must be acyclic; a cycle is
// reported as a PreconditionError and no resolver is returned.
func New(ix *ontology.Index) (*Resolver, error) {
	if err := ix.CheckAcyclic("lineage"); err != nil {
		return nil, err
	}
	return &Resolver{
		index:  ix,
		depths: make(map[string]DepthSet),
	}, nil
}

// Index returns the index the resolver queries.
func (r *Resolver) Index() *ontology.Index {
	return r.index
}

// Known reports whether id takes part in any recorded edge. Queries on
// unknown ids treat them as isolated roots.
func (r *Resolver) Known(id string) bool {
	return r.index.Contains(id)
}

// AllLineages returns every root-to-id path. An id with no recorded parents
// yields the single path [id]. A term reachable through structurally
// distinct parent choices appears once per choice.
func (r *Resolver) AllLineages(id string) [][]string {
	parents := r.index.Parents(id)
	if len(parents) == 0 {
		return [][]string{{id}}
	}
	var out [][]string
	for _, p := range parents {
		for _, lin := range r.AllLineages(p) {
			path := make([]string, len(lin)+1)
			copy(path, lin)
			path[len(lin)] = id
			out = append(out, path)
		}
	}
	return out
}

// DepthsOf returns the set of depths at which id is reachable from a root.
// An id without parents is a root at depth 0. Results are memoized.
func (r *Resolver) DepthsOf(id string) DepthSet {
	if ds, ok := r.depths[id]; ok {
		return ds
	}
	parents := r.index.Parents(id)
	if len(parents) == 0 {
		ds := DepthSet{0}
		r.depths[id] = ds
		return ds
	}
	var all []int
	for _, p := range parents {
		for _, d := range r.DepthsOf(p) {
			all = append(all, d+1)
		}
	}
	ds := newDepthSet(all...)
	r.depths[id] = ds
	return ds
}

// AncestorsAtDepth returns the sorted frontier of ancestors of id sitting
// exactly at depth along some lineage of id.
//
// When whitelist is non-nil, ids outside it contribute nothing and their
// ancestry is not searched. If id itself is reachable at a depth shallower
// than the target it never reaches that deep and is included verbatim.
// Each branch is reconciled on its own: an id with a depth equal to the
// target joins the frontier, and an id with a depth beyond the target
// continues into its parents. An id reachable both at and beyond the target
// therefore joins the frontier and is also searched through, where a
// single-branch rule would only search through it.
func (r *Resolver) AncestorsAtDepth(id string, depth int, whitelist ontology.IDSet) []string {
	frontier := make(ontology.IDSet)
	visited := make(ontology.IDSet)

	var walk func(cur string)
	walk = func(cur string) {
		if !visited.Add(cur) {
			return
		}
		if whitelist != nil && !whitelist.Has(cur) {
			return
		}
		ds := r.DepthsOf(cur)
		if ds.Contains(depth) {
			frontier.Add(cur)
		}
		if ds.AnyAbove(depth) {
			for _, p := range r.index.Parents(cur) {
				walk(p)
			}
		}
	}
	walk(id)

	if r.DepthsOf(id).AnyBelow(depth) {
		frontier.Add(id)
	}
	return frontier.Sorted()
}

// Descendants returns every id reachable below id in breadth-first order.
// Ids at the same distance from id are sorted.
func (r *Resolver) Descendants(id string) []string {
	type reached struct {
		id    string
		depth int
	}
	var found []reached
	r.index.WalkDown([]string{id}, func(d string, depth int) bool {
		if depth > 0 {
			found = append(found, reached{d, depth})
		}
		return false
	})
	sort.Slice(found, func(i, j int) bool {
		if found[i].depth != found[j].depth {
			return found[i].depth < found[j].depth
		}
		return found[i].id < found[j].id
	})

	out := make([]string, len(found))
	for i, f := range found {
		out[i] = f.id
	}
	return out
}

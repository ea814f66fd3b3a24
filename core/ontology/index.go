package ontology

import (
	"encoding/json"
	"sort"
	"strings"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/iterator"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/hallamlab/Genome-announcements/core/errors"
)

// Index records parent and child id sets independently of the Node arena,
// so multi-parent queries never re-walk placements. The same edges are
// mirrored into a directed graph for ordering and traversal.
type Index struct {
	parents  map[string]IDSet
	children map[string]IDSet
	edges    int

	graph *simple.DirectedGraph
	nodes map[string]int64
	names []string
	loops IDSet
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		parents:  make(map[string]IDSet),
		children: make(map[string]IDSet),
		graph:    simple.NewDirectedGraph(),
		nodes:    make(map[string]int64),
		loops:    make(IDSet),
	}
}

// AddEdge records parent -> child and reports whether the edge is new.
func (ix *Index) AddEdge(parent, child string) bool {
	ps, ok := ix.parents[child]
	if !ok {
		ps = make(IDSet)
		ix.parents[child] = ps
	}
	if !ps.Add(parent) {
		return false
	}
	cs, ok := ix.children[parent]
	if !ok {
		cs = make(IDSet)
		ix.children[parent] = cs
	}
	cs.Add(child)
	ix.edges++

	if parent == child {
		ix.node(parent)
		ix.loops.Add(parent)
		return true
	}
	ix.graph.SetEdge(simple.Edge{F: ix.node(parent), T: ix.node(child)})
	return true
}

// node returns the graph node of id, adding it on first use.
func (ix *Index) node(id string) graph.Node {
	n, ok := ix.nodes[id]
	if !ok {
		n = int64(len(ix.names))
		ix.nodes[id] = n
		ix.names = append(ix.names, id)
		ix.graph.AddNode(simple.Node(n))
	}
	return simple.Node(n)
}

// Parents returns the parent ids of id, sorted.
func (ix *Index) Parents(id string) []string {
	return ix.parents[id].Sorted()
}

// ParentSet returns the parent set of id. Callers must not modify it.
func (ix *Index) ParentSet(id string) IDSet {
	return ix.parents[id]
}

// Children returns the child ids of id, sorted.
func (ix *Index) Children(id string) []string {
	return ix.children[id].Sorted()
}

// HasParents reports whether any parent is recorded for id.
func (ix *Index) HasParents(id string) bool {
	return len(ix.parents[id]) > 0
}

// Contains reports whether id takes part in any edge.
func (ix *Index) Contains(id string) bool {
	return len(ix.parents[id]) > 0 || len(ix.children[id]) > 0
}

// EdgeCount returns the number of distinct edges.
func (ix *Index) EdgeCount() int {
	return ix.edges
}

// IDs returns every id taking part in an edge, sorted.
func (ix *Index) IDs() []string {
	seen := make(IDSet, len(ix.parents)+len(ix.children))
	for id := range ix.parents {
		seen.Add(id)
	}
	for id := range ix.children {
		seen.Add(id)
	}
	return seen.Sorted()
}

// Roots returns the ids that have children but no parents, sorted.
func (ix *Index) Roots() []string {
	var roots []string
	for id := range ix.children {
		if !ix.HasParents(id) {
			roots = append(roots, id)
		}
	}
	sort.Strings(roots)
	return roots
}

// CheckAcyclic verifies that the parent -> child graph has no cycle. The
// returned PreconditionError names the ids of one offending cycle.
func (ix *Index) CheckAcyclic(hierarchy string) error {
	if len(ix.loops) > 0 {
		id := ix.loops.Sorted()[0]
		return errors.NewPrecondition(hierarchy, "cycle among %s", id)
	}
	_, err := topo.Sort(ix.graph)
	if err == nil {
		return nil
	}
	var cycles topo.Unorderable
	if !errors.As(err, &cycles) {
		return errors.NewPrecondition(hierarchy, "cannot order id graph: %v", err)
	}

	var first []string
	for _, component := range cycles {
		ids := make([]string, len(component))
		for i, n := range component {
			ids[i] = ix.names[n.ID()]
		}
		sort.Strings(ids)
		if first == nil || ids[0] < first[0] {
			first = ids
		}
	}
	return errors.NewPrecondition(hierarchy, "cycle among %s", strings.Join(first, ", "))
}

// sourceID is the virtual node joining the start ids of a walk.
const sourceID = -1

// sourced presents the index graph with a virtual source whose children
// are the start ids, so one breadth-first walk covers all of them.
type sourced struct {
	g     *simple.DirectedGraph
	roots []graph.Node
}

func (s sourced) From(id int64) graph.Nodes {
	if id == sourceID {
		return iterator.NewOrderedNodes(s.roots)
	}
	return s.g.From(id)
}

func (s sourced) Edge(uid, vid int64) graph.Edge {
	if uid == sourceID {
		return simple.Edge{F: simple.Node(uid), T: simple.Node(vid)}
	}
	return s.g.Edge(uid, vid)
}

// WalkDown visits the ids reachable from roots breadth-first. Each id is
// visited once, with its distance from the nearest root. Roots without
// edges are visited at depth 0. The walk stops when visit returns true.
func (ix *Index) WalkDown(roots []string, visit func(id string, depth int) bool) {
	src := sourced{g: ix.graph}
	for _, r := range roots {
		n, ok := ix.nodes[r]
		if !ok {
			if visit(r, 0) {
				return
			}
			continue
		}
		src.roots = append(src.roots, simple.Node(n))
	}
	if len(src.roots) == 0 {
		return
	}

	var bf traverse.BreadthFirst
	bf.Walk(src, simple.Node(sourceID), func(n graph.Node, d int) bool {
		if n.ID() == sourceID {
			return false
		}
		return visit(ix.names[n.ID()], d-1)
	})
}

// Edges returns every edge as a [parent, child] pair, sorted.
func (ix *Index) Edges() [][2]string {
	out := make([][2]string, 0, ix.edges)
	for parent, cs := range ix.children {
		for child := range cs {
			out = append(out, [2]string{parent, child})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i][0] != out[j][0] {
			return out[i][0] < out[j][0]
		}
		return out[i][1] < out[j][1]
	})
	return out
}

// MarshalJSON encodes the index as its sorted edge list.
func (ix *Index) MarshalJSON() ([]byte, error) {
	return json.Marshal(ix.Edges())
}

// UnmarshalJSON rebuilds the index from an edge list.
func (ix *Index) UnmarshalJSON(data []byte) error {
	var edges [][2]string
	if err := json.Unmarshal(data, &edges); err != nil {
		return err
	}
	*ix = *NewIndex()
	for _, e := range edges {
		ix.AddEdge(e[0], e[1])
	}
	return nil
}

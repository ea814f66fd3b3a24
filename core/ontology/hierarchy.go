package ontology

import (
	"github.com/hallamlab/Genome-announcements/core/errors"
)

// NodeID indexes a Node in its hierarchy's arena.
type NodeID int

// NoParent is the Parent of a root node.
const NoParent NodeID = -1

// Node is one placement of a Term in the hierarchy.
type Node struct {
	// TermID is the id of the placed Term.
	TermID string `json:"term"`

	// Depth is the distance from the root along the path that produced this
	// placement. It is not a global shortest-path depth.
	Depth int `json:"depth"`

	// Parent is the parent placement, or NoParent for the root.
	Parent NodeID `json:"parent"`

	// Children are the child placements in source order.
	Children []NodeID `json:"children,omitempty"`
}

// IsRoot reports whether n has no parent placement.
func (n *Node) IsRoot() bool {
	return n.Parent == NoParent
}

// Format names the source format a hierarchy was parsed from.
type Format string

// Format constants.
const (
	FormatBrite   Format = "brite"
	FormatGO      Format = "go"
	FormatMetaCyc Format = "metacyc"
)

// Hierarchy is a fully constructed classification hierarchy.
type Hierarchy struct {
	Name   string    `json:"name"`
	Format Format    `json:"format"`
	Terms  *Registry `json:"terms"`
	Nodes  []Node    `json:"nodes"`
	Root   NodeID    `json:"root"`
	Index  *Index    `json:"index"`

	placements map[string][]NodeID
}

// NewHierarchy creates an empty hierarchy with no root.
func NewHierarchy(name string, format Format) *Hierarchy {
	return &Hierarchy{
		Name:   name,
		Format: format,
		Terms:  NewRegistry(),
		Root:   NoParent,
		Index:  NewIndex(),
	}
}

// Place appends a placement of t under parent and returns its id. The first
// placement with NoParent becomes the root; a second one is rejected.
func (h *Hierarchy) Place(t *Term, parent NodeID) (NodeID, error) {
	depth := 0
	if parent != NoParent {
		if int(parent) < 0 || int(parent) >= len(h.Nodes) {
			return NoParent, errors.NewPrecondition(string(h.Format), "placement of %s under unknown node %d", t.ID, parent)
		}
		depth = h.Nodes[parent].Depth + 1
	} else if h.Root != NoParent {
		return NoParent, errors.NewPrecondition(string(h.Format), "second root placement %s", t.ID)
	}

	id := NodeID(len(h.Nodes))
	h.Nodes = append(h.Nodes, Node{TermID: t.ID, Depth: depth, Parent: parent})
	if parent == NoParent {
		h.Root = id
	} else {
		h.Nodes[parent].Children = append(h.Nodes[parent].Children, id)
	}
	if h.placements != nil {
		h.placements[t.ID] = append(h.placements[t.ID], id)
	}
	return id, nil
}

// Node returns the placement with the given id.
func (h *Hierarchy) Node(id NodeID) *Node {
	if int(id) < 0 || int(id) >= len(h.Nodes) {
		return nil
	}
	return &h.Nodes[id]
}

// RootNode returns the designated root placement, or nil for an empty hierarchy.
func (h *Hierarchy) RootNode() *Node {
	return h.Node(h.Root)
}

// Term returns the Term placed at node id.
func (h *Hierarchy) Term(id NodeID) *Term {
	n := h.Node(id)
	if n == nil {
		return nil
	}
	t, _ := h.Terms.Get(n.TermID)
	return t
}

// Placements returns every node placing the term with the given id, in
// creation order.
func (h *Hierarchy) Placements(termID string) []NodeID {
	if h.placements == nil {
		h.placements = make(map[string][]NodeID)
		for i := range h.Nodes {
			tid := h.Nodes[i].TermID
			h.placements[tid] = append(h.placements[tid], NodeID(i))
		}
	}
	return h.placements[termID]
}

// Walk visits placements depth-first from the root in child order. Returning
// false from fn skips the node's children.
func (h *Hierarchy) Walk(fn func(id NodeID, n *Node) bool) {
	if h.Root == NoParent {
		return
	}
	stack := []NodeID{h.Root}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		n := &h.Nodes[id]
		if !fn(id, n) {
			continue
		}
		for i := len(n.Children) - 1; i >= 0; i-- {
			stack = append(stack, n.Children[i])
		}
	}
}

// Validate checks the structural invariants of a constructed hierarchy:
// a single root, depth == parent depth + 1 for every other node, every
// placed term registered, and an acyclic Index.
func (h *Hierarchy) Validate() error {
	name := string(h.Format)
	if len(h.Nodes) > 0 && h.Root == NoParent {
		return errors.NewPrecondition(name, "hierarchy has nodes but no root")
	}
	for i := range h.Nodes {
		n := &h.Nodes[i]
		if !h.Terms.Has(n.TermID) {
			return errors.NewPrecondition(name, "node %d places unregistered term %s", i, n.TermID)
		}
		if n.Parent == NoParent {
			if NodeID(i) != h.Root {
				return errors.NewPrecondition(name, "node %d (%s) has no parent but is not the root", i, n.TermID)
			}
			if n.Depth != 0 {
				return errors.NewPrecondition(name, "root depth is %d", n.Depth)
			}
			continue
		}
		p := h.Node(n.Parent)
		if p == nil {
			return errors.NewPrecondition(name, "node %d (%s) has dangling parent %d", i, n.TermID, n.Parent)
		}
		if n.Depth != p.Depth+1 {
			return errors.NewPrecondition(name, "node %d (%s) depth %d under parent depth %d", i, n.TermID, n.Depth, p.Depth)
		}
	}
	for _, id := range h.Index.IDs() {
		if !h.Terms.Has(id) {
			return errors.NewPrecondition(name, "edge references unregistered term %s", id)
		}
	}
	return h.Index.CheckAcyclic(name)
}

// Package metacyc builds the MetaCyc reaction and pathway class hierarchy
// from the classes.dat and pathways.dat flat files of a MetaCyc release.
//
// MetaCyc is licensed. Its files are never fetched; callers point the
// builder at a local copy.
package metacyc

import (
	"strings"

	"github.com/hallamlab/Genome-announcements/core/errors"
	"github.com/hallamlab/Genome-announcements/core/ontology"
)

// HierarchyName is the name given to built MetaCyc hierarchies.
const HierarchyName = "metacyc"

// DownloadURL is where a licensed copy of MetaCyc can be requested.
const DownloadURL = "https://metacyc.org/download.shtml"

// DefaultVersion is the MetaCyc release read when none is configured.
const DefaultVersion = "26.0"

// Options control which part of the class tree is kept.
type Options struct {
	// Root is the class the hierarchy is grown from.
	Root string
	// Blacklist names classes that are never expanded below Root.
	Blacklist []string
}

// DefaultOptions grows the hierarchy from Generalized-Reactions and skips
// the catch-all Reactions and Super-Pathways classes.
func DefaultOptions() Options {
	return Options{
		Root:      "Generalized-Reactions",
		Blacklist: []string{"Reactions", "Super-Pathways"},
	}
}

// Build restricts the class tree to opts.Root, merges the pathway tree into
// it and expands the result breadth-first. A class reached along several
// paths gets one Term and one DAG Node per path.
func Build(classes, pathways *Table, opts Options) (*ontology.Hierarchy, error) {
	if opts.Root == "" {
		return nil, errors.NewValidation("metacyc.root", "root class must not be empty")
	}

	tree := Restrict(classes.Tree(), opts.Root, opts.Blacklist)
	tree.Union(pathways.Tree())
	if _, ok := tree[opts.Root]; !ok {
		return nil, errors.NewPrecondition(HierarchyName, "root %s absent from adjacency", opts.Root)
	}
	entries := classes.Merge(pathways)

	h := ontology.NewHierarchy(HierarchyName, ontology.FormatMetaCyc)
	reachable(tree, opts.Root, h.Index)
	if err := h.Index.CheckAcyclic(HierarchyName); err != nil {
		return nil, err
	}

	type item struct {
		id     string
		parent ontology.NodeID
	}
	queue := []item{{opts.Root, ontology.NoParent}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		term, ok := h.Terms.Get(cur.id)
		if !ok {
			var err error
			if term, err = newTerm(cur.id, entries, tree, cur.id == opts.Root); err != nil {
				return nil, err
			}
			if term, err = h.Terms.Add(term); err != nil {
				return nil, err
			}
		}
		node, err := h.Place(term, cur.parent)
		if err != nil {
			return nil, err
		}
		for _, c := range tree[cur.id] {
			queue = append(queue, item{c, node})
		}
	}

	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

// reachable records in ix every edge of tree reachable from root.
func reachable(tree Tree, root string, ix *ontology.Index) {
	tree.Index().WalkDown([]string{root}, func(id string, _ int) bool {
		for _, c := range tree[id] {
			ix.AddEdge(id, c)
		}
		return false
	})
}

func newTerm(id string, entries *Table, tree Tree, isRoot bool) (*ontology.Term, error) {
	t := &ontology.Term{ID: id, Kind: ontology.KindNode}
	switch {
	case isRoot:
		t.Kind = ontology.KindRoot
	case len(tree[id]) == 0:
		t.Kind = ontology.KindLeaf
	}

	rec, ok := entries.Get(id)
	if !ok {
		t.Label = FallbackLabel(id)
		return t, nil
	}
	names := rec.Get(KeyCommonName)
	switch len(names) {
	case 0:
		t.Label = FallbackLabel(id)
	case 1:
		t.Label = names[0]
	default:
		return nil, errors.NewParse("MetaCyc", id, "more than one "+KeyCommonName)
	}
	t.Description = rec.First(KeyComment)
	t.AltLabels = rec.Get(KeySynonyms)
	return t, nil
}

// FallbackLabel is the label of a class without COMMON-NAME: its id with
// dashes removed, lower-cased.
func FallbackLabel(id string) string {
	return strings.ToLower(strings.ReplaceAll(id, "-", ""))
}

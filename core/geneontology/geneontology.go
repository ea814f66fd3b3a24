// Package geneontology parses the Gene Ontology OWL (RDF/XML) release into
// one parent/child index per relation type.
//
// Depth is computed for the "is a" hierarchy only, breadth-first from every
// "is a" root; the first depth at which a term is reached wins. That value is
// the minimum of the term's depth-set. The full depth-set is available by
// handing IsA() to lineage.New.
package geneontology

import (
	"io"
	"sort"

	"github.com/antchfx/xmlquery"

	"github.com/hallamlab/Genome-announcements/core/errors"
	"github.com/hallamlab/Genome-announcements/core/ontology"
)

// HierarchyName is the hierarchy name used in errors and snapshots.
const HierarchyName = "go"

// IsA is the relation label of plain subclass edges.
const IsA = "is a"

// Ontology is a parsed Gene Ontology release.
type Ontology struct {
	// Terms holds every non-deprecated class.
	Terms *ontology.Registry `json:"terms"`

	// Relations maps a relation property id (e.g. "BFO:0000050") to its label.
	Relations map[string]string `json:"relations"`

	// Trees holds one index per relation label, "is a" included.
	Trees map[string]*ontology.Index `json:"trees"`

	// Roots lists, per relation label, the ids never seen as a child.
	Roots map[string][]string `json:"roots"`

	// Depth is the first-seen breadth-first depth in the "is a" hierarchy.
	Depth map[string]int `json:"depth"`

	// DuplicateEdges counts subclass references repeated within the release.
	DuplicateEdges int `json:"duplicate_edges,omitempty"`
}

// edge is one raw (relation, child, parent) triple.
type edge struct {
	relation string
	child    string
	parent   string
}

// Parse reads an OWL RDF/XML document.
func Parse(r io.Reader) (*Ontology, error) {
	doc, err := xmlquery.Parse(r)
	if err != nil {
		return nil, &errors.ParseError{Format: "OWL", Message: "invalid XML", Err: err}
	}
	return FromDocument(doc)
}

// FromDocument builds an Ontology from a parsed RDF/XML document.
//
// Every subclass reference is counted as it is extracted. Repeated
// references are counted once more in DuplicateEdges; the edges spread over
// the relation indexes must then number exactly the extracted references
// less the duplicates.
func FromDocument(doc *xmlquery.Node) (*Ontology, error) {
	o := &Ontology{
		Terms:     ontology.NewRegistry(),
		Relations: relationTypes(doc),
		Trees:     make(map[string]*ontology.Index),
		Roots:     make(map[string][]string),
		Depth:     make(map[string]int),
	}

	var terms []*ontology.Term
	raw := make(map[edge]struct{})
	extracted := 0
	for _, class := range xmlquery.QuerySelectorAll(doc, classExpr) {
		if childText(class, "owl", "deprecated") == "true" {
			continue
		}
		id := childText(class, "oboInOwl", "id")
		if id == "" {
			continue
		}
		terms = append(terms, classTerm(class, id))
		for _, e := range o.classEdges(class, id) {
			extracted++
			if _, dup := raw[e]; dup {
				o.DuplicateEdges++
				continue
			}
			raw[e] = struct{}{}
		}
	}

	o.Trees[IsA] = ontology.NewIndex()
	for _, label := range o.Relations {
		if _, ok := o.Trees[label]; !ok {
			o.Trees[label] = ontology.NewIndex()
		}
	}
	for e := range raw {
		tree, ok := o.Trees[e.relation]
		if !ok {
			tree = ontology.NewIndex()
			o.Trees[e.relation] = tree
		}
		tree.AddEdge(e.parent, e.child)
	}

	split := 0
	for label, tree := range o.Trees {
		split += tree.EdgeCount()
		o.Roots[label] = tree.Roots()
	}
	if want := extracted - o.DuplicateEdges; split != want {
		return nil, errors.NewPrecondition(HierarchyName, "%d edges extracted (%d repeated) but %d after splitting by relation type", extracted, o.DuplicateEdges, split)
	}

	isA := o.Trees[IsA]
	for _, t := range terms {
		t.Kind = kindOf(isA, t.ID)
		if _, err := o.Terms.Add(t); err != nil {
			return nil, err
		}
	}

	for label, tree := range o.Trees {
		for _, id := range tree.IDs() {
			if !o.Terms.Has(id) {
				return nil, errors.NewPrecondition(HierarchyName, "%q edge references unregistered term %s", label, id)
			}
		}
	}
	if err := isA.CheckAcyclic(HierarchyName); err != nil {
		return nil, err
	}

	o.setDepth()
	return o, nil
}

// relationTypes maps relation property ids to labels. Each property is
// registered under its database cross-reference and under the id derived
// from its IRI, since restrictions refer to it by IRI.
func relationTypes(doc *xmlquery.Node) map[string]string {
	out := make(map[string]string)
	for _, p := range xmlquery.QuerySelectorAll(doc, propertyExpr) {
		label := childText(p, "rdfs", "label")
		if label == "" {
			continue
		}
		if xref := childText(p, "oboInOwl", "hasDbXref"); xref != "" {
			out[xref] = label
		}
		if about := attr(p, "about"); about != "" {
			out[urlToID(about)] = label
		}
	}
	return out
}

func classTerm(class *xmlquery.Node, id string) *ontology.Term {
	t := &ontology.Term{
		ID:          id,
		Label:       childText(class, "rdfs", "label"),
		Description: childText(class, "obo", "IAO_0000115"),
	}
	for _, syn := range children(class, "oboInOwl", "hasExactSynonym") {
		t.AltLabels = append(t.AltLabels, syn.InnerText())
	}
	if ns := childText(class, "oboInOwl", "hasOBONamespace"); ns != "" {
		t.Metadata = map[string]string{"namespace": ns}
	}
	return t
}

// classEdges extracts the subclass references of a class: direct resources
// become "is a" edges, someValuesFrom restrictions become typed edges.
func (o *Ontology) classEdges(class *xmlquery.Node, id string) []edge {
	var out []edge
	for _, ref := range children(class, "rdfs", "subClassOf") {
		if res := attr(ref, "resource"); res != "" {
			out = append(out, edge{relation: IsA, child: id, parent: urlToID(res)})
			continue
		}
		restriction := child(ref, "owl", "Restriction")
		if restriction == nil {
			continue
		}
		prop := attr(child(restriction, "owl", "onProperty"), "resource")
		target := attr(child(restriction, "owl", "someValuesFrom"), "resource")
		if prop == "" || target == "" {
			continue
		}
		rel := urlToID(prop)
		if label, ok := o.Relations[rel]; ok {
			rel = label
		}
		out = append(out, edge{relation: rel, child: id, parent: urlToID(target)})
	}
	return out
}

func kindOf(isA *ontology.Index, id string) ontology.Kind {
	switch {
	case !isA.HasParents(id):
		return ontology.KindRoot
	case len(isA.Children(id)) == 0:
		return ontology.KindLeaf
	default:
		return ontology.KindNode
	}
}

// setDepth assigns first-seen breadth-first depths over "is a".
func (o *Ontology) setDepth() {
	o.Trees[IsA].WalkDown(o.Roots[IsA], func(id string, depth int) bool {
		o.Depth[id] = depth
		return false
	})
}

// IsA returns the subclass index.
func (o *Ontology) IsA() *ontology.Index {
	return o.Trees[IsA]
}

// Tree returns the index of a relation label.
func (o *Ontology) Tree(relation string) (*ontology.Index, error) {
	tree, ok := o.Trees[relation]
	if !ok {
		return nil, errors.NewNotFound("relation", relation)
	}
	return tree, nil
}

// RelationLabels returns every relation label with a tree, sorted.
func (o *Ontology) RelationLabels() []string {
	out := make([]string, 0, len(o.Trees))
	for label := range o.Trees {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// DepthOf returns the "is a" depth of id and whether it was reached.
func (o *Ontology) DepthOf(id string) (int, bool) {
	d, ok := o.Depth[id]
	if !ok {
		return -1, false
	}
	return d, true
}

// EdgeCount returns the number of edges across every relation tree.
func (o *Ontology) EdgeCount() int {
	n := 0
	for _, tree := range o.Trees {
		n += tree.EdgeCount()
	}
	return n
}

// Package brite parses the KEGG BRITE orthology hierarchy (ko00001 in its
// JSON export) into an ontology.Hierarchy.
//
// Each node name is an id token followed by free text:
//
//	"09100 Metabolism"
//	"00010 Glycolysis / Gluconeogenesis [PATH:ko00010]"
//	"K00844 HK; hexokinase [EC:2.7.1.1]"
//
// Category ids receive an "M" prefix so they never collide with orthology
// ids, which keep their "K" prefix.
package brite

import (
	"encoding/json"
	"io"
	"regexp"
	"strings"

	"github.com/hallamlab/Genome-announcements/core/errors"
	"github.com/hallamlab/Genome-announcements/core/ontology"
)

// HierarchyName is the name given to parsed BRITE hierarchies.
const HierarchyName = "brite"

// enzymeKey is the bracket field holding enzyme commission numbers.
const enzymeKey = "EC"

// RawNode is one node of the BRITE JSON tree.
type RawNode struct {
	Name     string    `json:"name"`
	Children []RawNode `json:"children,omitempty"`
}

// DefaultCategoryDepths maps each top-level BRITE group to the depth of the
// categories used when aggregating annotations.
var DefaultCategoryDepths = map[string]int{
	"M09100": 2, // Metabolism
	"M09120": 2, // Genetic Information Processing
	"M09130": 2, // Environmental Information Processing
	"M09140": 2, // Cellular Processes
	"M09180": 3, // Brite Hierarchies
}

// trailingBracket matches a bracket block at the end of a name.
var trailingBracket = regexp.MustCompile(`\s*(\[[^\[\]]*\])\s*$`)

// Parse decodes a BRITE JSON dump and builds its hierarchy. Nothing is
// returned unless the whole tree parses and validates.
func Parse(r io.Reader) (*ontology.Hierarchy, error) {
	var root RawNode
	if err := json.NewDecoder(r).Decode(&root); err != nil {
		return nil, &errors.ParseError{Format: "BRITE", Message: "invalid JSON", Err: err}
	}
	return ParseNode(root)
}

// ParseNode builds a hierarchy from an already decoded tree.
func ParseNode(root RawNode) (*ontology.Hierarchy, error) {
	h := ontology.NewHierarchy(HierarchyName, ontology.FormatBrite)
	if err := build(h, root, ontology.NoParent); err != nil {
		return nil, err
	}
	if err := h.Validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func build(h *ontology.Hierarchy, raw RawNode, parent ontology.NodeID) error {
	term, err := ParseName(raw.Name, parent == ontology.NoParent)
	if err != nil {
		return err
	}
	term, err = h.Terms.Add(term)
	if err != nil {
		return err
	}
	id, err := h.Place(term, parent)
	if err != nil {
		return err
	}
	if parent != ontology.NoParent {
		h.Index.AddEdge(h.Nodes[parent].TermID, term.ID)
	}
	for _, child := range raw.Children {
		if err := build(h, child, id); err != nil {
			return err
		}
	}
	return nil
}

// NormalizeID maps a raw id token onto the hierarchy's id space: the token is
// upper-cased, the "KO00001" root token becomes "00001", and every id not
// starting with "K" gets an "M" prefix.
func NormalizeID(token string) string {
	id := strings.ToUpper(token)
	if id == "KO00001" {
		id = "00001"
	}
	if !strings.HasPrefix(id, "K") {
		id = "M" + id
	}
	return id
}

// GeneNameOK rejects gene tokens that are enzyme-code shaped (contain a dot,
// e.g. "E4.1.1.32") or repeat the orthology id itself.
func GeneNameOK(gene, id string) bool {
	if strings.Contains(gene, ".") {
		return false
	}
	return gene != id
}

// ParseName decodes one node name into a Term. isRoot marks the artificial
// root of the tree.
func ParseName(name string, isRoot bool) (*ontology.Term, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.NewParse("BRITE", "", "node without name")
	}
	token, text, _ := strings.Cut(name, " ")
	text = strings.TrimSpace(text)

	term := &ontology.Term{ID: NormalizeID(token)}
	switch {
	case isRoot:
		term.Kind = ontology.KindRoot
	case strings.HasPrefix(term.ID, "K"):
		term.Kind = ontology.KindLeaf
	default:
		term.Kind = ontology.KindNode
	}

	if term.Kind == ontology.KindLeaf {
		if genes, rest, ok := strings.Cut(text, ";"); ok {
			term.SetGeneSymbols(splitGenes(genes, term.ID))
			text = strings.TrimSpace(rest)
		}
	}

	text = extractBrackets(term, text)

	names := strings.Split(text, " / ")
	term.Label = strings.TrimSpace(names[0])
	for _, alt := range names[1:] {
		term.AltLabels = append(term.AltLabels, strings.TrimSpace(alt))
	}
	return term, nil
}

// splitGenes splits a gene list on commas, then splits fused symbols such
// as "tal-pgi" on hyphens.
func splitGenes(list, id string) []string {
	var genes []string
	for _, token := range strings.Split(list, ",") {
		for _, g := range strings.Split(token, "-") {
			g = strings.TrimSpace(g)
			if g == "" || !GeneNameOK(g, id) {
				continue
			}
			genes = append(genes, g)
		}
	}
	return genes
}

// extractBrackets strips trailing bracket blocks from text and records their
// contents on term. Enzyme codes go to EnzymeCodes; every other field is
// kept both as a MiscTags entry and in Metadata. A block the grammar cannot
// read is kept verbatim in MiscTags.
func extractBrackets(term *ontology.Term, text string) string {
	var blocks []string
	for {
		loc := trailingBracket.FindStringSubmatchIndex(text)
		if loc == nil {
			break
		}
		blocks = append(blocks, text[loc[2]:loc[3]])
		text = text[:loc[0]]
	}

	for i := len(blocks) - 1; i >= 0; i-- {
		fields, err := parseBracket(blocks[i])
		if err != nil {
			inner := strings.TrimSpace(blocks[i][1 : len(blocks[i])-1])
			if inner != "" {
				term.MiscTags = append(term.MiscTags, inner)
			}
			continue
		}
		for _, f := range fields {
			if f.Key == enzymeKey {
				term.EnzymeCodes = append(term.EnzymeCodes, f.Values...)
				continue
			}
			term.MiscTags = append(term.MiscTags, f.String())
			if term.Metadata == nil {
				term.Metadata = make(map[string]string)
			}
			term.Metadata[f.Key] = strings.Join(f.Values, " ")
		}
	}
	return strings.TrimSpace(text)
}

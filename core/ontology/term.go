package ontology

import (
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/zeebo/blake3"
)

// Kind classifies the role of a Term within its hierarchy.
type Kind string

// Kind constants.
const (
	// KindRoot marks the artificial root of a hierarchy.
	KindRoot Kind = "root"

	// KindNode marks an internal classification category.
	KindNode Kind = "node"

	// KindLeaf marks a terminal entry (e.g. a KEGG orthology id).
	KindLeaf Kind = "leaf"
)

// jsonMarshal is a variable to allow testing of marshal errors.
var jsonMarshal = json.Marshal

// Term is a canonical classification entry.
type Term struct {
	// ID is the stable, format-specific key (e.g. "K00001", "M09100", "GO:0008150").
	ID string `json:"id"`

	// Kind is the role of the term in its hierarchy.
	Kind Kind `json:"kind"`

	// Label is the primary human-readable name.
	Label string `json:"label"`

	// Description is a longer definition, when the source carries one.
	Description string `json:"description,omitempty"`

	// AltLabels are alternate names in source order.
	AltLabels []string `json:"alt_labels,omitempty"`

	// MiscTags are free-form annotations in source order.
	MiscTags []string `json:"misc_tags,omitempty"`

	// GeneSymbols is the set of associated gene names, kept sorted.
	GeneSymbols []string `json:"gene_symbols,omitempty"`

	// EnzymeCodes are enzyme commission numbers in source order.
	EnzymeCodes []string `json:"enzyme_codes,omitempty"`

	// Metadata holds key:value pairs from bracketed annotation blocks.
	Metadata map[string]string `json:"metadata,omitempty"`

	hash string
}

// HashFields is the projection of a Term that takes part in content hashing.
// Field order is fixed so the JSON encoding is canonical.
type HashFields struct {
	ID          string            `json:"id"`
	Kind        Kind              `json:"kind"`
	Label       string            `json:"label"`
	Description string            `json:"description"`
	AltLabels   []string          `json:"alt_labels"`
	MiscTags    []string          `json:"misc_tags"`
	GeneSymbols []string          `json:"gene_symbols"`
	EnzymeCodes []string          `json:"enzyme_codes"`
	Metadata    map[string]string `json:"metadata"`
}

// HashFields returns the hash-relevant projection of the term. Empty and nil
// collections project identically.
func (t *Term) HashFields() HashFields {
	return HashFields{
		ID:          t.ID,
		Kind:        t.Kind,
		Label:       t.Label,
		Description: t.Description,
		AltLabels:   nonNil(t.AltLabels),
		MiscTags:    nonNil(t.MiscTags),
		GeneSymbols: nonNil(t.GeneSymbols),
		EnzymeCodes: nonNil(t.EnzymeCodes),
		Metadata:    nonNilMap(t.Metadata),
	}
}

// ContentHash returns the BLAKE3-256 hex digest of the term's hash fields.
// The digest is computed once and cached; terms are immutable after
// registration.
func (t *Term) ContentHash() string {
	if t.hash != "" {
		return t.hash
	}
	data, err := jsonMarshal(t.HashFields())
	if err != nil {
		// HashFields holds only strings, slices and a string map.
		panic("ontology: marshal hash fields: " + err.Error())
	}
	sum := blake3.Sum256(data)
	t.hash = hex.EncodeToString(sum[:])
	return t.hash
}

// SetGeneSymbols stores symbols as a sorted set.
func (t *Term) SetGeneSymbols(symbols []string) {
	seen := make(map[string]struct{}, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	if len(out) == 0 {
		out = nil
	}
	t.GeneSymbols = out
	t.hash = ""
}

// HasGene reports whether symbol is one of the term's gene symbols.
func (t *Term) HasGene(symbol string) bool {
	i := sort.SearchStrings(t.GeneSymbols, symbol)
	return i < len(t.GeneSymbols) && t.GeneSymbols[i] == symbol
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}

package ontology

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/hallamlab/Genome-announcements/core/errors"
)

// Registry owns the Terms of one hierarchy, keyed by id.
type Registry struct {
	terms map[string]*Term
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{terms: make(map[string]*Term)}
}

// Add registers t. If a term with the same id is already registered and its
// content hash matches, the registered term is returned and t is dropped.
// A differing hash yields a ContentMismatchError.
func (r *Registry) Add(t *Term) (*Term, error) {
	if t.ID == "" {
		return nil, errors.NewValidation("id", "term id must not be empty")
	}
	if existing, ok := r.terms[t.ID]; ok {
		if existing.ContentHash() != t.ContentHash() {
			return nil, errors.NewContentMismatch(t.ID, existing.ContentHash(), t.ContentHash())
		}
		return existing, nil
	}
	r.terms[t.ID] = t
	return t, nil
}

// Get returns the term registered under id.
func (r *Registry) Get(id string) (*Term, bool) {
	t, ok := r.terms[id]
	return t, ok
}

// Lookup is Get with a NotFoundError for the miss case.
func (r *Registry) Lookup(id string) (*Term, error) {
	if t, ok := r.terms[id]; ok {
		return t, nil
	}
	return nil, errors.NewNotFound("term", id)
}

// Has reports whether id is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.terms[id]
	return ok
}

// Len returns the number of registered terms.
func (r *Registry) Len() int {
	return len(r.terms)
}

// IDs returns every registered id in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.terms))
	for id := range r.terms {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Hashes returns the content hash of every registered term.
func (r *Registry) Hashes() map[string]string {
	out := make(map[string]string, len(r.terms))
	for id, t := range r.terms {
		out[id] = t.ContentHash()
	}
	return out
}

// MarshalJSON encodes the registry as a list of terms sorted by id.
func (r *Registry) MarshalJSON() ([]byte, error) {
	list := make([]*Term, 0, len(r.terms))
	for _, id := range r.IDs() {
		list = append(list, r.terms[id])
	}
	return json.Marshal(list)
}

// UnmarshalJSON rebuilds the registry from a term list, re-verifying hashes.
func (r *Registry) UnmarshalJSON(data []byte) error {
	var list []*Term
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	r.terms = make(map[string]*Term, len(list))
	for i, t := range list {
		if t == nil {
			return errors.NewParse("registry", fmt.Sprintf("term %d", i), "null term entry")
		}
		if _, err := r.Add(t); err != nil {
			return err
		}
	}
	return nil
}

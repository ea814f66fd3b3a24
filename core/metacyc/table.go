package metacyc

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/hallamlab/Genome-announcements/core/errors"
	"github.com/hallamlab/Genome-announcements/core/ontology"
)

// Attribute names used by the builder.
const (
	KeyUniqueID   = "UNIQUE-ID"
	KeyTypes      = "TYPES"
	KeyCommonName = "COMMON-NAME"
	KeyComment    = "COMMENT"
	KeySynonyms   = "SYNONYMS"
)

// Record is one attribute-value record. Attributes may repeat; values keep
// file order.
type Record struct {
	ID     string
	Fields map[string][]string
}

// Get returns every value of key.
func (r *Record) Get(key string) []string {
	return r.Fields[key]
}

// First returns the first value of key, or "".
func (r *Record) First(key string) string {
	if vs := r.Fields[key]; len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// Table holds the records of one .dat file keyed by UNIQUE-ID.
type Table struct {
	Records map[string]*Record
	Order   []string // ids in file order
}

// NewTable creates an empty table.
func NewTable() *Table {
	return &Table{Records: make(map[string]*Record)}
}

// Get returns the record with the given id.
func (t *Table) Get(id string) (*Record, bool) {
	r, ok := t.Records[id]
	return r, ok
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Records)
}

// Merge returns a table holding the records of t and other. Records of
// other replace those of t with the same id.
func (t *Table) Merge(other *Table) *Table {
	out := NewTable()
	for _, src := range []*Table{t, other} {
		for _, id := range src.Order {
			if _, ok := out.Records[id]; !ok {
				out.Order = append(out.Order, id)
			}
			out.Records[id] = src.Records[id]
		}
	}
	return out
}

// ReadTable parses a MetaCyc attribute-value file:
//
//	# comment
//	UNIQUE-ID - PWY-5484
//	TYPES - Glycolysis
//	COMMON-NAME - glycolysis II (from fructose 6-phosphate)
//	COMMENT - first line
//	/continued line
//	//
//
// Lines starting with "^" annotate the preceding value and are skipped.
func ReadTable(r io.Reader) (*Table, error) {
	t := NewTable()
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var (
		cur     *Record
		lastKey string
		lineNo  int
	)
	flush := func() error {
		if cur == nil {
			return nil
		}
		ids := cur.Fields[KeyUniqueID]
		if len(ids) == 0 {
			return errors.NewParse("MetaCyc", fmt.Sprintf("line %d", lineNo), "record without "+KeyUniqueID)
		}
		cur.ID = ids[0]
		if _, dup := t.Records[cur.ID]; !dup {
			t.Order = append(t.Order, cur.ID)
		}
		t.Records[cur.ID] = cur
		cur, lastKey = nil, ""
		return nil
	}

	for sc.Scan() {
		lineNo++
		line := strings.TrimRight(sc.Text(), "\r")
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		case line == "//":
			if err := flush(); err != nil {
				return nil, err
			}
			continue
		case strings.HasPrefix(line, "/"):
			if cur == nil || lastKey == "" {
				return nil, errors.NewParse("MetaCyc", fmt.Sprintf("line %d", lineNo), "continuation without a preceding attribute")
			}
			vs := cur.Fields[lastKey]
			vs[len(vs)-1] += "\n" + line[1:]
			continue
		case strings.HasPrefix(line, "^"):
			continue
		}

		key, value, ok := strings.Cut(line, " - ")
		if !ok {
			if k, found := strings.CutSuffix(line, " -"); found {
				key, value = k, ""
			} else {
				return nil, errors.NewParse("MetaCyc", fmt.Sprintf("line %d", lineNo), fmt.Sprintf("expected \"KEY - value\", got %q", line))
			}
		}
		if cur == nil {
			cur = &Record{Fields: make(map[string][]string)}
		}
		cur.Fields[key] = append(cur.Fields[key], value)
		lastKey = key
	}
	if err := sc.Err(); err != nil {
		return nil, errors.NewIO("read", "MetaCyc table", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return t, nil
}

// Tree maps each parent id to the ids naming it in their TYPES attribute,
// children in file order.
type Tree map[string][]string

// Tree inverts the TYPES attribute of every record.
func (t *Table) Tree() Tree {
	tree := make(Tree)
	for _, id := range t.Order {
		for _, p := range t.Records[id].Get(KeyTypes) {
			tree[p] = append(tree[p], id)
		}
	}
	return tree
}

// Index records every parent -> child edge of the tree.
func (t Tree) Index() *ontology.Index {
	ix := ontology.NewIndex()
	for p, children := range t {
		for _, c := range children {
			ix.AddEdge(p, c)
		}
	}
	return ix
}

// Restrict returns the part of tree reachable from root. Children in
// blacklist are dropped, so they are never expanded. Each parent is
// expanded once.
func Restrict(tree Tree, root string, blacklist []string) Tree {
	skip := ontology.NewIDSet(blacklist...)
	kept := make(Tree, len(tree))
	for p, children := range tree {
		list := make([]string, 0, len(children))
		for _, c := range children {
			if !skip.Has(c) {
				list = append(list, c)
			}
		}
		kept[p] = list
	}

	out := make(Tree)
	kept.Index().WalkDown([]string{root}, func(id string, _ int) bool {
		if children, ok := kept[id]; ok {
			out[id] = children
		}
		return false
	})
	return out
}

// Union adds the child lists of other to t. Children already listed under a
// parent are not repeated.
func (t Tree) Union(other Tree) {
	for p, children := range other {
		have := make(map[string]bool, len(t[p]))
		for _, c := range t[p] {
			have[c] = true
		}
		for _, c := range children {
			if !have[c] {
				t[p] = append(t[p], c)
				have[c] = true
			}
		}
	}
}

package lineage

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hallamlab/Genome-announcements/core/ontology"
)

// coverage builds:
//
//	S -> A -> C -> E
//	S -> B -> C
//	A -> D <- O (O outside the subtree)
//	S -> F
func coverage(t *testing.T) *Resolver {
	t.Helper()
	ix := ontology.NewIndex()
	for _, e := range [][2]string{
		{"S", "A"}, {"S", "B"}, {"A", "C"}, {"B", "C"}, {"C", "E"},
		{"A", "D"}, {"O", "D"}, {"S", "F"},
	} {
		ix.AddEdge(e[0], e[1])
	}
	r, err := New(ix)
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestMembersOf(t *testing.T) {
	r := coverage(t)

	got := r.MembersOf("S", false).Sorted()
	want := []string{"A", "B", "C", "E", "F", "S"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MembersOf(S, false) mismatch (-want +got):\n%s", diff)
	}

	got = r.MembersOf("S", true).Sorted()
	want = []string{"A", "B", "C", "D", "E", "F", "S"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("MembersOf(S, true) mismatch (-want +got):\n%s", diff)
	}
}

// A child reached through its first parent before the second parent joins
// is admitted once the second parent joins.
func TestMembersOfOrderIndependent(t *testing.T) {
	ix := ontology.NewIndex()
	// Z is a child of A and of the deeper B2, so the first time Z is
	// examined (under A) B2 has not joined yet.
	for _, e := range [][2]string{
		{"S", "A"}, {"S", "B"}, {"B", "B2"}, {"A", "Z"}, {"B2", "Z"}, {"Z", "Z1"},
	} {
		ix.AddEdge(e[0], e[1])
	}
	r, err := New(ix)
	if err != nil {
		t.Fatal(err)
	}
	got := r.MembersOf("S", false)
	for _, id := range []string{"Z", "Z1"} {
		if !got.Has(id) {
			t.Errorf("MembersOf(S) = %v, missing %s", got.Sorted(), id)
		}
	}
}

func TestMembersOfSeedAlwaysIncluded(t *testing.T) {
	r := coverage(t)
	// D has an outside parent but is forced as the seed.
	got := r.MembersOf("D", false)
	if diff := cmp.Diff([]string{"D"}, got.Sorted()); diff != "" {
		t.Errorf("MembersOf(D) mismatch (-want +got):\n%s", diff)
	}
	if got := r.MembersOf("unknown", false); !got.Has("unknown") || len(got) != 1 {
		t.Errorf("MembersOf(unknown) = %v", got.Sorted())
	}
}

func TestMembersOfWhitelistSuperset(t *testing.T) {
	r := coverage(t)
	for _, seed := range r.Index().IDs() {
		strict := r.MembersOf(seed, false)
		loose := r.MembersOf(seed, true)
		if !strict.IsSubsetOf(loose) {
			t.Errorf("seed %s: %v is not a subset of %v", seed, strict.Sorted(), loose.Sorted())
		}
	}
}

package metacyc

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/hallamlab/Genome-announcements/core/errors"
	"github.com/hallamlab/Genome-announcements/core/lineage"
	"github.com/hallamlab/Genome-announcements/core/ontology"
)

const classesDat = `# MetaCyc classes
# Version: 26.0
UNIQUE-ID - Generalized-Reactions
COMMON-NAME - Generalized Reactions
//
UNIQUE-ID - Pathways
TYPES - Generalized-Reactions
COMMON-NAME - Pathways
//
UNIQUE-ID - Reactions
TYPES - Generalized-Reactions
//
UNIQUE-ID - Rxn-Child
TYPES - Reactions
//
UNIQUE-ID - Energy-Metabolism
TYPES - Pathways
COMMON-NAME - Generation of Precursor Metabolites and Energy
//
UNIQUE-ID - Biosynthesis
TYPES - Pathways
COMMENT - Pathways that build
/molecules.
//
UNIQUE-ID - Glycolysis-Variants
TYPES - Energy-Metabolism
TYPES - Biosynthesis
//
UNIQUE-ID - Super-Pathways
TYPES - Pathways
//
UNIQUE-ID - Unrelated
TYPES - Other-Root
//
`

const pathwaysDat = `UNIQUE-ID - PWY-5484
TYPES - Glycolysis-Variants
COMMON-NAME - glycolysis II (from fructose 6-phosphate)
SYNONYMS - glycolysis
^ALTERNATIVE - yes
//
UNIQUE-ID - GLYCOLYSIS
TYPES - Glycolysis-Variants
TYPES - Super-Pathways
COMMON-NAME - glycolysis I (from glucose 6-phosphate)
//
`

func readTable(t *testing.T, src string) *Table {
	t.Helper()
	tab, err := ReadTable(strings.NewReader(src))
	if err != nil {
		t.Fatalf("ReadTable() error = %v", err)
	}
	return tab
}

func build(t *testing.T, classes, pathways string) (*ontology.Hierarchy, error) {
	t.Helper()
	return Build(readTable(t, classes), readTable(t, pathways), DefaultOptions())
}

func TestReadTable(t *testing.T) {
	tab := readTable(t, classesDat)
	if got := tab.Len(); got != 9 {
		t.Errorf("Len() = %d, want 9", got)
	}
	if diff := cmp.Diff("Generalized-Reactions", tab.Order[0]); diff != "" {
		t.Errorf("Order[0] mismatch (-want +got):\n%s", diff)
	}

	rec, ok := tab.Get("Biosynthesis")
	if !ok {
		t.Fatal("Biosynthesis missing")
	}
	if got := rec.First(KeyComment); got != "Pathways that build\nmolecules." {
		t.Errorf("COMMENT = %q", got)
	}
	gv, _ := tab.Get("Glycolysis-Variants")
	if diff := cmp.Diff([]string{"Energy-Metabolism", "Biosynthesis"}, gv.Get(KeyTypes)); diff != "" {
		t.Errorf("TYPES mismatch (-want +got):\n%s", diff)
	}

	pw := readTable(t, pathwaysDat)
	rec, _ = pw.Get("PWY-5484")
	if _, ok := rec.Fields["^ALTERNATIVE"]; ok {
		t.Error("annotation lines should be skipped")
	}
}

func TestReadTableUnterminatedRecord(t *testing.T) {
	tab := readTable(t, "UNIQUE-ID - A\nTYPES - B\n")
	if _, ok := tab.Get("A"); !ok {
		t.Error("final record without terminator should be kept")
	}
}

func TestReadTableErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"missing unique id", "TYPES - B\n//\n"},
		{"malformed line", "UNIQUE-ID - A\nnot an attribute\n//\n"},
		{"orphan continuation", "/dangling\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTable(strings.NewReader(tt.src))
			var pe *errors.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("ReadTable() error = %v, want ParseError", err)
			}
		})
	}
}

func TestTableTree(t *testing.T) {
	tree := readTable(t, classesDat).Tree()
	if diff := cmp.Diff([]string{"Energy-Metabolism", "Biosynthesis", "Super-Pathways"}, tree["Pathways"]); diff != "" {
		t.Errorf("Pathways children mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Unrelated"}, tree["Other-Root"]); diff != "" {
		t.Errorf("Other-Root children mismatch (-want +got):\n%s", diff)
	}
}

func TestRestrict(t *testing.T) {
	tree := readTable(t, classesDat).Tree()
	got := Restrict(tree, "Generalized-Reactions", []string{"Reactions", "Super-Pathways"})
	want := Tree{
		"Generalized-Reactions": {"Pathways"},
		"Pathways":              {"Energy-Metabolism", "Biosynthesis"},
		"Energy-Metabolism":     {"Glycolysis-Variants"},
		"Biosynthesis":          {"Glycolysis-Variants"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Restrict() mismatch (-want +got):\n%s", diff)
	}

	cyclic := Tree{"A": {"B"}, "B": {"A"}}
	if got := Restrict(cyclic, "A", nil); len(got) != 2 {
		t.Errorf("Restrict(cyclic) = %v, want both parents once", got)
	}

	// The blacklisted child is dropped everywhere, so its own children
	// stay out unless another parent reaches them.
	blocked := Tree{"R": {"Bad", "Good"}, "Bad": {"Hidden", "Shared"}, "Good": {"Shared"}}
	want = Tree{"R": {"Good"}, "Good": {"Shared"}}
	if diff := cmp.Diff(want, Restrict(blocked, "R", []string{"Bad"})); diff != "" {
		t.Errorf("Restrict(blocked) mismatch (-want +got):\n%s", diff)
	}

	onlyBlocked := Tree{"R": {"Bad"}}
	if diff := cmp.Diff(Tree{"R": {}}, Restrict(onlyBlocked, "R", []string{"Bad"})); diff != "" {
		t.Errorf("Restrict(onlyBlocked) mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeIndex(t *testing.T) {
	ix := Tree{"A": {"B", "C"}, "C": {"B"}}.Index()
	if got := ix.EdgeCount(); got != 3 {
		t.Errorf("EdgeCount() = %d, want 3", got)
	}
	if diff := cmp.Diff([]string{"A", "C"}, ix.Parents("B")); diff != "" {
		t.Errorf("Parents(B) mismatch (-want +got):\n%s", diff)
	}
}

func TestTreeUnion(t *testing.T) {
	tree := Tree{"A": {"B", "C"}}
	tree.Union(Tree{"A": {"C", "D"}, "E": {"F"}})
	want := Tree{"A": {"B", "C", "D"}, "E": {"F"}}
	if diff := cmp.Diff(want, tree); diff != "" {
		t.Errorf("Union() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild(t *testing.T) {
	h, err := build(t, classesDat, pathwaysDat)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	if got := h.Terms.Len(); got != 7 {
		t.Errorf("Terms.Len() = %d, want 7", got)
	}
	if got := len(h.Nodes); got != 10 {
		t.Errorf("len(Nodes) = %d, want 10", got)
	}
	for _, id := range []string{"Reactions", "Rxn-Child", "Super-Pathways", "Unrelated"} {
		if h.Terms.Has(id) {
			t.Errorf("%s should not be in the hierarchy", id)
		}
	}

	root := h.Term(h.Root)
	if root.ID != "Generalized-Reactions" || root.Kind != ontology.KindRoot {
		t.Errorf("root = %s (%s)", root.ID, root.Kind)
	}

	bio, _ := h.Terms.Get("Biosynthesis")
	if bio.Label != "biosynthesis" || bio.Description != "Pathways that build\nmolecules." {
		t.Errorf("Biosynthesis = %q / %q", bio.Label, bio.Description)
	}
	pwy, _ := h.Terms.Get("PWY-5484")
	if pwy.Kind != ontology.KindLeaf || pwy.Label != "glycolysis II (from fructose 6-phosphate)" {
		t.Errorf("PWY-5484 = %+v", pwy)
	}
	if diff := cmp.Diff([]string{"glycolysis"}, pwy.AltLabels); diff != "" {
		t.Errorf("AltLabels mismatch (-want +got):\n%s", diff)
	}

	// GLYCOLYSIS also names Super-Pathways, which is never expanded
	if diff := cmp.Diff([]string{"Glycolysis-Variants"}, h.Index.Parents("GLYCOLYSIS")); diff != "" {
		t.Errorf("GLYCOLYSIS parents mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMultiParentPlacements(t *testing.T) {
	h, err := build(t, classesDat, pathwaysDat)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	placements := h.Placements("Glycolysis-Variants")
	if len(placements) != 2 {
		t.Fatalf("Placements() = %v, want 2 nodes", placements)
	}
	parents := map[string]bool{}
	for _, id := range placements {
		n := h.Node(id)
		if n.Depth != 3 {
			t.Errorf("node %d depth = %d, want 3", id, n.Depth)
		}
		if h.Term(id) != h.Term(placements[0]) {
			t.Error("placements should share one Term")
		}
		parents[h.Node(n.Parent).TermID] = true
	}
	if !parents["Energy-Metabolism"] || !parents["Biosynthesis"] {
		t.Errorf("placement parents = %v", parents)
	}

	gv, _ := h.Terms.Get("Glycolysis-Variants")
	if gv.Label != "glycolysisvariants" {
		t.Errorf("fallback label = %q", gv.Label)
	}
	if got := len(h.Placements("PWY-5484")); got != 2 {
		t.Errorf("PWY-5484 placements = %d, want 2", got)
	}

	r, err := lineage.New(h.Index)
	if err != nil {
		t.Fatalf("lineage.New() error = %v", err)
	}
	want := [][]string{
		{"Generalized-Reactions", "Pathways", "Biosynthesis", "Glycolysis-Variants", "PWY-5484"},
		{"Generalized-Reactions", "Pathways", "Energy-Metabolism", "Glycolysis-Variants", "PWY-5484"},
	}
	if diff := cmp.Diff(want, r.AllLineages("PWY-5484")); diff != "" {
		t.Errorf("AllLineages() mismatch (-want +got):\n%s", diff)
	}
}

func TestBuildMissingRoot(t *testing.T) {
	opts := DefaultOptions()
	opts.Root = "Nonexistent-Class"
	_, err := Build(readTable(t, classesDat), readTable(t, pathwaysDat), opts)
	if !errors.Is(err, errors.ErrPrecondition) {
		t.Errorf("Build() error = %v, want ErrPrecondition", err)
	}

	opts.Root = ""
	if _, err := Build(NewTable(), NewTable(), opts); !errors.Is(err, errors.ErrInvalidInput) {
		t.Errorf("Build(empty root) error = %v, want ErrInvalidInput", err)
	}
}

func TestBuildCycle(t *testing.T) {
	cyclic := pathwaysDat + "UNIQUE-ID - Pathways\nTYPES - Glycolysis-Variants\n//\n"
	h, err := build(t, classesDat, cyclic)
	if !errors.Is(err, errors.ErrPrecondition) {
		t.Errorf("Build() error = %v, want ErrPrecondition", err)
	}
	if h != nil {
		t.Error("Build() should not return a partial hierarchy")
	}
}

func TestBuildAmbiguousCommonName(t *testing.T) {
	classes := strings.Replace(classesDat, "COMMON-NAME - Pathways\n", "COMMON-NAME - Pathways\nCOMMON-NAME - All pathways\n", 1)
	_, err := build(t, classes, pathwaysDat)
	var pe *errors.ParseError
	if !errors.As(err, &pe) {
		t.Errorf("Build() error = %v, want ParseError", err)
	}
}

func TestFallbackLabel(t *testing.T) {
	if got := FallbackLabel("Super-Pathways"); got != "superpathways" {
		t.Errorf("FallbackLabel() = %q", got)
	}
}

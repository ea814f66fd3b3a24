package snapshot

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/ulikunitz/xz"

	coreerrors "github.com/hallamlab/Genome-announcements/core/errors"
	"github.com/hallamlab/Genome-announcements/core/ontology"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleIndex() *ontology.Index {
	ix := ontology.NewIndex()
	ix.AddEdge("M09100", "M09101")
	ix.AddEdge("M09101", "M00010")
	ix.AddEdge("M00010", "K00844")
	return ix
}

func TestSaveLoad(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	saved, err := s.Save(ctx, "brite_ref", "src-1", sampleIndex(), Counts{Terms: 4, Edges: 3})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if saved.ID == "" || saved.BlobHash == "" || saved.Bytes == 0 {
		t.Errorf("Save() = %+v", saved)
	}

	var got ontology.Index
	loaded, err := s.Load(ctx, "brite_ref", "src-1", &got)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if diff := cmp.Diff(sampleIndex().Edges(), got.Edges()); diff != "" {
		t.Errorf("edges mismatch (-want +got):\n%s", diff)
	}
	if loaded.ID != saved.ID || loaded.Terms != 4 || loaded.Edges != 3 {
		t.Errorf("Load() = %+v, want %+v", loaded, saved)
	}
	if !loaded.CreatedAt.Equal(saved.CreatedAt) {
		t.Errorf("CreatedAt = %v, want %v", loaded.CreatedAt, saved.CreatedAt)
	}
}

func TestLoadStale(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	if _, err := s.Save(ctx, "go_ref", "src-1", sampleIndex(), Counts{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	var got ontology.Index
	snap, err := s.Load(ctx, "go_ref", "src-2", &got)
	if !errors.Is(err, ErrStale) {
		t.Fatalf("Load() error = %v, want ErrStale", err)
	}
	if snap == nil || snap.SourceHash != "src-1" {
		t.Errorf("stale snapshot metadata = %+v", snap)
	}
	if got.EdgeCount() != 0 {
		t.Error("stale snapshot should not be decoded")
	}

	if _, err := s.Load(ctx, "go_ref", "", &got); err != nil {
		t.Errorf("Load() without source hash error = %v", err)
	}
}

func TestLoadMissing(t *testing.T) {
	s := openTestStore(t)
	var v any
	_, err := s.Load(context.Background(), "metacyc_ref", "", &v)
	if !coreerrors.Is(err, coreerrors.ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestSaveReplacesAndReleasesBlob(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first, err := s.Save(ctx, "brite_ref", "src-1", []string{"a"}, Counts{})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	// a second name sharing the same content keeps the blob alive
	if _, err := s.Save(ctx, "copy_ref", "src-1", []string{"a"}, Counts{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	second, err := s.Save(ctx, "brite_ref", "src-2", []string{"b"}, Counts{})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if second.ID == first.ID {
		t.Error("replacement should get a new id")
	}
	if !s.blobs.Has(first.BlobHash) {
		t.Error("shared blob should be kept")
	}

	if err := s.Delete(ctx, "copy_ref"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if s.blobs.Has(first.BlobHash) {
		t.Error("unreferenced blob should be deleted")
	}
	if !s.blobs.Has(second.BlobHash) {
		t.Error("current blob should be kept")
	}
}

func TestListAndClear(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"metacyc_ref", "brite_ref", "go_ref"} {
		if _, err := s.Save(ctx, name, "src", name, Counts{Terms: 1}); err != nil {
			t.Fatalf("Save(%s) error = %v", name, err)
		}
	}

	list, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	var names []string
	for _, snap := range list {
		names = append(names, snap.Name)
	}
	if diff := cmp.Diff([]string{"brite_ref", "go_ref", "metacyc_ref"}, names); diff != "" {
		t.Errorf("List() mismatch (-want +got):\n%s", diff)
	}

	n, err := s.Clear(ctx)
	if err != nil || n != 3 {
		t.Fatalf("Clear() = %d, %v", n, err)
	}
	if list, _ := s.List(ctx); len(list) != 0 {
		t.Errorf("List() after Clear = %v", list)
	}
	if err := s.Delete(ctx, "go_ref"); !coreerrors.Is(err, coreerrors.ErrNotFound) {
		t.Errorf("Delete(missing) error = %v", err)
	}
}

func TestReopenKeepsSnapshots(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	if _, err := s.Save(ctx, "brite_ref", "src", map[string]int{"K00844": 4}, Counts{}); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	s.Close()

	s, err = Open(dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	var got map[string]int
	if _, err := s.Load(ctx, "brite_ref", "src", &got); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if got["K00844"] != 4 {
		t.Errorf("Load() = %v", got)
	}
	if _, err := os.Stat(filepath.Join(dir, DBFile)); err != nil {
		t.Errorf("index database missing: %v", err)
	}
}

func TestSaveEncodeErrors(t *testing.T) {
	s := openTestStore(t)
	boom := errors.New("boom")

	origMarshal, origWriter := jsonMarshal, xzNewWriter
	t.Cleanup(func() { jsonMarshal, xzNewWriter = origMarshal, origWriter })

	jsonMarshal = func(any) ([]byte, error) { return nil, boom }
	if _, err := s.Save(context.Background(), "x", "", 1, Counts{}); !errors.Is(err, boom) {
		t.Errorf("Save() error = %v, want marshal failure", err)
	}

	jsonMarshal = origMarshal
	xzNewWriter = func(io.Writer) (*xz.Writer, error) { return nil, boom }
	if _, err := s.Save(context.Background(), "x", "", 1, Counts{}); !errors.Is(err, boom) {
		t.Errorf("Save() error = %v, want compression failure", err)
	}
}

func TestSaveUsesInjectedClockAndID(t *testing.T) {
	s := openTestStore(t)
	origID, origNow := newID, now
	t.Cleanup(func() { newID, now = origID, origNow })

	fixed := time.Date(2026, 1, 20, 12, 0, 0, 0, time.UTC)
	newID = func() string { return "fixed-id" }
	now = func() time.Time { return fixed }

	snap, err := s.Save(context.Background(), "brite_ref", "src", 1, Counts{})
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if snap.ID != "fixed-id" || !snap.CreatedAt.Equal(fixed) {
		t.Errorf("Save() = %+v", snap)
	}
}

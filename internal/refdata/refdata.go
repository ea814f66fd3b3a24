// Package refdata locates the local reference dumps and turns them into
// hierarchies, through the snapshot store when it is enabled.
//
// Nothing is downloaded. A missing dump yields a MissingDataError naming
// where it is expected and where it can be obtained.
package refdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/hallamlab/Genome-announcements/core/brite"
	"github.com/hallamlab/Genome-announcements/core/cas"
	"github.com/hallamlab/Genome-announcements/core/errors"
	"github.com/hallamlab/Genome-announcements/core/geneontology"
	"github.com/hallamlab/Genome-announcements/core/metacyc"
	"github.com/hallamlab/Genome-announcements/core/ontology"
	"github.com/hallamlab/Genome-announcements/internal/cache"
	"github.com/hallamlab/Genome-announcements/internal/config"
	"github.com/hallamlab/Genome-announcements/internal/logging"
	"github.com/hallamlab/Genome-announcements/internal/snapshot"
)

// Snapshot names of the three reference hierarchies.
const (
	BriteSnapshot   = "brite_ref"
	GOSnapshot      = "go_ref"
	MetaCycSnapshot = "metacyc_ref"
)

// Where the public dumps can be downloaded by hand.
const (
	BriteSource = "https://www.kegg.jp/kegg-bin/download_htext?htext=KO&format=json"
	GOSource    = "http://purl.obolibrary.org/obo/go.owl"
)

// Injectable functions for testing
var (
	osOpen   = os.Open
	osStat   = os.Stat
	hashFile = cas.HashFile
)

// Library loads reference hierarchies for one configuration. Loaded
// hierarchies are kept in memory, bounded by cache.max_loaded.
type Library struct {
	cfg    *config.Config
	store  *snapshot.Store
	loaded *cache.LRU[string, any]
}

// Open creates a library. The snapshot store is opened when caching is
// enabled.
func Open(cfg *config.Config) (*Library, error) {
	l := &Library{
		cfg:    cfg,
		loaded: cache.NewLRU(cache.Config[string, any]{MaxSize: cfg.Cache.MaxLoaded}),
	}
	if cfg.Cache.Enabled {
		store, err := snapshot.Open(cfg.CacheDir())
		if err != nil {
			return nil, err
		}
		l.store = store
	}
	return l, nil
}

// Close releases the snapshot store.
func (l *Library) Close() error {
	if l.store == nil {
		return nil
	}
	return l.store.Close()
}

// Store returns the snapshot store, or nil when caching is disabled.
func (l *Library) Store() *snapshot.Store {
	return l.store
}

// Config returns the configuration the library was opened with.
func (l *Library) Config() *config.Config {
	return l.cfg
}

// Brite returns the KEGG BRITE orthology hierarchy.
func (l *Library) Brite(ctx context.Context) (*ontology.Hierarchy, error) {
	path := l.cfg.BritePath()
	return load(ctx, l, source[*ontology.Hierarchy]{
		name:    BriteSnapshot,
		label:   brite.HierarchyName,
		files:   []string{path},
		missing: errors.NewMissingData("KEGG BRITE ko00001", path, BriteSource),
		parse: func() (*ontology.Hierarchy, error) {
			f, err := osOpen(path)
			if err != nil {
				return nil, errors.NewIO("open", path, err)
			}
			defer f.Close()
			return brite.Parse(f)
		},
		counts: hierarchyCounts,
	})
}

// GeneOntology returns the Gene Ontology.
func (l *Library) GeneOntology(ctx context.Context) (*geneontology.Ontology, error) {
	path := l.cfg.GeneOntologyPath()
	return load(ctx, l, source[*geneontology.Ontology]{
		name:    GOSnapshot,
		label:   geneontology.HierarchyName,
		files:   []string{path},
		missing: errors.NewMissingData("Gene Ontology", path, GOSource),
		parse: func() (*geneontology.Ontology, error) {
			f, err := osOpen(path)
			if err != nil {
				return nil, errors.NewIO("open", path, err)
			}
			defer f.Close()
			return geneontology.Parse(f)
		},
		counts: func(o *geneontology.Ontology) snapshot.Counts {
			return snapshot.Counts{Terms: o.Terms.Len(), Edges: o.EdgeCount()}
		},
	})
}

// MetaCyc returns the MetaCyc reaction and pathway class hierarchy.
func (l *Library) MetaCyc(ctx context.Context) (*ontology.Hierarchy, error) {
	dir := l.cfg.MetaCycDataDir()
	classes := filepath.Join(dir, "classes.dat")
	pathways := filepath.Join(dir, "pathways.dat")

	missing := errors.NewMissingData("MetaCyc "+l.cfg.MetaCyc.Version, dir, metacyc.DownloadURL)
	missing.Note = "MetaCyc requires a license and must be acquired manually"

	return load(ctx, l, source[*ontology.Hierarchy]{
		name:    MetaCycSnapshot,
		label:   metacyc.HierarchyName,
		files:   []string{classes, pathways},
		salt:    l.cfg.MetaCyc.Root + "\n" + strings.Join(l.cfg.MetaCyc.Blacklist, ","),
		missing: missing,
		parse: func() (*ontology.Hierarchy, error) {
			ct, err := readTable(classes)
			if err != nil {
				return nil, err
			}
			pt, err := readTable(pathways)
			if err != nil {
				return nil, err
			}
			return metacyc.Build(ct, pt, l.cfg.MetaCycOptions())
		},
		counts: hierarchyCounts,
	})
}

func readTable(path string) (*metacyc.Table, error) {
	f, err := osOpen(path)
	if err != nil {
		return nil, errors.NewIO("open", path, err)
	}
	defer f.Close()
	t, err := metacyc.ReadTable(f)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", path)
	}
	return t, nil
}

func hierarchyCounts(h *ontology.Hierarchy) snapshot.Counts {
	return snapshot.Counts{Terms: h.Terms.Len(), Edges: h.Index.EdgeCount()}
}

// source describes how one reference hierarchy is obtained.
type source[T any] struct {
	name    string
	label   string
	files   []string
	salt    string // settings the result depends on besides the files
	missing *errors.MissingDataError
	parse   func() (T, error)
	counts  func(T) snapshot.Counts
}

// load serves a hierarchy from memory, then from a fresh snapshot, and
// finally by parsing the source files. Snapshot failures are logged and
// fall through to parsing.
func load[T any](ctx context.Context, l *Library, src source[T]) (T, error) {
	v, err := l.loaded.GetOrLoad(src.name, func() (any, error) {
		v, err := loadUncached(ctx, l, src)
		return v, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

func loadUncached[T any](ctx context.Context, l *Library, src source[T]) (T, error) {
	var zero T
	for _, path := range src.files {
		if _, err := osStat(path); err != nil {
			if os.IsNotExist(err) {
				return zero, src.missing
			}
			return zero, errors.NewIO("stat", path, err)
		}
	}

	var sourceHash string
	if l.store != nil {
		h, err := sourceHashOf(src.files)
		if err != nil {
			return zero, err
		}
		if src.salt != "" {
			h = cas.Hash([]byte(h + "\n" + src.salt))
		}
		sourceHash = h

		var v T
		snap, err := l.store.Load(ctx, src.name, sourceHash, &v)
		switch {
		case err == nil:
			logging.SnapshotHit(ctx, src.name, snap.ID)
			return v, nil
		case errors.Is(err, snapshot.ErrStale):
			logging.SnapshotStale(ctx, src.name, snap.ID)
		case errors.Is(err, errors.ErrNotFound):
		default:
			logging.SnapshotError(ctx, src.name, "load", err)
		}
	}

	logging.ParseStarted(ctx, src.label, strings.Join(src.files, ","))
	start := time.Now()
	v, err := src.parse()
	if err != nil {
		return zero, err
	}
	counts := src.counts(v)
	logging.ParseFinished(ctx, src.label, counts.Terms, counts.Edges, time.Since(start))

	if l.store != nil {
		snap, err := l.store.Save(ctx, src.name, sourceHash, v, counts)
		if err != nil {
			logging.SnapshotError(ctx, src.name, "save", err)
		} else {
			logging.SnapshotStored(ctx, src.name, snap.ID, snap.Bytes)
		}
	}
	return v, nil
}

// sourceHashOf combines the BLAKE3 hashes of every source file.
func sourceHashOf(files []string) (string, error) {
	if len(files) == 1 {
		return hashFile(files[0])
	}
	parts := make([]string, 0, len(files))
	for _, path := range files {
		h, err := hashFile(path)
		if err != nil {
			return "", err
		}
		parts = append(parts, fmt.Sprintf("%s %s", h, filepath.Base(path)))
	}
	return cas.Hash([]byte(strings.Join(parts, "\n"))), nil
}

// Forget drops a loaded hierarchy from memory. Its snapshot is kept.
func (l *Library) Forget(name string) {
	l.loaded.Remove(name)
}

// Package snapshot persists parsed hierarchies so later runs skip parsing.
//
// A snapshot is the JSON encoding of a hierarchy, xz-compressed and kept in
// a BLAKE3 content-addressed blob store. A SQLite table maps each fixed
// snapshot name (brite_ref, go_ref, metacyc_ref) to its current blob and to
// the hash of the source file it was parsed from, so a changed source makes
// the snapshot stale.
package snapshot

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/hallamlab/Genome-announcements/core/cas"
	"github.com/hallamlab/Genome-announcements/core/errors"
	"github.com/hallamlab/Genome-announcements/core/sqlite"
)

// DBFile is the name of the index database inside the store directory.
const DBFile = "snapshots.db"

// ErrStale is returned by Load when the snapshot was taken from a source
// file with a different hash.
var ErrStale = stderrors.New("snapshot is stale")

// Injectable functions for testing
var (
	jsonMarshal   = json.Marshal
	jsonUnmarshal = json.Unmarshal
	xzNewWriter   = xz.NewWriter
	xzNewReader   = xz.NewReader
	newID         = func() string { return uuid.New().String() }
	now           = time.Now
)

const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
	name        TEXT PRIMARY KEY,
	id          TEXT NOT NULL,
	blob_hash   TEXT NOT NULL,
	source_hash TEXT NOT NULL,
	created_at  TEXT NOT NULL,
	terms       INTEGER NOT NULL,
	edges       INTEGER NOT NULL,
	bytes       INTEGER NOT NULL
)`

// Snapshot describes one stored snapshot.
type Snapshot struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	BlobHash   string    `json:"blob_hash"`
	SourceHash string    `json:"source_hash"`
	CreatedAt  time.Time `json:"created_at"`
	Terms      int       `json:"terms"`
	Edges      int       `json:"edges"`
	Bytes      int       `json:"bytes"`
}

// Counts are the sizes recorded alongside a snapshot.
type Counts struct {
	Terms int
	Edges int
}

// Store is a snapshot store rooted at one directory.
type Store struct {
	mu    sync.Mutex
	dir   string
	db    *sql.DB
	blobs *cas.Store
}

// Open opens or creates the store in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.NewIO("create directory", dir, err)
	}
	blobs, err := cas.NewStore(dir)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create blob store")
	}
	dbPath := filepath.Join(dir, DBFile)
	db, err := sqlite.Open(dbPath)
	if err != nil {
		return nil, errors.NewIO("open", dbPath, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, errors.NewIO("initialize", dbPath, err)
	}
	return &Store{dir: dir, db: db, blobs: blobs}, nil
}

// Close closes the index database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dir returns the store directory.
func (s *Store) Dir() string {
	return s.dir
}

// Save encodes v and records it as the current snapshot for name,
// replacing any previous one.
func (s *Store) Save(ctx context.Context, name, sourceHash string, v any, counts Counts) (*Snapshot, error) {
	raw, err := jsonMarshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode snapshot %s: %w", name, err)
	}
	packed, err := compress(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to compress snapshot %s: %w", name, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	hash, err := s.blobs.Put(packed)
	if err != nil {
		return nil, err
	}
	prev, err := s.get(ctx, name)
	if err != nil && !errors.Is(err, errors.ErrNotFound) {
		return nil, err
	}

	snap := &Snapshot{
		ID:         newID(),
		Name:       name,
		BlobHash:   hash,
		SourceHash: sourceHash,
		CreatedAt:  now().UTC(),
		Terms:      counts.Terms,
		Edges:      counts.Edges,
		Bytes:      len(packed),
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO snapshots (name, id, blob_hash, source_hash, created_at, terms, edges, bytes)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.Name, snap.ID, snap.BlobHash, snap.SourceHash, snap.CreatedAt.Format(time.RFC3339Nano),
		snap.Terms, snap.Edges, snap.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to record snapshot %s: %w", name, err)
	}
	if prev != nil && prev.BlobHash != hash {
		if err := s.releaseBlob(ctx, prev.BlobHash); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

// Load decodes the snapshot for name into v. A snapshot whose source hash
// differs from sourceHash is not decoded and ErrStale is returned with its
// metadata. An empty sourceHash skips the freshness check.
func (s *Store) Load(ctx context.Context, name, sourceHash string, v any) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.get(ctx, name)
	if err != nil {
		return nil, err
	}
	if sourceHash != "" && snap.SourceHash != sourceHash {
		return snap, ErrStale
	}
	packed, err := s.blobs.Get(snap.BlobHash)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}
	raw, err := decompress(packed)
	if err != nil {
		return nil, fmt.Errorf("failed to decompress snapshot %s: %w", name, err)
	}
	if err := jsonUnmarshal(raw, v); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot %s: %w", name, err)
	}
	return snap, nil
}

// Get returns the metadata of the snapshot for name.
func (s *Store) Get(ctx context.Context, name string) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.get(ctx, name)
}

func (s *Store) get(ctx context.Context, name string) (*Snapshot, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT name, id, blob_hash, source_hash, created_at, terms, edges, bytes
		 FROM snapshots WHERE name = ?`, name)
	snap, err := scanSnapshot(row)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFound("snapshot", name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot %s: %w", name, err)
	}
	return snap, nil
}

// List returns every snapshot ordered by name.
func (s *Store) List(ctx context.Context) ([]Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT name, id, blob_hash, source_hash, created_at, terms, edges, bytes
		 FROM snapshots ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list snapshots: %w", err)
	}
	defer rows.Close()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to list snapshots: %w", err)
		}
		out = append(out, *snap)
	}
	return out, rows.Err()
}

// Delete removes the snapshot for name and its blob.
func (s *Store) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap, err := s.get(ctx, name)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM snapshots WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete snapshot %s: %w", name, err)
	}
	return s.releaseBlob(ctx, snap.BlobHash)
}

// Clear removes every snapshot and returns how many were removed.
func (s *Store) Clear(ctx context.Context) (int, error) {
	snaps, err := s.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, snap := range snaps {
		if err := s.Delete(ctx, snap.Name); err != nil {
			return 0, err
		}
	}
	return len(snaps), nil
}

// releaseBlob deletes a blob no snapshot refers to any more.
func (s *Store) releaseBlob(ctx context.Context, hash string) error {
	var refs int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots WHERE blob_hash = ?`, hash).Scan(&refs); err != nil {
		return fmt.Errorf("failed to count blob references: %w", err)
	}
	if refs > 0 {
		return nil
	}
	return s.blobs.Delete(hash)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (*Snapshot, error) {
	var (
		snap    Snapshot
		created string
	)
	if err := row.Scan(&snap.Name, &snap.ID, &snap.BlobHash, &snap.SourceHash, &created, &snap.Terms, &snap.Edges, &snap.Bytes); err != nil {
		return nil, err
	}
	t, err := time.Parse(time.RFC3339Nano, created)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", created, err)
	}
	snap.CreatedAt = t
	return &snap, nil
}

func compress(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	w, err := xzNewWriter(&buf)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decompress(packed []byte) ([]byte, error) {
	r, err := xzNewReader(bytes.NewReader(packed))
	if err != nil {
		return nil, err
	}
	return io.ReadAll(r)
}

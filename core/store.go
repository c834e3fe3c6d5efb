package core

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SnapshotStore is a content-addressed archive of snapshot images,
// backed by SQLite. Images are keyed by the hex SHA-256 of their bytes,
// so storing the same graph twice is a no-op and a fetched image can
// always be verified against its key.
type SnapshotStore struct {
	db *sql.DB
}

const storeSchema = `
CREATE TABLE IF NOT EXISTS snapshots (
	hash       TEXT PRIMARY KEY,
	created_at INTEGER NOT NULL,
	size       INTEGER NOT NULL,
	image      BLOB NOT NULL
);
`

// OpenSnapshotStore opens (creating if needed) a store at path. Use
// ":memory:" for an ephemeral store.
func OpenSnapshotStore(path string) (*SnapshotStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	if _, err := db.Exec(storeSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: create schema: %w", err)
	}
	return &SnapshotStore{db: db}, nil
}

// Close releases the underlying database.
func (st *SnapshotStore) Close() error {
	return st.db.Close()
}

// Put archives an image and returns its content hash. Re-putting an
// existing image is a no-op returning the same hash.
func (st *SnapshotStore) Put(image []byte) (string, error) {
	digest := SnapshotDigest(image)
	key := hex.EncodeToString(digest[:])
	_, err := st.db.Exec(
		`INSERT INTO snapshots (hash, created_at, size, image)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT (hash) DO NOTHING`,
		key, time.Now().Unix(), len(image), image)
	if err != nil {
		return "", fmt.Errorf("store: put %s: %w", key, err)
	}
	return key, nil
}

// Get fetches an image by content hash. The fetched bytes are verified
// against the key before being returned.
func (st *SnapshotStore) Get(hash string) ([]byte, error) {
	var image []byte
	err := st.db.QueryRow(
		`SELECT image FROM snapshots WHERE hash = ?`, hash).Scan(&image)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("store: no snapshot %s", hash)
	}
	if err != nil {
		return nil, fmt.Errorf("store: get %s: %w", hash, err)
	}
	digest := SnapshotDigest(image)
	if hex.EncodeToString(digest[:]) != hash {
		return nil, fmt.Errorf("store: snapshot %s failed verification", hash)
	}
	return image, nil
}

// Has reports whether the store holds an image with the given hash.
func (st *SnapshotStore) Has(hash string) (bool, error) {
	var one int
	err := st.db.QueryRow(
		`SELECT 1 FROM snapshots WHERE hash = ?`, hash).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("store: has %s: %w", hash, err)
	}
	return true, nil
}

// Hashes returns every stored content hash, oldest first.
func (st *SnapshotStore) Hashes() ([]string, error) {
	rows, err := st.db.Query(
		`SELECT hash FROM snapshots ORDER BY created_at, hash`)
	if err != nil {
		return nil, fmt.Errorf("store: list: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("store: list: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Count returns the number of stored images.
func (st *SnapshotStore) Count() (int, error) {
	var n int
	if err := st.db.QueryRow(`SELECT COUNT(*) FROM snapshots`).Scan(&n); err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

// Archive snapshots the graph at root and puts the image in one step.
func (rt *Runtime) Archive(st *SnapshotStore, root *Cell) (string, error) {
	image, err := rt.Snapshot(root)
	if err != nil {
		return "", err
	}
	hash, err := st.Put(image)
	if err != nil {
		return "", err
	}
	rt.log.Debugf("archived snapshot %s (%d bytes)", hash, len(image))
	return hash, nil
}

// Unarchive fetches an image by hash and restores it into the runtime.
func (rt *Runtime) Unarchive(st *SnapshotStore, hash string) (Cell, error) {
	image, err := st.Get(hash)
	if err != nil {
		return Cell{}, err
	}
	return rt.Restore(image)
}

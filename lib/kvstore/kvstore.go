// Package kvstore is a small SQLite-backed key/value store exposed to the
// runtime entirely through generated trampolines. It exercises the bind
// core on a stateful native object: boxed receivers, method shapes, and a
// field accessor.
package kvstore

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/tethervm/tether/bind"
	"github.com/tethervm/tether/stack"
)

// ErrKeyNotFound indicates the requested key doesn't exist.
var ErrKeyNotFound = errors.New("key not found")

// Store persists string pairs in a SQLite database.
type Store struct {
	// Label tags the store in diagnostics; scripts may read or set it
	// through the generated field accessor.
	Label string

	db *sql.DB
}

// Open creates or opens a store at the given path.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Put stores value under key, replacing any previous value.
func (s *Store) Put(key, value string) error {
	_, err := s.db.Exec(
		"INSERT OR REPLACE INTO kv (key, value) VALUES (?, ?)",
		key, value,
	)
	if err != nil {
		return fmt.Errorf("storing %q: %w", key, err)
	}
	return nil
}

// Get returns the value stored under key.
func (s *Store) Get(key string) (string, error) {
	var value string
	err := s.db.QueryRow("SELECT value FROM kv WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%q: %w", key, ErrKeyNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("loading %q: %w", key, err)
	}
	return value, nil
}

// Delete removes key. Deleting an absent key is not an error.
func (s *Store) Delete(key string) error {
	if _, err := s.db.Exec("DELETE FROM kv WHERE key = ?", key); err != nil {
		return fmt.Errorf("deleting %q: %w", key, err)
	}
	return nil
}

// Len returns the number of stored pairs.
func (s *Store) Len() (int64, error) {
	var n int64
	if err := s.db.QueryRow("SELECT COUNT(*) FROM kv").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting: %w", err)
	}
	return n, nil
}

// Register exposes the store type to the runtime: a boxed codec for *Store,
// an open constructor, the method trampolines, and the Label field
// accessor, all stored in ns under "kv."-prefixed names.
func Register(r *bind.Registry, ns *stack.Namespace) error {
	if err := r.RegisterBoxed((*Store)(nil)); err != nil {
		return fmt.Errorf("kvstore: %w", err)
	}

	open, err := r.Func(Open)
	if err != nil {
		return fmt.Errorf("kvstore: wrapping Open: %w", err)
	}
	ns.Register("kv.open", open)

	methods := []string{"Put", "Get", "Delete", "Len", "Close"}
	names := []string{"kv.put", "kv.get", "kv.delete", "kv.len", "kv.close"}
	for i, m := range methods {
		tramp, err := r.Method((*Store)(nil), m)
		if err != nil {
			return fmt.Errorf("kvstore: wrapping %s: %w", m, err)
		}
		ns.Register(names[i], tramp)
	}

	label, err := r.Field((*Store)(nil), "Label")
	if err != nil {
		return fmt.Errorf("kvstore: wrapping Label: %w", err)
	}
	ns.Register("kv.label", label)

	return nil
}

// Package snapshot persists the price observation set between runs as a
// single JSON file. The file is the only price state the system keeps: it
// is read once at run start and fully replaced at run end, never merged.
package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/dstanway/grocermon/internal/record"
)

// Store loads and saves snapshots at a fixed path.
type Store struct {
	path string
}

// New builds a store for the given file path.
func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the backing file path.
func (s *Store) Path() string { return s.path }

// Load reads the prior run's snapshot. An absent file is an empty
// snapshot; an unreadable or syntactically corrupt file is an error, which
// callers treat as run-fatal so a bad run cannot silently replace good
// data. Junk inside individual price fields is not an error here; those
// entries are skipped downstream.
func (s *Store) Load() (record.Snapshot, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return record.Snapshot{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", s.path, err)
	}

	var snap record.Snapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, fmt.Errorf("corrupt snapshot %s: %w", s.path, err)
	}
	if snap == nil {
		snap = record.Snapshot{}
	}
	return snap, nil
}

// Save writes the snapshot, fully replacing the previous one. The write
// goes through a temp file and rename so a crash mid-write leaves the
// prior snapshot authoritative.
func (s *Store) Save(snap record.Snapshot) error {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create snapshot dir %s: %w", dir, err)
	}

	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	if _, err := tmp.Write(append(b, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace snapshot %s: %w", s.path, err)
	}
	return nil
}

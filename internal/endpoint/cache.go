// Package endpoint keeps a volatile API base address usable across runs.
//
// Sources like Coles rotate their product-API host without notice. The
// resolver pairs a cheap cache read with an expensive rediscovery pass over
// a public page, so most runs pay one file read and only runs that hit an
// actual rotation pay the discovery cost. Invalidation is failure-driven:
// the resolver never detects staleness itself, callers invalidate and force
// rediscovery after a cached address stops answering.
package endpoint

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Cache persists a single discovered base address.
type Cache interface {
	// Load returns the cached address, or ok=false when none is stored.
	Load() (addr string, ok bool)

	// Store persists an address, replacing any previous one.
	Store(addr string) error

	// Invalidate removes the cached address. Removing an absent entry is
	// not an error.
	Invalidate() error
}

// FileCache stores the address as a one-line text file. An absent or empty
// file means no cached address.
type FileCache struct {
	path string
}

// NewFileCache builds a cache backed by the given file path.
func NewFileCache(path string) *FileCache {
	return &FileCache{path: path}
}

func (c *FileCache) Load() (string, bool) {
	b, err := os.ReadFile(c.path)
	if err != nil {
		return "", false
	}
	addr := strings.TrimSpace(string(b))
	return addr, addr != ""
}

func (c *FileCache) Store(addr string) error {
	dir := filepath.Dir(c.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}
	// Write-then-rename keeps a crashed run from leaving a torn entry.
	tmp, err := os.CreateTemp(dir, ".endpoint-*")
	if err != nil {
		return fmt.Errorf("create temp cache file: %w", err)
	}
	if _, err := tmp.WriteString(addr + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close cache file: %w", err)
	}
	if err := os.Rename(tmp.Name(), c.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace cache file: %w", err)
	}
	return nil
}

func (c *FileCache) Invalidate() error {
	err := os.Remove(c.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove cache file %s: %w", c.path, err)
	}
	return nil
}

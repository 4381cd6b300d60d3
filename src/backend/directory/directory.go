// Package directory implements backend.Store over a flat filesystem
// directory: one JSON file per snapshot.
package directory

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"relaybot/src/backend"
)

// Backend implements backend.Store for the filesystem layout.
type Backend struct {
	Root string // absolute directory path
}

// New returns a Backend rooted at root, creating the directory if needed.
func New(root string) (*Backend, error) {
	if root == "" {
		return nil, errors.New("directory backend root must not be empty")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create root: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("root is not a directory: %s", root)
	}
	return &Backend{Root: root}, nil
}

func (b *Backend) List() ([]backend.Entry, error) {
	dirEntries, err := os.ReadDir(b.Root)
	if err != nil {
		return nil, err
	}
	var entries []backend.Entry
	for _, e := range dirEntries {
		if e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		kind, ts, ok := backend.ParseName(e.Name())
		if !ok {
			continue
		}
		var size int64
		if info, err := e.Info(); err == nil {
			size = info.Size()
		}
		entries = append(entries, backend.Entry{
			Kind:      kind,
			Timestamp: ts,
			Path:      filepath.Join(b.Root, e.Name()),
			Size:      size,
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		a, c := entries[i], entries[j]
		if a.Timestamp != c.Timestamp {
			return a.Timestamp < c.Timestamp
		}
		return a.Kind < c.Kind
	})
	return entries, nil
}

// Write persists data under name via a temp file and rename so a crash never
// leaves a half-written snapshot behind.
func (b *Backend) Write(name string, data []byte) (string, error) {
	if name == "" || name != filepath.Base(name) {
		return "", fmt.Errorf("invalid snapshot name %q", name)
	}
	dst := filepath.Join(b.Root, name)
	if _, err := os.Stat(dst); err == nil {
		// snapshots are immutable; never replace one in place
		return "", fmt.Errorf("snapshot %s: %w", name, fs.ErrExist)
	}
	tmp, err := os.CreateTemp(b.Root, "."+name+".tmp-*")
	if err != nil {
		return "", fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return "", fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, dst); err != nil {
		os.Remove(tmpName)
		return "", fmt.Errorf("rename: %w", err)
	}
	return dst, nil
}

// Read loads a snapshot by absolute path or bare filename relative to the
// root.
func (b *Backend) Read(path string) ([]byte, error) {
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.Root, path)
	}
	return os.ReadFile(path)
}

func (b *Backend) Delete(path string) error {
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.Root, path)
	}
	return os.Remove(path)
}

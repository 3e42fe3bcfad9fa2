// Package jsondb persists a single JSON object to a file.
//
// # Overview
//
// [Document] owns one file holding a JSON object whose members are kept as
// raw JSON ([json.RawMessage]), so any value shape round-trips untouched.
// There is no cache: every call reads the current file contents, which keeps
// manual edits to the file visible to the next request.
//
// # Concurrency: Pessimistic Locking
//
// [Document.Modify] holds the document mutex for the whole read-modify-write
// cycle, so two writers in the same process cannot lose each other's updates.
// [Document.Read] takes the same mutex. Writers in other processes are not
// coordinated.
//
// # File Format
//
// A single JSON object, indented with two spaces and terminated by a newline.
// A missing or empty file is an empty object; a top-level null is treated the
// same way.
package jsondb

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Document handles storage of one JSON object file.
type Document struct {
	path string
	mu   sync.Mutex
}

// NewDocument returns a Document backed by path.
//
// The parent directory is created if needed. The file itself is only created
// by the first write.
func NewDocument(path string) (*Document, error) {
	if path == "" {
		return nil, errors.New("document path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil { //nolint:gosec // G301: 0o755 is intentional for data directories
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}
	return &Document{path: path}, nil
}

// Path returns the file path backing the document.
func (d *Document) Path() string {
	return d.path
}

// Read loads the whole object from disk.
//
// The returned map is owned by the caller.
func (d *Document) Read() (map[string]json.RawMessage, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.load()
}

// Modify runs fn against the current object and persists it if fn reports a
// change.
//
// The lock is held across load, fn and write. An error from fn aborts the
// write and is returned as is.
func (d *Document) Modify(fn func(m map[string]json.RawMessage) (changed bool, err error)) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	m, err := d.load()
	if err != nil {
		return err
	}
	changed, err := fn(m)
	if err != nil {
		return err
	}
	if !changed {
		return nil
	}
	return d.write(m)
}

func (d *Document) load() (map[string]json.RawMessage, error) {
	data, err := os.ReadFile(d.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]json.RawMessage{}, nil
		}
		return nil, fmt.Errorf("failed to read %s: %w", d.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", d.path, err)
	}
	if m == nil {
		m = map[string]json.RawMessage{}
	}
	return m, nil
}

// write replaces the file through a temporary sibling and a rename.
func (d *Document) write(m map[string]json.RawMessage) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	// Encode terminates the object with a newline.
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("failed to marshal %s: %w", d.path, err)
	}
	data := buf.Bytes()

	f, err := os.CreateTemp(filepath.Dir(d.path), "."+filepath.Base(d.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmp := f.Name()
	defer func() {
		// No-op once the rename succeeded.
		_ = os.Remove(tmp)
	}()

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := f.Chmod(0o644); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to chmod %s: %w", tmp, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, d.path); err != nil {
		return fmt.Errorf("failed to replace %s: %w", d.path, err)
	}
	return nil
}

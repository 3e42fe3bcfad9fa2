// Package storage implements the key-value operations on top of the JSON
// document.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"

	"github.com/maruel/jsonkv/internal/jsondb"
)

var (
	// ErrKeyNotFound is returned when the key is not in the store.
	ErrKeyNotFound = errors.New("key not found")
	// ErrKeyExists is returned when creating a key that is already in the store.
	ErrKeyExists = errors.New("key already exists")
)

// Store handles key-value business logic.
type Store struct {
	doc     *jsondb.Document
	history *History
	// mu keeps a mutation and its history commit together.
	mu sync.Mutex
}

// NewStore creates a store over doc. history may be nil.
func NewStore(doc *jsondb.Document, history *History) *Store {
	return &Store{doc: doc, history: history}
}

// Path returns the file backing the store.
func (s *Store) Path() string {
	return s.doc.Path()
}

// List returns the whole mapping.
func (s *Store) List(ctx context.Context) (map[string]json.RawMessage, error) {
	return s.doc.Read()
}

// Get returns the value stored at key.
func (s *Store) Get(ctx context.Context, key string) (json.RawMessage, error) {
	m, err := s.doc.Read()
	if err != nil {
		return nil, err
	}
	v, ok := m[key]
	if !ok {
		return nil, ErrKeyNotFound
	}
	return v, nil
}

// Create adds key and returns the updated mapping.
//
// It fails with ErrKeyExists when the key is already stored; the check and the
// write happen under the same lock.
func (s *Store) Create(ctx context.Context, key string, value json.RawMessage) (map[string]json.RawMessage, error) {
	var out map[string]json.RawMessage
	err := s.mutate(ctx, "create "+key, func(m map[string]json.RawMessage) error {
		if _, ok := m[key]; ok {
			return ErrKeyExists
		}
		m[key] = value
		out = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update replaces the value of an existing key and returns the new value.
func (s *Store) Update(ctx context.Context, key string, value json.RawMessage) (json.RawMessage, error) {
	err := s.mutate(ctx, "update "+key, func(m map[string]json.RawMessage) error {
		if _, ok := m[key]; !ok {
			return ErrKeyNotFound
		}
		m[key] = value
		return nil
	})
	if err != nil {
		return nil, err
	}
	return value, nil
}

// Delete removes key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return s.mutate(ctx, "delete "+key, func(m map[string]json.RawMessage) error {
		if _, ok := m[key]; !ok {
			return ErrKeyNotFound
		}
		delete(m, key)
		return nil
	})
}

// mutate applies fn to the document and records the change in history.
func (s *Store) mutate(ctx context.Context, msg string, fn func(m map[string]json.RawMessage) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.doc.Modify(func(m map[string]json.RawMessage) (bool, error) {
		if err := fn(m); err != nil {
			return false, err
		}
		return true, nil
	})
	if err != nil {
		return err
	}
	if s.history != nil {
		// The change is already on disk; a failed commit must not fail the request.
		if err := s.history.Commit(ctx, msg); err != nil {
			slog.WarnContext(ctx, "Failed to commit store change", "err", err, "msg", msg)
		}
	}
	slog.DebugContext(ctx, "Store modified", "op", msg)
	return nil
}

package handlers

import (
	"context"
	"encoding/json"

	"github.com/maruel/jsonkv/internal/models"
	"github.com/maruel/jsonkv/internal/storage"
)

// StoreHandler handles the key-value HTTP requests.
type StoreHandler struct {
	store *storage.Store
}

// NewStoreHandler creates a new store handler.
func NewStoreHandler(store *storage.Store) *StoreHandler {
	return &StoreHandler{store: store}
}

// List returns the whole store.
func (h *StoreHandler) List(ctx context.Context, req *models.ListRequest) (*models.Store, error) {
	m, err := h.store.List(ctx)
	if err != nil {
		return nil, storeError(err, "")
	}
	out := models.Store(m)
	return &out, nil
}

// Create adds a key and returns the whole updated store.
func (h *StoreHandler) Create(ctx context.Context, req *models.CreateRequest) (*models.Store, error) {
	m, err := h.store.Create(ctx, req.Key, req.Value)
	if err != nil {
		return nil, storeError(err, req.Key)
	}
	out := models.Store(m)
	return &out, nil
}

// Get returns the value stored at the path key.
func (h *StoreHandler) Get(ctx context.Context, req *models.KeyRequest) (*json.RawMessage, error) {
	v, err := h.store.Get(ctx, req.Key)
	if err != nil {
		return nil, storeError(err, req.Key)
	}
	return &v, nil
}

// Update replaces the value of the path key and returns the new value.
func (h *StoreHandler) Update(ctx context.Context, req *models.UpdateRequest) (*json.RawMessage, error) {
	v, err := h.store.Update(ctx, req.Target, req.Value)
	if err != nil {
		return nil, storeError(err, req.Target)
	}
	return &v, nil
}

// Delete removes the path key and returns null.
func (h *StoreHandler) Delete(ctx context.Context, req *models.KeyRequest) (*json.RawMessage, error) {
	if err := h.store.Delete(ctx, req.Key); err != nil {
		return nil, storeError(err, req.Key)
	}
	null := json.RawMessage("null")
	return &null, nil
}

// Package models defines the request and response types of the key-value API.
package models

import (
	"encoding/json"

	apierrors "github.com/maruel/jsonkv/internal/errors"
)

// Validatable is implemented by request types that can validate their fields.
// The server's Wrap function uses this interface as a type constraint to
// ensure all request types provide validation.
type Validatable interface {
	Validate() error
}

// Bodiless is implemented by request types filled only from the path. The
// server does not read the body of such requests.
type Bodiless interface {
	bodiless()
}

// Store is the whole key-value mapping as returned by list and create.
type Store map[string]json.RawMessage

// Entry is the JSON body of create and update requests.
type Entry struct {
	Key   string          `json:"key"`
	Value json.RawMessage `json:"value"`
}

// Validate reports a missing field when key is empty or value is falsy.
func (e *Entry) Validate() error {
	if e.Key == "" || !IsTruthy(e.Value) {
		return apierrors.MissingKeyValue()
	}
	return nil
}

// ListRequest is the request for listing the whole store.
type ListRequest struct{}

// Validate implements Validatable.
func (r *ListRequest) Validate() error {
	return nil
}

func (r *ListRequest) bodiless() {}

// CreateRequest is the request for adding a new key.
type CreateRequest struct {
	Entry
}

// KeyRequest addresses one key through the path.
type KeyRequest struct {
	Key string `json:"-" path:"key"`
}

// Validate implements Validatable.
func (r *KeyRequest) Validate() error {
	return nil
}

func (r *KeyRequest) bodiless() {}

// UpdateRequest replaces the value of an existing key.
//
// The body key is only checked for presence; Target names the key to update.
type UpdateRequest struct {
	Entry
	Target string `json:"-" path:"key"`
}

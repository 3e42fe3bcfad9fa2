// Maps storage errors to API errors.

package handlers

import (
	"errors"

	apierrors "github.com/maruel/jsonkv/internal/errors"
	"github.com/maruel/jsonkv/internal/storage"
)

func storeError(err error, key string) error {
	switch {
	case errors.Is(err, storage.ErrKeyNotFound):
		return apierrors.KeyNotFound(key)
	case errors.Is(err, storage.ErrKeyExists):
		return apierrors.KeyExists(key)
	default:
		return apierrors.InternalWithError("store operation failed", err)
	}
}

// Package server implements the HTTP server and routing logic.
package server

import (
	"net/http"

	"github.com/maruel/jsonkv/internal/server/handlers"
	"github.com/maruel/jsonkv/internal/server/ratelimit"
	"github.com/maruel/jsonkv/internal/storage"
)

// NewRouter creates and configures the HTTP router.
//
// Keys live directly under the root, one path segment each. limiters may be
// nil.
func NewRouter(store *storage.Store, cfg *Config, limiters *ratelimit.Limiters) http.Handler {
	mux := &http.ServeMux{}
	sh := handlers.NewStoreHandler(store)

	mux.Handle("POST /{$}", Wrap(sh.Create, cfg))
	mux.Handle("GET /{$}", Wrap(sh.List, cfg))
	mux.Handle("GET /{key}", Wrap(sh.Get, cfg))
	mux.Handle("PUT /{key}", Wrap(sh.Update, cfg))
	mux.Handle("DELETE /{key}", Wrap(sh.Delete, cfg))

	return RequestMiddleware(limiters)(mux)
}

package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"path/filepath"
	"testing"

	apierrors "github.com/maruel/jsonkv/internal/errors"
	"github.com/maruel/jsonkv/internal/jsondb"
	"github.com/maruel/jsonkv/internal/models"
	"github.com/maruel/jsonkv/internal/storage"
)

func newTestHandler(t *testing.T) *StoreHandler {
	t.Helper()
	doc, err := jsondb.NewDocument(filepath.Join(t.TempDir(), "store.json"))
	if err != nil {
		t.Fatalf("NewDocument: %v", err)
	}
	return NewStoreHandler(storage.NewStore(doc, nil))
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var ews apierrors.ErrorWithStatus
	if !errors.As(err, &ews) {
		t.Fatalf("expected an API error, got %v", err)
	}
	return ews.StatusCode()
}

func entry(key, value string) models.Entry {
	return models.Entry{Key: key, Value: json.RawMessage(value)}
}

func TestStoreHandler(t *testing.T) {
	t.Parallel()
	ctx := t.Context()
	h := newTestHandler(t)

	out, err := h.Create(ctx, &models.CreateRequest{Entry: entry("a", "1")})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if len(*out) != 1 || string((*out)["a"]) != "1" {
		t.Errorf("Create returned %v", *out)
	}

	if _, err := h.Create(ctx, &models.CreateRequest{Entry: entry("a", "2")}); statusOf(t, err) != http.StatusBadRequest {
		t.Errorf("duplicate create status mismatch")
	}

	v, err := h.Get(ctx, &models.KeyRequest{Key: "a"})
	if err != nil || string(*v) != "1" {
		t.Fatalf("Get = %v, %v", v, err)
	}

	v, err = h.Update(ctx, &models.UpdateRequest{Entry: entry("ignored", "2"), Target: "a"})
	if err != nil || string(*v) != "2" {
		t.Fatalf("Update = %v, %v", v, err)
	}

	if _, err := h.Update(ctx, &models.UpdateRequest{Entry: entry("b", "2"), Target: "b"}); statusOf(t, err) != http.StatusNotFound {
		t.Errorf("update of missing key status mismatch")
	}

	v, err = h.Delete(ctx, &models.KeyRequest{Key: "a"})
	if err != nil || string(*v) != "null" {
		t.Fatalf("Delete = %v, %v", v, err)
	}
	if _, err := h.Get(ctx, &models.KeyRequest{Key: "a"}); statusOf(t, err) != http.StatusNotFound {
		t.Errorf("get after delete status mismatch")
	}
	if _, err := h.Delete(ctx, &models.KeyRequest{Key: "a"}); statusOf(t, err) != http.StatusNotFound {
		t.Errorf("double delete status mismatch")
	}

	all, err := h.List(ctx, &models.ListRequest{})
	if err != nil || len(*all) != 0 {
		t.Errorf("List = %v, %v", all, err)
	}
}

func TestStoreErrorMapping(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{storage.ErrKeyNotFound, http.StatusNotFound},
		{storage.ErrKeyExists, http.StatusBadRequest},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusOf(t, storeError(tt.err, "k")); got != tt.want {
			t.Errorf("storeError(%v) status = %d, want %d", tt.err, got, tt.want)
		}
	}
}

package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRespondJSON(t *testing.T) {
	w := httptest.NewRecorder()
	if err := RespondJSON(w, http.StatusOK, map[string]int{"a": 1}); err != nil {
		t.Fatalf("RespondJSON failed: %v", err)
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := w.Body.String(); got != "{\"a\":1}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestRespondJSONNoHTMLEscape(t *testing.T) {
	w := httptest.NewRecorder()
	if err := RespondJSON(w, http.StatusOK, map[string]string{"a": "<b>&"}); err != nil {
		t.Fatalf("RespondJSON failed: %v", err)
	}
	if got := w.Body.String(); got != "{\"a\":\"<b>&\"}\n" {
		t.Errorf("body = %q", got)
	}
}

func TestRespondText(t *testing.T) {
	w := httptest.NewRecorder()
	RespondText(w, http.StatusNotFound, "Key not found")
	if w.Code != http.StatusNotFound {
		t.Errorf("status = %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/plain; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
	if got := w.Body.String(); got != "Key not found" {
		t.Errorf("body = %q", got)
	}
}

package reqctx

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/maruel/ksid"
)

func TestGetClientIP(t *testing.T) {
	tests := []struct {
		name       string
		remoteAddr string
		headers    map[string]string
		want       string
	}{
		{"ipv4", "10.0.0.1:1234", nil, "10.0.0.1"},
		{"ipv6", "[::1]:8080", nil, "::1"},
		{"no port", "10.0.0.1", nil, "10.0.0.1"},
		{"forwarded", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": "1.2.3.4, 10.0.0.2"}, "1.2.3.4"},
		{"forwarded single", "10.0.0.1:1234", map[string]string{"X-Forwarded-For": " 1.2.3.4 "}, "1.2.3.4"},
		{"real ip", "10.0.0.1:1234", map[string]string{"X-Real-IP": "5.6.7.8"}, "5.6.7.8"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", "/", nil)
			r.RemoteAddr = tt.remoteAddr
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := GetClientIP(r); got != tt.want {
				t.Errorf("GetClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestContextValues(t *testing.T) {
	ctx := context.Background()
	if ClientIP(ctx) != "" || RequestID(ctx) != 0 {
		t.Fatal("empty context must return zero values")
	}
	id := ksid.NewID()
	ctx = WithRequestID(WithClientIP(ctx, "1.2.3.4"), id)
	if got := ClientIP(ctx); got != "1.2.3.4" {
		t.Errorf("ClientIP() = %q", got)
	}
	if got := RequestID(ctx); got != id {
		t.Errorf("RequestID() = %v, want %v", got, id)
	}
}

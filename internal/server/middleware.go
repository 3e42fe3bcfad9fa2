package server

import (
	"log/slog"
	"net/http"
	"time"

	apierrors "github.com/maruel/jsonkv/internal/errors"
	"github.com/maruel/jsonkv/internal/server/ratelimit"
	"github.com/maruel/jsonkv/internal/server/reqctx"
	"github.com/maruel/ksid"
)

// RequestMiddleware tags each request with an ID and the client IP, applies
// rate limits and logs one line per request.
func RequestMiddleware(limiters *ratelimit.Limiters) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			id := ksid.NewID()
			ip := reqctx.GetClientIP(r)
			ctx := reqctx.WithRequestID(reqctx.WithClientIP(r.Context(), ip), id)
			w.Header().Set("X-Request-Id", id.String())
			rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			if l := limiters.Match(r.Method); l != nil {
				result := l.Allow(ip)
				ratelimit.WriteHeaders(w, result)
				if !result.Allowed {
					writeError(ctx, rw, apierrors.RateLimitExceeded(int(result.RetryAfter.Seconds())))
					logRequest(r, rw.status, start, id, ip)
					return
				}
			}

			next.ServeHTTP(rw, r.WithContext(ctx))
			logRequest(r, rw.status, start, id, ip)
		})
	}
}

func logRequest(r *http.Request, status int, start time.Time, id ksid.ID, ip string) {
	slog.InfoContext(r.Context(), "http",
		"method", r.Method,
		"path", r.URL.Path,
		"status", status,
		"dur", time.Since(start).Round(time.Microsecond),
		"req", id,
		"ip", ip,
	)
}

// statusWriter records the status code sent by the handler.
type statusWriter struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (s *statusWriter) WriteHeader(code int) {
	if !s.wroteHeader {
		s.status = code
		s.wroteHeader = true
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Write(b []byte) (int, error) {
	s.wroteHeader = true
	return s.ResponseWriter.Write(b)
}

// Unwrap returns the underlying ResponseWriter for http.ResponseController.
func (s *statusWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

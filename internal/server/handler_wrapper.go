// Provides middleware for standardizing HTTP handlers.

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"reflect"

	apierrors "github.com/maruel/jsonkv/internal/errors"
	"github.com/maruel/jsonkv/internal/models"
	"github.com/maruel/jsonkv/internal/server/reqctx"
	"github.com/maruel/jsonkv/internal/utils"
)

// Config holds the request limits applied by Wrap.
type Config struct {
	// MaxRequestBodyBytes limits the size of a request body. 0 means unlimited.
	MaxRequestBodyBytes int64
}

// Wrap wraps a handler function to work as an http.Handler.
// The function must have signature: func(context.Context, *In) (*Out, error)
// where In can be unmarshalled from JSON and *In implements models.Validatable.
// Path parameters can be extracted by tagging string fields with `path:"name"`.
//
// Successful results are encoded as JSON with status 200. Errors are sent as
// plain text; see writeError.
//
// Example:
//
//	type KeyRequest struct {
//	    Key string `json:"-" path:"key"`
//	}
//
//	func (h *StoreHandler) Get(ctx context.Context, req *KeyRequest) (*json.RawMessage, error)
func Wrap[In any, PtrIn interface {
	*In
	models.Validatable
}, Out any](fn func(context.Context, PtrIn) (*Out, error), cfg *Config) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		input := new(In)
		if _, ok := any(input).(models.Bodiless); !ok {
			if err := readAndDecodeBody(w, r, input, cfg); err != nil {
				writeError(ctx, w, err)
				return
			}
		}
		populatePathParams(r, input)

		if err := PtrIn(input).Validate(); err != nil {
			writeError(ctx, w, err)
			return
		}

		output, err := fn(ctx, PtrIn(input))
		if err != nil {
			writeError(ctx, w, err)
			return
		}
		if err := utils.RespondJSON(w, http.StatusOK, output); err != nil {
			slog.ErrorContext(ctx, "Failed to encode response", "err", err, "req", reqctx.RequestID(ctx))
		}
	})
}

// readAndDecodeBody reads the request body with size limit and decodes JSON into input.
// An empty body leaves input untouched. Requests implementing models.Bodiless
// never reach it.
func readAndDecodeBody(w http.ResponseWriter, r *http.Request, input any, cfg *Config) error {
	if cfg != nil && cfg.MaxRequestBodyBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, cfg.MaxRequestBodyBytes)
	}
	body, err := io.ReadAll(r.Body)
	if err2 := r.Body.Close(); err == nil {
		err = err2
	}
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return apierrors.PayloadTooLarge(maxBytesErr.Limit)
		}
		return apierrors.InvalidBody().Wrap(err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(input); err != nil {
		return apierrors.InvalidBody().Wrap(err)
	}
	// The body must hold exactly one JSON value.
	var extra json.RawMessage
	if err := dec.Decode(&extra); !errors.Is(err, io.EOF) {
		return apierrors.InvalidBody().WithDetail("reason", "trailing data")
	}
	return nil
}

// writeError logs err and sends it as plain text.
//
// Errors that do not carry a status are unexpected and become an opaque 500.
func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	statusCode := http.StatusInternalServerError
	errorCode := apierrors.ErrInternal
	message := apierrors.InternalMessage
	var details map[string]any

	var ewsErr apierrors.ErrorWithStatus
	if errors.As(err, &ewsErr) {
		statusCode = ewsErr.StatusCode()
		errorCode = ewsErr.Code()
		message = ewsErr.Message()
		details = ewsErr.Details()
	}

	slog.ErrorContext(ctx, "Handler error", "err", err, "statusCode", statusCode, "code", errorCode, "details", details, "req", reqctx.RequestID(ctx), "ip", reqctx.ClientIP(ctx))
	utils.RespondText(w, statusCode, message)
}

// populatePathParams extracts path parameters from the request and populates
// string struct fields tagged with `path:"paramName"`.
func populatePathParams(r *http.Request, input any) {
	val := reflect.ValueOf(input)
	if val.Kind() != reflect.Pointer {
		return
	}
	elem := val.Elem()
	if elem.Kind() != reflect.Struct {
		return
	}

	typ := elem.Type()
	for i := range typ.NumField() {
		field := typ.Field(i)
		tag := field.Tag.Get("path")
		if tag == "" || field.Type.Kind() != reflect.String {
			continue
		}
		if v := r.PathValue(tag); v != "" {
			elem.Field(i).SetString(v)
		}
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ghostpass/senate/internal/domain"
)

// maxBodyBytes bounds request bodies. Submissions are capped well below it.
const maxBodyBytes = 256 << 10

var (
	errUnauthorized = errors.New("authentication required")
	errBadRequest   = errors.New("bad request")
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError maps err to a status code. Internal failures never expose
// their message.
func writeError(w http.ResponseWriter, err error) {
	var verr *domain.ValidationError
	switch {
	case errors.As(err, &verr):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "validation_failed", Details: verr.Errors})
	case errors.Is(err, errBadRequest):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad_request", Details: []string{err.Error()}})
	case errors.Is(err, errUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
	case errors.Is(err, domain.ErrForbidden):
		writeJSON(w, http.StatusForbidden, errorResponse{Error: "forbidden"})
	default:
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
	}
}

// decodeJSON reads one JSON value from the body into dst and validates it
// when it carries struct tags. Unknown fields are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	return decode(w, r, v, dst, true)
}

// decodeJSONLenient is decodeJSON for partner routes, where extra fields
// are ignored.
func decodeJSONLenient(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) error {
	return decode(w, r, v, dst, false)
}

func decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any, strict bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if strict {
		dec.DisallowUnknownFields()
	}
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is required", errBadRequest)
		}
		return fmt.Errorf("%w: invalid JSON: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must hold a single JSON value", errBadRequest)
	}
	if v == nil {
		return nil
	}
	if err := v.Struct(dst); err != nil {
		var invalid *validator.InvalidValidationError
		if errors.As(err, &invalid) {
			return nil
		}
		return requestValidationError(err)
	}
	return nil
}

func requestValidationError(err error) error {
	verr := domain.NewValidationError("request")
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		verr.AddError(err.Error())
		return verr
	}
	for _, fe := range fields {
		field := fe.Field()
		switch fe.Tag() {
		case "required":
			verr.AddErrorf("%s: is required", field)
		case "max":
			verr.AddErrorf("%s: must be at most %s characters", field, fe.Param())
		default:
			verr.AddErrorf("%s: failed %s", field, fe.Tag())
		}
	}
	return verr
}

// newRequestValidator reports fields by their JSON names.
func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

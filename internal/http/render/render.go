// Package render writes JSON responses and maps domain errors to status codes.
package render

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/MrJamesThe3rd/bnpl/internal/creditline"
)

type errorResponse struct {
	Error     string   `json:"error"`
	Kind      string   `json:"kind"`
	Retryable bool     `json:"retryable"`
	Fields    []string `json:"fields,omitempty"`
}

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// Status maps an error kind to the HTTP status returned for it.
func Status(kind creditline.Kind) int {
	switch kind {
	case creditline.KindValidation:
		return http.StatusBadRequest
	case creditline.KindNotFound:
		return http.StatusNotFound
	case creditline.KindBusiness:
		return http.StatusUnprocessableEntity
	case creditline.KindConflict:
		return http.StatusConflict
	}

	return http.StatusInternalServerError
}

// Error writes err with the status of its kind. Infrastructure failures are
// logged and their details are not exposed.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	kind := creditline.KindOf(err)
	status := Status(kind)
	msg := err.Error()

	if kind == creditline.KindInfrastructure {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)

		msg = "internal error"
	}

	JSON(w, status, errorResponse{
		Error:     msg,
		Kind:      kind.String(),
		Retryable: kind.Retryable(),
	})
}

func BadRequest(w http.ResponseWriter, msg string) {
	JSON(w, http.StatusBadRequest, errorResponse{
		Error: msg,
		Kind:  creditline.KindValidation.String(),
	})
}

// Invalid reports the failed fields of a validator error.
func Invalid(w http.ResponseWriter, err error) {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		BadRequest(w, err.Error())
		return
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fieldMessage(fe))
	}

	JSON(w, http.StatusBadRequest, errorResponse{
		Error:  "invalid request: " + strings.Join(fields, "; "),
		Kind:   creditline.KindValidation.String(),
		Fields: fields,
	})
}

func fieldMessage(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag())
	}

	return fmt.Sprintf("%s failed %s=%s", fe.Namespace(), fe.Tag(), fe.Param())
}

// Decode reads a JSON body into dst and validates it. It writes the error
// response itself and reports whether the handler may continue.
func Decode(w http.ResponseWriter, r *http.Request, v *validator.Validate, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		BadRequest(w, "invalid request body: "+err.Error())
		return false
	}

	if err := v.Struct(dst); err != nil {
		Invalid(w, err)
		return false
	}

	return true
}

// NewValidator returns a validator that names fields by their json tag.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}

		return name
	})

	return v
}

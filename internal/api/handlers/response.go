package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"

	apperrors "github.com/diagnosai/backend/pkg/errors"
)

const maxRequestBodyBytes = 10 << 20

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		if name == "" {
			return field.Name
		}
		return name
	})
	return v
}

type errorResponse struct {
	Error   string                 `json:"error"`
	Details []apperrors.FieldError `json:"details,omitempty"`
}

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, errorResponse{Error: message})
}

// respondWithAppError maps err onto its HTTP status. Unexpected errors are not echoed to the client.
func respondWithAppError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	appErr, ok := apperrors.As(err)
	if !ok {
		respondWithError(w, status, http.StatusText(status))
		return
	}
	if appErr.Type == apperrors.ErrorTypeInternal {
		log.Error().Err(err).Msg("internal error")
	}
	respondWithJSON(w, status, errorResponse{Error: appErr.Message, Details: appErr.Fields})
}

// decodeAndValidate reads a JSON body into dst and runs struct validation.
// Any failure is returned as a validation AppError with per-field detail.
func decodeAndValidate(r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxRequestBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) && typeErr.Field != "" {
			return apperrors.NewValidationError("invalid request payload",
				apperrors.FieldError{Field: typeErr.Field, Rule: "type"})
		}
		return apperrors.NewValidationError("invalid request payload",
			apperrors.FieldError{Field: "body", Rule: "json"})
	}
	return validateStruct(dst)
}

func validateStruct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var validationErrs validator.ValidationErrors
	if !errors.As(err, &validationErrs) {
		return apperrors.NewValidationError("invalid request payload")
	}

	fields := make([]apperrors.FieldError, 0, len(validationErrs))
	for _, fe := range validationErrs {
		fields = append(fields, apperrors.FieldError{
			Field: fieldPath(fe.Namespace()),
			Rule:  fe.Tag(),
		})
	}
	return apperrors.NewValidationError("request validation failed", fields...)
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if i := strings.Index(namespace, "."); i >= 0 {
		return namespace[i+1:]
	}
	return namespace
}

// Package validation provides request validation and custom validators.
package validation

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"

	"github.com/ideaspark/hub/internal/api/response"
)

// validate and decoder are only read after package initialisation; both are safe for
// concurrent Struct and Decode calls.
var (
	validate = newValidator()
	decoder  = form.NewDecoder()
)

func newValidator() *validator.Validate {
	v := validator.New()

	// Report fields by their JSON or query name so messages match what the client sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "form"} {
			name, _, _ := strings.Cut(fld.Tag.Get(key), ",")
			if name == "-" {
				return ""
			}

			if name != "" {
				return name
			}
		}

		return fld.Name
	})

	if err := v.RegisterValidation("no_null_bytes", validateNoNullBytes); err != nil {
		panic(fmt.Sprintf("register no_null_bytes validator: %v", err))
	}

	return v
}

// ValidateStruct validates a struct using go-playground/validator
// Returns validation errors formatted as RFC 7807 Problem Details.
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return formatValidationErrors(err)
	}

	return nil
}

// fieldErrors keeps the validator's field errors behind a readable message so
// GetValidationErrorDetails can still list them.
type fieldErrors struct {
	msg  string
	errs validator.ValidationErrors
}

func (e *fieldErrors) Error() string { return e.msg }

func (e *fieldErrors) Unwrap() error { return e.errs }

// formatValidationErrors converts validator errors to a formatted error message
// that can be used in RFC 7807 Problem Details responses.
func formatValidationErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		messages := make([]string, 0, len(validationErrors))
		for _, fieldError := range validationErrors {
			messages = append(messages, formatFieldError(fieldError))
		}

		return &fieldErrors{
			msg:  "validation failed: " + strings.Join(messages, "; "),
			errs: validationErrors,
		}
	}

	return err
}

// fieldMessages maps validator tags to messages; {field} and {param} are substituted.
var fieldMessages = map[string]string{
	"required":      "{field} is required",
	"min":           "{field} must be at least {param}",
	"max":           "{field} must be at most {param}",
	"gt":            "{field} must be greater than {param}",
	"gte":           "{field} must be greater than or equal to {param}",
	"lte":           "{field} must be less than or equal to {param}",
	"oneof":         "{field} must be one of: {param}",
	"no_null_bytes": "{field} must not contain NULL bytes",
}

func formatFieldError(fieldError validator.FieldError) string {
	msg, ok := fieldMessages[fieldError.Tag()]
	if !ok {
		msg = "{field} is invalid"
	}

	return strings.NewReplacer("{field}", fieldPath(fieldError), "{param}", fieldError.Param()).Replace(msg)
}

// GetValidationErrorDetails extracts field-level error details from validation errors
// Returns a slice of ErrorDetail for RFC 7807 Problem Details.
func GetValidationErrorDetails(err error) []response.ErrorDetail {
	var details []response.ErrorDetail

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		for _, fieldError := range validationErrors {
			details = append(details, response.ErrorDetail{
				Location: fieldPath(fieldError),
				Message:  formatFieldError(fieldError),
				Value:    fieldError.Value(),
			})
		}
	}

	return details
}

// RespondValidationError writes a 400 problem listing each rejected field.
func RespondValidationError(w http.ResponseWriter, err error) {
	response.RespondProblem(w, response.ProblemDetails{
		Title:  "Validation Error",
		Status: http.StatusBadRequest,
		Detail: err.Error(),
		Errors: GetValidationErrorDetails(err),
	})
}

// DecodeQueryParams decodes URL query parameters into a struct.
func DecodeQueryParams(r *http.Request, dst any) error {
	if err := decoder.Decode(dst, r.URL.Query()); err != nil {
		return fmt.Errorf("failed to decode query parameters: %w", err)
	}

	return nil
}

// ValidateAndDecodeQueryParams decodes and validates query parameters in one step.
func ValidateAndDecodeQueryParams(r *http.Request, dst any) error {
	if err := DecodeQueryParams(r, dst); err != nil {
		return err
	}

	return ValidateStruct(dst)
}

// fieldPath is the namespace without the root struct name, e.g. "ideas[2].content".
func fieldPath(fieldError validator.FieldError) string {
	if _, path, ok := strings.Cut(fieldError.Namespace(), "."); ok {
		return path
	}

	return fieldError.Field()
}

// validateNoNullBytes rejects strings and *strings containing a NUL byte. A nil pointer
// passes; omitempty decides whether it is allowed.
func validateNoNullBytes(fl validator.FieldLevel) bool {
	field := fl.Field()
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			return true
		}

		field = field.Elem()
	}

	return field.Kind() != reflect.String || !strings.ContainsRune(field.String(), 0)
}

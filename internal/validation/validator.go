// Package validation wraps go-playground/validator with the service's custom
// rules and a single error type that the HTTP layer maps to 400.
package validation

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

// ValidationError is returned for input that fails a domain rule.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// New returns a ValidationError for field with the given message.
func New(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// Validator returns the shared validator instance.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		if err := validate.RegisterValidation("halfstep", halfStep); err != nil {
			panic(fmt.Sprintf("registering halfstep validator: %v", err))
		}
	})
	return validate
}

// halfStep accepts floats that are whole multiples of 0.5.
func halfStep(fl validator.FieldLevel) bool {
	v := fl.Field().Float()
	doubled := v * 2
	return doubled == math.Trunc(doubled)
}

// Struct validates s. When message is non-empty it replaces the generated
// text, so callers can keep a stable client-facing message.
func Struct(s interface{}, message string) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return fmt.Errorf("validating %T: %w", s, err)
	}

	first := fieldErrs[0]
	if message == "" {
		message = describe(first)
	}
	return &ValidationError{Field: first.Field(), Message: message}
}

func describe(fe validator.FieldError) string {
	field := strings.ToLower(fe.Field()[:1]) + fe.Field()[1:]
	switch fe.Tag() {
	case "required":
		return field + " is required"
	case "min", "gte":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

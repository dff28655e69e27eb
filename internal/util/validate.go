package util

import (
	"fmt"
	"slices"
	"strings"
)

// ValidationError represents parameter validation errors with detailed information.
type ValidationError struct {
	Field   string `json:"field"`   // Field that failed validation
	Value   any    `json:"value"`   // Value that was provided
	Message string `json:"message"` // Human-readable error message
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// RequireString checks that value is a non-blank string.
func RequireString(field string, value any) (string, error) {
	s, ok := value.(string)
	if !ok {
		return "", &ValidationError{Field: field, Value: value, Message: "must be a string"}
	}
	if strings.TrimSpace(s) == "" {
		return "", &ValidationError{Field: field, Value: value, Message: "must not be empty"}
	}
	return s, nil
}

// OneOf checks that value is one of allowed. An empty value is accepted when
// allowEmpty is set.
func OneOf(field, value string, allowEmpty bool, allowed ...string) error {
	if value == "" && allowEmpty {
		return nil
	}
	if !slices.Contains(allowed, value) {
		return &ValidationError{
			Field:   field,
			Value:   value,
			Message: fmt.Sprintf("must be one of %s", strings.Join(allowed, ", ")),
		}
	}
	return nil
}

package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrValidation marks a range, uniqueness, referential or enum violation
	ErrValidation = errors.New("validation failed")
	// ErrInvalidSignature marks a webhook or payment signature mismatch
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrConfiguration marks a required credential or setting that is absent
	ErrConfiguration = errors.New("configuration error")
	// ErrNotFound marks a missing row
	ErrNotFound = errors.New("not found")
	// ErrConflict marks an operation the current state does not allow
	ErrConflict = errors.New("conflict")
	// ErrForbidden marks an authenticated caller without the required rights
	ErrForbidden = errors.New("forbidden")
)

// ValidationError describes a single invariant violation on an entity
type ValidationError struct {
	Entity  string
	Field   string
	Rule    string // e.g. "unique", "foreign_key", "check", "gte", "enum"
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Entity, e.Message)
	}
	return fmt.Sprintf("%s.%s: %s", e.Entity, e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// Validation builds a ValidationError
func Validation(entity, field, rule, message string) *ValidationError {
	return &ValidationError{Entity: entity, Field: field, Rule: rule, Message: message}
}

// ConfigurationError names the configuration value that is missing
type ConfigurationError struct {
	Name string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error: %s is not set", e.Name)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// MissingConfig builds a ConfigurationError
func MissingConfig(name string) *ConfigurationError {
	return &ConfigurationError{Name: name}
}

// NotFound wraps ErrNotFound with the name of the missing resource
func NotFound(resource string) error {
	return fmt.Errorf("%s %w", resource, ErrNotFound)
}

// Conflict wraps ErrConflict with a reason
func Conflict(reason string) error {
	return fmt.Errorf("%w: %s", ErrConflict, reason)
}

// Forbidden wraps ErrForbidden with a reason
func Forbidden(reason string) error {
	return fmt.Errorf("%w: %s", ErrForbidden, reason)
}

// AsValidation returns the ValidationError in err's chain, if any
func AsValidation(err error) (*ValidationError, bool) {
	var v *ValidationError
	if errors.As(err, &v) {
		return v, true
	}
	return nil, false
}

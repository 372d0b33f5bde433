package domain

import (
	"errors"
	"sort"
	"strings"
)

var (
	// ErrNotFound は対象のリスティング/レビューが存在しないことを表す。
	ErrNotFound = errors.New("not found")
	// ErrForbidden は所有者チェックが有効なときに他人のリソースを操作しようとした場合に返す。
	ErrForbidden = errors.New("forbidden")
)

// ValidationError collects field-level input problems detected before persistence.
type ValidationError struct {
	Fields map[string]string
}

// NewValidationError returns an empty ValidationError ready for Add.
func NewValidationError() *ValidationError {
	return &ValidationError{Fields: map[string]string{}}
}

// Add records a problem for field.
func (e *ValidationError) Add(field, message string) {
	if e.Fields == nil {
		e.Fields = map[string]string{}
	}
	e.Fields[field] = message
}

// OrNil returns nil when no problem was recorded so callers can return it directly.
func (e *ValidationError) OrNil() error {
	if e == nil || len(e.Fields) == 0 {
		return nil
	}
	return e
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for field, message := range e.Fields {
		parts = append(parts, field+": "+message)
	}
	sort.Strings(parts)
	return "validation failed: " + strings.Join(parts, "; ")
}

package core

import (
	"errors"
	"fmt"
	"strings"
)

// ParseError indicates the payload bytes are not a valid table or JSON
// document. It aborts the whole batch before any record is processed.
type ParseError struct {
	Format string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s payload: %v", e.Format, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// MissingFieldError indicates a required canonical field had no non-empty
// value under any accepted alias. It fails only the current record.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", e.Field)
}

// ReferenceCreationError indicates that even minimal placeholder creation
// for a dependent entity failed. It fails only the current record.
type ReferenceCreationError struct {
	Kind EntityKind
	Key  string
	Err  error
}

func (e *ReferenceCreationError) Error() string {
	return fmt.Sprintf("create %s reference %q: %v", e.Kind, e.Key, e.Err)
}

func (e *ReferenceCreationError) Unwrap() error { return e.Err }

// ErrUnknownKind is returned when auto-detection cannot classify the
// payload headers and no explicit kind was supplied.
var ErrUnknownKind = errors.New("unrecognized column layout: specify an entity kind")

// friendlyStoreError rewrites common storage failure classes into messages
// a user can act on. Anything unrecognized passes through unchanged.
func friendlyStoreError(err error) string {
	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "duplicate key"):
		return "a record with this identifier already exists"
	case strings.Contains(lower, "violates not-null"):
		return "a required database field was empty"
	case strings.Contains(lower, "violates foreign key"):
		return "a referenced record does not exist"
	case strings.Contains(lower, "value too long"):
		return "a value exceeds the maximum length for its field"
	default:
		return msg
	}
}

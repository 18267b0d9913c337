package virtualrow

import (
	"errors"
	"fmt"
)

// ResolveErrorCode categorizes resolution errors.
type ResolveErrorCode string

const (
	// ErrCodeUnresolvedIdentifier indicates a zero-argument access that is
	// neither a column nor an association of the bound table.
	ErrCodeUnresolvedIdentifier ResolveErrorCode = "UNRESOLVED_IDENTIFIER"
)

// ResolveError reports an identifier the row could not resolve.
//
// It signals a programming or query error and is meant to abort the clause
// being built, not to be recovered from.
type ResolveError struct {
	// Code identifies the error category.
	Code ResolveErrorCode

	// Identifier is the name that failed to resolve.
	Identifier string

	// Table is the relation name of the row the lookup ran against.
	Table string
}

// Error implements the error interface.
func (e *ResolveError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: no column or association %q (table=%s)", e.Code, e.Identifier, e.Table)
	}
	return fmt.Sprintf("%s: no column or association %q", e.Code, e.Identifier)
}

// IsUnresolvedIdentifier returns true if err is, or wraps, an unresolved
// identifier error.
func IsUnresolvedIdentifier(err error) bool {
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Code == ErrCodeUnresolvedIdentifier
	}
	return false
}

// NewUnresolvedError creates a ResolveError for an unknown identifier.
func NewUnresolvedError(identifier, table string) *ResolveError {
	return &ResolveError{
		Code:       ErrCodeUnresolvedIdentifier,
		Identifier: identifier,
		Table:      table,
	}
}

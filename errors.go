package ardb

import (
	"errors"
	"fmt"

	"github.com/syssam/ardb/dialect/sql"
)

// Standard sentinel errors for common operations.
var (
	// ErrUnknownNamespace is returned when a query is requested for a prefix
	// namespace that was never registered.
	ErrUnknownNamespace = errors.New("ardb: unknown prefix namespace")

	// ErrClosed is returned when using a closed DB.
	ErrClosed = errors.New("ardb: database is closed")

	// ErrTxDone is returned when using a committed or rolled back transaction.
	ErrTxDone = errors.New("ardb: transaction has already been committed or rolled back")
)

// DatabaseError is the error returned when the database rejects a statement.
type DatabaseError = sql.DatabaseError

// IsDatabaseError returns true if the error was returned by the database.
func IsDatabaseError(err error) bool {
	return sql.IsDatabaseError(err)
}

// IsConstraintError returns true if the error resulted from a database
// constraint violation.
func IsConstraintError(err error) bool {
	return sql.IsConstraintError(err)
}

// IsUniqueConstraintError returns true if the error resulted from a unique
// constraint violation.
func IsUniqueConstraintError(err error) bool {
	return sql.IsUniqueConstraintError(err)
}

// RollbackError wraps an error that occurred during a transaction rollback.
type RollbackError struct {
	Err error // Original error that triggered rollback
}

// Error returns the error string.
func (e *RollbackError) Error() string {
	return fmt.Sprintf("ardb: rollback failed: %v", e.Err)
}

// Unwrap returns the underlying error.
func (e *RollbackError) Unwrap() error {
	return e.Err
}

// QueryError wraps a query error with additional context.
type QueryError struct {
	Entity string // Entity type being queried
	Op     string // Operation (e.g., "find", "count")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *QueryError) Error() string {
	if e.Op != "" {
		return fmt.Sprintf("ardb: querying %s (%s): %v", e.Entity, e.Op, e.Err)
	}
	return fmt.Sprintf("ardb: querying %s: %v", e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *QueryError) Unwrap() error {
	return e.Err
}

// NewQueryError returns a new QueryError.
func NewQueryError(entity, op string, err error) *QueryError {
	return &QueryError{Entity: entity, Op: op, Err: err}
}

// IsQueryError returns true if the error is a QueryError.
func IsQueryError(err error) bool {
	if err == nil {
		return false
	}
	var e *QueryError
	return errors.As(err, &e)
}

// MutationError wraps a mutation error with additional context.
type MutationError struct {
	Entity string // Entity type being mutated
	Op     string // Operation (e.g., "insert", "update", "delete", "install")
	Err    error  // Underlying error
}

// Error returns the error string.
func (e *MutationError) Error() string {
	return fmt.Sprintf("ardb: %s %s: %v", e.Op, e.Entity, e.Err)
}

// Unwrap returns the underlying error.
func (e *MutationError) Unwrap() error {
	return e.Err
}

// NewMutationError returns a new MutationError.
func NewMutationError(entity, op string, err error) *MutationError {
	return &MutationError{Entity: entity, Op: op, Err: err}
}

// IsMutationError returns true if the error is a MutationError.
func IsMutationError(err error) bool {
	if err == nil {
		return false
	}
	var e *MutationError
	return errors.As(err, &e)
}

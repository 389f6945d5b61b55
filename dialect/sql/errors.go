package sql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// DatabaseError is returned when the database rejects a statement. It carries
// the vendor error code and message; the underlying driver error stays
// reachable through errors.As.
type DatabaseError struct {
	Op      string // "exec", "query", "begin" or "connect"
	Code    string // vendor error code, empty when the driver reports none
	Message string
	Query   string
	Err     error
}

// Error returns the error string.
func (e *DatabaseError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("dialect/sql: %s: [%s] %s", e.Op, e.Code, e.Message)
	}
	return fmt.Sprintf("dialect/sql: %s: %s", e.Op, e.Message)
}

// Unwrap returns the underlying driver error.
func (e *DatabaseError) Unwrap() error {
	return e.Err
}

// IsDatabaseError returns true if the error is a DatabaseError.
func IsDatabaseError(err error) bool {
	if err == nil {
		return false
	}
	var e *DatabaseError
	return errors.As(err, &e)
}

// newDatabaseError extracts the vendor code of err.
func newDatabaseError(op, query string, err error) error {
	if err == nil {
		return nil
	}
	var de *DatabaseError
	if errors.As(err, &de) {
		return err
	}
	e := &DatabaseError{Op: op, Query: query, Message: err.Error(), Err: err}
	if code, msg, ok := vendorCode(err); ok {
		e.Code = code
		if msg != "" {
			e.Message = msg
		}
	}
	return e
}

// vendorCode extracts the error code of the vendor drivers.
func vendorCode(err error) (code, msg string, ok bool) {
	var (
		myErr *mysql.MySQLError
		pqErr *pq.Error
		slErr *sqlite.Error
	)
	switch {
	case errors.As(err, &myErr):
		return strconv.Itoa(int(myErr.Number)), myErr.Message, true
	case errors.As(err, &pqErr):
		return string(pqErr.Code), pqErr.Message, true
	case errors.As(err, &slErr):
		return strconv.Itoa(slErr.Code()), "", true
	}
	return "", "", false
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool {
	return IsUniqueConstraintError(err) ||
		IsForeignKeyConstraintError(err) ||
		IsCheckConstraintError(err)
}

// errorCoder is an interface for database errors that provide string error codes.
type errorCoder interface {
	Code() string
}

// errorNumberer is an interface for database errors that provide numeric error codes.
type errorNumberer interface {
	Number() uint16
}

// sqlStateError is an interface for errors that provide SQLSTATE codes.
type sqlStateError interface {
	SQLState() string
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlDuplicateEntry         = "1062"
	mysqlForeignKeyParent       = "1451" // Cannot delete or update a parent row
	mysqlForeignKeyChild        = "1452" // Cannot add or update a child row
	mysqlCheckConstraintViolate = "3819"
)

// SQLite extended result codes for constraint violations.
const (
	sqliteConstraintCheck      = "275"
	sqliteConstraintForeignKey = "787"
	sqliteConstraintPrimaryKey = "1555"
	sqliteConstraintUnique     = "2067"
)

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool {
	return hasCode(err, pgUniqueViolation, mysqlDuplicateEntry, sqliteConstraintUnique, sqliteConstraintPrimaryKey) ||
		containsAny(err,
			"Error 1062",                 // MySQL (string fallback)
			"violates unique constraint", // Postgres (string fallback)
			"UNIQUE constraint failed",   // SQLite
		)
}

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool {
	return hasCode(err, pgForeignKeyViolation, mysqlForeignKeyParent, mysqlForeignKeyChild, sqliteConstraintForeignKey) ||
		containsAny(err,
			"Error 1451",                      // MySQL (Cannot delete or update a parent row)
			"Error 1452",                      // MySQL (Cannot add or update a child row)
			"violates foreign key constraint", // Postgres
			"FOREIGN KEY constraint failed",   // SQLite
		)
}

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
// e.g. a value does not satisfy a check condition.
func IsCheckConstraintError(err error) bool {
	return hasCode(err, pgCheckViolation, mysqlCheckConstraintViolate, sqliteConstraintCheck) ||
		containsAny(err,
			"Error 3819",                // MySQL
			"violates check constraint", // Postgres
			"CHECK constraint failed",   // SQLite
		)
}

// hasCode reports if the error chain carries one of the given codes, either
// through a DatabaseError or through one of the common driver interfaces.
func hasCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	var found []string
	var de *DatabaseError
	if errors.As(err, &de) && de.Code != "" {
		found = append(found, de.Code)
	}
	if code, _, ok := vendorCode(err); ok {
		found = append(found, code)
	}
	if e, ok := asError[sqlStateError](err); ok {
		found = append(found, e.SQLState())
	}
	if e, ok := asError[errorCoder](err); ok {
		found = append(found, e.Code())
	}
	if e, ok := asError[errorNumberer](err); ok {
		found = append(found, strconv.Itoa(int(e.Number())))
	}
	for _, f := range found {
		for _, c := range codes {
			if f == c {
				return true
			}
		}
	}
	return false
}

// asError attempts to extract an error implementing interface T from the error chain.
func asError[T any](err error) (T, bool) {
	var target T
	for err != nil {
		if e, ok := err.(T); ok {
			return e, true
		}
		err = errors.Unwrap(err)
	}
	return target, false
}

// containsAny returns true if the error text contains any of the substrings.
func containsAny(err error, substrings ...string) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

package schema

import (
	"errors"
	"fmt"
	"strings"

	entity "github.com/syssam/ardb/schema"
	"github.com/syssam/ardb/schema/field"
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Table   string
	Column  string
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("%s.%s: %s", e.Table, e.Column, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Table, e.Message)
}

// Unwrap returns the underlying error, if any.
func (e *ValidationError) Unwrap() error { return e.Err }

// ValidationResult holds the results of schema validation.
type ValidationResult struct {
	Errors   []*ValidationError
	Warnings []*ValidationError
}

// HasErrors returns true if there are any validation errors.
func (r *ValidationResult) HasErrors() bool {
	return len(r.Errors) > 0
}

// HasWarnings returns true if there are any validation warnings.
func (r *ValidationResult) HasWarnings() bool {
	return len(r.Warnings) > 0
}

// Err joins the validation errors into a single error, or returns nil.
func (r *ValidationResult) Err() error {
	if !r.HasErrors() {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// String returns a human-readable summary of the validation result.
func (r *ValidationResult) String() string {
	var sb strings.Builder
	if len(r.Errors) > 0 {
		sb.WriteString("Errors:\n")
		for _, e := range r.Errors {
			sb.WriteString("  - ")
			sb.WriteString(e.Error())
			sb.WriteString("\n")
		}
	}
	if len(r.Warnings) > 0 {
		sb.WriteString("Warnings:\n")
		for _, w := range r.Warnings {
			sb.WriteString("  - ")
			sb.WriteString(w.Error())
			sb.WriteString("\n")
		}
	}
	if !r.HasErrors() && !r.HasWarnings() {
		sb.WriteString("No issues found")
	}
	return sb.String()
}

// Validate checks that every column of s can be installed on vendor.
// Columns that would fail CREATE TABLE are errors; columns that install but
// are likely mistakes are warnings.
//
// Example:
//
//	result := schema.Validate(dialect.MySQL, users)
//	if result.HasErrors() {
//	    log.Fatal("invalid schema:", result)
//	}
func Validate(vendor string, s *entity.Schema) *ValidationResult {
	result := &ValidationResult{}
	if _, err := LookupVendor(vendor); err != nil {
		result.Errors = append(result.Errors, &ValidationError{Table: s.Table, Message: err.Error(), Err: err})
		return result
	}
	for _, c := range s.Columns() {
		validateColumn(vendor, s.Table, c, result)
	}
	return result
}

func validateColumn(vendor, table string, c *field.Descriptor, result *ValidationResult) {
	if _, err := MapType(vendor, c); err != nil {
		result.Errors = append(result.Errors, &ValidationError{
			Table:   table,
			Column:  c.Name,
			Message: err.Error(),
			Err:     err,
		})
		return
	}
	if c.Auto && c.Kind != field.KindInt {
		result.Errors = append(result.Errors, &ValidationError{
			Table:   table,
			Column:  c.Name,
			Message: fmt.Sprintf("autoincrement requires an int column, got %s", c.Kind),
		})
	}
	if c.Auto && !c.Primary {
		result.Warnings = append(result.Warnings, &ValidationError{
			Table:   table,
			Column:  c.Name,
			Message: "autoincrement column is not the primary key",
		})
	}
	if c.Primary && c.Nullable != nil && *c.Nullable {
		result.Errors = append(result.Errors, &ValidationError{
			Table:   table,
			Column:  c.Name,
			Message: "primary key column cannot be nullable",
		})
	}
	if c.HasDefault && c.Kind == field.KindList {
		switch c.Default.(type) {
		case string, []string, nil:
		default:
			result.Warnings = append(result.Warnings, &ValidationError{
				Table:   table,
				Column:  c.Name,
				Message: fmt.Sprintf("list default of type %T is stored as its string form", c.Default),
			})
		}
	}
	if c.HasDefault && c.Default == nil && c.Nullable != nil && !*c.Nullable {
		result.Errors = append(result.Errors, &ValidationError{
			Table:   table,
			Column:  c.Name,
			Message: "NULL default on a NOT NULL column",
		})
	}
}

package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/syssam/ardb/dialect"
	"github.com/syssam/ardb/dialect/sql"
	entity "github.com/syssam/ardb/schema"
	"github.com/syssam/ardb/schema/field"
)

// Types is the type table of a vendor.
type Types struct {
	// Base maps every supported kind to its native column type.
	Base map[field.Kind]string
	// Auto is the autoincrement marker appended after the primary key marker.
	Auto string
}

// UnknownTypeError is returned when a kind has no native type for a vendor.
type UnknownTypeError struct {
	Vendor string
	Kind   field.Kind
}

// Error implements the error interface.
func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("schema: unknown type %q for vendor %q", e.Kind, e.Vendor)
}

// UnknownVendorError is returned when no type table is registered for a vendor.
type UnknownVendorError struct {
	Vendor string
}

// Error implements the error interface.
func (e *UnknownVendorError) Error() string {
	return fmt.Sprintf("schema: unknown vendor %q", e.Vendor)
}

var (
	mu      sync.RWMutex
	vendors = map[string]Types{
		dialect.MySQL: {
			Base: map[field.Kind]string{
				field.KindInt:    "INT UNSIGNED",
				field.KindString: "VARCHAR(120)",
				field.KindText:   "TEXT",
				field.KindList:   "VARCHAR(255)",
				field.KindBool:   "TINYINT(1)",
			},
			Auto: "AUTO_INCREMENT",
		},
		dialect.SQLite: {
			Base: map[field.Kind]string{
				field.KindInt:    "INTEGER",
				field.KindString: "VARCHAR(120)",
				field.KindText:   "TEXT",
				field.KindList:   "VARCHAR(255)",
				field.KindBool:   "TINYINT(1)",
			},
			Auto: "AUTOINCREMENT",
		},
		dialect.Postgres: {
			Base: map[field.Kind]string{
				field.KindInt:    "INTEGER",
				field.KindString: "VARCHAR(120)",
				field.KindText:   "TEXT",
				field.KindList:   "VARCHAR(255)",
				field.KindBool:   "SMALLINT",
			},
			Auto: "GENERATED BY DEFAULT AS IDENTITY",
		},
	}
)

// RegisterVendor registers or replaces the type table of a vendor.
func RegisterVendor(name string, t Types) {
	mu.Lock()
	defer mu.Unlock()
	vendors[name] = t
}

// Vendors returns the registered vendor names, sorted.
func Vendors() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(vendors))
	for name := range vendors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// LookupVendor returns the type table of a vendor.
func LookupVendor(name string) (Types, error) {
	mu.RLock()
	defer mu.RUnlock()
	t, ok := vendors[name]
	if !ok {
		return Types{}, &UnknownVendorError{Vendor: name}
	}
	return t, nil
}

// MapType returns the column definition of d for the given vendor:
// base type, primary key marker, autoincrement marker, nullability and default,
// in that order.
//
//	MapType("mysql", field.Int("id").Primary().Auto().Descriptor())
//	// INT UNSIGNED PRIMARY KEY AUTO_INCREMENT
func MapType(vendor string, d *field.Descriptor) (string, error) {
	t, err := LookupVendor(vendor)
	if err != nil {
		return "", err
	}
	base, ok := d.SchemaType[vendor]
	if !ok {
		if base, ok = t.Base[d.Kind]; !ok {
			return "", &UnknownTypeError{Vendor: vendor, Kind: d.Kind}
		}
	}
	var b strings.Builder
	b.WriteString(base)
	if d.Primary {
		b.WriteString(" PRIMARY KEY")
	}
	if d.Auto && t.Auto != "" {
		b.WriteString(" " + t.Auto)
	}
	if d.Nullable != nil {
		if *d.Nullable {
			b.WriteString(" NULL")
		} else {
			b.WriteString(" NOT NULL")
		}
	}
	if d.HasDefault {
		b.WriteString(" DEFAULT ")
		b.WriteString(DefaultLiteral(d.Default))
	}
	return b.String(), nil
}

// DefaultLiteral renders a default value as a quoted SQL literal.
func DefaultLiteral(v any) string {
	var s string
	switch v := v.(type) {
	case nil:
		return "NULL"
	case bool:
		s = "0"
		if v {
			s = "1"
		}
	case []string:
		s = strings.Join(v, ",")
	default:
		s = fmt.Sprint(v)
	}
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// ColumnDefs returns the CREATE TABLE definitions of every column of s.
func ColumnDefs(vendor string, s *entity.Schema) ([]sql.ColumnDef, error) {
	defs := make([]sql.ColumnDef, 0, len(s.Columns()))
	for _, c := range s.Columns() {
		ddl, err := MapType(vendor, c)
		if err != nil {
			return nil, fmt.Errorf("schema: column %q: %w", c.Name, err)
		}
		defs = append(defs, sql.ColumnDef{Name: c.Name, DDL: ddl})
	}
	return defs, nil
}

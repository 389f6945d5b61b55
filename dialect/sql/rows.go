package sql

import (
	"fmt"
	"strconv"
)

// Row is a single result row. Values are addressable by column name or by
// position, so aggregate results can be read positionally.
type Row struct {
	columns []string
	values  []any
}

// NewRow returns a row holding the given columns and values.
func NewRow(columns []string, values []any) Row {
	return Row{columns: columns, values: values}
}

// Columns returns the column names of the row.
func (r Row) Columns() []string { return r.columns }

// Values returns the values of the row in column order.
func (r Row) Values() []any { return r.values }

// Len returns the number of columns of the row.
func (r Row) Len() int { return len(r.values) }

// At returns the value at position i, or nil when out of range.
func (r Row) At(i int) any {
	if i < 0 || i >= len(r.values) {
		return nil
	}
	return r.values[i]
}

// Get returns the value of the first column with the given name.
func (r Row) Get(column string) (any, bool) {
	for i, c := range r.columns {
		if c == column {
			return r.values[i], true
		}
	}
	return nil, false
}

// Map returns the row as a column->value mapping. Repeated column names keep
// the first value.
func (r Row) Map() map[string]any {
	m := make(map[string]any, len(r.columns))
	for i, c := range r.columns {
		if _, ok := m[c]; !ok {
			m[c] = r.values[i]
		}
	}
	return m
}

// ScanRows reads every row of rows and closes it. Byte slices are copied into
// strings, since drivers reuse their buffers between rows.
func ScanRows(rows ColumnScanner) (_ []Row, rerr error) {
	defer func() {
		if err := rows.Close(); err != nil && rerr == nil {
			rerr = fmt.Errorf("dialect/sql: closing rows: %w", err)
		}
	}()
	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("dialect/sql: reading columns: %w", err)
	}
	var out []Row
	for rows.Next() {
		values := make([]any, len(columns))
		dest := make([]any, len(columns))
		for i := range values {
			dest[i] = &values[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("dialect/sql: scanning row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		out = append(out, Row{columns: columns, values: values})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("dialect/sql: iterating rows: %w", err)
	}
	return out, nil
}

// Int64 converts a scanned value into an int64. It accepts the integer,
// float and string forms drivers return for aggregates.
func Int64(v any) (int64, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return v, nil
	case int:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case uint64:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case float64:
		return int64(v), nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	case []byte:
		return strconv.ParseInt(string(v), 10, 64)
	default:
		return 0, fmt.Errorf("dialect/sql: cannot convert %T to int64", v)
	}
}

package model

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/syssam/ardb/dialect/sql"
	"github.com/syssam/ardb/schema/field"
)

// ListSeparator joins the elements of list columns in storage.
const ListSeparator = ","

// Coerce converts a value read from the database or set by the caller into
// the canonical Go type of kind: int64, string, bool or []string. Nil stays
// nil. Values that cannot be converted are returned as is.
func Coerce(kind field.Kind, v any) any {
	if v == nil {
		return nil
	}
	if b, ok := v.([]byte); ok {
		v = string(b)
	}
	switch kind {
	case field.KindInt:
		switch v := v.(type) {
		case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
			return toInt64(v)
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
				return n
			}
		}
		return v
	case field.KindString, field.KindText:
		if s, ok := v.(string); ok {
			return s
		}
		return fmt.Sprint(v)
	case field.KindBool:
		switch v := v.(type) {
		case bool:
			return v
		case string:
			if b, err := strconv.ParseBool(v); err == nil {
				return b
			}
			n, err := strconv.ParseFloat(v, 64)
			return err == nil && n != 0
		case float32:
			return v != 0
		case float64:
			return v != 0
		default:
			n, err := sql.Int64(v)
			return err == nil && n != 0
		}
	case field.KindList:
		switch v := v.(type) {
		case []string:
			return v
		case string:
			return Deserialize(kind, v)
		case []any:
			out := make([]string, len(v))
			for i := range v {
				out[i] = fmt.Sprint(v[i])
			}
			return out
		}
		return v
	}
	return v
}

func toInt64(v any) int64 {
	switch v := v.(type) {
	case int:
		return int64(v)
	case int8:
		return int64(v)
	case int16:
		return int64(v)
	case int32:
		return int64(v)
	case int64:
		return v
	case uint:
		return int64(v)
	case uint8:
		return int64(v)
	case uint16:
		return int64(v)
	case uint32:
		return int64(v)
	case uint64:
		return int64(v)
	}
	return 0
}

// Serialize converts a canonical value into its storage form: lists are
// joined with ListSeparator and booleans become 1 or 0.
func Serialize(kind field.Kind, v any) any {
	switch kind {
	case field.KindList:
		switch v := v.(type) {
		case []string:
			return strings.Join(v, ListSeparator)
		case nil:
			return nil
		}
	case field.KindBool:
		switch v := v.(type) {
		case bool:
			if v {
				return int64(1)
			}
			return int64(0)
		case nil:
			return nil
		}
	}
	return v
}

// Deserialize converts a stored value back into its canonical form. An empty
// list column reads as an empty list and any nonzero bool column reads as true.
func Deserialize(kind field.Kind, v any) any {
	switch kind {
	case field.KindList:
		var s string
		switch v := v.(type) {
		case string:
			s = v
		case []byte:
			s = string(v)
		default:
			return Coerce(kind, v)
		}
		if s == "" {
			return []string{}
		}
		return strings.Split(s, ListSeparator)
	default:
		return Coerce(kind, v)
	}
}

// equal reports if two canonical values are the same. Empty and nil lists
// are equal.
func equal(a, b any) bool {
	return cmp.Equal(a, b, cmpopts.EquateEmpty())
}

package sql

import (
	"reflect"
	"sort"
	"strings"
)

// Combinators of a predicate node.
const (
	OpAnd = "AND"
	OpOr  = "OR"
)

// Pair is a single entry of a predicate node or a value list. The key is
// either a combinator (AND / OR) whose value is a nested P, or a column spec
// of the form "<column>[ <operator>]" with an optional "#uniquifier" suffix.
type Pair struct {
	Key   string
	Value any
}

// P is an ordered predicate node. Order is significant: clauses and their
// parameters are emitted in slice order.
//
//	sql.P{
//	    {"status", "active"},
//	    {"age >=", 18},
//	    {"OR", sql.P{{"role", "admin"}, {"role#2", "owner"}}},
//	}
type P []Pair

// Raw is an SQL fragment that is inlined instead of bound as a parameter.
type Raw string

// And returns a pair grouping the given pairs under AND.
func And(pairs ...Pair) Pair {
	return Pair{Key: OpAnd, Value: P(pairs)}
}

// Or returns a pair grouping the given pairs under OR.
func Or(pairs ...Pair) Pair {
	return Pair{Key: OpOr, Value: P(pairs)}
}

// FromMap converts an unordered map into a node. Keys are sorted to keep the
// compiled output deterministic. Nested maps under AND / OR are converted too.
func FromMap(m map[string]any) P {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	p := make(P, 0, len(keys))
	for _, k := range keys {
		v := m[k]
		if nested, ok := v.(map[string]any); ok && isCombinator(stripKey(k)) {
			v = FromMap(nested)
		}
		p = append(p, Pair{Key: k, Value: v})
	}
	return p
}

// Empty reports if the node holds no entries.
func (p P) Empty() bool { return len(p) == 0 }

// Merge returns a node holding the entries of p followed by the entries of
// other. When both nodes hold the same combinator key with nested nodes, the
// nested nodes are merged recursively in place. No entry is ever replaced:
// a repeated column spec becomes a sibling under the same combinator.
func (p P) Merge(other P) P {
	out := make(P, len(p), len(p)+len(other))
	copy(out, p)
	for _, o := range other {
		if isCombinator(o.Key) {
			if i := out.index(o.Key); i >= 0 {
				cur, ok1 := asNode(out[i].Value)
				add, ok2 := asNode(o.Value)
				if ok1 && ok2 {
					out[i] = Pair{Key: o.Key, Value: cur.Merge(add)}
					continue
				}
			}
		}
		out = append(out, o)
	}
	return out
}

// Set returns a node where the value of key is replaced, or appended if the
// key is absent. It is used for write values, where a column is written once.
func (p P) Set(key string, v any) P {
	if i := p.index(key); i >= 0 {
		out := make(P, len(p))
		copy(out, p)
		out[i].Value = v
		return out
	}
	return append(p[:len(p):len(p)], Pair{Key: key, Value: v})
}

// Keys returns the keys of the node in order.
func (p P) Keys() []string {
	keys := make([]string, len(p))
	for i := range p {
		keys[i] = p[i].Key
	}
	return keys
}

func (p P) index(key string) int {
	for i := range p {
		if p[i].Key == key {
			return i
		}
	}
	return -1
}

// CompileWhere compiles a predicate node into SQL text and its ordered
// parameters. Clauses at one level are joined by the given combinator;
// nested AND / OR nodes are wrapped in parentheses. An empty node compiles
// to an empty string and no parameters.
func CompileWhere(p P, combinator string) (string, []any) {
	var (
		clauses = make([]string, 0, len(p))
		args    []any
	)
	for _, pair := range p {
		key := stripKey(pair.Key)
		if isCombinator(key) {
			if nested, ok := asNode(pair.Value); ok {
				sub, subArgs := CompileWhere(nested, key)
				clauses = append(clauses, "("+sub+")")
				args = append(args, subArgs...)
				continue
			}
		}
		column, op := splitSpec(key)
		value := pair.Value
		if vs, ok := sequence(value); ok {
			vs = dedupe(vs)
			if len(vs) == 1 {
				value = vs[0]
			} else {
				if op == "" {
					op = "IN"
				}
				clauses = append(clauses, column+" "+op+" ("+placeholders(len(vs))+")")
				args = append(args, vs...)
				continue
			}
		}
		if op == "" {
			op = "="
		}
		if raw, ok := value.(Raw); ok {
			clauses = append(clauses, column+" "+op+" "+string(raw))
			continue
		}
		clauses = append(clauses, column+" "+op+" ?")
		args = append(args, value)
	}
	return strings.Join(clauses, " "+combinator+" "), args
}

// stripKey removes the "#uniquifier" suffix of a key.
func stripKey(key string) string {
	if i := strings.IndexByte(key, '#'); i >= 0 {
		return key[:i]
	}
	return key
}

// splitSpec splits a column spec on its first space.
func splitSpec(spec string) (column, op string) {
	column, op, _ = strings.Cut(spec, " ")
	return column, strings.TrimSpace(op)
}

func isCombinator(key string) bool {
	return key == OpAnd || key == OpOr
}

func asNode(v any) (P, bool) {
	switch v := v.(type) {
	case P:
		return v, true
	case []Pair:
		return P(v), true
	case map[string]any:
		return FromMap(v), true
	}
	return nil, false
}

// sequence reports if v is a list of values. Byte slices are scalars.
func sequence(v any) ([]any, bool) {
	switch vs := v.(type) {
	case nil, []byte, P, []Pair:
		return nil, false
	case []any:
		return vs, true
	case []string:
		out := make([]any, len(vs))
		for i := range vs {
			out[i] = vs[i]
		}
		return out, true
	case []int:
		out := make([]any, len(vs))
		for i := range vs {
			out[i] = vs[i]
		}
		return out, true
	case []int64:
		out := make([]any, len(vs))
		for i := range vs {
			out[i] = vs[i]
		}
		return out, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// dedupe removes repeated values keeping the first occurrence.
func dedupe(vs []any) []any {
	out := make([]any, 0, len(vs))
	for _, v := range vs {
		seen := false
		for _, o := range out {
			if equalValues(o, v) {
				seen = true
				break
			}
		}
		if !seen {
			out = append(out, v)
		}
	}
	return out
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb {
		return false
	}
	if ta.Comparable() {
		return a == b
	}
	return reflect.DeepEqual(a, b)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.Repeat("?, ", n-1) + "?"
}

// Field is a typed column reference producing predicate pairs.
//
//	var Age = sql.Field[int]("age")
//	q.Where(sql.P{Age.GTE(18), Age.LT(65)})
type Field[T any] string

// Name returns the column name.
func (f Field[T]) Name() string { return string(f) }

// EQ returns a pair matching rows where the column equals v.
func (f Field[T]) EQ(v T) Pair { return Pair{Key: string(f), Value: v} }

// NEQ returns a pair matching rows where the column differs from v.
func (f Field[T]) NEQ(v T) Pair { return Pair{Key: string(f) + " <>", Value: v} }

// GT returns a pair matching rows where the column is greater than v.
func (f Field[T]) GT(v T) Pair { return Pair{Key: string(f) + " >", Value: v} }

// GTE returns a pair matching rows where the column is greater than or equal to v.
func (f Field[T]) GTE(v T) Pair { return Pair{Key: string(f) + " >=", Value: v} }

// LT returns a pair matching rows where the column is less than v.
func (f Field[T]) LT(v T) Pair { return Pair{Key: string(f) + " <", Value: v} }

// LTE returns a pair matching rows where the column is less than or equal to v.
func (f Field[T]) LTE(v T) Pair { return Pair{Key: string(f) + " <=", Value: v} }

// In returns a pair matching rows where the column is one of vs. A list that
// collapses to a single value compiles to an equality.
func (f Field[T]) In(vs ...T) Pair { return Pair{Key: string(f), Value: vs} }

// NotIn returns a pair matching rows where the column is none of vs.
func (f Field[T]) NotIn(vs ...T) Pair {
	if list, _ := sequence(vs); len(dedupe(list)) == 1 {
		return f.NEQ(vs[0])
	}
	return Pair{Key: string(f) + " NOT IN", Value: vs}
}

// Like returns a pair matching rows where the column matches the pattern.
func (f Field[T]) Like(pattern string) Pair {
	return Pair{Key: string(f) + " LIKE", Value: pattern}
}

// IsNull returns a pair matching rows where the column is NULL.
func (f Field[T]) IsNull() Pair { return Pair{Key: string(f) + " IS", Value: Raw("NULL")} }

// NotNull returns a pair matching rows where the column is not NULL.
func (f Field[T]) NotNull() Pair { return Pair{Key: string(f) + " IS NOT", Value: Raw("NULL")} }

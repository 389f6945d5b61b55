package model

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/go-openapi/inflect"

	"github.com/syssam/ardb"
	"github.com/syssam/ardb/dialect/sql"
	"github.com/syssam/ardb/schema"
	"github.com/syssam/ardb/schema/field"
)

// ErrUnbound is returned when saving or deleting a record that was not
// created by New, Bind or a finder.
var ErrUnbound = errors.New("model: record is not bound to a database")

// Querier hands out queries for a prefix namespace. It is implemented by
// *ardb.DB and *ardb.Tx.
type Querier interface {
	Query(namespace string) *sql.Query
	Dialect() string
}

var (
	_ Querier = (*ardb.DB)(nil)
	_ Querier = (*ardb.Tx)(nil)
)

// Entity is implemented by types embedding Record and declaring a schema.
//
//	type User struct{ model.Record }
//
//	var userSchema = schema.MustNew("users",
//	    schema.Mixin(mixin.ID{}),
//	    schema.Fields(field.String("name"), field.Bool("active")),
//	)
//
//	func (*User) Schema() *schema.Schema { return userSchema }
type Entity interface {
	Schema() *schema.Schema
	Validate() bool
	record() *Record
}

// ptr constrains a pointer to an entity struct.
type ptr[E any] interface {
	*E
	Entity
}

// Record holds the column values of an entity. Values loaded from or written
// to the database are kept apart from pending changes, so Save only writes
// the columns that changed.
type Record struct {
	q        Querier
	owner    Entity
	original map[string]any
	modified map[string]any
}

func (r *Record) record() *Record { return r }

// Validate reports if the record may be saved. Entities override it to add
// their own checks.
func (*Record) Validate() bool { return true }

// New returns an empty entity bound to q.
func New[E any, P ptr[E]](q Querier) P {
	e := P(new(E))
	Bind(q, e)
	return e
}

// Bind binds e to q. It is needed for entities created without New.
func Bind(q Querier, e Entity) {
	r := e.record()
	r.q, r.owner = q, e
	if r.original == nil {
		r.original = make(map[string]any)
	}
	if r.modified == nil {
		r.modified = make(map[string]any)
	}
}

func (r *Record) kind(column string) (field.Kind, bool) {
	if r.owner == nil {
		return "", false
	}
	d, ok := r.owner.Schema().Column(column)
	if !ok {
		return "", false
	}
	return d.Kind, true
}

// Get returns the current value of a column, pending changes first.
func (r *Record) Get(column string) (any, bool) {
	if v, ok := r.modified[column]; ok {
		return v, true
	}
	v, ok := r.original[column]
	return v, ok
}

// Set sets the value of a column. Setting the stored value back removes
// the pending change.
func (r *Record) Set(column string, v any) {
	if kind, ok := r.kind(column); ok {
		v = Coerce(kind, v)
	}
	if r.modified == nil {
		r.modified = make(map[string]any)
	}
	if orig, ok := r.original[column]; ok && equal(orig, v) {
		delete(r.modified, column)
		return
	}
	r.modified[column] = v
}

// Unset sets a column to NULL.
func (r *Record) Unset(column string) {
	r.Set(column, nil)
}

// IsDirty reports if any of the given columns has a pending change. With no
// columns, it reports if the record has any pending change.
func (r *Record) IsDirty(columns ...string) bool {
	if len(columns) == 0 {
		return len(r.modified) > 0
	}
	for _, c := range columns {
		if _, ok := r.modified[c]; ok {
			return true
		}
	}
	return false
}

// Dirty returns the columns with pending changes, in schema order.
func (r *Record) Dirty() []string {
	cols := make([]string, 0, len(r.modified))
	for c := range r.modified {
		cols = append(cols, c)
	}
	order := func(c string) int { return len(r.modified) }
	if r.owner != nil {
		s := r.owner.Schema()
		pos := make(map[string]int, len(s.Columns()))
		for i, d := range s.Columns() {
			pos[d.Name] = i
		}
		order = func(c string) int {
			if i, ok := pos[c]; ok {
				return i
			}
			return len(pos)
		}
	}
	sort.Slice(cols, func(i, j int) bool {
		oi, oj := order(cols[i]), order(cols[j])
		if oi != oj {
			return oi < oj
		}
		return cols[i] < cols[j]
	})
	return cols
}

// Reset discards every pending change.
func (r *Record) Reset() {
	clear(r.modified)
}

// Values returns the current value of every known column.
func (r *Record) Values() map[string]any {
	out := make(map[string]any, len(r.original)+len(r.modified))
	for k, v := range r.original {
		out[k] = v
	}
	for k, v := range r.modified {
		out[k] = v
	}
	return out
}

// String returns a string column, or "" when unset.
func (r *Record) String(column string) string {
	v, _ := r.Get(column)
	switch v := v.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		return fmt.Sprint(v)
	}
}

// Int returns an int column, or 0 when unset.
func (r *Record) Int(column string) int64 {
	v, _ := r.Get(column)
	n, _ := sql.Int64(Coerce(field.KindInt, v))
	return n
}

// Bool returns a bool column, or false when unset.
func (r *Record) Bool(column string) bool {
	v, _ := r.Get(column)
	b, _ := Coerce(field.KindBool, v).(bool)
	return b
}

// List returns a list column, or nil when unset.
func (r *Record) List(column string) []string {
	v, _ := r.Get(column)
	l, _ := Coerce(field.KindList, v).([]string)
	return l
}

// primary returns the stored primary key, falling back to a pending one.
func (r *Record) primary(key string) (any, bool) {
	if v, ok := r.original[key]; ok && v != nil {
		return v, true
	}
	if v, ok := r.modified[key]; ok && v != nil {
		return v, true
	}
	return nil, false
}

// Save writes the pending changes. A record without a stored primary key is
// inserted and adopts the generated key; otherwise it is updated by its
// stored key. Save reports false without touching the database when there
// is nothing to write or Validate fails.
func (r *Record) Save(ctx context.Context) (bool, error) {
	if r.q == nil || r.owner == nil {
		return false, ErrUnbound
	}
	if len(r.modified) == 0 || !r.owner.Validate() {
		return false, nil
	}
	s := r.owner.Schema()
	values := make(sql.P, 0, len(r.modified))
	for _, c := range s.Columns() {
		if v, ok := r.modified[c.Name]; ok {
			values = append(values, sql.Pair{Key: c.Name, Value: Serialize(c.Kind, v)})
		}
	}
	if len(values) == 0 {
		return false, nil
	}
	var (
		name = entityName(r.owner)
		pk   = s.Primary()
		q    = r.q.Query(s.Proxy)
	)
	if id, ok := r.original[pk.Name]; ok && id != nil {
		_, err := q.Update(TableName(r.owner)).
			Values(values).
			Where(sql.P{{Key: pk.Name, Value: id}}).
			Run(ctx)
		if err != nil {
			return false, ardb.NewMutationError(name, "update", err)
		}
	} else {
		generated := r.modified[pk.Name] == nil
		q.Insert(TableName(r.owner)).Values(values)
		if generated {
			q.Returning(pk.Name)
		}
		res, err := q.Run(ctx)
		if err != nil {
			return false, ardb.NewMutationError(name, "insert", err)
		}
		if generated {
			var id any = res.LastInsertID
			if res.Returned != nil {
				id = res.Returned
			}
			r.modified[pk.Name] = Coerce(pk.Kind, id)
		}
	}
	if r.original == nil {
		r.original = make(map[string]any, len(r.modified))
	}
	for k, v := range r.modified {
		r.original[k] = v
	}
	clear(r.modified)
	return true, nil
}

// Delete deletes the row of the record by its primary key. It reports false
// when the record has no primary key.
func (r *Record) Delete(ctx context.Context) (bool, error) {
	if r.q == nil || r.owner == nil {
		return false, ErrUnbound
	}
	s := r.owner.Schema()
	id, ok := r.primary(s.PrimaryKey())
	if !ok {
		return false, nil
	}
	_, err := r.q.Query(s.Proxy).
		Delete(TableName(r.owner)).
		Where(sql.P{{Key: s.PrimaryKey(), Value: id}}).
		Run(ctx)
	if err != nil {
		return false, ardb.NewMutationError(entityName(r.owner), "delete", err)
	}
	return true, nil
}

// load replaces the stored values with a database row.
func (r *Record) load(s *schema.Schema, row sql.Row) {
	r.original = make(map[string]any, row.Len())
	r.modified = make(map[string]any)
	for i, c := range row.Columns() {
		v := row.At(i)
		if d, ok := s.Column(c); ok {
			v = Deserialize(d.Kind, v)
		}
		if _, seen := r.original[c]; !seen {
			r.original[c] = v
		}
	}
}

// TableName returns the table of an entity: the schema table, or the
// pluralized snake case type name when the schema leaves it empty.
func TableName(e Entity) string {
	if t := e.Schema().Table; t != "" {
		return t
	}
	return inflect.Underscore(inflect.Pluralize(entityName(e)))
}

func entityName(e Entity) string {
	t := reflect.TypeOf(e)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

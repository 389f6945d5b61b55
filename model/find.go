package model

import (
	"context"

	"github.com/syssam/ardb"
	"github.com/syssam/ardb/dialect/sql"
	dschema "github.com/syssam/ardb/dialect/sql/schema"
	"github.com/syssam/ardb/schema"
)

// Sentinel selects rows by position instead of by predicate.
type Sentinel int

// Sentinel selectors.
const (
	// First selects the row with the lowest primary key.
	First Sentinel = iota + 1
	// Last selects the row with the highest primary key.
	Last
	// All selects every row.
	All
)

// FindOption overrides the ordering or paging of a finder.
type FindOption func(*findOptions)

type findOptions struct {
	order  []sql.Order
	limit  *int
	offset []int
}

// OrderBy orders the rows by the given terms.
func OrderBy(terms ...sql.Order) FindOption {
	return func(o *findOptions) {
		o.order = append(o.order, terms...)
	}
}

// Limit limits the number of rows, optionally skipping offset rows first.
func Limit(n int, offset ...int) FindOption {
	return func(o *findOptions) {
		o.limit, o.offset = &n, offset
	}
}

// Find returns the entities matching selector, or nil when no row matches.
// The selector is a predicate (sql.P or map[string]any), a Sentinel, or a
// primary key value.
//
//	users, err := model.Find[User](ctx, db, sql.P{{"active", true}}, model.OrderBy(sql.Desc("id")))
//	user, err := model.FindOne[User](ctx, db, 42)
func Find[E any, P ptr[E]](ctx context.Context, q Querier, selector any, opts ...FindOption) ([]P, error) {
	var o findOptions
	for _, opt := range opts {
		opt(&o)
	}
	return find[E, P](ctx, q, selector, o)
}

// FindOne is like Find, limited to one row unless a limit is given. It
// returns nil when no row matches.
func FindOne[E any, P ptr[E]](ctx context.Context, q Querier, selector any, opts ...FindOption) (P, error) {
	var o findOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.limit == nil {
		one := 1
		o.limit = &one
	}
	es, err := find[E, P](ctx, q, selector, o)
	if err != nil || len(es) == 0 {
		return nil, err
	}
	return es[len(es)-1], nil
}

func find[E any, P ptr[E]](ctx context.Context, q Querier, selector any, o findOptions) ([]P, error) {
	var (
		e     = P(new(E))
		s     = e.Schema()
		query = q.Query(s.Proxy).Select(TableName(e))
	)
	switch sel := selector.(type) {
	case Sentinel:
		switch sel {
		case First:
			query.OrderBy(sql.Asc(s.PrimaryKey())).Limit(1)
		case Last:
			query.OrderBy(sql.Desc(s.PrimaryKey())).Limit(1)
		}
	default:
		where(query, s, selector)
	}
	if len(o.order) > 0 {
		query.OrderBy(o.order...)
	}
	if o.limit != nil {
		query.Limit(*o.limit, o.offset...)
	}
	rows, err := query.Rows(ctx)
	if err != nil {
		return nil, ardb.NewQueryError(entityName(e), "find", err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	out := make([]P, len(rows))
	for i, row := range rows {
		out[i] = New[E, P](q)
		out[i].record().load(s, row)
	}
	return out, nil
}

// Count returns the number of rows matching selector. Sentinels and a nil
// selector count every row.
func Count[E any, P ptr[E]](ctx context.Context, q Querier, selector any) (int64, error) {
	e := P(new(E))
	s := e.Schema()
	query := q.Query(s.Proxy).Count(TableName(e))
	if _, ok := selector.(Sentinel); !ok {
		where(query, s, selector)
	}
	res, err := query.Run(ctx)
	if err != nil {
		return 0, ardb.NewQueryError(entityName(e), "count", err)
	}
	return res.Count, nil
}

// CountBy returns the number of rows matching selector per distinct value of column.
func CountBy[E any, P ptr[E]](ctx context.Context, q Querier, column string, selector any) (map[any]int64, error) {
	e := P(new(E))
	s := e.Schema()
	query := q.Query(s.Proxy).Count(TableName(e)).GroupBy(column)
	if _, ok := selector.(Sentinel); !ok {
		where(query, s, selector)
	}
	res, err := query.Run(ctx)
	if err != nil {
		return nil, ardb.NewQueryError(entityName(e), "count", err)
	}
	return res.Groups, nil
}

func where(query *sql.Query, s *schema.Schema, selector any) {
	switch sel := selector.(type) {
	case nil:
	case sql.P:
		query.Where(sel)
	case []sql.Pair:
		query.Where(sel)
	case map[string]any:
		query.Where(sql.FromMap(sel))
	default:
		query.Where(sql.P{{Key: s.PrimaryKey(), Value: sel}})
	}
}

// Install creates the table of the entity, with an optional storage engine.
func Install[E any, P ptr[E]](ctx context.Context, q Querier, engine ...string) error {
	e := P(new(E))
	s := e.Schema()
	if res := dschema.Validate(q.Dialect(), s); res.HasErrors() {
		return ardb.NewMutationError(entityName(e), "install", res.Err())
	}
	defs, err := dschema.ColumnDefs(q.Dialect(), s)
	if err != nil {
		return ardb.NewMutationError(entityName(e), "install", err)
	}
	if _, err := q.Query(s.Proxy).CreateTable(TableName(e), defs, engine...).Run(ctx); err != nil {
		return ardb.NewMutationError(entityName(e), "install", err)
	}
	return nil
}

// Uninstall drops the table of the entity if it exists.
func Uninstall[E any, P ptr[E]](ctx context.Context, q Querier) error {
	e := P(new(E))
	if _, err := q.Query(e.Schema().Proxy).DropTable(TableName(e)).Run(ctx); err != nil {
		return ardb.NewMutationError(entityName(e), "uninstall", err)
	}
	return nil
}

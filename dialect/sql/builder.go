package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/ardb/dialect"
)

// ErrNoDriver is returned when a query without a driver is executed.
var ErrNoDriver = errors.New("dialect/sql: query has no driver")

// Action is the kind of statement a Query compiles to.
type Action string

// Supported actions.
const (
	ActionSelect      Action = "SELECT"
	ActionUpdate      Action = "UPDATE"
	ActionInsert      Action = "INSERT"
	ActionDelete      Action = "DELETE"
	ActionCount       Action = "COUNT"
	ActionCreateTable Action = "CREATE TABLE"
	ActionDropTable   Action = "DROP TABLE"
)

// Sort directions.
const (
	OrderAsc  = "ASC"
	OrderDesc = "DESC"
)

// Order is a single ORDER BY term.
type Order struct {
	Column string
	Dir    string
}

// Asc returns an ascending order term.
func Asc(column string) Order { return Order{Column: column, Dir: OrderAsc} }

// Desc returns a descending order term.
func Desc(column string) Order { return Order{Column: column, Dir: OrderDesc} }

// Join is a joined table of a select query.
type Join struct {
	Kind  string
	Table string
	Alias string
	On    string
}

// ColumnDef is a single entry of a CREATE TABLE statement. A definition with
// an empty name is emitted as a raw fragment, e.g. a table constraint.
type ColumnDef struct {
	Name string
	DDL  string
}

// QueryResult holds the outcome of the last execution of a Query.
type QueryResult struct {
	// Rows of a select query.
	Rows []Row
	// LastInsertID of an insert. On postgres it is the RETURNING value when
	// that value is an integer.
	LastInsertID int64
	// Returned is the raw RETURNING value of a postgres insert.
	Returned any
	// RowsAffected by an update or delete.
	RowsAffected int64
	// Count of a count query without grouping.
	Count int64
	// Groups maps every group value to its count when GroupBy is set.
	Groups map[any]int64
}

// Query is a mutable specification of one SQL statement. Fluent calls mutate
// the query in place and return it; the statement is compiled on Build or Run.
//
//	rows, err := sql.NewQuery(dialect.MySQL, drv, "app_").
//	    Select("users", "id", "name").
//	    LeftJoin("roles", "r", "app_users.role_id = r.id").
//	    Where(sql.P{{"status", "active"}}).
//	    OrderBy(sql.Desc("id")).
//	    Page(2, 10).
//	    Rows(ctx)
type Query struct {
	dialect   string
	driver    dialect.ExecQuerier
	prefix    string
	action    Action
	table     string
	columns   []string
	joins     []Join
	where     P
	order     []Order
	limit     *int
	offset    *int
	group     string
	values    P
	defs      []ColumnDef
	engine    string
	returning string
	errs      []error
	result    *QueryResult
}

// NewQuery returns an empty query for the given dialect. Tables are prefixed
// with prefix when compiled.
func NewQuery(name string, drv dialect.ExecQuerier, prefix string) *Query {
	return &Query{dialect: name, driver: drv, prefix: prefix}
}

// Dialect returns the dialect of the query.
func (q *Query) Dialect() string { return q.dialect }

// Prefix returns the table prefix of the query.
func (q *Query) Prefix() string { return q.prefix }

// Table returns the prefixed primary table of the query.
func (q *Query) Table() string { return q.prefix + q.table }

// Select sets the query to select columns from table. No columns selects "*".
func (q *Query) Select(table string, columns ...string) *Query {
	q.action, q.table = ActionSelect, table
	q.columns = append([]string(nil), columns...)
	return q
}

// Update sets the query to update rows of table.
func (q *Query) Update(table string) *Query {
	q.action, q.table = ActionUpdate, table
	return q
}

// Insert sets the query to insert a row into table.
func (q *Query) Insert(table string) *Query {
	q.action, q.table = ActionInsert, table
	return q
}

// Delete sets the query to delete rows of table.
func (q *Query) Delete(table string) *Query {
	q.action, q.table = ActionDelete, table
	return q
}

// Count sets the query to count rows of table.
func (q *Query) Count(table string) *Query {
	q.action, q.table = ActionCount, table
	return q
}

// CreateTable sets the query to create table from the given definitions and
// an optional storage engine.
func (q *Query) CreateTable(table string, defs []ColumnDef, engine ...string) *Query {
	q.action, q.table = ActionCreateTable, table
	q.defs = defs
	if len(engine) > 0 {
		q.engine = engine[0]
	}
	return q
}

// DropTable sets the query to drop table if it exists.
func (q *Query) DropTable(table string) *Query {
	q.action, q.table = ActionDropTable, table
	return q
}

// LeftJoin adds a LEFT JOIN clause. Once a query has joins, every bare column
// it references is qualified with the primary table.
func (q *Query) LeftJoin(table, alias, on string) *Query {
	q.joins = append(q.joins, Join{Kind: "LEFT", Table: table, Alias: alias, On: on})
	return q
}

// Values sets the values written by an insert or update. A column set again
// keeps its position and takes the new value.
func (q *Query) Values(values P) *Query {
	for _, v := range values {
		q.values = q.values.Set(v.Key, v.Value)
	}
	return q
}

// Where merges p into the predicate of the query.
func (q *Query) Where(p P) *Query {
	q.where = q.where.Merge(p)
	return q
}

// AndWhere is an alias of Where.
func (q *Query) AndWhere(p P) *Query {
	return q.Where(p)
}

// OrWhere groups the accumulated predicate and p under a single OR node.
//
//	q.Where(sql.P{{"a", 1}, {"b", 2}}).OrWhere(sql.P{{"c", 3}})
//	// WHERE (a = ? OR b = ? OR c = ?)
func (q *Query) OrWhere(p P) *Query {
	q.where = P{{Key: OpOr, Value: q.where.Merge(p)}}
	return q
}

// OrderBy appends order terms. Ordering by a column again replaces its direction.
func (q *Query) OrderBy(terms ...Order) *Query {
	for _, t := range terms {
		dir := strings.ToUpper(strings.TrimSpace(t.Dir))
		if dir == "" {
			dir = OrderAsc
		}
		replaced := false
		for i := range q.order {
			if q.order[i].Column == t.Column {
				q.order[i].Dir, replaced = dir, true
				break
			}
		}
		if !replaced {
			q.order = append(q.order, Order{Column: t.Column, Dir: dir})
		}
	}
	return q
}

// GroupBy groups the rows by column. The column is added to the selected
// columns, and Count reports one count per group.
func (q *Query) GroupBy(column string) *Query {
	q.group = column
	for _, c := range q.columns {
		if c == column {
			return q
		}
	}
	if len(q.columns) > 0 {
		q.columns = append(q.columns, column)
	}
	return q
}

// Limit limits the number of rows, optionally skipping offset rows first.
func (q *Query) Limit(count int, offset ...int) *Query {
	q.limit = &count
	if len(offset) > 0 {
		o := offset[0]
		q.offset = &o
	}
	return q
}

// Page limits the query to the given 1-based page. It is a no-op when size
// is not positive or the page is before the first one.
func (q *Query) Page(page, size int) *Query {
	offset := (page - 1) * size
	if size > 0 && offset >= 0 {
		q.Limit(size, offset)
	}
	return q
}

// Returning sets the column returned by an insert on dialects that support
// RETURNING. The returned value is kept in QueryResult.Returned.
func (q *Query) Returning(column string) *Query {
	q.returning = column
	return q
}

// AddError records an error that fails the query when it is built.
func (q *Query) AddError(err error) *Query {
	if err != nil {
		q.errs = append(q.errs, err)
	}
	return q
}

// Err returns the errors recorded on the query.
func (q *Query) Err() error {
	return errors.Join(q.errs...)
}

// LimitOffset returns the limit and offset set on the query.
func (q *Query) LimitOffset() (limit, offset *int) {
	return q.limit, q.offset
}

// Build compiles the query into SQL text with "?" placeholders and its
// ordered arguments.
func (q *Query) Build() (string, []any, error) {
	if err := q.Err(); err != nil {
		return "", nil, err
	}
	if q.table == "" {
		return "", nil, fmt.Errorf("dialect/sql: missing table for %s query", q.action)
	}
	var (
		b    strings.Builder
		args []any
	)
	switch q.action {
	case ActionSelect, ActionCount:
		columns := q.columns
		if q.action == ActionCount {
			columns = []string{"COUNT(*)"}
			if q.group != "" {
				columns = append(columns, q.group)
			}
		} else if len(columns) == 0 {
			columns = []string{"*"}
		}
		qualified := make([]string, len(columns))
		for i, c := range columns {
			qualified[i] = q.qualify(c)
		}
		b.WriteString("SELECT ")
		b.WriteString(strings.Join(qualified, ", "))
		b.WriteString(" FROM ")
		b.WriteString(q.Table())
		for _, j := range q.joins {
			fmt.Fprintf(&b, " %s JOIN %s%s AS %s ON %s", j.Kind, q.prefix, j.Table, j.Alias, j.On)
		}
		args = q.writeWhere(&b)
		if q.group != "" {
			b.WriteString(" GROUP BY ")
			b.WriteString(q.qualify(q.group))
		}
		if len(q.order) > 0 {
			terms := make([]string, len(q.order))
			for i, o := range q.order {
				terms[i] = q.qualify(o.Column) + " " + o.Dir
			}
			b.WriteString(" ORDER BY ")
			b.WriteString(strings.Join(terms, ", "))
		}
		q.writeLimit(&b)
	case ActionUpdate:
		if q.values.Empty() {
			return "", nil, fmt.Errorf("dialect/sql: update %s without values", q.table)
		}
		b.WriteString("UPDATE ")
		b.WriteString(q.Table())
		b.WriteString(" SET ")
		for i, v := range q.values {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(v.Key)
			if raw, ok := v.Value.(Raw); ok {
				b.WriteString(" = " + string(raw))
				continue
			}
			b.WriteString(" = ?")
			args = append(args, v.Value)
		}
		args = append(args, q.writeWhere(&b)...)
	case ActionInsert:
		if q.values.Empty() {
			return "", nil, fmt.Errorf("dialect/sql: insert into %s without values", q.table)
		}
		marks := make([]string, len(q.values))
		for i, v := range q.values {
			if raw, ok := v.Value.(Raw); ok {
				marks[i] = string(raw)
				continue
			}
			marks[i] = "?"
			args = append(args, v.Value)
		}
		fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)", q.Table(), strings.Join(q.values.Keys(), ", "), strings.Join(marks, ", "))
		if q.returning != "" && q.dialect == dialect.Postgres {
			b.WriteString(" RETURNING ")
			b.WriteString(q.returning)
		}
	case ActionDelete:
		b.WriteString("DELETE FROM ")
		b.WriteString(q.Table())
		args = q.writeWhere(&b)
	case ActionCreateTable:
		defs := make([]string, len(q.defs))
		for i, d := range q.defs {
			if d.Name == "" {
				defs[i] = d.DDL
				continue
			}
			defs[i] = d.Name + " " + d.DDL
		}
		fmt.Fprintf(&b, "CREATE TABLE %s (%s)", q.Table(), strings.Join(defs, ", "))
		if q.engine != "" {
			b.WriteString(" ENGINE = ")
			b.WriteString(q.engine)
		}
	case ActionDropTable:
		b.WriteString("DROP TABLE IF EXISTS ")
		b.WriteString(q.Table())
	case "":
		return "", nil, errors.New("dialect/sql: query has no action")
	default:
		return "", nil, fmt.Errorf("dialect/sql: unknown action %q", q.action)
	}
	return b.String(), args, nil
}

// writeWhere writes the WHERE clause, if any, and returns its arguments.
func (q *Query) writeWhere(b *strings.Builder) []any {
	where := q.where
	if len(q.joins) > 0 {
		where = q.qualifyNode(where)
	}
	clause, args := CompileWhere(where, OpAnd)
	if clause != "" {
		b.WriteString(" WHERE ")
		b.WriteString(clause)
	}
	return args
}

func (q *Query) writeLimit(b *strings.Builder) {
	if q.limit == nil {
		return
	}
	switch {
	case q.offset == nil:
		fmt.Fprintf(b, " LIMIT %d", *q.limit)
	case q.dialect == dialect.Postgres:
		fmt.Fprintf(b, " LIMIT %d OFFSET %d", *q.limit, *q.offset)
	default:
		fmt.Fprintf(b, " LIMIT %d, %d", *q.offset, *q.limit)
	}
}

// qualify prefixes a bare column with the primary table when the query has
// joins. Qualified names and expressions are returned as is.
func (q *Query) qualify(column string) string {
	if len(q.joins) == 0 || strings.ContainsAny(column, ".(") {
		return column
	}
	return q.Table() + "." + column
}

func (q *Query) qualifyNode(p P) P {
	out := make(P, len(p))
	for i, pair := range p {
		if isCombinator(stripKey(pair.Key)) {
			if nested, ok := asNode(pair.Value); ok {
				out[i] = Pair{Key: pair.Key, Value: q.qualifyNode(nested)}
				continue
			}
		}
		column, rest, found := strings.Cut(pair.Key, " ")
		key := q.qualify(column)
		if found {
			key += " " + rest
		}
		out[i] = Pair{Key: key, Value: pair.Value}
	}
	return out
}

// Run compiles and executes the query. Every call executes the statement
// again and caches its result on the query.
func (q *Query) Run(ctx context.Context) (*QueryResult, error) {
	query, args, err := q.Build()
	if err != nil {
		return nil, err
	}
	if q.driver == nil {
		return nil, ErrNoDriver
	}
	res := &QueryResult{}
	switch q.action {
	case ActionSelect, ActionCount:
		rows, err := q.query(ctx, query, args)
		if err != nil {
			return nil, err
		}
		if q.action == ActionSelect {
			res.Rows = rows
			break
		}
		if err := q.count(res, rows); err != nil {
			return nil, err
		}
	case ActionInsert:
		if q.returning != "" && q.dialect == dialect.Postgres {
			rows, err := q.query(ctx, query, args)
			if err != nil {
				return nil, err
			}
			if len(rows) > 0 {
				res.Returned = rows[0].At(0)
				if n, err := Int64(res.Returned); err == nil {
					res.LastInsertID = n
				}
			}
			res.RowsAffected = int64(len(rows))
			break
		}
		var r sql.Result
		if err := q.driver.Exec(ctx, query, args, &r); err != nil {
			return nil, err
		}
		// lib/pq does not support LastInsertId.
		if q.dialect != dialect.Postgres {
			if res.LastInsertID, err = r.LastInsertId(); err != nil {
				return nil, fmt.Errorf("dialect/sql: reading last insert id: %w", err)
			}
		}
		res.RowsAffected, _ = r.RowsAffected()
	case ActionUpdate, ActionDelete:
		var r sql.Result
		if err := q.driver.Exec(ctx, query, args, &r); err != nil {
			return nil, err
		}
		if res.RowsAffected, err = r.RowsAffected(); err != nil {
			return nil, fmt.Errorf("dialect/sql: reading rows affected: %w", err)
		}
	default:
		if err := q.driver.Exec(ctx, query, args, nil); err != nil {
			return nil, err
		}
	}
	q.result = res
	return res, nil
}

// Rows returns the rows of the last execution, running the query if it has
// not run yet.
func (q *Query) Rows(ctx context.Context) ([]Row, error) {
	if q.result == nil {
		if _, err := q.Run(ctx); err != nil {
			return nil, err
		}
	}
	return q.result.Rows, nil
}

// Result returns the cached result of the last execution, or nil.
func (q *Query) Result() *QueryResult { return q.result }

func (q *Query) query(ctx context.Context, query string, args []any) ([]Row, error) {
	var rows Rows
	if err := q.driver.Query(ctx, query, args, &rows); err != nil {
		return nil, err
	}
	return ScanRows(rows)
}

func (q *Query) count(res *QueryResult, rows []Row) error {
	if q.group == "" {
		if len(rows) == 0 {
			return nil
		}
		n, err := Int64(rows[0].At(0))
		if err != nil {
			return err
		}
		res.Count = n
		return nil
	}
	res.Groups = make(map[any]int64, len(rows))
	for _, r := range rows {
		n, err := Int64(r.At(0))
		if err != nil {
			return err
		}
		res.Groups[groupKey(r.At(1))] = n
		res.Count += n
	}
	return nil
}

// groupKey makes a scanned group value usable as a map key.
func groupKey(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case int:
		return int64(v)
	case int32:
		return int64(v)
	case uint64:
		if v <= 1<<63-1 {
			return int64(v)
		}
		return strconv.FormatUint(v, 10)
	}
	return v
}

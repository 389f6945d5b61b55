package sql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/ardb/dialect"
)

// Driver runs statements on a database/sql pool.
type Driver struct {
	Conn
	db *sql.DB
}

// Open opens a pool with the registered database/sql driver name and wraps
// it. Use Connect to build the data source from a ConnConfig instead.
func Open(vendor, source string) (*Driver, error) {
	db, err := sql.Open(vendor, source)
	if err != nil {
		return nil, err
	}
	return OpenDB(vendor, db), nil
}

// OpenDB wraps an opened pool.
func OpenDB(vendor string, db *sql.DB) *Driver {
	return &Driver{Conn: Conn{ExecQuerier: db, vendor: vendor}, db: db}
}

// Dialect returns the vendor of the driver.
func (d *Driver) Dialect() string { return d.vendor }

// Tx begins a transaction. Its statements share one connection.
func (d *Driver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, newDatabaseError("begin", "", err)
	}
	return &Tx{Conn: Conn{ExecQuerier: tx, vendor: d.vendor}, tx: tx}, nil
}

// Close closes the pool.
func (d *Driver) Close() error { return d.db.Close() }

// Tx is a transaction of a Driver.
type Tx struct {
	Conn
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error { return t.tx.Commit() }

// Rollback aborts the transaction.
func (t *Tx) Rollback() error { return t.tx.Rollback() }

// ExecQuerier is the part of *sql.DB, *sql.Conn and *sql.Tx a Conn runs on.
type ExecQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Conn adapts an ExecQuerier to dialect.ExecQuerier. Statements are rebound
// for the vendor and failures come back as *DatabaseError.
type Conn struct {
	ExecQuerier
	vendor string
}

// Exec runs a statement. v is nil or a *sql.Result receiving the outcome.
func (c Conn) Exec(ctx context.Context, query string, args, v any) (err error) {
	argv, err := argList(args)
	if err != nil {
		return err
	}
	var res *sql.Result
	switch v := v.(type) {
	case nil:
	case *sql.Result:
		res = v
	default:
		return fmt.Errorf("dialect/sql: exec into %T, want *sql.Result", v)
	}
	ex, release, err := c.session(ctx)
	if err != nil {
		return err
	}
	if release != nil {
		defer func() { err = errors.Join(err, release()) }()
	}
	query = Rebind(c.vendor, query)
	r, err := ex.ExecContext(ctx, query, argv...)
	if err != nil {
		return newDatabaseError("exec", query, err)
	}
	if res != nil {
		*res = r
	}
	return nil
}

// Query runs a statement returning rows into v, which must be a *Rows.
// Closing the rows releases any session connection.
func (c Conn) Query(ctx context.Context, query string, args, v any) error {
	rows, ok := v.(*Rows)
	if !ok {
		return fmt.Errorf("dialect/sql: query into %T, want *sql.Rows", v)
	}
	argv, err := argList(args)
	if err != nil {
		return err
	}
	ex, release, err := c.session(ctx)
	if err != nil {
		return err
	}
	query = Rebind(c.vendor, query)
	r, err := ex.QueryContext(ctx, query, argv...)
	if err != nil {
		if release != nil {
			err = errors.Join(err, release())
		}
		return newDatabaseError("query", query, err)
	}
	rows.ColumnScanner = r
	if release != nil {
		rows.ColumnScanner = sessionRows{r, release}
	}
	return nil
}

func argList(args any) ([]any, error) {
	switch args := args.(type) {
	case nil:
		return nil, nil
	case []any:
		return args, nil
	default:
		return nil, fmt.Errorf("dialect/sql: arguments of type %T, want []any", args)
	}
}

// Rebind rewrites the positional "?" placeholders of query into the form the
// dialect expects. Only Postgres needs numbered "$n" placeholders. Question
// marks inside quoted literals and identifiers are left untouched.
func Rebind(name, query string) string {
	if name != dialect.Postgres || !strings.Contains(query, "?") {
		return query
	}
	var (
		b     strings.Builder
		n     int
		quote byte
	)
	b.Grow(len(query) + 8)
	for i := 0; i < len(query); i++ {
		ch := query[i]
		switch {
		case quote != 0:
			if ch == quote {
				quote = 0
			}
		case ch == '\'' || ch == '"':
			quote = ch
		case ch == '?':
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(ch)
	}
	return b.String()
}

type sessionKey struct{}

type sessionVar struct{ name, value string }

var varName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_.]{0,127}$`)

// WithVar returns a context whose statements first run
// "SET name = 'value'" on their connection. Outside a transaction the
// statement gets a dedicated connection, and the variable is reset before
// the connection goes back to the pool. Setting a name twice runs both SETs
// in order.
//
//	ctx = sql.WithVar(ctx, "search_path", "tenant_42")
//	rows, err := db.Query("").Select("orders").Rows(ctx)
func WithVar(ctx context.Context, name, value string) context.Context {
	vars, _ := ctx.Value(sessionKey{}).([]sessionVar)
	vars = append(vars[:len(vars):len(vars)], sessionVar{name, value})
	return context.WithValue(ctx, sessionKey{}, vars)
}

// session returns the ExecQuerier a statement runs on, after applying the
// session variables of ctx. The release func, if any, must be called once
// the statement is done.
func (c Conn) session(ctx context.Context) (ExecQuerier, func() error, error) {
	vars, _ := ctx.Value(sessionKey{}).([]sessionVar)
	if len(vars) == 0 {
		return c.ExecQuerier, nil, nil
	}
	for _, v := range vars {
		if !varName.MatchString(v.name) {
			return nil, nil, fmt.Errorf("dialect/sql: invalid session variable name %q", v.name)
		}
	}
	var (
		ex      ExecQuerier
		release func() error
	)
	switch e := c.ExecQuerier.(type) {
	case *sql.Tx, *sql.Conn:
		ex = e
	case *sql.DB:
		conn, err := e.Conn(ctx)
		if err != nil {
			return nil, nil, newDatabaseError("connect", "", err)
		}
		ex, release = conn, conn.Close
	default:
		return nil, nil, fmt.Errorf("dialect/sql: session variables on %T", e)
	}
	for _, v := range vars {
		stmt := "SET " + v.name + " = " + quoteVar(v.value)
		if _, err := ex.ExecContext(ctx, stmt); err != nil {
			err = newDatabaseError("exec", stmt, err)
			if release != nil {
				err = errors.Join(err, release())
			}
			return nil, nil, err
		}
	}
	if release == nil {
		return ex, nil, nil
	}
	reset := resetVars(c.vendor, vars)
	if len(reset) == 0 {
		return ex, release, nil
	}
	closeConn := release
	release = func() error {
		// The caller's context may be done already.
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		for _, stmt := range reset {
			if _, err := ex.ExecContext(ctx, stmt); err != nil {
				return errors.Join(newDatabaseError("exec", stmt, err), closeConn())
			}
		}
		return closeConn()
	}
	return ex, release, nil
}

// resetVars returns the statements restoring the defaults of vars, one per name.
func resetVars(vendor string, vars []sessionVar) []string {
	var (
		stmts []string
		seen  = make(map[string]bool, len(vars))
	)
	for _, v := range vars {
		if seen[v.name] {
			continue
		}
		seen[v.name] = true
		switch vendor {
		case dialect.Postgres:
			stmts = append(stmts, "RESET "+v.name)
		case dialect.MySQL:
			stmts = append(stmts, "SET "+v.name+" = DEFAULT")
		}
	}
	return stmts
}

// quoteVar quotes a session variable value as a string literal.
func quoteVar(v string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, `'`, `''`).Replace(v) + "'"
}

var _ dialect.Driver = (*Driver)(nil)

type (
	// Rows is the destination of Conn.Query.
	Rows struct{ ColumnScanner }
	// Result is an alias to sql.Result.
	Result = sql.Result
)

// ColumnScanner is the part of *sql.Rows used to read a result set.
type ColumnScanner interface {
	Close() error
	Columns() ([]string, error)
	Err() error
	Next() bool
	Scan(dest ...any) error
}

// sessionRows releases the session connection when the rows are closed.
type sessionRows struct {
	ColumnScanner
	release func() error
}

func (r sessionRows) Close() error {
	return errors.Join(r.ColumnScanner.Close(), r.release())
}

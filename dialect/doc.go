// Package dialect defines the vendor identifiers and the driver contracts the
// query builder executes against.
//
// # Supported Dialects
//
//	dialect.MySQL    = "mysql"
//	dialect.SQLite   = "sqlite"
//	dialect.Postgres = "postgres"
//
// # Driver Interface
//
//	type Driver interface {
//	    ExecQuerier
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// # Transaction Interface
//
//	type Tx interface {
//	    ExecQuerier
//	    driver.Tx
//	}
//
// # ExecQuerier Interface
//
// Exec and Query take their arguments and destination as `any` so the
// interface stays independent of the sql package:
//
//	type ExecQuerier interface {
//	    Exec(ctx context.Context, query string, args, v any) error
//	    Query(ctx context.Context, query string, args, v any) error
//	}
//
// # Usage
//
//	drv, err := sql.Connect(sql.ConnConfig{Vendor: dialect.SQLite, Database: "app.db"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer drv.Close()
//
// The dialect/sql package holds the builder and the database/sql backed driver.
package dialect

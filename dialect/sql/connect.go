package sql

import (
	"database/sql"
	"fmt"
	"net/url"

	"github.com/go-sql-driver/mysql"
	"github.com/lib/pq"

	"github.com/syssam/ardb/dialect"
)

// ConnConfig describes a database connection.
type ConnConfig struct {
	Vendor   string
	Database string // database name, or the file path for sqlite
	Host     string // host[:port], ignored by sqlite
	User     string
	Password string
	Charset  string // ignored by sqlite and postgres
	// Persistent keeps idle connections in the pool between statements.
	// It is ignored by sqlite.
	Persistent bool
	// Params are extra driver parameters added to the data source.
	Params map[string]string
}

// Connect opens a Driver for the given configuration. The connection itself
// is established lazily by database/sql on first use.
func Connect(cfg ConnConfig) (*Driver, error) {
	var (
		db  *sql.DB
		err error
	)
	switch cfg.Vendor {
	case dialect.MySQL:
		c := mysql.NewConfig()
		c.User, c.Passwd, c.DBName = cfg.User, cfg.Password, cfg.Database
		if cfg.Host != "" {
			c.Net, c.Addr = "tcp", cfg.Host
		}
		c.Params = make(map[string]string, len(cfg.Params)+1)
		if cfg.Charset != "" {
			c.Params["charset"] = cfg.Charset
		}
		for k, v := range cfg.Params {
			c.Params[k] = v
		}
		connector, cerr := mysql.NewConnector(c)
		if cerr != nil {
			return nil, fmt.Errorf("dialect/sql: mysql connector: %w", cerr)
		}
		db = sql.OpenDB(connector)
	case dialect.Postgres:
		connector, cerr := pq.NewConnector(PostgresDSN(cfg))
		if cerr != nil {
			return nil, fmt.Errorf("dialect/sql: postgres connector: %w", cerr)
		}
		db = sql.OpenDB(connector)
	case dialect.SQLite:
		if cfg.Database == "" {
			return nil, fmt.Errorf("dialect/sql: sqlite requires a database file")
		}
		if db, err = sql.Open("sqlite", cfg.Database); err != nil {
			return nil, newDatabaseError("connect", "", err)
		}
		cfg.Persistent = false
	default:
		return nil, fmt.Errorf("dialect/sql: unsupported vendor %q", cfg.Vendor)
	}
	if !cfg.Persistent {
		db.SetMaxIdleConns(0)
	}
	return OpenDB(cfg.Vendor, db), nil
}

// PostgresDSN returns the URL data source for a postgres configuration.
func PostgresDSN(cfg ConnConfig) string {
	u := url.URL{
		Scheme: "postgres",
		Host:   cfg.Host,
		Path:   "/" + cfg.Database,
	}
	if cfg.User != "" {
		if cfg.Password != "" {
			u.User = url.UserPassword(cfg.User, cfg.Password)
		} else {
			u.User = url.User(cfg.User)
		}
	}
	if len(cfg.Params) > 0 {
		v := url.Values{}
		for k, p := range cfg.Params {
			v.Set(k, p)
		}
		u.RawQuery = v.Encode()
	}
	return u.String()
}

package ardb

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/syssam/ardb/dialect"
	"github.com/syssam/ardb/dialect/sql"
	"github.com/syssam/ardb/dialect/sql/schema"
	"github.com/syssam/ardb/schema/field"
)

// DB is the entry point of ardb. It owns the connection, the prefix
// registry and the query log, and hands out queries bound to them.
// A DB is safe for concurrent use.
type DB struct {
	cfg    Config
	logger *slog.Logger
	log    *sql.QueryLog
	debug  bool
	debugf func(context.Context, ...any)

	group  singleflight.Group
	mu     sync.RWMutex
	drv    *sql.StatsDriver
	closed bool

	pmu      sync.RWMutex
	prefixes map[string]string
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger of the DB. Default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(db *DB) {
		if l != nil {
			db.logger = l
		}
	}
}

// WithDebug prints every statement with its arguments inlined before it
// runs. A nil logf prints at info level on the DB logger.
//
//	db, err := ardb.Open(cfg, ardb.WithDebug(func(_ context.Context, v ...any) {
//	    log.Println(v...)
//	}))
func WithDebug(logf func(context.Context, ...any)) Option {
	return func(db *DB) {
		db.debug, db.debugf = true, logf
	}
}

// Open returns a DB for the given configuration. The connection is
// established on first use.
func Open(cfg *Config, opts ...Option) (*DB, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return newDB(*cfg, opts), nil
}

// New returns a DB over an already opened driver.
func New(drv dialect.Driver, opts ...Option) *DB {
	cfg := DefaultConfig()
	cfg.Vendor = drv.Dialect()
	db := newDB(*cfg, opts)
	db.drv = db.wrap(drv)
	return db
}

func newDB(cfg Config, opts []Option) *DB {
	db := &DB{
		cfg:      cfg,
		logger:   slog.Default(),
		log:      sql.NewQueryLog(cfg.QueryLogSize),
		debug:    cfg.Debug,
		prefixes: map[string]string{"": ""},
	}
	for ns, p := range cfg.Prefixes {
		db.prefixes[ns] = p
	}
	db.cfg.Prefixes = nil
	for _, opt := range opts {
		opt(db)
	}
	return db
}

func (db *DB) wrap(drv dialect.Driver) *sql.StatsDriver {
	if db.debug {
		logf := db.debugf
		if logf == nil {
			logger := db.logger
			logf = func(ctx context.Context, v ...any) {
				logger.InfoContext(ctx, fmt.Sprint(v...))
			}
		}
		drv = sql.NewDebugDriver(drv, logf)
	}
	return sql.NewStatsDriver(drv,
		sql.WithLogger(db.logger),
		sql.WithQueryLog(db.log),
		sql.WithSlowThreshold(db.cfg.SlowThreshold),
	)
}

// driver returns the connected driver, connecting on first use. Concurrent
// first calls share a single connection attempt.
func (db *DB) driver(ctx context.Context) (*sql.StatsDriver, error) {
	db.mu.RLock()
	drv, closed := db.drv, db.closed
	db.mu.RUnlock()
	switch {
	case closed:
		return nil, ErrClosed
	case drv != nil:
		return drv, nil
	}
	v, err, _ := db.group.Do("connect", func() (any, error) {
		db.mu.Lock()
		defer db.mu.Unlock()
		if db.closed {
			return nil, ErrClosed
		}
		if db.drv != nil {
			return db.drv, nil
		}
		conn, err := sql.Connect(db.cfg.ConnConfig())
		if err != nil {
			return nil, err
		}
		// The credential is not needed once the pool exists.
		db.cfg.Password = ""
		db.drv = db.wrap(conn)
		db.logger.DebugContext(ctx, "database connected", "vendor", db.cfg.Vendor, "database", db.cfg.Database)
		return db.drv, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*sql.StatsDriver), nil
}

// Dialect returns the vendor of the DB.
func (db *DB) Dialect() string { return db.cfg.Vendor }

// Query returns an empty query bound to the DB with the table prefix of the
// given namespace. An unknown namespace fails the query when it runs.
func (db *DB) Query(namespace string) *sql.Query {
	return newQuery(db.cfg.Vendor, lazyDriver{db}, db, namespace)
}

func newQuery(vendor string, ex dialect.ExecQuerier, db *DB, namespace string) *sql.Query {
	prefix, ok := db.NamedPrefix(namespace)
	q := sql.NewQuery(vendor, ex, prefix)
	if !ok {
		q.AddError(fmt.Errorf("%w: %q", ErrUnknownNamespace, namespace))
	}
	return q
}

// SetNamedPrefix registers the table prefix of a namespace.
func (db *DB) SetNamedPrefix(namespace, prefix string) {
	db.pmu.Lock()
	defer db.pmu.Unlock()
	db.prefixes[namespace] = prefix
}

// SetNamedPrefixList registers the table prefixes of several namespaces.
func (db *DB) SetNamedPrefixList(prefixes map[string]string) {
	db.pmu.Lock()
	defer db.pmu.Unlock()
	for ns, p := range prefixes {
		db.prefixes[ns] = p
	}
}

// NamedPrefix returns the table prefix of a namespace.
func (db *DB) NamedPrefix(namespace string) (string, bool) {
	db.pmu.RLock()
	defer db.pmu.RUnlock()
	p, ok := db.prefixes[namespace]
	return p, ok
}

// MapType returns the column definition of d for the vendor of the DB.
func (db *DB) MapType(d *field.Descriptor) (string, error) {
	return schema.MapType(db.cfg.Vendor, d)
}

// QueryLog returns the log of the last executed statements.
func (db *DB) QueryLog() *sql.QueryLog { return db.log }

// Stats returns a snapshot of the statement statistics. It is zero before
// the first connection.
func (db *DB) Stats() sql.StatsSnapshot {
	db.mu.RLock()
	defer db.mu.RUnlock()
	if db.drv == nil {
		return sql.StatsSnapshot{}
	}
	return db.drv.QueryStats().Stats()
}

// Close closes the connection, if any. Using the DB afterwards fails with ErrClosed.
func (db *DB) Close() error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.closed {
		return nil
	}
	db.closed = true
	if db.drv == nil {
		return nil
	}
	return db.drv.Close()
}

// lazyDriver connects the DB on the first statement.
type lazyDriver struct{ db *DB }

func (l lazyDriver) Exec(ctx context.Context, query string, args, v any) error {
	drv, err := l.db.driver(ctx)
	if err != nil {
		return err
	}
	return drv.Exec(ctx, query, args, v)
}

func (l lazyDriver) Query(ctx context.Context, query string, args, v any) error {
	drv, err := l.db.driver(ctx)
	if err != nil {
		return err
	}
	return drv.Query(ctx, query, args, v)
}

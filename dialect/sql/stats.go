package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/syssam/ardb/dialect"
)

// DefaultSlowThreshold is the duration above which a statement counts as slow.
const DefaultSlowThreshold = 100 * time.Millisecond

// QueryStats counts executed statements. It is safe for concurrent use.
type QueryStats struct {
	queries  atomic.Int64
	execs    atomic.Int64
	duration atomic.Int64
	slow     atomic.Int64
	errors   atomic.Int64
}

// Stats returns a snapshot of the counters.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.queries.Load(),
		TotalExecs:    s.execs.Load(),
		TotalDuration: time.Duration(s.duration.Load()),
		SlowQueries:   s.slow.Load(),
		Errors:        s.errors.Load(),
	}
}

// Reset zeroes the counters.
func (s *QueryStats) Reset() {
	for _, c := range []*atomic.Int64{&s.queries, &s.execs, &s.duration, &s.slow, &s.errors} {
		c.Store(0)
	}
}

// StatsSnapshot is a copy of the counters of a QueryStats.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
}

// AvgQueryDuration returns the mean duration of a statement.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	if n := s.TotalQueries + s.TotalExecs; n > 0 {
		return s.TotalDuration / time.Duration(n)
	}
	return 0
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(), s.SlowQueries, s.Errors)
}

// StatsDriver counts and logs the statements of a Driver. Statements go to
// the logger at debug level, slow ones at warn level, and every statement is
// appended to the query log when one is set.
type StatsDriver struct {
	dialect.Driver
	stats  QueryStats
	slow   time.Duration
	log    *QueryLog
	logger *slog.Logger
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the slow statement threshold. Zero or less keeps
// DefaultSlowThreshold.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) {
		if d > 0 {
			s.slow = d
		}
	}
}

// WithQueryLog records every statement in l.
func WithQueryLog(l *QueryLog) StatsOption {
	return func(s *StatsDriver) { s.log = l }
}

// WithLogger sets the statement logger. Default is slog.Default().
func WithLogger(l *slog.Logger) StatsOption {
	return func(s *StatsDriver) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStatsDriver wraps drv.
//
//	drv, _ := sql.Connect(cfg)
//	sd := sql.NewStatsDriver(drv,
//	    sql.WithSlowThreshold(200*time.Millisecond),
//	    sql.WithQueryLog(sql.NewQueryLog(sql.DefaultQueryLogSize)),
//	)
//	_, err := sql.NewQuery(sd.Dialect(), sd, "").Select("users").Run(ctx)
//	fmt.Println(sd.QueryStats().Stats())
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, slow: DefaultSlowThreshold, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryLog returns the query log of the driver, or nil.
func (s *StatsDriver) QueryLog() *QueryLog { return s.log }

// QueryStats returns the counters of the driver.
func (s *StatsDriver) QueryStats() *QueryStats { return &s.stats }

// Query runs a query and records it.
func (s *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := s.Driver.Query(ctx, query, args, v)
	s.observe(ctx, query, args, start, err, &s.stats.queries)
	return err
}

// Exec runs a statement and records it.
func (s *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := s.Driver.Exec(ctx, query, args, v)
	s.observe(ctx, query, args, start, err, &s.stats.execs)
	return err
}

// Tx begins a transaction whose statements are recorded too.
func (s *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := s.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &statsTx{Tx: tx, s: s}, nil
}

func (s *StatsDriver) observe(ctx context.Context, query string, args any, start time.Time, err error, counter *atomic.Int64) {
	elapsed := time.Since(start)
	counter.Add(1)
	s.stats.duration.Add(int64(elapsed))
	argv, _ := args.([]any)
	s.log.Add(LogEntry{SQL: query, Args: argv, Duration: elapsed, Err: err, At: start})
	attrs := []any{"query", query, "args", argv, "duration", elapsed}
	if err != nil {
		s.stats.errors.Add(1)
		s.logger.DebugContext(ctx, "statement failed", append(attrs, "error", err)...)
	} else {
		s.logger.DebugContext(ctx, "statement executed", attrs...)
	}
	if elapsed > s.slow {
		s.stats.slow.Add(1)
		s.logger.WarnContext(ctx, "slow statement", attrs...)
	}
}

type statsTx struct {
	dialect.Tx
	s *StatsDriver
}

func (tx *statsTx) Query(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Query(ctx, query, args, v)
	tx.s.observe(ctx, query, args, start, err, &tx.s.stats.queries)
	return err
}

func (tx *statsTx) Exec(ctx context.Context, query string, args, v any) error {
	start := time.Now()
	err := tx.Tx.Exec(ctx, query, args, v)
	tx.s.observe(ctx, query, args, start, err, &tx.s.stats.execs)
	return err
}

// DebugDriver prints every statement, with its arguments inlined, before
// running it. Transaction boundaries print as BEGIN, COMMIT and ROLLBACK.
type DebugDriver struct {
	dialect.Driver
	logf func(context.Context, ...any)
}

// NewDebugDriver wraps drv. A nil logf logs at info level on
// slog.Default().
func NewDebugDriver(drv dialect.Driver, logf func(context.Context, ...any)) *DebugDriver {
	if logf == nil {
		logf = func(ctx context.Context, v ...any) {
			slog.InfoContext(ctx, fmt.Sprint(v...))
		}
	}
	return &DebugDriver{Driver: drv, logf: logf}
}

// Query prints and runs a query.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.logf(ctx, statement(query, args))
	return d.Driver.Query(ctx, query, args, v)
}

// Exec prints and runs a statement.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.logf(ctx, statement(query, args))
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx prints and begins a transaction.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	d.logf(ctx, "BEGIN")
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &debugTx{Tx: tx, d: d, ctx: ctx}, nil
}

func statement(query string, args any) string {
	argv, _ := args.([]any)
	return LogEntry{SQL: query, Args: argv}.String()
}

type debugTx struct {
	dialect.Tx
	d   *DebugDriver
	ctx context.Context
}

func (tx *debugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.d.logf(ctx, statement(query, args))
	return tx.Tx.Query(ctx, query, args, v)
}

func (tx *debugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.d.logf(ctx, statement(query, args))
	return tx.Tx.Exec(ctx, query, args, v)
}

func (tx *debugTx) Commit() error {
	tx.d.logf(tx.ctx, "COMMIT")
	return tx.Tx.Commit()
}

func (tx *debugTx) Rollback() error {
	tx.d.logf(tx.ctx, "ROLLBACK")
	return tx.Tx.Rollback()
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*statsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*debugTx)(nil)
)

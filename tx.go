package ardb

import (
	"context"
	"fmt"
	"sync"

	"github.com/syssam/ardb/dialect"
	"github.com/syssam/ardb/dialect/sql"
)

// Tx is a transaction started by DB.Tx. Queries obtained from a Tx run on
// its connection until Commit or Rollback.
type Tx struct {
	db   *DB
	tx   dialect.Tx
	mu   sync.Mutex
	done bool
}

// Tx starts a transaction.
func (db *DB) Tx(ctx context.Context) (*Tx, error) {
	drv, err := db.driver(ctx)
	if err != nil {
		return nil, err
	}
	tx, err := drv.Tx(ctx)
	if err != nil {
		return nil, fmt.Errorf("ardb: starting a transaction: %w", err)
	}
	return &Tx{db: db, tx: tx}, nil
}

// Dialect returns the vendor of the transaction.
func (tx *Tx) Dialect() string { return tx.db.Dialect() }

// Query returns an empty query running inside the transaction.
func (tx *Tx) Query(namespace string) *sql.Query {
	return newQuery(tx.db.Dialect(), txDriver{tx}, tx.db, namespace)
}

// Commit commits the transaction.
func (tx *Tx) Commit() error {
	if err := tx.finish(); err != nil {
		return err
	}
	return tx.tx.Commit()
}

// Rollback rolls back the transaction.
func (tx *Tx) Rollback() error {
	if err := tx.finish(); err != nil {
		return err
	}
	return tx.tx.Rollback()
}

func (tx *Tx) finish() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return ErrTxDone
	}
	tx.done = true
	return nil
}

func (tx *Tx) active() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.done {
		return ErrTxDone
	}
	return nil
}

// txDriver rejects statements once the transaction is finished.
type txDriver struct{ tx *Tx }

func (d txDriver) Exec(ctx context.Context, query string, args, v any) error {
	if err := d.tx.active(); err != nil {
		return err
	}
	return d.tx.tx.Exec(ctx, query, args, v)
}

func (d txDriver) Query(ctx context.Context, query string, args, v any) error {
	if err := d.tx.active(); err != nil {
		return err
	}
	return d.tx.tx.Query(ctx, query, args, v)
}

// WithTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error or panics, and committed otherwise.
//
//	err := ardb.WithTx(ctx, db, func(tx *ardb.Tx) error {
//	    u, err := model.FindOne[User](ctx, tx, 42)
//	    ...
//	})
func WithTx(ctx context.Context, db *DB, fn func(tx *Tx) error) (err error) {
	tx, err := db.Tx(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if v := recover(); v != nil {
			_ = tx.Rollback()
			panic(v)
		}
	}()
	if err := fn(tx); err != nil {
		if rerr := tx.Rollback(); rerr != nil {
			return fmt.Errorf("%w: %w", err, &RollbackError{Err: rerr})
		}
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ardb: committing transaction: %w", err)
	}
	return nil
}

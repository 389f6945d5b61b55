package sql

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/ardb/dialect"
)

func mockDriver(t *testing.T, vendor string) (*Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return OpenDB(vendor, db), mock
}

func TestConnRebinds(t *testing.T) {
	tests := []struct {
		vendor string
		want   string
	}{
		{dialect.MySQL, "SELECT * FROM app_users WHERE name = ? AND age > ?"},
		{dialect.SQLite, "SELECT * FROM app_users WHERE name = ? AND age > ?"},
		{dialect.Postgres, "SELECT * FROM app_users WHERE name = $1 AND age > $2"},
	}
	for _, tt := range tests {
		t.Run(tt.vendor, func(t *testing.T) {
			drv, mock := mockDriver(t, tt.vendor)
			assert.Equal(t, tt.vendor, drv.Dialect())
			mock.ExpectQuery(regexp.QuoteMeta(tt.want)).
				WithArgs("a8m", 18).
				WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a8m"))

			rows, err := NewQuery(drv.Dialect(), drv, "app_").
				Select("users").
				Where(P{{"name", "a8m"}, {"age >", 18}}).
				Rows(context.Background())
			require.NoError(t, err)
			require.Len(t, rows, 1)
			name, _ := rows[0].Get("name")
			assert.Equal(t, "a8m", name)
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestConnErrors(t *testing.T) {
	drv, mock := mockDriver(t, dialect.Postgres)
	ctx := context.Background()

	t.Run("exec", func(t *testing.T) {
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
			WithArgs(7).
			WillReturnError(errors.New("connection reset"))
		err := drv.Exec(ctx, "DELETE FROM users WHERE id = ?", []any{7}, nil)
		var de *DatabaseError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "exec", de.Op)
		assert.Equal(t, "DELETE FROM users WHERE id = $1", de.Query)
		assert.Equal(t, "connection reset", de.Message)
	})

	t.Run("query", func(t *testing.T) {
		cause := errors.New("relation does not exist")
		mock.ExpectQuery("SELECT").WillReturnError(cause)
		err := drv.Query(ctx, "SELECT * FROM missing", []any{}, &Rows{})
		require.ErrorIs(t, err, cause)
		assert.True(t, IsDatabaseError(err))
	})

	t.Run("destinations", func(t *testing.T) {
		require.ErrorContains(t, drv.Exec(ctx, "DELETE FROM users", []any{}, new(int)), "want *sql.Result")
		require.ErrorContains(t, drv.Query(ctx, "SELECT 1", []any{}, nil), "want *sql.Rows")
		require.ErrorContains(t, drv.Exec(ctx, "DELETE FROM users", "id", nil), "want []any")
	})
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnExecResult(t *testing.T) {
	drv, mock := mockDriver(t, dialect.MySQL)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = ? WHERE id = ?")).
		WithArgs("nati", 2).
		WillReturnResult(sqlmock.NewResult(0, 1))

	var res Result
	require.NoError(t, drv.Exec(context.Background(), "UPDATE users SET name = ? WHERE id = ?", []any{"nati", 2}, &res))
	n, err := res.RowsAffected()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestDriverTx(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users (name) VALUES (?)")).
			WithArgs("ariel").
			WillReturnResult(sqlmock.NewResult(3, 1))
		mock.ExpectCommit()

		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		res, err := NewQuery(dialect.SQLite, tx, "").Insert("users").Values(P{{"name", "ariel"}}).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), res.LastInsertID)
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("rollback", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectBegin()
		mock.ExpectExec("DELETE").WillReturnError(errors.New("locked"))
		mock.ExpectRollback()

		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		_, err = NewQuery(dialect.SQLite, tx, "").Delete("users").Run(ctx)
		require.Error(t, err)
		require.NoError(t, tx.Rollback())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("begin_error", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.SQLite)
		mock.ExpectBegin().WillReturnError(errors.New("busy"))
		_, err := drv.Tx(ctx)
		var de *DatabaseError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "begin", de.Op)
	})
}

func TestWithVar(t *testing.T) {
	t.Run("postgres_select", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.Postgres)
		mock.ExpectExec(regexp.QuoteMeta("SET search_path = 'tenant_42'")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM orders WHERE status = $1")).
			WithArgs("open").
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
		mock.ExpectExec(regexp.QuoteMeta("RESET search_path")).WillReturnResult(sqlmock.NewResult(0, 0))

		ctx := WithVar(context.Background(), "search_path", "tenant_42")
		rows, err := NewQuery(dialect.Postgres, drv, "").Select("orders").Where(P{{"status", "open"}}).Rows(ctx)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mysql_update_repeated_name", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.MySQL)
		mock.ExpectExec(regexp.QuoteMeta("SET time_zone = '+00:00'")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("SET time_zone = '+08:00'")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET active = ? WHERE id = ?")).
			WithArgs(0, 1).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(regexp.QuoteMeta("SET time_zone = DEFAULT")).WillReturnResult(sqlmock.NewResult(0, 0))

		ctx := WithVar(WithVar(context.Background(), "time_zone", "+00:00"), "time_zone", "+08:00")
		res, err := NewQuery(dialect.MySQL, drv, "").Update("users").Values(P{{"active", 0}}).Where(P{{"id", 1}}).Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), res.RowsAffected)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("inside_transaction", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.Postgres)
		mock.ExpectBegin()
		mock.ExpectExec(regexp.QuoteMeta("SET statement_timeout = '5s'")).WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectExec(regexp.QuoteMeta("DELETE FROM sessions")).WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectCommit()

		ctx := WithVar(context.Background(), "statement_timeout", "5s")
		tx, err := drv.Tx(ctx)
		require.NoError(t, err)
		_, err = NewQuery(dialect.Postgres, tx, "").Delete("sessions").Run(ctx)
		require.NoError(t, err)
		require.NoError(t, tx.Commit())
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("set_fails", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.Postgres)
		mock.ExpectExec("SET role").WillReturnError(errors.New("role does not exist"))

		ctx := WithVar(context.Background(), "role", "nobody")
		_, err := NewQuery(dialect.Postgres, drv, "").Select("users").Run(ctx)
		var de *DatabaseError
		require.ErrorAs(t, err, &de)
		assert.Equal(t, "SET role = 'nobody'", de.Query)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("invalid_name", func(t *testing.T) {
		drv, mock := mockDriver(t, dialect.Postgres)
		for _, name := range []string{"", "1st", "a b", "x; DROP TABLE users", "it's"} {
			ctx := WithVar(context.Background(), name, "v")
			_, err := NewQuery(dialect.Postgres, drv, "").Select("users").Run(ctx)
			require.ErrorContains(t, err, "invalid session variable name", name)
		}
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("contexts_do_not_share_vars", func(t *testing.T) {
		base := WithVar(context.Background(), "a", "1")
		left := WithVar(base, "b", "2")
		right := WithVar(base, "c", "3")
		assert.Len(t, left.Value(sessionKey{}), 2)
		assert.Equal(t, []sessionVar{{"a", "1"}, {"c", "3"}}, right.Value(sessionKey{}))
	})
}

func TestQuoteVar(t *testing.T) {
	tests := map[string]string{
		"utf8mb4":                 "'utf8mb4'",
		"it's":                    "'it''s'",
		`C:\data`:                 `'C:\\data'`,
		"'; DROP TABLE users; --": "'''; DROP TABLE users; --'",
		"":                        "''",
	}
	for in, want := range tests {
		assert.Equal(t, want, quoteVar(in), in)
	}
}

func TestRebind(t *testing.T) {
	tests := []struct {
		name    string
		dialect string
		query   string
		want    string
	}{
		{"mysql_untouched", dialect.MySQL, "SELECT * FROM t WHERE a = ? AND b = ?", "SELECT * FROM t WHERE a = ? AND b = ?"},
		{"sqlite_untouched", dialect.SQLite, "DELETE FROM t WHERE id = ?", "DELETE FROM t WHERE id = ?"},
		{"postgres_numbered", dialect.Postgres, "SELECT * FROM t WHERE a = ? AND b IN (?, ?)", "SELECT * FROM t WHERE a = $1 AND b IN ($2, $3)"},
		{"postgres_no_placeholders", dialect.Postgres, "SELECT 1", "SELECT 1"},
		{"postgres_quoted_literal", dialect.Postgres, "SELECT '?' FROM t WHERE a = ?", "SELECT '?' FROM t WHERE a = $1"},
		{"postgres_quoted_identifier", dialect.Postgres, `SELECT "a?" FROM t WHERE b = ?`, `SELECT "a?" FROM t WHERE b = $1`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Rebind(tt.dialect, tt.query))
		})
	}
}

func TestScanRows(t *testing.T) {
	drv, mock := mockDriver(t, dialect.MySQL)
	mock.ExpectQuery("SELECT id, name, tags FROM users").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "tags"}).
			AddRow(int64(1), []byte("Alice"), "a,b").
			AddRow(int64(2), nil, ""))

	rows := &Rows{}
	require.NoError(t, drv.Query(context.Background(), "SELECT id, name, tags FROM users", []any{}, rows))
	scanned, err := ScanRows(rows)
	require.NoError(t, err)
	require.Len(t, scanned, 2)

	assert.Equal(t, []string{"id", "name", "tags"}, scanned[0].Columns())
	assert.Equal(t, int64(1), scanned[0].At(0))
	name, ok := scanned[0].Get("name")
	require.True(t, ok)
	assert.Equal(t, "Alice", name, "byte slices are copied into strings")
	assert.Equal(t, map[string]any{"id": int64(2), "name": nil, "tags": ""}, scanned[1].Map())
	assert.Nil(t, scanned[1].At(5))
	_, ok = scanned[1].Get("missing")
	assert.False(t, ok)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInt64(t *testing.T) {
	for _, v := range []any{int64(7), 7, int32(7), uint64(7), float64(7), "7", []byte("7")} {
		n, err := Int64(v)
		require.NoError(t, err, "%T", v)
		assert.Equal(t, int64(7), n, "%T", v)
	}
	n, err := Int64(nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	_, err = Int64("seven")
	require.Error(t, err)
	_, err = Int64(struct{}{})
	require.Error(t, err)
}

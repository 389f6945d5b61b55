package model_test

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/ardb"
	"github.com/syssam/ardb/dialect"
	"github.com/syssam/ardb/dialect/sql"
	"github.com/syssam/ardb/model"
)

func userRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "name", "roles", "active"}).
		AddRow(1, "a8m", "admin,user", 1).
		AddRow(2, "nati", "", 0).
		AddRow(3, "ariel", nil, 1)
}

func TestFind(t *testing.T) {
	db, mock := mockDB(t, dialect.MySQL)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE active = ? ORDER BY id DESC LIMIT 10, 5")).
		WithArgs(true).
		WillReturnRows(userRows())
	users, err := model.Find[User](ctx, db, sql.P{{Key: "active", Value: true}}, model.OrderBy(sql.Desc("id")), model.Limit(5, 10))
	require.NoError(t, err)
	require.Len(t, users, 3)

	u := users[0]
	assert.Equal(t, int64(1), u.Int("id"))
	assert.Equal(t, []string{"admin", "user"}, u.List("roles"))
	assert.True(t, u.Bool("active"))
	assert.False(t, u.IsDirty())
	assert.Equal(t, []string{}, users[1].List("roles"))
	assert.False(t, users[1].Bool("active"))
	roles, ok := users[2].Get("roles")
	assert.True(t, ok)
	assert.Nil(t, roles)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = ? WHERE id = ?")).
		WithArgs("nati", 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	u.Set("name", "nati")
	saved, err := u.Save(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
}

func TestFindSelectors(t *testing.T) {
	tests := []struct {
		name     string
		selector any
		query    string
		args     []any
	}{
		{name: "all", selector: model.All, query: "SELECT * FROM users"},
		{name: "nil", selector: nil, query: "SELECT * FROM users"},
		{name: "first", selector: model.First, query: "SELECT * FROM users ORDER BY id ASC LIMIT 1"},
		{name: "last", selector: model.Last, query: "SELECT * FROM users ORDER BY id DESC LIMIT 1"},
		{name: "key", selector: 7, query: "SELECT * FROM users WHERE id = ?", args: []any{7}},
		{name: "keys", selector: []int{7, 8}, query: "SELECT * FROM users WHERE id IN (?, ?)", args: []any{7, 8}},
		{name: "map", selector: map[string]any{"name": "a8m"}, query: "SELECT * FROM users WHERE name = ?", args: []any{"a8m"}},
		{name: "pairs", selector: []sql.Pair{{Key: "id >", Value: 1}}, query: "SELECT * FROM users WHERE id > ?", args: []any{1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := mockDB(t, dialect.MySQL)
			e := mock.ExpectQuery("^" + regexp.QuoteMeta(tt.query) + "$")
			if len(tt.args) > 0 {
				e.WithArgs(toDriverArgs(tt.args)...)
			}
			e.WillReturnRows(sqlmock.NewRows([]string{"id"}))
			users, err := model.Find[User](context.Background(), db, tt.selector)
			require.NoError(t, err)
			assert.Nil(t, users)
		})
	}
}

func toDriverArgs(args []any) []driver.Value {
	out := make([]driver.Value, len(args))
	for i, a := range args {
		out[i] = equalArg{a}
	}
	return out
}

type equalArg struct{ v any }

func (a equalArg) Match(v driver.Value) bool {
	want, err := sql.Int64(a.v)
	if err != nil {
		return a.v == v
	}
	got, err := sql.Int64(v)
	return err == nil && got == want
}

func TestFindOne(t *testing.T) {
	db, mock := mockDB(t, dialect.SQLite)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = ? LIMIT 1")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(1, "a8m"))
	u, err := model.FindOne[User](ctx, db, 1)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "a8m", u.String("name"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users WHERE id = ? LIMIT 1")).
		WithArgs(2).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}))
	u, err = model.FindOne[User](ctx, db, 2)
	require.NoError(t, err)
	assert.Nil(t, u)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users LIMIT 3")).
		WillReturnRows(userRows())
	u, err = model.FindOne[User](ctx, db, model.All, model.Limit(3))
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, int64(3), u.Int("id"), "the last fetched row")

	mock.ExpectQuery(regexp.QuoteMeta("SELECT * FROM users ORDER BY id DESC LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name"}).AddRow(9, "last"))
	u, err = model.FindOne[User](ctx, db, model.Last)
	require.NoError(t, err)
	assert.Equal(t, int64(9), u.Int("id"))

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("connection lost"))
	_, err = model.FindOne[User](ctx, db, model.First)
	assert.True(t, ardb.IsQueryError(err))
	assert.True(t, ardb.IsDatabaseError(err))
}

func TestCount(t *testing.T) {
	db, mock := mockDB(t, dialect.MySQL)
	ctx := context.Background()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE active = ?")).
		WithArgs(1).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(4))
	n, err := model.Count[User](ctx, db, map[string]any{"active": 1})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	mock.ExpectQuery("^" + regexp.QuoteMeta("SELECT COUNT(*) FROM users") + "$").
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow("9"))
	n, err = model.Count[User](ctx, db, model.All)
	require.NoError(t, err)
	assert.Equal(t, int64(9), n)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*), active FROM users WHERE id > ? GROUP BY active")).
		WithArgs(0).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)", "active"}).AddRow(3, 1).AddRow(2, 0))
	groups, err := model.CountBy[User](ctx, db, "active", sql.P{{Key: "id >", Value: 0}})
	require.NoError(t, err)
	assert.Equal(t, map[any]int64{int64(1): 3, int64(0): 2}, groups)
}

func TestInstall(t *testing.T) {
	ctx := context.Background()

	t.Run("mysql", func(t *testing.T) {
		db, mock := mockDB(t, dialect.MySQL)
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE users (id INT UNSIGNED PRIMARY KEY AUTO_INCREMENT, name VARCHAR(120) NOT NULL, roles VARCHAR(255), active TINYINT(1) DEFAULT '1') ENGINE = InnoDB")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		require.NoError(t, model.Install[User](ctx, db, "InnoDB"))

		mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS users")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		require.NoError(t, model.Uninstall[User](ctx, db))
	})

	t.Run("postgres", func(t *testing.T) {
		db, mock := mockDB(t, dialect.Postgres)
		db.SetNamedPrefix("blog", "b_")
		mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE b_blog_posts (post_id INTEGER PRIMARY KEY GENERATED BY DEFAULT AS IDENTITY, body TEXT)")).
			WillReturnResult(sqlmock.NewResult(0, 0))
		require.NoError(t, model.Install[BlogPost](ctx, db))
	})

	t.Run("failure", func(t *testing.T) {
		db, mock := mockDB(t, dialect.SQLite)
		mock.ExpectExec("CREATE TABLE users").WillReturnError(errors.New("table users already exists"))
		err := model.Install[User](ctx, db)
		assert.True(t, ardb.IsMutationError(err))
	})
}

package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/ardb/dialect"
	"github.com/syssam/ardb/dialect/sql"
	entity "github.com/syssam/ardb/schema"
	"github.com/syssam/ardb/schema/field"
)

func TestMapType(t *testing.T) {
	tests := []struct {
		name   string
		vendor string
		field  *field.Builder
		want   string
	}{
		{name: "mysql_int", vendor: dialect.MySQL, field: field.Int("n"), want: "INT UNSIGNED"},
		{name: "sqlite_int", vendor: dialect.SQLite, field: field.Int("n"), want: "INTEGER"},
		{name: "postgres_int", vendor: dialect.Postgres, field: field.Int("n"), want: "INTEGER"},
		{name: "string", vendor: dialect.MySQL, field: field.String("s"), want: "VARCHAR(120)"},
		{name: "text", vendor: dialect.SQLite, field: field.Text("s"), want: "TEXT"},
		{name: "list", vendor: dialect.MySQL, field: field.List("tags"), want: "VARCHAR(255)"},
		{name: "bool", vendor: dialect.MySQL, field: field.Bool("on"), want: "TINYINT(1)"},
		{name: "postgres_bool", vendor: dialect.Postgres, field: field.Bool("on"), want: "SMALLINT"},
		{
			name:   "mysql_primary_auto",
			vendor: dialect.MySQL,
			field:  field.Int("id").Primary().Auto(),
			want:   "INT UNSIGNED PRIMARY KEY AUTO_INCREMENT",
		},
		{
			name:   "sqlite_primary_auto",
			vendor: dialect.SQLite,
			field:  field.Int("id").Primary().Auto(),
			want:   "INTEGER PRIMARY KEY AUTOINCREMENT",
		},
		{
			name:   "postgres_primary_auto",
			vendor: dialect.Postgres,
			field:  field.Int("id").Primary().Auto(),
			want:   "INTEGER PRIMARY KEY GENERATED BY DEFAULT AS IDENTITY",
		},
		{
			name:   "composite_order",
			vendor: dialect.MySQL,
			field:  field.Int("n").Default(3).Nullable(false).Auto().Primary(),
			want:   "INT UNSIGNED PRIMARY KEY AUTO_INCREMENT NOT NULL DEFAULT '3'",
		},
		{name: "nullable", vendor: dialect.MySQL, field: field.String("s").Nullable(true), want: "VARCHAR(120) NULL"},
		{name: "null_default", vendor: dialect.MySQL, field: field.String("s").Nullable(true).Default(nil), want: "VARCHAR(120) NULL DEFAULT NULL"},
		{name: "quoted_default", vendor: dialect.MySQL, field: field.String("s").Default("it's"), want: "VARCHAR(120) DEFAULT 'it''s'"},
		{name: "bool_default", vendor: dialect.SQLite, field: field.Bool("on").Default(true), want: "TINYINT(1) DEFAULT '1'"},
		{name: "list_default", vendor: dialect.MySQL, field: field.List("tags").Default([]string{"a", "b"}), want: "VARCHAR(255) DEFAULT 'a,b'"},
		{
			name:   "override",
			vendor: dialect.Postgres,
			field:  field.Text("body").SchemaType(map[string]string{dialect.Postgres: "JSONB"}).Nullable(false),
			want:   "JSONB NOT NULL",
		},
		{
			name:   "override_other_vendor",
			vendor: dialect.MySQL,
			field:  field.Text("body").SchemaType(map[string]string{dialect.Postgres: "JSONB"}),
			want:   "TEXT",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MapType(tt.vendor, tt.field.Descriptor())
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMapTypeErrors(t *testing.T) {
	_, err := MapType("oracle", field.Int("id").Descriptor())
	var verr *UnknownVendorError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "oracle", verr.Vendor)
	assert.EqualError(t, err, `schema: unknown vendor "oracle"`)

	_, err = MapType(dialect.MySQL, field.New("data", field.Kind("blob")).Descriptor())
	var terr *UnknownTypeError
	require.ErrorAs(t, err, &terr)
	assert.Equal(t, field.Kind("blob"), terr.Kind)
	assert.Equal(t, dialect.MySQL, terr.Vendor)
}

func TestRegisterVendor(t *testing.T) {
	const name = "testdb"
	_, err := LookupVendor(name)
	require.Error(t, err)

	RegisterVendor(name, Types{
		Base: map[field.Kind]string{field.KindInt: "NUMBER", field.KindString: "VARCHAR2(120)"},
	})
	t.Cleanup(func() {
		mu.Lock()
		delete(vendors, name)
		mu.Unlock()
	})
	assert.Contains(t, Vendors(), name)

	got, err := MapType(name, field.Int("id").Primary().Auto().Descriptor())
	require.NoError(t, err)
	assert.Equal(t, "NUMBER PRIMARY KEY", got)

	_, err = MapType(name, field.Bool("on").Descriptor())
	require.Error(t, err)
}

func TestVendors(t *testing.T) {
	assert.Subset(t, Vendors(), []string{dialect.MySQL, dialect.Postgres, dialect.SQLite})
}

func TestDefaultLiteral(t *testing.T) {
	assert.Equal(t, "NULL", DefaultLiteral(nil))
	assert.Equal(t, "'0'", DefaultLiteral(false))
	assert.Equal(t, "'12'", DefaultLiteral(12))
	assert.Equal(t, "''", DefaultLiteral([]string{}))
	assert.Equal(t, "'O''Brien'", DefaultLiteral("O'Brien"))
}

func TestColumnDefs(t *testing.T) {
	s := entity.MustNew("users", entity.Fields(
		field.Int("id").Primary().Auto(),
		field.String("name").Nullable(false),
		field.List("roles").Default([]string{"user"}),
	))
	defs, err := ColumnDefs(dialect.SQLite, s)
	require.NoError(t, err)
	assert.Equal(t, []sql.ColumnDef{
		{Name: "id", DDL: "INTEGER PRIMARY KEY AUTOINCREMENT"},
		{Name: "name", DDL: "VARCHAR(120) NOT NULL"},
		{Name: "roles", DDL: "VARCHAR(255) DEFAULT 'user'"},
	}, defs)

	bad := entity.MustNew("bad", entity.Fields(
		field.Int("id").Primary(),
		field.New("data", field.Kind("blob")),
	))
	_, err = ColumnDefs(dialect.SQLite, bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `column "data"`)
}

func TestValidate(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		s := entity.MustNew("users", entity.Fields(
			field.Int("id").Primary().Auto(),
			field.String("name"),
		))
		result := Validate(dialect.MySQL, s)
		assert.False(t, result.HasErrors())
		assert.False(t, result.HasWarnings())
		assert.NoError(t, result.Err())
		assert.Equal(t, "No issues found", result.String())
	})

	t.Run("unknown_vendor", func(t *testing.T) {
		s := entity.MustNew("users", entity.Fields(field.Int("id").Primary()))
		result := Validate("oracle", s)
		require.True(t, result.HasErrors())
		var verr *UnknownVendorError
		assert.ErrorAs(t, result.Err(), &verr)
	})

	t.Run("errors", func(t *testing.T) {
		s := entity.MustNew("users", entity.Fields(
			field.String("id").Primary().Auto().Nullable(true),
			field.String("name").Nullable(false).Default(nil),
			field.New("data", field.Kind("blob")),
		))
		result := Validate(dialect.SQLite, s)
		require.Len(t, result.Errors, 4)
		assert.Equal(t, "id", result.Errors[0].Column)
		assert.Contains(t, result.Errors[0].Message, "autoincrement requires an int column")
		assert.Contains(t, result.Errors[1].Message, "cannot be nullable")
		assert.Equal(t, "users.name: NULL default on a NOT NULL column", result.Errors[2].Error())
		var terr *UnknownTypeError
		assert.ErrorAs(t, result.Errors[3], &terr)
		assert.Contains(t, result.String(), "Errors:\n")
	})

	t.Run("warnings", func(t *testing.T) {
		s := entity.MustNew("posts", entity.Fields(
			field.Int("id").Primary(),
			field.Int("seq").Auto(),
			field.List("tags").Default(42),
		))
		result := Validate(dialect.MySQL, s)
		assert.False(t, result.HasErrors())
		require.Len(t, result.Warnings, 2)
		assert.Equal(t, "seq", result.Warnings[0].Column)
		assert.Equal(t, "tags", result.Warnings[1].Column)
		assert.Contains(t, result.String(), "Warnings:\n")
	})
}

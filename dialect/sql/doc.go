// Package sql provides the SQL query builder, the predicate compiler and the
// database/sql backed driver used by ardb.
//
// # Predicates
//
// A predicate is an ordered node of key/value pairs. Keys are either a
// combinator (AND / OR) holding a nested node, or a column spec made of a
// column name and an optional operator. A "#" suffix makes repeated keys
// unique and is dropped on compilation:
//
//	sql.P{
//	    {"status", "active"},             // status = ?
//	    {"age >=", 18},                   // age >= ?
//	    {"role", []string{"a", "b"}},     // role IN (?, ?)
//	    {"OR", sql.P{                     // (name LIKE ? OR name LIKE ?)
//	        {"name LIKE", "a%"},
//	        {"name LIKE#2", "b%"},
//	    }},
//	}
//
// Lists are deduplicated; a list left with a single value compiles to a
// scalar comparison.
//
// # Queries
//
// A Query is a mutable statement specification compiled on Build or Run:
//
//	q := sql.NewQuery(dialect.MySQL, drv, "app_").
//	    Select("users", "id", "name").
//	    Where(sql.P{{"status", "active"}}).
//	    OrderBy(sql.Desc("id")).
//	    Page(2, 10)
//	query, args, err := q.Build()
//	// SELECT id, name FROM app_users WHERE status = ? ORDER BY id DESC LIMIT 10, 10
//
// Placeholders are always "?" in the built text. The postgres driver rewrites
// them to "$n" before execution.
//
// # Drivers
//
// Connect opens a Driver for mysql, postgres or sqlite. StatsDriver and
// DebugDriver wrap any dialect.Driver with statistics, a bounded query log
// and slog based logging.
package sql

// Package schema provides the building blocks for declaring entity schemas.
//
// A schema names the table an entity lives in, the prefix namespace ("proxy")
// the table belongs to, and its ordered column list:
//
//	var userSchema = schema.MustNew("users",
//	    schema.Mixin(mixin.ID{}),
//	    schema.Fields(
//	        field.String("name").Nullable(false),
//	        field.List("roles"),
//	        field.Bool("active").Default(1),
//	    ),
//	)
//
// Exactly one column may be the primary key. New reports ErrNoPrimary and
// ErrMultiplePrimary when that does not hold.
//
// # Namespaces
//
// Proxy selects the named table prefix registered on the database client:
//
//	schema.MustNew("posts", schema.Proxy("blog"), ...)
//
// # Subpackages
//
//   - [field]: column descriptors and their builders
//   - [mixin]: reusable column sets
package schema

// Package mixin provides reusable column sets for entity schemas.
//
// A mixin is any value with a Fields method returning column builders. Mixins
// are applied with schema.Mixin and contribute their columns in the order
// they are listed, ahead of the columns given to schema.Fields:
//
//	var postSchema = schema.MustNew("posts",
//	    schema.Mixin(mixin.ID{}, mixin.Tenant{}),
//	    schema.Fields(field.String("title")),
//	)
//
// The resulting table has the columns id, tenant_id and title.
//
// # Built-in Mixins
//
//	mixin.ID{}                   // id INT primary key with autoincrement
//	mixin.ID{Column: "user_id"}  // same, under another name
//	mixin.Tenant{}               // tenant_id VARCHAR NOT NULL
//
// # Ad-hoc Mixins
//
// Columns turns a list of builders into a mixin, which is handy for column
// groups shared by a few schemas:
//
//	var audit = mixin.Columns{
//	    field.String("created_by"),
//	    field.String("updated_by"),
//	}
//
// A column name may appear only once per schema; mixing in two sets that
// share a column makes schema.New fail.
package mixin

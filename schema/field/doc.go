// Package field provides fluent builders for declaring entity columns.
//
// Every column has one of five kinds. The kind decides both the DDL emitted at
// install time and the coercion applied when values travel to and from the
// database:
//
//	field.Int("id")        // INT UNSIGNED (mysql), INTEGER (sqlite, postgres)
//	field.String("name")   // VARCHAR(120)
//	field.Text("bio")      // TEXT
//	field.List("tags")     // VARCHAR(255), stored as "a,b,c"
//	field.Bool("active")   // TINYINT(1), stored as 0/1
//
// # Column Options
//
//	field.Int("id").Primary().Auto()      // primary key with autoincrement
//	field.String("role").Nullable(false)  // NOT NULL
//	field.String("nick").Nullable(true)   // NULL
//	field.String("status").Default("new") // DEFAULT 'new'
//
// A column without options renders as its bare vendor type. Options are emitted
// in a fixed order: type, primary key, autoincrement, nullability, default.
//
// # Vendor Overrides
//
// The base type can be replaced per vendor:
//
//	field.String("code").SchemaType(map[string]string{
//	    dialect.MySQL: "CHAR(8)",
//	})
package field

// Package model implements active-record entities on top of the ardb query
// builder.
//
// An entity embeds Record and returns its schema:
//
//	type User struct{ model.Record }
//
//	var userSchema = schema.MustNew("users",
//	    schema.Mixin(mixin.ID{}),
//	    schema.Fields(field.String("name"), field.List("roles"), field.Bool("active")),
//	)
//
//	func (*User) Schema() *schema.Schema { return userSchema }
//
//	func (u *User) Name() string        { return u.String("name") }
//	func (u *User) SetName(name string) { u.Set("name", name) }
//
// Records track the values loaded from the database apart from pending
// changes. Save writes only the changed columns and is a no-op when there
// are none:
//
//	u := model.New[User](db)
//	u.SetName("ada")
//	ok, err := u.Save(ctx) // INSERT INTO users (name) VALUES (?)
//
//	u, err = model.FindOne[User](ctx, db, model.Last)
//	u.Set("roles", []string{"admin", "dev"})
//	ok, err = u.Save(ctx) // UPDATE users SET roles = ? WHERE id = ?
//
// List columns are stored comma joined and bool columns as 0 or 1.
package model

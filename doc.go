// Package ardb is a relational database access layer: a fluent SQL query
// builder with a recursive predicate compiler, and an active-record model
// layer with field-level dirty tracking.
//
// A DB is opened from a Config and connects on first use:
//
//	cfg, err := ardb.LoadConfig("ardb.yaml", ".env")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	db, err := ardb.Open(cfg, ardb.WithLogger(logger))
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer db.Close()
//
// Queries are obtained per prefix namespace. The default namespace is "":
//
//	db.SetNamedPrefix("blog", "blog_")
//	rows, err := db.Query("blog").
//	    Select("posts", "id", "title").
//	    Where(sql.P{{"published", 1}}).
//	    OrderBy(sql.Desc("id")).
//	    Page(1, 20).
//	    Rows(ctx)
//
// Entities live in package model. Every executed statement is kept in a
// bounded query log, see DB.QueryLog.
package ardb

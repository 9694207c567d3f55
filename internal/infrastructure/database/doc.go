// Package database provides the SQLite connection used by Gray Logic AV.
//
// The store is small: dispatcher command history and the schema_migrations
// bookkeeping table. Connections run in WAL mode with a busy timeout and a
// single-connection pool, and the file is created with 0600 permissions.
//
// Usage:
//
//	db, err := database.Open(database.FromConfig(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migrations are embedded by the top-level migrations package. They are
// additive: new columns must be nullable or carry a default, and every
// .up.sql should ship with a .down.sql.
package database

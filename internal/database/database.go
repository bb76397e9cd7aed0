package database

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"

	_ "github.com/tursodatabase/go-libsql"
	_ "modernc.org/sqlite"
)

// Supported database/sql driver names.
const (
	DriverSQLite = "sqlite"
	DriverLibSQL = "libsql"
)

var pragmas = []string{
	"journal_mode(WAL)",
	"busy_timeout(5000)",
	"foreign_keys(1)",
}

// Open creates a SQLite connection pool configured for concurrent use:
// WAL journal mode, 5 s busy timeout, foreign keys enabled.
func Open(ctx context.Context, driver, path string) (*sql.DB, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = sql.Open(driver, sqliteDSN(path))
	case DriverLibSQL:
		db, err = openLibSQL(ctx, path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	return db, nil
}

// sqliteDSN passes pragmas in the DSN so modernc applies them to every
// pooled connection, not only the first. Write transactions start with
// BEGIN IMMEDIATE so they queue on the busy timeout instead of failing
// on lock upgrade.
func sqliteDSN(path string) string {
	q := url.Values{}
	for _, p := range pragmas {
		q.Add("_pragma", p)
	}
	q.Set("_txlock", "immediate")
	return "file:" + path + "?" + q.Encode()
}

func openLibSQL(ctx context.Context, path string) (*sql.DB, error) {
	db, err := sql.Open(DriverLibSQL, "file:"+path)
	if err != nil {
		return nil, err
	}
	// libSQL rejects Exec for PRAGMAs that return rows, but some PRAGMAs
	// (like foreign_keys=ON) return nothing. Use QueryContext and drain rows
	// to handle both cases uniformly. A single connection keeps them in
	// effect for every statement.
	db.SetMaxOpenConns(1)
	for _, p := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		rows, err := db.QueryContext(ctx, p)
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("executing %s: %w", p, err)
		}
		rows.Close()
	}
	return db, nil
}

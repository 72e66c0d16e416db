package database

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
)

// Open opens (and creates if needed) the sqlite database at dbPath.
// A single writer connection keeps sqlite's locking model simple; the
// busy timeout covers the brief contention that still occurs.
func Open(dbPath string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenMemory returns a fresh in-memory database, used by tests.
func OpenMemory() (*sql.DB, error) {
	return Open(":memory:")
}

// IsUniqueViolation reports whether err is a sqlite UNIQUE constraint
// failure. Repositories use it to turn duplicate inserts into conflicts.
func IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	return errors.As(err, &se) && se.ExtendedCode == sqlite3.ErrConstraintUnique
}

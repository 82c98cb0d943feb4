// Package sqlite implements the repository interfaces using SQLite as the
// storage backend.
//
// WHY SQLITE?
// The balances and the unlock ledger are payment-adjacent state — they must
// survive a process restart. SQLite gives us durable, transactional storage
// embedded in the binary: no separate server to run, and ":memory:" for
// tests.
//
// WHY modernc.org/sqlite INSTEAD OF github.com/mattn/go-sqlite3?
// mattn/go-sqlite3 uses CGo, which needs a C compiler and makes
// cross-compilation painful. modernc.org/sqlite is a pure Go translation of
// SQLite — works everywhere Go works.
//
// CONCURRENCY STRATEGY:
// The two dangerous mutations — debiting a balance and appending a grant —
// are each a single SQL statement, so SQLite serializes them for us:
//
//   - TryDebit is one conditional UPDATE (... AND token_balance >= ?).
//     Either the whole decrement applies or nothing does; no interleaving
//     can observe a stale balance.
//   - Append relies on the UNIQUE(user_id, photo_id) index. Two concurrent
//     inserts for the same pair cannot both succeed; the loser gets a
//     constraint violation that the service treats as "already unlocked".
//
// Short write contention (SQLITE_BUSY/SQLITE_LOCKED) is retried a bounded
// number of times with backoff; exhaustion surfaces apperror.ErrUnavailable,
// never a partial effect.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rahat/lenslock/internal/apperror"

	// Importing the driver registers "sqlite" with database/sql; the
	// package is also used directly for its Error type (see
	// isUniqueViolation and isBusy).
	sqlite "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// DB wraps a sql.DB connection pool and exposes the typed stores.
type DB struct {
	conn   *sql.DB
	users  *UserStore
	photos *PhotoStore
	grants *GrantStore
}

// New opens (or creates) the SQLite database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/lenslock.db" → file-based database (persistent)
//   - ":memory:"         → in-memory database (tests, lost on close)
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}

	// Ping forces a real connection now, so a bad path or permissions issue
	// surfaces here instead of on the first query.
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// SQLite allows one writer at a time. A single-connection pool turns
	// driver-level lock contention into plain queueing, and it keeps
	// ":memory:" databases coherent (each pool connection would otherwise
	// get its own empty in-memory database).
	conn.SetMaxOpenConns(1)

	// WAL keeps the file readable while a write is in flight.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Referential integrity between users, photos and unlocks.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	// Let the driver wait briefly for a write lock before reporting
	// SQLITE_BUSY; our own bounded retry sits on top of this.
	if _, err := conn.Exec("PRAGMA busy_timeout=5000"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting busy timeout: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	db.users = &UserStore{conn: conn}
	db.photos = &PhotoStore{conn: conn}
	db.grants = &GrantStore{conn: conn}
	return db, nil
}

// Users returns the account store.
func (db *DB) Users() *UserStore { return db.users }

// Photos returns the catalog store.
func (db *DB) Photos() *PhotoStore { return db.photos }

// Grants returns the unlock ledger.
func (db *DB) Grants() *GrantStore { return db.grants }

// Close closes the database connection pool. Always defer this next to New.
func (db *DB) Close() error {
	return db.conn.Close()
}

// migrate creates the schema. CREATE TABLE IF NOT EXISTS keeps this safe to
// run on every start.
//
// The two constraints the whole system leans on live here:
//   - users.token_balance CHECK (token_balance >= 0): the database itself
//     rejects any write that would take a balance negative.
//   - unlocks UNIQUE (user_id, photo_id): at most one grant per pair, even
//     under concurrent inserts.
func (db *DB) migrate() error {
	_, err := db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id            TEXT PRIMARY KEY,
			email         TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			is_creator    INTEGER NOT NULL DEFAULT 0,
			token_balance INTEGER NOT NULL DEFAULT 0 CHECK (token_balance >= 0),
			created_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at    DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("creating users table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS photos (
			id           TEXT PRIMARY KEY,
			creator_id   TEXT NOT NULL REFERENCES users(id),
			title        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			price_tokens INTEGER NOT NULL CHECK (price_tokens >= 0),
			preview_url  TEXT NOT NULL,
			original_url TEXT NOT NULL,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_photos_created_at ON photos(created_at);
	`)
	if err != nil {
		return fmt.Errorf("creating photos table: %w", err)
	}

	_, err = db.conn.Exec(`
		CREATE TABLE IF NOT EXISTS unlocks (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL REFERENCES users(id),
			photo_id     TEXT NOT NULL REFERENCES photos(id),
			tokens_spent INTEGER NOT NULL,
			created_at   DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, photo_id)
		);
		CREATE INDEX IF NOT EXISTS idx_unlocks_user_id ON unlocks(user_id);
	`)
	if err != nil {
		return fmt.Errorf("creating unlocks table: %w", err)
	}

	return nil
}

// isUniqueViolation reports whether err is a UNIQUE constraint failure.
// The service layer treats this as its idempotency signal, so it must be
// distinguishable from every other database error.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// isBusy reports whether err is short-lived write contention worth retrying.
func isBusy(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code() == sqlite3.SQLITE_BUSY || se.Code() == sqlite3.SQLITE_LOCKED
}

const (
	busyRetries = 3
	busyBackoff = 25 * time.Millisecond
)

// withBusyRetry runs op, retrying only on lock contention with exponential
// backoff. Any other error (including unique violations) passes straight
// through. Exhausting the budget yields apperror.ErrUnavailable — the
// operation never half-applied, so the caller can safely retry later.
func withBusyRetry(ctx context.Context, op func() error) error {
	var err error
	for attempt := 0; attempt <= busyRetries; attempt++ {
		if err = op(); !isBusy(err) {
			return err
		}
		select {
		case <-time.After(busyBackoff << attempt):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return apperror.Unavailable("storage is busy, please retry")
}

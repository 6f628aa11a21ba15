package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"entgo.io/ent/dialect"
	entsql "entgo.io/ent/dialect/sql"

	// Pure Go SQLite driver (no CGO).
	_ "modernc.org/sqlite"
)

// builder renders SQL for the SQLite dialect.
var builder = entsql.Dialect(dialect.SQLite)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store owns the database handle and hands out repositories.
type Store struct {
	db  *sql.DB
	seq *sequenceCounter
}

// Open creates a new Store connected to the SQLite database at dsn.
// It applies recommended pragmas and creates the schema.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite allows one writer at a time. A single connection keeps pragmas
	// and in-memory databases consistent; callers must never use the pool
	// while holding a transaction.
	db.SetMaxOpenConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply pragmas: %w", err)
	}

	if err := migrate(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	seq, err := newSequenceCounter(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, seq: seq}, nil
}

// DB returns the underlying *sql.DB for raw queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// NextTickID returns the next value of the global sequence, used to group
// the log entries of one scheduling tick.
func (s *Store) NextTickID(ctx context.Context) (int64, error) {
	id, err := s.seq.Next(ctx)
	if err != nil {
		return 0, &StorageError{Op: "next tick id", Err: err}
	}
	return id, nil
}

// Users returns a UserRepo backed by this store.
func (s *Store) Users() UserRepo { return &userRepo{db: s.db} }

// Skills returns a SkillRepo backed by this store.
func (s *Store) Skills() SkillRepo { return &skillRepo{db: s.db} }

// States returns a StateRepo backed by this store.
func (s *Store) States() StateRepo { return &stateRepo{db: s.db} }

// Calibration returns a CalibrationRepo backed by this store.
func (s *Store) Calibration() CalibrationRepo { return &calibrationRepo{db: s.db} }

// Challenges returns a ChallengeRepo backed by this store.
func (s *Store) Challenges() ChallengeRepo { return &challengeRepo{db: s.db} }

// AuditLog returns an AuditRepo backed by this store.
func (s *Store) AuditLog() AuditRepo { return &auditRepo{db: s.db} }

// EventRepo returns an EventRepo backed by this store.
func (s *Store) EventRepo() EventRepo { return &eventRepo{db: s.db} }

// applyPragmas configures SQLite for a single-process service.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("%s: %w", p, err)
		}
	}
	return nil
}

// withTx runs fn inside a transaction, committing on success.
func withTx(ctx context.Context, db *sql.DB, op string, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &StorageError{Op: op + ": begin", Err: err}
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return &StorageError{Op: op + ": commit", Err: err}
	}
	return nil
}

// DefaultDBPath resolves the database file path in priority order:
// 1. SKILLISSUE_DB environment variable
// 2. $XDG_DATA_HOME/skillissue/skillissue.db
// 3. ~/.local/share/skillissue/skillissue.db
func DefaultDBPath() (string, error) {
	if p := os.Getenv("SKILLISSUE_DB"); p != "" {
		return p, EnsureDir(p)
	}

	dataHome := os.Getenv("XDG_DATA_HOME")
	if dataHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		dataHome = filepath.Join(home, ".local", "share")
	}

	p := filepath.Join(dataHome, "skillissue", "skillissue.db")
	return p, EnsureDir(p)
}

// EnsureDir creates the parent directory of path if it doesn't exist.
func EnsureDir(path string) error {
	dir := filepath.Dir(path)
	return os.MkdirAll(dir, 0o755)
}

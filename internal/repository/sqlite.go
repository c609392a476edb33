package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SQLStore implements Store on database/sql. It runs on SQLite by default
// and on PostgreSQL when opened with a postgres:// URL.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
}

var _ Store = (*SQLStore)(nil)

// Open picks the backend from the shape of the connection string.
func Open(databaseURL string) (*SQLStore, error) {
	if isPostgresURL(databaseURL) {
		return NewPostgresStore(databaseURL)
	}
	return NewSQLiteStore(databaseURL)
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open(sqliteDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	// Keep a single connection to avoid schema/data disappearing across goroutines.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	// Enable foreign keys
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return newSQLStore(db, sqliteDialect)
}

// NewPostgresStore creates a new PostgreSQL store.
func NewPostgresStore(dsn string) (*SQLStore, error) {
	db, err := sql.Open(postgresDialect.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetConnMaxIdleTime(5 * time.Minute)
	return newSQLStore(db, postgresDialect)
}

func newSQLStore(db *sql.DB, d dialect) (*SQLStore, error) {
	store := &SQLStore{db: db, dialect: d}
	if err := store.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// migrate runs database migrations.
func (s *SQLStore) migrate(ctx context.Context) error {
	for _, m := range schema {
		ddl := strings.ReplaceAll(m, "{{ts}}", s.dialect.timestamp)
		if _, err := s.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("migration failed: %w\n%s", err, ddl)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *SQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close closes the database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Dialect returns the backend name, "sqlite" or "postgres".
func (s *SQLStore) Dialect() string {
	return s.dialect.name
}

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn rebinds placeholders for the active dialect before delegating.
type conn struct {
	q querier
	d dialect
}

func (c conn) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.q.ExecContext(ctx, c.d.rebind(query), args...)
}

func (c conn) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.q.QueryContext(ctx, c.d.rebind(query), args...)
}

func (c conn) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return c.q.QueryRowContext(ctx, c.d.rebind(query), args...)
}

func (s *SQLStore) conn() conn {
	return conn{q: s.db, d: s.dialect}
}

// withTx runs fn inside a transaction, rolling back on error or panic.
func (s *SQLStore) withTx(ctx context.Context, fn func(c conn) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(conn{q: tx, d: s.dialect}); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// exists reports whether table has a row with id; activeOnly excludes
// soft-deleted rows.
func (c conn) exists(ctx context.Context, table, id string, activeOnly bool) (bool, error) {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE id = ?`, table)
	if activeOnly {
		query += ` AND deleted_at IS NULL`
	}
	var one int
	err := c.queryRow(ctx, query, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// softDelete stamps deleted_at on an active row. Already-deleted rows are
// left untouched; unknown ids yield domain.ErrNotFound.
func (c conn) softDelete(ctx context.Context, table, entity, id string, at time.Time) error {
	res, err := c.exec(ctx,
		fmt.Sprintf(`UPDATE %s SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`, table),
		at, at, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	found, err := c.exists(ctx, table, id, false)
	if err != nil {
		return err
	}
	if !found {
		return notFound(entity, id)
	}
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// anyArgs converts a string slice into query arguments.
func anyArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

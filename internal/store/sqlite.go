package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLite is a Store backed by a local SQLite database.
type SQLite struct {
	db  *sqlx.DB
	now func() time.Time
}

type kvRow struct {
	Key       string `db:"key"`
	Value     []byte `db:"value"`
	ExpiresAt int64  `db:"expires_at"`
}

// NewSQLite opens (and creates if needed) the database at dbPath.
func NewSQLite(ctx context.Context, dbPath string) (*SQLite, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("database path is required")
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	sqlDB, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// SQLite doesn't handle concurrent writes well
	sqlDB.SetMaxOpenConns(1)

	if _, err := sqlDB.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	return &SQLite{
		db:  sqlx.NewDb(sqlDB, "sqlite"),
		now: time.Now,
	}, nil
}

// Migrate runs all pending schema migrations.
func (s *SQLite) Migrate(ctx context.Context) error {
	slog.Debug("running store migrations")

	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			applied_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return fmt.Errorf("create migrations table: %w", err)
	}

	var versions []string
	if err := s.db.SelectContext(ctx, &versions, "SELECT version FROM schema_migrations"); err != nil {
		return fmt.Errorf("query migrations: %w", err)
	}
	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}

	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	for _, file := range files {
		if applied[file] {
			continue
		}

		content, err := fs.ReadFile(migrationsFS, "migrations/"+file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if _, err := tx.ExecContext(ctx, extractUpMigration(string(content))); err != nil {
			tx.Rollback()
			return fmt.Errorf("execute migration %s: %w", file, err)
		}
		if _, err := tx.ExecContext(ctx, "INSERT INTO schema_migrations (version) VALUES (?)", file); err != nil {
			tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}

		slog.Info("migration applied", "file", file)
	}

	return nil
}

// extractUpMigration returns the part of a migration before the Down marker.
func extractUpMigration(content string) string {
	if idx := strings.Index(content, "-- +migrate Down"); idx != -1 {
		content = content[:idx]
	}
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "-- +migrate Up")
	return strings.TrimSpace(content)
}

func (s *SQLite) Put(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	row := kvRow{Key: key, Value: value}
	if ttl > 0 {
		row.ExpiresAt = s.now().Add(ttl).UnixMilli()
	}

	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO kv_entries (key, value, expires_at)
		VALUES (:key, :value, :expires_at)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, expires_at = excluded.expires_at
	`, row)
	if err != nil {
		return fmt.Errorf("put %s: %w", key, err)
	}
	return nil
}

func (s *SQLite) Get(ctx context.Context, key string) ([]byte, error) {
	var row kvRow
	err := s.db.GetContext(ctx, &row, "SELECT key, value, expires_at FROM kv_entries WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if row.expired(s.now()) {
		if err := s.Delete(ctx, key); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	return row.Value, nil
}

func (s *SQLite) Take(ctx context.Context, key string) ([]byte, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var row kvRow
	err = tx.GetContext(ctx, &row, "SELECT key, value, expires_at FROM kv_entries WHERE key = ?", key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("take %s: %w", key, err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return nil, fmt.Errorf("take %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit take %s: %w", key, err)
	}

	if row.expired(s.now()) {
		return nil, ErrNotFound
	}
	return row.Value, nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, "DELETE FROM kv_entries WHERE key = ?", key); err != nil {
		return fmt.Errorf("delete %s: %w", key, err)
	}
	return nil
}

// Purge deletes expired rows and reports how many were removed.
func (s *SQLite) Purge(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM kv_entries WHERE expires_at > 0 AND expires_at <= ?", s.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge expired entries: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

func (r kvRow) expired(now time.Time) bool {
	return r.ExpiresAt > 0 && r.ExpiresAt <= now.UnixMilli()
}

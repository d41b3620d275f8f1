package tier

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS tier_entries (
    tier_key   TEXT PRIMARY KEY,
    payload    BLOB NOT NULL,
    size       INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
`

// SQLite is the long-lived Store. Records survive process restarts and new sessions.
// Operations hold mu for reading so Close waits for them and they never see a half-closed db.
type SQLite struct {
	name  string
	path  string
	limit int64

	mu    sync.RWMutex
	sqlDB *sql.DB
}

// OpenSQLite opens (and creates when missing) the database at path.
func OpenSQLite(name, path string, quotaBytes int64) (*SQLite, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s: storage path is required", name)
	}

	cleanPath := filepath.Clean(path)
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("%s: create db dir: %w", name, err)
		}
	}

	dsn := cleanPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: open sqlite db: %w", name, err)
	}
	// One writer keeps the quota check and the upsert consistent.
	sqlDB.SetMaxOpenConns(1)

	if err = sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%s: ping sqlite db: %w", name, err)
	}
	if _, err = sqlDB.Exec(sqliteSchema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%s: apply schema: %w", name, err)
	}

	return &SQLite{name: name, path: cleanPath, limit: quotaBytes, sqlDB: sqlDB}, nil
}

func (s *SQLite) Name() string { return s.name }

func (s *SQLite) Read(ctx context.Context, key string) ([]byte, bool, error) {
	if s == nil {
		return nil, false, ErrNotConfigured
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sqlDB == nil {
		return nil, false, ErrNotConfigured
	}
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	var payload []byte
	row := s.sqlDB.QueryRowContext(ctx, `SELECT payload FROM tier_entries WHERE tier_key = ?`, key)
	if err := row.Scan(&payload); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s: read %q: %w", s.name, key, err)
	}
	return payload, true, nil
}

func (s *SQLite) Write(ctx context.Context, key string, data []byte) error {
	if s == nil {
		return ErrNotConfigured
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sqlDB == nil {
		return ErrNotConfigured
	}
	if key == "" {
		return ErrEmptyKey
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: write %q: begin: %w", s.name, key, err)
	}
	defer func() { _ = tx.Rollback() }()

	newSize := int64(len(data))
	if s.limit > 0 {
		var used, oldSize int64
		row := tx.QueryRowContext(ctx,
			`SELECT COALESCE(SUM(size), 0),
			        COALESCE(SUM(CASE WHEN tier_key = ? THEN size ELSE 0 END), 0)
			 FROM tier_entries`,
			key,
		)
		if err = row.Scan(&used, &oldSize); err != nil {
			return fmt.Errorf("%s: write %q: usage: %w", s.name, key, err)
		}
		q := quota{limit: s.limit, used: used}
		if !q.admit(oldSize, newSize) {
			return fmt.Errorf("%s: write %q (%d bytes): %w", s.name, key, newSize, ErrQuotaExceeded)
		}
	}

	if data == nil {
		data = []byte{}
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO tier_entries (tier_key, payload, size, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(tier_key) DO UPDATE SET
		    payload = excluded.payload,
		    size = excluded.size,
		    updated_at = excluded.updated_at`,
		key, data, newSize, time.Now().UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("%s: write %q: %w", s.name, key, err)
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%s: write %q: commit: %w", s.name, key, err)
	}
	return nil
}

func (s *SQLite) Delete(ctx context.Context, key string) error {
	if s == nil {
		return ErrNotConfigured
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sqlDB == nil {
		return ErrNotConfigured
	}
	if key == "" {
		return ErrEmptyKey
	}
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM tier_entries WHERE tier_key = ?`, key); err != nil {
		return fmt.Errorf("%s: delete %q: %w", s.name, key, err)
	}
	return nil
}

// Len returns the number of stored records.
func (s *SQLite) Len(ctx context.Context) (int, error) {
	if s == nil {
		return 0, ErrNotConfigured
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.sqlDB == nil {
		return 0, ErrNotConfigured
	}
	var n int
	if err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM tier_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s: count: %w", s.name, err)
	}
	return n, nil
}

// Close releases the underlying SQLite connection.
func (s *SQLite) Close() error {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sqlDB == nil {
		return nil
	}
	err := s.sqlDB.Close()
	s.sqlDB = nil
	return err
}

// Destroy closes the database and removes its files.
func (s *SQLite) Destroy() error {
	if err := s.Close(); err != nil {
		return fmt.Errorf("%s: close before destroy: %w", s.name, err)
	}
	for _, suffix := range []string{"", "-wal", "-shm"} {
		if err := os.Remove(s.path + suffix); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("%s: remove db file: %w", s.name, err)
		}
	}
	return nil
}

var (
	_ Store     = (*SQLite)(nil)
	_ Destroyer = (*SQLite)(nil)
)

// Package modindex persists the modification times collected by scans so a
// later run can tell which containers changed since they were last scanned.
package modindex

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/harrison/resscan/internal/filelock"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MemoryPath opens a private in-memory index
const MemoryPath = ":memory:"

// Entry is one recorded backing file
type Entry struct {
	File     string
	Modified time.Time
}

// Index is a sqlite-backed modification index. It is safe for concurrent use.
type Index struct {
	db     *sql.DB
	dbPath string
}

// Open opens (creating if needed) the index at dbPath.
func Open(dbPath string) (*Index, error) {
	if dbPath != MemoryPath {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if dbPath == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA busy_timeout=5000", // must be first
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}
	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}
	if err := execWithRetry(db, schemaSQL, 5, 10*time.Millisecond); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &Index{db: db, dbPath: dbPath}, nil
}

// execWithRetry executes a statement, backing off on "database is locked".
func execWithRetry(db *sql.DB, stmt string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(stmt)
		if err == nil {
			return nil
		}
		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}
		lastErr = err
		time.Sleep(baseDelay * time.Duration(1<<attempt))
	}
	return lastErr
}

// Path returns the database path
func (ix *Index) Path() string {
	return ix.dbPath
}

// Close closes the database
func (ix *Index) Close() error {
	if ix.db != nil {
		return ix.db.Close()
	}
	return nil
}

// Record upserts every file's modification time in one transaction. On-disk
// indexes are written under a file lock so concurrent runs do not interleave.
func (ix *Index) Record(ctx context.Context, mtimes map[string]time.Time) error {
	if len(mtimes) == 0 {
		return nil
	}
	if ix.dbPath == MemoryPath {
		return ix.record(ctx, mtimes)
	}
	return filelock.WithLock(ctx, ix.dbPath, func() error {
		return ix.record(ctx, mtimes)
	})
}

func (ix *Index) record(ctx context.Context, mtimes map[string]time.Time) error {
	tx, err := ix.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO container_mtimes (file, modified_ns, recorded_at)
		VALUES (?, ?, ?)
		ON CONFLICT(file) DO UPDATE SET modified_ns = excluded.modified_ns, recorded_at = excluded.recorded_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for file, mtime := range mtimes {
		if _, err := stmt.ExecContext(ctx, file, mtime.UnixNano(), now); err != nil {
			return fmt.Errorf("record %s: %w", file, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// Lookup returns the recorded modification time for file.
func (ix *Index) Lookup(ctx context.Context, file string) (time.Time, bool, error) {
	var ns int64
	err := ix.db.QueryRowContext(ctx, `SELECT modified_ns FROM container_mtimes WHERE file = ?`, file).Scan(&ns)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("lookup %s: %w", file, err)
	}
	return time.Unix(0, ns), true, nil
}

// IsStale reports whether file was never recorded or has changed since.
func (ix *Index) IsStale(ctx context.Context, file string, mtime time.Time) (bool, error) {
	recorded, ok, err := ix.Lookup(ctx, file)
	if err != nil {
		return false, err
	}
	if !ok {
		return true, nil
	}
	return mtime.After(recorded), nil
}

// All returns every recorded file sorted by path.
func (ix *Index) All(ctx context.Context) ([]Entry, error) {
	rows, err := ix.db.QueryContext(ctx, `SELECT file, modified_ns FROM container_mtimes`)
	if err != nil {
		return nil, fmt.Errorf("query index: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		var ns int64
		if err := rows.Scan(&e.File, &ns); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Modified = time.Unix(0, ns)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].File < entries[j].File })
	return entries, nil
}

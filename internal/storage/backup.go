package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Backup errors.
var (
	ErrBackupExists    = errors.New("backup already exists")
	ErrBackupCorrupted = errors.New("backup integrity check failed")
	ErrInvalidBackup   = errors.New("invalid backup path")
)

// BackupInfo describes a database snapshot.
type BackupInfo struct {
	CreatedAt     time.Time
	RowCounts     map[string]int
	Path          string
	FileSize      int64
	SchemaVersion int
}

// backedUpTables are the tables whose row counts are reported for a backup.
var backedUpTables = map[string]string{
	"transactions":            "SELECT COUNT(*) FROM transactions",
	"learned_rules":           "SELECT COUNT(*) FROM learned_rules",
	"categorization_feedback": "SELECT COUNT(*) FROM categorization_feedback",
	"recurring_confirmations": "SELECT COUNT(*) FROM recurring_confirmations",
}

// Backup writes a consistent snapshot of the database to destPath with VACUUM INTO
// and verifies it. destPath must be absolute and must not exist yet.
func (s *SQLiteStorage) Backup(ctx context.Context, destPath string) (*BackupInfo, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateBackupPath(destPath); err != nil {
		return nil, err
	}
	if _, err := os.Stat(destPath); err == nil {
		return nil, fmt.Errorf("%s: %w", destPath, ErrBackupExists)
	}
	if err := os.MkdirAll(filepath.Dir(destPath), 0750); err != nil {
		return nil, fmt.Errorf("failed to create backup directory: %w", err)
	}

	version, err := s.SchemaVersion(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.collectRowCounts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect row counts: %w", err)
	}

	// #nosec G201 - destPath is validated above
	if _, err := s.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", destPath)); err != nil {
		return nil, fmt.Errorf("failed to back up database: %w", err)
	}

	if err := VerifyBackup(ctx, destPath); err != nil {
		if rmErr := os.Remove(destPath); rmErr != nil {
			slog.Error("failed to remove corrupted backup", "path", destPath, "error", rmErr)
		}
		return nil, err
	}

	stat, err := os.Stat(destPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}

	slog.Info("Database backed up",
		"path", destPath,
		"size", stat.Size(),
		"schema_version", version)

	return &BackupInfo{
		CreatedAt:     time.Now(),
		RowCounts:     counts,
		Path:          destPath,
		FileSize:      stat.Size(),
		SchemaVersion: version,
	}, nil
}

// VerifyBackup runs SQLite's integrity check against the file at path.
func VerifyBackup(ctx context.Context, path string) error {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			slog.Error("failed to close backup", "error", err)
		}
	}()

	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&result); err != nil {
		return fmt.Errorf("%w: %w", ErrBackupCorrupted, err)
	}
	if result != "ok" {
		return fmt.Errorf("%w: %s", ErrBackupCorrupted, result)
	}
	return nil
}

func (s *SQLiteStorage) collectRowCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int, len(backedUpTables))
	for table, query := range backedUpTables {
		var count int
		if err := s.db.QueryRowContext(ctx, query).Scan(&count); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		counts[table] = count
	}
	return counts, nil
}

func validateBackupPath(path string) error {
	if !filepath.IsAbs(path) || filepath.Clean(path) != path {
		return fmt.Errorf("%w: %q must be a clean absolute path", ErrInvalidBackup, path)
	}
	if strings.ContainsAny(path, `'";`) {
		return fmt.Errorf("%w: %q contains forbidden characters", ErrInvalidBackup, path)
	}
	return nil
}

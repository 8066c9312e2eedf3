// Package config loads cofre's typed configuration from viper.
package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"
)

// InMemoryDatabase is the database path SQLite treats as a private in-memory store.
const InMemoryDatabase = ":memory:"

// ExpandPath resolves a leading ~ to the home directory and expands $VAR references.
func ExpandPath(path string) string {
	if path == "" || path == InMemoryDatabase {
		return path
	}

	if rest, ok := strings.CutPrefix(path, "~"); ok && (rest == "" || rest[0] == '/') {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + rest
		}
	}

	return filepath.Clean(os.ExpandEnv(path))
}

// DefaultBackupPath names a timestamped snapshot in a backups directory next to dbPath.
func DefaultBackupPath(dbPath string, at time.Time) string {
	name := "cofre-" + at.Format("2006-01-02-150405") + ".db"
	return filepath.Join(filepath.Dir(dbPath), "backups", name)
}

package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 5

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}
	return nil
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id TEXT PRIMARY KEY,
					hash TEXT UNIQUE NOT NULL,
					family_id TEXT NOT NULL,
					user_id TEXT NOT NULL DEFAULT '',
					account_id TEXT NOT NULL DEFAULT '',
					date DATETIME NOT NULL,
					description TEXT NOT NULL,
					description_key TEXT NOT NULL DEFAULT '',
					amount TEXT NOT NULL,
					type TEXT NOT NULL CHECK (type IN ('expense', 'income', 'transfer')),
					category_id TEXT NOT NULL DEFAULT '',
					subcategory_id TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_family_type_date ON transactions(family_id, type, date)`,
				`CREATE INDEX idx_transactions_user_key ON transactions(user_id, description_key)`,
			})
		},
	},
	{
		Version:     2,
		Description: "Add learned categorization rules",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS learned_rules (
					id TEXT PRIMARY KEY,
					scope_type TEXT NOT NULL CHECK (scope_type IN ('user', 'family', 'global')),
					scope_id TEXT NOT NULL DEFAULT '',
					fingerprint_type TEXT NOT NULL CHECK (fingerprint_type IN ('strong', 'weak')),
					fingerprint TEXT NOT NULL CHECK (fingerprint <> ''),
					category_id TEXT NOT NULL,
					subcategory_id TEXT NOT NULL DEFAULT '',
					merchant_canon TEXT NOT NULL DEFAULT '',
					confidence_base REAL NOT NULL CHECK (confidence_base >= 0 AND confidence_base <= 1),
					examples_count INTEGER NOT NULL DEFAULT 1 CHECK (examples_count >= 1),
					conflict_count INTEGER NOT NULL DEFAULT 0 CHECK (conflict_count >= 0),
					is_archived INTEGER NOT NULL DEFAULT 0,
					last_used_at DATETIME NOT NULL,
					created_at DATETIME NOT NULL,
					updated_at DATETIME NOT NULL
				)`,
				// At most one active rule per key; archived rows are kept for history.
				`CREATE UNIQUE INDEX idx_learned_rules_active_key
					ON learned_rules(scope_type, scope_id, fingerprint)
					WHERE is_archived = 0`,
				`CREATE INDEX idx_learned_rules_fingerprint ON learned_rules(fingerprint, is_archived)`,
			})
		},
	},
	{
		Version:     3,
		Description: "Add categorization feedback audit trail",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS categorization_feedback (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL DEFAULT '',
					user_id TEXT NOT NULL,
					family_id TEXT NOT NULL DEFAULT '',
					raw_descriptor TEXT NOT NULL,
					normalized_descriptor TEXT NOT NULL DEFAULT '',
					fingerprint_strong TEXT NOT NULL DEFAULT '',
					fingerprint_weak TEXT NOT NULL DEFAULT '',
					predicted_category_id TEXT NOT NULL DEFAULT '',
					predicted_subcategory_id TEXT NOT NULL DEFAULT '',
					predicted_source TEXT NOT NULL DEFAULT '',
					predicted_confidence REAL NOT NULL DEFAULT 0,
					user_category_id TEXT NOT NULL,
					user_subcategory_id TEXT NOT NULL DEFAULT '',
					apply_scope TEXT NOT NULL,
					apply_to_future INTEGER NOT NULL DEFAULT 0,
					action TEXT NOT NULL DEFAULT 'none',
					rule_id TEXT NOT NULL DEFAULT '',
					conflict INTEGER NOT NULL DEFAULT 0,
					created_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_feedback_user_created ON categorization_feedback(user_id, created_at)`,
			})
		},
	},
	{
		Version:     4,
		Description: "Add recurring expense confirmations",
		Up: func(tx *sql.Tx) error {
			return execAll(tx, []string{
				`CREATE TABLE IF NOT EXISTS recurring_confirmations (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					family_id TEXT NOT NULL,
					category_id TEXT NOT NULL,
					subcategory_id TEXT NOT NULL DEFAULT '',
					month_ref TEXT NOT NULL,
					confirmation_type TEXT NOT NULL CHECK (confirmation_type IN ('no_payment', 'registered', 'ignored')),
					confirmed_by_user_id TEXT NOT NULL,
					updated_at DATETIME NOT NULL,
					UNIQUE(family_id, category_id, subcategory_id, month_ref)
				)`,
				`CREATE INDEX idx_recurring_confirmations_month ON recurring_confirmations(family_id, month_ref)`,
			})
		},
	},
	{
		Version:     5,
		Description: "Track rule revisions for conflict reporting",
		Up: func(tx *sql.Tx) error {
			if err := execAll(tx, []string{
				`ALTER TABLE learned_rules ADD COLUMN revision INTEGER NOT NULL DEFAULT 0`,
				`ALTER TABLE learned_rules ADD COLUMN previous_category_id TEXT NOT NULL DEFAULT ''`,
				`ALTER TABLE learned_rules ADD COLUMN previous_subcategory_id TEXT NOT NULL DEFAULT ''`,
			}); err != nil {
				return err
			}

			// Existing rows have been touched at least once per extra example.
			if _, err := tx.Exec(`UPDATE learned_rules SET revision = examples_count + conflict_count - 1`); err != nil {
				return fmt.Errorf("failed to backfill rule revisions: %w", err)
			}

			slog.Info("Added revision tracking to learned rules")
			return nil
		},
	},
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	// Get current version
	var currentVersion int
	err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&currentVersion)
	if err != nil {
		return fmt.Errorf("failed to get schema version: %w", err)
	}

	// Apply migrations
	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		// Update version
		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	// Verify we're at the expected schema version
	var finalVersion int
	err = s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&finalVersion)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the schema version currently applied to the database.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

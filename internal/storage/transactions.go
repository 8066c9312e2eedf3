package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/service"
)

const transactionColumns = `id, hash, family_id, user_id, account_id, date, description,
	description_key, amount, type, category_id, subcategory_id`

// SaveTransactions saves multiple transactions to the database. Transactions whose
// hash is already stored are skipped; the number actually inserted is returned.
func (s *SQLiteStorage) SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error) {
	// Validate inputs
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateTransactions(transactions); err != nil {
		return 0, err
	}

	var inserted int
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		inserted = 0

		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO transactions (
				id, hash, family_id, user_id, account_id, date, description,
				description_key, amount, type, category_id, subcategory_id
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, txn := range transactions {
			// Generate hash if not already set
			if txn.Hash == "" {
				txn.Hash = txn.GenerateHash()
			}

			result, err := stmt.ExecContext(ctx,
				txn.ID,
				txn.Hash,
				txn.FamilyID,
				txn.UserID,
				txn.AccountID,
				txn.Date.UTC(),
				txn.Description,
				txn.DescriptionKey,
				txn.Amount.String(),
				string(txn.Type),
				txn.CategoryID,
				txn.SubcategoryID,
			)
			if err != nil {
				return fmt.Errorf("failed to insert transaction %s: %w", txn.ID, err)
			}

			affected, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("failed to get rows affected: %w", err)
			}
			inserted += int(affected)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return inserted, nil
}

func scanTransaction(row rowScanner) (*model.Transaction, error) {
	var txn model.Transaction
	var txnType string

	err := row.Scan(
		&txn.ID, &txn.Hash, &txn.FamilyID, &txn.UserID, &txn.AccountID, &txn.Date,
		&txn.Description, &txn.DescriptionKey, &txn.Amount, &txnType,
		&txn.CategoryID, &txn.SubcategoryID,
	)
	if err != nil {
		return nil, err
	}

	if txn.Type, err = model.ParseTransactionType(txnType); err != nil {
		return nil, fmt.Errorf("transaction %s: %w", txn.ID, err)
	}

	return &txn, nil
}

// GetTransactionByID retrieves a single transaction by its ID.
func (s *SQLiteStorage) GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	txn, err := scanTransaction(s.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to get transaction: %w", err))
	}

	return txn, nil
}

// UpdateTransactionCategory sets the category of a stored transaction.
func (s *SQLiteStorage) UpdateTransactionCategory(ctx context.Context, id, categoryID, subcategoryID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if err := validateString(categoryID, "categoryID"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `
			UPDATE transactions
			SET category_id = ?, subcategory_id = ?, updated_at = CURRENT_TIMESTAMP
			WHERE id = ?
		`, categoryID, subcategoryID, id)
		if err != nil {
			return fmt.Errorf("failed to update transaction category: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected == 0 {
			return fmt.Errorf("transaction %s: %w", id, common.ErrNotFound)
		}
		return nil
	})
}

// GetExpenses returns a family's categorized expenses with start <= date < end, oldest first.
func (s *SQLiteStorage) GetExpenses(ctx context.Context, familyID string, start, end time.Time) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(familyID, "familyID"); err != nil {
		return nil, err
	}
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end date %v is before start date %v", ErrInvalidDateRange, end, start)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+transactionColumns+`
		FROM transactions
		WHERE family_id = ?
			AND type = 'expense'
			AND category_id <> ''
			AND date >= ? AND date < ?
		ORDER BY date ASC, id ASC
	`, familyID, start.UTC(), end.UTC())
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to query expenses: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var transactions []model.Transaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, *txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating transactions: %w", err)
	}

	return transactions, nil
}

// GetCategoryHistory aggregates a user's categorized transactions for one description
// key since the given date, one entry per (category, subcategory).
func (s *SQLiteStorage) GetCategoryHistory(ctx context.Context, userID, descriptionKey string, since time.Time) ([]service.HistoryAggregate, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if err := validateString(descriptionKey, "descriptionKey"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT category_id, subcategory_id, date
		FROM transactions
		WHERE user_id = ?
			AND description_key = ?
			AND category_id <> ''
			AND date >= ?
		ORDER BY date DESC
	`, userID, descriptionKey, since.UTC())
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to query category history: %w", err))
	}
	defer func() { _ = rows.Close() }()

	index := make(map[model.CategoryKey]int)
	var aggregates []service.HistoryAggregate
	for rows.Next() {
		var key model.CategoryKey
		var date time.Time
		if err := rows.Scan(&key.CategoryID, &key.SubcategoryID, &date); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}

		i, ok := index[key]
		if !ok {
			// Rows are newest first, so the first sighting is the last use.
			index[key] = len(aggregates)
			aggregates = append(aggregates, service.HistoryAggregate{
				CategoryID:    key.CategoryID,
				SubcategoryID: key.SubcategoryID,
				LastUsedAt:    date,
				Occurrences:   1,
			})
			continue
		}
		aggregates[i].Occurrences++
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return aggregates, nil
}

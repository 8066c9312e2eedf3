package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/Veraticus/cofre/internal/model"
)

// UpsertConfirmation records a user's resolution for (family, category, subcategory, month).
// A later confirmation for the same key replaces the earlier one.
func (s *SQLiteStorage) UpsertConfirmation(ctx context.Context, confirmation *model.RecurringConfirmation) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateConfirmation(confirmation); err != nil {
		return err
	}
	if confirmation.UpdatedAt.IsZero() {
		confirmation.UpdatedAt = time.Now()
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO recurring_confirmations (
				family_id, category_id, subcategory_id, month_ref,
				confirmation_type, confirmed_by_user_id, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(family_id, category_id, subcategory_id, month_ref) DO UPDATE SET
				confirmation_type = excluded.confirmation_type,
				confirmed_by_user_id = excluded.confirmed_by_user_id,
				updated_at = excluded.updated_at
		`,
			confirmation.FamilyID, confirmation.CategoryID, confirmation.SubcategoryID,
			string(confirmation.MonthRef), string(confirmation.ConfirmationType),
			confirmation.ConfirmedByUserID, confirmation.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert confirmation: %w", err)
		}
		return nil
	})
}

// GetConfirmations returns every confirmation a family made for a month.
func (s *SQLiteStorage) GetConfirmations(ctx context.Context, familyID string, month model.MonthRef) ([]model.RecurringConfirmation, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(familyID, "familyID"); err != nil {
		return nil, err
	}
	if _, err := model.ParseMonthRef(string(month)); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT family_id, category_id, subcategory_id, month_ref,
			confirmation_type, confirmed_by_user_id, updated_at
		FROM recurring_confirmations
		WHERE family_id = ? AND month_ref = ?
		ORDER BY category_id, subcategory_id
	`, familyID, string(month))
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to query confirmations: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var confirmations []model.RecurringConfirmation
	for rows.Next() {
		var c model.RecurringConfirmation
		var monthRef, confirmationType string
		if err := rows.Scan(
			&c.FamilyID, &c.CategoryID, &c.SubcategoryID, &monthRef,
			&confirmationType, &c.ConfirmedByUserID, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan confirmation: %w", err)
		}
		c.MonthRef = model.MonthRef(monthRef)
		if c.ConfirmationType, err = model.ParseConfirmationType(confirmationType); err != nil {
			return nil, err
		}
		confirmations = append(confirmations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating confirmations: %w", err)
	}

	return confirmations, nil
}

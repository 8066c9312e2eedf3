package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/cofre/internal/model"
)

// SaveFeedback appends a correction to the audit trail. ID and CreatedAt are
// filled in when empty.
func (s *SQLiteStorage) SaveFeedback(ctx context.Context, feedback *model.Feedback) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFeedback(feedback); err != nil {
		return err
	}

	if feedback.ID == "" {
		feedback.ID = uuid.NewString()
	}
	if feedback.CreatedAt.IsZero() {
		feedback.CreatedAt = time.Now()
	}
	if feedback.Action == "" {
		feedback.Action = model.ActionNone
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO categorization_feedback (
				id, transaction_id, user_id, family_id, raw_descriptor,
				normalized_descriptor, fingerprint_strong, fingerprint_weak,
				predicted_category_id, predicted_subcategory_id, predicted_source, predicted_confidence,
				user_category_id, user_subcategory_id, apply_scope, apply_to_future,
				action, rule_id, conflict, created_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			feedback.ID, feedback.TransactionID, feedback.UserID, feedback.FamilyID, feedback.RawDescriptor,
			feedback.Fingerprint.Normalized, feedback.Fingerprint.Strong, feedback.Fingerprint.Weak,
			feedback.Predicted.CategoryID, feedback.Predicted.SubcategoryID,
			string(feedback.Predicted.Source), feedback.Predicted.Confidence,
			feedback.UserCategoryID, feedback.UserSubcategoryID, string(feedback.Scope), feedback.ApplyToFuture,
			string(feedback.Action), feedback.RuleID, feedback.Conflict, feedback.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("failed to save feedback: %w", err)
		}
		return nil
	})
}

// ListFeedback returns a user's most recent corrections, newest first.
func (s *SQLiteStorage) ListFeedback(ctx context.Context, userID string, limit int) ([]model.Feedback, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(userID, "userID"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, user_id, family_id, raw_descriptor,
			normalized_descriptor, fingerprint_strong, fingerprint_weak,
			predicted_category_id, predicted_subcategory_id, predicted_source, predicted_confidence,
			user_category_id, user_subcategory_id, apply_scope, apply_to_future,
			action, rule_id, conflict, created_at
		FROM categorization_feedback
		WHERE user_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`, userID, limit)
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to list feedback: %w", err))
	}
	defer func() { _ = rows.Close() }()

	var feedback []model.Feedback
	for rows.Next() {
		var f model.Feedback
		var source, scope, action string
		if err := rows.Scan(
			&f.ID, &f.TransactionID, &f.UserID, &f.FamilyID, &f.RawDescriptor,
			&f.Fingerprint.Normalized, &f.Fingerprint.Strong, &f.Fingerprint.Weak,
			&f.Predicted.CategoryID, &f.Predicted.SubcategoryID, &source, &f.Predicted.Confidence,
			&f.UserCategoryID, &f.UserSubcategoryID, &scope, &f.ApplyToFuture,
			&action, &f.RuleID, &f.Conflict, &f.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		f.Fingerprint.DescriptionKey = f.Fingerprint.Normalized
		f.Predicted.Source = model.Source(source)
		f.Scope = model.Scope(scope)
		f.Action = model.FeedbackAction(action)
		feedback = append(feedback, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating feedback: %w", err)
	}

	return feedback, nil
}

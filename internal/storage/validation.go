// Package storage provides the data persistence layer for cofre.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/service"
)

// Validation errors.
var (
	ErrNilContext          = errors.New("context cannot be nil")
	ErrEmptyString         = errors.New("string parameter cannot be empty")
	ErrNilParameter        = errors.New("parameter cannot be nil")
	ErrEmptySlice          = errors.New("slice cannot be empty")
	ErrInvalidDateRange    = errors.New("start date must be before end date")
	ErrInvalidTransaction  = errors.New("invalid transaction")
	ErrInvalidRule         = errors.New("invalid rule")
	ErrInvalidFeedback     = errors.New("invalid feedback")
	ErrInvalidConfirmation = errors.New("invalid confirmation")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateTransactions validates a slice of transactions.
func validateTransactions(transactions []model.Transaction) error {
	if transactions == nil {
		return fmt.Errorf("%w: transactions", ErrNilParameter)
	}
	if len(transactions) == 0 {
		return fmt.Errorf("%w: transactions", ErrEmptySlice)
	}

	for i := range transactions {
		if err := validateTransaction(&transactions[i]); err != nil {
			return fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	return nil
}

// validateTransaction validates a single transaction.
func validateTransaction(txn *model.Transaction) error {
	if txn == nil {
		return fmt.Errorf("%w: transaction", ErrNilParameter)
	}
	if txn.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidTransaction)
	}
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if strings.TrimSpace(txn.Description) == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidTransaction)
	}
	if txn.FamilyID == "" {
		return fmt.Errorf("%w: missing family ID", ErrInvalidTransaction)
	}
	if _, err := model.ParseTransactionType(string(txn.Type)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidTransaction, err)
	}
	return nil
}

// validateRuleUpsert validates a create-or-reinforce request.
func validateRuleUpsert(req *service.RuleUpsert) error {
	if _, err := model.ParseScope(string(req.ScopeType)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	if req.ScopeType != model.ScopeGlobal && req.ScopeID == "" {
		return fmt.Errorf("%w: %s scope requires an owner", ErrInvalidRule, req.ScopeType)
	}
	if req.ScopeType == model.ScopeGlobal && req.ScopeID != "" {
		return fmt.Errorf("%w: global scope has no owner", ErrInvalidRule)
	}
	if _, err := model.ParseFingerprintType(string(req.FingerprintType)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	if strings.TrimSpace(req.Fingerprint) == "" {
		return fmt.Errorf("%w: empty fingerprint", ErrInvalidRule)
	}
	if strings.TrimSpace(req.CategoryID) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidRule)
	}
	if _, err := model.ParseConflictPolicy(string(req.Policy)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	if req.SeedConfidence < 0 || req.SeedConfidence > 1 {
		return fmt.Errorf("%w: seed confidence must be between 0 and 1", ErrInvalidRule)
	}
	return nil
}

// validateFeedback validates an audit record.
func validateFeedback(feedback *model.Feedback) error {
	if feedback == nil {
		return fmt.Errorf("%w: feedback", ErrNilParameter)
	}
	if feedback.UserID == "" {
		return fmt.Errorf("%w: missing user", ErrInvalidFeedback)
	}
	if strings.TrimSpace(feedback.RawDescriptor) == "" {
		return fmt.Errorf("%w: missing descriptor", ErrInvalidFeedback)
	}
	if feedback.UserCategoryID == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidFeedback)
	}
	return nil
}

// validateConfirmation validates a recurring confirmation.
func validateConfirmation(c *model.RecurringConfirmation) error {
	if c == nil {
		return fmt.Errorf("%w: confirmation", ErrNilParameter)
	}
	if c.FamilyID == "" {
		return fmt.Errorf("%w: missing family", ErrInvalidConfirmation)
	}
	if c.CategoryID == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidConfirmation)
	}
	if _, err := model.ParseMonthRef(string(c.MonthRef)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfirmation, err)
	}
	if _, err := model.ParseConfirmationType(string(c.ConfirmationType)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfirmation, err)
	}
	if c.ConfirmedByUserID == "" {
		return fmt.Errorf("%w: missing confirming user", ErrInvalidConfirmation)
	}
	return nil
}

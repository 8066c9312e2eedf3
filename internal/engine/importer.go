package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/normalize"
)

// DefaultImportMinConfidence is the lowest suggestion confidence applied automatically on import.
const DefaultImportMinConfidence = 0.7

// ImportResult summarizes an import run.
type ImportResult struct {
	Total       int `json:"total"`
	Categorized int `json:"categorized"`
	Inserted    int `json:"inserted"`
	Skipped     int `json:"skipped"`
}

// ProgressFunc is called after each transaction is categorized.
type ProgressFunc func(done, total int)

// Importer categorizes parsed transactions and persists them.
type Importer struct {
	suggester     Suggester
	store         TransactionSaver
	normalizer    *normalize.Normalizer
	progress      ProgressFunc
	minConfidence float64
}

// ImporterOption configures an Importer.
type ImporterOption func(*Importer)

// WithMinConfidence sets the auto-categorization threshold.
func WithMinConfidence(minConfidence float64) ImporterOption {
	return func(i *Importer) {
		if minConfidence > 0 {
			i.minConfidence = minConfidence
		}
	}
}

// WithProgress installs a progress callback.
func WithProgress(fn ProgressFunc) ImporterOption {
	return func(i *Importer) {
		i.progress = fn
	}
}

// NewImporter creates an importer.
func NewImporter(suggester Suggester, store TransactionSaver, opts ...ImporterOption) *Importer {
	i := &Importer{
		suggester:     suggester,
		store:         store,
		normalizer:    normalize.New(normalize.DefaultStrongTokens),
		minConfidence: DefaultImportMinConfidence,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Import stamps transactions with the actor's identity, auto-categorizes expenses
// the suggester is confident about and saves them. Already-categorized
// transactions keep their category.
func (i *Importer) Import(ctx context.Context, actor model.Actor, transactions []model.Transaction) (ImportResult, error) {
	result := ImportResult{Total: len(transactions)}
	if !actor.Authenticated() {
		return result, common.NewUserError("authentication required", common.ErrUnauthenticated)
	}
	if actor.FamilyID == "" {
		return result, common.NewUserError("importing requires a family", common.ErrInvalidInput)
	}
	if len(transactions) == 0 {
		return result, nil
	}

	prepared := make([]model.Transaction, len(transactions))
	for n, txn := range transactions {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		txn.FamilyID = actor.FamilyID
		txn.UserID = actor.UserID
		if txn.ID == "" {
			txn.ID = uuid.NewString()
		}
		if txn.Type == "" {
			txn.Type = model.TypeForAmount(txn.Amount)
		}
		txn.DescriptionKey = i.normalizer.Fingerprint(txn.Description).DescriptionKey
		if txn.Hash == "" {
			txn.Hash = txn.GenerateHash()
		}

		if txn.CategoryID == "" && i.suggester != nil {
			s := i.suggester.Suggest(ctx, actor, txn.Description)
			if !s.IsFallback() && s.Confidence >= i.minConfidence {
				txn.CategoryID = s.CategoryID
				txn.SubcategoryID = s.SubcategoryID
			}
		}
		if txn.CategoryID != "" {
			result.Categorized++
		}

		prepared[n] = txn
		if i.progress != nil {
			i.progress(n+1, len(transactions))
		}
	}

	inserted, err := i.store.SaveTransactions(ctx, prepared)
	if err != nil {
		return result, fmt.Errorf("failed to save transactions: %w", err)
	}
	result.Inserted = inserted
	result.Skipped = len(prepared) - inserted

	common.LogInfo("Imported transactions", common.Fields{
		"family_id":   actor.FamilyID,
		"total":       result.Total,
		"categorized": result.Categorized,
		"inserted":    result.Inserted,
		"skipped":     result.Skipped,
	})

	return result, nil
}

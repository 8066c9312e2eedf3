// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/cofre/internal/model"
)

// RuleUpsert is a create-or-reinforce request for one (scope, fingerprint) key.
type RuleUpsert struct {
	Now             time.Time
	ScopeType       model.Scope
	ScopeID         string
	FingerprintType model.FingerprintType
	Fingerprint     string
	CategoryID      string
	SubcategoryID   string
	MerchantCanon   string
	Policy          model.ConflictPolicy
	SeedConfidence  float64
}

// RuleUpsertResult reports what the upsert did to the active rule.
type RuleUpsertResult struct {
	Rule                  model.LearnedRule
	PreviousCategoryID    string
	PreviousSubcategoryID string
	Created               bool
	Conflict              bool
}

// RuleFilter narrows rule listings.
type RuleFilter struct {
	ScopeType       *model.Scope
	ScopeID         *string
	CategoryID      string
	Limit           int
	IncludeArchived bool
}

// RuleStore persists learned categorization rules.
type RuleStore interface {
	// LookupRule returns the best active rule for the fingerprints, or common.ErrNotFound.
	LookupRule(ctx context.Context, userID, familyID, strong, weak string) (*model.LearnedRule, error)
	UpsertRule(ctx context.Context, req RuleUpsert) (RuleUpsertResult, error)
	GetRule(ctx context.Context, id string) (*model.LearnedRule, error)
	ListRules(ctx context.Context, filter RuleFilter) ([]model.LearnedRule, error)
	ArchiveRule(ctx context.Context, id string) error
	FindSimilarRules(ctx context.Context, scope model.Scope, scopeID, fingerprint string, maxDistance int) ([]model.LearnedRule, error)
}

// FeedbackStore keeps the audit trail of corrections.
type FeedbackStore interface {
	SaveFeedback(ctx context.Context, feedback *model.Feedback) error
	ListFeedback(ctx context.Context, userID string, limit int) ([]model.Feedback, error)
}

// HistoryAggregate summarizes a user's past categorizations of one description key.
type HistoryAggregate struct {
	LastUsedAt    time.Time
	CategoryID    string
	SubcategoryID string
	Occurrences   int
}

// TransactionStore persists transaction history.
type TransactionStore interface {
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id, categoryID, subcategoryID string) error
	// GetExpenses returns categorized expenses of a family with start <= date < end.
	GetExpenses(ctx context.Context, familyID string, start, end time.Time) ([]model.Transaction, error)
	// GetCategoryHistory aggregates a user's categorized transactions for a description key since a date.
	GetCategoryHistory(ctx context.Context, userID, descriptionKey string, since time.Time) ([]HistoryAggregate, error)
}

// ConfirmationStore persists recurring-expense resolutions.
type ConfirmationStore interface {
	UpsertConfirmation(ctx context.Context, confirmation *model.RecurringConfirmation) error
	GetConfirmations(ctx context.Context, familyID string, month model.MonthRef) ([]model.RecurringConfirmation, error)
}

// Storage is the full persistence layer.
type Storage interface {
	RuleStore
	FeedbackStore
	TransactionStore
	ConfirmationStore

	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

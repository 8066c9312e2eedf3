package engine

import (
	"context"
	"time"

	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/service"
)

// Suggester produces the single best categorization for a raw descriptor.
// Implementations never fail: problems degrade to the fallback suggestion.
type Suggester interface {
	Suggest(ctx context.Context, actor model.Actor, rawDescriptor string) model.Suggestion
}

// Heuristic is the cascade tier tried after the descriptor dictionary.
// A nil suggestion means no match.
type Heuristic interface {
	Suggest(ctx context.Context, actor model.Actor, fp model.Fingerprint) (*model.Suggestion, error)
}

// NoopHeuristic never matches.
type NoopHeuristic struct{}

// Suggest always falls through.
func (NoopHeuristic) Suggest(context.Context, model.Actor, model.Fingerprint) (*model.Suggestion, error) {
	return nil, nil
}

// Invalidator drops cached state affected by a change at scope made by actor.
type Invalidator interface {
	Invalidate(scope model.Scope, actor model.Actor)
}

// HistoryStore provides a user's categorization history.
type HistoryStore interface {
	GetCategoryHistory(ctx context.Context, userID, descriptionKey string, since time.Time) ([]service.HistoryAggregate, error)
}

// LearningStore is what the feedback pipeline writes to.
type LearningStore interface {
	service.RuleStore
	service.FeedbackStore
	GetTransactionByID(ctx context.Context, id string) (*model.Transaction, error)
	UpdateTransactionCategory(ctx context.Context, id, categoryID, subcategoryID string) error
}

// TransactionSaver persists imported transactions.
type TransactionSaver interface {
	SaveTransactions(ctx context.Context, transactions []model.Transaction) (int, error)
}

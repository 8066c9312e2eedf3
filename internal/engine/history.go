package engine

import (
	"context"
	"math"
	"time"

	"github.com/Veraticus/cofre/internal/cache"
	"github.com/Veraticus/cofre/internal/classification"
	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/normalize"
	"github.com/Veraticus/cofre/internal/service"
)

// DefaultHistoryWindow is how far back user history is considered.
const DefaultHistoryWindow = 180 * 24 * time.Hour

// History confidence shape.
const (
	historyBaseConfidence = 0.7
	historyStep           = 0.05
	historyMaxConfidence  = 0.95
	historyMaxDecay       = 0.2
	historyMinRecency     = 0.8
)

// HistorySuggester ranks categories by the user's own past transactions with
// the same description key, then falls back to the dictionary.
type HistorySuggester struct {
	history    HistoryStore
	dictionary *classification.Dictionary
	normalizer *normalize.Normalizer
	cache      *cache.TTL[string, []service.HistoryAggregate]
	now        func() time.Time
	window     time.Duration
}

// HistoryConfig holds configuration options for the history suggester.
type HistoryConfig struct {
	CacheTTL     time.Duration
	Window       time.Duration
	StrongTokens int
}

// NewHistorySuggester creates a history-ranked suggester.
func NewHistorySuggester(history HistoryStore, dictionary *classification.Dictionary, config HistoryConfig) *HistorySuggester {
	if config.Window <= 0 {
		config.Window = DefaultHistoryWindow
	}
	return &HistorySuggester{
		history:    history,
		dictionary: dictionary,
		normalizer: normalize.New(config.StrongTokens),
		cache:      cache.New[string, []service.HistoryAggregate](config.CacheTTL),
		now:        time.Now,
		window:     config.Window,
	}
}

// Close releases the aggregate cache.
func (h *HistorySuggester) Close() {
	h.cache.Close()
}

// Suggest returns the best categorization for rawDescriptor using history → dictionary → fallback.
func (h *HistorySuggester) Suggest(ctx context.Context, actor model.Actor, rawDescriptor string) model.Suggestion {
	fp := h.normalizer.Fingerprint(rawDescriptor)
	if normalize.MeaningfulLength(fp.Normalized) < MinMeaningfulLength {
		return model.FallbackSuggestion()
	}

	if actor.Authenticated() && h.history != nil {
		aggregates, err := h.aggregates(ctx, actor.UserID, fp.DescriptionKey)
		if err != nil {
			common.LogWarn(err, "History lookup failed, falling through", common.Fields{
				"user_id":    actor.UserID,
				"descriptor": fp.Normalized,
			})
		} else if s, ok := h.rank(aggregates); ok {
			return s
		}
	}

	if h.dictionary != nil {
		if match, ok := h.dictionary.Lookup(fp.Normalized); ok {
			return match.Suggestion()
		}
	}

	return model.FallbackSuggestion()
}

func (h *HistorySuggester) aggregates(ctx context.Context, userID, descriptionKey string) ([]service.HistoryAggregate, error) {
	key := userKeyPrefix(userID) + descriptionKey
	if cached, ok := h.cache.Get(key); ok {
		return cached, nil
	}

	gen := h.cache.Generation()
	aggregates, err := h.history.GetCategoryHistory(ctx, userID, descriptionKey, h.now().Add(-h.window))
	if err != nil {
		return nil, err
	}

	h.cache.SetIfGeneration(key, aggregates, gen)
	return aggregates, nil
}

// rank picks the aggregate with the highest confidence; ties go to the most recent use.
func (h *HistorySuggester) rank(aggregates []service.HistoryAggregate) (model.Suggestion, bool) {
	var (
		best     *service.HistoryAggregate
		bestConf float64
	)

	now := h.now()
	for i := range aggregates {
		a := &aggregates[i]
		if a.CategoryID == "" || a.Occurrences < 1 {
			continue
		}

		conf := HistoryConfidence(a.Occurrences, now.Sub(a.LastUsedAt), h.window)
		if best == nil || conf > bestConf || (conf == bestConf && a.LastUsedAt.After(best.LastUsedAt)) {
			best, bestConf = a, conf
		}
	}

	if best == nil {
		return model.Suggestion{}, false
	}

	return model.Suggestion{
		CategoryID:    best.CategoryID,
		SubcategoryID: best.SubcategoryID,
		Confidence:    bestConf,
		Source:        model.SourceLearned,
		MatchCount:    best.Occurrences,
	}.Normalized(), true
}

// HistoryConfidence scores a category seen occurrences times, last used age ago:
//
//	min(0.95, 0.7 + 0.05*occurrences) * max(0.8, 1 - (ageDays/windowDays)*0.2)
func HistoryConfidence(occurrences int, age, window time.Duration) float64 {
	if window <= 0 {
		window = DefaultHistoryWindow
	}
	if age < 0 {
		age = 0
	}

	base := math.Min(historyMaxConfidence, historyBaseConfidence+historyStep*float64(occurrences))
	recency := math.Max(historyMinRecency, 1-(age.Hours()/window.Hours())*historyMaxDecay)

	return model.ClampConfidence(base * recency)
}

// Invalidate drops cached history. History is per user, so user-scope changes only
// touch the actor's entries; wider scopes may have touched other members' rows.
func (h *HistorySuggester) Invalidate(scope model.Scope, actor model.Actor) {
	if scope == model.ScopeUser {
		h.cache.InvalidatePrefix(userKeyPrefix(actor.UserID))
		return
	}
	h.cache.Purge()
}

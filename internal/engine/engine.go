// Package engine implements the categorization cascade and the learning loop around it.
package engine

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Veraticus/cofre/internal/cache"
	"github.com/Veraticus/cofre/internal/classification"
	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/normalize"
	"github.com/Veraticus/cofre/internal/service"
)

// MinMeaningfulLength is the shortest normalized descriptor worth looking up.
const MinMeaningfulLength = 3

// Engine runs the cascade learned rule → dictionary → heuristic → fallback.
type Engine struct {
	rules      service.RuleStore
	dictionary *classification.Dictionary
	heuristic  Heuristic
	normalizer *normalize.Normalizer
	cache      *cache.TTL[string, model.Suggestion]
	group      singleflight.Group
}

// Config holds configuration options for the engine.
type Config struct {
	CacheTTL     time.Duration
	StrongTokens int
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		CacheTTL:     cache.DefaultTTL,
		StrongTokens: normalize.DefaultStrongTokens,
	}
}

// New creates an engine with the default configuration and no heuristic tier.
func New(rules service.RuleStore, dictionary *classification.Dictionary) *Engine {
	return NewWithConfig(rules, dictionary, NoopHeuristic{}, DefaultConfig())
}

// NewWithConfig creates an engine with custom configuration.
func NewWithConfig(rules service.RuleStore, dictionary *classification.Dictionary, heuristic Heuristic, config Config) *Engine {
	if heuristic == nil {
		heuristic = NoopHeuristic{}
	}
	return &Engine{
		rules:      rules,
		dictionary: dictionary,
		heuristic:  heuristic,
		normalizer: normalize.New(config.StrongTokens),
		cache:      cache.New[string, model.Suggestion](config.CacheTTL),
	}
}

// Close releases the suggestion cache.
func (e *Engine) Close() {
	e.cache.Close()
}

// Suggest returns the best categorization for rawDescriptor. It never fails;
// a tier that errors is logged and skipped.
func (e *Engine) Suggest(ctx context.Context, actor model.Actor, rawDescriptor string) model.Suggestion {
	fp := e.normalizer.Fingerprint(rawDescriptor)
	if normalize.MeaningfulLength(fp.Normalized) < MinMeaningfulLength {
		return model.FallbackSuggestion()
	}

	key := suggestionKey(actor, fp.Normalized)
	if s, ok := e.cache.Get(key); ok {
		return s
	}

	gen := e.cache.Generation()
	flightKey := strconv.FormatUint(gen, 10) + "#" + key

	v, _, _ := e.group.Do(flightKey, func() (any, error) {
		s, cacheable := e.cascade(ctx, actor, fp)
		// Results computed before an invalidation must not be cached.
		if cacheable {
			e.cache.SetIfGeneration(key, s, gen)
		}
		return s, nil
	})

	return v.(model.Suggestion)
}

// cascade runs the tiers in order. The second result is false when a tier failed
// and the answer may be worse than a healthy lookup would give.
func (e *Engine) cascade(ctx context.Context, actor model.Actor, fp model.Fingerprint) (model.Suggestion, bool) {
	cacheable := true

	if !fp.Empty() && e.rules != nil {
		rule, err := e.rules.LookupRule(ctx, actor.UserID, actor.FamilyID, fp.Strong, fp.Weak)
		switch {
		case err == nil:
			return learnedSuggestion(rule, fp), true
		case errors.Is(err, common.ErrNotFound):
		default:
			cacheable = false
			common.LogWarn(err, "Learned rule lookup failed, falling through", common.Fields{
				"user_id":    actor.UserID,
				"descriptor": fp.Normalized,
			})
		}
	}

	if e.dictionary != nil {
		if match, ok := e.dictionary.Lookup(fp.Normalized); ok {
			return match.Suggestion(), cacheable
		}
	}

	s, err := e.heuristic.Suggest(ctx, actor, fp)
	if err != nil {
		cacheable = false
		common.LogWarn(err, "Heuristic tier failed, falling through", common.Fields{
			"descriptor": fp.Normalized,
		})
	} else if s != nil {
		if n := s.Normalized(); !n.IsFallback() {
			n.Source = model.SourceHeuristic
			return n, cacheable
		}
	}

	return model.FallbackSuggestion(), cacheable
}

func learnedSuggestion(rule *model.LearnedRule, fp model.Fingerprint) model.Suggestion {
	fpType := model.FingerprintWeak
	if fp.Strong != "" && rule.Fingerprint == fp.Strong {
		fpType = model.FingerprintStrong
	}

	return model.Suggestion{
		CategoryID:      rule.CategoryID,
		SubcategoryID:   rule.SubcategoryID,
		Confidence:      rule.ConfidenceBase,
		Source:          model.SourceLearned,
		FingerprintType: fpType,
		Scope:           rule.ScopeType,
		RuleID:          rule.ID,
		MatchCount:      rule.ExamplesCount,
		HasConflict:     rule.ConflictCount > 0,
	}.Normalized()
}

// Invalidate drops cached suggestions a rule change at scope could affect.
func (e *Engine) Invalidate(scope model.Scope, actor model.Actor) {
	var removed int
	switch scope {
	case model.ScopeUser:
		removed = e.cache.InvalidatePrefix(userKeyPrefix(actor.UserID))
	case model.ScopeFamily:
		marker := familyKeyMarker(actor.FamilyID)
		removed = e.cache.InvalidateFunc(func(k string) bool {
			return strings.Contains(k, marker)
		})
	default:
		removed = e.cache.Len()
		e.cache.Purge()
	}

	common.LogDebug("Invalidated suggestion cache", common.Fields{
		"scope":   string(scope),
		"user_id": actor.UserID,
		"removed": removed,
	})
}

// Cache keys look like "u=<user>|f=<family>|<normalized descriptor>". Normalized
// descriptors never contain '|' or '='.
func suggestionKey(actor model.Actor, normalized string) string {
	return userKeyPrefix(actor.UserID) + "f=" + actor.FamilyID + "|" + normalized
}

func userKeyPrefix(userID string) string {
	return "u=" + userID + "|"
}

func familyKeyMarker(familyID string) string {
	return "|f=" + familyID + "|"
}

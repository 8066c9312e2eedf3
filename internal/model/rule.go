package model

import (
	"math"
	"time"
)

// Confidence bounds for learned rules.
const (
	DefaultRuleSeedConfidence = 0.75
	maxRuleConfidence         = 0.95
	ruleExampleStep           = 0.05
	ruleConflictStep          = 0.1
	maxRuleConflictPenalty    = 0.5
)

// LearnedRule maps a merchant fingerprint to a category within a scope.
type LearnedRule struct {
	LastUsedAt      time.Time       `json:"last_used_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
	ID              string          `json:"id"`
	ScopeType       Scope           `json:"scope_type"`
	ScopeID         string          `json:"scope_id"`
	FingerprintType FingerprintType `json:"fingerprint_type"`
	Fingerprint     string          `json:"fingerprint"`
	CategoryID      string          `json:"category_id"`
	SubcategoryID   string          `json:"subcategory_id,omitempty"`
	MerchantCanon   string          `json:"merchant_canon,omitempty"`
	ConfidenceBase  float64         `json:"confidence_base"`
	ExamplesCount   int             `json:"examples_count"`
	ConflictCount   int             `json:"conflict_count"`
	IsArchived      bool            `json:"is_archived"`
}

// RuleConfidence blends the seed confidence with usage and conflict signals.
//
//	min(0.95, seed + 0.05*(examples-1)) * (1 - min(0.5, 0.1*conflicts))
//
// The result is always within [0, 1].
func RuleConfidence(seed float64, examples, conflicts int) float64 {
	if examples < 1 {
		examples = 1
	}
	if conflicts < 0 {
		conflicts = 0
	}

	base := math.Min(maxRuleConfidence, seed+ruleExampleStep*float64(examples-1))
	penalty := math.Min(maxRuleConflictPenalty, ruleConflictStep*float64(conflicts))

	return ClampConfidence(base * (1 - penalty))
}

// ClampConfidence bounds c to [0, 1]; NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	}
	return c
}

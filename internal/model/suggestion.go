package model

// Suggestion is the single best categorization for a descriptor.
type Suggestion struct {
	CategoryID      string          `json:"category_id"`
	SubcategoryID   string          `json:"subcategory_id,omitempty"`
	Classification  Classification  `json:"classification,omitempty"`
	Source          Source          `json:"source"`
	FingerprintType FingerprintType `json:"fingerprint_type,omitempty"`
	Scope           Scope           `json:"scope,omitempty"`
	RuleID          string          `json:"rule_id,omitempty"`
	PatternName     string          `json:"pattern_name,omitempty"`
	Confidence      float64         `json:"confidence"`
	MatchCount      int             `json:"match_count,omitempty"`
	HasConflict     bool            `json:"has_conflict,omitempty"`
}

// FallbackSuggestion is the empty result returned when no tier matches.
func FallbackSuggestion() Suggestion {
	return Suggestion{Source: SourceFallback}
}

// IsFallback reports whether s carries no category.
func (s Suggestion) IsFallback() bool {
	return s.Source == SourceFallback
}

// Normalized enforces the suggestion invariants: bounded confidence, and a
// fallback never carries a category or confidence.
func (s Suggestion) Normalized() Suggestion {
	if s.Source == "" || s.Source == SourceFallback || s.CategoryID == "" {
		return FallbackSuggestion()
	}
	s.Confidence = ClampConfidence(s.Confidence)
	return s
}

package model

import "time"

// Actor is the already-authenticated caller of a core operation.
type Actor struct {
	UserID   string `json:"user_id"`
	FamilyID string `json:"family_id,omitempty"`
}

// Authenticated reports whether the actor carries a user identity.
func (a Actor) Authenticated() bool {
	return a.UserID != ""
}

// ScopeID returns the owner identifier a rule at scope would be keyed by.
func (a Actor) ScopeID(scope Scope) string {
	switch scope {
	case ScopeUser:
		return a.UserID
	case ScopeFamily:
		return a.FamilyID
	}
	return ""
}

// Prediction is what the engine suggested before the user corrected it.
type Prediction struct {
	CategoryID    string  `json:"category_id"`
	SubcategoryID string  `json:"subcategory_id,omitempty"`
	Source        Source  `json:"source"`
	Confidence    float64 `json:"confidence"`
}

// FeedbackRequest is a user's accept/override of a suggestion.
type FeedbackRequest struct {
	TransactionID     string     `json:"transaction_id,omitempty"`
	RawDescriptor     string     `json:"raw_descriptor"`
	UserCategoryID    string     `json:"user_category_id"`
	UserSubcategoryID string     `json:"user_subcategory_id,omitempty"`
	Scope             Scope      `json:"apply_scope"`
	Predicted         Prediction `json:"predicted"`
	ApplyToFuture     bool       `json:"apply_to_future"`
}

// Feedback is the persisted audit record of a correction.
type Feedback struct {
	CreatedAt         time.Time
	ID                string
	TransactionID     string
	UserID            string
	FamilyID          string
	RawDescriptor     string
	UserCategoryID    string
	UserSubcategoryID string
	Scope             Scope
	RuleID            string
	Action            FeedbackAction
	Fingerprint       Fingerprint
	Predicted         Prediction
	ApplyToFuture     bool
	Conflict          bool
}

// FeedbackResult reports what a correction did.
type FeedbackResult struct {
	Action                FeedbackAction `json:"action"`
	RuleID                string         `json:"rule_id,omitempty"`
	ExistingCategoryID    string         `json:"existing_category_id,omitempty"`
	ExistingSubcategoryID string         `json:"existing_subcategory_id,omitempty"`
	ExamplesCount         int            `json:"examples_count,omitempty"`
	Learned               bool           `json:"learned"`
	Conflict              bool           `json:"conflict"`
}

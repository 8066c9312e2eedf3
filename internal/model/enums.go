// Package model defines the core domain models used throughout the application.
package model

import (
	"errors"
	"fmt"
)

// ErrUnknownValue is returned when a string does not name a known enum member.
var ErrUnknownValue = errors.New("unknown value")

// Scope is the blast radius of a learned rule.
type Scope string

// Rule scopes, most specific first.
const (
	ScopeUser   Scope = "user"
	ScopeFamily Scope = "family"
	ScopeGlobal Scope = "global"
)

// ParseScope validates s as a Scope.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeUser, ScopeFamily, ScopeGlobal:
		return Scope(s), nil
	}
	return "", fmt.Errorf("%w: scope %q", ErrUnknownValue, s)
}

// UnmarshalText rejects unknown scopes.
func (s *Scope) UnmarshalText(text []byte) error {
	v, err := ParseScope(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Rank orders scopes for rule lookup; lower is preferred.
func (s Scope) Rank() int {
	switch s {
	case ScopeUser:
		return 0
	case ScopeFamily:
		return 1
	case ScopeGlobal:
		return 2
	}
	return 3
}

// FingerprintType tells whether a rule was keyed by a strong or a weak fingerprint.
type FingerprintType string

// Fingerprint types.
const (
	FingerprintStrong FingerprintType = "strong"
	FingerprintWeak   FingerprintType = "weak"
)

// ParseFingerprintType validates s as a FingerprintType.
func ParseFingerprintType(s string) (FingerprintType, error) {
	switch FingerprintType(s) {
	case FingerprintStrong, FingerprintWeak:
		return FingerprintType(s), nil
	}
	return "", fmt.Errorf("%w: fingerprint type %q", ErrUnknownValue, s)
}

// UnmarshalText rejects unknown fingerprint types.
func (f *FingerprintType) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		*f = ""
		return nil
	}
	v, err := ParseFingerprintType(string(text))
	if err != nil {
		return err
	}
	*f = v
	return nil
}

// Source records which cascade tier produced a suggestion.
type Source string

// Suggestion sources in cascade order.
const (
	SourceLearned   Source = "learned"
	SourceRegex     Source = "regex"
	SourceHeuristic Source = "heuristic"
	SourceFallback  Source = "fallback"
)

// ParseSource validates s as a Source.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceLearned, SourceRegex, SourceHeuristic, SourceFallback:
		return Source(s), nil
	}
	return "", fmt.Errorf("%w: source %q", ErrUnknownValue, s)
}

// UnmarshalText rejects unknown sources.
func (s *Source) UnmarshalText(text []byte) error {
	v, err := ParseSource(string(text))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// Classification is the budgeting nature of a category match.
type Classification string

// Classifications.
const (
	ClassificationFixed    Classification = "fixed"
	ClassificationVariable Classification = "variable"
	ClassificationIncome   Classification = "income"
	ClassificationTransfer Classification = "transfer"
)

// ParseClassification validates s as a Classification. The empty string is allowed.
func ParseClassification(s string) (Classification, error) {
	switch Classification(s) {
	case "", ClassificationFixed, ClassificationVariable, ClassificationIncome, ClassificationTransfer:
		return Classification(s), nil
	}
	return "", fmt.Errorf("%w: classification %q", ErrUnknownValue, s)
}

// UnmarshalText rejects unknown classifications.
func (c *Classification) UnmarshalText(text []byte) error {
	v, err := ParseClassification(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ConflictPolicy decides what a conflicting correction does to an active rule.
type ConflictPolicy string

// Conflict policies.
const (
	// ConflictKeep keeps the stored category and only counts the conflict.
	ConflictKeep ConflictPolicy = "keep"
	// ConflictOverwrite replaces the stored category with the correction.
	ConflictOverwrite ConflictPolicy = "overwrite"
)

// ParseConflictPolicy validates s as a ConflictPolicy.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch ConflictPolicy(s) {
	case ConflictKeep, ConflictOverwrite:
		return ConflictPolicy(s), nil
	}
	return "", fmt.Errorf("%w: conflict policy %q", ErrUnknownValue, s)
}

// TransactionType distinguishes money direction.
type TransactionType string

// Transaction types.
const (
	TransactionExpense  TransactionType = "expense"
	TransactionIncome   TransactionType = "income"
	TransactionTransfer TransactionType = "transfer"
)

// ParseTransactionType validates s as a TransactionType.
func ParseTransactionType(s string) (TransactionType, error) {
	switch TransactionType(s) {
	case TransactionExpense, TransactionIncome, TransactionTransfer:
		return TransactionType(s), nil
	}
	return "", fmt.Errorf("%w: transaction type %q", ErrUnknownValue, s)
}

// UnmarshalText rejects unknown transaction types.
func (t *TransactionType) UnmarshalText(text []byte) error {
	v, err := ParseTransactionType(string(text))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

// FeedbackAction is what a correction did to the rule store.
type FeedbackAction string

// Feedback actions.
const (
	ActionCreated    FeedbackAction = "created"
	ActionReinforced FeedbackAction = "reinforced"
	ActionNone       FeedbackAction = "none"
)

// ConfirmationType is a user's resolution of a missing recurring expense.
type ConfirmationType string

// Confirmation types.
const (
	ConfirmationNoPayment  ConfirmationType = "no_payment"
	ConfirmationRegistered ConfirmationType = "registered"
	ConfirmationIgnored    ConfirmationType = "ignored"
)

// ParseConfirmationType validates s as a ConfirmationType.
func ParseConfirmationType(s string) (ConfirmationType, error) {
	switch ConfirmationType(s) {
	case ConfirmationNoPayment, ConfirmationRegistered, ConfirmationIgnored:
		return ConfirmationType(s), nil
	}
	return "", fmt.Errorf("%w: confirmation type %q", ErrUnknownValue, s)
}

// UnmarshalText rejects unknown confirmation types.
func (c *ConfirmationType) UnmarshalText(text []byte) error {
	v, err := ParseConfirmationType(string(text))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// ConfirmationStatus is the per-month state of a recurring pattern: none or a ConfirmationType.
type ConfirmationStatus string

// StatusNone means the user has not resolved the month yet.
const StatusNone ConfirmationStatus = "none"

// PatternType is the periodicity of a recurring pattern.
type PatternType string

// PatternMonthly is currently the only computed periodicity.
const PatternMonthly PatternType = "monthly"

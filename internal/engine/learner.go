package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/normalize"
	"github.com/Veraticus/cofre/internal/service"
)

// LearnerConfig holds configuration options for the feedback pipeline.
type LearnerConfig struct {
	Policy         model.ConflictPolicy
	SeedConfidence float64
	StrongTokens   int
}

// DefaultLearnerConfig returns the default configuration.
func DefaultLearnerConfig() LearnerConfig {
	return LearnerConfig{
		Policy:         model.ConflictKeep,
		SeedConfidence: model.DefaultRuleSeedConfidence,
		StrongTokens:   normalize.DefaultStrongTokens,
	}
}

// Learner turns user corrections into learned rules. It is the only writer of
// the rule store.
type Learner struct {
	store        LearningStore
	normalizer   *normalize.Normalizer
	now          func() time.Time
	invalidators []Invalidator
	config       LearnerConfig
}

// NewLearner creates a feedback pipeline. Invalidators are notified after every
// successful write.
func NewLearner(store LearningStore, config LearnerConfig, invalidators ...Invalidator) *Learner {
	if config.Policy == "" {
		config.Policy = model.ConflictKeep
	}
	if config.SeedConfidence <= 0 {
		config.SeedConfidence = model.DefaultRuleSeedConfidence
	}
	return &Learner{
		store:        store,
		normalizer:   normalize.New(config.StrongTokens),
		now:          time.Now,
		invalidators: invalidators,
		config:       config,
	}
}

// RecordFeedback records a correction and, when asked to apply it to future
// transactions, creates or reinforces the rule for the descriptor's fingerprint.
// Conflicts are reported in the result, not as errors.
func (l *Learner) RecordFeedback(ctx context.Context, actor model.Actor, req model.FeedbackRequest) (model.FeedbackResult, error) {
	result := model.FeedbackResult{Action: model.ActionNone}

	if !actor.Authenticated() {
		return result, common.NewUserError("authentication required", common.ErrUnauthenticated)
	}

	scope, err := l.validate(actor, &req)
	if err != nil {
		return result, err
	}

	var txn *model.Transaction
	if req.TransactionID != "" {
		txn, err = l.ownedTransaction(ctx, actor, req.TransactionID)
		if err != nil {
			return result, err
		}
	}

	fp := l.normalizer.Fingerprint(req.RawDescriptor)
	now := l.now()

	audit := &model.Feedback{
		CreatedAt:         now,
		TransactionID:     req.TransactionID,
		UserID:            actor.UserID,
		FamilyID:          actor.FamilyID,
		RawDescriptor:     req.RawDescriptor,
		UserCategoryID:    req.UserCategoryID,
		UserSubcategoryID: req.UserSubcategoryID,
		Scope:             scope,
		Fingerprint:       fp,
		Predicted:         req.Predicted,
		ApplyToFuture:     req.ApplyToFuture,
		Action:            model.ActionNone,
	}

	var learnErr error
	if req.ApplyToFuture {
		fingerprint, fpType, ok := fp.Preferred()
		if !ok {
			common.LogInfo("Descriptor has no merchant fingerprint, recording history only", common.Fields{
				"descriptor": fp.Normalized,
			})
		} else {
			upsert, err := l.store.UpsertRule(ctx, service.RuleUpsert{
				Now:             now,
				ScopeType:       scope,
				ScopeID:         actor.ScopeID(scope),
				FingerprintType: fpType,
				Fingerprint:     fingerprint,
				CategoryID:      req.UserCategoryID,
				SubcategoryID:   req.UserSubcategoryID,
				MerchantCanon:   fp.MerchantCanon,
				Policy:          l.config.Policy,
				SeedConfidence:  l.config.SeedConfidence,
			})
			if err != nil {
				learnErr = fmt.Errorf("failed to record rule: %w", err)
			} else {
				result = feedbackResult(upsert)
				audit.Action = result.Action
				audit.RuleID = result.RuleID
				audit.Conflict = result.Conflict
			}
		}
	}

	auditErr := l.store.SaveFeedback(ctx, audit)

	if learnErr != nil {
		return model.FeedbackResult{Action: model.ActionNone}, learnErr
	}

	if auditErr != nil {
		// Without a rule write the audit record is the only effect of the call.
		if !result.Learned {
			return result, fmt.Errorf("failed to save feedback: %w", auditErr)
		}
		common.LogError(auditErr, "Failed to save feedback audit record", common.Fields{
			"user_id": actor.UserID,
			"rule_id": result.RuleID,
		})
	}

	if txn != nil {
		if err := l.store.UpdateTransactionCategory(ctx, txn.ID, req.UserCategoryID, req.UserSubcategoryID); err != nil {
			// The rule write already happened; caches must still be dropped.
			l.invalidate(scope, actor)
			return result, fmt.Errorf("failed to update transaction category: %w", err)
		}
	}

	switch {
	case result.Learned:
		l.invalidate(scope, actor)
	case txn != nil:
		l.invalidate(model.ScopeUser, actor)
	}

	if result.Conflict {
		common.LogInfo("Correction conflicts with learned rule", common.Fields{
			"rule_id":  result.RuleID,
			"existing": result.ExistingCategoryID,
			"proposed": req.UserCategoryID,
			"policy":   string(l.config.Policy),
		})
	}

	return result, nil
}

func feedbackResult(upsert service.RuleUpsertResult) model.FeedbackResult {
	result := model.FeedbackResult{
		Learned:       true,
		Action:        model.ActionReinforced,
		RuleID:        upsert.Rule.ID,
		ExamplesCount: upsert.Rule.ExamplesCount,
		Conflict:      upsert.Conflict,
	}
	if upsert.Created {
		result.Action = model.ActionCreated
	}
	if upsert.Conflict {
		result.ExistingCategoryID = upsert.PreviousCategoryID
		result.ExistingSubcategoryID = upsert.PreviousSubcategoryID
	}
	return result
}

func (l *Learner) validate(actor model.Actor, req *model.FeedbackRequest) (model.Scope, error) {
	if strings.TrimSpace(req.RawDescriptor) == "" {
		return "", common.NewUserError("descriptor is required", common.ErrInvalidInput)
	}
	if strings.TrimSpace(req.UserCategoryID) == "" {
		return "", common.NewUserError("category is required", common.ErrInvalidInput)
	}

	scope := req.Scope
	if scope == "" {
		scope = model.ScopeUser
	}
	if _, err := model.ParseScope(string(scope)); err != nil {
		return "", common.NewUserError("unknown scope", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	if scope == model.ScopeFamily && actor.FamilyID == "" {
		return "", common.NewUserError("family scope requires a family", common.ErrInvalidInput)
	}

	return scope, nil
}

func (l *Learner) ownedTransaction(ctx context.Context, actor model.Actor, id string) (*model.Transaction, error) {
	txn, err := l.store.GetTransactionByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.NewUserError("transaction not found", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction: %w", err)
	}

	if txn.UserID != actor.UserID && (actor.FamilyID == "" || txn.FamilyID != actor.FamilyID) {
		return nil, common.NewUserError("transaction belongs to someone else", common.ErrForbidden)
	}
	return txn, nil
}

// ArchiveRule retires a learned rule the actor owns. Global rules may be
// archived by any authenticated caller.
func (l *Learner) ArchiveRule(ctx context.Context, actor model.Actor, ruleID string) error {
	if !actor.Authenticated() {
		return common.NewUserError("authentication required", common.ErrUnauthenticated)
	}
	if strings.TrimSpace(ruleID) == "" {
		return common.NewUserError("rule id is required", common.ErrInvalidInput)
	}

	rule, err := l.store.GetRule(ctx, ruleID)
	if errors.Is(err, common.ErrNotFound) {
		return common.NewUserError("rule not found", err)
	}
	if err != nil {
		return fmt.Errorf("failed to load rule: %w", err)
	}

	if !canManage(actor, rule) {
		return common.NewUserError("rule belongs to someone else", common.ErrForbidden)
	}

	if err := l.store.ArchiveRule(ctx, rule.ID); err != nil {
		return fmt.Errorf("failed to archive rule: %w", err)
	}

	l.invalidate(rule.ScopeType, actor)

	common.LogInfo("Archived learned rule", common.Fields{
		"rule_id":     rule.ID,
		"scope":       string(rule.ScopeType),
		"fingerprint": rule.Fingerprint,
	})
	return nil
}

func canManage(actor model.Actor, rule *model.LearnedRule) bool {
	switch rule.ScopeType {
	case model.ScopeUser:
		return rule.ScopeID == actor.UserID
	case model.ScopeFamily:
		return actor.FamilyID != "" && rule.ScopeID == actor.FamilyID
	case model.ScopeGlobal:
		return true
	}
	return false
}

func (l *Learner) invalidate(scope model.Scope, actor model.Actor) {
	for _, inv := range l.invalidators {
		inv.Invalidate(scope, actor)
	}
}

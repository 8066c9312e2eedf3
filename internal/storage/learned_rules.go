package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"

	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/service"
)

const ruleColumns = `id, scope_type, scope_id, fingerprint_type, fingerprint,
	category_id, subcategory_id, merchant_canon, confidence_base,
	examples_count, conflict_count, is_archived, last_used_at, created_at, updated_at`

// upsertRuleQuery creates the active rule for a key or updates it in place.
// SET expressions read the row as it was before the update.
const upsertRuleQuery = `
	INSERT INTO learned_rules (
		id, scope_type, scope_id, fingerprint_type, fingerprint,
		category_id, subcategory_id, merchant_canon, confidence_base,
		examples_count, conflict_count, is_archived, revision,
		last_used_at, created_at, updated_at
	) VALUES (
		:id, :scope_type, :scope_id, :fingerprint_type, :fingerprint,
		:category_id, :subcategory_id, :merchant_canon, :confidence_base,
		1, 0, 0, 0,
		:now, :now, :now
	)
	ON CONFLICT(scope_type, scope_id, fingerprint) WHERE is_archived = 0 DO UPDATE SET
		revision = revision + 1,
		previous_category_id = category_id,
		previous_subcategory_id = subcategory_id,
		examples_count = CASE
			WHEN category_id = excluded.category_id THEN examples_count + 1
			WHEN :policy = 'overwrite' THEN 1
			ELSE examples_count
		END,
		conflict_count = CASE
			WHEN category_id = excluded.category_id THEN conflict_count
			ELSE conflict_count + 1
		END,
		category_id = CASE
			WHEN :policy = 'overwrite' THEN excluded.category_id
			ELSE category_id
		END,
		subcategory_id = CASE
			WHEN category_id = excluded.category_id AND excluded.subcategory_id <> '' THEN excluded.subcategory_id
			WHEN category_id <> excluded.category_id AND :policy = 'overwrite' THEN excluded.subcategory_id
			ELSE subcategory_id
		END,
		merchant_canon = CASE
			WHEN excluded.merchant_canon <> '' THEN excluded.merchant_canon
			ELSE merchant_canon
		END,
		last_used_at = excluded.last_used_at,
		updated_at = excluded.updated_at
	RETURNING id, revision, previous_category_id, previous_subcategory_id, examples_count, conflict_count`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*model.LearnedRule, error) {
	var rule model.LearnedRule
	var scopeType, fingerprintType string

	err := row.Scan(
		&rule.ID, &scopeType, &rule.ScopeID, &fingerprintType, &rule.Fingerprint,
		&rule.CategoryID, &rule.SubcategoryID, &rule.MerchantCanon, &rule.ConfidenceBase,
		&rule.ExamplesCount, &rule.ConflictCount, &rule.IsArchived,
		&rule.LastUsedAt, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if rule.ScopeType, err = model.ParseScope(scopeType); err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}
	if rule.FingerprintType, err = model.ParseFingerprintType(fingerprintType); err != nil {
		return nil, fmt.Errorf("rule %s: %w", rule.ID, err)
	}

	return &rule, nil
}

func scanRules(rows *sql.Rows) ([]model.LearnedRule, error) {
	var rules []model.LearnedRule
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		rules = append(rules, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}
	return rules, nil
}

// LookupRule returns the best active rule for the given fingerprints. Candidates are
// ranked user-strong, user-weak, family-strong, family-weak, global-strong, global-weak;
// ties go to the rule with more examples, then the most recently used.
func (s *SQLiteStorage) LookupRule(ctx context.Context, userID, familyID, strong, weak string) (*model.LearnedRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if strong == "" && weak == "" {
		return nil, fmt.Errorf("%w: no fingerprint", common.ErrNotFound)
	}

	query := `SELECT ` + ruleColumns + `
		FROM learned_rules
		WHERE is_archived = 0
			AND fingerprint IN (?, ?)
			AND (
				(scope_type = 'user' AND scope_id = ? AND scope_id <> '')
				OR (scope_type = 'family' AND scope_id = ? AND scope_id <> '')
				OR scope_type = 'global'
			)`

	rows, err := s.db.QueryContext(ctx, query, strong, weak, userID, familyID)
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to look up rules: %w", err))
	}
	defer func() { _ = rows.Close() }()

	candidates, err := scanRules(rows)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: no rule for fingerprint", common.ErrNotFound)
	}

	tier := func(r *model.LearnedRule) int {
		t := r.ScopeType.Rank() * 2
		if strong == "" || r.Fingerprint != strong {
			t++
		}
		return t
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		a, b := &candidates[i], &candidates[j]
		if ta, tb := tier(a), tier(b); ta != tb {
			return ta < tb
		}
		if a.ExamplesCount != b.ExamplesCount {
			return a.ExamplesCount > b.ExamplesCount
		}
		return a.LastUsedAt.After(b.LastUsedAt)
	})

	best := candidates[0]
	return &best, nil
}

// UpsertRule creates the active rule for (scope, fingerprint) or reinforces it.
// A matching category adds an example; a different category counts a conflict and,
// under the overwrite policy, replaces the category and restarts the example count.
// confidence_base is recomputed in the same transaction.
func (s *SQLiteStorage) UpsertRule(ctx context.Context, req service.RuleUpsert) (service.RuleUpsertResult, error) {
	if err := validateContext(ctx); err != nil {
		return service.RuleUpsertResult{}, err
	}
	if req.Policy == "" {
		req.Policy = model.ConflictKeep
	}
	if req.SeedConfidence == 0 {
		req.SeedConfidence = model.DefaultRuleSeedConfidence
	}
	if req.Now.IsZero() {
		req.Now = time.Now()
	}
	req.Now = req.Now.UTC()
	if err := validateRuleUpsert(&req); err != nil {
		return service.RuleUpsertResult{}, err
	}

	result, err := s.upsertRule(ctx, req)
	if err != nil && isUniqueViolation(err) {
		// A concurrent writer created the row first; the retry takes the update branch.
		result, err = s.upsertRule(ctx, req)
	}
	if err != nil {
		return service.RuleUpsertResult{}, err
	}

	return result, nil
}

func (s *SQLiteStorage) upsertRule(ctx context.Context, req service.RuleUpsert) (service.RuleUpsertResult, error) {
	var result service.RuleUpsertResult

	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			id                  string
			revision            int
			prevCategory        string
			prevSubcategory     string
			examples, conflicts int
		)

		err := tx.QueryRowContext(ctx, upsertRuleQuery,
			sql.Named("id", uuid.NewString()),
			sql.Named("scope_type", string(req.ScopeType)),
			sql.Named("scope_id", req.ScopeID),
			sql.Named("fingerprint_type", string(req.FingerprintType)),
			sql.Named("fingerprint", req.Fingerprint),
			sql.Named("category_id", req.CategoryID),
			sql.Named("subcategory_id", req.SubcategoryID),
			sql.Named("merchant_canon", req.MerchantCanon),
			sql.Named("confidence_base", model.RuleConfidence(req.SeedConfidence, 1, 0)),
			sql.Named("now", req.Now),
			sql.Named("policy", string(req.Policy)),
		).Scan(&id, &revision, &prevCategory, &prevSubcategory, &examples, &conflicts)
		if err != nil {
			return fmt.Errorf("failed to upsert rule: %w", err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE learned_rules SET confidence_base = ? WHERE id = ?`,
			model.RuleConfidence(req.SeedConfidence, examples, conflicts), id,
		); err != nil {
			return fmt.Errorf("failed to update rule confidence: %w", err)
		}

		rule, err := scanRule(tx.QueryRowContext(ctx,
			`SELECT `+ruleColumns+` FROM learned_rules WHERE id = ?`, id))
		if err != nil {
			return fmt.Errorf("failed to reload rule: %w", err)
		}

		result = service.RuleUpsertResult{
			Rule:    *rule,
			Created: revision == 0,
		}
		if !result.Created {
			result.PreviousCategoryID = prevCategory
			result.PreviousSubcategoryID = prevSubcategory
			result.Conflict = prevCategory != req.CategoryID
		}
		return nil
	})

	return result, err
}

// GetRule retrieves a rule by ID, archived or not.
func (s *SQLiteStorage) GetRule(ctx context.Context, id string) (*model.LearnedRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	rule, err := scanRule(s.db.QueryRowContext(ctx,
		`SELECT `+ruleColumns+` FROM learned_rules WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to get rule: %w", err))
	}

	return rule, nil
}

// ListRules returns rules matching the filter, most used first.
func (s *SQLiteStorage) ListRules(ctx context.Context, filter service.RuleFilter) ([]model.LearnedRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	var (
		where []string
		args  []any
	)
	if !filter.IncludeArchived {
		where = append(where, "is_archived = 0")
	}
	if filter.ScopeType != nil {
		where = append(where, "scope_type = ?")
		args = append(args, string(*filter.ScopeType))
	}
	if filter.ScopeID != nil {
		where = append(where, "scope_id = ?")
		args = append(args, *filter.ScopeID)
	}
	if filter.CategoryID != "" {
		where = append(where, "category_id = ?")
		args = append(args, filter.CategoryID)
	}

	var query strings.Builder
	query.WriteString(`SELECT ` + ruleColumns + ` FROM learned_rules`)
	if len(where) > 0 {
		query.WriteString(" WHERE ")
		query.WriteString(strings.Join(where, " AND "))
	}
	query.WriteString(" ORDER BY examples_count DESC, last_used_at DESC, id ASC")
	if filter.Limit > 0 {
		query.WriteString(" LIMIT ?")
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query.String(), args...)
	if err != nil {
		return nil, translateError(fmt.Errorf("failed to list rules: %w", err))
	}
	defer func() { _ = rows.Close() }()

	return scanRules(rows)
}

// ArchiveRule deactivates a rule. Archived rules are kept and never matched again.
// Archiving an already archived rule is a no-op.
func (s *SQLiteStorage) ArchiveRule(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx,
			`UPDATE learned_rules SET is_archived = 1, updated_at = ? WHERE id = ? AND is_archived = 0`,
			time.Now().UTC(), id)
		if err != nil {
			return fmt.Errorf("failed to archive rule: %w", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if affected > 0 {
			return nil
		}

		var exists int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM learned_rules WHERE id = ?`, id).Scan(&exists); err != nil {
			return fmt.Errorf("failed to check rule: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("rule %s: %w", id, common.ErrNotFound)
		}
		return nil
	})
}

// FindSimilarRules returns active rules in one scope whose fingerprint is within
// maxDistance edits of fingerprint, closest first.
func (s *SQLiteStorage) FindSimilarRules(ctx context.Context, scope model.Scope, scopeID, fingerprint string, maxDistance int) ([]model.LearnedRule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(fingerprint, "fingerprint"); err != nil {
		return nil, err
	}
	if _, err := model.ParseScope(string(scope)); err != nil {
		return nil, err
	}
	if maxDistance < 0 {
		maxDistance = 0
	}

	rules, err := s.ListRules(ctx, service.RuleFilter{ScopeType: &scope, ScopeID: &scopeID})
	if err != nil {
		return nil, err
	}

	type scored struct {
		rule     model.LearnedRule
		distance int
	}
	var matches []scored
	for _, rule := range rules {
		d := levenshtein.ComputeDistance(fingerprint, rule.Fingerprint)
		if d <= maxDistance {
			matches = append(matches, scored{rule: rule, distance: d})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].distance < matches[j].distance
	})

	similar := make([]model.LearnedRule, len(matches))
	for i, m := range matches {
		similar[i] = m.rule
	}
	return similar, nil
}

// Package recurring mines a family's expense history for monthly recurring
// expenses and reports which of them have not shown up in a given month.
package recurring

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
)

// Detection window.
const (
	WindowMonths   = 12
	TrailingMonths = 6
)

// Confidence weights.
const (
	rateWeight        = 0.6
	consistencyWeight = 0.4
)

// Store is the persistence the detector reads and writes.
type Store interface {
	GetExpenses(ctx context.Context, familyID string, start, end time.Time) ([]model.Transaction, error)
	GetConfirmations(ctx context.Context, familyID string, month model.MonthRef) ([]model.RecurringConfirmation, error)
	UpsertConfirmation(ctx context.Context, confirmation *model.RecurringConfirmation) error
}

// Deps contains all dependencies required by the detector.
type Deps struct {
	// Store provides expenses and confirmations.
	Store Store
	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Store == nil {
		return fmt.Errorf("store dependency is required")
	}
	return nil
}

// Detector finds recurring monthly expenses.
type Detector struct {
	store Store
	now   func() time.Time
}

// NewDetector creates a detector with the provided dependencies.
func NewDetector(deps Deps) (*Detector, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Detector{store: deps.Store, now: deps.Now}, nil
}

// monthlyTotals is one category key's spending per month.
type monthlyTotals struct {
	totals   map[model.MonthRef]decimal.Decimal
	lastDate time.Time
	key      model.CategoryKey
}

// CurrentMonth is the month DetectPatterns uses for a zero ref.
func (d *Detector) CurrentMonth() model.MonthRef {
	return model.MonthOf(d.now().UTC())
}

// DetectPatterns returns the recurring patterns for familyID as seen from ref,
// looking at the 12 calendar months before it. A zero ref means the current month.
func (d *Detector) DetectPatterns(ctx context.Context, familyID string, ref model.MonthRef) ([]model.RecurringPattern, error) {
	if strings.TrimSpace(familyID) == "" {
		return nil, common.NewUserError("family is required", common.ErrInvalidInput)
	}
	if ref == "" {
		ref = d.CurrentMonth()
	}
	if _, err := model.ParseMonthRef(string(ref)); err != nil {
		return nil, common.NewUserError("invalid month", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}

	first := ref.AddMonths(-WindowMonths)
	expenses, err := d.store.GetExpenses(ctx, familyID, first.Start(), ref.Start())
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses: %w", err)
	}

	groups := groupByMonth(expenses)
	trailingStart := ref.AddMonths(-TrailingMonths)

	patterns := make([]model.RecurringPattern, 0, len(groups))
	for _, g := range groups {
		if p, ok := evaluate(g, trailingStart); ok {
			patterns = append(patterns, p)
		}
	}

	sort.Slice(patterns, func(i, j int) bool {
		if patterns[i].Confidence != patterns[j].Confidence {
			return patterns[i].Confidence > patterns[j].Confidence
		}
		if patterns[i].AverageAmount != patterns[j].AverageAmount {
			return patterns[i].AverageAmount > patterns[j].AverageAmount
		}
		if patterns[i].CategoryID != patterns[j].CategoryID {
			return patterns[i].CategoryID < patterns[j].CategoryID
		}
		return patterns[i].SubcategoryID < patterns[j].SubcategoryID
	})

	common.LogDebug("Detected recurring patterns", common.Fields{
		"family_id": familyID,
		"month":     ref.String(),
		"expenses":  len(expenses),
		"groups":    len(groups),
		"patterns":  len(patterns),
	})

	return patterns, nil
}

func groupByMonth(expenses []model.Transaction) []*monthlyTotals {
	index := make(map[model.CategoryKey]*monthlyTotals)
	var groups []*monthlyTotals

	for _, txn := range expenses {
		if txn.CategoryID == "" {
			continue
		}
		key := txn.Key()
		g, ok := index[key]
		if !ok {
			g = &monthlyTotals{key: key, totals: make(map[model.MonthRef]decimal.Decimal)}
			index[key] = g
			groups = append(groups, g)
		}

		month := model.MonthOf(txn.Date.UTC())
		g.totals[month] = g.totals[month].Add(txn.Amount.Abs())
		if txn.Date.After(g.lastDate) {
			g.lastDate = txn.Date
		}
	}

	return groups
}

// evaluate scores one group. trailingStart is the first month of the trailing
// six-month window.
func evaluate(g *monthlyTotals, trailingStart model.MonthRef) (model.RecurringPattern, bool) {
	months := len(g.totals)
	if months < model.MinRecurringMonths {
		return model.RecurringPattern{}, false
	}

	var (
		sum      decimal.Decimal
		trailing int
	)
	for month, total := range g.totals {
		sum = sum.Add(total)
		if month >= trailingStart {
			trailing++
		}
	}
	if trailing < model.MinRecurringMonths {
		return model.RecurringPattern{}, false
	}

	average := sum.Div(decimal.NewFromInt(int64(months)))
	rate := float64(months) / WindowMonths
	confidence := rate*rateWeight + consistency(g.totals, average)*consistencyWeight
	if confidence < model.MinRecurringConfidence {
		return model.RecurringPattern{}, false
	}

	return model.RecurringPattern{
		CategoryID:         g.key.CategoryID,
		SubcategoryID:      g.key.SubcategoryID,
		PatternType:        model.PatternMonthly,
		AverageAmount:      average.Round(2).InexactFloat64(),
		OccurrenceCount:    months,
		LastOccurrenceDate: g.lastDate,
		Confidence:         model.ClampConfidence(confidence),
	}, true
}

// consistency is 1 - maxDeviation/average, floored at 0.
func consistency(totals map[model.MonthRef]decimal.Decimal, average decimal.Decimal) float64 {
	if !average.IsPositive() {
		return 0
	}

	var maxDev decimal.Decimal
	for _, total := range totals {
		if dev := total.Sub(average).Abs(); dev.GreaterThan(maxDev) {
			maxDev = dev
		}
	}

	c := 1 - maxDev.Div(average).InexactFloat64()
	if c < 0 {
		return 0
	}
	return c
}

// FindMissing returns the patterns with no matching expense in the given month.
// Patterns confirmed as ignored for that month are left out; other confirmations
// are attached as the status.
func (d *Detector) FindMissing(ctx context.Context, familyID string, month, year int) ([]model.MissingRecurringExpense, error) {
	target, err := model.NewMonthRef(month, year)
	if err != nil {
		return nil, common.NewUserError("invalid month", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}

	patterns, err := d.DetectPatterns(ctx, familyID, target)
	if err != nil {
		return nil, err
	}
	if len(patterns) == 0 {
		return []model.MissingRecurringExpense{}, nil
	}

	expenses, err := d.store.GetExpenses(ctx, familyID, target.Start(), target.AddMonths(1).Start())
	if err != nil {
		return nil, fmt.Errorf("failed to load expenses for %s: %w", target, err)
	}
	present := make(map[model.CategoryKey]bool, len(expenses))
	for _, txn := range expenses {
		present[txn.Key()] = true
	}

	confirmations, err := d.store.GetConfirmations(ctx, familyID, target)
	if err != nil {
		return nil, fmt.Errorf("failed to load confirmations for %s: %w", target, err)
	}
	status := make(map[model.CategoryKey]model.ConfirmationType, len(confirmations))
	for _, c := range confirmations {
		status[c.Key()] = c.ConfirmationType
	}

	missing := make([]model.MissingRecurringExpense, 0, len(patterns))
	for _, p := range patterns {
		if present[p.Key()] {
			continue
		}

		s := model.StatusNone
		if ct, ok := status[p.Key()]; ok {
			if ct == model.ConfirmationIgnored {
				continue
			}
			s = model.ConfirmationStatus(ct)
		}

		missing = append(missing, model.MissingRecurringExpense{
			Pattern:            p,
			MonthRef:           target,
			ConfirmationStatus: s,
		})
	}

	return missing, nil
}

// Confirm records the actor's resolution of a pattern for a month. The last
// write for a (category, subcategory, month) wins.
func (d *Detector) Confirm(ctx context.Context, actor model.Actor, confirmation model.RecurringConfirmation) (*model.RecurringConfirmation, error) {
	if !actor.Authenticated() {
		return nil, common.NewUserError("authentication required", common.ErrUnauthenticated)
	}
	if actor.FamilyID == "" {
		return nil, common.NewUserError("confirmations require a family", common.ErrInvalidInput)
	}
	if confirmation.FamilyID != "" && confirmation.FamilyID != actor.FamilyID {
		return nil, common.NewUserError("confirmation belongs to another family", common.ErrForbidden)
	}
	if strings.TrimSpace(confirmation.CategoryID) == "" {
		return nil, common.NewUserError("category is required", common.ErrInvalidInput)
	}
	if _, err := model.ParseMonthRef(string(confirmation.MonthRef)); err != nil {
		return nil, common.NewUserError("invalid month", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	if _, err := model.ParseConfirmationType(string(confirmation.ConfirmationType)); err != nil {
		return nil, common.NewUserError("unknown confirmation type", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}

	confirmation.FamilyID = actor.FamilyID
	confirmation.ConfirmedByUserID = actor.UserID
	confirmation.UpdatedAt = d.now()

	if err := d.store.UpsertConfirmation(ctx, &confirmation); err != nil {
		return nil, fmt.Errorf("failed to save confirmation: %w", err)
	}

	common.LogInfo("Recorded recurring confirmation", common.Fields{
		"family_id": confirmation.FamilyID,
		"category":  confirmation.CategoryID,
		"month":     confirmation.MonthRef.String(),
		"type":      string(confirmation.ConfirmationType),
	})

	return &confirmation, nil
}

package recurring

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/storage"
	"github.com/Veraticus/cofre/internal/testutil"
)

const family = "fam-1"

var member = model.Actor{UserID: "alice", FamilyID: family}

func newTestDetector(t *testing.T) (*Detector, *storage.SQLiteStorage) {
	t.Helper()
	store := testutil.SetupTestDB(t).Storage

	d, err := NewDetector(Deps{
		Store: store,
		Now:   func() time.Time { return time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	return d, store
}

// seed stores one expense per listed month (YYYY-MM) for the category key.
func seed(t *testing.T, store *storage.SQLiteStorage, category, subcategory, amount string, months ...string) {
	t.Helper()
	txns := make([]model.Transaction, 0, len(months))
	for _, m := range months {
		ref, err := model.ParseMonthRef(m)
		require.NoError(t, err)
		date := ref.Start().AddDate(0, 0, 9)
		txn := model.Transaction{
			ID:             fmt.Sprintf("%s-%s-%s", category, subcategory, m),
			FamilyID:       family,
			UserID:         member.UserID,
			AccountID:      "acc-1",
			Date:           date,
			Description:    "NETFLIX.COM",
			DescriptionKey: "netflix com",
			Amount:         decimal.RequireFromString(amount).Neg(),
			Type:           model.TransactionExpense,
			CategoryID:     category,
			SubcategoryID:  subcategory,
		}
		txn.Hash = txn.GenerateHash()
		txns = append(txns, txn)
	}
	_, err := store.SaveTransactions(context.Background(), txns)
	require.NoError(t, err)
}

func TestNewDetector(t *testing.T) {
	_, err := NewDetector(Deps{})
	assert.Error(t, err)
}

func TestDetector_DetectPatterns(t *testing.T) {
	ctx := context.Background()
	ref := model.MonthRef("2025-07")

	t.Run("steady streaming subscription", func(t *testing.T) {
		d, store := newTestDetector(t)
		// 8 of the 12 months from 2024-07 to 2025-06, never two gaps in a row.
		seed(t, store, "lazer", "streaming", "39.90",
			"2024-07", "2024-09", "2024-10", "2024-12", "2025-02", "2025-03", "2025-05", "2025-06")

		patterns, err := d.DetectPatterns(ctx, family, ref)
		require.NoError(t, err)
		require.Len(t, patterns, 1)

		p := patterns[0]
		assert.Equal(t, "lazer", p.CategoryID)
		assert.Equal(t, "streaming", p.SubcategoryID)
		assert.Equal(t, model.PatternMonthly, p.PatternType)
		assert.Equal(t, 8, p.OccurrenceCount)
		assert.InDelta(t, 39.90, p.AverageAmount, 1e-9)
		assert.InDelta(t, 0.8, p.Confidence, 1e-9)
		assert.Equal(t, "2025-06-10", p.LastOccurrenceDate.Format("2006-01-02"))
	})

	t.Run("two months is never a pattern", func(t *testing.T) {
		d, store := newTestDetector(t)
		seed(t, store, "lazer", "cinema", "50.00", "2025-05", "2025-06")

		patterns, err := d.DetectPatterns(ctx, family, ref)
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("needs three of the trailing six months", func(t *testing.T) {
		d, store := newTestDetector(t)
		seed(t, store, "casa", "seguro", "100.00",
			"2024-07", "2024-08", "2024-09", "2024-10", "2024-11", "2024-12", "2025-06")

		patterns, err := d.DetectPatterns(ctx, family, ref)
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("inconsistent amounts are not a pattern", func(t *testing.T) {
		d, store := newTestDetector(t)
		seed(t, store, "casa", "gas", "10.00",
			"2024-07", "2024-08", "2024-09", "2024-10", "2024-11", "2024-12",
			"2025-01", "2025-02", "2025-03", "2025-04", "2025-05")
		seed(t, store, "casa", "gas", "100.00", "2025-06")

		patterns, err := d.DetectPatterns(ctx, family, ref)
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("the reference month itself is excluded", func(t *testing.T) {
		d, store := newTestDetector(t)
		seed(t, store, "lazer", "streaming", "39.90",
			"2024-10", "2024-11", "2024-12", "2025-01", "2025-02",
			"2025-03", "2025-04", "2025-05", "2025-06", "2025-07")

		patterns, err := d.DetectPatterns(ctx, family, "2025-07")
		require.NoError(t, err)
		require.Len(t, patterns, 1)
		assert.Equal(t, 9, patterns[0].OccurrenceCount)
		assert.InDelta(t, 9.0/12*0.6+0.4, patterns[0].Confidence, 1e-9)
	})

	t.Run("ordered by confidence then amount", func(t *testing.T) {
		d, store := newTestDetector(t)
		all := []string{"2024-07", "2024-08", "2024-09", "2024-10", "2024-11", "2024-12",
			"2025-01", "2025-02", "2025-03", "2025-04", "2025-05", "2025-06"}
		seed(t, store, "lazer", "streaming", "39.90", all...)
		seed(t, store, "casa", "aluguel", "2500.00", all...)
		seed(t, store, "saude", "academia", "99.00", all[2:]...)

		patterns, err := d.DetectPatterns(ctx, family, ref)
		require.NoError(t, err)
		require.Len(t, patterns, 3)
		assert.Equal(t, "aluguel", patterns[0].SubcategoryID)
		assert.Equal(t, "streaming", patterns[1].SubcategoryID)
		assert.Equal(t, "academia", patterns[2].SubcategoryID)
		assert.InDelta(t, 1.0, patterns[0].Confidence, 1e-9)
	})

	t.Run("other families are invisible", func(t *testing.T) {
		d, store := newTestDetector(t)
		seed(t, store, "lazer", "streaming", "39.90", "2025-03", "2025-04", "2025-05", "2025-06")

		patterns, err := d.DetectPatterns(ctx, "fam-2", ref)
		require.NoError(t, err)
		assert.Empty(t, patterns)
	})

	t.Run("empty ref uses the current month", func(t *testing.T) {
		d, store := newTestDetector(t)
		seed(t, store, "lazer", "streaming", "39.90",
			"2024-12", "2025-01", "2025-02", "2025-03", "2025-04", "2025-05", "2025-06")

		patterns, err := d.DetectPatterns(ctx, family, "")
		require.NoError(t, err)
		assert.Len(t, patterns, 1)
	})

	t.Run("validation", func(t *testing.T) {
		d, _ := newTestDetector(t)

		_, err := d.DetectPatterns(ctx, " ", ref)
		assert.ErrorIs(t, err, common.ErrInvalidInput)

		_, err = d.DetectPatterns(ctx, family, "2025-13")
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})
}

func TestConsistency(t *testing.T) {
	tests := []struct {
		name    string
		amounts []string
		want    float64
	}{
		{"identical", []string{"10", "10", "10"}, 1},
		{"one outlier", []string{"10", "10", "10", "18"}, 0.5},
		{"wild swings floor at zero", []string{"1", "1", "100"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := make(map[model.MonthRef]decimal.Decimal)
			sum := decimal.Zero
			for i, a := range tt.amounts {
				v := decimal.RequireFromString(a)
				totals[model.MonthRef(fmt.Sprintf("2025-%02d", i+1))] = v
				sum = sum.Add(v)
			}
			avg := sum.Div(decimal.NewFromInt(int64(len(tt.amounts))))
			assert.InDelta(t, tt.want, consistency(totals, avg), 1e-9)
		})
	}

	assert.Zero(t, consistency(map[model.MonthRef]decimal.Decimal{}, decimal.Zero))
}

func TestDetector_FindMissing(t *testing.T) {
	ctx := context.Background()
	months := []string{"2024-07", "2024-09", "2024-10", "2024-12", "2025-02", "2025-03", "2025-05", "2025-06"}

	t.Run("pattern without a payment is missing", func(t *testing.T) {
		d, store := newTestDetector(t)
		seed(t, store, "lazer", "streaming", "39.90", months...)

		missing, err := d.FindMissing(ctx, family, 7, 2025)
		require.NoError(t, err)
		require.Len(t, missing, 1)
		assert.Equal(t, model.StatusNone, missing[0].ConfirmationStatus)
		assert.Equal(t, model.MonthRef("2025-07"), missing[0].MonthRef)
		assert.Equal(t, 8, missing[0].Pattern.OccurrenceCount)
	})

	t.Run("paid month is not missing", func(t *testing.T) {
		d, store := newTestDetector(t)
		seed(t, store, "lazer", "streaming", "39.90", append(months, "2025-07")...)

		missing, err := d.FindMissing(ctx, family, 7, 2025)
		require.NoError(t, err)
		assert.Empty(t, missing)
	})

	t.Run("only ignored suppresses", func(t *testing.T) {
		tests := []struct {
			confirmation model.ConfirmationType
			wantStatus   model.ConfirmationStatus
			wantMissing  bool
		}{
			{model.ConfirmationNoPayment, model.ConfirmationStatus(model.ConfirmationNoPayment), true},
			{model.ConfirmationRegistered, model.ConfirmationStatus(model.ConfirmationRegistered), true},
			{model.ConfirmationIgnored, "", false},
		}

		for _, tt := range tests {
			t.Run(string(tt.confirmation), func(t *testing.T) {
				d, store := newTestDetector(t)
				seed(t, store, "lazer", "streaming", "39.90", months...)

				_, err := d.Confirm(ctx, member, model.RecurringConfirmation{
					CategoryID:       "lazer",
					SubcategoryID:    "streaming",
					MonthRef:         "2025-07",
					ConfirmationType: tt.confirmation,
				})
				require.NoError(t, err)

				missing, err := d.FindMissing(ctx, family, 7, 2025)
				require.NoError(t, err)
				if !tt.wantMissing {
					assert.Empty(t, missing)
					return
				}
				require.Len(t, missing, 1)
				assert.Equal(t, tt.wantStatus, missing[0].ConfirmationStatus)
			})
		}
	})

	t.Run("ignoring one month leaves the next alone", func(t *testing.T) {
		d, store := newTestDetector(t)
		seed(t, store, "lazer", "streaming", "39.90", months...)

		_, err := d.Confirm(ctx, member, model.RecurringConfirmation{
			CategoryID: "lazer", SubcategoryID: "streaming", MonthRef: "2025-07",
			ConfirmationType: model.ConfirmationIgnored,
		})
		require.NoError(t, err)

		missing, err := d.FindMissing(ctx, family, 8, 2025)
		require.NoError(t, err)
		assert.Len(t, missing, 1)
	})

	t.Run("last confirmation wins", func(t *testing.T) {
		d, store := newTestDetector(t)
		seed(t, store, "lazer", "streaming", "39.90", months...)

		for _, ct := range []model.ConfirmationType{model.ConfirmationIgnored, model.ConfirmationRegistered} {
			_, err := d.Confirm(ctx, member, model.RecurringConfirmation{
				CategoryID: "lazer", SubcategoryID: "streaming", MonthRef: "2025-07", ConfirmationType: ct,
			})
			require.NoError(t, err)
		}

		missing, err := d.FindMissing(ctx, family, 7, 2025)
		require.NoError(t, err)
		require.Len(t, missing, 1)
		assert.Equal(t, model.ConfirmationStatus(model.ConfirmationRegistered), missing[0].ConfirmationStatus)
	})

	t.Run("invalid month", func(t *testing.T) {
		d, _ := newTestDetector(t)
		_, err := d.FindMissing(ctx, family, 13, 2025)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	})
}

func TestDetector_Confirm(t *testing.T) {
	ctx := context.Background()
	d, _ := newTestDetector(t)

	valid := model.RecurringConfirmation{
		CategoryID:       "lazer",
		MonthRef:         "2025-07",
		ConfirmationType: model.ConfirmationRegistered,
	}

	saved, err := d.Confirm(ctx, member, valid)
	require.NoError(t, err)
	assert.Equal(t, family, saved.FamilyID)
	assert.Equal(t, member.UserID, saved.ConfirmedByUserID)
	assert.False(t, saved.UpdatedAt.IsZero())

	tests := []struct {
		name    string
		actor   model.Actor
		mutate  func(*model.RecurringConfirmation)
		wantErr error
	}{
		{"unauthenticated", model.Actor{}, func(*model.RecurringConfirmation) {}, common.ErrUnauthenticated},
		{"no family", model.Actor{UserID: "solo"}, func(*model.RecurringConfirmation) {}, common.ErrInvalidInput},
		{"other family", member, func(c *model.RecurringConfirmation) { c.FamilyID = "fam-2" }, common.ErrForbidden},
		{"missing category", member, func(c *model.RecurringConfirmation) { c.CategoryID = "" }, common.ErrInvalidInput},
		{"bad month", member, func(c *model.RecurringConfirmation) { c.MonthRef = "July" }, common.ErrInvalidInput},
		{"bad type", member, func(c *model.RecurringConfirmation) { c.ConfirmationType = "maybe" }, common.ErrInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid
			tt.mutate(&c)
			_, err := d.Confirm(ctx, tt.actor, c)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
		})
	}
}

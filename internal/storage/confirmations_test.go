package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cofre/internal/model"
)

func TestUpsertConfirmation_LastWriteWins(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	c := &model.RecurringConfirmation{
		FamilyID:          "fam-1",
		CategoryID:        "lazer",
		SubcategoryID:     "streaming",
		MonthRef:          "2025-03",
		ConfirmationType:  model.ConfirmationNoPayment,
		ConfirmedByUserID: "user-1",
	}
	require.NoError(t, store.UpsertConfirmation(ctx, c))
	assert.False(t, c.UpdatedAt.IsZero())

	c2 := *c
	c2.ConfirmationType = model.ConfirmationIgnored
	c2.ConfirmedByUserID = "user-2"
	require.NoError(t, store.UpsertConfirmation(ctx, &c2))

	// Different month and subcategory are separate keys.
	other := *c
	other.MonthRef = "2025-04"
	require.NoError(t, store.UpsertConfirmation(ctx, &other))
	other.MonthRef = "2025-03"
	other.SubcategoryID = ""
	require.NoError(t, store.UpsertConfirmation(ctx, &other))

	got, err := store.GetConfirmations(ctx, "fam-1", "2025-03")
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "", got[0].SubcategoryID)
	assert.Equal(t, model.ConfirmationNoPayment, got[0].ConfirmationType)
	assert.Equal(t, "streaming", got[1].SubcategoryID)
	assert.Equal(t, model.ConfirmationIgnored, got[1].ConfirmationType)
	assert.Equal(t, "user-2", got[1].ConfirmedByUserID)

	none, err := store.GetConfirmations(ctx, "fam-2", "2025-03")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = store.GetConfirmations(ctx, "fam-1", "March")
	assert.ErrorIs(t, err, model.ErrUnknownValue)
}

func TestFeedbackAuditTrail(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	first := &model.Feedback{
		UserID:         "user-1",
		FamilyID:       "fam-1",
		RawDescriptor:  "IFOOD *RESTAURANTE",
		UserCategoryID: "lazer",
		Scope:          model.ScopeUser,
		Predicted:      model.Prediction{CategoryID: "alimentacao", Source: model.SourceRegex, Confidence: 0.85},
		Fingerprint:    model.Fingerprint{Normalized: "ifood restaurante", Strong: "ifood restaurante", Weak: "ifood"},
		ApplyToFuture:  true,
		Action:         model.ActionCreated,
		RuleID:         "rule-1",
	}
	require.NoError(t, store.SaveFeedback(ctx, first))
	assert.NotEmpty(t, first.ID)

	second := &model.Feedback{
		UserID:         "user-1",
		RawDescriptor:  "UBER *TRIP",
		UserCategoryID: "transporte",
		Scope:          model.ScopeUser,
		CreatedAt:      first.CreatedAt.Add(1),
	}
	require.NoError(t, store.SaveFeedback(ctx, second))

	list, err := store.ListFeedback(ctx, "user-1", 10)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, model.ActionNone, list[0].Action)
	assert.Equal(t, "ifood", list[1].Fingerprint.Weak)
	assert.Equal(t, model.SourceRegex, list[1].Predicted.Source)
	assert.True(t, list[1].ApplyToFuture)

	assert.ErrorIs(t, store.SaveFeedback(ctx, &model.Feedback{UserID: "user-1"}), ErrInvalidFeedback)
}

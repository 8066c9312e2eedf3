package storage

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cofre/internal/common"
	"github.com/Veraticus/cofre/internal/model"
)

func TestSaveTransactions(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	day := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	txns := []model.Transaction{
		testExpense("t1", "fam-1", "netflix com", "lazer", day, "-39.90"),
		testExpense("t2", "fam-1", "ifood restaurante", "alimentacao", day, "-52.10"),
	}

	inserted, err := store.SaveTransactions(ctx, txns)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Same hash, different ID: skipped.
	dup := txns[0]
	dup.ID = "t1-again"
	inserted, err = store.SaveTransactions(ctx, []model.Transaction{dup})
	require.NoError(t, err)
	assert.Equal(t, 0, inserted)

	got, err := store.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "fam-1", got.FamilyID)
	assert.Equal(t, "lazer", got.CategoryID)
	assert.Equal(t, model.TransactionExpense, got.Type)
	assert.Equal(t, "-39.9", got.Amount.String())
	assert.True(t, got.Date.Equal(day))

	_, err = store.GetTransactionByID(ctx, "t1-again")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = store.SaveTransactions(ctx, []model.Transaction{{ID: "bad"}})
	assert.ErrorIs(t, err, ErrInvalidTransaction)
}

func TestUpdateTransactionCategory(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.SaveTransactions(ctx, []model.Transaction{
		testExpense("t1", "fam-1", "ifood restaurante", "", time.Now(), "-30.00"),
	})
	require.NoError(t, err)

	require.NoError(t, store.UpdateTransactionCategory(ctx, "t1", "lazer", "delivery"))

	got, err := store.GetTransactionByID(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "lazer", got.CategoryID)
	assert.Equal(t, "delivery", got.SubcategoryID)

	assert.ErrorIs(t, store.UpdateTransactionCategory(ctx, "missing", "lazer", ""), common.ErrNotFound)
	assert.ErrorIs(t, store.UpdateTransactionCategory(ctx, "t1", "", ""), ErrEmptyString)
}

func TestGetExpenses(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	march := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	income := testExpense("salary", "fam-1", "salario", "receitas", march.AddDate(0, 0, 4), "5000.00")
	income.Type = model.TransactionIncome
	income.Hash = income.GenerateHash()

	_, err := store.SaveTransactions(ctx, []model.Transaction{
		testExpense("feb", "fam-1", "netflix", "lazer", march.AddDate(0, 0, -1), "-39.90"),
		testExpense("mar-start", "fam-1", "netflix", "lazer", march, "-39.90"),
		testExpense("mar-end", "fam-1", "ifood", "alimentacao", march.AddDate(0, 1, 0).Add(-time.Second), "-20.00"),
		testExpense("apr", "fam-1", "netflix", "lazer", march.AddDate(0, 1, 0), "-39.90"),
		testExpense("uncategorized", "fam-1", "loja", "", march.AddDate(0, 0, 2), "-10.00"),
		testExpense("other-family", "fam-2", "netflix", "lazer", march.AddDate(0, 0, 3), "-39.90"),
		income,
	})
	require.NoError(t, err)

	expenses, err := store.GetExpenses(ctx, "fam-1", march, march.AddDate(0, 1, 0))
	require.NoError(t, err)

	ids := make([]string, len(expenses))
	for i, e := range expenses {
		ids[i] = e.ID
	}
	assert.Equal(t, []string{"mar-start", "mar-end"}, ids)

	_, err = store.GetExpenses(ctx, "fam-1", march, march.AddDate(0, -1, 0))
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestGetCategoryHistory(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	key := "ifood restaurante"

	_, err := store.SaveTransactions(ctx, []model.Transaction{
		testExpense("a", "fam-1", key, "alimentacao", now.AddDate(0, 0, -10), "-30.00"),
		testExpense("b", "fam-1", key, "alimentacao", now.AddDate(0, 0, -40), "-31.00"),
		testExpense("c", "fam-1", key, "lazer", now.AddDate(0, 0, -5), "-32.00"),
		testExpense("too-old", "fam-1", key, "alimentacao", now.AddDate(0, 0, -200), "-33.00"),
		testExpense("uncategorized", "fam-1", key, "", now.AddDate(0, 0, -1), "-34.00"),
	})
	require.NoError(t, err)

	history, err := store.GetCategoryHistory(ctx, "user-1", key, now.AddDate(0, 0, -180))
	require.NoError(t, err)
	require.Len(t, history, 2)

	byCategory := map[string]int{}
	for _, h := range history {
		byCategory[h.CategoryID] = h.Occurrences
	}
	assert.Equal(t, map[string]int{"alimentacao": 2, "lazer": 1}, byCategory)

	assert.Equal(t, "lazer", history[0].CategoryID, "most recently used first")
	assert.True(t, history[0].LastUsedAt.Equal(now.AddDate(0, 0, -5)))
	assert.True(t, history[1].LastUsedAt.Equal(now.AddDate(0, 0, -10)))

	history, err = store.GetCategoryHistory(ctx, "user-2", key, now.AddDate(0, 0, -180))
	require.NoError(t, err)
	assert.Empty(t, history)
}

package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/service"
	"github.com/Veraticus/cofre/internal/storage"
)

func TestSetupTestDB(t *testing.T) {
	db := SetupTestDB(t)

	version, err := db.Storage.SchemaVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, storage.ExpectedSchemaVersion, version)
}

func TestSetupTestDBWithOptions(t *testing.T) {
	ctx := context.Background()
	var ran bool

	db := SetupTestDBWithOptions(t, TestDBOptions{
		Transactions: NewTransactionBuilder("fam-1", "alice").
			Expense("NETFLIX.COM", "39.90", "lazer", "streaming").
			Monthly(2025, time.January, 3).
			Build(),
		Rules: []service.RuleUpsert{{
			ScopeType:       model.ScopeGlobal,
			FingerprintType: model.FingerprintWeak,
			Fingerprint:     "netflix",
			CategoryID:      "lazer",
			Policy:          model.ConflictKeep,
			SeedConfidence:  model.DefaultRuleSeedConfidence,
		}},
		CustomSetup: func(context.Context, *storage.SQLiteStorage) error {
			ran = true
			return nil
		},
	})
	assert.True(t, ran)

	expenses, err := db.Storage.GetExpenses(ctx, "fam-1",
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, expenses, 3)
	assert.Equal(t, "-39.9", expenses[0].Amount.String())
	assert.Equal(t, time.March, expenses[2].Date.Month())

	rule, err := db.Storage.LookupRule(ctx, "anyone", "", "netflix com", "netflix")
	require.NoError(t, err)
	assert.Equal(t, model.ScopeGlobal, rule.ScopeType)
}

func TestMustLearn(t *testing.T) {
	db := SetupTestDB(t)

	strong := db.MustLearn(model.ScopeUser, "alice", "ifood restaurante", "alimentacao", "restaurante")
	assert.Equal(t, model.FingerprintStrong, strong.FingerprintType)

	weak := db.MustLearn(model.ScopeFamily, "fam-1", "ifood", "alimentacao", "")
	assert.Equal(t, model.FingerprintWeak, weak.FingerprintType)
}

func TestTransactionBuilder(t *testing.T) {
	txns := NewTransactionBuilder("fam-1", "alice").
		Expense("ALUGUEL", "2500", "casa", "aluguel").
		On(time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)).
		Expense("LUZ", "-180.55", "casa", "luz").
		Monthly(2025, time.May, 2).
		Build()

	require.Len(t, txns, 3)
	assert.True(t, txns[0].Amount.IsNegative())
	assert.Equal(t, "-180.55", txns[1].Amount.String())
	for _, txn := range txns {
		assert.NotEmpty(t, txn.Hash)
		assert.Equal(t, model.TransactionExpense, txn.Type)
	}
	assert.NotEqual(t, txns[1].ID, txns[2].ID)
}

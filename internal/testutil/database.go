// Package testutil provides test databases and fixture builders for cofre's
// packages. It offers proper test isolation and a fluent API for seeding data.
package testutil

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Veraticus/cofre/internal/model"
	"github.com/Veraticus/cofre/internal/service"
	"github.com/Veraticus/cofre/internal/storage"
)

// TestDB represents a migrated in-memory test database.
type TestDB struct {
	Storage *storage.SQLiteStorage
	t       *testing.T
}

// TestDBOptions provides configuration options for test database setup.
type TestDBOptions struct {
	CustomSetup    func(context.Context, *storage.SQLiteStorage) error
	Transactions   []model.Transaction
	Rules          []service.RuleUpsert
	SkipMigrations bool
}

// SetupTestDB creates a new in-memory test database. Migrations run and cleanup
// is registered automatically.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()
	return SetupTestDBWithOptions(t, TestDBOptions{})
}

// SetupTestDBWithOptions creates a test database with custom options.
//
// Example:
//
//	db := testutil.SetupTestDBWithOptions(t, testutil.TestDBOptions{
//		Transactions: testutil.NewTransactionBuilder("fam-1", "alice").
//			Expense("NETFLIX.COM", "39.90", "lazer", "streaming").
//			Monthly(2025, time.January, 6).
//			Build(),
//	})
func SetupTestDBWithOptions(t *testing.T, opts TestDBOptions) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = store.Close()
	})
	ctx := context.Background()

	if !opts.SkipMigrations {
		if err := store.Migrate(ctx); err != nil {
			t.Fatalf("failed to run migrations: %v", err)
		}
	}

	if len(opts.Transactions) > 0 {
		if _, err := store.SaveTransactions(ctx, opts.Transactions); err != nil {
			t.Fatalf("failed to seed transactions: %v", err)
		}
	}

	for _, rule := range opts.Rules {
		if rule.Now.IsZero() {
			rule.Now = time.Now()
		}
		if _, err := store.UpsertRule(ctx, rule); err != nil {
			t.Fatalf("failed to seed rule %q: %v", rule.Fingerprint, err)
		}
	}

	if opts.CustomSetup != nil {
		if err := opts.CustomSetup(ctx, store); err != nil {
			t.Fatalf("custom setup failed: %v", err)
		}
	}

	return &TestDB{Storage: store, t: t}
}

// MustLearn stores a rule at scope and returns it, failing the test on error.
func (db *TestDB) MustLearn(scope model.Scope, scopeID, fingerprint, categoryID, subcategoryID string) *model.LearnedRule {
	db.t.Helper()

	fpType := model.FingerprintStrong
	if !strings.Contains(fingerprint, " ") {
		fpType = model.FingerprintWeak
	}

	res, err := db.Storage.UpsertRule(context.Background(), service.RuleUpsert{
		Now:             time.Now(),
		ScopeType:       scope,
		ScopeID:         scopeID,
		FingerprintType: fpType,
		Fingerprint:     fingerprint,
		CategoryID:      categoryID,
		SubcategoryID:   subcategoryID,
		Policy:          model.ConflictKeep,
		SeedConfidence:  model.DefaultRuleSeedConfidence,
	})
	if err != nil {
		db.t.Fatalf("failed to learn %q: %v", fingerprint, err)
	}
	return &res.Rule
}

// TransactionBuilder builds expense fixtures for one family member.
type TransactionBuilder struct {
	familyID    string
	userID      string
	description string
	amount      string
	categoryID  string
	subcategory string
	built       []model.Transaction
}

// NewTransactionBuilder starts a fixture set owned by userID in familyID.
func NewTransactionBuilder(familyID, userID string) *TransactionBuilder {
	return &TransactionBuilder{familyID: familyID, userID: userID}
}

// Expense sets the descriptor, absolute amount and category of the following dates.
func (b *TransactionBuilder) Expense(description, amount, categoryID, subcategoryID string) *TransactionBuilder {
	b.description = description
	b.amount = amount
	b.categoryID = categoryID
	b.subcategory = subcategoryID
	return b
}

// On adds one expense per date.
func (b *TransactionBuilder) On(dates ...time.Time) *TransactionBuilder {
	for _, date := range dates {
		txn := model.Transaction{
			ID:             fmt.Sprintf("%s-%s-%s-%d", b.familyID, b.categoryID, date.Format("20060102"), len(b.built)),
			FamilyID:       b.familyID,
			UserID:         b.userID,
			AccountID:      "acc-test",
			Date:           date.UTC(),
			Description:    b.description,
			DescriptionKey: b.description,
			Amount:         decimal.RequireFromString(b.amount).Abs().Neg(),
			Type:           model.TransactionExpense,
			CategoryID:     b.categoryID,
			SubcategoryID:  b.subcategory,
		}
		txn.Hash = txn.GenerateHash()
		b.built = append(b.built, txn)
	}
	return b
}

// Monthly adds count expenses on the 10th of consecutive months starting at year/month.
func (b *TransactionBuilder) Monthly(year int, month time.Month, count int) *TransactionBuilder {
	start := time.Date(year, month, 10, 12, 0, 0, 0, time.UTC)
	for i := 0; i < count; i++ {
		b.On(start.AddDate(0, i, 0))
	}
	return b
}

// Build returns the accumulated transactions.
func (b *TransactionBuilder) Build() []model.Transaction {
	out := make([]model.Transaction, len(b.built))
	copy(out, b.built)
	return out
}

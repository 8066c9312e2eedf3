package storage

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/Veraticus/cofre/internal/model"
)

func TestValidateContext(t *testing.T) {
	tests := []struct {
		ctx     context.Context
		name    string
		wantErr bool
	}{
		{
			name:    "valid context",
			ctx:     context.Background(),
			wantErr: false,
		},
		{
			name:    "nil context",
			ctx:     nil,
			wantErr: true,
		},
		{
			name: "canceled context still valid",
			ctx: func() context.Context {
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			}(),
			wantErr: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateContext(tt.ctx)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrNilContext)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateString(t *testing.T) {
	tests := []struct {
		name    string
		str     string
		wantErr bool
	}{
		{name: "valid string", str: "test"},
		{name: "empty string", str: "", wantErr: true},
		{name: "whitespace only", str: "   ", wantErr: true},
		{name: "string with spaces", str: "  test  "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateString(tt.str, "param")
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrEmptyString)
				assert.Contains(t, err.Error(), "param")
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestValidateTransaction(t *testing.T) {
	valid := func() model.Transaction {
		return model.Transaction{
			ID:          "txn-1",
			FamilyID:    "fam-1",
			Date:        time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
			Description: "NETFLIX.COM",
			Amount:      decimal.RequireFromString("-39.90"),
			Type:        model.TransactionExpense,
		}
	}

	tests := []struct {
		name    string
		mutate  func(*model.Transaction)
		wantErr bool
	}{
		{name: "valid", mutate: func(*model.Transaction) {}},
		{name: "missing ID", mutate: func(t *model.Transaction) { t.ID = "" }, wantErr: true},
		{name: "missing date", mutate: func(t *model.Transaction) { t.Date = time.Time{} }, wantErr: true},
		{name: "blank description", mutate: func(t *model.Transaction) { t.Description = " " }, wantErr: true},
		{name: "missing family", mutate: func(t *model.Transaction) { t.FamilyID = "" }, wantErr: true},
		{name: "unknown type", mutate: func(t *model.Transaction) { t.Type = "refund" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			txn := valid()
			tt.mutate(&txn)
			err := validateTransaction(&txn)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidTransaction)
				return
			}
			assert.NoError(t, err)
		})
	}

	assert.ErrorIs(t, validateTransaction(nil), ErrNilParameter)
	assert.ErrorIs(t, validateTransactions(nil), ErrNilParameter)
	assert.ErrorIs(t, validateTransactions([]model.Transaction{}), ErrEmptySlice)
}

func TestValidateConfirmation(t *testing.T) {
	valid := func() model.RecurringConfirmation {
		return model.RecurringConfirmation{
			FamilyID:          "fam-1",
			CategoryID:        "lazer",
			MonthRef:          "2025-03",
			ConfirmationType:  model.ConfirmationIgnored,
			ConfirmedByUserID: "user-1",
		}
	}

	tests := []struct {
		name    string
		mutate  func(*model.RecurringConfirmation)
		wantErr bool
	}{
		{name: "valid", mutate: func(*model.RecurringConfirmation) {}},
		{name: "missing family", mutate: func(c *model.RecurringConfirmation) { c.FamilyID = "" }, wantErr: true},
		{name: "missing category", mutate: func(c *model.RecurringConfirmation) { c.CategoryID = "" }, wantErr: true},
		{name: "bad month", mutate: func(c *model.RecurringConfirmation) { c.MonthRef = "2025-13" }, wantErr: true},
		{name: "unknown type", mutate: func(c *model.RecurringConfirmation) { c.ConfirmationType = "paid" }, wantErr: true},
		{name: "missing user", mutate: func(c *model.RecurringConfirmation) { c.ConfirmedByUserID = "" }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(&c)
			err := validateConfirmation(&c)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfirmation)
				return
			}
			assert.NoError(t, err)
		})
	}
}

package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction represents a single financial transaction from any source.
type Transaction struct {
	Date           time.Time       `json:"date"`
	Amount         decimal.Decimal `json:"amount"`
	ID             string          `json:"id"`
	FamilyID       string          `json:"family_id"`
	UserID         string          `json:"user_id"`
	AccountID      string          `json:"account_id"`
	Description    string          `json:"description"`     // Raw bank descriptor
	DescriptionKey string          `json:"description_key"` // Normalized history key
	Type           TransactionType `json:"type"`
	CategoryID     string          `json:"category_id,omitempty"`
	SubcategoryID  string          `json:"subcategory_id,omitempty"`
	Hash           string          `json:"hash"`
}

// GenerateHash creates a unique hash for duplicate detection.
func (t *Transaction) GenerateHash() string {
	data := fmt.Sprintf("%s:%s:%s:%s:%s",
		t.Date.Format("2006-01-02"),
		t.Amount.StringFixed(2),
		t.Description,
		t.AccountID,
		t.FamilyID)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// TypeForAmount infers expense or income from a signed amount.
func TypeForAmount(amount decimal.Decimal) TransactionType {
	if amount.IsNegative() {
		return TransactionExpense
	}
	return TransactionIncome
}

// CategoryKey identifies a (category, subcategory) pair.
type CategoryKey struct {
	CategoryID    string
	SubcategoryID string
}

// Key returns the transaction's category key.
func (t *Transaction) Key() CategoryKey {
	return CategoryKey{CategoryID: t.CategoryID, SubcategoryID: t.SubcategoryID}
}

package model

import (
	"fmt"
	"time"
)

// Recurring detection thresholds.
const (
	MinRecurringMonths     = 3
	MinRecurringConfidence = 0.7
)

// RecurringPattern is a category expected to produce an expense every month.
type RecurringPattern struct {
	LastOccurrenceDate time.Time   `json:"last_occurrence_date"`
	CategoryID         string      `json:"category_id"`
	SubcategoryID      string      `json:"subcategory_id,omitempty"`
	PatternType        PatternType `json:"pattern_type"`
	AverageAmount      float64     `json:"average_amount"`
	Confidence         float64     `json:"confidence"`
	OccurrenceCount    int         `json:"occurrence_count"`
}

// Key returns the pattern's category key.
func (p RecurringPattern) Key() CategoryKey {
	return CategoryKey{CategoryID: p.CategoryID, SubcategoryID: p.SubcategoryID}
}

// RecurringConfirmation is a user's resolution of a pattern for one month.
type RecurringConfirmation struct {
	UpdatedAt         time.Time        `json:"updated_at"`
	FamilyID          string           `json:"family_id"`
	CategoryID        string           `json:"category_id"`
	SubcategoryID     string           `json:"subcategory_id,omitempty"`
	MonthRef          MonthRef         `json:"month_ref"`
	ConfirmationType  ConfirmationType `json:"confirmation_type"`
	ConfirmedByUserID string           `json:"confirmed_by_user_id"`
}

// Key returns the confirmation's category key.
func (c RecurringConfirmation) Key() CategoryKey {
	return CategoryKey{CategoryID: c.CategoryID, SubcategoryID: c.SubcategoryID}
}

// MissingRecurringExpense is a pattern with no transaction in the target month.
type MissingRecurringExpense struct {
	MonthRef           MonthRef           `json:"month_ref"`
	ConfirmationStatus ConfirmationStatus `json:"confirmation_status"`
	Pattern            RecurringPattern   `json:"pattern"`
}

// MonthRef is a calendar month formatted as YYYY-MM.
type MonthRef string

// ParseMonthRef validates s as YYYY-MM.
func ParseMonthRef(s string) (MonthRef, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return "", fmt.Errorf("%w: month %q", ErrUnknownValue, s)
	}
	return MonthRef(t.Format("2006-01")), nil
}

// NewMonthRef builds a MonthRef from a month (1-12) and year.
func NewMonthRef(month, year int) (MonthRef, error) {
	if month < 1 || month > 12 || year < 1 {
		return "", fmt.Errorf("%w: month %d/%d", ErrUnknownValue, month, year)
	}
	return MonthRef(fmt.Sprintf("%04d-%02d", year, month)), nil
}

// MonthOf returns the MonthRef containing t.
func MonthOf(t time.Time) MonthRef {
	return MonthRef(t.Format("2006-01"))
}

// UnmarshalText rejects malformed months.
func (m *MonthRef) UnmarshalText(text []byte) error {
	v, err := ParseMonthRef(string(text))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Start returns the first instant of the month in UTC.
func (m MonthRef) Start() time.Time {
	t, err := time.Parse("2006-01", string(m))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// AddMonths returns the month n months away.
func (m MonthRef) AddMonths(n int) MonthRef {
	return MonthOf(m.Start().AddDate(0, n, 0))
}

func (m MonthRef) String() string {
	return string(m)
}

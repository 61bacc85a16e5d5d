package models

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers rather than quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// Report categories accepted on insert.
const (
	CategorySales   = "Sales"
	CategoryHR      = "HR"
	CategoryFinance = "Finance"
)

// Report is one reportable transaction row.
type Report struct {
	ID        int64           `db:"id" json:"id"`
	Date      Date            `db:"date" json:"date"`
	Category  string          `db:"category" json:"category"`
	Amount    decimal.Decimal `db:"amount" json:"amount"`
	User      string          `db:"user" json:"user"`
	Region    string          `db:"region" json:"region"`
	CreatedAt *time.Time      `db:"created_at" json:"created_at,omitempty"`
}

// FormattedAmount renders the amount with exactly two decimals.
func (r Report) FormattedAmount() string {
	return r.Amount.StringFixed(2)
}

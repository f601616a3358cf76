package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Fund identifies one of the two contribution pools.
type Fund string

const (
	FundTakaful Fund = "takaful"
	FundPlus    Fund = "plus"
)

// Funds lists the contribution pools.
var Funds = []Fund{FundTakaful, FundPlus}

// Valid reports whether f is a known fund.
func (f Fund) Valid() bool {
	return f == FundTakaful || f == FundPlus
}

// Member is a contributing family member with monthly dues per fund and
// balances carried over from before the system existed.
type Member struct {
	ID                       string          `db:"id" json:"id"`
	UserID                   *string         `db:"user_id" json:"user_id,omitempty"`
	FullName                 string          `db:"full_name" json:"full_name"`
	Email                    *string         `db:"email" json:"email,omitempty"`
	Phone                    *string         `db:"phone" json:"phone,omitempty"`
	TakafulMonthly           decimal.Decimal `db:"takaful_monthly" json:"takaful_monthly"`
	PlusMonthly              decimal.Decimal `db:"plus_monthly" json:"plus_monthly"`
	HistoricalTakafulPaid    decimal.Decimal `db:"historical_takaful_paid" json:"historical_takaful_paid"`
	HistoricalTakafulPending decimal.Decimal `db:"historical_takaful_pending" json:"historical_takaful_pending"`
	HistoricalPlusPaid       decimal.Decimal `db:"historical_plus_paid" json:"historical_plus_paid"`
	HistoricalPlusPending    decimal.Decimal `db:"historical_plus_pending" json:"historical_plus_pending"`
	Active                   bool            `db:"active" json:"active"`
	JoinedAt                 time.Time       `db:"joined_at" json:"joined_at"`
	CreatedAt                time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt                time.Time       `db:"updated_at" json:"updated_at"`
}

// MonthlyRate returns the member's monthly due for fund.
func (m *Member) MonthlyRate(fund Fund) decimal.Decimal {
	if fund == FundPlus {
		return m.PlusMonthly
	}
	return m.TakafulMonthly
}

// Historical returns the pre-system paid and pending balances for fund.
func (m *Member) Historical(fund Fund) (paid, pending decimal.Decimal) {
	if fund == FundPlus {
		return m.HistoricalPlusPaid, m.HistoricalPlusPending
	}
	return m.HistoricalTakafulPaid, m.HistoricalTakafulPending
}

// MemberFilter narrows member listings.
type MemberFilter struct {
	Active   *bool
	Search   string
	Page     int
	PageSize int
}

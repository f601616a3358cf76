package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus tracks whether a monthly due has been settled.
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

// Payment is one member's due for one fund and one month.
type Payment struct {
	ID            string          `db:"id" json:"id"`
	MemberID      string          `db:"member_id" json:"member_id"`
	Fund          Fund            `db:"fund" json:"fund"`
	Period        time.Time       `db:"period" json:"period"`
	Amount        decimal.Decimal `db:"amount" json:"amount"`
	Status        PaymentStatus   `db:"status" json:"status"`
	PaidAt        *time.Time      `db:"paid_at" json:"paid_at,omitempty"`
	PaymentMethod *string         `db:"payment_method" json:"payment_method,omitempty"`
	Notes         *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at" json:"updated_at"`
}

// PaymentFilter narrows payment listings.
type PaymentFilter struct {
	MemberID string
	Fund     *Fund
	Status   *PaymentStatus
	From     *time.Time
	To       *time.Time
	Page     int
	PageSize int
}

// PeriodStart truncates t to the first day of its month in UTC.
func PeriodStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

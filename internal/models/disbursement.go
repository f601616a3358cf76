package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Well-known disbursement payment methods. Free text is also accepted.
const (
	PaymentMethodCash         = "cash"
	PaymentMethodBankTransfer = "bank_transfer"
	PaymentMethodMobileMoney  = "mobile_money"
	PaymentMethodCheque       = "cheque"
)

// Disbursement is one append-only payout against an approved case.
type Disbursement struct {
	ID               string          `db:"id" json:"id"`
	CaseID           string          `db:"case_id" json:"case_id"`
	Amount           decimal.Decimal `db:"amount" json:"amount"`
	DisbursedBy      *string         `db:"disbursed_by" json:"disbursed_by,omitempty"`
	DisbursementDate time.Time       `db:"disbursement_date" json:"disbursement_date"`
	PaymentMethod    *string         `db:"payment_method" json:"payment_method,omitempty"`
	ReferenceNumber  *string         `db:"reference_number" json:"reference_number,omitempty"`
	Notes            *string         `db:"notes" json:"notes,omitempty"`
	CreatedAt        time.Time       `db:"created_at" json:"created_at"`
}

// DisbursementResult is returned by the accumulator with the case's updated totals.
type DisbursementResult struct {
	Disbursement *Disbursement   `json:"disbursement"`
	Case         *AssistanceCase `json:"case"`
	Completed    bool            `json:"completed"`
}

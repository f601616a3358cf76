package models

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CaseType enumerates the kinds of assistance the fund pays out.
type CaseType string

const (
	CaseTypeFuneral   CaseType = "funeral"
	CaseTypeEducation CaseType = "education"
	CaseTypeMedical   CaseType = "medical"
	CaseTypeMarriage  CaseType = "marriage"
	CaseTypeEmergency CaseType = "emergency"
	CaseTypeWelfare   CaseType = "welfare"
)

// CaseTypes lists every supported case type in display order.
var CaseTypes = []CaseType{
	CaseTypeFuneral,
	CaseTypeEducation,
	CaseTypeMedical,
	CaseTypeMarriage,
	CaseTypeEmergency,
	CaseTypeWelfare,
}

// Valid reports whether t is a known case type.
func (t CaseType) Valid() bool {
	for _, known := range CaseTypes {
		if t == known {
			return true
		}
	}
	return false
}

// CaseStatus is the lifecycle state of an assistance case.
type CaseStatus string

const (
	CaseStatusPending   CaseStatus = "pending"
	CaseStatusApproved  CaseStatus = "approved"
	CaseStatusRejected  CaseStatus = "rejected"
	CaseStatusCompleted CaseStatus = "completed"
)

// CaseStatuses lists every status in lifecycle order.
var CaseStatuses = []CaseStatus{
	CaseStatusPending,
	CaseStatusApproved,
	CaseStatusRejected,
	CaseStatusCompleted,
}

var caseTransitions = map[CaseStatus][]CaseStatus{
	CaseStatusPending:  {CaseStatusApproved, CaseStatusRejected},
	CaseStatusApproved: {CaseStatusCompleted},
}

// Valid reports whether s is a known status.
func (s CaseStatus) Valid() bool {
	for _, known := range CaseStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// CanTransition reports whether the state machine allows moving from s to next.
func (s CaseStatus) CanTransition(next CaseStatus) bool {
	for _, allowed := range caseTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s CaseStatus) Terminal() bool {
	return s.Valid() && len(caseTransitions[s]) == 0
}

// Ledger guard failures. Services translate these into HTTP-aware errors.
var (
	ErrInvalidTransition = errors.New("case status transition not allowed")
	ErrCaseNotApproved   = errors.New("case is not approved")
	ErrNonPositiveAmount = errors.New("amount must be positive")
	ErrExceedsRequested  = errors.New("approved amount exceeds requested amount")
	ErrOverpayment       = errors.New("disbursement exceeds approved amount")
	ErrCeilingNotReached = errors.New("disbursed amount has not reached approved amount")
	ErrReasonRequired    = errors.New("rejection reason is required")
	ErrAmountPrecision   = errors.New("amount must have at most two decimal places")
	ErrAmountTooLarge    = errors.New("amount exceeds the largest storable value")
)

// AmountScale is the number of decimal places the money columns store.
const AmountScale = 2

// MaxAmount is the exclusive upper bound of a NUMERIC(14,2) column.
var MaxAmount = decimal.New(1, 12)

// CheckAmount validates a money amount supplied by a caller: positive, at most two
// decimal places and below MaxAmount. Amounts that pass are stored without rounding.
func CheckAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrNonPositiveAmount
	}
	if !amount.Equal(amount.Round(AmountScale)) {
		return ErrAmountPrecision
	}
	if amount.GreaterThanOrEqual(MaxAmount) {
		return ErrAmountTooLarge
	}
	return nil
}

// AssistanceCase is a request for a payout to a beneficiary, approved once and disbursed incrementally.
type AssistanceCase struct {
	ID              string              `db:"id" json:"id"`
	BeneficiaryID   string              `db:"beneficiary_id" json:"beneficiary_id"`
	CaseType        CaseType            `db:"case_type" json:"case_type"`
	Title           string              `db:"title" json:"title"`
	Description     *string             `db:"description" json:"description,omitempty"`
	RequestedAmount decimal.Decimal     `db:"requested_amount" json:"requested_amount"`
	ApprovedAmount  decimal.NullDecimal `db:"approved_amount" json:"approved_amount"`
	DisbursedAmount decimal.Decimal     `db:"disbursed_amount" json:"disbursed_amount"`
	Status          CaseStatus          `db:"status" json:"status"`
	RequestedBy     *string             `db:"requested_by" json:"requested_by,omitempty"`
	ApprovedBy      *string             `db:"approved_by" json:"approved_by,omitempty"`
	ApprovedAt      *time.Time          `db:"approved_at" json:"approved_at,omitempty"`
	RejectionReason *string             `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// Remaining returns the amount still payable against the approved ceiling.
func (c *AssistanceCase) Remaining() decimal.Decimal {
	if !c.ApprovedAmount.Valid {
		return decimal.Zero
	}
	return c.ApprovedAmount.Decimal.Sub(c.DisbursedAmount)
}

// FullyDisbursed reports whether the approved ceiling has been reached exactly.
func (c *AssistanceCase) FullyDisbursed() bool {
	return c.ApprovedAmount.Valid && c.DisbursedAmount.Equal(c.ApprovedAmount.Decimal)
}

// CheckApprove validates approving the case for amount.
func (c *AssistanceCase) CheckApprove(amount decimal.Decimal) error {
	if !c.Status.CanTransition(CaseStatusApproved) {
		return ErrInvalidTransition
	}
	if err := CheckAmount(amount); err != nil {
		return err
	}
	if amount.GreaterThan(c.RequestedAmount) {
		return ErrExceedsRequested
	}
	return nil
}

// CheckReject validates rejecting the case with reason.
func (c *AssistanceCase) CheckReject(reason string) error {
	if !c.Status.CanTransition(CaseStatusRejected) {
		return ErrInvalidTransition
	}
	if strings.TrimSpace(reason) == "" {
		return ErrReasonRequired
	}
	return nil
}

// CheckComplete validates completing the case. An already completed case returns (false, nil).
func (c *AssistanceCase) CheckComplete() (bool, error) {
	if c.Status == CaseStatusCompleted {
		return false, nil
	}
	if !c.Status.CanTransition(CaseStatusCompleted) {
		return false, ErrInvalidTransition
	}
	if !c.FullyDisbursed() {
		return false, ErrCeilingNotReached
	}
	return true, nil
}

// CheckDisbursement validates paying amount against the case. A completed case has no
// remaining ceiling, so any positive amount against it is an overpayment.
func (c *AssistanceCase) CheckDisbursement(amount decimal.Decimal) error {
	if c.Status != CaseStatusApproved && c.Status != CaseStatusCompleted {
		return ErrCaseNotApproved
	}
	if err := CheckAmount(amount); err != nil {
		return err
	}
	if c.DisbursedAmount.Add(amount).GreaterThan(c.ApprovedAmount.Decimal) {
		return ErrOverpayment
	}
	return nil
}

// CaseFilter narrows case listings.
type CaseFilter struct {
	Status        *CaseStatus
	CaseType      *CaseType
	BeneficiaryID string
	Search        string
	Page          int
	PageSize      int
	SortBy        string
	SortOrder     string
}

// CaseTransition records the outcome of a status change for event emission.
type CaseTransition struct {
	Case    *AssistanceCase
	From    CaseStatus
	To      CaseStatus
	Changed bool
}

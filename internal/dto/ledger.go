package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/family-fund-api/internal/models"
)

// BeneficiaryRequest is the payload for creating or replacing a beneficiary.
type BeneficiaryRequest struct {
	Name           string  `json:"name" validate:"required,max=200"`
	Phone          *string `json:"phone,omitempty" validate:"omitempty,max=50"`
	Relationship   *string `json:"relationship,omitempty" validate:"omitempty,max=100"`
	Address        *string `json:"address,omitempty"`
	Notes          *string `json:"notes,omitempty"`
	IsFamilyMember bool    `json:"is_family_member"`
}

// SubmitCaseRequest opens a new assistance case in pending status.
type SubmitCaseRequest struct {
	BeneficiaryID   string          `json:"beneficiary_id" validate:"required,uuid"`
	CaseType        models.CaseType `json:"case_type" validate:"required"`
	Title           string          `json:"title" validate:"required,max=200"`
	Description     *string         `json:"description,omitempty"`
	RequestedAmount decimal.Decimal `json:"requested_amount"`
}

// ApproveCaseRequest approves a pending case for a ceiling amount.
type ApproveCaseRequest struct {
	ApprovedAmount decimal.Decimal `json:"approved_amount"`
}

// RejectCaseRequest rejects a pending case.
type RejectCaseRequest struct {
	Reason string `json:"reason"`
}

// RecordDisbursementRequest records one payout against an approved case.
type RecordDisbursementRequest struct {
	Amount           decimal.Decimal `json:"amount"`
	DisbursementDate *string         `json:"disbursement_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	PaymentMethod    *string         `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	ReferenceNumber  *string         `json:"reference_number,omitempty" validate:"omitempty,max=100"`
	Notes            *string         `json:"notes,omitempty"`
}

// CaseDetail bundles a case with its beneficiary and disbursement history.
type CaseDetail struct {
	Case          *models.AssistanceCase `json:"case"`
	Beneficiary   *models.Beneficiary    `json:"beneficiary,omitempty"`
	Disbursements []models.Disbursement  `json:"disbursements"`
	Remaining     decimal.Decimal        `json:"remaining"`
}

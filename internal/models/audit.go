package models

import "time"

// AuditAction constants represent actions to be logged.
const (
	AuditActionLogin              = "LOGIN"
	AuditActionPasswordChange     = "PASSWORD_CHANGE"
	AuditActionUserCreate         = "USER_CREATE"
	AuditActionBeneficiaryCreate  = "BENEFICIARY_CREATE"
	AuditActionBeneficiaryUpdate  = "BENEFICIARY_UPDATE"
	AuditActionCaseSubmit         = "CASE_SUBMIT"
	AuditActionCaseApprove        = "CASE_APPROVE"
	AuditActionCaseReject         = "CASE_REJECT"
	AuditActionCaseComplete       = "CASE_COMPLETE"
	AuditActionDisbursementRecord = "DISBURSEMENT_RECORD"
	AuditActionPaymentMarkPaid    = "PAYMENT_MARK_PAID"
	AuditActionMemberCreate       = "MEMBER_CREATE"
	AuditActionDuesGenerate       = "DUES_GENERATE"
	AuditActionExportRequest      = "EXPORT_REQUEST"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string    `db:"id" json:"id"`
	UserID     *string   `db:"user_id" json:"user_id,omitempty"`
	Action     string    `db:"action" json:"action"`
	Resource   string    `db:"resource" json:"resource"`
	ResourceID *string   `db:"resource_id" json:"resource_id,omitempty"`
	OldValues  []byte    `db:"old_values" json:"old_values,omitempty"`
	NewValues  []byte    `db:"new_values" json:"new_values,omitempty"`
	IPAddress  string    `db:"ip_address" json:"ip_address"`
	UserAgent  string    `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// AuditMeta carries request origin details recorded alongside audit rows.
type AuditMeta struct {
	IP        string
	UserAgent string
}

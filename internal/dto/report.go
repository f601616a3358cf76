package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/family-fund-api/internal/models"
)

// CaseSummary aggregates the ledger across all cases.
type CaseSummary struct {
	TotalCases     int                       `json:"total_cases"`
	ByStatus       map[models.CaseStatus]int `json:"by_status"`
	TotalRequested decimal.Decimal           `json:"total_requested"`
	TotalApproved  decimal.Decimal           `json:"total_approved"`
	TotalDisbursed decimal.Decimal           `json:"total_disbursed"`
	Backlog        decimal.Decimal           `json:"backlog"`
}

// CaseTypeSummary aggregates cases of a single type.
type CaseTypeSummary struct {
	CaseType  models.CaseType `json:"case_type"`
	Count     int             `json:"count"`
	Requested decimal.Decimal `json:"requested"`
	Approved  decimal.Decimal `json:"approved"`
	Disbursed decimal.Decimal `json:"disbursed"`
}

// CaseReconciliation compares a case's stored total with its disbursement rows.
type CaseReconciliation struct {
	CaseID            string            `json:"case_id"`
	Title             string            `json:"title"`
	Status            models.CaseStatus `json:"status"`
	RecordedDisbursed decimal.Decimal   `json:"recorded_disbursed"`
	LedgerDisbursed   decimal.Decimal   `json:"ledger_disbursed"`
	Drift             decimal.Decimal   `json:"drift"`
	Disbursements     int               `json:"disbursements"`
	Consistent        bool              `json:"consistent"`
}

// ReconciliationReport lists every case's reconciliation line.
type ReconciliationReport struct {
	Cases        []CaseReconciliation `json:"cases"`
	Checked      int                  `json:"checked"`
	Inconsistent int                  `json:"inconsistent"`
	Orphaned     int                  `json:"orphaned_disbursements"`
}

// FundSummary reports collections for one fund. Disbursed and Available are only set for takaful.
type FundSummary struct {
	Fund              models.Fund     `json:"fund"`
	Collected         decimal.Decimal `json:"collected"`
	Pending           decimal.Decimal `json:"pending"`
	HistoricalPaid    decimal.Decimal `json:"historical_paid"`
	HistoricalPending decimal.Decimal `json:"historical_pending"`
	Disbursed         decimal.Decimal `json:"disbursed"`
	Available         decimal.Decimal `json:"available"`
}

// FundBalance is a member's position in one fund.
type FundBalance struct {
	Collected decimal.Decimal `json:"collected"`
	Pending   decimal.Decimal `json:"pending"`
}

// MemberSummary reports a member's balances across both funds.
type MemberSummary struct {
	MemberID       string          `json:"member_id"`
	FullName       string          `json:"full_name"`
	Active         bool            `json:"active"`
	Takaful        FundBalance     `json:"takaful"`
	Plus           FundBalance     `json:"plus"`
	TotalCollected decimal.Decimal `json:"total_collected"`
	TotalPending   decimal.Decimal `json:"total_pending"`
}

// MonthlySummary reports paid and pending dues for one calendar month.
type MonthlySummary struct {
	Period         string          `json:"period"`
	TakafulPaid    decimal.Decimal `json:"takaful_paid"`
	TakafulPending decimal.Decimal `json:"takaful_pending"`
	PlusPaid       decimal.Decimal `json:"plus_paid"`
	PlusPending    decimal.Decimal `json:"plus_pending"`
}

// DashboardResponse is the cached landing payload for treasurers and admins.
type DashboardResponse struct {
	Cases       CaseSummary       `json:"cases"`
	ByType      []CaseTypeSummary `json:"by_type"`
	Funds       []FundSummary     `json:"funds"`
	Members     int               `json:"members"`
	GeneratedAt time.Time         `json:"generated_at"`
}

// ExportRequest asks for an asynchronously rendered report file.
type ExportRequest struct {
	Report string `json:"report" validate:"required,oneof=cases members funds monthly"`
	Format string `json:"format" validate:"omitempty,oneof=csv pdf xlsx"`
	Year   int    `json:"year,omitempty" validate:"omitempty,min=2000,max=2100"`
}

// ExportStatus describes an asynchronous export.
type ExportStatus struct {
	ID          string     `json:"id"`
	Report      string     `json:"report"`
	Format      string     `json:"format"`
	Status      string     `json:"status"`
	DownloadURL *string    `json:"download_url,omitempty"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	Error       *string    `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

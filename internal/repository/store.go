package repository

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/family-fund-api/internal/models"
)

// UserStore persists accounts and the audit trail.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	UpdateLastLogin(ctx context.Context, id string, ts time.Time) error
	UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// BeneficiaryStore persists beneficiaries.
type BeneficiaryStore interface {
	Create(ctx context.Context, b *models.Beneficiary) error
	Update(ctx context.Context, b *models.Beneficiary) error
	FindByID(ctx context.Context, id string) (*models.Beneficiary, error)
	List(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, int, error)
}

// CaseStore persists assistance cases and their disbursements. Every state
// change is a guarded write so concurrent callers cannot double spend.
type CaseStore interface {
	Create(ctx context.Context, c *models.AssistanceCase) error
	FindByID(ctx context.Context, id string) (*models.AssistanceCase, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.AssistanceCase, int, error)
	All(ctx context.Context) ([]models.AssistanceCase, error)
	Approve(ctx context.Context, id string, amount decimal.Decimal, approverID *string, at time.Time) (*models.AssistanceCase, error)
	Reject(ctx context.Context, id, reason string, at time.Time) (*models.AssistanceCase, error)
	Complete(ctx context.Context, id string, at time.Time) (*models.AssistanceCase, error)
	RecordDisbursement(ctx context.Context, d *models.Disbursement) (*models.AssistanceCase, bool, error)
	ListDisbursements(ctx context.Context, caseID string) ([]models.Disbursement, error)
	Snapshot(ctx context.Context) ([]models.AssistanceCase, []models.Disbursement, error)
}

// MemberStore persists contributing members.
type MemberStore interface {
	Create(ctx context.Context, m *models.Member) error
	FindByID(ctx context.Context, id string) (*models.Member, error)
	List(ctx context.Context, filter models.MemberFilter) ([]models.Member, int, error)
	All(ctx context.Context) ([]models.Member, error)
}

// PaymentStore persists monthly dues.
type PaymentStore interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	InRange(ctx context.Context, from, to *time.Time) ([]models.Payment, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time, method, notes *string) (*models.Payment, error)
	CreatePending(ctx context.Context, payments []models.Payment) (int, error)
}

// Set groups one implementation of every store.
type Set struct {
	Users         UserStore
	Beneficiaries BeneficiaryStore
	Cases         CaseStore
	Members       MemberStore
	Payments      PaymentStore
}

// NewPostgresSet builds the sqlx backed stores sharing db.
func NewPostgresSet(db *sqlx.DB) Set {
	return Set{
		Users:         NewUserRepository(db),
		Beneficiaries: NewBeneficiaryRepository(db),
		Cases:         NewCaseRepository(db),
		Members:       NewMemberRepository(db),
		Payments:      NewPaymentRepository(db),
	}
}

// Set exposes the in-memory store through the shared interfaces.
func (s *MemoryStore) Set() Set {
	return Set{
		Users:         s.Users(),
		Beneficiaries: s.Beneficiaries(),
		Cases:         s.Cases(),
		Members:       s.Members(),
		Payments:      s.Payments(),
	}
}

var (
	_ UserStore        = (*UserRepository)(nil)
	_ UserStore        = (*MemoryUserRepository)(nil)
	_ BeneficiaryStore = (*BeneficiaryRepository)(nil)
	_ BeneficiaryStore = (*MemoryBeneficiaryRepository)(nil)
	_ CaseStore        = (*CaseRepository)(nil)
	_ CaseStore        = (*MemoryCaseRepository)(nil)
	_ MemberStore      = (*MemberRepository)(nil)
	_ MemberStore      = (*MemoryMemberRepository)(nil)
	_ PaymentStore     = (*PaymentRepository)(nil)
	_ PaymentStore     = (*MemoryPaymentRepository)(nil)
)

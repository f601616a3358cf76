package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
)

type memberStore interface {
	Create(ctx context.Context, m *models.Member) error
	FindByID(ctx context.Context, id string) (*models.Member, error)
	List(ctx context.Context, filter models.MemberFilter) ([]models.Member, int, error)
}

type paymentStore interface {
	FindByID(ctx context.Context, id string) (*models.Payment, error)
	List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error)
	MarkPaid(ctx context.Context, id string, paidAt time.Time, method, notes *string) (*models.Payment, error)
}

// MemberDefaults are the monthly rates applied when a new member omits them.
type MemberDefaults struct {
	TakafulMonthly decimal.Decimal
	PlusMonthly    decimal.Decimal
}

// MemberService manages contributing members and their monthly dues.
type MemberService struct {
	members   memberStore
	payments  paymentStore
	audit     auditRecorder
	cache     *CacheService
	defaults  MemberDefaults
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewMemberService constructs a MemberService.
func NewMemberService(members memberStore, payments paymentStore, audit auditRecorder, cache *CacheService, defaults MemberDefaults, validate *validator.Validate, logger *zap.Logger) *MemberService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &MemberService{
		members:   members,
		payments:  payments,
		audit:     audit,
		cache:     cache,
		defaults:  defaults,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Create registers a member.
func (s *MemberService) Create(ctx context.Context, req dto.CreateMemberRequest) (*models.Member, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid member payload")
	}

	m := &models.Member{
		UserID:                   req.UserID,
		FullName:                 req.FullName,
		Email:                    req.Email,
		Phone:                    req.Phone,
		TakafulMonthly:           s.defaults.TakafulMonthly,
		PlusMonthly:              s.defaults.PlusMonthly,
		HistoricalTakafulPaid:    req.HistoricalTakafulPaid,
		HistoricalTakafulPending: req.HistoricalTakafulPending,
		HistoricalPlusPaid:       req.HistoricalPlusPaid,
		HistoricalPlusPending:    req.HistoricalPlusPending,
		Active:                   true,
		JoinedAt:                 s.now(),
	}
	if req.TakafulMonthly != nil {
		m.TakafulMonthly = *req.TakafulMonthly
	}
	if req.PlusMonthly != nil {
		m.PlusMonthly = *req.PlusMonthly
	}
	for _, amount := range []decimal.Decimal{
		m.TakafulMonthly, m.PlusMonthly,
		m.HistoricalTakafulPaid, m.HistoricalTakafulPending,
		m.HistoricalPlusPaid, m.HistoricalPlusPending,
	} {
		if amount.IsNegative() {
			return nil, appErrors.Clone(appErrors.ErrValidation, "amounts must not be negative")
		}
		if amount.IsZero() {
			continue
		}
		if err := models.CheckAmount(amount); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
		}
	}
	if req.JoinedAt != nil && *req.JoinedAt != "" {
		joined, err := time.Parse("2006-01-02", *req.JoinedAt)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid joined_at")
		}
		m.JoinedAt = joined
	}

	if err := s.members.Create(ctx, m); err != nil {
		return nil, appErrors.Internal(err, "failed to create member")
	}
	s.cache.Invalidate(ctx, DashboardCachePattern)
	return m, nil
}

// Get returns a member by id.
func (s *MemberService) Get(ctx context.Context, id string) (*models.Member, error) {
	m, err := s.members.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, appErrors.Internal(err, "failed to load member")
	}
	return m, nil
}

// List returns a page of members.
func (s *MemberService) List(ctx context.Context, filter models.MemberFilter) ([]models.Member, *models.Pagination, error) {
	items, total, err := s.members.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list members")
	}
	page, size, _ := models.PageBounds(filter.Page, filter.PageSize)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListPayments returns a page of dues.
func (s *MemberService) ListPayments(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, *models.Pagination, error) {
	if filter.Fund != nil && !filter.Fund.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown fund")
	}
	items, total, err := s.payments.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list payments")
	}
	page, size, _ := models.PageBounds(filter.Page, filter.PageSize)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// MarkPaid settles a pending due. Paying an already paid due is a conflict.
func (s *MemberService) MarkPaid(ctx context.Context, id string, req dto.MarkPaidRequest, actorID string, meta models.AuditMeta) (*models.Payment, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payment payload")
	}
	updated, err := s.payments.MarkPaid(ctx, id, s.now(), req.PaymentMethod, req.Notes)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to mark payment paid")
		}
		if _, findErr := s.payments.FindByID(ctx, id); findErr != nil {
			if errors.Is(findErr, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "payment not found")
			}
			return nil, appErrors.Internal(findErr, "failed to load payment")
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "payment already paid")
	}

	s.cache.Invalidate(ctx, DashboardCachePattern)
	if s.audit != nil {
		payload, _ := json.Marshal(updated)
		entry := &models.AuditLog{
			Action:     models.AuditActionPaymentMarkPaid,
			Resource:   "payments",
			ResourceID: &updated.ID,
			NewValues:  payload,
			IPAddress:  meta.IP,
			UserAgent:  meta.UserAgent,
		}
		if actorID != "" {
			entry.UserID = &actorID
		}
		if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
			s.logger.Warn("failed to record payment audit log", zap.String("payment_id", id), zap.Error(err))
		}
	}
	return updated, nil
}

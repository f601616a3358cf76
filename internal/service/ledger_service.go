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
	"github.com/noah-isme/family-fund-api/pkg/events"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
)

// DashboardCachePattern matches every cached dashboard payload.
const DashboardCachePattern = "dash:*"

type beneficiaryStore interface {
	Create(ctx context.Context, b *models.Beneficiary) error
	Update(ctx context.Context, b *models.Beneficiary) error
	FindByID(ctx context.Context, id string) (*models.Beneficiary, error)
	List(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, int, error)
}

type caseStore interface {
	Create(ctx context.Context, c *models.AssistanceCase) error
	FindByID(ctx context.Context, id string) (*models.AssistanceCase, error)
	List(ctx context.Context, filter models.CaseFilter) ([]models.AssistanceCase, int, error)
	Approve(ctx context.Context, id string, amount decimal.Decimal, approverID *string, at time.Time) (*models.AssistanceCase, error)
	Reject(ctx context.Context, id, reason string, at time.Time) (*models.AssistanceCase, error)
	Complete(ctx context.Context, id string, at time.Time) (*models.AssistanceCase, error)
	RecordDisbursement(ctx context.Context, d *models.Disbursement) (*models.AssistanceCase, bool, error)
	ListDisbursements(ctx context.Context, caseID string) ([]models.Disbursement, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type eventEmitter interface {
	Emit(ctx context.Context, event events.Event)
}

// LedgerService owns beneficiaries, the case state machine and the disbursement accumulator.
// Role checks happen at the HTTP layer.
type LedgerService struct {
	beneficiaries beneficiaryStore
	cases         caseStore
	audit         auditRecorder
	events        eventEmitter
	cache         *CacheService
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// LedgerDeps groups the optional collaborators of LedgerService.
type LedgerDeps struct {
	Audit   auditRecorder
	Events  eventEmitter
	Cache   *CacheService
	Metrics *MetricsService
}

// NewLedgerService constructs a LedgerService.
func NewLedgerService(beneficiaries beneficiaryStore, cases caseStore, deps LedgerDeps, validate *validator.Validate, logger *zap.Logger) *LedgerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LedgerService{
		beneficiaries: beneficiaries,
		cases:         cases,
		audit:         deps.Audit,
		events:        deps.Events,
		cache:         deps.Cache,
		metrics:       deps.Metrics,
		validator:     validate,
		logger:        logger,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// CreateBeneficiary registers a beneficiary.
func (s *LedgerService) CreateBeneficiary(ctx context.Context, req dto.BeneficiaryRequest, actorID string, meta models.AuditMeta) (*models.Beneficiary, error) {
	b, err := s.beneficiaryFromRequest(req)
	if err != nil {
		return nil, err
	}
	if err := s.beneficiaries.Create(ctx, b); err != nil {
		return nil, appErrors.Internal(err, "failed to create beneficiary")
	}
	s.recordAudit(ctx, actorID, models.AuditActionBeneficiaryCreate, "beneficiaries", b.ID, nil, b, meta)
	return b, nil
}

// UpdateBeneficiary replaces the mutable fields of a beneficiary.
func (s *LedgerService) UpdateBeneficiary(ctx context.Context, id string, req dto.BeneficiaryRequest, actorID string, meta models.AuditMeta) (*models.Beneficiary, error) {
	existing, err := s.GetBeneficiary(ctx, id)
	if err != nil {
		return nil, err
	}
	b, err := s.beneficiaryFromRequest(req)
	if err != nil {
		return nil, err
	}
	b.ID = existing.ID
	b.CreatedAt = existing.CreatedAt
	if err := s.beneficiaries.Update(ctx, b); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "beneficiary not found")
		}
		return nil, appErrors.Internal(err, "failed to update beneficiary")
	}
	s.recordAudit(ctx, actorID, models.AuditActionBeneficiaryUpdate, "beneficiaries", b.ID, existing, b, meta)
	return b, nil
}

// GetBeneficiary returns a beneficiary by id.
func (s *LedgerService) GetBeneficiary(ctx context.Context, id string) (*models.Beneficiary, error) {
	b, err := s.beneficiaries.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "beneficiary not found")
		}
		return nil, appErrors.Internal(err, "failed to load beneficiary")
	}
	return b, nil
}

// ListBeneficiaries returns a page of beneficiaries.
func (s *LedgerService) ListBeneficiaries(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, *models.Pagination, error) {
	items, total, err := s.beneficiaries.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list beneficiaries")
	}
	page, size, _ := models.PageBounds(filter.Page, filter.PageSize)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

func (s *LedgerService) beneficiaryFromRequest(req dto.BeneficiaryRequest) (*models.Beneficiary, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid beneficiary payload")
	}
	return &models.Beneficiary{
		Name:           req.Name,
		Phone:          req.Phone,
		Relationship:   req.Relationship,
		Address:        req.Address,
		Notes:          req.Notes,
		IsFamilyMember: req.IsFamilyMember,
	}, nil
}

// Submit opens a pending case for an existing beneficiary.
func (s *LedgerService) Submit(ctx context.Context, req dto.SubmitCaseRequest, requesterID string, meta models.AuditMeta) (*models.AssistanceCase, error) {
	req.Title = strings.TrimSpace(req.Title)
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid case payload")
	}
	if !req.CaseType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown case type")
	}
	if err := models.CheckAmount(req.RequestedAmount); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "requested "+err.Error())
	}
	if _, err := s.beneficiaries.FindByID(ctx, req.BeneficiaryID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "beneficiary does not exist")
		}
		return nil, appErrors.Internal(err, "failed to load beneficiary")
	}

	c := &models.AssistanceCase{
		BeneficiaryID:   req.BeneficiaryID,
		CaseType:        req.CaseType,
		Title:           req.Title,
		Description:     req.Description,
		RequestedAmount: req.RequestedAmount,
	}
	if requesterID != "" {
		c.RequestedBy = &requesterID
	}
	if err := s.cases.Create(ctx, c); err != nil {
		return nil, appErrors.Internal(err, "failed to create case")
	}

	s.afterCaseWrite(ctx, EventCaseSubmitted, c, "", requesterID)
	s.recordAudit(ctx, requesterID, models.AuditActionCaseSubmit, "cases", c.ID, nil, c, meta)
	return c, nil
}

// Approve sets the approved ceiling of a pending case.
func (s *LedgerService) Approve(ctx context.Context, id string, amount decimal.Decimal, approverID string, meta models.AuditMeta) (*models.AssistanceCase, error) {
	current, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := current.CheckApprove(amount); err != nil {
		return nil, s.ledgerError(err)
	}

	var approver *string
	if approverID != "" {
		approver = &approverID
	}
	updated, err := s.cases.Approve(ctx, id, amount, approver, s.now())
	if err != nil {
		return nil, s.raceError(ctx, id, err, func(c *models.AssistanceCase) error { return c.CheckApprove(amount) })
	}

	s.afterCaseWrite(ctx, EventCaseApproved, updated, current.Status, approverID)
	s.recordAudit(ctx, approverID, models.AuditActionCaseApprove, "cases", id, current, updated, meta)
	return updated, nil
}

// Reject closes a pending case with a reason.
func (s *LedgerService) Reject(ctx context.Context, id, reason, actorID string, meta models.AuditMeta) (*models.AssistanceCase, error) {
	reason = strings.TrimSpace(reason)
	current, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := current.CheckReject(reason); err != nil {
		return nil, s.ledgerError(err)
	}

	updated, err := s.cases.Reject(ctx, id, reason, s.now())
	if err != nil {
		return nil, s.raceError(ctx, id, err, func(c *models.AssistanceCase) error { return c.CheckReject(reason) })
	}

	s.afterCaseWrite(ctx, EventCaseRejected, updated, current.Status, actorID)
	s.recordAudit(ctx, actorID, models.AuditActionCaseReject, "cases", id, current, updated, meta)
	return updated, nil
}

// Complete closes a fully disbursed approved case. Completing a completed case is a no-op.
func (s *LedgerService) Complete(ctx context.Context, id, actorID string, meta models.AuditMeta) (*models.AssistanceCase, error) {
	current, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}
	changed, err := current.CheckComplete()
	if err != nil {
		return nil, s.ledgerError(err)
	}
	if !changed {
		return current, nil
	}

	updated, err := s.cases.Complete(ctx, id, s.now())
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Internal(err, "failed to complete case")
		}
		reloaded, loadErr := s.loadCase(ctx, id)
		if loadErr != nil {
			return nil, loadErr
		}
		if reloaded.Status == models.CaseStatusCompleted {
			return reloaded, nil
		}
		if _, checkErr := reloaded.CheckComplete(); checkErr != nil {
			return nil, s.ledgerError(checkErr)
		}
		return nil, appErrors.Clone(appErrors.ErrConflict, "case changed concurrently")
	}

	s.afterCaseWrite(ctx, EventCaseCompleted, updated, current.Status, actorID)
	s.recordAudit(ctx, actorID, models.AuditActionCaseComplete, "cases", id, current, updated, meta)
	return updated, nil
}

// RecordDisbursement appends a payout to an approved case. The case completes in the same
// write when the payout reaches the approved ceiling exactly.
func (s *LedgerService) RecordDisbursement(ctx context.Context, caseID string, req dto.RecordDisbursementRequest, disbursedBy string, meta models.AuditMeta) (*models.DisbursementResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid disbursement payload")
	}
	if err := models.CheckAmount(req.Amount); err != nil {
		return nil, s.ledgerError(err)
	}

	d := &models.Disbursement{
		CaseID:          caseID,
		Amount:          req.Amount,
		PaymentMethod:   req.PaymentMethod,
		ReferenceNumber: req.ReferenceNumber,
		Notes:           req.Notes,
	}
	if disbursedBy != "" {
		d.DisbursedBy = &disbursedBy
	}
	if req.DisbursementDate != nil && *req.DisbursementDate != "" {
		date, err := time.Parse("2006-01-02", *req.DisbursementDate)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid disbursement date")
		}
		d.DisbursementDate = date
	}

	updated, completed, err := s.cases.RecordDisbursement(ctx, d)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, s.ledgerError(err)
	}

	s.metrics.RecordDisbursement(d.Amount)
	s.invalidateDashboard(ctx)
	s.emit(ctx, EventDisbursementRecorded, updated, models.CaseStatusApproved, disbursedBy, d.ID)
	s.recordAudit(ctx, disbursedBy, models.AuditActionDisbursementRecord, "disbursements", d.ID, nil, d, meta)
	if completed {
		s.metrics.RecordCaseTransition(string(models.CaseStatusCompleted))
		s.emit(ctx, EventCaseCompleted, updated, models.CaseStatusApproved, disbursedBy, d.ID)
		s.recordAudit(ctx, disbursedBy, models.AuditActionCaseComplete, "cases", caseID, nil, updated, meta)
	}

	return &models.DisbursementResult{Disbursement: d, Case: updated, Completed: completed}, nil
}

// GetCase returns a case with its beneficiary and disbursement history.
func (s *LedgerService) GetCase(ctx context.Context, id string) (*dto.CaseDetail, error) {
	c, err := s.loadCase(ctx, id)
	if err != nil {
		return nil, err
	}
	disbursements, err := s.cases.ListDisbursements(ctx, id)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load disbursements")
	}
	if disbursements == nil {
		disbursements = []models.Disbursement{}
	}
	detail := &dto.CaseDetail{Case: c, Disbursements: disbursements, Remaining: c.Remaining()}
	if b, err := s.beneficiaries.FindByID(ctx, c.BeneficiaryID); err == nil {
		detail.Beneficiary = b
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to load beneficiary")
	}
	return detail, nil
}

// ListCases returns a page of cases.
func (s *LedgerService) ListCases(ctx context.Context, filter models.CaseFilter) ([]models.AssistanceCase, *models.Pagination, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown case status")
	}
	if filter.CaseType != nil && !filter.CaseType.Valid() {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "unknown case type")
	}
	items, total, err := s.cases.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list cases")
	}
	page, size, _ := models.PageBounds(filter.Page, filter.PageSize)
	return items, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// ListDisbursements returns the payouts recorded against a case.
func (s *LedgerService) ListDisbursements(ctx context.Context, caseID string) ([]models.Disbursement, error) {
	if _, err := s.loadCase(ctx, caseID); err != nil {
		return nil, err
	}
	items, err := s.cases.ListDisbursements(ctx, caseID)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to list disbursements")
	}
	if items == nil {
		items = []models.Disbursement{}
	}
	return items, nil
}

func (s *LedgerService) loadCase(ctx context.Context, id string) (*models.AssistanceCase, error) {
	c, err := s.cases.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "case not found")
		}
		return nil, appErrors.Internal(err, "failed to load case")
	}
	return c, nil
}

// raceError explains a conditional update that matched no row by re-reading the case.
func (s *LedgerService) raceError(ctx context.Context, id string, err error, check func(*models.AssistanceCase) error) error {
	if !errors.Is(err, sql.ErrNoRows) {
		return appErrors.Internal(err, "failed to update case")
	}
	reloaded, loadErr := s.loadCase(ctx, id)
	if loadErr != nil {
		return loadErr
	}
	if checkErr := check(reloaded); checkErr != nil {
		return s.ledgerError(checkErr)
	}
	return appErrors.Clone(appErrors.ErrConflict, "case changed concurrently")
}

// ledgerError translates model guard failures into typed API errors.
func (s *LedgerService) ledgerError(err error) error {
	var mapped *appErrors.Error
	switch {
	case errors.Is(err, models.ErrInvalidTransition):
		mapped = appErrors.Wrap(err, appErrors.ErrInvalidTransition.Code, appErrors.ErrInvalidTransition.Status, appErrors.ErrInvalidTransition.Message)
	case errors.Is(err, models.ErrCaseNotApproved), errors.Is(err, models.ErrCeilingNotReached):
		mapped = appErrors.Wrap(err, appErrors.ErrInvalidState.Code, appErrors.ErrInvalidState.Status, err.Error())
	case errors.Is(err, models.ErrOverpayment):
		mapped = appErrors.Wrap(err, appErrors.ErrOverpayment.Code, appErrors.ErrOverpayment.Status, appErrors.ErrOverpayment.Message)
	case errors.Is(err, models.ErrNonPositiveAmount), errors.Is(err, models.ErrAmountPrecision), errors.Is(err, models.ErrAmountTooLarge),
		errors.Is(err, models.ErrExceedsRequested), errors.Is(err, models.ErrReasonRequired):
		mapped = appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	default:
		return appErrors.Internal(err, "ledger write failed")
	}
	s.metrics.RecordGuardRejection(mapped.Code)
	return mapped
}

func (s *LedgerService) afterCaseWrite(ctx context.Context, eventType string, c *models.AssistanceCase, from models.CaseStatus, actorID string) {
	s.metrics.RecordCaseTransition(string(c.Status))
	s.invalidateDashboard(ctx)
	s.emit(ctx, eventType, c, from, actorID, "")
}

func (s *LedgerService) emit(ctx context.Context, eventType string, c *models.AssistanceCase, from models.CaseStatus, actorID, disbursementID string) {
	if s.events == nil {
		return
	}
	event := caseEvent(eventType, c, from, actorID)
	if disbursementID != "" {
		payload := event.Payload.(CaseEventPayload)
		payload.DisbursementID = disbursementID
		event.Payload = payload
	}
	s.events.Emit(ctx, event)
}

func (s *LedgerService) invalidateDashboard(ctx context.Context) {
	s.cache.Invalidate(ctx, DashboardCachePattern)
}

func (s *LedgerService) recordAudit(ctx context.Context, actorID, action, resource, resourceID string, before, after interface{}, meta models.AuditMeta) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		Action:     action,
		Resource:   resource,
		ResourceID: &resourceID,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if before != nil {
		entry.OldValues, _ = json.Marshal(before)
	}
	if after != nil {
		entry.NewValues, _ = json.Marshal(after)
	}
	if err := s.audit.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.String("resource_id", resourceID), zap.Error(err))
	}
}

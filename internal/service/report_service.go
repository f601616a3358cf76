package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
)

type caseReportSource interface {
	All(ctx context.Context) ([]models.AssistanceCase, error)
	Snapshot(ctx context.Context) ([]models.AssistanceCase, []models.Disbursement, error)
}

type memberReportSource interface {
	All(ctx context.Context) ([]models.Member, error)
}

type paymentReportSource interface {
	InRange(ctx context.Context, from, to *time.Time) ([]models.Payment, error)
}

// ReportServiceConfig tunes report behaviour.
type ReportServiceConfig struct {
	CacheTTL time.Duration
}

// ReportService fetches ledger rows once per request and reduces them in memory.
type ReportService struct {
	cases    caseReportSource
	members  memberReportSource
	payments paymentReportSource
	cache    *CacheService
	logger   *zap.Logger
	now      func() time.Time
	cfg      ReportServiceConfig
}

// NewReportService constructs a ReportService.
func NewReportService(cases caseReportSource, members memberReportSource, payments paymentReportSource, cache *CacheService, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 5 * time.Minute
	}
	return &ReportService{
		cases:    cases,
		members:  members,
		payments: payments,
		cache:    cache,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
		cfg:      cfg,
	}
}

type ledgerRows struct {
	cases    []models.AssistanceCase
	members  []models.Member
	payments []models.Payment
}

type rowSet uint8

const (
	rowsCases rowSet = 1 << iota
	rowsMembers
	rowsPayments
)

// load fetches the requested row sets concurrently.
func (s *ReportService) load(ctx context.Context, want rowSet, from, to *time.Time) (*ledgerRows, error) {
	rows := &ledgerRows{}
	g, gctx := errgroup.WithContext(ctx)
	if want&rowsCases != 0 {
		g.Go(func() (err error) {
			rows.cases, err = s.cases.All(gctx)
			return err
		})
	}
	if want&rowsMembers != 0 {
		g.Go(func() (err error) {
			rows.members, err = s.members.All(gctx)
			return err
		})
	}
	if want&rowsPayments != 0 {
		g.Go(func() (err error) {
			rows.payments, err = s.payments.InRange(gctx, from, to)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, appErrors.Internal(err, "failed to load report data")
	}
	return rows, nil
}

// Dashboard returns the case and fund overview, reporting whether it came from cache.
func (s *ReportService) Dashboard(ctx context.Context) (*dto.DashboardResponse, bool, error) {
	const cacheKey = "dash:ledger"
	var cached dto.DashboardResponse
	if s.cache.Get(ctx, cacheKey, &cached) {
		return &cached, true, nil
	}

	rows, err := s.load(ctx, rowsCases|rowsMembers|rowsPayments, nil, nil)
	if err != nil {
		return nil, false, err
	}
	active := 0
	for i := range rows.members {
		if rows.members[i].Active {
			active++
		}
	}
	resp := &dto.DashboardResponse{
		Cases:       SummarizeCases(rows.cases),
		ByType:      SummarizeCasesByType(rows.cases),
		Funds:       SummarizeFunds(rows.members, rows.payments, rows.cases),
		Members:     active,
		GeneratedAt: s.now(),
	}
	s.cache.Set(ctx, cacheKey, resp, s.cfg.CacheTTL)
	return resp, false, nil
}

// CaseSummary returns ledger totals and the per-type breakdown.
func (s *ReportService) CaseSummary(ctx context.Context) (dto.CaseSummary, []dto.CaseTypeSummary, error) {
	rows, err := s.load(ctx, rowsCases, nil, nil)
	if err != nil {
		return dto.CaseSummary{}, nil, err
	}
	return SummarizeCases(rows.cases), SummarizeCasesByType(rows.cases), nil
}

// Cases returns every case, for exports.
func (s *ReportService) Cases(ctx context.Context) ([]models.AssistanceCase, error) {
	rows, err := s.load(ctx, rowsCases, nil, nil)
	if err != nil {
		return nil, err
	}
	return rows.cases, nil
}

// Reconciliation compares stored case totals with disbursement rows read from one snapshot,
// so a disbursement committed mid-report never shows up as drift.
func (s *ReportService) Reconciliation(ctx context.Context) (*dto.ReconciliationReport, error) {
	cases, disbursements, err := s.cases.Snapshot(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load report data")
	}
	report := ReconcileCases(cases, disbursements)
	if report.Inconsistent > 0 || report.Orphaned > 0 {
		s.logger.Warn("ledger reconciliation found drift",
			zap.Int("inconsistent", report.Inconsistent),
			zap.Int("orphaned", report.Orphaned))
	}
	return &report, nil
}

// Funds returns per-fund collections and the takaful balance.
func (s *ReportService) Funds(ctx context.Context) ([]dto.FundSummary, error) {
	rows, err := s.load(ctx, rowsCases|rowsMembers|rowsPayments, nil, nil)
	if err != nil {
		return nil, err
	}
	return SummarizeFunds(rows.members, rows.payments, rows.cases), nil
}

// Members returns every member's per-fund position.
func (s *ReportService) Members(ctx context.Context) ([]dto.MemberSummary, error) {
	rows, err := s.load(ctx, rowsMembers|rowsPayments, nil, nil)
	if err != nil {
		return nil, err
	}
	return SummarizeMembers(rows.members, rows.payments), nil
}

// Monthly returns paid and pending dues per month of year. Zero means the current year.
func (s *ReportService) Monthly(ctx context.Context, year int) ([]dto.MonthlySummary, error) {
	if year == 0 {
		year = s.now().Year()
	}
	if year < 2000 || year > 2100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("year %d out of range", year))
	}
	from, to := yearBounds(year)
	rows, err := s.load(ctx, rowsPayments, &from, &to)
	if err != nil {
		return nil, err
	}
	return SummarizeMonthly(rows.payments, year), nil
}

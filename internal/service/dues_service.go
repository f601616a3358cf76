package service

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
)

type duesMemberSource interface {
	All(ctx context.Context) ([]models.Member, error)
}

type duesWriter interface {
	CreatePending(ctx context.Context, payments []models.Payment) (int, error)
}

// DuesService creates the pending monthly dues for every active member.
type DuesService struct {
	members   duesMemberSource
	payments  duesWriter
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// NewDuesService constructs a DuesService.
func NewDuesService(members duesMemberSource, payments duesWriter, cache *CacheService, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger) *DuesService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &DuesService{
		members:   members,
		payments:  payments,
		cache:     cache,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Generate handles an API trigger. An empty month means the current one.
func (s *DuesService) Generate(ctx context.Context, req dto.GenerateDuesRequest) (*dto.GenerateDuesResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid month")
	}
	month := s.now()
	if req.Month != "" {
		parsed, err := time.Parse("2006-01", req.Month)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid month")
		}
		month = parsed
	}
	return s.GenerateMonth(ctx, month)
}

// GenerateMonth inserts one pending payment per active member and fund with a non-zero rate.
// Rows that already exist for the period are left untouched, so repeated runs are safe.
func (s *DuesService) GenerateMonth(ctx context.Context, month time.Time) (*dto.GenerateDuesResult, error) {
	period := models.PeriodStart(month)
	members, err := s.members.All(ctx)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to load members")
	}

	result := &dto.GenerateDuesResult{Period: period.Format("2006-01")}
	var pending []models.Payment
	for i := range members {
		m := &members[i]
		if !m.Active || models.PeriodStart(m.JoinedAt).After(period) {
			continue
		}
		result.Members++
		for _, fund := range models.Funds {
			rate := m.MonthlyRate(fund)
			if !rate.IsPositive() {
				continue
			}
			pending = append(pending, models.Payment{
				MemberID: m.ID,
				Fund:     fund,
				Period:   period,
				Amount:   rate,
				Status:   models.PaymentStatusPending,
			})
		}
	}
	if len(pending) == 0 {
		return result, nil
	}

	created, err := s.payments.CreatePending(ctx, pending)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to create pending dues")
	}
	result.Created = created
	result.Existing = len(pending) - created
	s.metrics.RecordDuesGenerated(created)
	if created > 0 {
		s.cache.Invalidate(ctx, DashboardCachePattern)
	}
	return result, nil
}

// Run generates the current month immediately and then on every tick until ctx is done.
func (s *DuesService) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	s.tick(ctx)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *DuesService) tick(ctx context.Context) {
	result, err := s.GenerateMonth(ctx, s.now())
	if err != nil {
		s.logger.Error("dues generation failed", zap.Error(err))
		return
	}
	s.logger.Info("dues generated",
		zap.String("period", result.Period),
		zap.Int("members", result.Members),
		zap.Int("created", result.Created),
		zap.Int("existing", result.Existing))
}

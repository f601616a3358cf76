package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	"github.com/noah-isme/family-fund-api/internal/repository"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
)

type failingPayments struct{}

func (failingPayments) InRange(context.Context, *time.Time, *time.Time) ([]models.Payment, error) {
	return nil, errors.New("payments table locked")
}

func seedReportStore(t *testing.T) *repository.MemoryStore {
	t.Helper()
	fx := newLedgerFixture(t)
	store := fx.store
	c := fx.approved(t, 1000, 800)
	_, err := fx.disburse(c.ID, 300)
	require.NoError(t, err)

	member := models.Member{FullName: "Ali", TakafulMonthly: amt(50), Active: true, HistoricalTakafulPaid: amt(1000)}
	require.NoError(t, store.Members().Create(context.Background(), &member))
	store.Payments().SeedPayment(models.Payment{MemberID: member.ID, Fund: models.FundTakaful, Period: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Amount: amt(50), Status: models.PaymentStatusPaid})
	store.Payments().SeedPayment(models.Payment{MemberID: member.ID, Fund: models.FundTakaful, Period: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Amount: amt(50), Status: models.PaymentStatusPending})
	return store
}

func TestReportServiceDashboardCaches(t *testing.T) {
	store := seedReportStore(t)
	cache := NewCacheService(newMemoryCacheRepo(), nil, time.Minute, nil, true)
	svc := NewReportService(store.Cases(), store.Members(), store.Payments(), cache, nil, ReportServiceConfig{})
	ctx := context.Background()

	first, hit, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	assert.Equal(t, 1, first.Cases.TotalCases)
	assert.Equal(t, 1, first.Members)
	assert.True(t, first.Cases.TotalDisbursed.Equal(amt(300)))

	second, hit, err := svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.True(t, second.Cases.TotalApproved.Equal(first.Cases.TotalApproved))

	cache.Invalidate(ctx, DashboardCachePattern)
	_, hit, err = svc.Dashboard(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestReportServiceFundsAndReconciliation(t *testing.T) {
	store := seedReportStore(t)
	svc := NewReportService(store.Cases(), store.Members(), store.Payments(), nil, nil, ReportServiceConfig{})
	ctx := context.Background()

	funds, err := svc.Funds(ctx)
	require.NoError(t, err)
	var takaful dto.FundSummary
	for _, f := range funds {
		if f.Fund == models.FundTakaful {
			takaful = f
		}
	}
	assert.True(t, takaful.Collected.Equal(amt(1050)))
	assert.True(t, takaful.Pending.Equal(amt(50)))
	assert.True(t, takaful.Available.Equal(amt(750)))

	rec, err := svc.Reconciliation(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Checked)
	assert.Zero(t, rec.Inconsistent)

	months, err := svc.Monthly(ctx, 2024)
	require.NoError(t, err)
	require.Len(t, months, 12)
	assert.True(t, months[0].TakafulPaid.Equal(amt(50)))
	assert.True(t, months[1].TakafulPending.Equal(amt(50)))

	_, err = svc.Monthly(ctx, 1999)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestReportServiceLoadFailureIsInternal(t *testing.T) {
	store := repository.NewMemoryStore()
	svc := NewReportService(store.Cases(), store.Members(), failingPayments{}, nil, nil, ReportServiceConfig{})

	_, err := svc.Members(context.Background())
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)

	_, _, err = svc.Dashboard(context.Background())
	assert.Error(t, err)

	_, err = svc.Reconciliation(context.Background())
	assert.NoError(t, err)
}

func TestReportServiceReconciliationIgnoresInFlightDisbursements(t *testing.T) {
	fx := newLedgerFixture(t)
	c := fx.approved(t, 10000, 10000)
	svc := NewReportService(fx.store.Cases(), fx.store.Members(), fx.store.Payments(), nil, nil, ReportServiceConfig{})
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := fx.disburse(c.ID, 5)
			assert.NoError(t, err)
		}()
	}
	for i := 0; i < 40; i++ {
		rec, err := svc.Reconciliation(ctx)
		require.NoError(t, err)
		assert.Zero(t, rec.Inconsistent)
		assert.Zero(t, rec.Orphaned)
	}
	wg.Wait()

	rec, err := svc.Reconciliation(ctx)
	require.NoError(t, err)
	require.Len(t, rec.Cases, 1)
	assert.True(t, rec.Cases[0].LedgerDisbursed.Equal(amt(200)))
	assert.Equal(t, 40, rec.Cases[0].Disbursements)
}

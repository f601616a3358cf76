package service

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	"github.com/noah-isme/family-fund-api/internal/repository"
	"github.com/noah-isme/family-fund-api/pkg/events"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
)

type recordingEmitter struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recordingEmitter) Emit(_ context.Context, event events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) count(eventType string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

type ledgerFixture struct {
	svc     *LedgerService
	store   *repository.MemoryStore
	emitter *recordingEmitter
}

func newLedgerFixture(t *testing.T) *ledgerFixture {
	t.Helper()
	store := repository.NewMemoryStore()
	emitter := &recordingEmitter{}
	svc := NewLedgerService(store.Beneficiaries(), store.Cases(), LedgerDeps{
		Audit:   store.Users(),
		Events:  emitter,
		Metrics: NewMetricsService(),
	}, validator.New(), zap.NewNop())
	return &ledgerFixture{svc: svc, store: store, emitter: emitter}
}

func (f *ledgerFixture) beneficiary(t *testing.T) *models.Beneficiary {
	t.Helper()
	b, err := f.svc.CreateBeneficiary(context.Background(), dto.BeneficiaryRequest{Name: "Aminah", IsFamilyMember: true}, "admin", models.AuditMeta{})
	require.NoError(t, err)
	return b
}

func (f *ledgerFixture) submit(t *testing.T, requested int64) *models.AssistanceCase {
	t.Helper()
	b := f.beneficiary(t)
	c, err := f.svc.Submit(context.Background(), dto.SubmitCaseRequest{
		BeneficiaryID:   b.ID,
		CaseType:        models.CaseTypeMedical,
		Title:           "Hospital bill",
		RequestedAmount: decimal.NewFromInt(requested),
	}, "member-1", models.AuditMeta{})
	require.NoError(t, err)
	return c
}

func (f *ledgerFixture) approved(t *testing.T, requested, approved int64) *models.AssistanceCase {
	t.Helper()
	c := f.submit(t, requested)
	updated, err := f.svc.Approve(context.Background(), c.ID, decimal.NewFromInt(approved), "treasurer", models.AuditMeta{})
	require.NoError(t, err)
	return updated
}

func (f *ledgerFixture) disburse(caseID string, amount int64) (*models.DisbursementResult, error) {
	return f.svc.RecordDisbursement(context.Background(), caseID, dto.RecordDisbursementRequest{Amount: decimal.NewFromInt(amount)}, "treasurer", models.AuditMeta{})
}

func TestLedgerPartialDisbursementsCompleteCase(t *testing.T) {
	f := newLedgerFixture(t)
	c := f.approved(t, 50000, 40000)

	first, err := f.disburse(c.ID, 15000)
	require.NoError(t, err)
	assert.False(t, first.Completed)
	assert.Equal(t, models.CaseStatusApproved, first.Case.Status)

	second, err := f.disburse(c.ID, 25000)
	require.NoError(t, err)
	assert.True(t, second.Completed)
	assert.Equal(t, models.CaseStatusCompleted, second.Case.Status)
	assert.True(t, second.Case.DisbursedAmount.Equal(decimal.NewFromInt(40000)))
	assert.Equal(t, 1, f.emitter.count(EventCaseCompleted))

	again, err := f.svc.Complete(context.Background(), c.ID, "treasurer", models.AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusCompleted, again.Status)
	assert.Equal(t, 1, f.emitter.count(EventCaseCompleted), "completing twice emits once")
}

func TestLedgerOverpaymentLeavesCaseUntouched(t *testing.T) {
	f := newLedgerFixture(t)
	c := f.approved(t, 10000, 10000)

	_, err := f.disburse(c.ID, 12000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrOverpayment))
	assert.Equal(t, 422, appErrors.FromError(err).Status)

	detail, err := f.svc.GetCase(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusApproved, detail.Case.Status)
	assert.True(t, detail.Case.DisbursedAmount.IsZero())
	assert.Empty(t, detail.Disbursements)
}

func TestLedgerRejectedCaseCannotBeApproved(t *testing.T) {
	f := newLedgerFixture(t)
	c := f.submit(t, 5000)

	rejected, err := f.svc.Reject(context.Background(), c.ID, "insufficient documentation", "admin", models.AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusRejected, rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "insufficient documentation", *rejected.RejectionReason)

	_, err = f.svc.Approve(context.Background(), c.ID, decimal.NewFromInt(5000), "admin", models.AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
	assert.Equal(t, 1, f.emitter.count(EventCaseRejected))
	assert.Zero(t, f.emitter.count(EventCaseApproved))
}

func TestLedgerConcurrentDisbursementsSingleWinner(t *testing.T) {
	f := newLedgerFixture(t)
	c := f.approved(t, 20000, 20000)

	var wg sync.WaitGroup
	results := make([]error, 2)
	start := make(chan struct{})
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, results[i] = f.disburse(c.ID, 20000)
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded, overpaid := 0, 0
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, appErrors.ErrOverpayment):
			overpaid++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, overpaid)

	detail, err := f.svc.GetCase(context.Background(), c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusCompleted, detail.Case.Status)
	assert.True(t, detail.Case.DisbursedAmount.Equal(decimal.NewFromInt(20000)))
	assert.Len(t, detail.Disbursements, 1)
	assert.Equal(t, 1, f.emitter.count(EventCaseCompleted))
}

func TestLedgerSubmitValidation(t *testing.T) {
	f := newLedgerFixture(t)
	b := f.beneficiary(t)

	cases := map[string]dto.SubmitCaseRequest{
		"unknown beneficiary":   {BeneficiaryID: uuid.NewString(), CaseType: models.CaseTypeFuneral, Title: "x", RequestedAmount: decimal.NewFromInt(10)},
		"malformed beneficiary": {BeneficiaryID: "abc", CaseType: models.CaseTypeFuneral, Title: "x", RequestedAmount: decimal.NewFromInt(10)},
		"blank title":           {BeneficiaryID: b.ID, CaseType: models.CaseTypeFuneral, Title: "   ", RequestedAmount: decimal.NewFromInt(10)},
		"zero amount":           {BeneficiaryID: b.ID, CaseType: models.CaseTypeFuneral, Title: "x", RequestedAmount: decimal.Zero},
		"sub-cent amount":       {BeneficiaryID: b.ID, CaseType: models.CaseTypeFuneral, Title: "x", RequestedAmount: decimal.RequireFromString("0.001")},
		"amount beyond column":  {BeneficiaryID: b.ID, CaseType: models.CaseTypeFuneral, Title: "x", RequestedAmount: decimal.New(1, 12)},
		"unknown type":          {BeneficiaryID: b.ID, CaseType: "travel", Title: "x", RequestedAmount: decimal.NewFromInt(10)},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := f.svc.Submit(context.Background(), req, "member-1", models.AuditMeta{})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestLedgerApproveGuards(t *testing.T) {
	f := newLedgerFixture(t)
	c := f.submit(t, 1000)
	ctx := context.Background()

	_, err := f.svc.Approve(ctx, c.ID, decimal.NewFromInt(1001), "admin", models.AuditMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Approve(ctx, c.ID, decimal.NewFromInt(-1), "admin", models.AuditMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Approve(ctx, "missing", decimal.NewFromInt(1), "admin", models.AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	approved, err := f.svc.Approve(ctx, c.ID, decimal.NewFromInt(1000), "admin", models.AuditMeta{})
	require.NoError(t, err)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "admin", *approved.ApprovedBy)
	assert.NotNil(t, approved.ApprovedAt)

	_, err = f.svc.Approve(ctx, c.ID, decimal.NewFromInt(900), "admin", models.AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestLedgerDisbursementGuards(t *testing.T) {
	f := newLedgerFixture(t)
	pending := f.submit(t, 1000)

	_, err := f.disburse(pending.ID, 100)
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState))

	_, err = f.disburse("missing", 100)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	approved := f.approved(t, 1000, 800)
	_, err = f.disburse(approved.ID, 0)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = f.svc.Complete(context.Background(), approved.ID, "admin", models.AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidState), "ceiling not reached")

	_, err = f.svc.Complete(context.Background(), pending.ID, "admin", models.AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	bad := "31-12-2024"
	_, err = f.svc.RecordDisbursement(context.Background(), approved.ID, dto.RecordDisbursementRequest{Amount: decimal.NewFromInt(1), DisbursementDate: &bad}, "t", models.AuditMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLedgerSubCentRemainderStaysPayable(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	c := f.approved(t, 500, 100)
	pay := func(amount string) (*models.DisbursementResult, error) {
		return f.svc.RecordDisbursement(ctx, c.ID, dto.RecordDisbursementRequest{Amount: decimal.RequireFromString(amount)}, "treasurer", models.AuditMeta{})
	}

	_, err := pay("99.99")
	require.NoError(t, err)

	for _, amount := range []string{"0.006", "0.004", "1000000000000"} {
		_, err = pay(amount)
		require.Error(t, err, amount)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code, amount)
	}
	detail, err := f.svc.GetCase(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusApproved, detail.Case.Status)
	assert.True(t, detail.Remaining.Equal(decimal.RequireFromString("0.01")))

	res, err := pay("0.01")
	require.NoError(t, err)
	assert.True(t, res.Completed)
	assert.Equal(t, models.CaseStatusCompleted, res.Case.Status)

	_, err = f.svc.Approve(ctx, f.submit(t, 100).ID, decimal.RequireFromString("50.555"), "treasurer", models.AuditMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLedgerRejectRequiresReason(t *testing.T) {
	f := newLedgerFixture(t)
	c := f.submit(t, 1000)

	_, err := f.svc.Reject(context.Background(), c.ID, "  ", "admin", models.AuditMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestLedgerUpdateBeneficiary(t *testing.T) {
	f := newLedgerFixture(t)
	b := f.beneficiary(t)
	phone := "0812"

	updated, err := f.svc.UpdateBeneficiary(context.Background(), b.ID, dto.BeneficiaryRequest{Name: "Aminah Binti Ali", Phone: &phone}, "admin", models.AuditMeta{})
	require.NoError(t, err)
	assert.Equal(t, "Aminah Binti Ali", updated.Name)
	assert.Equal(t, b.CreatedAt, updated.CreatedAt)

	_, err = f.svc.UpdateBeneficiary(context.Background(), "missing", dto.BeneficiaryRequest{Name: "x"}, "admin", models.AuditMeta{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))

	_, err = f.svc.CreateBeneficiary(context.Background(), dto.BeneficiaryRequest{Name: " "}, "admin", models.AuditMeta{})
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

// Random operation sequences must keep every case inside its ceiling and the stored totals
// equal to the disbursement rows.
func TestLedgerRandomOperationsKeepInvariants(t *testing.T) {
	f := newLedgerFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	var ids []string
	for i := 0; i < 12; i++ {
		ids = append(ids, f.submit(t, int64(1000+rng.Intn(9000))).ID)
	}

	for step := 0; step < 400; step++ {
		id := ids[rng.Intn(len(ids))]
		current, err := f.store.Cases().FindByID(ctx, id)
		require.NoError(t, err)
		before := *current

		switch rng.Intn(5) {
		case 0:
			amount := decimal.NewFromInt(int64(rng.Intn(int(current.RequestedAmount.IntPart()) + 500)))
			_, err = f.svc.Approve(ctx, id, amount, "admin", models.AuditMeta{})
		case 1:
			_, err = f.svc.Reject(ctx, id, "no", "admin", models.AuditMeta{})
		case 2:
			_, err = f.svc.Complete(ctx, id, "admin", models.AuditMeta{})
		default:
			_, err = f.disburse(id, int64(rng.Intn(3000)))
		}

		after, findErr := f.store.Cases().FindByID(ctx, id)
		require.NoError(t, findErr)
		if err != nil {
			assert.Equal(t, before.Status, after.Status, "failed op must not change status")
			assert.True(t, before.DisbursedAmount.Equal(after.DisbursedAmount), "failed op must not change total")
		} else if before.Status != after.Status {
			assert.True(t, before.Status.CanTransition(after.Status), "%s -> %s", before.Status, after.Status)
		}
		assert.False(t, after.DisbursedAmount.LessThan(before.DisbursedAmount))
		if after.ApprovedAmount.Valid {
			assert.False(t, after.DisbursedAmount.GreaterThan(after.ApprovedAmount.Decimal))
			assert.False(t, after.ApprovedAmount.Decimal.GreaterThan(after.RequestedAmount))
		}
		assert.Equal(t, after.Status == models.CaseStatusRejected, after.RejectionReason != nil)
	}

	cases, disbursements, err := f.store.Cases().Snapshot(ctx)
	require.NoError(t, err)
	report := ReconcileCases(cases, disbursements)
	assert.Zero(t, report.Inconsistent)
	assert.Zero(t, report.Orphaned)
	assert.Equal(t, len(ids), report.Checked)
}

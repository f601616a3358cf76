package repository

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/family-fund-api/internal/models"
)

func seedApprovedCase(t *testing.T, store *MemoryStore, approved int64) string {
	t.Helper()
	ctx := context.Background()
	cases := store.Cases()
	c := &models.AssistanceCase{BeneficiaryID: "ben-1", CaseType: models.CaseTypeFuneral, Title: "Burial", RequestedAmount: decimal.NewFromInt(approved)}
	require.NoError(t, cases.Create(ctx, c))
	_, err := cases.Approve(ctx, c.ID, decimal.NewFromInt(approved), nil, time.Now())
	require.NoError(t, err)
	return c.ID
}

func TestMemoryCaseTransitionsAreConditional(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	id := seedApprovedCase(t, store, 100)

	_, err := store.Cases().Approve(ctx, id, decimal.NewFromInt(50), nil, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = store.Cases().Reject(ctx, id, "late", time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	_, err = store.Cases().Complete(ctx, id, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows, "not fully disbursed")
}

func TestMemoryConcurrentDisbursementsNeverOverpay(t *testing.T) {
	store := NewMemoryStore()
	id := seedApprovedCase(t, store, 20000)

	var wg sync.WaitGroup
	var mu sync.Mutex
	var succeeded, completed, overpaid int
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, done, err := store.Cases().RecordDisbursement(context.Background(), &models.Disbursement{CaseID: id, Amount: decimal.NewFromInt(20000)})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
				if done {
					completed++
				}
			case errors.Is(err, models.ErrOverpayment):
				overpaid++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, completed)
	assert.Equal(t, 7, overpaid)

	c, err := store.Cases().FindByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusCompleted, c.Status)
	assert.True(t, c.DisbursedAmount.Equal(decimal.NewFromInt(20000)))

	items, err := store.Cases().ListDisbursements(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, items, 1)
}

func TestMemoryPaymentsCreatePendingSkipsExisting(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	period := models.PeriodStart(time.Date(2024, 6, 9, 0, 0, 0, 0, time.UTC))
	dues := []models.Payment{
		{MemberID: "m-1", Fund: models.FundTakaful, Period: period, Amount: decimal.NewFromInt(10)},
		{MemberID: "m-1", Fund: models.FundPlus, Period: period, Amount: decimal.NewFromInt(5)},
	}

	created, err := store.Payments().CreatePending(ctx, dues)
	require.NoError(t, err)
	assert.Equal(t, 2, created)

	created, err = store.Payments().CreatePending(ctx, dues)
	require.NoError(t, err)
	assert.Zero(t, created)

	items, total, err := store.Payments().List(ctx, models.PaymentFilter{MemberID: "m-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, total)

	paid, err := store.Payments().MarkPaid(ctx, items[0].ID, time.Now(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentStatusPaid, paid.Status)
	_, err = store.Payments().MarkPaid(ctx, items[0].ID, time.Now(), nil, nil)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMemoryUsersRejectDuplicateEmail(t *testing.T) {
	users := NewMemoryStore().Users()
	ctx := context.Background()
	require.NoError(t, users.Create(ctx, &models.User{Email: "admin@family.local", Role: models.RoleAdmin}))
	err := users.Create(ctx, &models.User{Email: "ADMIN@family.local", Role: models.RoleAdmin})
	assert.ErrorIs(t, err, ErrDuplicate)

	found, err := users.FindByEmail(ctx, "Admin@Family.Local")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, found.Role)
}

func TestPaginateBounds(t *testing.T) {
	items := []int{1, 2, 3}
	assert.Equal(t, []int{1, 2, 3}, paginate(items, 0, 0))
	assert.Empty(t, paginate(items, 5, 20))
	assert.Equal(t, []int{3}, paginate(items, 2, 2))
}

func TestMemoryStoreSetSharesState(t *testing.T) {
	store := NewMemoryStore()
	set := store.Set()
	ctx := context.Background()

	m := &models.Member{FullName: "Ali", TakafulMonthly: decimal.NewFromInt(50), Active: true}
	require.NoError(t, set.Members.Create(ctx, m))

	got, err := store.Members().FindByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ali", got.FullName)
}

package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func approvedCase(approved, disbursed int64) *AssistanceCase {
	return &AssistanceCase{
		Status:          CaseStatusApproved,
		RequestedAmount: decimal.NewFromInt(approved),
		ApprovedAmount:  decimal.NewNullDecimal(decimal.NewFromInt(approved)),
		DisbursedAmount: decimal.NewFromInt(disbursed),
	}
}

func TestCaseStatusTransitions(t *testing.T) {
	assert.True(t, CaseStatusPending.CanTransition(CaseStatusApproved))
	assert.True(t, CaseStatusPending.CanTransition(CaseStatusRejected))
	assert.True(t, CaseStatusApproved.CanTransition(CaseStatusCompleted))
	assert.False(t, CaseStatusPending.CanTransition(CaseStatusCompleted))
	assert.False(t, CaseStatusApproved.CanTransition(CaseStatusRejected))
	assert.False(t, CaseStatusRejected.CanTransition(CaseStatusApproved))
	assert.False(t, CaseStatusCompleted.CanTransition(CaseStatusApproved))

	assert.True(t, CaseStatusRejected.Terminal())
	assert.True(t, CaseStatusCompleted.Terminal())
	assert.False(t, CaseStatusPending.Terminal())
	assert.False(t, CaseStatus("archived").Terminal())
}

func TestCaseTypeValid(t *testing.T) {
	assert.True(t, CaseTypeMedical.Valid())
	assert.False(t, CaseType("holiday").Valid())
}

func TestCheckApprove(t *testing.T) {
	c := &AssistanceCase{Status: CaseStatusPending, RequestedAmount: decimal.NewFromInt(50000)}

	assert.NoError(t, c.CheckApprove(decimal.NewFromInt(40000)))
	assert.NoError(t, c.CheckApprove(decimal.NewFromInt(50000)))
	assert.ErrorIs(t, c.CheckApprove(decimal.Zero), ErrNonPositiveAmount)
	assert.ErrorIs(t, c.CheckApprove(decimal.NewFromInt(50001)), ErrExceedsRequested)

	c.Status = CaseStatusApproved
	assert.ErrorIs(t, c.CheckApprove(decimal.NewFromInt(100)), ErrInvalidTransition)
}

func TestCheckReject(t *testing.T) {
	c := &AssistanceCase{Status: CaseStatusPending}
	assert.ErrorIs(t, c.CheckReject("  "), ErrReasonRequired)
	assert.NoError(t, c.CheckReject("insufficient documentation"))

	c.Status = CaseStatusCompleted
	assert.ErrorIs(t, c.CheckReject("late"), ErrInvalidTransition)
}

func TestCheckComplete(t *testing.T) {
	changed, err := approvedCase(100, 40).CheckComplete()
	assert.ErrorIs(t, err, ErrCeilingNotReached)
	assert.False(t, changed)

	changed, err = approvedCase(100, 100).CheckComplete()
	assert.NoError(t, err)
	assert.True(t, changed)

	done := approvedCase(100, 100)
	done.Status = CaseStatusCompleted
	changed, err = done.CheckComplete()
	assert.NoError(t, err)
	assert.False(t, changed)

	_, err = (&AssistanceCase{Status: CaseStatusPending}).CheckComplete()
	assert.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCheckDisbursement(t *testing.T) {
	c := approvedCase(20000, 5000)
	assert.NoError(t, c.CheckDisbursement(decimal.NewFromInt(15000)))
	assert.ErrorIs(t, c.CheckDisbursement(decimal.NewFromInt(15001)), ErrOverpayment)
	assert.ErrorIs(t, c.CheckDisbursement(decimal.NewFromInt(-1)), ErrNonPositiveAmount)

	pending := &AssistanceCase{Status: CaseStatusPending, RequestedAmount: decimal.NewFromInt(10)}
	assert.ErrorIs(t, pending.CheckDisbursement(decimal.NewFromInt(1)), ErrCaseNotApproved)

	done := approvedCase(20000, 20000)
	done.Status = CaseStatusCompleted
	assert.ErrorIs(t, done.CheckDisbursement(decimal.NewFromInt(1)), ErrOverpayment)
	assert.True(t, done.Remaining().IsZero())
}

func TestCheckAmountMatchesStorage(t *testing.T) {
	assert.NoError(t, CheckAmount(decimal.RequireFromString("0.01")))
	assert.NoError(t, CheckAmount(decimal.RequireFromString("100.500")), "trailing zeros are exact")
	assert.NoError(t, CheckAmount(decimal.RequireFromString("999999999999.99")))
	assert.ErrorIs(t, CheckAmount(decimal.Zero), ErrNonPositiveAmount)
	assert.ErrorIs(t, CheckAmount(decimal.RequireFromString("0.006")), ErrAmountPrecision)
	assert.ErrorIs(t, CheckAmount(decimal.RequireFromString("0.001")), ErrAmountPrecision)
	assert.ErrorIs(t, CheckAmount(decimal.New(1, 12)), ErrAmountTooLarge)
}

func TestSubCentDisbursementCannotStrandCeiling(t *testing.T) {
	c := &AssistanceCase{
		Status:          CaseStatusApproved,
		RequestedAmount: decimal.NewFromInt(100),
		ApprovedAmount:  decimal.NewNullDecimal(decimal.NewFromInt(100)),
		DisbursedAmount: decimal.RequireFromString("99.99"),
	}
	assert.ErrorIs(t, c.CheckDisbursement(decimal.RequireFromString("0.006")), ErrAmountPrecision)
	assert.ErrorIs(t, c.CheckDisbursement(decimal.RequireFromString("0.004")), ErrAmountPrecision)
	assert.NoError(t, c.CheckDisbursement(decimal.RequireFromString("0.01")))

	pending := &AssistanceCase{Status: CaseStatusPending, RequestedAmount: decimal.NewFromInt(100)}
	assert.ErrorIs(t, pending.CheckApprove(decimal.RequireFromString("50.555")), ErrAmountPrecision)
}

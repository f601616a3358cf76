package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/family-fund-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

var caseRowColumns = []string{"id", "beneficiary_id", "case_type", "title", "description", "requested_amount", "approved_amount", "disbursed_amount", "status", "requested_by", "approved_by", "approved_at", "rejection_reason", "created_at", "updated_at"}

func caseRow(status string, approved interface{}, disbursed string) *sqlmock.Rows {
	now := time.Now()
	return sqlmock.NewRows(caseRowColumns).
		AddRow("case-1", "ben-1", "medical", "Surgery", nil, "50000.00", approved, disbursed, status, "user-1", nil, nil, nil, now, now)
}

func TestCaseRepositoryCreateForcesPending(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO assistance_cases")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	c := &models.AssistanceCase{
		BeneficiaryID:   "ben-1",
		CaseType:        models.CaseTypeMedical,
		Title:           "Surgery",
		RequestedAmount: decimal.NewFromInt(50000),
		Status:          models.CaseStatusCompleted,
		DisbursedAmount: decimal.NewFromInt(10),
	}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, models.CaseStatusPending, c.Status)
	assert.True(t, c.DisbursedAmount.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryFindByIDScansDecimals(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM assistance_cases WHERE id = $1")).
		WithArgs("case-1").
		WillReturnRows(caseRow("approved", "40000.00", "15000.00"))

	c, err := repo.FindByID(context.Background(), "case-1")
	require.NoError(t, err)
	assert.Equal(t, models.CaseStatusApproved, c.Status)
	assert.True(t, c.ApprovedAmount.Valid)
	assert.True(t, c.Remaining().Equal(decimal.NewFromInt(25000)))
}

func TestCaseRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectQuery("FROM assistance_cases").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestCaseRepositoryApproveIsConditional(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE assistance_cases SET status = $2, approved_amount = $3")).
		WithArgs("case-1", "approved", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), "pending").
		WillReturnRows(sqlmock.NewRows(caseRowColumns))

	_, err := repo.Approve(context.Background(), "case-1", decimal.NewFromInt(40000), nil, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryRecordDisbursementCompletesAtCeiling(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $1 FOR UPDATE")).
		WithArgs("case-1").
		WillReturnRows(caseRow("approved", "40000.00", "15000.00"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO disbursements")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE assistance_cases SET disbursed_amount = $2, status = $3")).
		WithArgs("case-1", sqlmock.AnyArg(), "completed", sqlmock.AnyArg()).
		WillReturnRows(caseRow("completed", "40000.00", "40000.00"))
	mock.ExpectCommit()

	d := &models.Disbursement{CaseID: "case-1", Amount: decimal.NewFromInt(25000)}
	updated, completed, err := repo.RecordDisbursement(context.Background(), d)
	require.NoError(t, err)
	assert.True(t, completed)
	assert.Equal(t, models.CaseStatusCompleted, updated.Status)
	assert.NotEmpty(t, d.ID)
	assert.False(t, d.DisbursementDate.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryRecordDisbursementRollsBackOverpayment(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(caseRow("approved", "10000.00", "0"))
	mock.ExpectRollback()

	_, completed, err := repo.RecordDisbursement(context.Background(), &models.Disbursement{CaseID: "case-1", Amount: decimal.NewFromInt(12000)})
	assert.ErrorIs(t, err, models.ErrOverpayment)
	assert.False(t, completed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryRecordDisbursementRejectsPendingCase(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(caseRow("pending", nil, "0"))
	mock.ExpectRollback()

	_, _, err := repo.RecordDisbursement(context.Background(), &models.Disbursement{CaseID: "case-1", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, models.ErrCaseNotApproved)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryListBuildsFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	status := models.CaseStatusApproved
	mock.ExpectQuery(regexp.QuoteMeta("AND status = $1 AND beneficiary_id = $2 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WithArgs("approved", "ben-1").
		WillReturnRows(caseRow("approved", "40000.00", "0"))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM assistance_cases")).
		WithArgs("approved", "ben-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	cases, total, err := repo.List(context.Background(), models.CaseFilter{Status: &status, BeneficiaryID: "ben-1", SortBy: "drop table"})
	require.NoError(t, err)
	assert.Len(t, cases, 1)
	assert.Equal(t, 1, total)
}

func TestCaseRepositoryRecordDisbursementRejectsSubCentAmount(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).
		WillReturnRows(caseRow("approved", "100.00", "99.99"))
	mock.ExpectRollback()

	_, completed, err := repo.RecordDisbursement(context.Background(), &models.Disbursement{CaseID: "case-1", Amount: decimal.RequireFromString("0.006")})
	assert.ErrorIs(t, err, models.ErrAmountPrecision)
	assert.False(t, completed)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositoryMalformedIDIsMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)
	badUUID := &pq.Error{Code: "22P02", Message: "invalid input syntax for type uuid"}

	mock.ExpectQuery("FROM assistance_cases").WithArgs("abc").WillReturnError(badUUID)
	_, err := repo.FindByID(context.Background(), "abc")
	assert.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FOR UPDATE")).WithArgs("abc").WillReturnError(badUUID)
	mock.ExpectRollback()
	_, _, err = repo.RecordDisbursement(context.Background(), &models.Disbursement{CaseID: "abc", Amount: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, sql.ErrNoRows)

	mock.ExpectQuery(regexp.QuoteMeta("UPDATE assistance_cases SET status = $2, approved_amount = $3")).WillReturnError(badUUID)
	_, err = repo.Approve(context.Background(), "abc", decimal.NewFromInt(1), nil, time.Now())
	assert.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCaseRepositorySnapshotReadsInOneTransaction(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewCaseRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery("FROM assistance_cases ORDER BY created_at").
		WillReturnRows(caseRow("approved", "100.00", "40.00"))
	mock.ExpectQuery("FROM disbursements ORDER BY created_at").
		WillReturnRows(sqlmock.NewRows([]string{"id", "case_id", "amount", "disbursed_by", "disbursement_date", "payment_method", "reference_number", "notes", "created_at"}).
			AddRow("d-1", "case-1", "40.00", "user-1", time.Now(), nil, nil, nil, time.Now()))
	mock.ExpectCommit()

	cases, items, err := repo.Snapshot(context.Background())
	require.NoError(t, err)
	require.Len(t, cases, 1)
	require.Len(t, items, 1)
	assert.True(t, items[0].Amount.Equal(cases[0].DisbursedAmount))
	require.NoError(t, mock.ExpectationsWereMet())
}

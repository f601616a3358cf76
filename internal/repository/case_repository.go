package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/family-fund-api/internal/models"
)

const caseColumns = `id, beneficiary_id, case_type, title, description, requested_amount, approved_amount, disbursed_amount, status, requested_by, approved_by, approved_at, rejection_reason, created_at, updated_at`

const disbursementColumns = `id, case_id, amount, disbursed_by, disbursement_date, payment_method, reference_number, notes, created_at`

// CaseRepository persists assistance cases and their disbursements.
// Status changes are conditional updates keyed on the expected current status.
type CaseRepository struct {
	db *sqlx.DB
}

// NewCaseRepository constructs the repository.
func NewCaseRepository(db *sqlx.DB) *CaseRepository {
	return &CaseRepository{db: db}
}

// Create inserts a case in pending status with nothing disbursed.
func (r *CaseRepository) Create(ctx context.Context, c *models.AssistanceCase) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	c.Status = models.CaseStatusPending
	c.DisbursedAmount = decimal.Zero
	c.ApprovedAmount = decimal.NullDecimal{}
	c.CreatedAt, c.UpdatedAt = now, now
	const query = `INSERT INTO assistance_cases (id, beneficiary_id, case_type, title, description, requested_amount, disbursed_amount, status, requested_by, created_at, updated_at)
VALUES (:id, :beneficiary_id, :case_type, :title, :description, :requested_amount, :disbursed_amount, :status, :requested_by, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return fmt.Errorf("create case: %w", err)
	}
	return nil
}

// FindByID returns a case or sql.ErrNoRows.
func (r *CaseRepository) FindByID(ctx context.Context, id string) (*models.AssistanceCase, error) {
	var c models.AssistanceCase
	if err := r.db.GetContext(ctx, &c, `SELECT `+caseColumns+` FROM assistance_cases WHERE id = $1`, id); err != nil {
		if isMissingRow(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find case: %w", err)
	}
	return &c, nil
}

// List returns a filtered page of cases.
func (r *CaseRepository) List(ctx context.Context, filter models.CaseFilter) ([]models.AssistanceCase, int, error) {
	base := ` FROM assistance_cases WHERE 1=1`
	var args []interface{}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.CaseType != nil {
		args = append(args, *filter.CaseType)
		base += fmt.Sprintf(" AND case_type = $%d", len(args))
	}
	if filter.BeneficiaryID != "" {
		args = append(args, filter.BeneficiaryID)
		base += fmt.Sprintf(" AND beneficiary_id = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND LOWER(title) LIKE $%d", len(args))
	}

	sortBy := filter.SortBy
	allowedSorts := map[string]bool{"created_at": true, "updated_at": true, "requested_amount": true, "title": true, "status": true}
	if !allowedSorts[sortBy] {
		sortBy = "created_at"
	}
	sortOrder := strings.ToUpper(filter.SortOrder)
	if sortOrder != "ASC" && sortOrder != "DESC" {
		sortOrder = "DESC"
	}
	_, pageSize, offset := models.PageBounds(filter.Page, filter.PageSize)

	var cases []models.AssistanceCase
	listQuery := fmt.Sprintf("SELECT %s%s ORDER BY %s %s LIMIT %d OFFSET %d", caseColumns, base, sortBy, sortOrder, pageSize, offset)
	if err := r.db.SelectContext(ctx, &cases, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list cases: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count cases: %w", err)
	}
	return cases, total, nil
}

// All returns every case, for reporting.
func (r *CaseRepository) All(ctx context.Context) ([]models.AssistanceCase, error) {
	var cases []models.AssistanceCase
	if err := r.db.SelectContext(ctx, &cases, `SELECT `+caseColumns+` FROM assistance_cases ORDER BY created_at`); err != nil {
		return nil, fmt.Errorf("load cases: %w", err)
	}
	return cases, nil
}

// Approve moves a pending case to approved. Returns sql.ErrNoRows when the case is missing or no longer pending.
func (r *CaseRepository) Approve(ctx context.Context, id string, amount decimal.Decimal, approverID *string, at time.Time) (*models.AssistanceCase, error) {
	query := `UPDATE assistance_cases SET status = $2, approved_amount = $3, approved_by = $4, approved_at = $5, updated_at = $5
WHERE id = $1 AND status = $6 RETURNING ` + caseColumns
	return r.transition(ctx, "approve case", query, id, models.CaseStatusApproved, amount, approverID, at, models.CaseStatusPending)
}

// Reject moves a pending case to rejected. Returns sql.ErrNoRows when the case is missing or no longer pending.
func (r *CaseRepository) Reject(ctx context.Context, id, reason string, at time.Time) (*models.AssistanceCase, error) {
	query := `UPDATE assistance_cases SET status = $2, rejection_reason = $3, updated_at = $4
WHERE id = $1 AND status = $5 RETURNING ` + caseColumns
	return r.transition(ctx, "reject case", query, id, models.CaseStatusRejected, reason, at, models.CaseStatusPending)
}

// Complete moves a fully disbursed approved case to completed. Returns sql.ErrNoRows when nothing changed.
func (r *CaseRepository) Complete(ctx context.Context, id string, at time.Time) (*models.AssistanceCase, error) {
	query := `UPDATE assistance_cases SET status = $2, updated_at = $3
WHERE id = $1 AND status = $4 AND disbursed_amount = approved_amount RETURNING ` + caseColumns
	return r.transition(ctx, "complete case", query, id, models.CaseStatusCompleted, at, models.CaseStatusApproved)
}

func (r *CaseRepository) transition(ctx context.Context, op, query string, args ...interface{}) (*models.AssistanceCase, error) {
	var c models.AssistanceCase
	if err := r.db.GetContext(ctx, &c, query, args...); err != nil {
		if isMissingRow(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &c, nil
}

// RecordDisbursement appends d and raises the case total in one transaction, holding a row lock
// on the case. When the new total reaches the approved ceiling the case is completed in the same
// transaction and completed is true. Guard failures are returned as models sentinel errors.
func (r *CaseRepository) RecordDisbursement(ctx context.Context, d *models.Disbursement) (updated *models.AssistanceCase, completed bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, false, fmt.Errorf("begin disbursement tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback() //nolint:errcheck
		}
	}()

	var current models.AssistanceCase
	if err = tx.GetContext(ctx, &current, `SELECT `+caseColumns+` FROM assistance_cases WHERE id = $1 FOR UPDATE`, d.CaseID); err != nil {
		if isMissingRow(err) {
			return nil, false, sql.ErrNoRows
		}
		return nil, false, fmt.Errorf("lock case: %w", err)
	}
	if err = current.CheckDisbursement(d.Amount); err != nil {
		return nil, false, err
	}

	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	if d.DisbursementDate.IsZero() {
		d.DisbursementDate = now.Truncate(24 * time.Hour)
	}
	const insert = `INSERT INTO disbursements (id, case_id, amount, disbursed_by, disbursement_date, payment_method, reference_number, notes, created_at)
VALUES (:id, :case_id, :amount, :disbursed_by, :disbursement_date, :payment_method, :reference_number, :notes, :created_at)`
	if _, err = tx.NamedExecContext(ctx, insert, d); err != nil {
		return nil, false, fmt.Errorf("insert disbursement: %w", err)
	}

	total := current.DisbursedAmount.Add(d.Amount)
	status := current.Status
	if total.Equal(current.ApprovedAmount.Decimal) {
		status = models.CaseStatusCompleted
	}
	var next models.AssistanceCase
	update := `UPDATE assistance_cases SET disbursed_amount = $2, status = $3, updated_at = $4 WHERE id = $1 RETURNING ` + caseColumns
	if err = tx.GetContext(ctx, &next, update, d.CaseID, total, status, now); err != nil {
		return nil, false, fmt.Errorf("update disbursed amount: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit disbursement: %w", err)
	}
	return &next, status == models.CaseStatusCompleted, nil
}

// ListDisbursements returns the disbursements of a case in recording order.
func (r *CaseRepository) ListDisbursements(ctx context.Context, caseID string) ([]models.Disbursement, error) {
	var items []models.Disbursement
	if err := r.db.SelectContext(ctx, &items, `SELECT `+disbursementColumns+` FROM disbursements WHERE case_id = $1 ORDER BY created_at`, caseID); err != nil {
		return nil, fmt.Errorf("list disbursements: %w", err)
	}
	return items, nil
}

// Snapshot reads every case and every disbursement inside one repeatable read transaction,
// so both lists reflect the same committed state.
func (r *CaseRepository) Snapshot(ctx context.Context) (cases []models.AssistanceCase, items []models.Disbursement, err error) {
	tx, err := r.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
	if err != nil {
		return nil, nil, fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() {
		if err != nil {
			tx.Rollback() //nolint:errcheck
		}
	}()
	if err = tx.SelectContext(ctx, &cases, `SELECT `+caseColumns+` FROM assistance_cases ORDER BY created_at`); err != nil {
		return nil, nil, fmt.Errorf("snapshot cases: %w", err)
	}
	if err = tx.SelectContext(ctx, &items, `SELECT `+disbursementColumns+` FROM disbursements ORDER BY created_at`); err != nil {
		return nil, nil, fmt.Errorf("snapshot disbursements: %w", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("commit snapshot: %w", err)
	}
	return cases, items, nil
}

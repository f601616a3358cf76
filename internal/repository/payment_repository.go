package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/family-fund-api/internal/models"
)

const paymentColumns = `id, member_id, fund, period, amount, status, paid_at, payment_method, notes, created_at, updated_at`

// PaymentRepository persists monthly fund dues.
type PaymentRepository struct {
	db *sqlx.DB
}

// NewPaymentRepository constructs the repository.
func NewPaymentRepository(db *sqlx.DB) *PaymentRepository {
	return &PaymentRepository{db: db}
}

// FindByID returns a payment or sql.ErrNoRows.
func (r *PaymentRepository) FindByID(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.GetContext(ctx, &p, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id); err != nil {
		if isMissingRow(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find payment: %w", err)
	}
	return &p, nil
}

// List returns a filtered page of payments, newest period first.
func (r *PaymentRepository) List(ctx context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	base, args := paymentWhere(filter)
	_, pageSize, offset := models.PageBounds(filter.Page, filter.PageSize)

	var items []models.Payment
	listQuery := fmt.Sprintf("SELECT %s%s ORDER BY period DESC, member_id, fund LIMIT %d OFFSET %d", paymentColumns, base, pageSize, offset)
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count payments: %w", err)
	}
	return items, total, nil
}

// InRange returns every payment whose period falls in [from, to). Nil bounds are open.
func (r *PaymentRepository) InRange(ctx context.Context, from, to *time.Time) ([]models.Payment, error) {
	base, args := paymentWhere(models.PaymentFilter{From: from, To: to})
	var items []models.Payment
	if err := r.db.SelectContext(ctx, &items, "SELECT "+paymentColumns+base+" ORDER BY period", args...); err != nil {
		return nil, fmt.Errorf("load payments: %w", err)
	}
	return items, nil
}

func paymentWhere(filter models.PaymentFilter) (string, []interface{}) {
	base := ` FROM payments WHERE 1=1`
	var args []interface{}
	if filter.MemberID != "" {
		args = append(args, filter.MemberID)
		base += fmt.Sprintf(" AND member_id = $%d", len(args))
	}
	if filter.Fund != nil {
		args = append(args, *filter.Fund)
		base += fmt.Sprintf(" AND fund = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		base += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		base += fmt.Sprintf(" AND period >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		base += fmt.Sprintf(" AND period < $%d", len(args))
	}
	return base, args
}

// MarkPaid settles a pending payment. Returns sql.ErrNoRows when missing or already paid.
func (r *PaymentRepository) MarkPaid(ctx context.Context, id string, paidAt time.Time, method, notes *string) (*models.Payment, error) {
	query := `UPDATE payments SET status = $2, paid_at = $3, payment_method = COALESCE($4, payment_method), notes = COALESCE($5, notes), updated_at = $3
WHERE id = $1 AND status = $6 RETURNING ` + paymentColumns
	var p models.Payment
	if err := r.db.GetContext(ctx, &p, query, id, models.PaymentStatusPaid, paidAt, method, notes, models.PaymentStatusPending); err != nil {
		if isMissingRow(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("mark payment paid: %w", err)
	}
	return &p, nil
}

// CreatePending inserts pending dues, skipping (member, fund, period) rows that already exist.
// It returns how many rows were inserted.
func (r *PaymentRepository) CreatePending(ctx context.Context, payments []models.Payment) (int, error) {
	if len(payments) == 0 {
		return 0, nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin dues tx: %w", err)
	}
	const query = `INSERT INTO payments (id, member_id, fund, period, amount, status, created_at, updated_at)
VALUES (:id, :member_id, :fund, :period, :amount, :status, :created_at, :updated_at)
ON CONFLICT (member_id, fund, period) DO NOTHING`
	now := time.Now().UTC()
	created := 0
	for i := range payments {
		p := &payments[i]
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.Status = models.PaymentStatusPending
		p.CreatedAt, p.UpdatedAt = now, now
		res, err := tx.NamedExecContext(ctx, query, p)
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return 0, fmt.Errorf("insert pending payment: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			tx.Rollback() //nolint:errcheck
			return 0, fmt.Errorf("check pending payment rows: %w", err)
		}
		created += int(n)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit pending payments: %w", err)
	}
	return created, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/family-fund-api/internal/models"
)

const memberColumns = `id, user_id, full_name, email, phone, takaful_monthly, plus_monthly, historical_takaful_paid, historical_takaful_pending, historical_plus_paid, historical_plus_pending, active, joined_at, created_at, updated_at`

// MemberRepository persists contributing members.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository constructs the repository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// Create inserts a member.
func (r *MemberRepository) Create(ctx context.Context, m *models.Member) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	m.CreatedAt, m.UpdatedAt = now, now
	if m.JoinedAt.IsZero() {
		m.JoinedAt = now.Truncate(24 * time.Hour)
	}
	const query = `INSERT INTO members (id, user_id, full_name, email, phone, takaful_monthly, plus_monthly, historical_takaful_paid, historical_takaful_pending, historical_plus_paid, historical_plus_pending, active, joined_at, created_at, updated_at)
VALUES (:id, :user_id, :full_name, :email, :phone, :takaful_monthly, :plus_monthly, :historical_takaful_paid, :historical_takaful_pending, :historical_plus_paid, :historical_plus_pending, :active, :joined_at, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, m); err != nil {
		return fmt.Errorf("create member: %w", err)
	}
	return nil
}

// FindByID returns a member or sql.ErrNoRows.
func (r *MemberRepository) FindByID(ctx context.Context, id string) (*models.Member, error) {
	var m models.Member
	if err := r.db.GetContext(ctx, &m, `SELECT `+memberColumns+` FROM members WHERE id = $1`, id); err != nil {
		if isMissingRow(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find member: %w", err)
	}
	return &m, nil
}

// List returns a filtered page of members ordered by name.
func (r *MemberRepository) List(ctx context.Context, filter models.MemberFilter) ([]models.Member, int, error) {
	base := ` FROM members WHERE 1=1`
	var args []interface{}
	if filter.Active != nil {
		args = append(args, *filter.Active)
		base += fmt.Sprintf(" AND active = $%d", len(args))
	}
	if filter.Search != "" {
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
		base += fmt.Sprintf(" AND LOWER(full_name) LIKE $%d", len(args))
	}
	_, pageSize, offset := models.PageBounds(filter.Page, filter.PageSize)

	var members []models.Member
	listQuery := fmt.Sprintf("SELECT %s%s ORDER BY full_name ASC LIMIT %d OFFSET %d", memberColumns, base, pageSize, offset)
	if err := r.db.SelectContext(ctx, &members, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list members: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count members: %w", err)
	}
	return members, total, nil
}

// All returns every member, active or not.
func (r *MemberRepository) All(ctx context.Context) ([]models.Member, error) {
	var members []models.Member
	if err := r.db.SelectContext(ctx, &members, `SELECT `+memberColumns+` FROM members ORDER BY full_name`); err != nil {
		return nil, fmt.Errorf("load members: %w", err)
	}
	return members, nil
}

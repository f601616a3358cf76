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

const beneficiaryColumns = `id, name, phone, relationship, address, notes, is_family_member, created_at, updated_at`

// BeneficiaryRepository persists beneficiaries.
type BeneficiaryRepository struct {
	db *sqlx.DB
}

// NewBeneficiaryRepository constructs the repository.
func NewBeneficiaryRepository(db *sqlx.DB) *BeneficiaryRepository {
	return &BeneficiaryRepository{db: db}
}

// Create inserts a beneficiary.
func (r *BeneficiaryRepository) Create(ctx context.Context, b *models.Beneficiary) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	const query = `INSERT INTO beneficiaries (id, name, phone, relationship, address, notes, is_family_member, created_at, updated_at)
VALUES (:id, :name, :phone, :relationship, :address, :notes, :is_family_member, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, b); err != nil {
		return fmt.Errorf("create beneficiary: %w", err)
	}
	return nil
}

// Update replaces the mutable fields of a beneficiary.
func (r *BeneficiaryRepository) Update(ctx context.Context, b *models.Beneficiary) error {
	b.UpdatedAt = time.Now().UTC()
	const query = `UPDATE beneficiaries SET name = :name, phone = :phone, relationship = :relationship, address = :address, notes = :notes, is_family_member = :is_family_member, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, b)
	if err != nil {
		return fmt.Errorf("update beneficiary: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check beneficiary update rows: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID returns a beneficiary or sql.ErrNoRows.
func (r *BeneficiaryRepository) FindByID(ctx context.Context, id string) (*models.Beneficiary, error) {
	var b models.Beneficiary
	if err := r.db.GetContext(ctx, &b, `SELECT `+beneficiaryColumns+` FROM beneficiaries WHERE id = $1`, id); err != nil {
		if isMissingRow(err) {
			return nil, sql.ErrNoRows
		}
		return nil, fmt.Errorf("find beneficiary: %w", err)
	}
	return &b, nil
}

// List returns a page of beneficiaries ordered by name.
func (r *BeneficiaryRepository) List(ctx context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, int, error) {
	base := ` FROM beneficiaries`
	var args []interface{}
	if filter.Search != "" {
		base += ` WHERE LOWER(name) LIKE $1`
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	_, pageSize, offset := models.PageBounds(filter.Page, filter.PageSize)

	var items []models.Beneficiary
	listQuery := fmt.Sprintf("SELECT %s%s ORDER BY name ASC LIMIT %d OFFSET %d", beneficiaryColumns, base, pageSize, offset)
	if err := r.db.SelectContext(ctx, &items, listQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("list beneficiaries: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+base, args...); err != nil {
		return nil, 0, fmt.Errorf("count beneficiaries: %w", err)
	}
	return items, total, nil
}

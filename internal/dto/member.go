package dto

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/family-fund-api/internal/models"
)

// CreateMemberRequest registers a contributing member.
type CreateMemberRequest struct {
	FullName                 string           `json:"full_name" validate:"required,max=200"`
	Email                    *string          `json:"email,omitempty" validate:"omitempty,email"`
	Phone                    *string          `json:"phone,omitempty" validate:"omitempty,max=50"`
	UserID                   *string          `json:"user_id,omitempty"`
	TakafulMonthly           *decimal.Decimal `json:"takaful_monthly,omitempty"`
	PlusMonthly              *decimal.Decimal `json:"plus_monthly,omitempty"`
	HistoricalTakafulPaid    decimal.Decimal  `json:"historical_takaful_paid"`
	HistoricalTakafulPending decimal.Decimal  `json:"historical_takaful_pending"`
	HistoricalPlusPaid       decimal.Decimal  `json:"historical_plus_paid"`
	HistoricalPlusPending    decimal.Decimal  `json:"historical_plus_pending"`
	JoinedAt                 *string          `json:"joined_at,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// MarkPaidRequest settles a pending payment.
type MarkPaidRequest struct {
	PaymentMethod *string `json:"payment_method,omitempty" validate:"omitempty,max=50"`
	Notes         *string `json:"notes,omitempty"`
}

// GenerateDuesRequest triggers pending dues generation for a month (YYYY-MM). Empty means the current month.
type GenerateDuesRequest struct {
	Month string `json:"month" validate:"omitempty,datetime=2006-01"`
}

// GenerateDuesResult reports how many pending payments were inserted.
type GenerateDuesResult struct {
	Period   string `json:"period"`
	Members  int    `json:"members"`
	Created  int    `json:"created"`
	Existing int    `json:"existing"`
}

// CreateUserRequest provisions a portal account.
type CreateUserRequest struct {
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	FullName string          `json:"full_name" validate:"required,max=200"`
	Role     models.UserRole `json:"role" validate:"required"`
}

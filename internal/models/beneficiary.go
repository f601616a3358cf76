package models

import "time"

// Beneficiary is a person who may receive assistance. Beneficiaries are never deleted.
type Beneficiary struct {
	ID             string    `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Phone          *string   `db:"phone" json:"phone,omitempty"`
	Relationship   *string   `db:"relationship" json:"relationship,omitempty"`
	Address        *string   `db:"address" json:"address,omitempty"`
	Notes          *string   `db:"notes" json:"notes,omitempty"`
	IsFamilyMember bool      `db:"is_family_member" json:"is_family_member"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// BeneficiaryFilter narrows beneficiary listings.
type BeneficiaryFilter struct {
	Search   string
	Page     int
	PageSize int
}

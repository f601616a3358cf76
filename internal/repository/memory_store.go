package repository

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/family-fund-api/internal/models"
)

// MemoryStore backs every repository contract with process memory when no database is configured.
// One mutex guards all tables, so each write is atomic with respect to every other.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]models.User
	auditLogs     []models.AuditLog
	beneficiaries map[string]models.Beneficiary
	cases         map[string]models.AssistanceCase
	disbursements []models.Disbursement
	members       map[string]models.Member
	payments      map[string]models.Payment
	now           func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         map[string]models.User{},
		beneficiaries: map[string]models.Beneficiary{},
		cases:         map[string]models.AssistanceCase{},
		members:       map[string]models.Member{},
		payments:      map[string]models.Payment{},
		now:           func() time.Time { return time.Now().UTC() },
	}
}

// Users returns the user repository view.
func (s *MemoryStore) Users() *MemoryUserRepository { return &MemoryUserRepository{s: s} }

// Beneficiaries returns the beneficiary repository view.
func (s *MemoryStore) Beneficiaries() *MemoryBeneficiaryRepository {
	return &MemoryBeneficiaryRepository{s: s}
}

// Cases returns the case repository view.
func (s *MemoryStore) Cases() *MemoryCaseRepository { return &MemoryCaseRepository{s: s} }

// Members returns the member repository view.
func (s *MemoryStore) Members() *MemoryMemberRepository { return &MemoryMemberRepository{s: s} }

// Payments returns the payment repository view.
func (s *MemoryStore) Payments() *MemoryPaymentRepository { return &MemoryPaymentRepository{s: s} }

func paginate[T any](items []T, page, pageSize int) []T {
	_, size, offset := models.PageBounds(page, pageSize)
	if offset > len(items) {
		offset = len(items)
	}
	end := offset + size
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

// MemoryUserRepository is the in-memory user and audit store.
type MemoryUserRepository struct{ s *MemoryStore }

func (r *MemoryUserRepository) FindByEmail(_ context.Context, email string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (r *MemoryUserRepository) FindByID(_ context.Context, id string) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &u, nil
}

func (r *MemoryUserRepository) UpdateLastLogin(_ context.Context, id string, ts time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.LastLogin, u.UpdatedAt = &ts, ts
		r.s.users[id] = u
	}
	return nil
}

func (r *MemoryUserRepository) UpdatePassword(_ context.Context, id, passwordHash string, updatedAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.PasswordHash, u.UpdatedAt = passwordHash, updatedAt
		r.s.users[id] = u
	}
	return nil
}

func (r *MemoryUserRepository) List(_ context.Context, filter models.UserFilter) ([]models.User, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var all []models.User
	for _, u := range r.s.users {
		if filter.Role != nil && u.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && u.Active != *filter.Active {
			continue
		}
		if filter.Search != "" && !containsFold(u.Email, filter.Search) && !containsFold(u.FullName, filter.Search) {
			continue
		}
		all = append(all, u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	return paginate(all, filter.Page, filter.PageSize), len(all), nil
}

func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if strings.EqualFold(u.Email, user.Email) {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := r.s.now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) CreateAuditLog(_ context.Context, log *models.AuditLog) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if log.ID == "" {
		log.ID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = r.s.now()
	}
	r.s.auditLogs = append(r.s.auditLogs, *log)
	return nil
}

// MemoryBeneficiaryRepository is the in-memory beneficiary store.
type MemoryBeneficiaryRepository struct{ s *MemoryStore }

func (r *MemoryBeneficiaryRepository) Create(_ context.Context, b *models.Beneficiary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	now := r.s.now()
	b.CreatedAt, b.UpdatedAt = now, now
	r.s.beneficiaries[b.ID] = *b
	return nil
}

func (r *MemoryBeneficiaryRepository) Update(_ context.Context, b *models.Beneficiary) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	existing, ok := r.s.beneficiaries[b.ID]
	if !ok {
		return sql.ErrNoRows
	}
	b.CreatedAt = existing.CreatedAt
	b.UpdatedAt = r.s.now()
	r.s.beneficiaries[b.ID] = *b
	return nil
}

func (r *MemoryBeneficiaryRepository) FindByID(_ context.Context, id string) (*models.Beneficiary, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.beneficiaries[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &b, nil
}

func (r *MemoryBeneficiaryRepository) List(_ context.Context, filter models.BeneficiaryFilter) ([]models.Beneficiary, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var all []models.Beneficiary
	for _, b := range r.s.beneficiaries {
		if filter.Search != "" && !containsFold(b.Name, filter.Search) {
			continue
		}
		all = append(all, b)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return paginate(all, filter.Page, filter.PageSize), len(all), nil
}

// MemoryCaseRepository is the in-memory case and disbursement store.
type MemoryCaseRepository struct{ s *MemoryStore }

func (r *MemoryCaseRepository) Create(_ context.Context, c *models.AssistanceCase) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	now := r.s.now()
	c.Status = models.CaseStatusPending
	c.DisbursedAmount = decimal.Zero
	c.ApprovedAmount = decimal.NullDecimal{}
	c.CreatedAt, c.UpdatedAt = now, now
	r.s.cases[c.ID] = *c
	return nil
}

func (r *MemoryCaseRepository) FindByID(_ context.Context, id string) (*models.AssistanceCase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	c, ok := r.s.cases[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &c, nil
}

func (r *MemoryCaseRepository) List(_ context.Context, filter models.CaseFilter) ([]models.AssistanceCase, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var all []models.AssistanceCase
	for _, c := range r.s.cases {
		if filter.Status != nil && c.Status != *filter.Status {
			continue
		}
		if filter.CaseType != nil && c.CaseType != *filter.CaseType {
			continue
		}
		if filter.BeneficiaryID != "" && c.BeneficiaryID != filter.BeneficiaryID {
			continue
		}
		if filter.Search != "" && !containsFold(c.Title, filter.Search) {
			continue
		}
		all = append(all, c)
	}
	asc := strings.EqualFold(filter.SortOrder, "ASC")
	sort.Slice(all, func(i, j int) bool {
		if asc {
			return all[i].CreatedAt.Before(all[j].CreatedAt)
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return paginate(all, filter.Page, filter.PageSize), len(all), nil
}

func (r *MemoryCaseRepository) All(_ context.Context) ([]models.AssistanceCase, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]models.AssistanceCase, 0, len(r.s.cases))
	for _, c := range r.s.cases {
		all = append(all, c)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return all, nil
}

// update applies mutate to the case when guard accepts its current state. A rejected guard
// reports sql.ErrNoRows, mirroring a conditional UPDATE that matched nothing.
func (r *MemoryCaseRepository) update(id string, guard func(models.AssistanceCase) bool, mutate func(*models.AssistanceCase)) (*models.AssistanceCase, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cases[id]
	if !ok || !guard(c) {
		return nil, sql.ErrNoRows
	}
	mutate(&c)
	r.s.cases[id] = c
	return &c, nil
}

func (r *MemoryCaseRepository) Approve(_ context.Context, id string, amount decimal.Decimal, approverID *string, at time.Time) (*models.AssistanceCase, error) {
	return r.update(id,
		func(c models.AssistanceCase) bool { return c.Status == models.CaseStatusPending },
		func(c *models.AssistanceCase) {
			c.Status = models.CaseStatusApproved
			c.ApprovedAmount = decimal.NewNullDecimal(amount)
			c.ApprovedBy = approverID
			c.ApprovedAt = &at
			c.UpdatedAt = at
		})
}

func (r *MemoryCaseRepository) Reject(_ context.Context, id, reason string, at time.Time) (*models.AssistanceCase, error) {
	return r.update(id,
		func(c models.AssistanceCase) bool { return c.Status == models.CaseStatusPending },
		func(c *models.AssistanceCase) {
			c.Status = models.CaseStatusRejected
			c.RejectionReason = &reason
			c.UpdatedAt = at
		})
}

func (r *MemoryCaseRepository) Complete(_ context.Context, id string, at time.Time) (*models.AssistanceCase, error) {
	return r.update(id,
		func(c models.AssistanceCase) bool {
			return c.Status == models.CaseStatusApproved && c.FullyDisbursed()
		},
		func(c *models.AssistanceCase) {
			c.Status = models.CaseStatusCompleted
			c.UpdatedAt = at
		})
}

func (r *MemoryCaseRepository) RecordDisbursement(_ context.Context, d *models.Disbursement) (*models.AssistanceCase, bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	c, ok := r.s.cases[d.CaseID]
	if !ok {
		return nil, false, sql.ErrNoRows
	}
	if err := c.CheckDisbursement(d.Amount); err != nil {
		return nil, false, err
	}
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	now := r.s.now()
	d.CreatedAt = now
	if d.DisbursementDate.IsZero() {
		d.DisbursementDate = now.Truncate(24 * time.Hour)
	}
	r.s.disbursements = append(r.s.disbursements, *d)

	c.DisbursedAmount = c.DisbursedAmount.Add(d.Amount)
	c.UpdatedAt = now
	completed := c.FullyDisbursed()
	if completed {
		c.Status = models.CaseStatusCompleted
	}
	r.s.cases[c.ID] = c
	return &c, completed, nil
}

func (r *MemoryCaseRepository) ListDisbursements(_ context.Context, caseID string) ([]models.Disbursement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var items []models.Disbursement
	for _, d := range r.s.disbursements {
		if d.CaseID == caseID {
			items = append(items, d)
		}
	}
	return items, nil
}

// Snapshot copies cases and disbursements under a single read lock.
func (r *MemoryCaseRepository) Snapshot(_ context.Context) ([]models.AssistanceCase, []models.Disbursement, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	cases := make([]models.AssistanceCase, 0, len(r.s.cases))
	for _, c := range r.s.cases {
		cases = append(cases, c)
	}
	sort.Slice(cases, func(i, j int) bool { return cases[i].CreatedAt.Before(cases[j].CreatedAt) })
	return cases, append([]models.Disbursement(nil), r.s.disbursements...), nil
}

// MemoryMemberRepository is the in-memory member store.
type MemoryMemberRepository struct{ s *MemoryStore }

func (r *MemoryMemberRepository) Create(_ context.Context, m *models.Member) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	now := r.s.now()
	m.CreatedAt, m.UpdatedAt = now, now
	if m.JoinedAt.IsZero() {
		m.JoinedAt = now.Truncate(24 * time.Hour)
	}
	r.s.members[m.ID] = *m
	return nil
}

func (r *MemoryMemberRepository) FindByID(_ context.Context, id string) (*models.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	m, ok := r.s.members[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &m, nil
}

func (r *MemoryMemberRepository) List(ctx context.Context, filter models.MemberFilter) ([]models.Member, int, error) {
	all, _ := r.All(ctx)
	filtered := all[:0]
	for _, m := range all {
		if filter.Active != nil && m.Active != *filter.Active {
			continue
		}
		if filter.Search != "" && !containsFold(m.FullName, filter.Search) {
			continue
		}
		filtered = append(filtered, m)
	}
	return paginate(filtered, filter.Page, filter.PageSize), len(filtered), nil
}

func (r *MemoryMemberRepository) All(_ context.Context) ([]models.Member, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	all := make([]models.Member, 0, len(r.s.members))
	for _, m := range r.s.members {
		all = append(all, m)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].FullName < all[j].FullName })
	return all, nil
}

// MemoryPaymentRepository is the in-memory payment store.
type MemoryPaymentRepository struct{ s *MemoryStore }

func (r *MemoryPaymentRepository) FindByID(_ context.Context, id string) (*models.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.payments[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &p, nil
}

func (r *MemoryPaymentRepository) matching(filter models.PaymentFilter) []models.Payment {
	var items []models.Payment
	for _, p := range r.s.payments {
		if filter.MemberID != "" && p.MemberID != filter.MemberID {
			continue
		}
		if filter.Fund != nil && p.Fund != *filter.Fund {
			continue
		}
		if filter.Status != nil && p.Status != *filter.Status {
			continue
		}
		if filter.From != nil && p.Period.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !p.Period.Before(*filter.To) {
			continue
		}
		items = append(items, p)
	}
	return items
}

func (r *MemoryPaymentRepository) List(_ context.Context, filter models.PaymentFilter) ([]models.Payment, int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	items := r.matching(filter)
	sort.Slice(items, func(i, j int) bool {
		if !items[i].Period.Equal(items[j].Period) {
			return items[i].Period.After(items[j].Period)
		}
		if items[i].MemberID != items[j].MemberID {
			return items[i].MemberID < items[j].MemberID
		}
		return items[i].Fund < items[j].Fund
	})
	return paginate(items, filter.Page, filter.PageSize), len(items), nil
}

func (r *MemoryPaymentRepository) InRange(_ context.Context, from, to *time.Time) ([]models.Payment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	items := r.matching(models.PaymentFilter{From: from, To: to})
	sort.Slice(items, func(i, j int) bool { return items[i].Period.Before(items[j].Period) })
	return items, nil
}

func (r *MemoryPaymentRepository) MarkPaid(_ context.Context, id string, paidAt time.Time, method, notes *string) (*models.Payment, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	p, ok := r.s.payments[id]
	if !ok || p.Status != models.PaymentStatusPending {
		return nil, sql.ErrNoRows
	}
	p.Status = models.PaymentStatusPaid
	p.PaidAt = &paidAt
	if method != nil {
		p.PaymentMethod = method
	}
	if notes != nil {
		p.Notes = notes
	}
	p.UpdatedAt = paidAt
	r.s.payments[id] = p
	return &p, nil
}

func (r *MemoryPaymentRepository) CreatePending(_ context.Context, payments []models.Payment) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	type slot struct {
		member string
		fund   models.Fund
		period time.Time
	}
	existing := make(map[slot]struct{}, len(r.s.payments))
	for _, p := range r.s.payments {
		existing[slot{p.MemberID, p.Fund, p.Period}] = struct{}{}
	}
	now := r.s.now()
	created := 0
	for i := range payments {
		p := payments[i]
		key := slot{p.MemberID, p.Fund, p.Period}
		if _, dup := existing[key]; dup {
			continue
		}
		if p.ID == "" {
			p.ID = uuid.NewString()
		}
		p.Status = models.PaymentStatusPending
		p.CreatedAt, p.UpdatedAt = now, now
		r.s.payments[p.ID] = p
		existing[key] = struct{}{}
		created++
	}
	return created, nil
}

// SeedPayment stores a payment as-is. Used by tests and demo bootstrapping.
func (r *MemoryPaymentRepository) SeedPayment(p models.Payment) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	r.s.payments[p.ID] = p
}

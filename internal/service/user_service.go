package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/family-fund-api/internal/dto"
	"github.com/noah-isme/family-fund-api/internal/models"
	"github.com/noah-isme/family-fund-api/internal/repository"
	appErrors "github.com/noah-isme/family-fund-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// UserService handles portal account provisioning.
type UserService struct {
	repo      userRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &UserService{repo: repo, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) ([]models.User, *models.Pagination, error) {
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Internal(err, "failed to list users")
	}
	page, size, _ := models.PageBounds(filter.Page, filter.PageSize)
	return users, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return nil, appErrors.Internal(err, "failed to load user")
	}
	return user, nil
}

// Create provisions an active account. Only a superadmin may create another superadmin.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest, actorID string, actorRole models.UserRole, meta models.AuditMeta) (*models.User, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid create user payload")
	}
	if !req.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown role")
	}
	if req.Role == models.RoleSuperAdmin && actorRole != models.RoleSuperAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a superadmin can create superadmins")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Internal(err, "failed to check email uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Internal(err, "failed to hash password")
	}
	user := &models.User{
		Email:        req.Email,
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Active:       true,
		PasswordHash: string(hash),
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
		}
		return nil, appErrors.Internal(err, "failed to create user")
	}

	payload, _ := json.Marshal(map[string]interface{}{"id": user.ID, "email": user.Email, "role": user.Role})
	entry := &models.AuditLog{
		Action:     models.AuditActionUserCreate,
		Resource:   "users",
		ResourceID: &user.ID,
		NewValues:  payload,
		IPAddress:  meta.IP,
		UserAgent:  meta.UserAgent,
	}
	if actorID != "" {
		entry.UserID = &actorID
	}
	if err := s.repo.CreateAuditLog(ctx, entry); err != nil {
		s.logger.Warn("failed to record user create audit log", zap.Error(err))
	}
	return user, nil
}

// EnsureSuperAdmin creates the bootstrap superadmin unless an account with email exists.
func (s *UserService) EnsureSuperAdmin(ctx context.Context, email, password, fullName string) (*models.User, bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if existing, err := s.repo.FindByEmail(ctx, email); err == nil {
		return existing, false, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, false, appErrors.Internal(err, "failed to look up admin")
	}
	if fullName == "" {
		fullName = "Administrator"
	}
	user, err := s.Create(ctx, dto.CreateUserRequest{
		Email:    email,
		Password: password,
		FullName: fullName,
		Role:     models.RoleSuperAdmin,
	}, "", models.RoleSuperAdmin, models.AuditMeta{IP: "127.0.0.1", UserAgent: "seed-admin"})
	if err != nil {
		return nil, false, err
	}
	return user, true, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fieldops/internal/domain"
	"fieldops/internal/repository"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// UserService personnel directory.
type UserService interface {
	ListUsers(ctx context.Context, req ListUsersRequest) ([]*domain.User, error)
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error)
	UpdateUser(ctx context.Context, req UpdateUserRequest) (*domain.User, error)
	DeleteUser(ctx context.Context, userID string) error
	// VerifyCredentials returns ErrAuth for an unknown username, a wrong
	// password and an inactive account alike.
	VerifyCredentials(ctx context.Context, username, password string) (*domain.User, error)
}

type ListUsersRequest struct {
	UnitID string
	Role   string
	Search string
}

type CreateUserRequest struct {
	FirstName    string             `json:"first_name" validate:"required,max=100"`
	LastName     string             `json:"last_name" validate:"required,max=100"`
	DisplayName  string             `json:"display_name" validate:"max=200"`
	Username     string             `json:"username" validate:"required,username"`
	Password     string             `json:"password" validate:"required,min=6,max=72"`
	Role         string             `json:"role" validate:"required,oneof=superadmin manager worker"`
	UnitID       string             `json:"unit_id" validate:"required"`
	Email        string             `json:"email" validate:"omitempty,email"`
	Phone        string             `json:"phone" validate:"max=30"`
	Gender       string             `json:"gender" validate:"omitempty,oneof=male female other"`
	BirthDate    string             `json:"birth_date" validate:"omitempty,datetime=2006-01-02"`
	Address      string             `json:"address" validate:"max=500"`
	Notes        string             `json:"notes"`
	ProfileImage string             `json:"profile_image" validate:"omitempty,datauri|base64"`
	SocialMedia  domain.SocialMedia `json:"social_media"`
	IsActive     *bool              `json:"is_active"`
}

// UpdateUserRequest nil fields are left unchanged. Clearable fields (email,
// gender, birth_date, profile_image) accept "" and are checked in UpdateUser.
type UpdateUserRequest struct {
	UserID       string              `json:"-"`
	FirstName    *string             `json:"first_name" validate:"omitnil,min=1,max=100"`
	LastName     *string             `json:"last_name" validate:"omitnil,min=1,max=100"`
	DisplayName  *string             `json:"display_name" validate:"omitnil,max=200"`
	Username     *string             `json:"username" validate:"omitnil,username"`
	Password     *string             `json:"password" validate:"omitnil,min=6,max=72"`
	Role         *string             `json:"role" validate:"omitnil,oneof=superadmin manager worker"`
	UnitID       *string             `json:"unit_id" validate:"omitnil,min=1"`
	Email        *string             `json:"email"`
	Phone        *string             `json:"phone" validate:"omitnil,max=30"`
	Gender       *string             `json:"gender"`
	BirthDate    *string             `json:"birth_date"`
	Address      *string             `json:"address" validate:"omitnil,max=500"`
	Notes        *string             `json:"notes"`
	ProfileImage *string             `json:"profile_image"`
	SocialMedia  *domain.SocialMedia `json:"social_media"`
	IsActive     *bool               `json:"is_active"`
}

type userService struct {
	usersRepo repository.UsersRepository
	unitsRepo repository.UnitsRepository
	hasher    PasswordHasher
	dummyHash string
	validate  *validator.Validate
	logger    *zap.Logger
}

func NewUserService(usersRepo repository.UsersRepository, unitsRepo repository.UnitsRepository, hasher PasswordHasher, logger *zap.Logger) UserService {
	dummy, err := hasher.Hash("fieldops-timing-equalizer")
	if err != nil {
		logger.Warn("Failed to prepare dummy password hash", zap.Error(err))
	}
	return &userService{
		usersRepo: usersRepo,
		unitsRepo: unitsRepo,
		hasher:    hasher,
		dummyHash: dummy,
		validate:  newValidator(),
		logger:    logger,
	}
}

func (s *userService) ListUsers(ctx context.Context, req ListUsersRequest) ([]*domain.User, error) {
	users, err := s.usersRepo.ListUsers(ctx, repository.UserFilters{
		UnitID: req.UnitID,
		Role:   req.Role,
		Search: strings.TrimSpace(req.Search),
	})
	if err != nil {
		s.logger.Error("ListUsers failed", zap.Error(err))
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (s *userService) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	u, err := s.usersRepo.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("GetUser failed", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func parseBirthDate(s string) *time.Time {
	if s == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil
	}
	return &t
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)
	req.Username = strings.ToLower(strings.TrimSpace(req.Username))
	req.Email = strings.TrimSpace(req.Email)
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}

	if err := s.checkUnitExists(ctx, req.UnitID); err != nil {
		return nil, err
	}

	user := &domain.User{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		Username:     req.Username,
		Role:         req.Role,
		UnitID:       &req.UnitID,
		Email:        req.Email,
		Phone:        strings.TrimSpace(req.Phone),
		Gender:       req.Gender,
		BirthDate:    parseBirthDate(req.BirthDate),
		Address:      req.Address,
		Notes:        req.Notes,
		ProfileImage: req.ProfileImage,
		SocialMedia:  req.SocialMedia,
		IsActive:     true,
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.checkUnique(ctx, user); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.logger.Error("Password hashing failed", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user.PasswordHash = hash

	id, err := s.usersRepo.CreateUser(ctx, user)
	if err != nil {
		if mapped := mapUserUniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		s.logger.Error("CreateUser failed", zap.String("username", user.Username), zap.Error(err))
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.logger.Info("User created", zap.String("user_id", id), zap.String("role", user.Role))
	return s.GetUser(ctx, id)
}

func (s *userService) UpdateUser(ctx context.Context, req UpdateUserRequest) (*domain.User, error) {
	if err := validateStruct(s.validate, req); err != nil {
		return nil, err
	}
	clearable := []struct {
		name  string
		value *string
		tag   string
	}{
		{"email", req.Email, "omitempty,email"},
		{"gender", req.Gender, "omitempty,oneof=male female other"},
		{"birth_date", req.BirthDate, "omitempty,datetime=2006-01-02"},
		{"profile_image", req.ProfileImage, "omitempty,datauri|base64"},
	}
	for _, c := range clearable {
		if c.value == nil {
			continue
		}
		if err := s.validate.Var(strings.TrimSpace(*c.value), c.tag); err != nil {
			return nil, validationf(c.name + " is invalid")
		}
	}

	user, err := s.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		user.FirstName = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		user.LastName = strings.TrimSpace(*req.LastName)
	}
	if user.FirstName == "" || user.LastName == "" {
		return nil, validationf("first_name and last_name must not be blank")
	}
	if req.DisplayName != nil {
		user.DisplayName = strings.TrimSpace(*req.DisplayName)
	}
	if req.Username != nil {
		user.Username = strings.ToLower(strings.TrimSpace(*req.Username))
	}
	if req.Role != nil {
		user.Role = *req.Role
	}
	if req.UnitID != nil {
		if err := s.checkUnitExists(ctx, *req.UnitID); err != nil {
			return nil, err
		}
		unitID := *req.UnitID
		user.UnitID = &unitID
	}
	if req.Email != nil {
		user.Email = strings.TrimSpace(*req.Email)
	}
	if req.Phone != nil {
		user.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Gender != nil {
		user.Gender = *req.Gender
	}
	if req.BirthDate != nil {
		user.BirthDate = parseBirthDate(*req.BirthDate)
	}
	if req.Address != nil {
		user.Address = *req.Address
	}
	if req.Notes != nil {
		user.Notes = *req.Notes
	}
	if req.ProfileImage != nil {
		user.ProfileImage = *req.ProfileImage
	}
	if req.SocialMedia != nil {
		user.SocialMedia = *req.SocialMedia
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.checkUnique(ctx, user); err != nil {
		return nil, err
	}

	if req.Password != nil {
		hash, err := s.hasher.Hash(*req.Password)
		if err != nil {
			s.logger.Error("Password hashing failed", zap.Error(err))
			return nil, fmt.Errorf("hash password: %w", err)
		}
		user.PasswordHash = hash
	}

	if err := s.usersRepo.UpdateUser(ctx, user); err != nil {
		if mapped := mapUserUniqueViolation(err); mapped != nil {
			return nil, mapped
		}
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		s.logger.Error("UpdateUser failed", zap.String("user_id", user.UserID), zap.Error(err))
		return nil, fmt.Errorf("update user: %w", err)
	}
	return s.GetUser(ctx, user.UserID)
}

func (s *userService) DeleteUser(ctx context.Context, userID string) error {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return err
	}
	if user.Role == domain.RoleSuperAdmin {
		return ErrProtectedRole
	}
	if err := s.usersRepo.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		s.logger.Error("DeleteUser failed", zap.String("user_id", userID), zap.Error(err))
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func (s *userService) VerifyCredentials(ctx context.Context, username, password string) (*domain.User, error) {
	username = strings.ToLower(strings.TrimSpace(username))
	user, err := s.usersRepo.GetUserByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("Credential lookup failed", zap.String("username", username), zap.Error(err))
			return nil, fmt.Errorf("lookup user: %w", err)
		}
		// Spend the same bcrypt work as a real comparison.
		_ = s.hasher.Verify(s.dummyHash, password)
		s.logger.Info("Login rejected", zap.String("username", username))
		return nil, ErrAuth
	}

	if !s.hasher.Verify(user.PasswordHash, password) || !user.IsActive {
		s.logger.Info("Login rejected", zap.String("username", username))
		return nil, ErrAuth
	}
	return user, nil
}

func (s *userService) checkUnitExists(ctx context.Context, unitID string) error {
	if _, err := s.unitsRepo.GetUnit(ctx, unitID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrInvalidUnit
		}
		return fmt.Errorf("get unit: %w", err)
	}
	return nil
}

// checkUnique best-effort pre-check; the unique indexes are authoritative.
func (s *userService) checkUnique(ctx context.Context, user *domain.User) error {
	existing, err := s.usersRepo.GetUserByUsername(ctx, user.Username)
	switch {
	case err == nil && existing.UserID != user.UserID:
		return ErrDuplicateUsername
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("lookup username: %w", err)
	}

	if user.UnitID == nil {
		return nil
	}
	existing, err = s.usersRepo.FindUserByNameInUnit(ctx, user.FirstName, user.LastName, *user.UnitID)
	switch {
	case err == nil && existing.UserID != user.UserID:
		return ErrDuplicateNameInUnit
	case err != nil && !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("lookup name in unit: %w", err)
	}
	return nil
}

func mapUserUniqueViolation(err error) error {
	var uv *repository.UniqueViolationError
	if !errors.As(err, &uv) {
		return nil
	}
	if uv.Constraint == repository.ConstraintPersonInUnit {
		return ErrDuplicateNameInUnit
	}
	return ErrDuplicateUsername
}

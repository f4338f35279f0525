package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/adapters/persistence/repositories"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/pkg/pagination"
	"stockvel-tracker/internal/pkg/password"

	"gorm.io/gorm"
)

// User service errors
var (
	ErrEmailAlreadyExists  = errors.New("email already exists")
	ErrOldPasswordWrong    = errors.New("old password is incorrect")
	ErrCannotDeleteSelf    = errors.New("cannot delete your own account")
	ErrCannotChangeOwnRole = errors.New("cannot change your own role")
	ErrInvalidRole         = errors.New("invalid role")
)

// UserService manages login accounts. Member data lives in MemberService.
type UserService struct {
	userRepo   repositories.UserRepository
	memberRepo repositories.MemberRepository
}

// NewUserService creates a new user service
func NewUserService(
	userRepo repositories.UserRepository,
	memberRepo repositories.MemberRepository,
) *UserService {
	return &UserService{
		userRepo:   userRepo,
		memberRepo: memberRepo,
	}
}

// ListUsersInput represents list users input
type ListUsersInput struct {
	Page   int
	Limit  int
	Role   string
	Search string
	Active *bool
}

// ListUsersOutput represents list users output
type ListUsersOutput struct {
	Users      []*models.UserResponse `json:"users"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

// UpdateUserByAdminInput represents an admin's change to an account
type UpdateUserByAdminInput struct {
	Email    *string `json:"email"`
	Role     *string `json:"role"`
	IsActive *bool   `json:"is_active"`
}

// UpdateProfileInput represents a user's change to their own account
type UpdateProfileInput struct {
	Email *string `json:"email"`
}

// ChangePasswordInput represents change password input
type ChangePasswordInput struct {
	OldPassword string `json:"old_password"`
	NewPassword string `json:"new_password"`
}

// ListUsers lists accounts with pagination
func (s *UserService) ListUsers(ctx context.Context, input *ListUsersInput) (*ListUsersOutput, error) {
	page, limit := pagination.Normalize(input.Page, input.Limit)

	role := strings.ToUpper(input.Role)
	if role != "" && !domain.Role(role).IsValid() {
		return nil, ErrInvalidRole
	}
	filter := repositories.UserFilter{Role: role, Search: strings.TrimSpace(input.Search), Active: input.Active}

	users, total, err := s.userRepo.List(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	out := &ListUsersOutput{
		Users:      make([]*models.UserResponse, len(users)),
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: pagination.Pages(total, limit),
	}
	for i, user := range users {
		out.Users[i] = s.withMember(ctx, user)
	}
	return out, nil
}

// GetUserByID returns an account with its member details
func (s *UserService) GetUserByID(ctx context.Context, id uint) (*models.UserResponse, error) {
	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withMember(ctx, user), nil
}

// UpdateUserByAdmin changes email, role or active flag. Admins cannot change their own role.
func (s *UserService) UpdateUserByAdmin(ctx context.Context, id, adminID uint, input *UpdateUserByAdminInput) (*models.UserResponse, error) {
	if id == adminID && input.Role != nil {
		return nil, ErrCannotChangeOwnRole
	}

	user, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.changeEmail(ctx, user, input.Email); err != nil {
		return nil, err
	}
	if input.Role != nil {
		role := domain.Role(strings.ToUpper(*input.Role))
		if !role.IsValid() {
			return nil, ErrInvalidRole
		}
		user.Role = string(role)
	}
	if input.IsActive != nil {
		user.IsActive = *input.IsActive
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.withMember(ctx, user), nil
}

// DeleteUser soft-deletes a login account. The member record stays.
func (s *UserService) DeleteUser(ctx context.Context, id, adminID uint) error {
	if id == adminID {
		return ErrCannotDeleteSelf
	}
	if _, err := s.get(ctx, id); err != nil {
		return err
	}
	return s.userRepo.Delete(ctx, id)
}

// GetProfile returns the caller's own account
func (s *UserService) GetProfile(ctx context.Context, userID uint) (*models.UserResponse, error) {
	return s.GetUserByID(ctx, userID)
}

// UpdateProfile changes the caller's own login email
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, input *UpdateProfileInput) (*models.UserResponse, error) {
	user, err := s.get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := s.changeEmail(ctx, user, input.Email); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, err
	}
	return s.withMember(ctx, user), nil
}

// ChangePassword replaces the caller's password after checking the old one
func (s *UserService) ChangePassword(ctx context.Context, userID uint, input *ChangePasswordInput) error {
	user, err := s.get(ctx, userID)
	if err != nil {
		return err
	}
	if !password.Verify(input.OldPassword, user.Password) {
		return ErrOldPasswordWrong
	}
	if err := password.Validate(input.NewPassword); err != nil {
		return ErrWeakPassword
	}

	hashed, err := password.Hash(input.NewPassword)
	if err != nil {
		return err
	}
	user.Password = hashed
	if err := s.userRepo.Update(ctx, user); err != nil {
		return err
	}

	log.Printf("✅ Password changed for user: %s", user.Username)
	return nil
}

func (s *UserService) get(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// changeEmail sets a new email when given and not taken by another account
func (s *UserService) changeEmail(ctx context.Context, user *models.User, email *string) error {
	if email == nil || *email == user.Email {
		return nil
	}
	exists, err := s.userRepo.Exists(ctx, repositories.UserByEmail, *email)
	if err != nil {
		return err
	}
	if exists {
		return ErrEmailAlreadyExists
	}
	user.Email = *email
	return nil
}

// withMember builds the user response with the linked member's name and avatar
func (s *UserService) withMember(ctx context.Context, user *models.User) *models.UserResponse {
	member, err := s.memberRepo.GetByID(ctx, user.MemberID)
	if err != nil {
		member = nil
	}
	return user.ToResponse().WithMember(member)
}

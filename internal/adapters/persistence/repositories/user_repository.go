package repositories

import (
	"context"
	"fmt"

	"stockvel-tracker/internal/adapters/persistence/models"

	"gorm.io/gorm"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates the GORM-backed account store
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return r.first(ctx, "id = ?", id)
}

// GetByUsername is case-sensitive; usernames are stored as typed
func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.first(ctx, "username = ?", username)
}

func (r *userRepository) first(ctx context.Context, cond string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(cond, arg).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Save(user).Error
}

// Delete soft deletes the account. Its refresh tokens stay until cleanup.
func (r *userRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, id).Error
}

// List pages through accounts matching the filter, admins first
func (r *userRepository) List(ctx context.Context, filter UserFilter, offset, limit int) ([]*models.User, int64, error) {
	var users []*models.User
	var total int64

	query := r.db.WithContext(ctx).Model(&models.User{})
	if filter.Role != "" {
		query = query.Where("role = ?", filter.Role)
	}
	if filter.Active != nil {
		query = query.Where("is_active = ?", *filter.Active)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("username LIKE ? OR email LIKE ? OR member_no LIKE ?", like, like, like)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("role = 'ADMIN' DESC").
		Order("username").
		Offset(offset).
		Limit(limit).
		Find(&users).Error
	return users, total, err
}

// Exists reports whether any account, soft-deleted ones included, holds value in field
func (r *userRepository) Exists(ctx context.Context, field UserField, value interface{}) (bool, error) {
	switch field {
	case UserByUsername, UserByEmail, UserByMember:
	default:
		return false, fmt.Errorf("unsupported user field %q", field)
	}

	var count int64
	err := r.db.WithContext(ctx).
		Unscoped().
		Model(&models.User{}).
		Where(string(field)+" = ?", value).
		Count(&count).Error
	return count > 0, err
}

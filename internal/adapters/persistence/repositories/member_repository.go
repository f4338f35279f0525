package repositories

import (
	"context"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/core/domain"

	"gorm.io/gorm"
)

// memberRepository implements MemberRepository interface
type memberRepository struct {
	db *gorm.DB
}

// NewMemberRepository creates a new member repository
func NewMemberRepository(db *gorm.DB) MemberRepository {
	return &memberRepository{db: db}
}

// Create creates a new member
func (r *memberRepository) Create(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Create(member).Error
}

// GetByID gets a member by ID
func (r *memberRepository) GetByID(ctx context.Context, id uint) (*models.Member, error) {
	var member models.Member
	if err := r.db.WithContext(ctx).First(&member, id).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// GetByMemberNo gets a member by member number
func (r *memberRepository) GetByMemberNo(ctx context.Context, memberNo string) (*models.Member, error) {
	var member models.Member
	err := r.db.WithContext(ctx).
		Where("member_no = ?", memberNo).
		First(&member).Error
	if err != nil {
		return nil, err
	}
	return &member, nil
}

// List lists members matching the filter with pagination
func (r *memberRepository) List(ctx context.Context, filter MemberFilter, offset, limit int) ([]*models.Member, int64, error) {
	var members []*models.Member
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Member{})
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("member_no LIKE ? OR first_name LIKE ? OR surname LIKE ? OR email LIKE ?",
			like, like, like, like)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("member_no").
		Offset(offset).
		Limit(limit).
		Find(&members).Error
	return members, total, err
}

// ListByStatus lists every member in a membership status
func (r *memberRepository) ListByStatus(ctx context.Context, status domain.MembershipStatus) ([]*models.Member, error) {
	var members []*models.Member
	err := r.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("id").
		Find(&members).Error
	return members, err
}

// ListAll lists every member ordered by ID
func (r *memberRepository) ListAll(ctx context.Context) ([]*models.Member, error) {
	var members []*models.Member
	err := r.db.WithContext(ctx).Order("id").Find(&members).Error
	return members, err
}

// Update updates a member
func (r *memberRepository) Update(ctx context.Context, member *models.Member) error {
	return r.db.WithContext(ctx).Save(member).Error
}

// ExistsByMemberNo checks if a member number is taken
func (r *memberRepository) ExistsByMemberNo(ctx context.Context, memberNo string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("member_no = ?", memberNo).
		Count(&count).Error
	return count > 0, err
}

// ExistsByEmail checks if an email is taken by another member
func (r *memberRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Member{}).
		Where("email = ?", email).
		Count(&count).Error
	return count > 0, err
}

// ResyncRiskLevel updates the stored level and writes the audit row
func (r *memberRepository) ResyncRiskLevel(ctx context.Context, member *models.Member, change *models.RiskLevelChange) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(member).Update("stored_risk_level", member.StoredRiskLevel).Error; err != nil {
			return err
		}
		return tx.Create(change).Error
	})
}

// DeleteCascade removes a member and everything that references it.
// Order: repayments, loans, contributions, notifications, refresh tokens,
// user account, risk audit, member.
func (r *memberRepository) DeleteCascade(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var member models.Member
		if err := tx.First(&member, id).Error; err != nil {
			return err
		}

		loanIDs := tx.Model(&models.Loan{}).Select("id").Where("member_id = ?", id)
		if err := tx.Where("loan_id IN (?)", loanIDs).Delete(&models.Repayment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_id = ?", id).Delete(&models.Loan{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_id = ?", id).Delete(&models.Contribution{}).Error; err != nil {
			return err
		}
		if err := tx.Where("member_id = ?", id).Delete(&models.Notification{}).Error; err != nil {
			return err
		}

		userIDs := tx.Unscoped().Model(&models.User{}).Select("id").Where("member_id = ?", id)
		if err := tx.Where("user_id IN (?)", userIDs).Delete(&models.RefreshToken{}).Error; err != nil {
			return err
		}
		if err := tx.Unscoped().Where("member_id = ?", id).Delete(&models.User{}).Error; err != nil {
			return err
		}

		if err := tx.Where("member_id = ?", id).Delete(&models.RiskLevelChange{}).Error; err != nil {
			return err
		}
		return tx.Delete(&member).Error
	})
}

package repositories

import (
	"context"

	"stockvel-tracker/internal/adapters/persistence/models"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// contributionRepository implements ContributionRepository interface
type contributionRepository struct {
	db *gorm.DB
}

// NewContributionRepository creates a new contribution repository
func NewContributionRepository(db *gorm.DB) ContributionRepository {
	return &contributionRepository{db: db}
}

// CreateIfAbsent inserts the contribution, doing nothing when the member
// already has a row for that period. Reports whether a row was inserted.
func (r *contributionRepository) CreateIfAbsent(ctx context.Context, contribution *models.Contribution) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(contribution)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetByID gets a contribution by ID
func (r *contributionRepository) GetByID(ctx context.Context, id uint) (*models.Contribution, error) {
	var c models.Contribution
	if err := r.db.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

// GetByMemberPeriod gets a member's contribution for one period
func (r *contributionRepository) GetByMemberPeriod(ctx context.Context, memberID uint, period string) (*models.Contribution, error) {
	var c models.Contribution
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND period = ?", memberID, period).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListByMemberYear lists a member's contributions for a year in period order
func (r *contributionRepository) ListByMemberYear(ctx context.Context, memberID uint, year int) ([]*models.Contribution, error) {
	var rows []*models.Contribution
	err := r.db.WithContext(ctx).
		Where("member_id = ? AND year = ?", memberID, year).
		Order("period").
		Find(&rows).Error
	return rows, err
}

// ListByYear lists all contributions for a year, grouped by member
func (r *contributionRepository) ListByYear(ctx context.Context, year int) ([]*models.Contribution, error) {
	var rows []*models.Contribution
	err := r.db.WithContext(ctx).
		Where("year = ?", year).
		Order("member_id, period").
		Find(&rows).Error
	return rows, err
}

// ListByPeriod lists every member's contribution for one period
func (r *contributionRepository) ListByPeriod(ctx context.Context, period string) ([]*models.Contribution, error) {
	var rows []*models.Contribution
	err := r.db.WithContext(ctx).
		Preload("Member").
		Where("period = ?", period).
		Order("member_id").
		Find(&rows).Error
	return rows, err
}

// Update updates a contribution
func (r *contributionRepository) Update(ctx context.Context, contribution *models.Contribution) error {
	return r.db.WithContext(ctx).Save(contribution).Error
}

// SumPaid totals every paid contribution ever recorded
func (r *contributionRepository) SumPaid(ctx context.Context) (decimal.Decimal, error) {
	var row struct {
		Total decimal.NullDecimal
	}
	err := r.db.WithContext(ctx).
		Model(&models.Contribution{}).
		Where("paid = ?", true).
		Select("SUM(amount) AS total").
		Scan(&row).Error
	if err != nil || !row.Total.Valid {
		return decimal.Zero, err
	}
	return row.Total.Decimal, nil
}

package repositories

import (
	"context"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/core/domain"

	"gorm.io/gorm"
)

// loanRepository implements LoanRepository interface
type loanRepository struct {
	db *gorm.DB
}

// NewLoanRepository creates a new loan repository
func NewLoanRepository(db *gorm.DB) LoanRepository {
	return &loanRepository{db: db}
}

// Create creates a new loan
func (r *loanRepository) Create(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// GetByID gets a loan by ID with its member
func (r *loanRepository) GetByID(ctx context.Context, id uint) (*models.Loan, error) {
	var loan models.Loan
	err := r.db.WithContext(ctx).
		Preload("Member").
		First(&loan, id).Error
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

// List lists loans matching the filter, newest first
func (r *loanRepository) List(ctx context.Context, filter LoanFilter, offset, limit int) ([]*models.Loan, int64, error) {
	var loans []*models.Loan
	var total int64

	query := r.db.WithContext(ctx).Model(&models.Loan{})
	if filter.MemberID != nil {
		query = query.Where("member_id = ?", *filter.MemberID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Preload("Member").
		Order("request_date DESC").
		Offset(offset).
		Limit(limit).
		Find(&loans).Error
	return loans, total, err
}

// ListByMember lists a member's loans, newest first
func (r *loanRepository) ListByMember(ctx context.Context, memberID uint) ([]*models.Loan, error) {
	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Where("member_id = ?", memberID).
		Order("request_date DESC").
		Find(&loans).Error
	return loans, err
}

// ListByStatuses lists loans in any of the given statuses
func (r *loanRepository) ListByStatuses(ctx context.Context, statuses ...domain.LoanStatus) ([]*models.Loan, error) {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}

	var loans []*models.Loan
	err := r.db.WithContext(ctx).
		Where("status IN ?", values).
		Order("id").
		Find(&loans).Error
	return loans, err
}

// Update updates a loan
func (r *loanRepository) Update(ctx context.Context, loan *models.Loan) error {
	return r.db.WithContext(ctx).Omit("Member", "Repayments").Save(loan).Error
}

// AddRepayment inserts the repayment and saves the loan's new totals
func (r *loanRepository) AddRepayment(ctx context.Context, loan *models.Loan, repayment *models.Repayment) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(repayment).Error; err != nil {
			return err
		}
		return tx.Model(loan).Updates(map[string]interface{}{
			"amount_repaid": loan.AmountRepaid,
			"status":        loan.Status,
		}).Error
	})
}

// ListRepayments lists a loan's repayments in sequence order
func (r *loanRepository) ListRepayments(ctx context.Context, loanID uint) ([]*models.Repayment, error) {
	var rows []*models.Repayment
	err := r.db.WithContext(ctx).
		Where("loan_id = ?", loanID).
		Order("sequence").
		Find(&rows).Error
	return rows, err
}

package repositories

import (
	"context"
	"time"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/core/domain"

	"github.com/shopspring/decimal"
)

// UserRepository defines user repository interface
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id uint) error
	List(ctx context.Context, filter UserFilter, offset, limit int) ([]*models.User, int64, error)
	Exists(ctx context.Context, field UserField, value interface{}) (bool, error)
}

// UserField names a unique account column
type UserField string

const (
	UserByUsername UserField = "username"
	UserByEmail    UserField = "email"
	UserByMember   UserField = "member_id"
)

// UserFilter narrows an account listing. Zero values match everything.
type UserFilter struct {
	Role   string
	Search string
	Active *bool
}

// RefreshTokenRepository stores hashed refresh tokens, one row per signed-in device
type RefreshTokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	// GetByTokenHash also returns revoked rows so reuse can be detected
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	ListActive(ctx context.Context, userID uint, now time.Time) ([]*models.RefreshToken, error)
	// Rotate stores next and revokes old in one transaction
	Rotate(ctx context.Context, old, next *models.RefreshToken, at time.Time) error
	RevokeByTokenHash(ctx context.Context, tokenHash string, at time.Time) error
	RevokeSession(ctx context.Context, userID, id uint, at time.Time) (bool, error)
	RevokeAllByUserID(ctx context.Context, userID uint, at time.Time) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// MemberFilter narrows a member listing
type MemberFilter struct {
	Search string
	Status string
}

// MemberRepository defines member repository interface
type MemberRepository interface {
	Create(ctx context.Context, member *models.Member) error
	GetByID(ctx context.Context, id uint) (*models.Member, error)
	GetByMemberNo(ctx context.Context, memberNo string) (*models.Member, error)
	List(ctx context.Context, filter MemberFilter, offset, limit int) ([]*models.Member, int64, error)
	ListByStatus(ctx context.Context, status domain.MembershipStatus) ([]*models.Member, error)
	ListAll(ctx context.Context) ([]*models.Member, error)
	Update(ctx context.Context, member *models.Member) error
	ExistsByMemberNo(ctx context.Context, memberNo string) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	// ResyncRiskLevel writes the member's stored level and its audit row atomically
	ResyncRiskLevel(ctx context.Context, member *models.Member, change *models.RiskLevelChange) error
	// DeleteCascade removes the member and every dependent row in one transaction
	DeleteCascade(ctx context.Context, id uint) error
}

// ContributionRepository defines contribution repository interface
type ContributionRepository interface {
	// CreateIfAbsent inserts the row unless (member, period) already exists
	CreateIfAbsent(ctx context.Context, contribution *models.Contribution) (bool, error)
	GetByID(ctx context.Context, id uint) (*models.Contribution, error)
	GetByMemberPeriod(ctx context.Context, memberID uint, period string) (*models.Contribution, error)
	ListByMemberYear(ctx context.Context, memberID uint, year int) ([]*models.Contribution, error)
	ListByYear(ctx context.Context, year int) ([]*models.Contribution, error)
	ListByPeriod(ctx context.Context, period string) ([]*models.Contribution, error)
	Update(ctx context.Context, contribution *models.Contribution) error
	SumPaid(ctx context.Context) (decimal.Decimal, error)
}

// LoanFilter narrows a loan listing
type LoanFilter struct {
	MemberID *uint
	Status   string
}

// LoanRepository defines loan repository interface
type LoanRepository interface {
	Create(ctx context.Context, loan *models.Loan) error
	GetByID(ctx context.Context, id uint) (*models.Loan, error)
	List(ctx context.Context, filter LoanFilter, offset, limit int) ([]*models.Loan, int64, error)
	ListByMember(ctx context.Context, memberID uint) ([]*models.Loan, error)
	ListByStatuses(ctx context.Context, statuses ...domain.LoanStatus) ([]*models.Loan, error)
	Update(ctx context.Context, loan *models.Loan) error
	// AddRepayment stores the repayment and the loan's new totals atomically
	AddRepayment(ctx context.Context, loan *models.Loan, repayment *models.Repayment) error
	ListRepayments(ctx context.Context, loanID uint) ([]*models.Repayment, error)
}

// NotificationRepository defines notification repository interface
type NotificationRepository interface {
	Create(ctx context.Context, notifications ...*models.Notification) error
	ListByMember(ctx context.Context, memberID uint, unreadOnly bool, offset, limit int) ([]*models.Notification, int64, error)
	MarkRead(ctx context.Context, id, memberID uint) error
	MarkAllRead(ctx context.Context, memberID uint) (int64, error)
}

package models

import (
	"fmt"
	"time"

	"stockvel-tracker/internal/core/domain"

	"github.com/shopspring/decimal"
)

// ============================================================
// Members
// ============================================================

// Member represents members table
type Member struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	MemberNo        string    `gorm:"uniqueIndex;size:20;not null" json:"member_no"`
	FirstName       string    `gorm:"size:100;not null" json:"first_name"`
	Surname         string    `gorm:"size:100" json:"surname"`
	Email           string    `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Phone           string    `gorm:"size:30" json:"phone"`
	JoinDate        time.Time `gorm:"type:date;not null" json:"join_date"`
	Status          string    `gorm:"size:20;not null;default:'pending';index" json:"status"`
	StoredRiskLevel string    `gorm:"column:stored_risk_level;size:10;not null;default:'low'" json:"stored_risk_level"`
	AvatarURL       string    `gorm:"size:500" json:"avatar_url"`
	AvatarPublicID  string    `gorm:"size:255" json:"-"`
	CreatedAt       time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Member) TableName() string {
	return "members"
}

// ToDomain converts the row into the domain entity
func (m *Member) ToDomain() domain.Member {
	return domain.Member{
		ID:              m.ID,
		MemberNo:        m.MemberNo,
		FirstName:       m.FirstName,
		Surname:         m.Surname,
		Email:           m.Email,
		Phone:           m.Phone,
		JoinDate:        m.JoinDate,
		Status:          domain.MembershipStatus(m.Status),
		StoredRiskLevel: domain.RiskLevel(m.StoredRiskLevel),
		AvatarURL:       m.AvatarURL,
	}
}

// MemberResponse DTO
type MemberResponse struct {
	ID              uint      `json:"id"`
	MemberNo        string    `json:"member_no"`
	FullName        string    `json:"full_name"`
	FirstName       string    `json:"first_name"`
	Surname         string    `json:"surname"`
	Email           string    `json:"email"`
	Phone           string    `json:"phone"`
	JoinDate        time.Time `json:"join_date"`
	Status          string    `json:"status"`
	StoredRiskLevel string    `json:"stored_risk_level"`
	AvatarURL       string    `json:"avatar_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (m *Member) ToResponse() *MemberResponse {
	return &MemberResponse{
		ID:              m.ID,
		MemberNo:        m.MemberNo,
		FullName:        m.ToDomain().FullName(),
		FirstName:       m.FirstName,
		Surname:         m.Surname,
		Email:           m.Email,
		Phone:           m.Phone,
		JoinDate:        m.JoinDate,
		Status:          m.Status,
		StoredRiskLevel: m.StoredRiskLevel,
		AvatarURL:       m.AvatarURL,
		CreatedAt:       m.CreatedAt,
	}
}

// ============================================================
// Contributions
// ============================================================

// Contribution represents contributions table, one row per member per period
type Contribution struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	MemberID      uint            `gorm:"not null;uniqueIndex:idx_contribution_member_period" json:"member_id"`
	Period        string          `gorm:"size:7;not null;uniqueIndex:idx_contribution_member_period" json:"period"`
	Year          int             `gorm:"not null;index" json:"year"`
	Amount        decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"amount"`
	Paid          bool            `gorm:"default:false;index" json:"paid"`
	PaidDate      *time.Time      `json:"paid_date"`
	PaymentMethod string          `gorm:"size:20" json:"payment_method"`
	RecordedBy    *uint           `json:"recorded_by"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Member *Member `gorm:"foreignKey:MemberID" json:"member,omitempty"`
}

func (Contribution) TableName() string {
	return "contributions"
}

// NewContribution builds an unpaid row for a period
func NewContribution(memberID uint, period domain.Period, amount decimal.Decimal) *Contribution {
	return &Contribution{
		MemberID: memberID,
		Period:   period.String(),
		Year:     period.Year,
		Amount:   amount,
	}
}

// ToDomain converts the row into the domain entity
func (c *Contribution) ToDomain() (domain.Contribution, error) {
	period, err := domain.ParsePeriod(c.Period)
	if err != nil {
		return domain.Contribution{}, fmt.Errorf("contribution %d: %w", c.ID, err)
	}
	return domain.Contribution{
		ID:            c.ID,
		MemberID:      c.MemberID,
		Amount:        c.Amount,
		Period:        period,
		Paid:          c.Paid,
		PaidDate:      c.PaidDate,
		PaymentMethod: domain.PaymentMethod(c.PaymentMethod),
	}, nil
}

// ContributionsToDomain converts a slice of rows
func ContributionsToDomain(rows []*Contribution) ([]domain.Contribution, error) {
	out := make([]domain.Contribution, 0, len(rows))
	for _, r := range rows {
		c, err := r.ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// ============================================================
// Loans
// ============================================================

// Loan represents loans table. Totals and installment keep six decimal places
// so that the stored terms match the engine's full-precision result.
type Loan struct {
	ID                 uint            `gorm:"primaryKey" json:"id"`
	MemberID           uint            `gorm:"not null;index" json:"member_id"`
	Principal          decimal.Decimal `gorm:"type:decimal(15,2);not null" json:"principal"`
	InterestRate       decimal.Decimal `gorm:"type:decimal(5,2);not null" json:"interest_rate"`
	TermMonths         int             `gorm:"not null" json:"term_months"`
	TotalRepayment     decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"total_repayment"`
	MonthlyInstallment decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"monthly_installment"`
	Status             string          `gorm:"size:20;not null;default:'pending';index" json:"status"`
	RequestDate        time.Time       `gorm:"not null" json:"request_date"`
	ApprovalDate       *time.Time      `json:"approval_date"`
	ApprovedBy         *uint           `json:"approved_by"`
	DisbursedAt        *time.Time      `json:"disbursed_at"`
	AmountRepaid       decimal.Decimal `gorm:"type:decimal(18,6);not null;default:0" json:"amount_repaid"`
	RejectionReason    string          `gorm:"type:text" json:"rejection_reason"`
	Purpose            string          `gorm:"type:text" json:"purpose"`
	CreatedAt          time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time       `gorm:"autoUpdateTime" json:"updated_at"`

	// Relations
	Member     *Member     `gorm:"foreignKey:MemberID" json:"member,omitempty"`
	Repayments []Repayment `gorm:"foreignKey:LoanID" json:"repayments,omitempty"`
}

func (Loan) TableName() string {
	return "loans"
}

// ToDomain converts the row into the domain entity
func (l *Loan) ToDomain() domain.Loan {
	return domain.Loan{
		ID:                 l.ID,
		MemberID:           l.MemberID,
		Principal:          l.Principal,
		InterestRate:       l.InterestRate,
		TermMonths:         l.TermMonths,
		TotalRepayment:     l.TotalRepayment,
		MonthlyInstallment: l.MonthlyInstallment,
		Status:             domain.LoanStatus(l.Status),
		RequestDate:        l.RequestDate,
		ApprovalDate:       l.ApprovalDate,
		AmountRepaid:       l.AmountRepaid,
		RejectionReason:    l.RejectionReason,
	}
}

// LoansToDomain converts a slice of rows
func LoansToDomain(rows []*Loan) []domain.Loan {
	out := make([]domain.Loan, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToDomain())
	}
	return out
}

// LoanResponse DTO. Money is rounded to cents for display.
type LoanResponse struct {
	ID                 uint       `json:"id"`
	MemberID           uint       `json:"member_id"`
	MemberName         string     `json:"member_name,omitempty"`
	Principal          string     `json:"principal"`
	InterestRate       string     `json:"interest_rate"`
	TermMonths         int        `json:"term_months"`
	TotalRepayment     string     `json:"total_repayment"`
	MonthlyInstallment string     `json:"monthly_installment"`
	AmountRepaid       string     `json:"amount_repaid"`
	Status             string     `json:"status"`
	RequestDate        time.Time  `json:"request_date"`
	ApprovalDate       *time.Time `json:"approval_date"`
	DisbursedAt        *time.Time `json:"disbursed_at"`
	RejectionReason    string     `json:"rejection_reason,omitempty"`
	Purpose            string     `json:"purpose,omitempty"`
}

func (l *Loan) ToResponse() *LoanResponse {
	resp := &LoanResponse{
		ID:                 l.ID,
		MemberID:           l.MemberID,
		Principal:          l.Principal.StringFixed(2),
		InterestRate:       l.InterestRate.String(),
		TermMonths:         l.TermMonths,
		TotalRepayment:     l.TotalRepayment.StringFixed(2),
		MonthlyInstallment: l.MonthlyInstallment.StringFixed(2),
		AmountRepaid:       l.AmountRepaid.StringFixed(2),
		Status:             l.Status,
		RequestDate:        l.RequestDate,
		ApprovalDate:       l.ApprovalDate,
		DisbursedAt:        l.DisbursedAt,
		RejectionReason:    l.RejectionReason,
		Purpose:            l.Purpose,
	}
	if l.Member != nil {
		resp.MemberName = l.Member.ToDomain().FullName()
	}
	return resp
}

// Repayment represents repayments table
type Repayment struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	LoanID        uint            `gorm:"not null;uniqueIndex:idx_repayment_loan_seq" json:"loan_id"`
	Sequence      int             `gorm:"not null;uniqueIndex:idx_repayment_loan_seq" json:"sequence"`
	Amount        decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"amount"`
	PaidDate      time.Time       `gorm:"not null" json:"paid_date"`
	PaymentMethod string          `gorm:"size:20" json:"payment_method"`
	RecordedBy    uint            `json:"recorded_by"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"created_at"`
}

func (Repayment) TableName() string {
	return "repayments"
}

// ToDomain converts the row into the domain entity
func (r *Repayment) ToDomain() domain.Repayment {
	return domain.Repayment{
		ID:       r.ID,
		LoanID:   r.LoanID,
		Amount:   r.Amount,
		PaidDate: r.PaidDate,
		Sequence: r.Sequence,
	}
}

// RepaymentsToDomain converts a slice of rows
func RepaymentsToDomain(rows []*Repayment) []domain.Repayment {
	out := make([]domain.Repayment, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ToDomain())
	}
	return out
}

// ============================================================
// Notifications & Audit
// ============================================================

// Notification types
const (
	NotifyLoanApproved = "LOAN_APPROVED"
	NotifyLoanRejected = "LOAN_REJECTED"
	NotifyLoanRepaid   = "LOAN_REPAID"
	NotifyLoanOverdue  = "LOAN_OVERDUE"
	NotifyPeriodOpened = "PERIOD_OPENED"
	NotifyRiskChanged  = "RISK_CHANGED"
)

// Notification represents notifications table (in-app only)
type Notification struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	MemberID  uint       `gorm:"not null;index" json:"member_id"`
	Type      string     `gorm:"size:30;not null" json:"type"`
	Title     string     `gorm:"size:200;not null" json:"title"`
	Message   string     `gorm:"type:text" json:"message"`
	IsRead    bool       `gorm:"default:false;index" json:"is_read"`
	ReadAt    *time.Time `json:"read_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

// RiskLevelChange records an admin resync of a member's stored risk level
type RiskLevelChange struct {
	ID        uint                `gorm:"primaryKey" json:"id"`
	MemberID  uint                `gorm:"not null;index" json:"member_id"`
	FromLevel string              `gorm:"size:10;not null" json:"from_level"`
	ToLevel   string              `gorm:"size:10;not null" json:"to_level"`
	Factors   []domain.RiskFactor `gorm:"type:text;serializer:json" json:"factors"`
	ChangedBy uint                `gorm:"not null" json:"changed_by"`
	IPAddress string              `gorm:"size:50" json:"ip_address"`
	CreatedAt time.Time           `gorm:"autoCreateTime" json:"created_at"`
}

func (RiskLevelChange) TableName() string {
	return "risk_level_changes"
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role represents user role in the system
type Role string

const (
	RoleMember Role = "MEMBER"
	RoleAdmin  Role = "ADMIN"
)

func (r Role) IsValid() bool {
	return r == RoleMember || r == RoleAdmin
}

// MembershipStatus represents the lifecycle state of a member
type MembershipStatus string

const (
	MembershipPending   MembershipStatus = "pending"
	MembershipActive    MembershipStatus = "active"
	MembershipSuspended MembershipStatus = "suspended"
)

// Valid reports whether s is a known membership status
func (s MembershipStatus) Valid() bool {
	switch s {
	case MembershipPending, MembershipActive, MembershipSuspended:
		return true
	}
	return false
}

// Member represents a stockvel member
type Member struct {
	ID              uint
	MemberNo        string
	FirstName       string
	Surname         string
	Email           string
	Phone           string
	JoinDate        time.Time
	Status          MembershipStatus
	StoredRiskLevel RiskLevel
	AvatarURL       string
}

// FullName returns first name and surname joined
func (m Member) FullName() string {
	if m.Surname == "" {
		return m.FirstName
	}
	return m.FirstName + " " + m.Surname
}

// Contribution is one member's obligation for one period
type Contribution struct {
	ID            uint
	MemberID      uint
	Amount        decimal.Decimal
	Period        Period
	Paid          bool
	PaidDate      *time.Time
	PaymentMethod PaymentMethod
}

// PaymentMethod is descriptive only; no gateway is involved
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentEWallet      PaymentMethod = "ewallet"
	PaymentUnayo        PaymentMethod = "unayo"
	PaymentMoMo         PaymentMethod = "momo"
)

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentBankTransfer, PaymentEWallet, PaymentUnayo, PaymentMoMo:
		return true
	}
	return false
}

// Loan represents a member loan. Rate and derived totals are fixed at request time.
type Loan struct {
	ID                 uint
	MemberID           uint
	Principal          decimal.Decimal
	InterestRate       decimal.Decimal
	TermMonths         int
	TotalRepayment     decimal.Decimal
	MonthlyInstallment decimal.Decimal
	Status             LoanStatus
	RequestDate        time.Time
	ApprovalDate       *time.Time
	AmountRepaid       decimal.Decimal
	RejectionReason    string
}

// Repayment is one payment made against a loan
type Repayment struct {
	ID       uint
	LoanID   uint
	Amount   decimal.Decimal
	PaidDate time.Time
	Sequence int
}

package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/adapters/persistence/repositories"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/engine"
	"stockvel-tracker/internal/pkg/metrics"
	"stockvel-tracker/internal/pkg/pagination"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Loan service errors
var (
	ErrLoanNotRepayable = errors.New("loan is not accepting repayments")
	ErrNotLoanOwner     = errors.New("loan belongs to another member")
)

// LoanService handles the loan lifecycle and repayments
type LoanService struct {
	loanRepo   repositories.LoanRepository
	memberRepo repositories.MemberRepository
	notifier   Notifier
	now        Clock
}

// NewLoanService creates a new loan service
func NewLoanService(
	loanRepo repositories.LoanRepository,
	memberRepo repositories.MemberRepository,
	notifier Notifier,
) *LoanService {
	return &LoanService{
		loanRepo:   loanRepo,
		memberRepo: memberRepo,
		notifier:   notifier,
		now:        defaultClock,
	}
}

// LoanPreview is a quote shown before a member commits to a loan
type LoanPreview struct {
	Terms    engine.LoanTerms     `json:"terms"`
	Schedule []engine.Installment `json:"schedule"`
}

// RequestLoanInput represents a loan request
type RequestLoanInput struct {
	MemberID   uint            `json:"member_id"`
	Principal  decimal.Decimal `json:"principal"`
	TermMonths int             `json:"term_months"`
	Purpose    string          `json:"purpose"`
}

// RecordRepaymentInput represents a repayment. A nil amount pays the next installment.
type RecordRepaymentInput struct {
	Amount        *decimal.Decimal `json:"amount"`
	PaymentMethod string           `json:"payment_method"`
	PaidDate      *time.Time       `json:"paid_date"`
}

// ListLoansInput represents list loans input
type ListLoansInput struct {
	Page     int
	Limit    int
	MemberID *uint
	Status   string
}

// ListLoansOutput represents list loans output
type ListLoansOutput struct {
	Loans      []*models.LoanResponse `json:"loans"`
	Total      int64                  `json:"total"`
	Page       int                    `json:"page"`
	Limit      int                    `json:"limit"`
	TotalPages int                    `json:"total_pages"`
}

// ScheduledInstallment is an installment with its coverage by repayments so far
type ScheduledInstallment struct {
	engine.Installment
	Covered bool `json:"covered"`
}

// LoanSchedule is a loan's repayment plan and progress
type LoanSchedule struct {
	LoanID       uint                     `json:"loan_id"`
	Installments []ScheduledInstallment   `json:"installments"`
	Progress     engine.RepaymentProgress `json:"progress"`
}

// Preview computes terms and a schedule starting next month. Nothing is stored.
func (s *LoanService) Preview(principal decimal.Decimal, termMonths int) (*LoanPreview, error) {
	terms, err := engine.CalculateLoanTerms(principal, termMonths)
	metrics.Observe("calculate_loan_terms", err)
	if err != nil {
		return nil, err
	}

	schedule, err := engine.BuildRepaymentSchedule(terms, firstDueDate(s.now()))
	if err != nil {
		return nil, err
	}
	return &LoanPreview{Terms: terms.Rounded(), Schedule: schedule}, nil
}

// Request files a pending loan for an active member with terms fixed now
func (s *LoanService) Request(ctx context.Context, input *RequestLoanInput) (*models.Loan, error) {
	member, err := s.memberRepo.GetByID(ctx, input.MemberID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	if member.Status != string(domain.MembershipActive) {
		return nil, ErrMemberNotActive
	}

	terms, err := engine.CalculateLoanTerms(input.Principal, input.TermMonths)
	metrics.Observe("calculate_loan_terms", err)
	if err != nil {
		return nil, err
	}

	loan := &models.Loan{
		MemberID:     member.ID,
		Status:       string(domain.LoanPending),
		RequestDate:  s.now(),
		AmountRepaid: decimal.Zero,
		Purpose:      strings.TrimSpace(input.Purpose),
	}
	applyTerms(loan, terms)

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		return nil, err
	}
	loan.Member = member

	log.Printf("✅ Loan requested: #%d member %s principal %s over %d months at %s%%",
		loan.ID, member.MemberNo, loan.Principal.StringFixed(2), loan.TermMonths, loan.InterestRate)
	return loan, nil
}

// Approve approves a pending loan
func (s *LoanService) Approve(ctx context.Context, id, adminID uint) (*models.Loan, error) {
	loan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.transition(loan, domain.LoanApproved); err != nil {
		return nil, err
	}
	loan.ApprovalDate = &now
	loan.ApprovedBy = &adminID
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.notifier.NotifyLoanApproved(ctx, loan)
	return loan, nil
}

// Reject rejects a pending loan with an optional reason
func (s *LoanService) Reject(ctx context.Context, id, adminID uint, reason string) (*models.Loan, error) {
	loan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(loan, domain.LoanRejected); err != nil {
		return nil, err
	}
	loan.RejectionReason = strings.TrimSpace(reason)
	loan.ApprovedBy = &adminID
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.notifier.NotifyLoanRejected(ctx, loan)
	return loan, nil
}

// Activate records disbursement of an approved loan
func (s *LoanService) Activate(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	now := s.now()
	if err := s.transition(loan, domain.LoanActive); err != nil {
		return nil, err
	}
	loan.DisbursedAt = &now
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// MarkOverdue flags an active loan as overdue
func (s *LoanService) MarkOverdue(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.transition(loan, domain.LoanOverdue); err != nil {
		return nil, err
	}
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, err
	}

	s.notifier.NotifyLoanOverdue(ctx, loan)
	return loan, nil
}

// Reinstate returns an overdue loan to active
func (s *LoanService) Reinstate(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.Status != string(domain.LoanOverdue) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidLoanTransition, loan.Status, domain.LoanActive)
	}

	if err := s.transition(loan, domain.LoanActive); err != nil {
		return nil, err
	}
	if err := s.loanRepo.Update(ctx, loan); err != nil {
		return nil, err
	}
	return loan, nil
}

// RecordRepayment applies a payment to an active or overdue loan. The payment
// that brings the repaid amount to the payable total closes the loan.
func (s *LoanService) RecordRepayment(ctx context.Context, id uint, input *RecordRepaymentInput, recordedBy uint) (*models.Loan, *models.Repayment, error) {
	method := domain.PaymentMethod(input.PaymentMethod)
	if !method.Valid() {
		return nil, nil, ErrInvalidPaymentMethod
	}

	loan, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !domain.LoanStatus(loan.Status).OwesPool() {
		return nil, nil, ErrLoanNotRepayable
	}

	rows, err := s.loanRepo.ListRepayments(ctx, loan.ID)
	if err != nil {
		return nil, nil, err
	}
	progress, err := engine.RepaymentProgressFor(loan.ToDomain(), models.RepaymentsToDomain(rows))
	metrics.Observe("repayment_progress", err)
	if err != nil {
		return nil, nil, err
	}

	if !progress.Remaining.IsPositive() {
		return nil, nil, ErrLoanNotRepayable
	}
	amount, err := s.repaymentAmount(loan, progress, input.Amount)
	if err != nil {
		return nil, nil, err
	}

	paidDate := s.now()
	if input.PaidDate != nil {
		paidDate = *input.PaidDate
	}

	repayment := &models.Repayment{
		LoanID:        loan.ID,
		Sequence:      progress.NextSequence,
		Amount:        amount,
		PaidDate:      paidDate,
		PaymentMethod: string(method),
		RecordedBy:    recordedBy,
	}

	loan.AmountRepaid = loan.AmountRepaid.Add(amount)
	closed := loan.AmountRepaid.Equal(engine.PayableTotal(loan.ToDomain()))
	if closed {
		if err := s.transition(loan, domain.LoanRepaid); err != nil {
			return nil, nil, err
		}
	}

	if err := s.loanRepo.AddRepayment(ctx, loan, repayment); err != nil {
		return nil, nil, err
	}

	log.Printf("✅ Repayment #%d on loan #%d: %s (%s)", repayment.Sequence, loan.ID, amount.StringFixed(2), method)
	if closed {
		s.notifier.NotifyLoanRepaid(ctx, loan)
	}
	return loan, repayment, nil
}

// repaymentAmount resolves the amount to apply, defaulting to the next installment
func (s *LoanService) repaymentAmount(loan *models.Loan, progress engine.RepaymentProgress, requested *decimal.Decimal) (decimal.Decimal, error) {
	if requested != nil {
		amount := *requested
		if !amount.IsPositive() || !amount.Equal(amount.Round(engine.CurrencyPlaces)) {
			return decimal.Zero, fmt.Errorf("%w: repayment must be a positive amount in cents", ErrInvalidAmount)
		}
		if amount.GreaterThan(progress.Remaining) {
			return decimal.Zero, fmt.Errorf("%w: %s requested, %s remaining",
				domain.ErrOverpayment, amount.StringFixed(2), progress.Remaining.StringFixed(2))
		}
		return amount, nil
	}

	next := loan.MonthlyInstallment.Round(engine.CurrencyPlaces)
	if next.GreaterThan(progress.Remaining) || progress.NextSequence >= loan.TermMonths {
		next = progress.Remaining
	}
	return next, nil
}

// Schedule returns the loan's installments and how many are covered
func (s *LoanService) Schedule(ctx context.Context, id uint) (*LoanSchedule, error) {
	loan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	progress, err := s.progress(ctx, loan)
	if err != nil {
		return nil, err
	}

	installments, err := engine.BuildRepaymentSchedule(termsOf(loan), firstDueDate(scheduleAnchor(loan)))
	if err != nil {
		return nil, err
	}

	out := make([]ScheduledInstallment, len(installments))
	for i, inst := range installments {
		out[i] = ScheduledInstallment{Installment: inst, Covered: inst.Sequence <= progress.InstallmentsCovered}
	}
	return &LoanSchedule{LoanID: loan.ID, Installments: out, Progress: progress}, nil
}

// Progress returns how far a loan has been repaid
func (s *LoanService) Progress(ctx context.Context, id uint) (*engine.RepaymentProgress, error) {
	loan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	progress, err := s.progress(ctx, loan)
	if err != nil {
		return nil, err
	}
	return &progress, nil
}

func (s *LoanService) progress(ctx context.Context, loan *models.Loan) (engine.RepaymentProgress, error) {
	rows, err := s.loanRepo.ListRepayments(ctx, loan.ID)
	if err != nil {
		return engine.RepaymentProgress{}, err
	}
	progress, err := engine.RepaymentProgressFor(loan.ToDomain(), models.RepaymentsToDomain(rows))
	metrics.Observe("repayment_progress", err)
	return progress, err
}

// Get returns a loan by ID
func (s *LoanService) Get(ctx context.Context, id uint) (*models.Loan, error) {
	loan, err := s.loanRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, err
	}
	return loan, nil
}

// GetForMember returns a loan only if it belongs to the member
func (s *LoanService) GetForMember(ctx context.Context, id, memberID uint) (*models.Loan, error) {
	loan, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan.MemberID != memberID {
		return nil, ErrNotLoanOwner
	}
	return loan, nil
}

// Repayments lists a loan's repayments in sequence order
func (s *LoanService) Repayments(ctx context.Context, id uint) ([]*models.Repayment, error) {
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.loanRepo.ListRepayments(ctx, id)
}

// List lists loans with pagination and filters
func (s *LoanService) List(ctx context.Context, input *ListLoansInput) (*ListLoansOutput, error) {
	if input.Status != "" && !domain.LoanStatus(input.Status).Valid() {
		return nil, domain.ErrInvalidLoanStatus
	}
	page, limit := pagination.Normalize(input.Page, input.Limit)

	filter := repositories.LoanFilter{MemberID: input.MemberID, Status: input.Status}
	loans, total, err := s.loanRepo.List(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.LoanResponse, len(loans))
	for i, l := range loans {
		responses[i] = l.ToResponse()
	}

	return &ListLoansOutput{
		Loans:      responses,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: pagination.Pages(total, limit),
	}, nil
}

// transition moves the loan to next if the status machine allows it
func (s *LoanService) transition(loan *models.Loan, next domain.LoanStatus) error {
	current := domain.LoanStatus(loan.Status)
	if !current.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidLoanTransition, current, next)
	}
	loan.Status = string(next)
	metrics.LoanTransitions.WithLabelValues(string(next)).Inc()
	log.Printf("🔄 Loan #%d: %s -> %s", loan.ID, current, next)
	return nil
}

func applyTerms(loan *models.Loan, terms engine.LoanTerms) {
	loan.Principal = terms.Principal
	loan.InterestRate = terms.InterestRate
	loan.TermMonths = terms.TermMonths
	loan.TotalRepayment = terms.TotalRepayment
	loan.MonthlyInstallment = terms.MonthlyInstallment
}

func termsOf(loan *models.Loan) engine.LoanTerms {
	return engine.LoanTerms{
		Principal:          loan.Principal,
		InterestRate:       loan.InterestRate,
		TermMonths:         loan.TermMonths,
		TotalInterest:      loan.TotalRepayment.Sub(loan.Principal),
		TotalRepayment:     loan.TotalRepayment,
		MonthlyInstallment: loan.MonthlyInstallment,
	}
}

// scheduleAnchor is the date installments count from: disbursement, approval, or request
func scheduleAnchor(loan *models.Loan) time.Time {
	switch {
	case loan.DisbursedAt != nil:
		return *loan.DisbursedAt
	case loan.ApprovalDate != nil:
		return *loan.ApprovalDate
	}
	return loan.RequestDate
}

// firstDueDate is one month after the anchor, at midnight UTC
func firstDueDate(anchor time.Time) time.Time {
	d := anchor.UTC().AddDate(0, 1, 0)
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
}

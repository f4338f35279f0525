package services

import (
	"context"
	"io"
	"sort"
	"strings"
	"time"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/adapters/persistence/repositories"
	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// In-memory repositories. Reads return copies so services must call Update to persist.

var testPolicy = config.StockvelConfig{
	MonthlyContribution: decimal.NewFromInt(500),
	CurrencySymbol:      "E",
	FiscalYearMonths:    12,
}

func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// ---------- members ----------

type fakeMemberRepo struct {
	members map[uint]*models.Member
	nextID  uint
	changes []*models.RiskLevelChange
	deleted []uint
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: map[uint]*models.Member{}, nextID: 1}
}

func (r *fakeMemberRepo) add(no, first string, joined time.Time, status domain.MembershipStatus) *models.Member {
	m := &models.Member{
		MemberNo:        no,
		FirstName:       first,
		Email:           strings.ToLower(no) + "@stockvel.test",
		JoinDate:        joined,
		Status:          string(status),
		StoredRiskLevel: string(domain.RiskLow),
	}
	_ = r.Create(context.Background(), m)
	return m
}

func (r *fakeMemberRepo) Create(_ context.Context, m *models.Member) error {
	m.ID = r.nextID
	r.nextID++
	c := *m
	r.members[m.ID] = &c
	return nil
}

func (r *fakeMemberRepo) GetByID(_ context.Context, id uint) (*models.Member, error) {
	m, ok := r.members[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *m
	return &c, nil
}

func (r *fakeMemberRepo) GetByMemberNo(_ context.Context, no string) (*models.Member, error) {
	for _, m := range r.members {
		if m.MemberNo == no {
			c := *m
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMemberRepo) sorted() []*models.Member {
	out := make([]*models.Member, 0, len(r.members))
	for _, m := range r.members {
		c := *m
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeMemberRepo) List(_ context.Context, f repositories.MemberFilter, offset, limit int) ([]*models.Member, int64, error) {
	var out []*models.Member
	for _, m := range r.sorted() {
		if f.Status != "" && m.Status != f.Status {
			continue
		}
		if f.Search != "" && !strings.Contains(strings.ToLower(m.FirstName+" "+m.Surname+" "+m.MemberNo), strings.ToLower(f.Search)) {
			continue
		}
		out = append(out, m)
	}
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *fakeMemberRepo) ListByStatus(_ context.Context, status domain.MembershipStatus) ([]*models.Member, error) {
	var out []*models.Member
	for _, m := range r.sorted() {
		if m.Status == string(status) {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *fakeMemberRepo) ListAll(context.Context) ([]*models.Member, error) {
	return r.sorted(), nil
}

func (r *fakeMemberRepo) Update(_ context.Context, m *models.Member) error {
	c := *m
	r.members[m.ID] = &c
	return nil
}

func (r *fakeMemberRepo) ExistsByMemberNo(ctx context.Context, no string) (bool, error) {
	_, err := r.GetByMemberNo(ctx, no)
	return err == nil, nil
}

func (r *fakeMemberRepo) ExistsByEmail(_ context.Context, email string) (bool, error) {
	for _, m := range r.members {
		if m.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (r *fakeMemberRepo) ResyncRiskLevel(_ context.Context, m *models.Member, change *models.RiskLevelChange) error {
	c := *m
	r.members[m.ID] = &c
	r.changes = append(r.changes, change)
	return nil
}

func (r *fakeMemberRepo) DeleteCascade(_ context.Context, id uint) error {
	delete(r.members, id)
	r.deleted = append(r.deleted, id)
	return nil
}

// ---------- contributions ----------

type fakeContributionRepo struct {
	rows   []*models.Contribution
	nextID uint
}

func newFakeContributionRepo() *fakeContributionRepo {
	return &fakeContributionRepo{nextID: 1}
}

func (r *fakeContributionRepo) find(memberID uint, period string) *models.Contribution {
	for _, c := range r.rows {
		if c.MemberID == memberID && c.Period == period {
			return c
		}
	}
	return nil
}

// paidYear seeds paid rows for the first paid months of year
func (r *fakeContributionRepo) paidYear(memberID uint, year, paid int, amount decimal.Decimal) {
	for i, p := range domain.PeriodsInYear(year) {
		c := models.NewContribution(memberID, p, amount)
		if i < paid {
			d := p.Start().AddDate(0, 0, 4)
			c.Paid = true
			c.PaidDate = &d
			c.PaymentMethod = string(domain.PaymentBankTransfer)
		}
		_, _ = r.CreateIfAbsent(context.Background(), c)
	}
}

func (r *fakeContributionRepo) CreateIfAbsent(_ context.Context, c *models.Contribution) (bool, error) {
	if r.find(c.MemberID, c.Period) != nil {
		return false, nil
	}
	c.ID = r.nextID
	r.nextID++
	cp := *c
	r.rows = append(r.rows, &cp)
	return true, nil
}

func (r *fakeContributionRepo) GetByID(_ context.Context, id uint) (*models.Contribution, error) {
	for _, c := range r.rows {
		if c.ID == id {
			cp := *c
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeContributionRepo) GetByMemberPeriod(_ context.Context, memberID uint, period string) (*models.Contribution, error) {
	if c := r.find(memberID, period); c != nil {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeContributionRepo) filter(keep func(*models.Contribution) bool) []*models.Contribution {
	var out []*models.Contribution
	for _, c := range r.rows {
		if keep(c) {
			cp := *c
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Period != out[j].Period {
			return out[i].Period < out[j].Period
		}
		return out[i].MemberID < out[j].MemberID
	})
	return out
}

func (r *fakeContributionRepo) ListByMemberYear(_ context.Context, memberID uint, year int) ([]*models.Contribution, error) {
	return r.filter(func(c *models.Contribution) bool { return c.MemberID == memberID && c.Year == year }), nil
}

func (r *fakeContributionRepo) ListByYear(_ context.Context, year int) ([]*models.Contribution, error) {
	return r.filter(func(c *models.Contribution) bool { return c.Year == year }), nil
}

func (r *fakeContributionRepo) ListByPeriod(_ context.Context, period string) ([]*models.Contribution, error) {
	return r.filter(func(c *models.Contribution) bool { return c.Period == period }), nil
}

func (r *fakeContributionRepo) Update(_ context.Context, c *models.Contribution) error {
	for i, row := range r.rows {
		if row.ID == c.ID {
			cp := *c
			r.rows[i] = &cp
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeContributionRepo) SumPaid(context.Context) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, c := range r.rows {
		if c.Paid {
			total = total.Add(c.Amount)
		}
	}
	return total, nil
}

// ---------- loans ----------

type fakeLoanRepo struct {
	loans      map[uint]*models.Loan
	repayments map[uint][]*models.Repayment
	nextID     uint
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{loans: map[uint]*models.Loan{}, repayments: map[uint][]*models.Repayment{}, nextID: 1}
}

func (r *fakeLoanRepo) Create(_ context.Context, l *models.Loan) error {
	l.ID = r.nextID
	r.nextID++
	c := *l
	r.loans[l.ID] = &c
	return nil
}

func (r *fakeLoanRepo) GetByID(_ context.Context, id uint) (*models.Loan, error) {
	l, ok := r.loans[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	c := *l
	return &c, nil
}

func (r *fakeLoanRepo) sorted(keep func(*models.Loan) bool) []*models.Loan {
	var out []*models.Loan
	for _, l := range r.loans {
		if keep(l) {
			c := *l
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *fakeLoanRepo) List(_ context.Context, f repositories.LoanFilter, offset, limit int) ([]*models.Loan, int64, error) {
	out := r.sorted(func(l *models.Loan) bool {
		return (f.MemberID == nil || l.MemberID == *f.MemberID) && (f.Status == "" || l.Status == f.Status)
	})
	total := int64(len(out))
	if offset >= len(out) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(out) {
		end = len(out)
	}
	return out[offset:end], total, nil
}

func (r *fakeLoanRepo) ListByMember(_ context.Context, memberID uint) ([]*models.Loan, error) {
	return r.sorted(func(l *models.Loan) bool { return l.MemberID == memberID }), nil
}

func (r *fakeLoanRepo) ListByStatuses(_ context.Context, statuses ...domain.LoanStatus) ([]*models.Loan, error) {
	return r.sorted(func(l *models.Loan) bool {
		for _, s := range statuses {
			if l.Status == string(s) {
				return true
			}
		}
		return false
	}), nil
}

func (r *fakeLoanRepo) Update(_ context.Context, l *models.Loan) error {
	c := *l
	c.Member = nil
	r.loans[l.ID] = &c
	return nil
}

func (r *fakeLoanRepo) AddRepayment(_ context.Context, l *models.Loan, rep *models.Repayment) error {
	rep.ID = uint(len(r.repayments[l.ID]) + 1)
	c := *rep
	r.repayments[l.ID] = append(r.repayments[l.ID], &c)
	stored := r.loans[l.ID]
	stored.AmountRepaid = l.AmountRepaid
	stored.Status = l.Status
	return nil
}

func (r *fakeLoanRepo) ListRepayments(_ context.Context, loanID uint) ([]*models.Repayment, error) {
	out := make([]*models.Repayment, 0, len(r.repayments[loanID]))
	for _, rep := range r.repayments[loanID] {
		c := *rep
		out = append(out, &c)
	}
	return out, nil
}

// ---------- notifier and avatars ----------

type notifyEvent struct {
	kind     string
	memberID uint
}

type fakeNotifier struct {
	events []notifyEvent
}

func (n *fakeNotifier) record(kind string, memberID uint) {
	n.events = append(n.events, notifyEvent{kind: kind, memberID: memberID})
}

func (n *fakeNotifier) kinds() []string {
	out := make([]string, len(n.events))
	for i, e := range n.events {
		out[i] = e.kind
	}
	return out
}

func (n *fakeNotifier) NotifyLoanApproved(_ context.Context, l *models.Loan) {
	n.record(models.NotifyLoanApproved, l.MemberID)
}

func (n *fakeNotifier) NotifyLoanRejected(_ context.Context, l *models.Loan) {
	n.record(models.NotifyLoanRejected, l.MemberID)
}

func (n *fakeNotifier) NotifyLoanRepaid(_ context.Context, l *models.Loan) {
	n.record(models.NotifyLoanRepaid, l.MemberID)
}

func (n *fakeNotifier) NotifyLoanOverdue(_ context.Context, l *models.Loan) {
	n.record(models.NotifyLoanOverdue, l.MemberID)
}

func (n *fakeNotifier) NotifyPeriodOpened(_ context.Context, _ domain.Period, rows []*models.Contribution) {
	for _, c := range rows {
		n.record(models.NotifyPeriodOpened, c.MemberID)
	}
}

func (n *fakeNotifier) NotifyRiskChanged(_ context.Context, memberID uint, _, _ domain.RiskLevel) {
	n.record(models.NotifyRiskChanged, memberID)
}

type fakeAvatarStore struct {
	uploads []string
	deleted []string
	err     error
}

func (s *fakeAvatarStore) Upload(_ context.Context, file io.Reader, memberNo string) (string, string, error) {
	if s.err != nil {
		return "", "", s.err
	}
	if _, err := io.ReadAll(file); err != nil {
		return "", "", err
	}
	publicID := "avatars/" + memberNo + "-" + string(rune('a'+len(s.uploads)))
	s.uploads = append(s.uploads, publicID)
	return "https://img.test/" + publicID + ".jpg", publicID, nil
}

func (s *fakeAvatarStore) Delete(_ context.Context, publicID string) error {
	s.deleted = append(s.deleted, publicID)
	return nil
}

package config

import (
	"log"
	"time"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/core/engine"
	"stockvel-tracker/internal/pkg/password"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Seeder handles database seeding
type Seeder struct {
	db  *gorm.DB
	cfg *Config
}

// NewSeeder creates a new seeder instance
func NewSeeder(db *gorm.DB, cfg *Config) *Seeder {
	return &Seeder{db: db, cfg: cfg}
}

// Run executes all seeders
func (s *Seeder) Run() error {
	log.Println("🌱 Running database seeders...")

	if err := s.seedAdminUser(); err != nil {
		log.Printf("⚠️ Admin seeder skipped: %v", err)
	}

	if s.cfg.IsDev() {
		if err := s.seedSampleGroup(); err != nil {
			log.Printf("⚠️ Sample data seeder skipped: %v", err)
		}
	}

	log.Println("✅ Database seeding completed")
	return nil
}

// seedAdminUser seeds the treasurer account and its member record.
// Development only; production admins are created through a secure process.
func (s *Seeder) seedAdminUser() error {
	var count int64
	s.db.Model(&models.User{}).Where("role = ?", string(domain.RoleAdmin)).Count(&count)
	if count > 0 {
		return nil
	}

	hashedPassword, err := password.Hash(getEnv("SEED_ADMIN_PASSWORD", "admin123456"))
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		member := &models.Member{
			MemberNo:        "ADMIN001",
			FirstName:       "Treasurer",
			Email:           "treasurer@stockvel.local",
			JoinDate:        time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
			Status:          string(domain.MembershipActive),
			StoredRiskLevel: string(domain.RiskLow),
		}
		if err := tx.Create(member).Error; err != nil {
			return err
		}

		admin := &models.User{
			MemberID: member.ID,
			MemberNo: member.MemberNo,
			Username: "admin",
			Email:    member.Email,
			Password: hashedPassword,
			Role:     string(domain.RoleAdmin),
			IsActive: true,
		}
		if err := tx.Create(admin).Error; err != nil {
			return err
		}

		log.Printf("✅ Admin user created: %s", admin.Username)
		return nil
	})
}

type sampleMember struct {
	no, first, surname, email, phone string
	joined                           time.Time
	risk                             domain.RiskLevel
}

var sampleMembers = []sampleMember{
	{"SV001", "Andile", "Gwebu", "andile.gwebu@email.com", "+268 7612 3456", time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), domain.RiskLow},
	{"SV002", "Junior", "Masuku", "junior.masuku@email.com", "+268 7623 4567", time.Date(2023, 2, 20, 0, 0, 0, 0, time.UTC), domain.RiskLow},
	{"SV003", "Munashe", "Matsanura", "munashe.m@email.com", "+268 7634 5678", time.Date(2023, 3, 10, 0, 0, 0, 0, time.UTC), domain.RiskMedium},
	{"SV004", "Mr", "Matsebula", "matsebula@email.com", "+268 7645 6789", time.Date(2023, 1, 5, 0, 0, 0, 0, time.UTC), domain.RiskLow},
}

// seedSampleGroup seeds four members with a 2024 contribution history and a few loans
func (s *Seeder) seedSampleGroup() error {
	var count int64
	s.db.Model(&models.Member{}).Where("member_no LIKE ?", "SV%").Count(&count)
	if count > 0 {
		return nil
	}

	monthly := s.cfg.Stockvel.MonthlyContribution

	return s.db.Transaction(func(tx *gorm.DB) error {
		ids := make(map[string]uint, len(sampleMembers))
		for _, sm := range sampleMembers {
			m := &models.Member{
				MemberNo:        sm.no,
				FirstName:       sm.first,
				Surname:         sm.surname,
				Email:           sm.email,
				Phone:           sm.phone,
				JoinDate:        sm.joined,
				Status:          string(domain.MembershipActive),
				StoredRiskLevel: string(sm.risk),
			}
			if err := tx.Create(m).Error; err != nil {
				return err
			}
			ids[sm.no] = m.ID

			// January to November paid, December still open
			for i, p := range domain.PeriodsInYear(2024) {
				c := models.NewContribution(m.ID, p, monthly)
				if i < 11 {
					day := 5
					if sm.risk == domain.RiskMedium && i%3 == 0 {
						day = 25
					}
					paid := time.Date(p.Year, p.Month, day, 0, 0, 0, 0, time.UTC)
					c.Paid = true
					c.PaidDate = &paid
					c.PaymentMethod = string(domain.PaymentBankTransfer)
				}
				if err := tx.Create(c).Error; err != nil {
					return err
				}
			}
		}

		loans := []struct {
			memberNo  string
			principal int64
			term      int
			status    domain.LoanStatus
			requested time.Time
			paidMonth int
		}{
			{"SV001", 3000, 6, domain.LoanActive, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 3},
			{"SV003", 8000, 12, domain.LoanActive, time.Date(2024, 4, 15, 0, 0, 0, 0, time.UTC), 6},
			{"SV002", 15000, 12, domain.LoanRepaid, time.Date(2023, 6, 1, 0, 0, 0, 0, time.UTC), 12},
			{"SV004", 2000, 6, domain.LoanPending, time.Date(2024, 12, 10, 0, 0, 0, 0, time.UTC), 0},
		}
		for _, sl := range loans {
			if err := seedLoan(tx, ids[sl.memberNo], sl.principal, sl.term, sl.status, sl.requested, sl.paidMonth); err != nil {
				return err
			}
		}

		log.Printf("✅ Sample stockvel seeded: %d members", len(sampleMembers))
		return nil
	})
}

// seedLoan creates a loan with paidMonths scheduled installments already repaid
func seedLoan(tx *gorm.DB, memberID uint, principal int64, term int, status domain.LoanStatus, requested time.Time, paidMonths int) error {
	terms, err := engine.CalculateLoanTerms(decimal.NewFromInt(principal), term)
	if err != nil {
		return err
	}

	loan := &models.Loan{
		MemberID:           memberID,
		Principal:          terms.Principal,
		InterestRate:       terms.InterestRate,
		TermMonths:         terms.TermMonths,
		TotalRepayment:     terms.TotalRepayment,
		MonthlyInstallment: terms.MonthlyInstallment,
		Status:             string(status),
		RequestDate:        requested,
		AmountRepaid:       decimal.Zero,
	}
	if status != domain.LoanPending {
		approved := requested.AddDate(0, 0, 3)
		loan.ApprovalDate = &approved
		loan.DisbursedAt = &approved
	}
	if err := tx.Create(loan).Error; err != nil {
		return err
	}
	if paidMonths == 0 {
		return nil
	}

	schedule, err := engine.BuildRepaymentSchedule(terms, requested.AddDate(0, 1, 0))
	if err != nil {
		return err
	}
	for _, inst := range schedule[:paidMonths] {
		r := &models.Repayment{
			LoanID:        loan.ID,
			Sequence:      inst.Sequence,
			Amount:        inst.Amount,
			PaidDate:      inst.DueDate,
			PaymentMethod: string(domain.PaymentBankTransfer),
		}
		if err := tx.Create(r).Error; err != nil {
			return err
		}
		loan.AmountRepaid = loan.AmountRepaid.Add(inst.Amount)
	}
	return tx.Model(loan).Update("amount_repaid", loan.AmountRepaid).Error
}

package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/adapters/persistence/repositories"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/pkg/pagination"

	"gorm.io/gorm"
)

// Member service errors
var (
	ErrInvalidMemberStatus = errors.New("invalid membership status")
	ErrCannotRemoveSelf    = errors.New("cannot remove your own membership")
)

// MemberService handles member enrollment and administration
type MemberService struct {
	memberRepo repositories.MemberRepository
	avatars    AvatarStore
	now        Clock
}

// NewMemberService creates a new member service
func NewMemberService(memberRepo repositories.MemberRepository, avatars AvatarStore) *MemberService {
	return &MemberService{
		memberRepo: memberRepo,
		avatars:    avatars,
		now:        defaultClock,
	}
}

// EnrollMemberInput represents enrollment input
type EnrollMemberInput struct {
	MemberNo  string     `json:"member_no"`
	FirstName string     `json:"first_name"`
	Surname   string     `json:"surname"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	JoinDate  *time.Time `json:"join_date"`
	Status    string     `json:"status"`
}

// UpdateMemberInput represents a partial member update
type UpdateMemberInput struct {
	FirstName *string `json:"first_name"`
	Surname   *string `json:"surname"`
	Email     *string `json:"email"`
	Phone     *string `json:"phone"`
}

// ListMembersInput represents list members input
type ListMembersInput struct {
	Page   int
	Limit  int
	Search string
	Status string
}

// ListMembersOutput represents list members output
type ListMembersOutput struct {
	Members    []*models.MemberResponse `json:"members"`
	Total      int64                    `json:"total"`
	Page       int                      `json:"page"`
	Limit      int                      `json:"limit"`
	TotalPages int                      `json:"total_pages"`
}

// Enroll registers a new member. Admin enrollments are active unless a status is given.
func (s *MemberService) Enroll(ctx context.Context, input *EnrollMemberInput) (*models.Member, error) {
	memberNo := strings.ToUpper(strings.TrimSpace(input.MemberNo))
	firstName := strings.TrimSpace(input.FirstName)
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if memberNo == "" || firstName == "" || email == "" {
		return nil, fmt.Errorf("%w: member_no, first_name and email are required", domain.ErrInvalidInput)
	}

	status := domain.MembershipActive
	if input.Status != "" {
		status = domain.MembershipStatus(input.Status)
		if !status.Valid() {
			return nil, ErrInvalidMemberStatus
		}
	}

	if exists, err := s.memberRepo.ExistsByMemberNo(ctx, memberNo); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrMemberAlreadyExists
	}
	if exists, err := s.memberRepo.ExistsByEmail(ctx, email); err != nil {
		return nil, err
	} else if exists {
		return nil, domain.ErrMemberAlreadyExists
	}

	joined := s.now()
	if input.JoinDate != nil {
		joined = *input.JoinDate
	}

	member := &models.Member{
		MemberNo:        memberNo,
		FirstName:       firstName,
		Surname:         strings.TrimSpace(input.Surname),
		Email:           email,
		Phone:           strings.TrimSpace(input.Phone),
		JoinDate:        time.Date(joined.Year(), joined.Month(), joined.Day(), 0, 0, 0, 0, time.UTC),
		Status:          string(status),
		StoredRiskLevel: string(domain.RiskLow),
	}
	if err := s.memberRepo.Create(ctx, member); err != nil {
		return nil, err
	}

	log.Printf("✅ Member enrolled: %s (%s)", member.MemberNo, member.ToDomain().FullName())
	return member, nil
}

// Get returns a member by ID
func (s *MemberService) Get(ctx context.Context, id uint) (*models.Member, error) {
	member, err := s.memberRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// GetByMemberNo returns a member by member number
func (s *MemberService) GetByMemberNo(ctx context.Context, memberNo string) (*models.Member, error) {
	member, err := s.memberRepo.GetByMemberNo(ctx, strings.ToUpper(strings.TrimSpace(memberNo)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	return member, nil
}

// List lists members with pagination, search and status filter
func (s *MemberService) List(ctx context.Context, input *ListMembersInput) (*ListMembersOutput, error) {
	if input.Status != "" && !domain.MembershipStatus(input.Status).Valid() {
		return nil, ErrInvalidMemberStatus
	}
	page, limit := pagination.Normalize(input.Page, input.Limit)

	filter := repositories.MemberFilter{Search: strings.TrimSpace(input.Search), Status: input.Status}
	members, total, err := s.memberRepo.List(ctx, filter, (page-1)*limit, limit)
	if err != nil {
		return nil, err
	}

	responses := make([]*models.MemberResponse, len(members))
	for i, m := range members {
		responses[i] = m.ToResponse()
	}

	return &ListMembersOutput{
		Members:    responses,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: pagination.Pages(total, limit),
	}, nil
}

// Update changes a member's contact details
func (s *MemberService) Update(ctx context.Context, id uint, input *UpdateMemberInput) (*models.Member, error) {
	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.FirstName != nil {
		name := strings.TrimSpace(*input.FirstName)
		if name == "" {
			return nil, fmt.Errorf("%w: first_name cannot be empty", domain.ErrInvalidInput)
		}
		member.FirstName = name
	}
	if input.Surname != nil {
		member.Surname = strings.TrimSpace(*input.Surname)
	}
	if input.Phone != nil {
		member.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Email != nil {
		email := strings.ToLower(strings.TrimSpace(*input.Email))
		if email != member.Email {
			exists, err := s.memberRepo.ExistsByEmail(ctx, email)
			if err != nil {
				return nil, err
			}
			if exists {
				return nil, domain.ErrMemberAlreadyExists
			}
			member.Email = email
		}
	}

	if err := s.memberRepo.Update(ctx, member); err != nil {
		return nil, err
	}
	return member, nil
}

// UpdateStatus moves a member between pending, active and suspended
func (s *MemberService) UpdateStatus(ctx context.Context, id uint, status string) (*models.Member, error) {
	next := domain.MembershipStatus(status)
	if !next.Valid() {
		return nil, ErrInvalidMemberStatus
	}

	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if member.Status == string(next) {
		return member, nil
	}

	prev := member.Status
	member.Status = string(next)
	if err := s.memberRepo.Update(ctx, member); err != nil {
		return nil, err
	}

	log.Printf("✅ Member %s status: %s -> %s", member.MemberNo, prev, next)
	return member, nil
}

// Remove deletes a member together with every dependent record
func (s *MemberService) Remove(ctx context.Context, id, actingMemberID uint) error {
	if id == actingMemberID {
		return ErrCannotRemoveSelf
	}

	member, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.memberRepo.DeleteCascade(ctx, id); err != nil {
		return fmt.Errorf("remove member %s: %w", member.MemberNo, err)
	}

	if member.AvatarPublicID != "" {
		if err := s.avatars.Delete(ctx, member.AvatarPublicID); err != nil {
			log.Printf("⚠️ Failed to delete avatar of removed member %s: %v", member.MemberNo, err)
		}
	}

	log.Printf("🗑️ Member removed: %s", member.MemberNo)
	return nil
}

// UploadAvatar stores a new profile image and links it to the member
func (s *MemberService) UploadAvatar(ctx context.Context, id uint, file io.Reader) (*models.Member, error) {
	member, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	url, publicID, err := s.avatars.Upload(ctx, file, member.MemberNo)
	if err != nil {
		return nil, err
	}

	previous := member.AvatarPublicID
	member.AvatarURL = url
	member.AvatarPublicID = publicID
	if err := s.memberRepo.Update(ctx, member); err != nil {
		return nil, err
	}

	if previous != "" && previous != publicID {
		if err := s.avatars.Delete(ctx, previous); err != nil {
			log.Printf("⚠️ Failed to delete old avatar %s: %v", previous, err)
		}
	}
	return member, nil
}

package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/adapters/persistence/repositories"
	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/pkg/jwt"
	"stockvel-tracker/internal/pkg/password"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auth errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrMemberAlreadyUsed  = errors.New("member number already registered")
	ErrWeakPassword       = errors.New("password must be 8 to 72 characters with a letter and a digit")
	ErrInvalidToken       = errors.New("invalid token")
	ErrTokenExpired       = errors.New("token expired")
	ErrTokenRevoked       = errors.New("token revoked")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrSessionNotFound    = errors.New("session not found")
)

// AuthService handles authentication business logic
type AuthService struct {
	userRepo         repositories.UserRepository
	refreshTokenRepo repositories.RefreshTokenRepository
	memberRepo       repositories.MemberRepository
	cfg              *config.Config
	now              Clock
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo repositories.UserRepository,
	refreshTokenRepo repositories.RefreshTokenRepository,
	memberRepo repositories.MemberRepository,
	cfg *config.Config,
) *AuthService {
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		memberRepo:       memberRepo,
		cfg:              cfg,
		now:              defaultClock,
	}
}

// ClientInfo identifies the device a session was issued to
type ClientInfo struct {
	UserAgent string
	IP        string
}

// RegisterInput represents registration input
type RegisterInput struct {
	MemberNo string     `json:"member_no" validate:"required"`
	Username string     `json:"username" validate:"required,min=3,max=50"`
	Email    string     `json:"email" validate:"required,email"`
	Password string     `json:"password" validate:"required,min=8"`
	Client   ClientInfo `json:"-"`
}

// LoginInput represents login input
type LoginInput struct {
	Username string     `json:"username" validate:"required"`
	Password string     `json:"password" validate:"required"`
	Client   ClientInfo `json:"-"`
}

// TokenPair represents access and refresh tokens
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	User         *models.UserResponse `json:"user"`
	AccessToken  string               `json:"access_token"`
	RefreshToken string               `json:"refresh_token"`
}

// Register creates a member-role account for an enrolled member.
// Each member may hold one account.
func (s *AuthService) Register(ctx context.Context, input *RegisterInput) (*AuthResponse, error) {
	member, err := s.memberRepo.GetByMemberNo(ctx, strings.ToUpper(strings.TrimSpace(input.MemberNo)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMemberNotFound
		}
		return nil, err
	}
	if member.Status == string(domain.MembershipSuspended) {
		return nil, ErrMemberNotActive
	}

	if err := password.Validate(input.Password); err != nil {
		return nil, ErrWeakPassword
	}

	exists, err := s.userRepo.Exists(ctx, repositories.UserByMember, member.ID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrMemberAlreadyUsed
	}

	for field, value := range map[repositories.UserField]string{
		repositories.UserByUsername: input.Username,
		repositories.UserByEmail:    input.Email,
	} {
		if exists, err = s.userRepo.Exists(ctx, field, value); err != nil {
			return nil, err
		} else if exists {
			return nil, ErrUserAlreadyExists
		}
	}

	hashedPassword, err := password.Hash(input.Password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		MemberID: member.ID,
		MemberNo: member.MemberNo,
		Username: input.Username,
		Email:    input.Email,
		Password: hashedPassword,
		Role:     string(domain.RoleMember),
		IsActive: true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}

	resp, err := s.issue(ctx, user, member, input.Client)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User registered: %s (MemberNo: %s)", user.Username, user.MemberNo)
	return resp, nil
}

// Login authenticates a user
func (s *AuthService) Login(ctx context.Context, input *LoginInput) (*AuthResponse, error) {
	user, err := s.userRepo.GetByUsername(ctx, input.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}
	if !password.Verify(input.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}
	if password.NeedsRehash(user.Password) {
		s.rehash(ctx, user, input.Password)
	}

	member, _ := s.memberRepo.GetByID(ctx, user.MemberID)
	if member != nil && member.Status == string(domain.MembershipSuspended) && !user.IsAdmin() {
		return nil, ErrMemberNotActive
	}

	resp, err := s.issue(ctx, user, member, input.Client)
	if err != nil {
		return nil, err
	}

	log.Printf("✅ User logged in: %s", user.Username)
	return resp, nil
}

// RefreshToken rotates the refresh token and issues a new access token.
// Presenting an already rotated token ends every session of its user.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string, client ClientInfo) (*AuthResponse, error) {
	claims, err := jwt.ValidateRefreshToken(refreshToken, s.cfg.JWT.RefreshSecret)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrInvalidToken
	}

	now := s.now()
	stored, err := s.refreshTokenRepo.GetByTokenHash(ctx, password.HashToken(refreshToken))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, err
	}
	if stored.IsRevoked() {
		revoked, err := s.refreshTokenRepo.RevokeAllByUserID(ctx, stored.UserID, now)
		if err != nil {
			log.Printf("⚠️ Failed to revoke sessions after token reuse for user %d: %v", stored.UserID, err)
		} else {
			log.Printf("🚨 Refresh token reuse for user %d, %d session(s) revoked", stored.UserID, revoked)
		}
		return nil, ErrTokenRevoked
	}
	if stored.ExpiredAt(now) {
		return nil, ErrTokenExpired
	}

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, err
	}
	next := s.sessionRow(user.ID, tokens.RefreshToken, client)
	if err := s.refreshTokenRepo.Rotate(ctx, stored, next, now); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTokenRevoked
		}
		return nil, err
	}

	member, _ := s.memberRepo.GetByID(ctx, user.MemberID)
	log.Printf("✅ Token refreshed for user: %s", user.Username)
	return &AuthResponse{
		User:         user.ToResponse().WithMember(member),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// Logout revokes the refresh token
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	if err := s.refreshTokenRepo.RevokeByTokenHash(ctx, password.HashToken(refreshToken), s.now()); err != nil {
		return err
	}

	log.Printf("✅ User logged out")
	return nil
}

// LogoutAll revokes every session of a user and reports how many were open
func (s *AuthService) LogoutAll(ctx context.Context, userID uint) (int64, error) {
	revoked, err := s.refreshTokenRepo.RevokeAllByUserID(ctx, userID, s.now())
	if err != nil {
		return 0, err
	}

	log.Printf("✅ %d session(s) revoked for user ID: %d", revoked, userID)
	return revoked, nil
}

// Sessions lists the devices a user is signed in on
func (s *AuthService) Sessions(ctx context.Context, userID uint) ([]*models.SessionResponse, error) {
	tokens, err := s.refreshTokenRepo.ListActive(ctx, userID, s.now())
	if err != nil {
		return nil, err
	}
	sessions := make([]*models.SessionResponse, len(tokens))
	for i, t := range tokens {
		sessions[i] = t.ToSession()
	}
	return sessions, nil
}

// RevokeSession signs one of the user's own devices out
func (s *AuthService) RevokeSession(ctx context.Context, userID, sessionID uint) error {
	ok, err := s.refreshTokenRepo.RevokeSession(ctx, userID, sessionID, s.now())
	if err != nil {
		return err
	}
	if !ok {
		return ErrSessionNotFound
	}
	log.Printf("✅ Session %d revoked for user ID: %d", sessionID, userID)
	return nil
}

// Me returns the signed-in user with member details
func (s *AuthService) Me(ctx context.Context, userID uint) (*models.UserResponse, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	member, _ := s.memberRepo.GetByID(ctx, user.MemberID)
	return user.ToResponse().WithMember(member), nil
}

// CleanupExpiredTokens removes refresh tokens past their expiry
func (s *AuthService) CleanupExpiredTokens(ctx context.Context) (int64, error) {
	return s.refreshTokenRepo.DeleteExpired(ctx, s.now())
}

// issue generates a token pair, stores the refresh hash and builds the response
func (s *AuthService) issue(ctx context.Context, user *models.User, member *models.Member, client ClientInfo) (*AuthResponse, error) {
	tokens, err := s.generateTokens(user)
	if err != nil {
		return nil, err
	}
	if err := s.refreshTokenRepo.Create(ctx, s.sessionRow(user.ID, tokens.RefreshToken, client)); err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:         user.ToResponse().WithMember(member),
		AccessToken:  tokens.AccessToken,
		RefreshToken: tokens.RefreshToken,
	}, nil
}

// generateTokens generates access and refresh tokens
func (s *AuthService) generateTokens(user *models.User) (*TokenPair, error) {
	accessToken, err := jwt.GenerateAccessToken(jwt.Subject{
		UserID:   user.ID,
		MemberID: user.MemberID,
		MemberNo: user.MemberNo,
		Username: user.Username,
		Role:     user.Role,
	}, s.cfg.JWT.Secret, s.cfg.JWT.AccessTokenMins)
	if err != nil {
		return nil, err
	}

	refreshToken, err := jwt.GenerateRefreshToken(
		user.ID,
		uuid.New().String(),
		s.cfg.JWT.RefreshSecret,
		s.cfg.JWT.RefreshTokenDays,
	)
	if err != nil {
		return nil, err
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

// rehash upgrades a stored hash to the current cost. Failures only log.
func (s *AuthService) rehash(ctx context.Context, user *models.User, plain string) {
	hashed, err := password.Hash(plain)
	if err == nil {
		user.Password = hashed
		err = s.userRepo.Update(ctx, user)
	}
	if err != nil {
		log.Printf("⚠️ Failed to upgrade password hash for user %d: %v", user.ID, err)
	}
}

// sessionRow builds the stored form of a refresh token. Only its hash is kept.
func (s *AuthService) sessionRow(userID uint, refreshToken string, client ClientInfo) *models.RefreshToken {
	return &models.RefreshToken{
		UserID:    userID,
		TokenHash: password.HashToken(refreshToken),
		UserAgent: truncate(client.UserAgent, 255),
		IPAddress: truncate(client.IP, 45),
		ExpiresAt: s.now().Add(time.Duration(s.cfg.JWT.RefreshTokenDays) * 24 * time.Hour),
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"stockvel-tracker/internal/adapters/persistence/models"
	"stockvel-tracker/internal/adapters/persistence/repositories"
	"stockvel-tracker/internal/config"
	"stockvel-tracker/internal/core/domain"
	"stockvel-tracker/internal/pkg/jwt"
	"stockvel-tracker/internal/pkg/password"
)

type fakeUserRepo struct {
	users   map[uint]*models.User
	updates int
}

func (r *fakeUserRepo) Create(_ context.Context, u *models.User) error {
	u.ID = uint(len(r.users) + 1)
	c := *u
	r.users[u.ID] = &c
	return nil
}

func (r *fakeUserRepo) GetByID(_ context.Context, id uint) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *fakeUserRepo) find(match func(*models.User) bool) (*models.User, error) {
	for _, u := range r.users {
		if match(u) {
			c := *u
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUserRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Username == username })
}

func (r *fakeUserRepo) Update(_ context.Context, u *models.User) error {
	c := *u
	r.users[u.ID] = &c
	r.updates++
	return nil
}

func (r *fakeUserRepo) Delete(_ context.Context, id uint) error {
	delete(r.users, id)
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, filter repositories.UserFilter, offset, limit int) ([]*models.User, int64, error) {
	var out []*models.User
	for id := uint(1); id <= uint(len(r.users)); id++ {
		u, ok := r.users[id]
		if !ok || (filter.Role != "" && u.Role != filter.Role) || (filter.Active != nil && u.IsActive != *filter.Active) {
			continue
		}
		out = append(out, u)
	}
	return out, int64(len(out)), nil
}

func (r *fakeUserRepo) Exists(_ context.Context, field repositories.UserField, value interface{}) (bool, error) {
	_, err := r.find(func(u *models.User) bool {
		switch field {
		case repositories.UserByUsername:
			return u.Username == value
		case repositories.UserByEmail:
			return u.Email == value
		case repositories.UserByMember:
			return u.MemberID == value
		}
		return false
	})
	return err == nil, nil
}

type fakeRefreshTokenRepo struct {
	tokens []*models.RefreshToken
}

func (r *fakeRefreshTokenRepo) Create(_ context.Context, t *models.RefreshToken) error {
	t.ID = uint(len(r.tokens) + 1)
	r.tokens = append(r.tokens, t)
	return nil
}

func (r *fakeRefreshTokenRepo) GetByTokenHash(_ context.Context, hash string) (*models.RefreshToken, error) {
	for _, t := range r.tokens {
		if t.TokenHash == hash {
			c := *t
			return &c, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeRefreshTokenRepo) ListActive(_ context.Context, userID uint, now time.Time) ([]*models.RefreshToken, error) {
	var out []*models.RefreshToken
	for _, t := range r.tokens {
		if t.UserID == userID && !t.IsRevoked() && !t.ExpiredAt(now) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (r *fakeRefreshTokenRepo) revoke(at time.Time, match func(*models.RefreshToken) bool) int64 {
	var n int64
	for _, t := range r.tokens {
		if match(t) && t.RevokedAt == nil {
			t.RevokedAt = &at
			n++
		}
	}
	return n
}

func (r *fakeRefreshTokenRepo) Rotate(ctx context.Context, old, next *models.RefreshToken, at time.Time) error {
	if err := r.Create(ctx, next); err != nil {
		return err
	}
	if r.revoke(at, func(t *models.RefreshToken) bool { return t.ID == old.ID }) == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *fakeRefreshTokenRepo) RevokeByTokenHash(_ context.Context, hash string, at time.Time) error {
	r.revoke(at, func(t *models.RefreshToken) bool { return t.TokenHash == hash })
	return nil
}

func (r *fakeRefreshTokenRepo) RevokeSession(_ context.Context, userID, id uint, at time.Time) (bool, error) {
	n := r.revoke(at, func(t *models.RefreshToken) bool { return t.ID == id && t.UserID == userID })
	return n > 0, nil
}

func (r *fakeRefreshTokenRepo) RevokeAllByUserID(_ context.Context, userID uint, at time.Time) (int64, error) {
	return r.revoke(at, func(t *models.RefreshToken) bool { return t.UserID == userID }), nil
}

func (r *fakeRefreshTokenRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	kept := r.tokens[:0]
	var removed int64
	for _, t := range r.tokens {
		if t.ExpiresAt.Before(before) {
			removed++
			continue
		}
		kept = append(kept, t)
	}
	r.tokens = kept
	return removed, nil
}

type authFixture struct {
	svc     *AuthService
	users   *fakeUserRepo
	tokens  *fakeRefreshTokenRepo
	members *fakeMemberRepo
	cfg     *config.Config
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		users:   &fakeUserRepo{users: map[uint]*models.User{}},
		tokens:  &fakeRefreshTokenRepo{},
		members: newFakeMemberRepo(),
		cfg: &config.Config{JWT: config.JWTConfig{
			Secret:           "access-secret",
			RefreshSecret:    "refresh-secret",
			AccessTokenMins:  15,
			RefreshTokenDays: 7,
		}},
	}
	f.svc = NewAuthService(f.users, f.tokens, f.members, f.cfg)
	return f
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	m := f.members.add("M001", "Thandi", date(2023, 1, 1), domain.MembershipActive)

	resp, err := f.svc.Register(ctx, &RegisterInput{MemberNo: "m001", Username: "thandi", Email: "thandi@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, string(domain.RoleMember), resp.User.Role)
	assert.Equal(t, m.ID, resp.User.MemberID)
	assert.Equal(t, "Thandi", resp.User.FullName)

	claims, err := jwt.ValidateAccessToken(resp.AccessToken, f.cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, m.ID, claims.MemberID)
	assert.Equal(t, "M001", claims.MemberNo)

	t.Run("one account per member", func(t *testing.T) {
		_, err := f.svc.Register(ctx, &RegisterInput{MemberNo: "M001", Username: "other", Email: "other@example.com", Password: "s3cretpass"})
		assert.ErrorIs(t, err, ErrMemberAlreadyUsed)
	})

	t.Run("unknown member number", func(t *testing.T) {
		_, err := f.svc.Register(ctx, &RegisterInput{MemberNo: "X999", Username: "ghost", Email: "ghost@example.com", Password: "s3cretpass"})
		assert.ErrorIs(t, err, domain.ErrMemberNotFound)
	})

	t.Run("weak password", func(t *testing.T) {
		f.members.add("M002", "Sipho", date(2023, 1, 1), domain.MembershipActive)
		_, err := f.svc.Register(ctx, &RegisterInput{MemberNo: "M002", Username: "sipho", Email: "sipho@example.com", Password: "short"})
		assert.ErrorIs(t, err, ErrWeakPassword)
	})

	t.Run("login", func(t *testing.T) {
		_, err := f.svc.Login(ctx, &LoginInput{Username: "thandi", Password: "wrong-password"})
		assert.ErrorIs(t, err, ErrInvalidCredentials)

		resp, err := f.svc.Login(ctx, &LoginInput{Username: "thandi", Password: "s3cretpass"})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.RefreshToken)
	})

	t.Run("suspended member cannot log in", func(t *testing.T) {
		m.Status = string(domain.MembershipSuspended)
		require.NoError(t, f.members.Update(ctx, m))
		_, err := f.svc.Login(ctx, &LoginInput{Username: "thandi", Password: "s3cretpass"})
		assert.ErrorIs(t, err, ErrMemberNotActive)
	})
}

func TestAuthService_RefreshRotationAndReuse(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.members.add("M001", "Thandi", date(2023, 1, 1), domain.MembershipActive)
	phone := ClientInfo{UserAgent: "okhttp/4.12", IP: "10.0.0.7"}

	first, err := f.svc.Register(ctx, &RegisterInput{MemberNo: "M001", Username: "thandi", Email: "thandi@example.com", Password: "s3cretpass", Client: phone})
	require.NoError(t, err)

	second, err := f.svc.RefreshToken(ctx, first.RefreshToken, phone)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	sessions, err := f.svc.Sessions(ctx, second.User.ID)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "okhttp/4.12", sessions[0].UserAgent)
	assert.Equal(t, "10.0.0.7", sessions[0].IPAddress)

	_, err = f.svc.RefreshToken(ctx, first.RefreshToken, phone)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	sessions, err = f.svc.Sessions(ctx, second.User.ID)
	require.NoError(t, err)
	assert.Empty(t, sessions, "reusing a rotated token ends every session")

	_, err = f.svc.RefreshToken(ctx, second.RefreshToken, phone)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	_, err = f.svc.RefreshToken(ctx, "not-a-token", phone)
	assert.ErrorIs(t, err, ErrInvalidToken)

	removed, err := f.svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Zero(t, removed, "revoked tokens are kept until they expire")

	f.svc.now = fixedClock(time.Now().AddDate(0, 0, f.cfg.JWT.RefreshTokenDays+1))
	removed, err = f.svc.CleanupExpiredTokens(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)
}

func TestAuthService_Sessions(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	f.members.add("M001", "Thandi", date(2023, 1, 1), domain.MembershipActive)

	_, err := f.svc.Register(ctx, &RegisterInput{MemberNo: "M001", Username: "thandi", Email: "thandi@example.com", Password: "s3cretpass"})
	require.NoError(t, err)
	laptop, err := f.svc.Login(ctx, &LoginInput{Username: "thandi", Password: "s3cretpass", Client: ClientInfo{UserAgent: "Firefox"}})
	require.NoError(t, err)
	userID := laptop.User.ID

	sessions, err := f.svc.Sessions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, sessions, 2)

	assert.ErrorIs(t, f.svc.RevokeSession(ctx, userID+1, sessions[0].ID), ErrSessionNotFound)
	require.NoError(t, f.svc.RevokeSession(ctx, userID, sessions[0].ID))
	assert.ErrorIs(t, f.svc.RevokeSession(ctx, userID, sessions[0].ID), ErrSessionNotFound)

	revoked, err := f.svc.LogoutAll(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), revoked)

	_, err = f.svc.RefreshToken(ctx, laptop.RefreshToken, ClientInfo{})
	assert.ErrorIs(t, err, ErrTokenRevoked)
}

func TestAuthService_LoginUpgradesHashCost(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture()
	m := f.members.add("M001", "Thandi", date(2023, 1, 1), domain.MembershipActive)

	old, err := bcrypt.GenerateFromPassword([]byte("s3cretpass"), bcrypt.MinCost)
	require.NoError(t, err)
	require.NoError(t, f.users.Create(ctx, &models.User{
		MemberID: m.ID, MemberNo: m.MemberNo, Username: "thandi", Password: string(old),
		Role: string(domain.RoleMember), IsActive: true,
	}))

	_, err = f.svc.Login(ctx, &LoginInput{Username: "thandi", Password: "s3cretpass"})
	require.NoError(t, err)
	assert.Equal(t, 1, f.users.updates)

	stored, err := f.users.GetByUsername(ctx, "thandi")
	require.NoError(t, err)
	assert.False(t, password.NeedsRehash(stored.Password))
	assert.True(t, password.Verify("s3cretpass", stored.Password))
}

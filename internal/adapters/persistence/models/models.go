package models

import (
	"time"

	"stockvel-tracker/internal/core/domain"

	"gorm.io/gorm"
)

// ============================================================
// Auth & User Tables
// ============================================================

// User represents users table. A user is linked to exactly one member record.
type User struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	MemberID  uint           `gorm:"uniqueIndex;not null" json:"member_id"`
	MemberNo  string         `gorm:"uniqueIndex;size:20;not null" json:"member_no"`
	Username  string         `gorm:"uniqueIndex;size:50;not null" json:"username"`
	Email     string         `gorm:"uniqueIndex;size:100;not null" json:"email"`
	Password  string         `gorm:"size:255;not null" json:"-"`
	Role      string         `gorm:"size:20;default:'MEMBER'" json:"role"`
	IsActive  bool           `gorm:"default:true" json:"is_active"`
	CreatedAt time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "users"
}

// UserResponse DTO
type UserResponse struct {
	ID        uint      `json:"id"`
	MemberID  uint      `json:"member_id"`
	MemberNo  string    `json:"member_no"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	IsActive  bool      `json:"is_active"`
	FullName  string    `json:"full_name,omitempty"`
	AvatarURL string    `json:"avatar_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (u *User) ToResponse() *UserResponse {
	return &UserResponse{
		ID:        u.ID,
		MemberID:  u.MemberID,
		MemberNo:  u.MemberNo,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		IsActive:  u.IsActive,
		CreatedAt: u.CreatedAt,
	}
}

// WithMember fills the member fields of a user response
func (r *UserResponse) WithMember(m *Member) *UserResponse {
	if m != nil {
		r.FullName = m.ToDomain().FullName()
		r.AvatarURL = m.AvatarURL
	}
	return r
}

// RefreshToken represents refresh_tokens table
type RefreshToken struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	TokenHash  string     `gorm:"size:64;not null;uniqueIndex" json:"-"`
	UserAgent  string     `gorm:"size:255" json:"user_agent"`
	IPAddress  string     `gorm:"size:45" json:"ip_address"`
	ExpiresAt  time.Time  `gorm:"not null;index" json:"expires_at"`
	CreatedAt  time.Time  `gorm:"autoCreateTime" json:"created_at"`
	RevokedAt  *time.Time `gorm:"index" json:"revoked_at"`
	ReplacedBy *uint      `json:"-"`
	User       User       `gorm:"foreignKey:UserID" json:"-"`
}

func (RefreshToken) TableName() string {
	return "refresh_tokens"
}

func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

// ExpiredAt reports whether the token is past its expiry at the given instant
func (rt *RefreshToken) ExpiredAt(now time.Time) bool {
	return !now.Before(rt.ExpiresAt)
}

// SessionResponse is one signed-in device as shown to its owner
type SessionResponse struct {
	ID        uint      `json:"id"`
	UserAgent string    `json:"user_agent"`
	IPAddress string    `json:"ip_address"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

func (rt *RefreshToken) ToSession() *SessionResponse {
	return &SessionResponse{
		ID:        rt.ID,
		UserAgent: rt.UserAgent,
		IPAddress: rt.IPAddress,
		CreatedAt: rt.CreatedAt,
		ExpiresAt: rt.ExpiresAt,
	}
}

// ============================================================
// Auto Migration
// ============================================================

// AutoMigrate creates or updates all application tables
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		// Members first: most tables reference it
		&Member{},
		&User{},
		&RefreshToken{},
		// Ledger
		&Contribution{},
		&Loan{},
		&Repayment{},
		// Supporting
		&Notification{},
		&RiskLevelChange{},
	)
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == string(domain.RoleAdmin)
}

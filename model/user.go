package model

import (
	"strings"
	"time"

	"gorm.io/gorm"
)

// User represents a registered learner, instructor or administrator
type User struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Email      string    `gorm:"type:varchar(255);uniqueIndex:idx_user_email;not null" json:"email" validate:"required,email,max=255"`
	Name       string    `gorm:"type:varchar(120);not null" json:"name" validate:"required,max=120"`
	PictureURL *string   `gorm:"type:varchar(500)" json:"picture_url,omitempty" validate:"omitempty,max=500"`
	Role       UserRole  `gorm:"type:varchar(20);not null;index:idx_user_role;check:chk_user_role,role IN ('student','instructor','admin')" json:"role" validate:"enum"`
	IsActive   bool      `gorm:"not null" json:"is_active"`
	IsVerified bool      `gorm:"not null;default:false" json:"is_verified"`
	Phone      *string   `gorm:"type:varchar(20)" json:"phone,omitempty" validate:"omitempty,max=20"`
	Bio        *string   `gorm:"type:text" json:"bio,omitempty"`

	// Relationships
	OAuthAccounts []OAuthAccount `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	OwnedCourses  []Course       `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Enrollments   []Enrollment   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Comments      []Comment      `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Orders        []Order        `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Attendance    []Attendance   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	AuditLogs     []AuditLog     `gorm:"foreignKey:ActorID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeSave normalises the email, applies the default role and validates the row
func (u *User) BeforeSave(tx *gorm.DB) error {
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	if u.Role == "" {
		u.Role = RoleStudent
	}
	return Validate("user", u)
}

// IsAdmin reports whether the user holds the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// CanTeach reports whether the user may author courses and host live rooms
func (u *User) CanTeach() bool {
	return u.Role == RoleInstructor || u.Role == RoleAdmin
}

// OAuthAccount links a User to an external identity provider
type OAuthAccount struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	UserID         uint       `gorm:"not null;index:idx_oauth_user_id" json:"user_id" validate:"required"`
	Provider       string     `gorm:"type:varchar(50);not null;uniqueIndex:uq_provider_account,priority:1" json:"provider" validate:"required,max=50"`
	ProviderUserID string     `gorm:"type:varchar(255);not null;uniqueIndex:uq_provider_account,priority:2" json:"provider_user_id" validate:"required,max=255"`
	AccessToken    *string    `gorm:"type:text" json:"-"` // sealed, see utils/crypto
	RefreshToken   *string    `gorm:"type:text" json:"-"` // sealed
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`

	// Relationships
	User *User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// BeforeSave validates the account row
func (a *OAuthAccount) BeforeSave(tx *gorm.DB) error {
	return Validate("oauth_account", a)
}

// TableName specifies the table name for OAuthAccount
func (OAuthAccount) TableName() string {
	return "oauth_accounts"
}

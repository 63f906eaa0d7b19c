package domain

import "time"

// Roles
const (
	RoleSuperAdmin = "superadmin"
	RoleManager    = "manager"
	RoleWorker     = "worker"
)

// ValidRole reports whether role is one of the closed role set.
func ValidRole(role string) bool {
	switch role {
	case RoleSuperAdmin, RoleManager, RoleWorker:
		return true
	}
	return false
}

// SocialMedia fixed set of profile links.
type SocialMedia struct {
	X         string `json:"x,omitempty" validate:"omitempty,url"`
	Instagram string `json:"instagram,omitempty" validate:"omitempty,url"`
	Facebook  string `json:"facebook,omitempty" validate:"omitempty,url"`
	TikTok    string `json:"tiktok,omitempty" validate:"omitempty,url"`
}

// User personnel record (personnel table).
type User struct {
	UserID       string      `json:"user_id"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	DisplayName  string      `json:"display_name,omitempty"`
	Username     string      `json:"username"`
	PasswordHash string      `json:"-"`
	Role         string      `json:"role"`
	UnitID       *string     `json:"unit_id"`
	Email        string      `json:"email,omitempty"`
	Phone        string      `json:"phone,omitempty"`
	Gender       string      `json:"gender,omitempty"`
	BirthDate    *time.Time  `json:"birth_date,omitempty"`
	Address      string      `json:"address,omitempty"`
	Notes        string      `json:"notes,omitempty"`
	ProfileImage string      `json:"profile_image,omitempty"`
	SocialMedia  SocialMedia `json:"social_media"`
	IsActive     bool        `json:"is_active"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// FullName DisplayName when set, otherwise first and last name joined with a
// space.
func (u *User) FullName() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.FirstName + " " + u.LastName
}

// CanDelegate managers and superadmins may hand jobs over; workers may not.
func (u *User) CanDelegate() bool {
	return u.Role == RoleManager || u.Role == RoleSuperAdmin
}

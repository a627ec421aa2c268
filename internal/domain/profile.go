package domain

import (
	"time"

	"github.com/google/uuid"
)

// Profile is the backend row holding display and role metadata for an
// identity. Rows are created by the backend when an identity signs up.
type Profile struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username     string    `gorm:"size:64" json:"username"`
	Email        string    `gorm:"size:320;index" json:"email"`
	Role         string    `gorm:"size:32" json:"role"`
	AvatarURL    *string   `gorm:"size:1024" json:"avatar_url,omitempty"`
	IsSuperadmin bool      `gorm:"not null;default:false" json:"is_superadmin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (Profile) TableName() string { return "profiles" }

// ToUser maps the row into a User, defaulting an empty username to
// DefaultUsername and a missing role to RoleUser.
func (p *Profile) ToUser() *User {
	if p == nil {
		return nil
	}
	username := p.Username
	if username == "" {
		username = DefaultUsername
	}
	return &User{
		ID:           p.ID,
		Username:     username,
		Email:        p.Email,
		Role:         ParseRole(p.Role),
		AvatarURL:    p.AvatarURL,
		IsSuperadmin: p.IsSuperadmin,
		CreatedAt:    p.CreatedAt,
	}
}

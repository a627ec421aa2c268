package domain

import (
	"time"

	"github.com/google/uuid"
)

const DefaultUsername = "User"

// User is the application's view of a signed-in account, derived from a
// Profile row.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	AvatarURL    *string   `json:"avatar_url,omitempty"`
	IsSuperadmin bool      `json:"is_superadmin"`
	CreatedAt    time.Time `json:"created_at"`
}

func (u *User) CanEditCatalog() bool {
	return u != nil && (u.IsSuperadmin || u.Role.CanEditCatalog())
}

func (u *User) CanManageRoles() bool {
	return u != nil && (u.IsSuperadmin || u.Role.CanManageRoles())
}

// CanGrant reports whether u may assign role to another account.
func (u *User) CanGrant(role Role) bool {
	if !u.CanManageRoles() {
		return false
	}
	if role.Privileged() {
		return u.IsSuperadmin || u.Role == RoleCreator
	}
	return true
}

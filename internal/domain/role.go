package domain

import "strings"

type Role string

const (
	RoleCreator    Role = "creator"
	RoleAdmin      Role = "admin"
	RoleModerator  Role = "moderator"
	RoleTechnician Role = "technician"
	RoleDubber     Role = "dubber"
	RoleVIP        Role = "vip"
	RoleSubscriber Role = "subscriber"
	RoleUser       Role = "user"
)

var knownRoles = map[Role]struct{}{
	RoleCreator:    {},
	RoleAdmin:      {},
	RoleModerator:  {},
	RoleTechnician: {},
	RoleDubber:     {},
	RoleVIP:        {},
	RoleSubscriber: {},
	RoleUser:       {},
}

// ParseRole maps a stored role string to a Role. Empty or unrecognised
// values fall back to RoleUser.
func ParseRole(raw string) Role {
	r := Role(strings.ToLower(strings.TrimSpace(raw)))
	if _, ok := knownRoles[r]; !ok {
		return RoleUser
	}
	return r
}

func (r Role) Valid() bool {
	_, ok := knownRoles[r]
	return ok
}

func (r Role) String() string { return string(r) }

// CanEditCatalog reports whether the role may create, update or delete
// catalog entries.
func (r Role) CanEditCatalog() bool {
	switch r {
	case RoleCreator, RoleAdmin, RoleModerator:
		return true
	default:
		return false
	}
}

// CanManageRoles reports whether the role may change other users' roles.
func (r Role) CanManageRoles() bool {
	return r == RoleCreator || r == RoleAdmin
}

// Privileged roles can only be granted by a creator or a superadmin.
func (r Role) Privileged() bool {
	return r == RoleCreator || r == RoleAdmin
}

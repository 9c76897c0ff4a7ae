package domain

import "strings"

// Role is the closed set of account roles the portal understands
type Role string

const (
	RoleGuest Role = "GUEST"
	RoleHost  Role = "HOST"
	RoleAdmin Role = "ADMIN"
)

// AllRoles contains all valid roles
var AllRoles = []Role{RoleGuest, RoleHost, RoleAdmin}

// ParseRole converts a raw claim or stored value into a Role
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	return r, r.IsValid()
}

// IsValid checks if a role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleGuest, RoleHost, RoleAdmin:
		return true
	}
	return false
}

// String returns the string representation of the role
func (r Role) String() string {
	return string(r)
}

// Dashboard returns the landing route for the role
func (r Role) Dashboard() string {
	switch r {
	case RoleGuest:
		return "/guest/dashboard"
	case RoleHost:
		return "/host/dashboard"
	case RoleAdmin:
		return "/admin/dashboard"
	default:
		return "/"
	}
}

// DisplayName returns a user-friendly display name for the role
func (r Role) DisplayName() string {
	switch r {
	case RoleGuest:
		return "Guest"
	case RoleHost:
		return "Host"
	case RoleAdmin:
		return "Admin"
	default:
		return string(r)
	}
}

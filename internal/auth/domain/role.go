package domain

import "strings"

// Role decides which protected area of the dashboard a user may enter.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleClient Role = "client"
	RoleTalent Role = "talent"
)

// Roles lists every role in routing order.
var Roles = []Role{RoleAdmin, RoleClient, RoleTalent}

// ParseRole returns the role named by s, case-insensitively.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	return r, r.Valid()
}

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleClient, RoleTalent:
		return true
	}
	return false
}

// RootPath is the bare area prefix, e.g. "/admin".
func (r Role) RootPath() string {
	return "/" + string(r)
}

// DashboardPath is the landing page inside the role's area.
func (r Role) DashboardPath() string {
	return r.RootPath() + "/dashboard"
}

// RoleForPath returns the role whose area contains path.
func RoleForPath(path string) (Role, bool) {
	for _, r := range Roles {
		root := r.RootPath()
		if path == root || strings.HasPrefix(path, root+"/") {
			return r, true
		}
	}
	return "", false
}

package user

import "time"

// Role is a church staff role.
type Role string

const (
	RoleAdmin     Role = "admin"
	RolePastor    Role = "pastor"
	RoleStaff     Role = "staff"
	RoleFinance   Role = "finance"
	RoleVolunteer Role = "volunteer"
)

// Roles lists every valid role.
var Roles = []Role{RoleAdmin, RolePastor, RoleStaff, RoleFinance, RoleVolunteer}

// ParseRole validates s as a role name.
func ParseRole(s string) (Role, bool) {
	for _, r := range Roles {
		if string(r) == s {
			return r, true
		}
	}
	return "", false
}

// User is a login belonging to exactly one tenant.
type User struct {
	ID           string     `json:"id"`
	TenantID     string     `json:"tenant_id"`
	Email        string     `json:"email"`
	Name         string     `json:"name"`
	Role         Role       `json:"role"`
	PasswordHash string     `json:"-"`
	Disabled     bool       `json:"disabled"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

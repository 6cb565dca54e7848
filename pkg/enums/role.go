package enums

import "fmt"

// Role is the account-level role of a user. It is a closed set: every
// role-dependent rule switches over all three values and denies by default.
type Role string

const (
	RoleStaff  Role = "staff"
	RoleVet    Role = "vet"
	RoleClient Role = "client"
)

var validRoles = []Role{
	RoleStaff,
	RoleVet,
	RoleClient,
}

// String implements fmt.Stringer.
func (r Role) String() string {
	return string(r)
}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRole converts raw input into a Role.
func ParseRole(value string) (Role, error) {
	for _, candidate := range validRoles {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid role %q", value)
}

package models

import "strings"

// Role is the fixed set of account roles.
type Role string

const (
	RoleAdmin   Role = "Admin"
	RoleDoctor  Role = "Doctor"
	RolePatient Role = "Patient"
)

// ParseRole matches s against the known roles, ignoring case.
func ParseRole(s string) (Role, bool) {
	for _, r := range []Role{RoleAdmin, RoleDoctor, RolePatient} {
		if strings.EqualFold(s, string(r)) {
			return r, true
		}
	}
	return "", false
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleDoctor, RolePatient:
		return true
	}
	return false
}

// IsStaff reports whether r may act on other accounts' reports.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleDoctor
}

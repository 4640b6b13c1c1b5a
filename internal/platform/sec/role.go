// Copyright (c) 2026 Trackly. All rights reserved.

package sec

import "fmt"

// # User Roles

// Role represents the authorization level granted to an account.
//
// The set is closed: every boundary that accepts a role string (registration
// input, token decode) must go through [ParseRole] so an unknown value can
// never travel further into the system.
type Role string

const (
	// Full workspace control: manage users, tasks, audit logs, analytics
	RoleAdmin Role = "Admin"

	// Can create and assign tasks within their team
	RoleManager Role = "Manager"

	// Default role for standard registered users
	RoleUser Role = "User"
)

// ParseRole validates a raw role string against the closed enum.
func ParseRole(raw string) (Role, error) {
	switch Role(raw) {
	case RoleAdmin, RoleManager, RoleUser:
		return Role(raw), nil
	}
	return "", fmt.Errorf("sec: unknown role %q", raw)
}

// In reports whether the role is a member of the allowed set.
func (r Role) In(allowed ...Role) bool {
	for _, a := range allowed {
		if r == a {
			return true
		}
	}
	return false
}

// IsValid reports whether the role is one of the closed enum values.
func (r Role) IsValid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

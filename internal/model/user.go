package model

import (
	"errors"
	"strings"
)

// Role is the access level of a user.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

// User represents an account held by the remote user service.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
	Role  Role   `json:"role"`
}

// Validate rejects user payloads with missing identity or an unknown role.
func (u *User) Validate() error {
	var errs []error
	if strings.TrimSpace(u.ID) == "" {
		errs = append(errs, errors.New("user id is required"))
	}
	if !strings.Contains(u.Email, "@") {
		errs = append(errs, errors.New("user email is invalid"))
	}
	if u.Role == "" {
		u.Role = RoleCustomer
	}
	if u.Role != RoleCustomer && u.Role != RoleAdmin {
		errs = append(errs, errors.New("user role must be customer or admin"))
	}
	return errors.Join(errs...)
}

// IsAdmin reports whether the user holds the admin role.
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

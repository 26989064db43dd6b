package model

import (
	"strings"
	"time"
)

// Role gates what a user may see and do.
type Role string

// Roles.
const (
	RoleAdmin    Role = "admin"
	RoleEmployee Role = "employee"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleEmployee
}

// User is a login identity. POC ties an employee to the performance records
// they own.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	Role         Role      `json:"role"`
	Name         string    `json:"name"`
	POC          string    `json:"poc,omitempty"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Public returns a copy safe to hand to API clients.
func (u User) Public() User {
	u.PasswordHash = ""
	return u
}

// BranchAccount is a staff account created by an administrator.
type BranchAccount struct {
	ID           string    `json:"id"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone,omitempty"`
	Department   string    `json:"department"`
	Role         Role      `json:"role"`
	Branch       string    `json:"branch"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"passwordHash,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
	CreatedBy    string    `json:"createdBy,omitempty"`
}

// FullName joins first and last name with a single space.
func (a BranchAccount) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// Public returns a copy safe to hand to API clients.
func (a BranchAccount) Public() BranchAccount {
	a.PasswordHash = ""
	return a
}

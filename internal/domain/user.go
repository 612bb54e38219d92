package domain

import "time"

// Role enumerates the departments an actor can act for.
type Role string

const (
	RoleNT         Role = "nt"
	RoleTI         Role = "ti"
	RoleManagement Role = "management"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleNT, RoleTI, RoleManagement:
		return true
	}
	return false
}

// Actor identifies who performs an operation.
type Actor struct {
	ID   string
	Role Role
}

// User is a portal account backing an Actor.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor returns the identity used by lifecycle operations.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

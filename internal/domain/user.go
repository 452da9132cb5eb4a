package domain

import "time"

// Role enumerates the closed set of platform roles.
type Role string

const (
	RoleClient   Role = "client"
	RoleOperator Role = "operator"
	RoleAdmin    Role = "admin"
)

// Valid reports whether the role is one of the known values.
func (r Role) Valid() bool {
	switch r {
	case RoleClient, RoleOperator, RoleAdmin:
		return true
	}
	return false
}

// CanOperate reports whether the role may work the pending queue.
func (r Role) CanOperate() bool {
	return r == RoleOperator || r == RoleAdmin
}

// User is the domain model for platform accounts.
type User struct {
	ID           string
	Username     string
	Email        string
	FirstName    string
	LastName     string
	Phone        *string
	Role         Role
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity is the client-visible projection of a User. It is issued by
// authentication and replaced wholesale; the client core never mutates it.
type Identity struct {
	ID        string  `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	FirstName string  `json:"first_name"`
	LastName  string  `json:"last_name"`
	Phone     *string `json:"phone,omitempty"`
	Role      Role    `json:"role"`
}

// IdentityOf projects a User into its client-visible identity.
func IdentityOf(u *User) Identity {
	return Identity{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Role:      u.Role,
	}
}

// FullName joins first and last name for display.
func (i Identity) FullName() string {
	if i.FirstName == "" {
		return i.LastName
	}
	if i.LastName == "" {
		return i.FirstName
	}
	return i.FirstName + " " + i.LastName
}

package auth

import (
	"fmt"
	"strings"
	"time"
)

// Role is the authorization role of an account. Every role check switches
// over all values so a new role cannot silently inherit staff rights.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleStaff    Role = "staff"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleCustomer:
		return RoleCustomer, nil
	case RoleStaff:
		return RoleStaff, nil
	default:
		return "", fmt.Errorf("%w %q", ErrUnknownRole, s)
	}
}

func (r Role) IsStaff() bool {
	switch r {
	case RoleStaff:
		return true
	case RoleCustomer:
		return false
	default:
		return false
	}
}

// UserType is the label sent to chat clients on connect.
func (r Role) UserType() string {
	switch r {
	case RoleStaff:
		return "admin"
	case RoleCustomer:
		return "user"
	default:
		return "unknown"
	}
}

type User struct {
	ID           int64     `json:"id" gorm:"primaryKey;autoIncrement"`
	Email        string    `json:"email" gorm:"type:varchar(255);not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"not null"`
	Role         Role      `json:"role" gorm:"type:varchar(16);not null;default:customer;index"`
	FirstName    string    `json:"first_name" gorm:"type:varchar(100)"`
	LastName     string    `json:"last_name" gorm:"type:varchar(100)"`
	Phone        string    `json:"phone,omitempty" gorm:"type:varchar(32)"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

// FullName falls back to the email when no name was given.
func (u *User) FullName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		return u.Email
	}
	return name
}

// Principal is the authenticated caller of a request or connection.
type Principal struct {
	UserID int64
	Role   Role
}

func (p Principal) IsStaff() bool { return p.Role.IsStaff() }

// Models lists the tables owned by this package.
func Models() []any {
	return []any{&User{}}
}

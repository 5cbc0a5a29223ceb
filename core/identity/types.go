package identity

import (
	"errors"
	"time"

	"fusionguard/core/auth"
	"fusionguard/core/rbac"
)

const (
	UsersKey       = "fusionguard_users"
	SeedAdminEmail = "admin@fusionguard.ai"
)

type Role string

const (
	RoleAdmin    Role = "Admin"
	RoleOperator Role = "Operator"
	RoleViewer   Role = "Viewer"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOperator || r == RoleViewer
}

// SessionRole maps a directory role onto a session role.
func (r Role) SessionRole() rbac.Role {
	if r == RoleAdmin {
		return rbac.RoleAdmin
	}
	return rbac.RoleUser
}

type Status string

const (
	StatusActive   Status = "Active"
	StatusInactive Status = "Inactive"
)

func (s Status) Valid() bool {
	return s == StatusActive || s == StatusInactive
}

type Identity struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Role      Role              `json:"role"`
	Status    Status            `json:"status"`
	Password  auth.PasswordHash `json:"password"`
	CreatedAt time.Time         `json:"created_at"`
}

func (i Identity) activeAdmin() bool {
	return i.Role == RoleAdmin && i.Status == StatusActive
}

// View is the record without credential material.
type View struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	Status    Status    `json:"status"`
	Protected bool      `json:"protected"`
	CreatedAt time.Time `json:"created_at"`
}

func (i Identity) View() View {
	return View{
		ID:        i.ID,
		Name:      i.Name,
		Email:     i.Email,
		Role:      i.Role,
		Status:    i.Status,
		Protected: i.Email == SeedAdminEmail,
		CreatedAt: i.CreatedAt,
	}
}

type NewIdentity struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role"`
	Status   Status `json:"status,omitempty"`
}

type Summary struct {
	Total  int `json:"total"`
	Active int `json:"active"`
	Admins int `json:"admins"`
}

var (
	ErrNotFound           = errors.New("identity not found")
	ErrValidation         = errors.New("identity validation failed")
	ErrDuplicateEmail     = errors.New("Email already exists.")
	ErrProtectedIdentity  = errors.New("the seed administrator cannot be removed or deactivated")
	ErrLastAdmin          = errors.New("at least one active administrator must remain")
	ErrInvalidCredentials = errors.New("Access Denied: Invalid parameters.")
	ErrInactiveAccount    = errors.New("Access Denied: Identity is deactivated.")
)

// ValidationError carries the user-facing reason and unwraps to
// ErrValidation.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func (e *ValidationError) Unwrap() error { return ErrValidation }

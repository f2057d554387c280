package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Role is the privilege variant of an identity
type Role int

const (
	RoleGuest          Role = iota // Default for self-registered and guest accounts
	RoleStandard                   // Registered account without elevated privileges
	RoleContentManager             // May write catalog and logger metadata
)

func (r Role) String() string {
	switch r {
	case RoleGuest:
		return "guest"
	case RoleStandard:
		return "standard"
	case RoleContentManager:
		return "contentmanager"
	default:
		return fmt.Sprintf("role(%d)", int(r))
	}
}

// RoleFromFlags decodes the stored is_guest and is_contentmanager flags.
// An identity flagged as both is rejected with ErrInvalidRole.
func RoleFromFlags(isGuest, isContentManager bool) (Role, error) {
	switch {
	case isGuest && isContentManager:
		return 0, ErrInvalidRole
	case isContentManager:
		return RoleContentManager, nil
	case isGuest:
		return RoleGuest, nil
	default:
		return RoleStandard, nil
	}
}

// Flags encodes the role as the stored is_guest and is_contentmanager flags
func (r Role) Flags() (isGuest, isContentManager bool) {
	switch r {
	case RoleGuest:
		return true, false
	case RoleContentManager:
		return false, true
	default:
		return false, false
	}
}

// Cont is the value of the content-manager claim for this role
func (r Role) Cont() int {
	if r == RoleContentManager {
		return 1
	}
	return 0
}

// Identity is a registered or guest user record
type Identity struct {
	ID           int64  `json:"id"`
	Email        string `json:"email"`
	PasswordHash string `json:"-"`
	FirstName    string `json:"firstname"`
	LastName     string `json:"lastname"`
	Institution  string `json:"institution,omitempty"`
	Department   string `json:"department,omitempty"`

	// ProfileRole is the free-text role the user describes themselves with
	ProfileRole string `json:"role,omitempty"`

	Role   Role `json:"-"`
	Active bool `json:"-"`
}

// Claims is the payload of a bearer token
type Claims struct {
	Email string `json:"email"`
	ID    int64  `json:"id"`
	Cont  int    `json:"cont,omitempty"`
	jwt.RegisteredClaims
}

// IsContentManager reports whether the claims carry the content-manager marker
func (c *Claims) IsContentManager() bool {
	return c != nil && c.Cont == 1
}

// RegisterRequest is the body of a signup request
type RegisterRequest struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	FirstName   string `json:"firstname"`
	LastName    string `json:"lastname"`
	Institution string `json:"institution"`
	Department  string `json:"department"`
	Role        string `json:"role"`
}

// LoginRequest is the body of an authenticate request
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	IsGuest  bool   `json:"isGuest"`
}

// ChangePasswordRequest is the body of a password change request
type ChangePasswordRequest struct {
	OldPassword string `json:"oldP"`
	NewPassword string `json:"newP"`
}

// Session is returned by a successful signup or login
type Session struct {
	IDToken   string `json:"idToken"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	ExpiresIn int64  `json:"expiresIn"`
	ID        int64  `json:"id"`
	Cont      *int   `json:"cont,omitempty"`
	Success   bool   `json:"success"`
}

// GuestAccount holds the credentials substituted on a guest login
type GuestAccount struct {
	Email    string
	Password string
}

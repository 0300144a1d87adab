package types

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Sentinel errors shared between the repository, service and handler layers.
// Handlers translate these into HTTP statuses; nothing below the handler
// layer knows about HTTP.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrDuplicateEmail     = errors.New("email already registered")
	ErrDuplicateUsername  = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrValidation         = errors.New("invalid request")
	ErrTokenInvalid       = errors.New("invalid or expired reset token")
	ErrTokenExpired       = errors.New("reset token has expired")
	ErrTokenNoExpiry      = errors.New("reset token has no expiration")
)

// UserAuth represents the core user account record.
type UserAuth struct {
	ID                  string     `json:"id" example:"d290f1ee-6c54-4b01-90e6-d701748f0851"` // Unique identifier (UUID).
	Username            string     `json:"username" example:"johndoe"`                        // Unique username.
	Email               string     `json:"email" example:"john.doe@example.com"`              // Unique email address used for login, stored lowercase.
	FullName            string     `json:"full_name,omitempty"`                               // Optional display name.
	PasswordHash        string     `json:"-"`                                                 // Hashed password (never exposed).
	ResetToken          *string    `json:"-"`                                                 // Outstanding password-reset token, nil when none.
	ResetTokenExpiresAt *time.Time `json:"-"`                                                 // Expiry of ResetToken; set iff ResetToken is set.
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// Profile is the public view of a user account returned to clients.
// It deliberately has no password or reset fields.
type Profile struct {
	ID       string `json:"id"`
	Email    string `json:"email"`
	Username string `json:"username"`
	FullName string `json:"full_name,omitempty"`
}

// Profile returns the client-safe view of the account.
func (u *UserAuth) Profile() *Profile {
	return &Profile{
		ID:       u.ID,
		Email:    u.Email,
		Username: u.Username,
		FullName: u.FullName,
	}
}

// Claims is the JWT claim set carried by access tokens. Access tokens only
// use registered claims (sub = account email), kept as a named type so the
// middleware and token service share one definition.
type Claims struct {
	jwt.RegisteredClaims
}

package auth

// RegisterRequest represents the expected JSON body for user registration.
type RegisterRequest struct {
	Email    string `json:"email" example:"newuser@example.com"` // Must be unique.
	Username string `json:"username" example:"testuser"`         // Must be unique.
	Password string `json:"password" example:"Str0ngP@ss!"`
	FullName string `json:"full_name,omitempty" example:"Jane Doe"`
}

// LoginRequest represents the expected JSON body for user login.
// Exactly one of Email or Username must be set.
type LoginRequest struct {
	Email    string `json:"email,omitempty" example:"user@example.com"`
	Username string `json:"username,omitempty" example:"johndoe"`
	Password string `json:"password" example:"password123"`
}

// LoginResponse represents the successful JSON response after login.
type LoginResponse struct {
	AccessToken string `json:"access_token" example:"eyJhbGciOiJI..."` // Short-lived JWT access token.
	TokenType   string `json:"token_type" example:"bearer"`
}

// ForgotPasswordRequest represents the expected JSON body for requesting a
// password reset.
type ForgotPasswordRequest struct {
	Email string `json:"email" example:"user@example.com"`
}

// ForgotPasswordResponse is always the same shape and message regardless of
// whether the email is registered. ResetToken is populated only when the
// service runs with echoResetTokens enabled (non-production debugging).
type ForgotPasswordResponse struct {
	Message    string `json:"message"`
	ResetToken string `json:"reset_token,omitempty"`
}

// ResetPasswordRequest represents the expected JSON body for completing a
// password reset.
type ResetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// MessageResponse is a generic success message body.
type MessageResponse struct {
	Message string `json:"message"`
}

// ForgotPasswordMessage is returned for every forgot-password request,
// registered email or not.
const ForgotPasswordMessage = "If the email address is registered, a password reset link has been sent."

package auth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-user-auth/internal/api"
	"github.com/FACorreiaa/go-user-auth/internal/types"
)

// AuthHandler translates HTTP requests into AuthService calls and sentinel
// errors back into statuses.
type AuthHandler struct {
	service AuthService
	logger  *slog.Logger
}

func NewAuthHandler(service AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger,
	}
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	profile, err := h.service.Register(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrDuplicateEmail):
			api.ErrorResponse(w, r, http.StatusConflict, "Email already registered")
		case errors.Is(err, types.ErrDuplicateUsername):
			api.ErrorResponse(w, r, http.StatusConflict, "Username already taken")
		default:
			h.logger.ErrorContext(r.Context(), "Register failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, profile)
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	token, err := h.service.Login(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrInvalidCredentials):
			// One generic message for unknown identifier and wrong password.
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Incorrect credentials")
		default:
			h.logger.ErrorContext(r.Context(), "Login failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

// ForgotPassword handles POST /auth/forgot-password.
func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req ForgotPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := h.service.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, types.ErrValidation) {
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "Forgot password failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, resp)
}

// ResetPassword handles POST /auth/reset-password.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req ResetPasswordRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	err := h.service.ResetPassword(r.Context(), req.Token, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, types.ErrValidation):
			api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		case errors.Is(err, types.ErrTokenInvalid),
			errors.Is(err, types.ErrTokenExpired),
			errors.Is(err, types.ErrTokenNoExpiry):
			// The internal distinction is logged server-side only; clients
			// get one generic failure to keep tokens unguessable.
			h.logger.WarnContext(r.Context(), "Password reset rejected", slog.Any("reason", err))
			api.ErrorResponse(w, r, http.StatusBadRequest, "Invalid or expired reset token")
		default:
			h.logger.ErrorContext(r.Context(), "Reset password failed", slog.Any("error", err))
			api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		}
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, MessageResponse{Message: "Password updated successfully"})
}

// Me handles GET /auth/me. It requires the Authenticate middleware.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	email, ok := GetUserEmailFromContext(r.Context())
	if !ok {
		api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
		return
	}

	profile, err := h.service.GetProfileByEmail(r.Context(), email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			api.ErrorResponse(w, r, http.StatusUnauthorized, "Authentication required")
			return
		}
		h.logger.ErrorContext(r.Context(), "Profile lookup failed", slog.Any("error", err))
		api.ErrorResponse(w, r, http.StatusInternalServerError, "Internal server error")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusOK, profile)
}

package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-user-auth/app/mail"
	"github.com/FACorreiaa/go-user-auth/app/observability/metrics"
	"github.com/FACorreiaa/go-user-auth/internal/types"
)

// AuthService orchestrates registration, login and the password-reset flow.
type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*types.Profile, error)
	Login(ctx context.Context, req LoginRequest) (string, error)
	ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error)
	ResetPassword(ctx context.Context, token, newPassword string) error
	GetProfileByEmail(ctx context.Context, email string) (*types.Profile, error)
}

var _ AuthService = (*AuthServiceImpl)(nil)

// AuthServiceImpl implements AuthService.
type AuthServiceImpl struct {
	logger          *slog.Logger
	repo            AuthRepo
	hasher          PasswordHasher
	tokens          *TokenService
	notifier        mail.Notifier
	resetTTL        time.Duration
	echoResetTokens bool
}

func NewAuthService(
	repo AuthRepo,
	hasher PasswordHasher,
	tokens *TokenService,
	notifier mail.Notifier,
	resetTTL time.Duration,
	echoResetTokens bool,
	logger *slog.Logger,
) *AuthServiceImpl {
	if resetTTL <= 0 {
		resetTTL = time.Hour
	}
	return &AuthServiceImpl{
		logger:          logger,
		repo:            repo,
		hasher:          hasher,
		tokens:          tokens,
		notifier:        notifier,
		resetTTL:        resetTTL,
		echoResetTokens: echoResetTokens,
	}
}

// normalizeEmail lowercases and trims an email address. Email comparison is
// case-insensitive throughout.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates a new account. The returned profile never carries the
// password hash.
func (s *AuthServiceImpl) Register(ctx context.Context, req RegisterRequest) (*types.Profile, error) {
	start := time.Now()
	defer func() {
		metrics.Get().AuthDurationSeconds.Record(ctx, time.Since(start).Seconds())
		metrics.Get().RegisterRequestsTotal.Add(ctx, 1)
	}()

	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)
	if email == "" || username == "" || req.Password == "" {
		return nil, fmt.Errorf("%w: email, username and password are required", types.ErrValidation)
	}

	if _, err := s.repo.GetUserByEmail(ctx, email); err == nil {
		return nil, types.ErrDuplicateEmail
	} else if !errors.Is(err, types.ErrUserNotFound) {
		return nil, err
	}
	if _, err := s.repo.GetUserByUsername(ctx, username); err == nil {
		return nil, types.ErrDuplicateUsername
	} else if !errors.Is(err, types.ErrUserNotFound) {
		return nil, err
	}

	passwordHash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := time.Now()
	user := &types.UserAuth{
		ID:           uuid.NewString(),
		Email:        email,
		Username:     username,
		FullName:     strings.TrimSpace(req.FullName),
		PasswordHash: passwordHash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	// The unique indexes are the backstop for races between the pre-checks
	// and the insert; CreateUser maps them back to the duplicate sentinels.
	if err := s.repo.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "User registered",
		slog.String("user_id", user.ID),
		slog.String("username", user.Username),
	)
	return user.Profile(), nil
}

// Login verifies credentials and returns a signed access token. A missing
// account and a wrong password are indistinguishable to the caller.
func (s *AuthServiceImpl) Login(ctx context.Context, req LoginRequest) (string, error) {
	start := time.Now()
	defer func() {
		metrics.Get().AuthDurationSeconds.Record(ctx, time.Since(start).Seconds())
		metrics.Get().LoginAttemptsTotal.Add(ctx, 1)
	}()

	email := normalizeEmail(req.Email)
	username := strings.TrimSpace(req.Username)
	if (email == "") == (username == "") {
		return "", fmt.Errorf("%w: provide exactly one of email or username", types.ErrValidation)
	}
	if req.Password == "" {
		return "", fmt.Errorf("%w: password is required", types.ErrValidation)
	}

	var user *types.UserAuth
	var err error
	if email != "" {
		user, err = s.repo.GetUserByEmail(ctx, email)
	} else {
		user, err = s.repo.GetUserByUsername(ctx, username)
	}
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return "", types.ErrInvalidCredentials
		}
		return "", err
	}

	if !s.hasher.Verify(req.Password, user.PasswordHash) {
		return "", types.ErrInvalidCredentials
	}

	token, err := s.tokens.IssueAccessToken(user.Email)
	if err != nil {
		return "", err
	}
	return token, nil
}

// ForgotPassword starts the reset flow. The response is identical whether or
// not the email is registered, and notifier failures never change it.
func (s *AuthServiceImpl) ForgotPassword(ctx context.Context, email string) (*ForgotPasswordResponse, error) {
	start := time.Now()
	defer func() {
		metrics.Get().AuthDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	resp := &ForgotPasswordResponse{Message: ForgotPasswordMessage}

	email = normalizeEmail(email)
	if email == "" {
		return nil, fmt.Errorf("%w: email is required", types.ErrValidation)
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return resp, nil
		}
		return nil, err
	}

	token, err := GenerateResetToken()
	if err != nil {
		return nil, err
	}
	expiresAt := time.Now().Add(s.resetTTL)

	user.ResetToken = &token
	user.ResetTokenExpiresAt = &expiresAt
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return nil, err
	}

	if err := s.notifier.SendPasswordResetNotice(ctx, user.Email, token); err != nil {
		// Delivery failure must not surface to the caller.
		s.logger.ErrorContext(ctx, "Failed to send password reset notice",
			slog.String("user_id", user.ID),
			slog.Any("error", err),
		)
	}

	if s.echoResetTokens {
		resp.ResetToken = token
	}
	return resp, nil
}

// ResetPassword consumes a reset token and sets a new password. The token
// fields are cleared in the same update as the hash, so a token can only be
// used once.
func (s *AuthServiceImpl) ResetPassword(ctx context.Context, token, newPassword string) error {
	start := time.Now()
	defer func() {
		metrics.Get().AuthDurationSeconds.Record(ctx, time.Since(start).Seconds())
	}()

	if token == "" || newPassword == "" {
		return fmt.Errorf("%w: token and new password are required", types.ErrValidation)
	}

	user, err := s.repo.GetUserByResetToken(ctx, token)
	if err != nil {
		if errors.Is(err, types.ErrUserNotFound) {
			return types.ErrTokenInvalid
		}
		return err
	}

	if user.ResetTokenExpiresAt == nil {
		// Corrupt state: a token without an expiry is never honored.
		s.logger.WarnContext(ctx, "Reset token without expiry", slog.String("user_id", user.ID))
		return types.ErrTokenNoExpiry
	}

	if time.Now().After(*user.ResetTokenExpiresAt) {
		user.ResetToken = nil
		user.ResetTokenExpiresAt = nil
		if err := s.repo.UpdateUser(ctx, user); err != nil {
			s.logger.ErrorContext(ctx, "Failed to clear expired reset token",
				slog.String("user_id", user.ID),
				slog.Any("error", err),
			)
		}
		return types.ErrTokenExpired
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user.PasswordHash = passwordHash
	user.ResetToken = nil
	user.ResetTokenExpiresAt = nil
	if err := s.repo.UpdateUser(ctx, user); err != nil {
		return err
	}

	metrics.Get().PasswordResetsTotal.Add(ctx, 1)
	s.logger.InfoContext(ctx, "Password reset completed", slog.String("user_id", user.ID))
	return nil
}

// GetProfileByEmail returns the public view of the account behind an access
// token subject.
func (s *AuthServiceImpl) GetProfileByEmail(ctx context.Context, email string) (*types.Profile, error) {
	user, err := s.repo.GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}
	return user.Profile(), nil
}

package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/FACorreiaa/go-user-auth/app/mail"
	"github.com/FACorreiaa/go-user-auth/app/observability/metrics"
	"github.com/FACorreiaa/go-user-auth/internal/api/auth"
	api "github.com/FACorreiaa/go-user-auth/internal/router"
	"github.com/FACorreiaa/go-user-auth/internal/types"
)

func TestMain(m *testing.M) {
	metrics.InitAppMetrics()
	os.Exit(m.Run())
}

// memoryAuthRepo is an in-memory AuthRepo used to exercise the full HTTP
// stack without Postgres.
type memoryAuthRepo struct {
	mu    sync.RWMutex
	users map[string]*types.UserAuth // keyed by ID
}

func newMemoryAuthRepo() *memoryAuthRepo {
	return &memoryAuthRepo{users: make(map[string]*types.UserAuth)}
}

func (r *memoryAuthRepo) find(match func(*types.UserAuth) bool) (*types.UserAuth, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if match(u) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, types.ErrUserNotFound
}

func (r *memoryAuthRepo) GetUserByID(_ context.Context, id string) (*types.UserAuth, error) {
	return r.find(func(u *types.UserAuth) bool { return u.ID == id })
}

func (r *memoryAuthRepo) GetUserByEmail(_ context.Context, email string) (*types.UserAuth, error) {
	return r.find(func(u *types.UserAuth) bool { return strings.EqualFold(u.Email, email) })
}

func (r *memoryAuthRepo) GetUserByUsername(_ context.Context, username string) (*types.UserAuth, error) {
	return r.find(func(u *types.UserAuth) bool { return u.Username == username })
}

func (r *memoryAuthRepo) GetUserByResetToken(_ context.Context, token string) (*types.UserAuth, error) {
	return r.find(func(u *types.UserAuth) bool { return u.ResetToken != nil && *u.ResetToken == token })
}

func (r *memoryAuthRepo) CreateUser(_ context.Context, user *types.UserAuth) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return types.ErrDuplicateEmail
		}
		if u.Username == user.Username {
			return types.ErrDuplicateUsername
		}
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

func (r *memoryAuthRepo) UpdateUser(_ context.Context, user *types.UserAuth) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[user.ID]; !ok {
		return types.ErrUserNotFound
	}
	clone := *user
	r.users[user.ID] = &clone
	return nil
}

type AuthFlowTestSuite struct {
	suite.Suite
	router http.Handler
}

func (s *AuthFlowTestSuite) SetupTest() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

	tokens, err := auth.NewTokenService("e2e-test-secret", "go-user-auth", "go-user-auth-clients", 30*time.Minute)
	s.Require().NoError(err)

	service := auth.NewAuthService(
		newMemoryAuthRepo(),
		auth.NewBcryptHasher(),
		tokens,
		mail.NewLogNotifier(logger, "http://localhost:5173"),
		time.Hour,
		true, // echo reset tokens so the flow can be driven end to end
		logger,
	)

	s.router = api.SetupRouter(&api.Config{
		AuthHandler:            auth.NewAuthHandler(service, logger),
		AuthenticateMiddleware: auth.Authenticate(logger, tokens),
	})
}

func (s *AuthFlowTestSuite) postJSON(path string, body any) *httptest.ResponseRecorder {
	payload, err := json.Marshal(body)
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *AuthFlowTestSuite) get(path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rr := httptest.NewRecorder()
	s.router.ServeHTTP(rr, req)
	return rr
}

func (s *AuthFlowTestSuite) register(email, username, password string) *httptest.ResponseRecorder {
	return s.postJSON("/api/v1/auth/register", auth.RegisterRequest{
		Email:    email,
		Username: username,
		Password: password,
		FullName: "E2E Tester",
	})
}

func (s *AuthFlowTestSuite) login(email, password string) *httptest.ResponseRecorder {
	return s.postJSON("/api/v1/auth/login", auth.LoginRequest{Email: email, Password: password})
}

func (s *AuthFlowTestSuite) TestPing() {
	rr := s.get("/ping", "")
	s.Equal(http.StatusOK, rr.Code)
	s.Equal("pong", rr.Body.String())
}

func (s *AuthFlowTestSuite) TestRegisterLoginMe() {
	rr := s.register("alice@example.com", "alice", "hunter2hunter2")
	s.Require().Equal(http.StatusCreated, rr.Code, rr.Body.String())

	var profile types.Profile
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &profile))
	s.Equal("alice@example.com", profile.Email)
	s.NotContains(rr.Body.String(), "password")

	// Duplicate registrations are rejected.
	s.Equal(http.StatusConflict, s.register("alice@example.com", "alice2", "hunter2hunter2").Code)
	s.Equal(http.StatusConflict, s.register("alice2@example.com", "alice", "hunter2hunter2").Code)

	rr = s.login("alice@example.com", "hunter2hunter2")
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	var loginResp auth.LoginResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &loginResp))
	s.Equal("bearer", loginResp.TokenType)
	s.NotEmpty(loginResp.AccessToken)

	// The token works against the protected route; garbage does not.
	rr = s.get("/api/v1/auth/me", loginResp.AccessToken)
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())
	var me types.Profile
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &me))
	s.Equal(profile.ID, me.ID)

	s.Equal(http.StatusUnauthorized, s.get("/api/v1/auth/me", "").Code)
	s.Equal(http.StatusUnauthorized, s.get("/api/v1/auth/me", "not-a-token").Code)
}

func (s *AuthFlowTestSuite) TestLoginEmailIsCaseInsensitive() {
	s.Require().Equal(http.StatusCreated, s.register("bob@example.com", "bob", "password-one").Code)
	s.Equal(http.StatusOK, s.login("BOB@Example.COM", "password-one").Code)
}

func (s *AuthFlowTestSuite) TestPasswordResetFlow() {
	s.Require().Equal(http.StatusCreated, s.register("carol@example.com", "carol", "old-password-1").Code)

	rr := s.postJSON("/api/v1/auth/forgot-password", auth.ForgotPasswordRequest{Email: "carol@example.com"})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	var forgot auth.ForgotPasswordResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &forgot))
	s.Equal(auth.ForgotPasswordMessage, forgot.Message)
	s.Require().NotEmpty(forgot.ResetToken)

	// An unknown email gets the identical message and no token hint.
	rr = s.postJSON("/api/v1/auth/forgot-password", auth.ForgotPasswordRequest{Email: "nobody@example.com"})
	s.Require().Equal(http.StatusOK, rr.Code)
	var forgotUnknown auth.ForgotPasswordResponse
	s.Require().NoError(json.Unmarshal(rr.Body.Bytes(), &forgotUnknown))
	s.Equal(forgot.Message, forgotUnknown.Message)
	s.Empty(forgotUnknown.ResetToken)

	rr = s.postJSON("/api/v1/auth/reset-password", auth.ResetPasswordRequest{
		Token:       forgot.ResetToken,
		NewPassword: "new-password-1",
	})
	s.Require().Equal(http.StatusOK, rr.Code, rr.Body.String())

	// Old password is dead, new one works.
	s.Equal(http.StatusUnauthorized, s.login("carol@example.com", "old-password-1").Code)
	s.Equal(http.StatusOK, s.login("carol@example.com", "new-password-1").Code)

	// The token was consumed; replaying it fails.
	rr = s.postJSON("/api/v1/auth/reset-password", auth.ResetPasswordRequest{
		Token:       forgot.ResetToken,
		NewPassword: "another-password",
	})
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Equal(http.StatusOK, s.login("carol@example.com", "new-password-1").Code)
}

func (s *AuthFlowTestSuite) TestResetWithUnknownToken() {
	rr := s.postJSON("/api/v1/auth/reset-password", auth.ResetPasswordRequest{
		Token:       "made-up-token",
		NewPassword: "whatever-password",
	})
	s.Equal(http.StatusBadRequest, rr.Code)
	s.Contains(rr.Body.String(), "Invalid or expired reset token")
}

func TestAuthFlowTestSuite(t *testing.T) {
	suite.Run(t, new(AuthFlowTestSuite))
}

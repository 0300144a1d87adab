package auth

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/FACorreiaa/go-user-auth/internal/api"
)

// Typed context keys avoid collisions with other middleware.
type contextKey string

const UserEmailKey contextKey = "userEmail"

// Authenticate validates the bearer access token and puts the subject email
// on the request context.
func Authenticate(logger *slog.Logger, tokens *TokenService) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				l.WarnContext(ctx, "Missing Authorization header")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header required")
				return
			}

			headerParts := strings.Split(authHeader, " ")
			if len(headerParts) != 2 || !strings.EqualFold(headerParts[0], "bearer") {
				l.WarnContext(ctx, "Invalid Authorization header format")
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Authorization header format must be Bearer {token}")
				return
			}

			email, err := tokens.VerifyAccessToken(headerParts[1])
			if err != nil {
				l.WarnContext(ctx, "Token validation failed", slog.Any("error", err))
				api.ErrorResponse(w, r, http.StatusUnauthorized, "Invalid or expired token")
				return
			}

			ctx = context.WithValue(ctx, UserEmailKey, email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserEmailFromContext returns the authenticated subject email, if any.
func GetUserEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(UserEmailKey).(string)
	return email, ok
}

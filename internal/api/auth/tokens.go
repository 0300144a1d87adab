package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/FACorreiaa/go-user-auth/internal/api"
	"github.com/FACorreiaa/go-user-auth/internal/types"
)

// ResetTokenBytes is the entropy of an opaque reset token before encoding.
const ResetTokenBytes = 32

// TokenService signs and verifies bearer access tokens. The signing secret
// and TTLs are loaded once at startup and read-only afterwards.
type TokenService struct {
	secretKey []byte
	issuer    string
	audience  string
	accessTTL time.Duration
}

func NewTokenService(secretKey, issuer, audience string, accessTTL time.Duration) (*TokenService, error) {
	if len(secretKey) == 0 {
		return nil, fmt.Errorf("jwt secret key cannot be empty")
	}
	if accessTTL <= 0 {
		accessTTL = 30 * time.Minute
	}
	return &TokenService{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		audience:  audience,
		accessTTL: accessTTL,
	}, nil
}

// AccessTTL returns the configured access-token lifetime.
func (s *TokenService) AccessTTL() time.Duration {
	return s.accessTTL
}

// IssueAccessToken signs an HS256 access token with subject = account email.
func (s *TokenService) IssueAccessToken(subjectEmail string) (string, error) {
	now := time.Now()
	claims := types.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectEmail,
			Issuer:    s.issuer,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}
	return signed, nil
}

// VerifyAccessToken validates signature, expiry, issuer and audience, and
// returns the subject email. Any failure yields types.ErrInvalidCredentials;
// callers must not leak the distinction to clients.
func (s *TokenService) VerifyAccessToken(tokenString string) (string, error) {
	claims := &types.Claims{}
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	token, err := parser.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (interface{}, error) {
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return "", types.ErrInvalidCredentials
	}
	if s.audience != "" && !api.VerifyAudience(claims.Audience, s.audience) {
		return "", types.ErrInvalidCredentials
	}
	if claims.Subject == "" {
		return "", types.ErrInvalidCredentials
	}
	return claims.Subject, nil
}

// GenerateResetToken returns an opaque, URL-safe token with ResetTokenBytes
// of entropy. The token is stored on the account record and matched by exact
// lookup; it carries no user data.
func GenerateResetToken() (string, error) {
	buf := make([]byte, ResetTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate reset token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

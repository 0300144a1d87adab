package auth

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-user-auth/internal/types"
)

func newMockRepo(t *testing.T) (*PostgresAuthRepo, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewPostgresAuthRepo(mockPool, slog.Default()), mockPool
}

func userRows(user *types.UserAuth) *pgxmock.Rows {
	var fullName *string
	if user.FullName != "" {
		fullName = &user.FullName
	}
	return pgxmock.NewRows([]string{
		"id", "email", "username", "full_name", "password_hash",
		"reset_token", "reset_token_expires_at", "created_at", "updated_at",
	}).AddRow(
		user.ID, user.Email, user.Username, fullName, user.PasswordHash,
		user.ResetToken, user.ResetTokenExpiresAt, user.CreatedAt, user.UpdatedAt,
	)
}

func TestPostgresAuthRepo_GetUserByEmail(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		want := &types.UserAuth{
			ID:           "11111111-1111-1111-1111-111111111111",
			Email:        "test@example.com",
			Username:     "testuser",
			FullName:     "Test User",
			PasswordHash: "$2a$10$hash",
			CreatedAt:    now,
			UpdatedAt:    now,
		}
		mockPool.ExpectQuery(`SELECT (.+) FROM users WHERE lower\(email\) = lower\(\$1\)`).
			WithArgs("Test@Example.com").
			WillReturnRows(userRows(want))

		got, err := repo.GetUserByEmail(ctx, "Test@Example.com")
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectQuery(`SELECT (.+) FROM users WHERE lower\(email\) = lower\(\$1\)`).
			WithArgs("nobody@example.com").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetUserByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, types.ErrUserNotFound)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})
}

func TestPostgresAuthRepo_GetUserByResetToken(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	t.Run("Found", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		token := "reset-token-value"
		expiresAt := now.Add(time.Hour)
		want := &types.UserAuth{
			ID:                  "11111111-1111-1111-1111-111111111111",
			Email:               "test@example.com",
			Username:            "testuser",
			PasswordHash:        "$2a$10$hash",
			ResetToken:          &token,
			ResetTokenExpiresAt: &expiresAt,
			CreatedAt:           now,
			UpdatedAt:           now,
		}
		mockPool.ExpectQuery(`SELECT (.+) FROM users WHERE reset_token = \$1`).
			WithArgs(token).
			WillReturnRows(userRows(want))

		got, err := repo.GetUserByResetToken(ctx, token)
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectQuery(`SELECT (.+) FROM users WHERE reset_token = \$1`).
			WithArgs("unknown-token").
			WillReturnError(pgx.ErrNoRows)

		_, err := repo.GetUserByResetToken(ctx, "unknown-token")
		assert.ErrorIs(t, err, types.ErrUserNotFound)
	})
}

func TestPostgresAuthRepo_CreateUser(t *testing.T) {
	ctx := context.Background()
	now := time.Now()

	user := &types.UserAuth{
		ID:           "11111111-1111-1111-1111-111111111111",
		Email:        "new@example.com",
		Username:     "newuser",
		FullName:     "New User",
		PasswordHash: "$2a$10$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	t.Run("Success", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID, user.Email, user.Username, user.FullName, user.PasswordHash, user.CreatedAt, user.UpdatedAt).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err := repo.CreateUser(ctx, user)
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("DuplicateEmail", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID, user.Email, user.Username, user.FullName, user.PasswordHash, user.CreatedAt, user.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

		err := repo.CreateUser(ctx, user)
		assert.ErrorIs(t, err, types.ErrDuplicateEmail)
	})

	t.Run("DuplicateUsername", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID, user.Email, user.Username, user.FullName, user.PasswordHash, user.CreatedAt, user.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_username_key"})

		err := repo.CreateUser(ctx, user)
		assert.ErrorIs(t, err, types.ErrDuplicateUsername)
	})

	t.Run("OtherError", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec(`INSERT INTO users`).
			WithArgs(user.ID, user.Email, user.Username, user.FullName, user.PasswordHash, user.CreatedAt, user.UpdatedAt).
			WillReturnError(&pgconn.PgError{Code: "53300", Message: "too many connections"})

		err := repo.CreateUser(ctx, user)
		require.Error(t, err)
		assert.NotErrorIs(t, err, types.ErrDuplicateEmail)
		assert.NotErrorIs(t, err, types.ErrDuplicateUsername)
	})
}

func TestPostgresAuthRepo_UpdateUser(t *testing.T) {
	ctx := context.Background()

	token := "reset-token-value"
	expiresAt := time.Now().Add(time.Hour)
	user := &types.UserAuth{
		ID:                  "11111111-1111-1111-1111-111111111111",
		Email:               "test@example.com",
		Username:            "testuser",
		FullName:            "Test User",
		PasswordHash:        "$2a$10$hash",
		ResetToken:          &token,
		ResetTokenExpiresAt: &expiresAt,
	}

	t.Run("Success", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec(`UPDATE users`).
			WithArgs(user.ID, user.FullName, user.PasswordHash, user.ResetToken, user.ResetTokenExpiresAt, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err := repo.UpdateUser(ctx, user)
		require.NoError(t, err)
		assert.NoError(t, mockPool.ExpectationsWereMet())
	})

	t.Run("NoSuchUser", func(t *testing.T) {
		repo, mockPool := newMockRepo(t)

		mockPool.ExpectExec(`UPDATE users`).
			WithArgs(user.ID, user.FullName, user.PasswordHash, user.ResetToken, user.ResetTokenExpiresAt, pgxmock.AnyArg()).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err := repo.UpdateUser(ctx, user)
		assert.ErrorIs(t, err, types.ErrUserNotFound)
	})
}

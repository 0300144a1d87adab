package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/FACorreiaa/go-user-auth/app/observability/metrics"
	"github.com/FACorreiaa/go-user-auth/internal/types"
)

// Connection is the subset of pgxpool.Pool the repository needs. pgxmock
// satisfies it in tests.
type Connection interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// AuthRepo defines the account-store contract. Lookups return
// types.ErrUserNotFound on miss. CreateUser and UpdateUser each touch a
// single row atomically; concurrent reset attempts on the same account are
// serialized by the database, not by this process.
type AuthRepo interface {
	GetUserByID(ctx context.Context, id string) (*types.UserAuth, error)
	GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error)
	GetUserByUsername(ctx context.Context, username string) (*types.UserAuth, error)
	GetUserByResetToken(ctx context.Context, token string) (*types.UserAuth, error)
	CreateUser(ctx context.Context, user *types.UserAuth) error
	UpdateUser(ctx context.Context, user *types.UserAuth) error
}

var _ AuthRepo = (*PostgresAuthRepo)(nil)

// PostgresAuthRepo implements AuthRepo on Postgres.
type PostgresAuthRepo struct {
	logger *slog.Logger
	db     Connection
}

func NewPostgresAuthRepo(db Connection, logger *slog.Logger) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger: logger,
		db:     db,
	}
}

const userColumns = `id, email, username, full_name, password_hash, reset_token, reset_token_expires_at, created_at, updated_at`

func (r *PostgresAuthRepo) getUserBy(ctx context.Context, where string, arg any) (*types.UserAuth, error) {
	query := fmt.Sprintf("SELECT %s FROM users WHERE %s", userColumns, where)

	start := time.Now()
	var user types.UserAuth
	var fullName *string
	err := r.db.QueryRow(ctx, query, arg).Scan(
		&user.ID,
		&user.Email,
		&user.Username,
		&fullName,
		&user.PasswordHash,
		&user.ResetToken,
		&user.ResetTokenExpiresAt,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, types.ErrUserNotFound
		}
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	if fullName != nil {
		user.FullName = *fullName
	}
	return &user, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, id string) (*types.UserAuth, error) {
	return r.getUserBy(ctx, "id = $1", id)
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.UserAuth, error) {
	return r.getUserBy(ctx, "lower(email) = lower($1)", email)
}

func (r *PostgresAuthRepo) GetUserByUsername(ctx context.Context, username string) (*types.UserAuth, error) {
	return r.getUserBy(ctx, "username = $1", username)
}

func (r *PostgresAuthRepo) GetUserByResetToken(ctx context.Context, token string) (*types.UserAuth, error) {
	return r.getUserBy(ctx, "reset_token = $1", token)
}

// CreateUser inserts a new account row. Unique-index violations surface as
// types.ErrDuplicateEmail / types.ErrDuplicateUsername.
func (r *PostgresAuthRepo) CreateUser(ctx context.Context, user *types.UserAuth) error {
	start := time.Now()
	_, err := r.db.Exec(ctx, `
		INSERT INTO users (id, email, username, full_name, password_hash, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)`,
		user.ID,
		user.Email,
		user.Username,
		user.FullName,
		user.PasswordHash,
		user.CreatedAt,
		user.UpdatedAt,
	)
	metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		if dup := mapUniqueViolation(err); dup != nil {
			return dup
		}
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		r.logger.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		return fmt.Errorf("failed to insert user: %w", err)
	}
	return nil
}

// UpdateUser writes the mutable fields of the targeted row in one statement.
// Password hash and the reset-token pair always travel together so a reset
// completion is atomic.
func (r *PostgresAuthRepo) UpdateUser(ctx context.Context, user *types.UserAuth) error {
	start := time.Now()
	tag, err := r.db.Exec(ctx, `
		UPDATE users
		SET full_name = NULLIF($2, ''),
		    password_hash = $3,
		    reset_token = $4,
		    reset_token_expires_at = $5,
		    updated_at = $6
		WHERE id = $1`,
		user.ID,
		user.FullName,
		user.PasswordHash,
		user.ResetToken,
		user.ResetTokenExpiresAt,
		time.Now(),
	)
	metrics.Get().DbQueryDurationSeconds.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		metrics.Get().DbQueryErrorsTotal.Add(ctx, 1)
		r.logger.ErrorContext(ctx, "Failed to update user", slog.Any("error", err), slog.String("user_id", user.ID))
		return fmt.Errorf("failed to update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.ErrUserNotFound
	}
	return nil
}

// mapUniqueViolation translates Postgres unique-violation errors (23505)
// into the duplicate sentinels, keyed on the violated constraint.
func mapUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23505" {
		return nil
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "email"):
		return types.ErrDuplicateEmail
	case strings.Contains(pgErr.ConstraintName, "username"):
		return types.ErrDuplicateUsername
	default:
		return nil
	}
}

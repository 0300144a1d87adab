package container

import (
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	database "github.com/FACorreiaa/go-user-auth/app/db"
	"github.com/FACorreiaa/go-user-auth/app/mail"
	"github.com/FACorreiaa/go-user-auth/config"
	"github.com/FACorreiaa/go-user-auth/internal/api/auth"
)

// Container holds all application dependencies.
type Container struct {
	Config       *config.Config
	Logger       *slog.Logger
	Pool         *pgxpool.Pool
	TokenService *auth.TokenService
	AuthHandler  *auth.AuthHandler
}

// NewContainer initializes the dependency graph: database pool, notifier,
// token service, auth repository/service/handler.
func NewContainer(cfg *config.Config, logger *slog.Logger) (*Container, error) {
	dbConfig, err := database.NewDatabaseConfig(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := database.RunMigrations(dbConfig.ConnectionURL, logger); err != nil {
		return nil, err
	}

	pool, err := database.Init(dbConfig.ConnectionURL, logger)
	if err != nil {
		return nil, err
	}

	tokens, err := auth.NewTokenService(
		cfg.JWT.SecretKey,
		cfg.JWT.Issuer,
		cfg.JWT.Audience,
		cfg.AccessTokenTTL(),
	)
	if err != nil {
		pool.Close()
		return nil, err
	}

	notifier, err := newNotifier(cfg, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}

	authRepo := auth.NewPostgresAuthRepo(pool, logger)
	authService := auth.NewAuthService(
		authRepo,
		auth.NewBcryptHasher(),
		tokens,
		notifier,
		cfg.ResetTokenTTL(),
		cfg.Auth.EchoResetTokens,
		logger,
	)

	return &Container{
		Config:       cfg,
		Logger:       logger,
		Pool:         pool,
		TokenService: tokens,
		AuthHandler:  auth.NewAuthHandler(authService, logger),
	}, nil
}

// newNotifier picks SMTP when a host is configured, otherwise the reset
// links go to the application log.
func newNotifier(cfg *config.Config, logger *slog.Logger) (mail.Notifier, error) {
	if strings.TrimSpace(cfg.SMTP.Host) == "" {
		logger.Warn("SMTP host not configured, password reset links will be logged")
		return mail.NewLogNotifier(logger, cfg.ResetBaseURL), nil
	}
	return mail.NewSMTPNotifier(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Username,
		cfg.SMTP.Password,
		cfg.SMTP.From,
		cfg.SMTP.FromName,
		cfg.SMTP.UseTLS,
		cfg.ResetBaseURL,
	)
}

// Close releases held resources.
func (c *Container) Close() {
	if c.Pool != nil {
		c.Pool.Close()
	}
}

// Package mail delivers password-reset notices to users out-of-band.
package mail

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
)

// Notifier sends the password-reset link for an account. Implementations
// must be safe for concurrent use. Failures are non-fatal to the calling
// workflow.
type Notifier interface {
	SendPasswordResetNotice(ctx context.Context, email, token string) error
}

// ResetLink builds the reset URL handed to the user.
func ResetLink(baseURL, token string) string {
	return fmt.Sprintf("%s/reset-password?token=%s", baseURL, url.QueryEscape(token))
}

// LogNotifier writes the reset link to the application log instead of
// sending mail. Used in development when no SMTP host is configured.
type LogNotifier struct {
	logger  *slog.Logger
	baseURL string
}

func NewLogNotifier(logger *slog.Logger, baseURL string) *LogNotifier {
	return &LogNotifier{logger: logger, baseURL: baseURL}
}

func (n *LogNotifier) SendPasswordResetNotice(ctx context.Context, email, token string) error {
	n.logger.InfoContext(ctx, "Password reset link (mail delivery disabled)",
		slog.String("email", email),
		slog.String("link", ResetLink(n.baseURL, token)),
	)
	return nil
}

package mailer

import (
	"context"
	"log/slog"
)

// LogMailer logs invitations instead of sending them. Used in development
// when no SMTP host is configured.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendInvitation(ctx context.Context, email InvitationEmail) error {
	m.logger.InfoContext(ctx, "invitation email (not sent, smtp disabled)",
		"to", email.To,
		"organization", email.OrganizationName,
		"role", email.RoleLabel,
		"accept_url", email.AcceptURL,
	)
	return nil
}

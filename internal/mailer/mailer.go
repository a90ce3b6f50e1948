// Package mailer delivers invitation emails.
package mailer

import (
	"bytes"
	"context"
	"fmt"
	htmltemplate "html/template"
	"mime"
	"mime/multipart"
	"net/textproto"
	"strings"
	texttemplate "text/template"
	"time"

	"github.com/yukikurage/periodical/internal/config"
)

// Mailer sends invitation emails.
type Mailer interface {
	SendInvitation(ctx context.Context, email InvitationEmail) error
}

// InvitationEmail carries what the invitation templates render.
type InvitationEmail struct {
	To               string
	InviterName      string
	OrganizationName string
	RoleLabel        string
	AcceptURL        string
	ExpiresAt        time.Time
}

// Subject is the email subject line.
func (e InvitationEmail) Subject() string {
	return fmt.Sprintf("Invitation to join %s", e.OrganizationName)
}

// New returns an SMTP mailer, or a LogMailer when no SMTP host is configured.
func New(cfg config.MailConfig) Mailer {
	if cfg.Host == "" {
		return NewLogMailer(nil)
	}
	return NewSMTPMailer(cfg)
}

var invitationHTML = htmltemplate.Must(htmltemplate.New("invitation.html").Parse(`<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <title>Invitation to join {{.OrganizationName}}</title>
</head>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2>You're invited to join {{.OrganizationName}}!</h2>
  <p><strong>{{.InviterName}}</strong> has invited you to join <strong>{{.OrganizationName}}</strong> as a <strong>{{.RoleLabel}}</strong>.</p>
  <p style="text-align: center; margin: 30px 0;">
    <a href="{{.AcceptURL}}" style="background-color: #007bff; color: white; padding: 15px 30px; text-decoration: none; border-radius: 5px;">Accept Invitation</a>
  </p>
  <p><strong>This invitation will expire on {{.ExpiresAt.Format "Monday, January 2, 2006"}}.</strong></p>
  <p style="font-size: 14px; color: #666;">If you didn't expect this invitation, you can safely ignore this email.</p>
  <p style="font-size: 12px; color: #999; word-break: break-all;">{{.AcceptURL}}</p>
</body>
</html>
`))

var invitationText = texttemplate.Must(texttemplate.New("invitation.txt").Parse(`You're invited to join {{.OrganizationName}}!

{{.InviterName}} has invited you to join {{.OrganizationName}} as a {{.RoleLabel}}.

Accept your invitation by visiting: {{.AcceptURL}}

This invitation will expire on {{.ExpiresAt.Format "2006-01-02"}}.

If you didn't expect this invitation, you can safely ignore this email.
`))

// headerSafe drops line breaks so a value cannot start a new header.
var headerSafe = strings.NewReplacer("\r", "", "\n", " ")

// buildMessage renders a multipart/alternative message with text and HTML parts.
func buildMessage(from string, email InvitationEmail, date time.Time) ([]byte, error) {
	var textBody, htmlBody bytes.Buffer
	if err := invitationText.Execute(&textBody, email); err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	if err := invitationHTML.Execute(&htmlBody, email); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	parts := []struct {
		contentType string
		content     []byte
	}{
		{"text/plain; charset=utf-8", textBody.Bytes()},
		{"text/html; charset=utf-8", htmlBody.Bytes()},
	}
	for _, p := range parts {
		w, err := mw.CreatePart(textproto.MIMEHeader{"Content-Type": {p.contentType}})
		if err != nil {
			return nil, err
		}
		if _, err := w.Write(p.content); err != nil {
			return nil, err
		}
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	headers := fmt.Sprintf(
		"From: %s\r\nTo: %s\r\nSubject: %s\r\nDate: %s\r\nMIME-Version: 1.0\r\nContent-Type: multipart/alternative; boundary=%s\r\n\r\n",
		headerSafe.Replace(from),
		headerSafe.Replace(email.To),
		mime.QEncoding.Encode("utf-8", headerSafe.Replace(email.Subject())),
		date.Format(time.RFC1123Z),
		mw.Boundary(),
	)
	return append([]byte(headers), body.Bytes()...), nil
}

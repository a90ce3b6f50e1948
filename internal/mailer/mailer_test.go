package mailer

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"mime"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/periodical/internal/config"
)

func sampleEmail() InvitationEmail {
	return InvitationEmail{
		To:               "writer@example.com",
		InviterName:      "Ada <Admin>",
		OrganizationName: "Acme",
		RoleLabel:        "Content Writer",
		AcceptURL:        "https://admin.example.com/invite/accept?token=abc",
		ExpiresAt:        time.Date(2026, 3, 9, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildMessage(t *testing.T) {
	sent := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	msg, err := buildMessage("no-reply@example.com", sampleEmail(), sent)
	require.NoError(t, err)

	s := string(msg)
	assert.Contains(t, s, "Subject: Invitation to join Acme\r\n")
	assert.Contains(t, s, "Date: Mon, 02 Mar 2026 09:30:00 +0000\r\n")
	assert.Contains(t, s, "To: writer@example.com\r\n")
	assert.Contains(t, s, "multipart/alternative")
	assert.Contains(t, s, "text/plain; charset=utf-8")
	assert.Contains(t, s, "text/html; charset=utf-8")
	assert.Contains(t, s, "https://admin.example.com/invite/accept?token=abc")
	assert.Contains(t, s, "Monday, March 9, 2026")
	// HTML part escapes the inviter name
	assert.Contains(t, s, "Ada &lt;Admin&gt;")
}

func TestBuildMessage_EncodesSubject(t *testing.T) {
	email := sampleEmail()
	email.OrganizationName = "Café Crème\r\nBcc: victim@example.com"

	msg, err := buildMessage("no-reply@example.com", email, time.Now())
	require.NoError(t, err)

	headers, _, found := strings.Cut(string(msg), "\r\n\r\n")
	require.True(t, found)
	assert.NotContains(t, headers, "\r\nBcc:")
	assert.Contains(t, headers, "Subject: =?utf-8?q?")

	var subject string
	for _, line := range strings.Split(headers, "\r\n") {
		if v, ok := strings.CutPrefix(line, "Subject: "); ok {
			subject = v
		}
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	require.NoError(t, err)
	assert.Equal(t, "Invitation to join Café Crème Bcc: victim@example.com", decoded)
}

func TestSMTPMailer_SendInvitation(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.example.com", Port: 587, From: "no-reply@example.com", Username: "u", Password: "p"})

	var gotAddr, gotFrom string
	var gotTo []string
	m.send = func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo = addr, from, to
		assert.NotNil(t, auth)
		return nil
	}

	require.NoError(t, m.SendInvitation(context.Background(), sampleEmail()))
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, "no-reply@example.com", gotFrom)
	assert.Equal(t, []string{"writer@example.com"}, gotTo)
}

func TestSMTPMailer_SendFailure(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.example.com", Port: 587})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("connection refused")
	}

	err := m.SendInvitation(context.Background(), sampleEmail())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestSMTPMailer_CanceledContext(t *testing.T) {
	m := NewSMTPMailer(config.MailConfig{Host: "smtp.example.com", Port: 587})
	m.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.SendInvitation(ctx, sampleEmail()), context.Canceled)
}

func TestNew_FallsBackToLogMailer(t *testing.T) {
	_, ok := New(config.MailConfig{}).(*LogMailer)
	assert.True(t, ok)

	_, ok = New(config.MailConfig{Host: "smtp.example.com"}).(*SMTPMailer)
	assert.True(t, ok)
}

func TestLogMailer(t *testing.T) {
	var buf bytes.Buffer
	m := NewLogMailer(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, m.SendInvitation(context.Background(), sampleEmail()))
	assert.Contains(t, buf.String(), "writer@example.com")
}

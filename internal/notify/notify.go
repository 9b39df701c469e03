package notify

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bizchat/bizchat-api/shared/mailer"
)

// EmailSender delivers verification codes over SMTP.
type EmailSender struct {
	mailer *mailer.Mailer
}

// NewEmailSender creates a sender backed by the shared mailer.
func NewEmailSender(m *mailer.Mailer) *EmailSender {
	return &EmailSender{mailer: m}
}

func (s *EmailSender) SendVerificationCode(email, code string) error {
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>Your BizChat verification code is:</p>

		<p><strong>%s</strong></p>

		<p>This code will expire in 24 hours.</p>
		<p>If you did not request this code, you can safely ignore this email.</p>

		<p>Thank you,</p>
		<p>BizChat Team</p>
	`, code)

	return s.mailer.SendHTML([]string{email}, "Your BizChat verification code", htmlBody)
}

// LogSender is the delivery channel for deployments without SMTP
// configured: the code is only written to the log, matching the behavior
// the app shipped with before email was wired up.
type LogSender struct {
	logger *zerolog.Logger
}

// NewLogSender creates a log-only sender.
func NewLogSender(logger *zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendVerificationCode(email, code string) error {
	s.logger.Info().
		Str("email", email).
		Str("code", code).
		Msg("verification code (email delivery not configured)")

	return nil
}

package mailer

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/reportops/core/internal/config"
	"github.com/reportops/core/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Service sends report emails over SMTP. In mock mode (no provider
// credentials available) it logs the message instead of transmitting.
type Service struct {
	cfg    config.MailConfig
	logger *logger.Logger
}

func New(cfg config.MailConfig, log *logger.Logger) *Service {
	return &Service{cfg: cfg, logger: log}
}

// Configured reports whether the service can actually deliver mail. Mock
// mode counts as configured.
func (s *Service) Configured() bool {
	if s.cfg.Mock {
		return true
	}
	return s.cfg.Host != "" && s.cfg.From != ""
}

// Send delivers an email to the recipients, optionally attaching the file at
// attachmentPath. Sending blocks until the provider accepts or rejects the
// message.
func (s *Service) Send(ctx context.Context, recipients []string, subject, body, attachmentPath string) error {
	if len(recipients) == 0 {
		s.logger.Warn().
			Str("action", "send_skipped").
			Str("subject", subject).
			Msg("No recipients defined for email")
		return nil
	}

	if s.cfg.Mock {
		s.logger.Info().
			Str("action", "mock_email").
			Strs("to", recipients).
			Str("subject", subject).
			Str("attachment", filepath.Base(attachmentPath)).
			Msg("Mock email sent")
		return nil
	}

	if !s.Configured() {
		return fmt.Errorf("SMTP is not configured")
	}

	msg, err := s.buildMessage(recipients, subject, body, attachmentPath)
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
	var auth smtp.Auth
	if s.cfg.Username != "" {
		auth = smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)
	}

	if err := smtp.SendMail(addr, auth, s.cfg.From, recipients, msg); err != nil {
		s.logger.LogNotification(len(recipients), subject, err)
		return fmt.Errorf("email send failed: %w", err)
	}

	s.logger.LogNotification(len(recipients), subject, nil)
	return nil
}

// buildMessage assembles an RFC 5322 message, multipart/mixed when an
// attachment is present.
func (s *Service) buildMessage(recipients []string, subject, body, attachmentPath string) ([]byte, error) {
	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("From: %s\r\n", s.cfg.From))
	msg.WriteString(fmt.Sprintf("To: %s\r\n", strings.Join(recipients, ", ")))
	msg.WriteString(fmt.Sprintf("Subject: %s\r\n", subject))

	if attachmentPath == "" {
		msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
		msg.WriteString("\r\n")
		msg.WriteString(body)
		return []byte(msg.String()), nil
	}

	content, err := os.ReadFile(attachmentPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}

	boundary := "reportops-" + randomBoundary()
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString(fmt.Sprintf("Content-Type: multipart/mixed; boundary=\"%s\"\r\n", boundary))
	msg.WriteString("\r\n")

	// Body part.
	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	msg.WriteString("\r\n")
	msg.WriteString(body)
	msg.WriteString("\r\n")

	// Attachment part. base64 keeps lines within the RFC 5322 limit.
	fileName := filepath.Base(attachmentPath)
	msg.WriteString(fmt.Sprintf("--%s\r\n", boundary))
	msg.WriteString(fmt.Sprintf("Content-Type: %s; name=\"%s\"\r\n", xlsxContentType, fileName))
	msg.WriteString("Content-Transfer-Encoding: base64\r\n")
	msg.WriteString(fmt.Sprintf("Content-Disposition: attachment; filename=\"%s\"\r\n", fileName))
	msg.WriteString("\r\n")
	msg.WriteString(encodeBase64WithLineBreaks(content))
	msg.WriteString("\r\n")

	msg.WriteString(fmt.Sprintf("--%s--\r\n", boundary))
	return []byte(msg.String()), nil
}

// IsAuthError reports whether the send failure looks like an SMTP
// authentication problem, so callers can surface a clearer message.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "535") ||
		strings.Contains(msg, "authentication failed") ||
		strings.Contains(msg, "username and password not accepted")
}

func randomBoundary() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// encodeBase64WithLineBreaks encodes content in base64 with 76-character
// lines per RFC 2045.
func encodeBase64WithLineBreaks(content []byte) string {
	encoded := base64.StdEncoding.EncodeToString(content)

	var out strings.Builder
	for len(encoded) > 76 {
		out.WriteString(encoded[:76])
		out.WriteString("\r\n")
		encoded = encoded[76:]
	}
	out.WriteString(encoded)
	return out.String()
}

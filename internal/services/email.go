package services

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/yuin/goldmark"
)

const sendGridMailPath = "/v3/mail/send"

// EmailSender delivers a rendered message to one recipient
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, content string) error
}

// EmailService sends mail through SendGrid with a plain-text and an HTML part
type EmailService struct {
	apiKey string
	host   string
	from   *mail.Email
	logger *slog.Logger
}

// NewEmailService creates a SendGrid-backed sender. An empty host uses SendGrid's API.
func NewEmailService(apiKey, fromEmail, fromName, host string, logger *slog.Logger) *EmailService {
	return &EmailService{
		apiKey: apiKey,
		host:   strings.TrimRight(host, "/"),
		from:   mail.NewEmail(fromName, fromEmail),
		logger: logger,
	}
}

func (s *EmailService) SendEmail(ctx context.Context, to, subject, content string) error {
	if to == "" {
		return validationError("recipient is required")
	}

	htmlContent, err := renderHTML(content)
	if err != nil {
		return fmt.Errorf("%w: render html: %v", ErrDispatchFailed, err)
	}
	msg := mail.NewSingleEmail(s.from, subject, mail.NewEmail("", to), content, htmlContent)

	// SendWithContext writes the body onto the client, so each send gets its own
	client := sendgrid.NewSendClient(s.apiKey)
	if s.host != "" {
		client.BaseURL = s.host + sendGridMailPath
	}

	resp, err := client.SendWithContext(ctx, msg)
	if err != nil {
		s.logger.Error("sendgrid request failed", "to", to, "error", err)
		return fmt.Errorf("%w: %v", ErrDispatchFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		s.logger.Error("sendgrid rejected email", "to", to, "status", resp.StatusCode, "body", resp.Body)
		return fmt.Errorf("%w: status %d", ErrDispatchFailed, resp.StatusCode)
	}

	s.logger.Info("email sent", "to", to, "status", resp.StatusCode)
	return nil
}

// renderHTML converts markdown-ish model output into the HTML email body
func renderHTML(content string) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(content), &buf); err != nil {
		return "", err
	}
	return "<div style='font-family: Arial, sans-serif;'>" + buf.String() + "</div>", nil
}

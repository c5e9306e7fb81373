// Package email delivers e-bills and account mail through SendGrid.
package email

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"net/mail"

	"github.com/cloudpos/backend/internal/domain/notification"
	"github.com/cloudpos/backend/internal/infrastructure/config"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

const (
	defaultHost = "https://api.sendgrid.com"
	endpoint    = "/v3/mail/send"
)

var _ notification.EmailSender = (*SendGridSender)(nil)

// SendGridSender sends mail with the SendGrid v3 API
type SendGridSender struct {
	key    string
	host   string
	from   *sgmail.Email
	logger *zap.Logger
}

// NewSendGridSender creates the sender. host may be empty for the public API.
func NewSendGridSender(cfg *config.EmailConfig, host string, logger *zap.Logger) (*SendGridSender, error) {
	if cfg == nil || cfg.APIKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if _, err := mail.ParseAddress(cfg.FromEmail); err != nil {
		return nil, fmt.Errorf("invalid from address: %w", err)
	}
	if host == "" {
		host = defaultHost
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SendGridSender{
		key:    cfg.APIKey,
		host:   host,
		from:   sgmail.NewEmail(cfg.FromName, cfg.FromEmail),
		logger: logger,
	}, nil
}

// Send delivers one message synchronously so callers can record the outcome
func (s *SendGridSender) Send(ctx context.Context, msg notification.Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(msg.To); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}
	if msg.PlainText == "" && msg.HTML == "" && len(msg.Attachments) == 0 {
		return errors.New("email has no content")
	}

	req := sendgrid.GetRequest(s.key, endpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.API(req)
	if err != nil {
		s.logger.Error("SendGrid request failed", zap.String("to", msg.To), zap.Error(err))
		return fmt.Errorf("sendgrid request: %w", err)
	}
	if res.StatusCode >= 400 {
		s.logger.Warn("SendGrid rejected message",
			zap.String("to", msg.To),
			zap.Int("status", res.StatusCode),
			zap.String("body", res.Body),
		)
		return fmt.Errorf("sendgrid returned status %d", res.StatusCode)
	}
	s.logger.Debug("Email sent", zap.String("to", msg.To), zap.String("subject", msg.Subject))
	return nil
}

func (s *SendGridSender) prepare(msg notification.Email) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)

	// text/plain must precede text/html
	if msg.PlainText != "" {
		m.AddContent(sgmail.NewContent("text/plain", msg.PlainText))
	}
	if msg.HTML != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTML))
	}

	for _, a := range msg.Attachments {
		m.AddAttachment(&sgmail.Attachment{
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			Type:        a.ContentType,
			Filename:    a.Filename,
			Disposition: "attachment",
		})
	}
	return m
}

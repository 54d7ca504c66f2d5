package notify

import (
	"context"
	"fmt"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

// EmailSender delivers one message.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single-recipient email. Category and Args are attached
// for delivery analytics and never shown to the recipient.
type EmailMessage struct {
	To       string
	ToName   string
	Subject  string
	Text     string
	HTML     string
	Category string
	Args     map[string]string
}

type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
	// Sandbox validates messages without delivering them.
	Sandbox bool
	// Host overrides https://api.sendgrid.com.
	Host string
}

// SendGridSender posts to the v3 mail/send endpoint.
type SendGridSender struct {
	client  *sendgrid.Client
	from    *mail.Email
	sandbox bool
	logger  *logging.Logger
}

// NewSendGridSender returns nil without an API key.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = "Hospital Appointments"
	}
	request := sendgrid.GetRequest(cfg.APIKey, "/v3/mail/send", cfg.Host)
	request.Method = "POST"
	return &SendGridSender{
		client:  &sendgrid.Client{Request: request},
		from:    mail.NewEmail(cfg.FromName, cfg.FromEmail),
		sandbox: cfg.Sandbox,
		logger:  logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	response, err := s.client.SendWithContext(ctx, s.build(msg))
	if err != nil {
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Warn("sendgrid rejected message", "status", response.StatusCode, "body", response.Body, "category", msg.Category)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}
	s.logger.Debug("email accepted", "category", msg.Category, "status", response.StatusCode, "sandbox", s.sandbox)
	return nil
}

func (s *SendGridSender) build(msg EmailMessage) *mail.SGMailV3 {
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	for k, v := range msg.Args {
		p.SetCustomArg(k, v)
	}

	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject
	m.AddPersonalizations(p)
	if msg.Text != "" {
		m.AddContent(mail.NewContent("text/plain", msg.Text))
	}
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	if msg.Category != "" {
		m.AddCategories(msg.Category)
	}
	if s.sandbox {
		settings := mail.NewMailSettings()
		settings.SetSandboxMode(mail.NewSetting(true))
		m.SetMailSettings(settings)
	}
	return m
}

// LogSender only logs. Bootstrap falls back to it when SendGrid is not configured.
type LogSender struct {
	logger *logging.Logger
}

func NewLogSender(logger *logging.Logger) *LogSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg EmailMessage) error {
	s.logger.Info("email not sent, no provider configured", "category", msg.Category, "subject", msg.Subject)
	return nil
}

package bootstrap

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/hospital-booking-platform/internal/assistant"
	appconfig "github.com/wolfman30/hospital-booking-platform/internal/config"
	"github.com/wolfman30/hospital-booking-platform/internal/notify"
	"github.com/wolfman30/hospital-booking-platform/internal/payments"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

// BuildResponder wires the Gemini responder. Without an API key the assistant
// answers from its knowledge base alone and nil is returned.
func BuildResponder(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*assistant.GeminiResponder, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
		logger.Info("gemini api key not set, assistant uses knowledge base answers")
		return nil, nil
	}
	responder, err := assistant.NewGeminiResponder(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
	if err != nil {
		return nil, err
	}
	logger.Info("assistant llm enabled", "model", cfg.GeminiModelID)
	return responder, nil
}

// BuildEmailSender returns SendGrid when configured and a log-only sender otherwise.
func BuildEmailSender(cfg *appconfig.Config, logger *logging.Logger) notify.EmailSender {
	if sender := notify.NewSendGridSender(notify.SendGridConfig{
		APIKey:    cfg.SendGridAPIKey,
		FromEmail: cfg.SendGridFromEmail,
		FromName:  cfg.SendGridFromName,
		Sandbox:   cfg.SendGridSandbox,
	}, logger); sender != nil {
		return sender
	}
	return notify.NewLogSender(logger)
}

// BuildPaymentGateway returns the Razorpay client. Missing credentials put it
// in dry-run mode outside production.
func BuildPaymentGateway(cfg *appconfig.Config, logger *logging.Logger) (*payments.RazorpayClient, error) {
	if logger == nil {
		logger = logging.Default()
	}
	client := payments.NewRazorpayClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, logger).
		WithBaseURL(cfg.RazorpayBaseURL)
	if cfg.RazorpayKeyID == "" || cfg.RazorpayKeySecret == "" {
		if strings.EqualFold(cfg.Env, "production") {
			return nil, fmt.Errorf("bootstrap: RAZORPAY_KEY_ID and RAZORPAY_KEY_SECRET are required in production")
		}
		logger.Warn("razorpay credentials not set, payment orders run in dry-run mode")
		client = client.WithDryRun(true)
	}
	return client, nil
}

// BusinessLocation resolves the timezone that defines "today" for bookings.
func BusinessLocation(cfg *appconfig.Config) (*time.Location, error) {
	name := strings.TrimSpace(cfg.BusinessTimezone)
	if name == "" {
		name = "Asia/Kolkata"
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: load timezone %q: %w", name, err)
	}
	return loc, nil
}

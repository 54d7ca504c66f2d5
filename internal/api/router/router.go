package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/hospital-booking-platform/internal/appointments"
	"github.com/wolfman30/hospital-booking-platform/internal/assistant"
	"github.com/wolfman30/hospital-booking-platform/internal/compliance"
	httpmiddleware "github.com/wolfman30/hospital-booking-platform/internal/http/middleware"
	"github.com/wolfman30/hospital-booking-platform/internal/payments"
	"github.com/wolfman30/hospital-booking-platform/internal/profiles"
	"github.com/wolfman30/hospital-booking-platform/internal/settings"
	"github.com/wolfman30/hospital-booking-platform/internal/users"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

// Config holds router configuration. Nil handlers leave their routes out.
type Config struct {
	Logger              *logging.Logger
	UsersHandler        *users.Handler
	AppointmentsHandler *appointments.Handler
	SettingsHandler     *settings.Handler
	ProfilesHandler     *profiles.Handler
	PaymentsHandler     *payments.Handler
	PaymentsWebhook     *payments.RazorpayWebhookHandler
	AssistantHandler    *assistant.Handler
	AuditHandler        *compliance.Handler
	QueueBoard          http.Handler
	MetricsHandler      http.Handler
	StatsHandler        http.Handler
	HealthChecks        map[string]HealthCheck

	UserJWTSecret      string
	AdminJWTSecret     string
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	r.Group(func(public chi.Router) {
		public.Get("/health", healthHandler(cfg.HealthChecks))
		if cfg.MetricsHandler != nil {
			public.Handle("/metrics", cfg.MetricsHandler)
		}
		if cfg.QueueBoard != nil {
			public.Handle("/ws/queue", cfg.QueueBoard)
		}
		if cfg.PaymentsWebhook != nil {
			public.Post("/api/webhooks/razorpay", cfg.PaymentsWebhook.Handle)
		}
		if cfg.UsersHandler != nil {
			public.Group(func(auth chi.Router) {
				if cfg.RateLimitRPS > 0 {
					auth.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
				}
				auth.Post("/api/register", cfg.UsersHandler.Register)
				auth.Post("/api/login", cfg.UsersHandler.Login)
			})
		}
	})

	r.Group(func(user chi.Router) {
		user.Use(httpmiddleware.UserJWT(cfg.UserJWTSecret))
		if cfg.RateLimitRPS > 0 {
			user.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		}

		user.Route("/api/appointments", func(r chi.Router) {
			if cfg.SettingsHandler != nil {
				r.Get("/config", cfg.SettingsHandler.Get)
			}
			if cfg.AppointmentsHandler != nil {
				cfg.AppointmentsHandler.Routes(r)
			}
		})
		if cfg.PaymentsHandler != nil {
			user.Route("/api/payments", func(r chi.Router) {
				r.Post("/orders", cfg.PaymentsHandler.CreateOrder)
				r.Post("/verify", cfg.PaymentsHandler.Verify)
			})
		}
		if cfg.ProfilesHandler != nil {
			user.Route("/api/profiles", cfg.ProfilesHandler.Routes)
		}
		if cfg.AssistantHandler != nil {
			user.Post("/api/chat", cfg.AssistantHandler.Chat)
			user.Get("/api/chat/history", cfg.AssistantHandler.History)
		}
	})

	if cfg.SettingsHandler != nil || cfg.AuditHandler != nil || cfg.StatsHandler != nil {
		r.Route("/admin", func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminJWT(cfg.AdminJWTSecret))
			if cfg.SettingsHandler != nil {
				admin.Get("/appointments/config", cfg.SettingsHandler.Get)
				admin.Put("/appointments/config", cfg.SettingsHandler.Update)
			}
			if cfg.AuditHandler != nil {
				admin.Get("/audit", cfg.AuditHandler.List)
			}
			if cfg.StatsHandler != nil {
				admin.Handle("/stats", cfg.StatsHandler)
			}
		})
	}

	return r
}

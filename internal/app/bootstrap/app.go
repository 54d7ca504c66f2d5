package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/hospital-booking-platform/internal/api/router"
	"github.com/wolfman30/hospital-booking-platform/internal/appointments"
	"github.com/wolfman30/hospital-booking-platform/internal/assistant"
	"github.com/wolfman30/hospital-booking-platform/internal/compliance"
	appconfig "github.com/wolfman30/hospital-booking-platform/internal/config"
	"github.com/wolfman30/hospital-booking-platform/internal/events"
	"github.com/wolfman30/hospital-booking-platform/internal/notify"
	"github.com/wolfman30/hospital-booking-platform/internal/observability/metrics"
	"github.com/wolfman30/hospital-booking-platform/internal/payments"
	"github.com/wolfman30/hospital-booking-platform/internal/profiles"
	"github.com/wolfman30/hospital-booking-platform/internal/queueboard"
	"github.com/wolfman30/hospital-booking-platform/internal/scheduling"
	"github.com/wolfman30/hospital-booking-platform/internal/settings"
	"github.com/wolfman30/hospital-booking-platform/internal/users"
	"github.com/wolfman30/hospital-booking-platform/pkg/logging"
)

const devJWTSecret = "dev-only-insecure-secret"

// App is the wired API. Run the Hub for the lifetime of the server and call
// Close on shutdown.
type App struct {
	Handler http.Handler
	Hub     *queueboard.Hub
	// Pruner forgets old webhook ids; run it alongside the Hub.
	Pruner  *events.Pruner
	closers []func()
}

func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// Build wires every store, service and handler from cfg. Without DATABASE_URL
// all stores are in memory.
func Build(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	app := &App{}
	fail := func(err error) (*App, error) {
		app.Close()
		return nil, err
	}

	jwtSecret := cfg.JWTSecret
	if jwtSecret == "" {
		if strings.EqualFold(cfg.Env, "production") {
			return nil, fmt.Errorf("bootstrap: JWT_SECRET is required in production")
		}
		logger.Warn("JWT_SECRET not set, using an insecure development secret")
		jwtSecret = devJWTSecret
	}

	loc, err := BusinessLocation(cfg)
	if err != nil {
		return nil, err
	}
	defaults := scheduling.Limits{MaxDailyAppointments: cfg.DefaultMaxDailyAppointments, MaxPerHour: cfg.DefaultMaxPerHour}
	if defaults.Validate() != nil {
		defaults = scheduling.DefaultLimits()
	}

	pool, err := ConnectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fail(err)
	}
	if pool != nil {
		app.closers = append(app.closers, pool.Close)
	}
	sqlDB, err := OpenSQLDB(ctx, cfg.DatabaseURL)
	if err != nil {
		return fail(err)
	}
	if sqlDB != nil {
		app.closers = append(app.closers, func() { _ = sqlDB.Close() })
	}
	redisClient := BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		app.closers = append(app.closers, func() { _ = redisClient.Close() })
	}

	checks := map[string]router.HealthCheck{}
	var (
		settingsRepo settings.Repository
		apptStore    appointments.Store
		usersRepo    users.Repository
		profilesRepo profiles.Repository
		chatStore    assistant.Store
		processed    interface {
			payments.ProcessedTracker
			events.Pruneable
		}
	)
	if pool != nil {
		settingsRepo = settings.NewPostgresRepository(pool, defaults)
		apptStore = appointments.NewPostgresStore(pool)
		usersRepo = users.NewPostgresRepository(pool)
		profilesRepo = profiles.NewPostgresRepository(pool)
		processed = events.NewProcessedStore(pool)
		checks["postgres"] = pool.Ping
	} else {
		logger.Warn("DATABASE_URL not set, using in-memory stores")
		settingsRepo = settings.NewMemoryRepository(defaults)
		apptStore = appointments.NewInMemoryStore()
		usersRepo = users.NewInMemoryRepository()
		profilesRepo = profiles.NewInMemoryRepository()
		processed = events.NewMemoryProcessedStore()
	}
	if sqlDB != nil {
		chatStore = assistant.NewSQLStore(sqlDB)
	} else {
		chatStore = assistant.NewInMemoryStore()
	}
	if redisClient != nil {
		settingsRepo = settings.NewCachedRepository(settingsRepo, redisClient, cfg.ConfigCacheTTL, logger)
		checks["redis"] = func(ctx context.Context) error { return redisClient.Ping(ctx).Err() }
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	bookingMetrics := metrics.NewBookingMetrics(registry)

	hub := queueboard.NewHub(logger)
	app.Hub = hub

	settingsSvc := settings.NewService(settingsRepo)
	profilesSvc := profiles.NewService(profilesRepo)
	apptSvc := appointments.NewService(apptStore, settingsSvc, scheduling.NewValidator(loc, nil), logger,
		appointments.WithProfiles(profilesSvc),
		appointments.WithEvents(hub),
		appointments.WithMetrics(bookingMetrics),
		appointments.WithMaxAttempts(cfg.BookingMaxAttempts),
	)
	usersSvc := users.NewService(usersRepo, jwtSecret, cfg.AccessTokenTTL, logger)

	gateway, err := BuildPaymentGateway(cfg, logger)
	if err != nil {
		return fail(err)
	}
	notifier := notify.NewService(BuildEmailSender(cfg, logger), cfg.FrontDeskEmail, logger)
	paymentsSvc := payments.NewService(gateway, apptSvc, notifier, gateway.KeyID(), bookingMetrics, logger)

	responder, err := BuildResponder(ctx, cfg, logger)
	if err != nil {
		return fail(err)
	}
	var chatResponder assistant.Responder
	if responder != nil {
		chatResponder = responder
		app.closers = append(app.closers, func() { _ = responder.Close() })
	}
	chatSvc := assistant.NewService(chatStore, nil, chatResponder, assistant.Facts{
		HospitalName:    cfg.HospitalName,
		ConsultationFee: int64(cfg.ConsultationFeeRupees),
	}, logger)

	var webhookHandler *payments.RazorpayWebhookHandler
	if cfg.RazorpayWebhookSecret != "" {
		webhookHandler = payments.NewRazorpayWebhookHandler(cfg.RazorpayWebhookSecret, paymentsSvc, processed, logger)
	} else {
		logger.Info("RAZORPAY_WEBHOOK_SECRET not set, payment webhook disabled")
	}

	var auditHandler *compliance.Handler
	if sqlDB != nil {
		auditSvc := compliance.NewAuditService(sqlDB)
		paymentsSvc.SetAuditor(auditSvc)
		chatSvc.SetAuditor(auditSvc)
		auditHandler = compliance.NewHandler(auditSvc, logger)
	}

	app.Handler = router.New(&router.Config{
		Logger:              logger,
		UsersHandler:        users.NewHandler(usersSvc, logger),
		AppointmentsHandler: appointments.NewHandler(apptSvc, logger),
		SettingsHandler:     settings.NewHandler(settingsSvc, logger),
		ProfilesHandler:     profiles.NewHandler(profilesSvc, logger),
		PaymentsHandler:     payments.NewHandler(paymentsSvc, int64(cfg.ConsultationFeeRupees), logger),
		AssistantHandler:    assistant.NewHandler(chatSvc, logger),
		AuditHandler:        auditHandler,
		PaymentsWebhook:     webhookHandler,
		QueueBoard:          hub.ServeWS(originChecker(cfg.CORSAllowedOrigins)),
		MetricsHandler:      promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		StatsHandler:        metrics.StatsHandler(registry),
		HealthChecks:        checks,
		UserJWTSecret:       jwtSecret,
		AdminJWTSecret:      cfg.AdminJWTSecret,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		RateLimitRPS:        cfg.RateLimitRPS,
		RateLimitBurst:      cfg.RateLimitBurst,
	})
	app.Pruner = &events.Pruner{Store: processed, Retention: 7 * 24 * time.Hour, Interval: time.Hour, Logger: logger}
	return app, nil
}

// originChecker allows websocket upgrades from the CORS origins. With no
// origins configured any origin is accepted.
func originChecker(origins []string) func(*http.Request) bool {
	if len(origins) == 0 {
		return nil
	}
	allowed := make(map[string]struct{}, len(origins))
	for _, o := range origins {
		if o == "*" {
			return nil
		}
		allowed[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := allowed[origin]
		return ok
	}
}

package app

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/odyssey-erp/gymsuite/internal/auth"
	"github.com/odyssey-erp/gymsuite/internal/dashboard"
	"github.com/odyssey-erp/gymsuite/internal/gym"
	"github.com/odyssey-erp/gymsuite/internal/invoicing"
	"github.com/odyssey-erp/gymsuite/internal/mail"
	"github.com/odyssey-erp/gymsuite/internal/membership"
	"github.com/odyssey-erp/gymsuite/internal/observability"
	"github.com/odyssey-erp/gymsuite/internal/reports"
	"github.com/odyssey-erp/gymsuite/internal/shared"
	"github.com/odyssey-erp/gymsuite/internal/sms"
)

// Queue is the background queue both binaries hand notifications to.
type Queue interface {
	sms.Enqueuer
	mail.Enqueuer
}

// Services holds the domain services shared by the API and the worker.
type Services struct {
	GymRepo    *gym.PGRepository
	Gym        *gym.Service
	Invoicing  *invoicing.Service
	Membership *membership.Service
	Dashboard  *dashboard.Service
	Reports    *reports.Service
	Auth       *auth.Service
	SMSRepo    *sms.Repository
	SMSGateway *sms.Gateway
	Cache      *dashboard.Cache
}

// NewServices wires repositories and services on top of the shared pool.
func NewServices(cfg *Config, logger *slog.Logger, pool *pgxpool.Pool, redisClient *redis.Client, queue Queue, metrics *observability.Metrics) *Services {
	s := &Services{}
	s.GymRepo = gym.NewRepository(pool)
	s.Gym = gym.NewService(s.GymRepo)
	s.Invoicing = invoicing.NewService(invoicing.NewRepository(pool))
	s.Cache = dashboard.NewCache(redisClient, cfg.DashboardCacheTTL)
	s.Dashboard = dashboard.NewService(dashboard.NewRepository(pool), s.Invoicing, s.Cache)
	s.Reports = reports.NewService(reports.NewRepository(pool))
	s.Auth = auth.NewService(auth.NewRepository(pool), cfg.JWTSecret, cfg.JWTTTL, cfg.BillingCurrency)

	s.SMSRepo = sms.NewRepository(pool)
	s.SMSGateway = sms.NewGateway(sms.Config{
		APIURL:     cfg.SMSAPIURL,
		Username:   cfg.SMSUsername,
		Password:   cfg.SMSPassword,
		SenderID:   cfg.SMSSenderID,
		PrivateKey: cfg.SMSAPISecret,
		Timeout:    cfg.SMSTimeout,
	}, nil, logger)
	if !cfg.SMSConfigured() {
		logger.Warn("sms gateway credentials incomplete, messages will be marked failed")
	}

	s.Membership = membership.NewService(
		membership.NewRepository(pool),
		s.GymRepo,
		s.Invoicing,
		sms.NewOutbox(s.SMSRepo, queue, logger),
		membership.Config{PaymentJournal: cfg.BillingPaymentJournal, Currency: cfg.BillingCurrency},
		logger,
		membership.WithMailer(mail.NewQueue(queue)),
		membership.WithInvalidator(s.Cache),
		membership.WithAuditor(shared.NewAuditLogger(pool)),
		membership.WithObserver(metrics),
		membership.WithLocation(cfg.Location()),
	)
	return s
}

// MailConfig maps the SMTP settings.
func (c *Config) MailConfig() mail.Config {
	return mail.Config{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUsername,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
	}
}

package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/odyssey-erp/gymsuite/internal/auth"
	"github.com/odyssey-erp/gymsuite/internal/dashboard"
	"github.com/odyssey-erp/gymsuite/internal/gym"
	"github.com/odyssey-erp/gymsuite/internal/invoicing"
	"github.com/odyssey-erp/gymsuite/internal/membership"
	"github.com/odyssey-erp/gymsuite/internal/observability"
	"github.com/odyssey-erp/gymsuite/internal/reports"
	"github.com/odyssey-erp/gymsuite/internal/sms"
	"github.com/odyssey-erp/gymsuite/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	Authenticator     func(http.Handler) http.Handler
	AuthHandler       *auth.Handler
	GymHandler        *gym.Handler
	MembershipHandler *membership.Handler
	InvoiceHandler    *invoicing.Handler
	SMSHandler        *sms.Handler
	DashboardHandler  *dashboard.Handler
	ReportHandler     *reports.Handler
	JobHandler        *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	if params.AuthHandler != nil {
		r.Route("/auth", params.AuthHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.Authenticator != nil {
			r.Use(params.Authenticator)
		}
		if params.GymHandler != nil {
			params.GymHandler.MountRoutes(r)
		}
		if params.MembershipHandler != nil {
			r.Route("/memberships", params.MembershipHandler.MountRoutes)
		}
		if params.InvoiceHandler != nil {
			r.Route("/invoices", params.InvoiceHandler.MountRoutes)
		}
		if params.SMSHandler != nil {
			r.Route("/sms", params.SMSHandler.MountRoutes)
		}
		if params.DashboardHandler != nil {
			r.Route("/dashboard", params.DashboardHandler.MountRoutes)
		}
		if params.ReportHandler != nil {
			r.Route("/reports", params.ReportHandler.MountRoutes)
		}

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			if params.MembershipHandler != nil {
				r.Route("/sweeps", params.MembershipHandler.MountSweepRoutes)
			}
			if params.JobHandler != nil {
				r.Route("/jobs", params.JobHandler.MountRoutes)
			}
		})
	})

	return r
}

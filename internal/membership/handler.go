package membership

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/platform/httpx"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// Handler manages membership endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers membership routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/{id}", h.get)
	r.Delete("/{id}", h.delete)
	r.Post("/{id}/activate", h.action("activate", h.service.Activate))
	r.Post("/{id}/suspend", h.action("suspend", h.service.Suspend))
	r.Post("/{id}/cancel", h.action("cancel", h.service.Cancel))
	r.Post("/{id}/renew", h.action("renew", h.service.Renew))
	r.Post("/{id}/refund", h.action("refund", h.service.Refund))
}

// MountSweepRoutes registers manual sweep triggers. Callers must be admins.
func (h *Handler) MountSweepRoutes(r chi.Router) {
	r.Post("/recurring-invoice", h.sweep(h.service.RunRecurringInvoiceSweep))
	r.Post("/expiration", h.sweep(h.service.RunExpirationSweep))
	r.Post("/reminder", h.sweep(h.service.RunUpcomingExpirationReminderSweep))
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := ListFilter{
		Status: billing.Status(q.Get("status")),
		Unit:   billing.RecurrenceUnit(q.Get("unit")),
	}
	filter.BranchID, _ = strconv.ParseInt(q.Get("branch_id"), 10, 64)
	filter.ShiftID, _ = strconv.ParseInt(q.Get("shift_id"), 10, 64)
	filter.MemberID, _ = strconv.ParseInt(q.Get("member_id"), 10, 64)
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	items, err := h.service.List(r.Context(), rc, filter)
	if err != nil {
		h.logger.Error("list memberships", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, items)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	var req CreateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.Create(r.Context(), rc, req)
	if err != nil {
		h.logger.Warn("create membership", slog.Int64("shift_id", req.ShiftID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.Get(r.Context(), rc, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, m)
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), rc, id); err != nil {
		h.logger.Warn("delete membership", slog.Int64("membership_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type actionFunc func(context.Context, shared.RequestContext, int64) (*Membership, error)

func (h *Handler) action(name string, fn actionFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, ok := httpx.RequestContext(w, r)
		if !ok {
			return
		}
		id, err := httpx.IDParam(r, "id")
		if err != nil {
			httpx.RespondError(w, err)
			return
		}
		m, err := fn(r.Context(), rc, id)
		if err != nil {
			h.logger.Warn("membership action", slog.String("action", name), slog.Int64("membership_id", id), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, m)
	}
}

type sweepFunc func(context.Context, time.Time) (SweepResult, error)

func (h *Handler) sweep(fn sweepFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		today := h.service.Today()
		if raw := r.URL.Query().Get("date"); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				httpx.RespondError(w, shared.Validationf("date must be YYYY-MM-DD"))
				return
			}
			today = parsed
		}
		result, err := fn(r.Context(), today)
		if err != nil {
			h.logger.Error("sweep", slog.String("job", result.Job), slog.Any("error", err))
			httpx.RespondError(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, result)
	}
}

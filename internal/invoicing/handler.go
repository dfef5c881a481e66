package invoicing

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/odyssey-erp/gymsuite/internal/platform/httpx"
)

// Handler manages invoice endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers invoice routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{id}", h.get)
	r.Post("/{id}/payments", h.registerPayment)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := ListFilter{
		Type:   DocumentType(q.Get("type")),
		Status: Status(q.Get("status")),
	}
	filter.MemberID, _ = strconv.ParseInt(q.Get("member_id"), 10, 64)
	filter.MembershipID, _ = strconv.ParseInt(q.Get("membership_id"), 10, 64)
	filter.Limit, _ = strconv.Atoi(q.Get("limit"))
	filter.Offset, _ = strconv.Atoi(q.Get("offset"))
	docs, err := h.service.List(r.Context(), rc, filter)
	if err != nil {
		h.logger.Error("list invoices", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, docs)
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
	doc, err := h.service.Get(r.Context(), rc, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

type paymentRequest struct {
	Journal string          `json:"journal" validate:"required"`
	Amount  decimal.Decimal `json:"amount"`
	PaidAt  *time.Time      `json:"paid_at"`
	Memo    string          `json:"memo" validate:"max=255"`
}

func (h *Handler) registerPayment(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := h.service.Get(r.Context(), rc, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req paymentRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	input := PaymentInput{DocumentID: id, Journal: req.Journal, Amount: req.Amount, Memo: req.Memo, CreatedBy: rc.UserID}
	if req.PaidAt != nil {
		input.PaidAt = *req.PaidAt
	}
	payment, err := h.service.RegisterPayment(r.Context(), input)
	if err != nil {
		h.logger.Warn("register payment", slog.Int64("invoice_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, payment)
}

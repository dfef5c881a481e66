package sms

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/odyssey-erp/gymsuite/internal/platform/httpx"
)

// TemplateAdmin is the template persistence used by the handler.
type TemplateAdmin interface {
	ListTemplates(ctx context.Context) ([]Template, error)
	CreateTemplate(ctx context.Context, t *Template) error
}

// Handler exposes template management and direct batch sends.
type Handler struct {
	logger    *slog.Logger
	templates TemplateAdmin
	gateway   *Gateway
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, templates TemplateAdmin, gateway *Gateway) *Handler {
	return &Handler{logger: logger, templates: templates, gateway: gateway}
}

// MountRoutes registers SMS routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/templates", h.listTemplates)
	r.Post("/templates", h.createTemplate)
	r.Post("/batch", h.sendBatch)
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	templates, err := h.templates.ListTemplates(r.Context())
	if err != nil {
		h.logger.Error("list sms templates", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, templates)
}

type templateRequest struct {
	Name  string `json:"name" validate:"required,max=120"`
	Usage Usage  `json:"usage" validate:"required,oneof=activation expiration promotional other"`
	Body  string `json:"body" validate:"required"`
}

func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	var req templateRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	t := Template{Name: req.Name, Usage: req.Usage, Body: req.Body}
	if err := t.Validate(); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.templates.CreateTemplate(r.Context(), &t); err != nil {
		h.logger.Error("create sms template", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, t)
}

type batchRequest struct {
	Content string   `json:"content" validate:"required,max=918"`
	Numbers []string `json:"numbers" validate:"required,min=1,max=500,dive,required"`
}

func (h *Handler) sendBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	msg := BatchMessage{Content: req.Content}
	for _, n := range req.Numbers {
		msg.Numbers = append(msg.Numbers, Number{Number: n, UUID: uuid.NewString()})
	}
	httpx.JSON(w, http.StatusOK, h.gateway.SendBatch(r.Context(), []BatchMessage{msg}))
}

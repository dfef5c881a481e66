package gym

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/gymsuite/internal/platform/httpx"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// Handler exposes master data endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers master data routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/branches", func(r chi.Router) {
		r.Get("/", h.listBranches)
		r.Post("/", h.createBranch)
		r.Get("/{id}", h.getBranch)
		r.Patch("/{id}", h.updateBranch)
		r.Delete("/{id}", h.deleteBranch)
	})
	r.Route("/shifts", func(r chi.Router) {
		r.Get("/", h.listShifts)
		r.Post("/", h.createShift)
		r.Get("/{id}", h.getShift)
		r.Patch("/{id}", h.updateShift)
	})
	r.Route("/members", func(r chi.Router) {
		r.Get("/", h.listMembers)
		r.Post("/", h.createMember)
		r.Get("/{id}", h.getMember)
		r.Patch("/{id}", h.updateMember)
		r.Get("/{id}/measurements", h.listMeasurements)
		r.Post("/{id}/measurements", h.recordMeasurement)
	})
	r.Get("/membership-states", h.listStates)
	r.Get("/products", h.listProducts)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) listBranches(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	branches, err := h.service.ListBranches(r.Context(), rc)
	if err != nil {
		h.fail(w, "list branches", err)
		return
	}
	httpx.JSON(w, http.StatusOK, branches)
}

func (h *Handler) createBranch(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	var req CreateBranchRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	branch, err := h.service.CreateBranch(r.Context(), rc, req)
	if err != nil {
		h.fail(w, "create branch", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, branch)
}

func (h *Handler) getBranch(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	branch, err := h.service.GetBranch(r.Context(), rc, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, branch)
}

func (h *Handler) updateBranch(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateBranchRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	branch, err := h.service.UpdateBranch(r.Context(), rc, id, req)
	if err != nil {
		h.fail(w, "update branch", err)
		return
	}
	httpx.JSON(w, http.StatusOK, branch)
}

func (h *Handler) deleteBranch(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.DeleteBranch(r.Context(), rc, id); err != nil {
		h.fail(w, "delete branch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listShifts(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	branchID, _ := strconv.ParseInt(r.URL.Query().Get("branch_id"), 10, 64)
	shifts, err := h.service.ListShifts(r.Context(), rc, branchID)
	if err != nil {
		h.fail(w, "list shifts", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shifts)
}

func (h *Handler) createShift(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	var req CreateShiftRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	shift, err := h.service.CreateShift(r.Context(), rc, req)
	if err != nil {
		h.fail(w, "create shift", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shift)
}

func (h *Handler) getShift(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	shift, err := h.service.GetShift(r.Context(), rc, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) updateShift(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateShiftRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	shift, err := h.service.UpdateShift(r.Context(), rc, id, req)
	if err != nil {
		h.fail(w, "update shift", err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) listMembers(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	req := ListMembersRequest{Search: q.Get("search")}
	req.BranchID, _ = strconv.ParseInt(q.Get("branch_id"), 10, 64)
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))
	members, err := h.service.ListMembers(r.Context(), rc, req)
	if err != nil {
		h.fail(w, "list members", err)
		return
	}
	httpx.JSON(w, http.StatusOK, members)
}

func (h *Handler) createMember(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	var req CreateMemberRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	member, err := h.service.CreateMember(r.Context(), rc, req)
	if err != nil {
		h.fail(w, "create member", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, member)
}

func (h *Handler) getMember(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	member, err := h.service.GetMember(r.Context(), rc, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

func (h *Handler) updateMember(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateMemberRequest
	if err := httpx.DecodeAndValidate(r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	member, err := h.service.UpdateMember(r.Context(), rc, id, req)
	if err != nil {
		h.fail(w, "update member", err)
		return
	}
	httpx.JSON(w, http.StatusOK, member)
}

type measurementView struct {
	Measurement
	BMI         float64 `json:"bmi"`
	BMICategory string  `json:"bmi_category"`
}

func (h *Handler) listMeasurements(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	from, err := dateQuery(r, "from")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	to, err := dateQuery(r, "to")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	items, err := h.service.ListMeasurements(r.Context(), rc, id, from, to)
	if err != nil {
		h.fail(w, "list measurements", err)
		return
	}
	views := make([]measurementView, 0, len(items))
	for _, m := range items {
		views = append(views, measurementView{Measurement: m, BMI: m.BMI(), BMICategory: m.BMICategory()})
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) recordMeasurement(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	id, err := httpx.IDParam(r, "id")
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req CreateMeasurementRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, shared.Validationf("malformed body: %v", err))
		return
	}
	req.MemberID = id
	m, err := h.service.RecordMeasurement(r.Context(), rc, req)
	if err != nil {
		h.fail(w, "record measurement", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, measurementView{Measurement: *m, BMI: m.BMI(), BMICategory: m.BMICategory()})
}

func (h *Handler) listStates(w http.ResponseWriter, r *http.Request) {
	states, err := h.service.ListStates(r.Context())
	if err != nil {
		h.fail(w, "list states", err)
		return
	}
	httpx.JSON(w, http.StatusOK, states)
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.service.ListProducts(r.Context())
	if err != nil {
		h.fail(w, "list products", err)
		return
	}
	httpx.JSON(w, http.StatusOK, products)
}

func dateQuery(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, shared.Validationf("%s must be YYYY-MM-DD", key)
	}
	return &t, nil
}

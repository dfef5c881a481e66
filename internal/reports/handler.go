package reports

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/gymsuite/internal/billing"
	"github.com/odyssey-erp/gymsuite/internal/platform/httpx"
	"github.com/odyssey-erp/gymsuite/internal/shared"
)

// Handler serves reports as JSON or, with ?format=csv, as a CSV download.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers report routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/memberships", h.membershipReport)
	r.Get("/measurements", h.measurementReport)
	r.Get("/sales", h.salesReport)
}

func (h *Handler) fail(w http.ResponseWriter, msg string, err error) {
	h.logger.Warn(msg, slog.Any("error", err))
	httpx.RespondError(w, err)
}

func (h *Handler) membershipReport(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := MembershipFilter{
		Status: billing.Status(q.Get("status")),
		Unit:   billing.RecurrenceUnit(q.Get("unit")),
	}
	var err error
	if filter.BranchID, err = idQuery(r, "branch_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if filter.ShiftID, err = idQuery(r, "shift_id"); err != nil {
		httpx.RespondError(w, err)
		return
	}
	report, err := h.service.MembershipReport(r.Context(), rc, filter)
	if err != nil {
		h.fail(w, "membership report", err)
		return
	}
	h.render(w, r, "membership_report.csv", report, func(out io.Writer) error {
		return WriteMembershipCSV(out, report)
	})
}

func (h *Handler) measurementReport(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	memberID, err := idQuery(r, "member_id")
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
	report, err := h.service.MeasurementReport(r.Context(), rc, memberID, from, to)
	if err != nil {
		h.fail(w, "measurement report", err)
		return
	}
	h.render(w, r, "measurement_report.csv", report, func(out io.Writer) error {
		return WriteMeasurementCSV(out, report)
	})
}

func (h *Handler) salesReport(w http.ResponseWriter, r *http.Request) {
	rc, ok := httpx.RequestContext(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	filter := SalesFilter{
		Type:    SalesReportType(q.Get("type")),
		GroupBy: SalesGrouping(q.Get("group_by")),
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
	if from != nil {
		filter.From = *from
	}
	if to != nil {
		filter.To = *to
	}
	ids := map[string]*int64{
		"user_id":            &filter.UserID,
		"company_id":         &filter.CompanyID,
		"team_id":            &filter.TeamID,
		"customer_id":        &filter.CustomerID,
		"product_id":         &filter.ProductID,
		"category_id":        &filter.CategoryID,
		"parent_category_id": &filter.ParentCategoryID,
	}
	for key, dst := range ids {
		if *dst, err = idQuery(r, key); err != nil {
			httpx.RespondError(w, err)
			return
		}
	}
	report, err := h.service.SalesReport(r.Context(), rc, filter)
	if err != nil {
		h.fail(w, "sales report", err)
		return
	}
	filename := fmt.Sprintf("sales_%s_%s.csv", filter.From.Format(csvDate), filter.To.Format(csvDate))
	h.render(w, r, filename, report, func(out io.Writer) error {
		return WriteSalesCSV(out, report)
	})
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, filename string, report any, writeCSV func(io.Writer) error) {
	if r.URL.Query().Get("format") != "csv" {
		httpx.JSON(w, http.StatusOK, report)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	if err := writeCSV(w); err != nil {
		h.logger.Error("write csv", slog.String("file", filename), slog.Any("error", err))
	}
}

func idQuery(r *http.Request, key string) (int64, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, shared.Validationf("invalid %s", key)
	}
	return id, nil
}

func dateQuery(r *http.Request, key string) (*time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return nil, nil
	}
	t, err := time.Parse(csvDate, raw)
	if err != nil {
		return nil, shared.Validationf("%s must be YYYY-MM-DD", key)
	}
	return &t, nil
}

package reporting_api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"ms-queueskip/internal/logger"
	"ms-queueskip/internal/reporting"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	ReportingService *reporting.Service
	Logger           *logger.Logger
}

func NewHandler(reportingService *reporting.Service, log *logger.Logger) *Handler {
	return &Handler{
		ReportingService: reportingService,
		Logger:           log,
	}
}

const defaultPageSize = 50

// ListSales serves paginated confirmed sales with optional filters:
// ?venueId=&from=&to=&sortBy=&sortDesc=&page=&pageSize=
func (h *Handler) ListSales(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "ListSales: received request")

	options := reporting.SaleListOptions{
		VenueID:  r.URL.Query().Get("venueId"),
		SortBy:   r.URL.Query().Get("sortBy"),
		SortDesc: r.URL.Query().Get("sortDesc") == "true",
	}
	options.From, options.To = parseDateRange(r)
	options.Limit, options.Offset = parsePage(r)

	list, err := h.ReportingService.ListSales(r.Context(), options)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListSales: failed to list sales: %v", err))
		http.Error(w, "Failed to retrieve sales: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(list); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListSales: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("ListSales: returned %d of %d sales", len(list.Sales), list.Total))
}

// ListAuditLog serves the payment audit trail:
// ?venueId=&sessionId=&status=&page=&pageSize=
func (h *Handler) ListAuditLog(w http.ResponseWriter, r *http.Request) {
	h.Logger.Info("API", "ListAuditLog: received request")

	options := reporting.AuditListOptions{
		VenueID:   r.URL.Query().Get("venueId"),
		SessionID: r.URL.Query().Get("sessionId"),
		Status:    r.URL.Query().Get("status"),
	}
	options.Limit, options.Offset = parsePage(r)

	entries, err := h.ReportingService.ListAuditLog(r.Context(), options)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListAuditLog: failed to list audit entries: %v", err))
		http.Error(w, "Failed to retrieve audit log: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(entries); err != nil {
		h.Logger.Error("API", fmt.Sprintf("ListAuditLog: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("ListAuditLog: returned %d entries", len(entries)))
}

// GetVenueSummary serves daily revenue and sale counts for one venue:
// ?from=&to= (RFC 3339 dates, defaults to the last 30 days)
func (h *Handler) GetVenueSummary(w http.ResponseWriter, r *http.Request) {
	venueID := chi.URLParam(r, "venueId")
	h.Logger.Info("API", fmt.Sprintf("GetVenueSummary: venueId=%s", venueID))

	from, to := parseDateRange(r)
	if to.IsZero() {
		to = time.Now().UTC()
	}
	if from.IsZero() {
		from = to.AddDate(0, 0, -30)
	}

	summary, err := h.ReportingService.GetVenueSummary(r.Context(), venueID, from, to)
	if err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetVenueSummary: failed to compute summary: %v", err))
		http.Error(w, "Failed to retrieve venue summary: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		h.Logger.Error("API", fmt.Sprintf("GetVenueSummary: failed to encode response: %v", err))
		return
	}
	h.Logger.Info("API", fmt.Sprintf("GetVenueSummary: response sent for venue %s", venueID))
}

func parseDateRange(r *http.Request) (from, to time.Time) {
	if v := r.URL.Query().Get("from"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			from = parsed
		}
	}
	if v := r.URL.Query().Get("to"); v != "" {
		if parsed, err := time.Parse(time.RFC3339, v); err == nil {
			to = parsed
		}
	}
	return from, to
}

func parsePage(r *http.Request) (limit, offset int) {
	limit = defaultPageSize
	if v := r.URL.Query().Get("pageSize"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	page := 1
	if v := r.URL.Query().Get("page"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil && parsed > 0 {
			page = parsed
		}
	}
	return limit, (page - 1) * limit
}

package api

import (
	"net/http"
	"strings"

	service "github.com/okian/kam/internal/app"
	"github.com/okian/kam/internal/domain/access"
	"github.com/okian/kam/internal/domain/analytics"
	"github.com/okian/kam/pkg/logger"
)

// AnalyticsService computes the analytics pages.
type AnalyticsService interface {
	Dashboard(p access.Principal) service.DashboardView
	Complaints(p access.Principal, tags []string, search string) service.ComplaintsView
	RetailerStats(p access.Principal) service.RetailersView
	Scatter(p access.Principal) []analytics.ScatterPoint
}

// AnalyticsHandler serves dashboard figures.
type AnalyticsHandler struct {
	deps   AnalyticsService
	logger logger.Logger
}

// NewAnalyticsHandler creates a new analytics handler.
func NewAnalyticsHandler(deps AnalyticsService, l logger.Logger) *AnalyticsHandler {
	return &AnalyticsHandler{deps: deps, logger: l}
}

// HandleDashboard handles GET /api/analytics/dashboard.
func (h *AnalyticsHandler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	view := h.deps.Dashboard(principal(r))
	view.TopUnderperformers = items(view.TopUnderperformers)
	writeJSON(w, http.StatusOK, view)
}

// HandleComplaints handles GET /api/analytics/complaints. Tags come as
// repeated or comma separated "tags" parameters.
func (h *AnalyticsHandler) HandleComplaints(w http.ResponseWriter, r *http.Request) {
	var tags []string
	for _, v := range r.URL.Query()["tags"] {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				tags = append(tags, t)
			}
		}
	}
	view := h.deps.Complaints(principal(r), tags, r.URL.Query().Get("q"))
	view.Tags = items(view.Tags)
	view.Timeline = items(view.Timeline)
	view.Affected = items(view.Affected)
	writeJSON(w, http.StatusOK, view)
}

// HandleRetailers handles GET /api/analytics/retailers.
func (h *AnalyticsHandler) HandleRetailers(w http.ResponseWriter, r *http.Request) {
	view := h.deps.RetailerStats(principal(r))
	view.Counts = items(view.Counts)
	view.Performance = items(view.Performance)
	writeJSON(w, http.StatusOK, view)
}

// HandleScatter handles GET /api/analytics/scatter.
func (h *AnalyticsHandler) HandleScatter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, items(h.deps.Scatter(principal(r))))
}

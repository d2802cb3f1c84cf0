package web

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"pricing-backend/internal/app"
)

// getFilters handles GET /api/filters/{clientID}. Filter values are global
// today; the client id is accepted for forward compatibility with per-client
// inventory scoping and only logged.
func (h *Handler) getFilters(w http.ResponseWriter, r *http.Request) {
	h.log.WithField("client_id", chi.URLParam(r, "clientID")).Debug("filters requested")
	filters, err := h.svc.GetFilters(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, filters)
}

// occupancyMetrics handles GET /api/metrics/occupancy?buildingId=&startDate=&endDate=.
func (h *Handler) occupancyMetrics(w http.ResponseWriter, r *http.Request) {
	buildingID := r.URL.Query().Get("buildingId")
	if buildingID == "" {
		writeError(w, r, "buildingId is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	start, err := queryDate(r, "startDate")
	if err != nil || start == nil {
		writeError(w, r, "startDate is required, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	end, err := queryDate(r, "endDate")
	if err != nil || end == nil {
		writeError(w, r, "endDate is required, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.OccupancyMetrics(r.Context(), app.OccupancyQuery{
		BuildingID: buildingID,
		StartDate:  *start,
		EndDate:    *end,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// runBatchJob handles POST /api/batch/run?job=product|booking|price|building.
func (h *Handler) runBatchJob(w http.ResponseWriter, r *http.Request) {
	job := r.URL.Query().Get("job")
	if job == "" {
		writeError(w, r, "job is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	start := time.Now()
	result, err := h.svc.RunIngestJob(r.Context(), job)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	h.log.WithField("duration", time.Since(start).String()).Debug("batch job served")
	writeJSON(w, result)
}

// runSync handles POST /api/sync/run, pushing unsynced confirmations to the
// hotel API.
func (h *Handler) runSync(w http.ResponseWriter, r *http.Request) {
	report, err := h.svc.SyncConfirmations(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, report)
}

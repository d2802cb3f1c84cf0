package web

import (
	"net/http"
	"strings"

	"pricing-backend/internal/app"
	"pricing-backend/internal/core"
)

// getPricingConfig handles GET /api/config/pricing.
func (h *Handler) getPricingConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.svc.GetPricingConfig(r.Context()))
}

// updatePricingConfig handles PUT /api/config/pricing. The acting user comes
// from the X-User-Id header and must be an ADMIN; omitted body fields keep
// their current value.
func (h *Handler) updatePricingConfig(w http.ResponseWriter, r *http.Request) {
	var body struct {
		TargetOccupancy *string `json:"targetOccupancy"`
		Sensitivity     *string `json:"sensitivity"`
		WindowDays      *int    `json:"windowDays" validate:"omitempty,gt=0"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if err := h.validate.Struct(body); err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	target, err := parseDecimalPtr(body.TargetOccupancy)
	if err != nil {
		writeError(w, r, "invalid targetOccupancy", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	sensitivity, err := parseDecimalPtr(body.Sensitivity)
	if err != nil {
		writeError(w, r, "invalid sensitivity", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	result, err := h.svc.UpdatePricingConfig(r.Context(), app.UpdateConfigRequest{
		UserID:          strings.TrimSpace(r.Header.Get("X-User-Id")),
		TargetOccupancy: target,
		Sensitivity:     sensitivity,
		WindowDays:      body.WindowDays,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// runRecommendations handles POST /api/recommendations/run?currency=USD.
func (h *Handler) runRecommendations(w http.ResponseWriter, r *http.Request) {
	result, err := h.svc.RunRecommendations(r.Context(), r.URL.Query().Get("currency"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, result)
}

// listRecommendations handles GET /api/recommendations/{productID}.
func (h *Handler) listRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.ListRecommendations(r.Context(), productID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if recs == nil {
		recs = []core.PriceRecommendation{}
	}
	writeJSON(w, recs)
}

// groupedRecommendations handles GET /api/recommendations/grouped with
// optional buildingIds (comma-separated), roomType, beds, arrivalFrom and
// arrivalTo filters.
func (h *Handler) groupedRecommendations(w http.ResponseWriter, r *http.Request) {
	beds, err := queryInt(r, "beds")
	if err != nil {
		writeError(w, r, "invalid beds", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	from, err := queryDate(r, "arrivalFrom")
	if err != nil {
		writeError(w, r, "invalid arrivalFrom, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	to, err := queryDate(r, "arrivalTo")
	if err != nil {
		writeError(w, r, "invalid arrivalTo, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	groups, err := h.svc.GetGroupedRecommendations(r.Context(), app.GroupedQuery{
		BuildingIDs: splitAndTrim(r.URL.Query().Get("buildingIds")),
		RoomType:    r.URL.Query().Get("roomType"),
		Beds:        beds,
		ArrivalFrom: from,
		ArrivalTo:   to,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, groups)
}

// bookingsByCluster handles GET /api/recommendations/bookings-by-cluster,
// identifying the cluster by arrivalDate, roomType, beds, grade and
// privatePool query parameters.
func (h *Handler) bookingsByCluster(w http.ResponseWriter, r *http.Request) {
	arrival, err := queryDate(r, "arrivalDate")
	if err != nil {
		writeError(w, r, "invalid arrivalDate, expected YYYY-MM-DD", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	beds, err := queryInt(r, "beds")
	if err != nil {
		writeError(w, r, "invalid beds", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	grade, err := queryInt(r, "grade")
	if err != nil {
		writeError(w, r, "invalid grade", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	pool, err := queryBool(r, "privatePool")
	if err != nil {
		writeError(w, r, "invalid privatePool", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	bookings, err := h.svc.BookingsForCluster(r.Context(), app.ClusterQuery{
		ArrivalDate: arrival,
		RoomType:    r.URL.Query().Get("roomType"),
		Beds:        beds,
		Grade:       grade,
		PrivatePool: pool,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, bookings)
}

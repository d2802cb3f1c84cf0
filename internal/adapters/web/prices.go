package web

import (
	"net/http"
	"strconv"
	"strings"

	"pricing-backend/internal/core"
)

// listPrices handles GET /api/prices with currency, page, size, sortBy and
// order=asc|desc query parameters.
func (h *Handler) listPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	page := 0
	if raw := q.Get("page"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, r, "invalid page", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		page = n
	}
	size := 0
	if raw := q.Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, r, "invalid size", "BAD_REQUEST", http.StatusBadRequest)
			return
		}
		size = n
	}

	prices, err := h.svc.ListPrices(r.Context(), core.PriceListFilter{
		Currency: strings.ToUpper(q.Get("currency")),
		Page:     page,
		Size:     size,
		SortBy:   q.Get("sortBy"),
		Desc:     strings.EqualFold(q.Get("order"), "desc"),
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if prices == nil {
		prices = []core.Price{}
	}
	writeJSON(w, prices)
}

// pricesByProduct handles GET /api/prices/by-product/{productID}.
func (h *Handler) pricesByProduct(w http.ResponseWriter, r *http.Request) {
	prices, err := h.svc.PricesByProduct(r.Context(), productID(r))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if prices == nil {
		prices = []core.Price{}
	}
	writeJSON(w, prices)
}

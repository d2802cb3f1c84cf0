package web

import (
	"net/http"

	"pricing-backend/internal/app"
)

// confirmBody is the wire form of one confirmation decision.
type confirmBody struct {
	ProductID string  `json:"productId" validate:"required"`
	Action    string  `json:"action" validate:"required"`
	Value     *string `json:"value"`
	Currency  string  `json:"currency"`
	UserID    string  `json:"userId" validate:"required"`
}

func (h *Handler) confirmRequest(w http.ResponseWriter, r *http.Request, body confirmBody) (*app.ConfirmRequest, bool) {
	if err := h.validate.Struct(body); err != nil {
		writeError(w, r, err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	value, err := parseDecimalPtr(body.Value)
	if err != nil {
		writeError(w, r, "invalid value", "BAD_REQUEST", http.StatusBadRequest)
		return nil, false
	}
	return &app.ConfirmRequest{
		ProductID: body.ProductID,
		Action:    body.Action,
		Value:     value,
		Currency:  body.Currency,
		UserID:    body.UserID,
	}, true
}

// confirm handles POST /api/confirmations.
func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	var body confirmBody
	if !decodeJSON(w, r, &body) {
		return
	}
	req, ok := h.confirmRequest(w, r, body)
	if !ok {
		return
	}
	saved, err := h.svc.Confirm(r.Context(), *req)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, saved)
}

// confirmBatch handles POST /api/confirmations/batch. The batch never fails
// as a whole; each item carries its own success or failure.
func (h *Handler) confirmBatch(w http.ResponseWriter, r *http.Request) {
	var bodies []confirmBody
	if !decodeJSON(w, r, &bodies) {
		return
	}
	if len(bodies) == 0 {
		writeError(w, r, "at least one confirmation is required", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	// A malformed value fails its own item, not the batch, so results keep
	// positional correspondence with the request.
	results := make([]app.ConfirmBatchResult, len(bodies))
	reqs := make([]app.ConfirmRequest, 0, len(bodies))
	reqIndexes := make([]int, 0, len(bodies))
	for i, body := range bodies {
		value, err := parseDecimalPtr(body.Value)
		if err != nil {
			results[i] = app.ConfirmBatchResult{
				ProductID: body.ProductID,
				Status:    "failed",
				Error:     "invalid value " + *body.Value,
			}
			continue
		}
		reqs = append(reqs, app.ConfirmRequest{
			ProductID: body.ProductID,
			Action:    body.Action,
			Value:     value,
			Currency:  body.Currency,
			UserID:    body.UserID,
		})
		reqIndexes = append(reqIndexes, i)
	}
	for j, res := range h.svc.ConfirmBatch(r.Context(), reqs) {
		results[reqIndexes[j]] = res
	}
	writeJSON(w, results)
}

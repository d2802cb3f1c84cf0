package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/sirupsen/logrus"

	"pricing-backend/internal/app"
)

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc      app.ApplicationService
	validate *validator.Validate
	log      *logrus.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, allowedOrigins string, log *logrus.Logger) http.Handler {
	h := &Handler{
		svc:      svc,
		validate: validator.New(),
		log:      log,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(Logger(log))
	r.Use(Recoverer(log))
	r.Use(CORS(allowedOrigins))

	r.Get("/api/health", h.health)

	r.Group(func(r chi.Router) {
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		// Algorithm configuration
		r.Get("/api/config/pricing", h.getPricingConfig)
		r.Put("/api/config/pricing", h.updatePricingConfig)

		// Recommendations
		r.Post("/api/recommendations/run", h.runRecommendations)
		r.Get("/api/recommendations/grouped", h.groupedRecommendations)
		r.Get("/api/recommendations/bookings-by-cluster", h.bookingsByCluster)
		r.Get("/api/recommendations/{productID}", h.listRecommendations)

		// Confirmations
		r.Post("/api/confirmations", h.confirm)
		r.Post("/api/confirmations/batch", h.confirmBatch)

		// Prices
		r.Get("/api/prices", h.listPrices)
		r.Get("/api/prices/by-product/{productID}", h.pricesByProduct)

		// Users
		r.Get("/api/users", h.listUsers)
		r.Post("/api/users", h.createUser)
		r.Get("/api/users/{id}", h.getUser)
		r.Put("/api/users/{id}", h.updateUser)
		r.Delete("/api/users/{id}", h.deleteUser)

		// Filters and metrics
		r.Get("/api/filters/{clientID}", h.getFilters)
		r.Get("/api/metrics/occupancy", h.occupancyMetrics)

		// Batch jobs
		r.Post("/api/batch/run", h.runBatchJob)
		r.Post("/api/sync/run", h.runSync)
	})

	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	type response struct {
		Status string `json:"status"`
		Time   string `json:"time"`
	}
	writeJSON(w, response{Status: "ok", Time: time.Now().UTC().Format(time.RFC3339)})
}

// productID extracts the {productID} URL parameter.
func productID(r *http.Request) string {
	return chi.URLParam(r, "productID")
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

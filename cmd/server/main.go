package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"

	webAdapter "pricing-backend/internal/adapters/web"
	"pricing-backend/internal/app"
	"pricing-backend/internal/core"
	"pricing-backend/internal/db"
	"pricing-backend/internal/ingest"
	"pricing-backend/internal/logging"
)

func main() {
	_ = godotenv.Load()
	log := logging.New()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.WithError(err).Fatal("database")
	}
	defer pool.Close()

	users := core.NewUserService(pool)
	products := core.NewProductService(pool)
	buildings := core.NewBuildingService(pool)
	bookings := core.NewBookingService(pool)
	prices := core.NewPriceService(pool)
	recommendations := core.NewRecommendationStore(pool)
	confirmationStore := core.NewConfirmationStore(pool)

	config := core.NewAlgorithmConfig()
	engine := core.NewPricingEngine(recommendations, log)
	confirmations := core.NewConfirmationService(users, products, buildings, recommendations, confirmationStore)

	syncSvc := core.NewSyncService(confirmationStore, core.SyncOptions{
		BaseURL: os.Getenv("HOTEL_API_BASE_URL"),
		APIKey:  os.Getenv("HOTEL_API_KEY"),
	}, log)

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	runner := ingest.NewRunner(products, bookings, prices, buildings, dataDir, log)

	svc := app.New(app.Services{
		Config:          config,
		Engine:          engine,
		Confirmations:   confirmations,
		Users:           users,
		Products:        products,
		Buildings:       buildings,
		Bookings:        bookings,
		Prices:          prices,
		Recommendations: recommendations,
		Sync:            syncSvc,
		Ingest:          runner,
		Log:             log,
	})

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	handler := webAdapter.NewHandler(svc, allowedOrigins, log)

	log.WithField("port", port).Info("server starting")
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.WithError(err).Fatal("server")
	}
}

// CSV ingestion runner: loads product, booking, price or building exports
// from DATA_DIR into the database.
//
// Usage: ingest <job> [job...]   where job is product|booking|price|building.
// With no arguments all four jobs run, buildings and products first so
// foreign references resolve.
package main

import (
	"context"
	"os"

	"github.com/joho/godotenv"

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

	dataDir := os.Getenv("DATA_DIR")
	if dataDir == "" {
		dataDir = "data"
	}
	runner := ingest.NewRunner(
		core.NewProductService(pool),
		core.NewBookingService(pool),
		core.NewPriceService(pool),
		core.NewBuildingService(pool),
		dataDir, log,
	)

	jobs := os.Args[1:]
	if len(jobs) == 0 {
		jobs = []string{ingest.JobBuilding, ingest.JobProduct, ingest.JobBooking, ingest.JobPrice}
	}

	failed := false
	for _, job := range jobs {
		rows, skipped, err := runner.Run(ctx, job)
		if err != nil {
			failed = true
			log.WithField("job", job).WithError(err).Error("ingest job failed")
			continue
		}
		log.WithFields(map[string]any{
			"job":     job,
			"rows":    rows,
			"skipped": skipped,
		}).Info("ingest job finished")
	}
	if failed {
		os.Exit(1)
	}
}

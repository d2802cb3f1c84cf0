// One-shot push of unsynced price confirmations to the hotel API, for cron.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"pricing-backend/internal/core"
	"pricing-backend/internal/db"
	"pricing-backend/internal/logging"
)

func main() {
	_ = godotenv.Load()
	log := logging.New()

	if err := run(log); err != nil {
		log.WithError(err).Error("sync run failed")
		os.Exit(1)
	}
}

// run owns the pool so its deferred Close survives every exit path.
func run(log *logrus.Logger) error {
	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer pool.Close()

	syncSvc := core.NewSyncService(core.NewConfirmationStore(pool), core.SyncOptions{
		BaseURL: os.Getenv("HOTEL_API_BASE_URL"),
		APIKey:  os.Getenv("HOTEL_API_KEY"),
	}, log)

	report, err := syncSvc.PushConfirmed(ctx)
	if err != nil {
		return err
	}
	log.WithFields(logrus.Fields{
		"pending": report.Pending,
		"synced":  report.Synced,
		"failed":  report.Failed,
	}).Info("sync run finished")
	if report.Failed > 0 {
		return fmt.Errorf("%d of %d confirmations failed to sync", report.Failed, report.Pending)
	}
	return nil
}

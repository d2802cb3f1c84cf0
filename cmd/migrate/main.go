// Applies SQL migrations from migrations/ in filename order, tracking applied
// versions and checksums in schema_migrations. An advisory lock guards against
// two migrators running at once.
package main

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"pricing-backend/internal/logging"
)

const advisoryLockKey = 5183027

var log = logging.New()

func main() {
	_ = godotenv.Load()

	url := os.Getenv("DATABASE_URL")
	if url == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	ctx := context.Background()
	pool := connectDB(ctx, url)
	defer pool.Close()

	conn := acquireLock(ctx, pool)
	defer conn.Release()

	setupSchemaMigrations(ctx, pool)

	for _, filename := range discoverMigrations() {
		applyMigration(ctx, pool, filename)
	}

	log.Info("all migrations processed")
}

func connectDB(ctx context.Context, url string) *pgxpool.Pool {
	connCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		log.WithError(err).Fatal("failed to create pool")
	}
	if err := pool.Ping(connCtx); err != nil {
		log.WithError(err).Fatal("failed to ping database")
	}
	return pool
}

func acquireLock(ctx context.Context, pool *pgxpool.Pool) *pgxpool.Conn {
	conn, err := pool.Acquire(ctx)
	if err != nil {
		log.WithError(err).Fatal("failed to acquire connection for lock")
	}

	var locked bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", advisoryLockKey).Scan(&locked); err != nil {
		log.WithError(err).Fatal("failed to query advisory lock")
	}
	if !locked {
		log.Fatal("another migrator is currently running")
	}
	return conn
}

func setupSchemaMigrations(ctx context.Context, pool *pgxpool.Pool) {
	_, err := pool.Exec(ctx, `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	checksum TEXT NOT NULL,
	applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
);`)
	if err != nil {
		log.WithError(err).Fatal("failed to create schema_migrations table")
	}
}

func discoverMigrations() []string {
	entries, err := os.ReadDir("migrations")
	if err != nil {
		log.WithError(err).Fatal("failed to read migrations directory")
	}

	var filenames []string
	seen := make(map[string]bool)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		version := extractVersion(entry.Name())
		if seen[version] {
			log.WithField("version", version).Fatal("duplicate migration version")
		}
		seen[version] = true
		filenames = append(filenames, entry.Name())
	}
	sort.Strings(filenames)
	return filenames
}

func extractVersion(filename string) string {
	parts := strings.SplitN(filename, "_", 2)
	if len(parts) < 2 {
		log.WithField("file", filename).Fatal("invalid migration filename, expected NNN_description.sql")
	}
	return parts[0]
}

func checksumFile(filename string) string {
	bytes, err := os.ReadFile(filepath.Join("migrations", filename))
	if err != nil {
		log.WithField("file", filename).WithError(err).Fatal("failed to read file for checksum")
	}
	hash := sha256.Sum256(bytes)
	return hex.EncodeToString(hash[:])
}

func applyMigration(ctx context.Context, pool *pgxpool.Pool, filename string) {
	version := extractVersion(filename)
	checksum := checksumFile(filename)

	var existing string
	err := pool.QueryRow(ctx, "SELECT checksum FROM schema_migrations WHERE version = $1", version).Scan(&existing)
	switch {
	case err == nil:
		if existing == checksum {
			log.WithField("file", filename).Info("skip, already applied")
			return
		}
		log.WithField("file", filename).Fatal("checksum mismatch, migration file was edited after apply")
	case errors.Is(err, pgx.ErrNoRows):
		// not applied yet
	default:
		log.WithField("file", filename).WithError(err).Fatal("failed to query schema_migrations")
	}

	sqlBytes, err := os.ReadFile(filepath.Join("migrations", filename))
	if err != nil {
		log.WithField("file", filename).WithError(err).Fatal("failed to read migration file")
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.WithField("file", filename).WithError(err).Fatal("failed to begin transaction")
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, string(sqlBytes)); err != nil {
		log.WithField("file", filename).WithError(err).Fatal("failed to execute migration")
	}
	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version, filename, checksum) VALUES ($1, $2, $3)",
		version, filename, checksum); err != nil {
		log.WithField("file", filename).WithError(err).Fatal("failed to record migration")
	}
	if err := tx.Commit(ctx); err != nil {
		log.WithField("file", filename).WithError(err).Fatal("failed to commit migration")
	}
	log.WithField("file", filename).Info("applied")
}

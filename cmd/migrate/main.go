package main

import (
	"context"
	"database/sql"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/pressly/goose/v3"
	"go.uber.org/zap"

	"bookapp/internal/activity/ch"
	"bookapp/internal/config"
	"bookapp/internal/storage/sqlite"
)

const usage = "Usage: migrate <sqlite|clickhouse> [up|down|status|version]"

func main() {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found, using existing environment variables")
	}

	cfg, err := config.LoadFromEnv()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if len(os.Args) < 2 {
		log.Fatal(usage)
	}
	target := os.Args[1]

	// Get command from arguments (default to "up")
	command := "up"
	if len(os.Args) > 2 {
		command = os.Args[2]
	}

	ctx := context.Background()

	var (
		db       *sql.DB
		provider *goose.Provider
	)
	switch target {
	case "sqlite":
		store, err := sqlite.NewSQLiteDB(cfg.DBPath, zap.NewNop())
		if err != nil {
			log.Fatalf("Failed to open database: %v", err)
		}
		db = store.DB()
		provider, err = sqlite.NewMigrationProvider(db)
		if err != nil {
			log.Fatal(err)
		}
		log.Printf("Opened SQLite database at %s", cfg.DBPath)
	case "clickhouse":
		if !cfg.AnalyticsEnabled() {
			log.Fatal("CLICKHOUSE_HOST is not set")
		}
		db = ch.OpenDB(ch.Options(cfg.ClickHouseHost, cfg.ClickHousePort, cfg.ClickHouseDatabase,
			cfg.ClickHouseUser, cfg.ClickHousePassword, cfg.ClickHouseUseTLS))
		if err := db.PingContext(ctx); err != nil {
			log.Fatalf("Failed to ping database: %v", err)
		}
		provider, err = ch.NewMigrationProvider(db)
		if err != nil {
			log.Fatal(err)
		}
		log.Println("Connected to ClickHouse successfully")
	default:
		log.Fatal(usage)
	}
	defer db.Close()

	log.Printf("Running migrations: %s", command)
	switch command {
	case "up":
		results, err := provider.Up(ctx)
		if err != nil {
			log.Fatalf("Failed to run migrations: %v", err)
		}
		for _, r := range results {
			log.Printf("Applied %s in %s", r.Source.Path, r.Duration)
		}
		log.Println("Migrations completed successfully")
	case "down":
		result, err := provider.Down(ctx)
		if err != nil {
			log.Fatalf("Failed to rollback migration: %v", err)
		}
		log.Printf("Rolled back %s", result.Source.Path)
	case "status":
		statuses, err := provider.Status(ctx)
		if err != nil {
			log.Fatalf("Failed to get migration status: %v", err)
		}
		for _, s := range statuses {
			applied := "pending"
			if s.State == goose.StateApplied {
				applied = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
			log.Printf("%-40s %s", s.Source.Path, applied)
		}
	case "version":
		version, err := provider.GetDBVersion(ctx)
		if err != nil {
			log.Fatalf("Failed to get version: %v", err)
		}
		log.Printf("Current migration version: %d", version)
	default:
		log.Fatalf("Unknown command: %s. Available commands: up, down, status, version", command)
	}
}

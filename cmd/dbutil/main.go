package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"bookmark-preview/internal/config"
	"bookmark-preview/internal/pkg/logger"
	"bookmark-preview/internal/repository/postgres"

	_ "github.com/lib/pq"
)

func main() {
	var (
		reset          = flag.Bool("reset", false, "Reset database (WARNING: destroys all data)")
		clearBookmarks = flag.Bool("clear-bookmarks", false, "Delete every bookmark but keep the schema")
		migrate        = flag.Bool("migrate", false, "Run database migrations")
		status         = flag.Bool("status", false, "Show migration status")
		dbURL          = flag.String("db", "", "Database URL (defaults to DATABASE_URL env var)")
		logLevel       = flag.String("log-level", "info", "Log level")
	)
	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}
	if *dbURL != "" {
		cfg.DatabaseURL = *dbURL
	}
	if err := cfg.ValidateForDBUtil(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v (or pass -db)\n", err)
		os.Exit(1)
	}

	if !*reset && !*clearBookmarks && !*migrate && !*status {
		usage()
		os.Exit(0)
	}

	log := logger.New(*logLevel)

	// Connect to database
	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Error("Failed to ping database", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	switch {
	case *clearBookmarks:
		if err := confirm("This will delete all bookmarks. Type 'yes' to confirm: "); err != nil {
			log.Error("Clear bookmarks cancelled", "error", err)
			os.Exit(1)
		}

		result, err := db.ExecContext(ctx, "DELETE FROM bookmarks")
		if err != nil {
			log.Error("Failed to clear bookmarks table", "error", err)
			os.Exit(1)
		}
		deleted, _ := result.RowsAffected()
		log.Info("Bookmarks table cleared", "deleted", deleted)

	case *reset:
		if err := confirm("WARNING: This will delete ALL data in the database. Type 'yes' to confirm: "); err != nil {
			log.Error("Reset cancelled", "error", err)
			os.Exit(1)
		}

		log.Warn("Resetting database...")
		if err := postgres.ResetDatabase(ctx, db, log); err != nil {
			log.Error("Failed to reset database", "error", err)
			os.Exit(1)
		}

		log.Info("Database reset completed successfully")
		log.Info("Run with -migrate to recreate tables")

	case *migrate:
		if err := postgres.RunMigrations(db, log); err != nil {
			log.Error("Failed to run migrations", "error", err)
			os.Exit(1)
		}
		log.Info("Migrations completed successfully")

	case *status:
		version, err := postgres.GetMigrationStatus(db)
		if err != nil {
			log.Error("Failed to get migration status", "error", err)
			os.Exit(1)
		}
		latest := len(postgres.Migrations())
		log.Info("Migration status",
			"current_version", version,
			"latest_version", latest,
			"pending", latest-version,
		)
	}
}

func usage() {
	fmt.Println("Database utility for the bookmark service")
	fmt.Println("")
	fmt.Println("Usage:")
	fmt.Println("  -clear-bookmarks Delete every bookmark but keep the schema")
	fmt.Println("  -reset           Reset database (WARNING: destroys all data)")
	fmt.Println("  -migrate         Run database migrations")
	fmt.Println("  -status          Show migration status")
	fmt.Println("  -db              Database URL (optional)")
	fmt.Println("")
	fmt.Println("Examples:")
	fmt.Println("  go run ./cmd/dbutil -status")
	fmt.Println("  go run ./cmd/dbutil -migrate")
	fmt.Println("  go run ./cmd/dbutil -reset")
}

func confirm(prompt string) error {
	fmt.Print(prompt)
	var response string
	fmt.Scanln(&response)

	if response != "yes" {
		return fmt.Errorf("not confirmed")
	}

	return nil
}

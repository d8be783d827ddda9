package main

import (
	"log"

	"ai-knowledgebase-be/internal/config"
	"ai-knowledgebase-be/internal/queue"
	"ai-knowledgebase-be/internal/storage/postgres"
	"ai-knowledgebase-be/internal/storage/sqlite"

	"github.com/fatih/color"
)

func main() {
	cfg := config.Load()

	if cfg.Database.Backend != "postgres" {
		// The embedded backend applies its schema on open.
		d, err := sqlite.Open(cfg.Database.Connection)
		if err != nil {
			log.Fatalf("Error: Failed to open sqlite: %v", err)
		}
		defer d.Close()
		color.Green("✅ Success: sqlite schema is up to date (%s)", cfg.Database.Connection)
		return
	}

	d, err := postgres.Open(cfg.Database.Connection)
	if err != nil {
		log.Fatalf("Error: Failed to connect to database: %v", err)
	}
	defer d.Close()
	db := d.DB()

	color.Cyan("🚀 Starting GORM Migration")

	// Extensions AutoMigrate doesn't handle
	color.Yellow("Step 1: Setting up Extensions...")
	setupSQL := []string{
		`CREATE EXTENSION IF NOT EXISTS pgcrypto;`,
		`CREATE EXTENSION IF NOT EXISTS vector;`,
	}
	for _, sql := range setupSQL {
		if err := db.Exec(sql).Error; err != nil {
			color.Red("Warn: Failed to execute setup SQL: %v. Continuing...", err)
		}
	}

	color.Yellow("Step 2: Running AutoMigrate...")
	models := append(postgres.AllModels(), &queue.CommandJob{})
	if err := db.AutoMigrate(models...); err != nil {
		log.Fatalf("Error: AutoMigrate failed: %v", err)
	}

	color.Green("✅ Success: Database migration completed successfully via GORM.")
}

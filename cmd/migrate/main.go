package main

import (
	"log"
	"os"

	"swmp-backend/internal/database"

	"github.com/joho/godotenv"
)

// Standalone migration runner for environments where the server should not
// own schema changes (CI, one-off maintenance).
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Println("Connected to database successfully")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Println("Migration completed successfully!")

	// Summary: row counts per core table.
	for _, table := range []string{"users", "projects", "facilities", "waste_streams", "forecast_items", "plan_documents", "distance_cache"} {
		var count int
		if err := db.Get(&count, "SELECT COUNT(*) FROM "+table); err != nil {
			log.Printf("  %s: count failed: %v", table, err)
			continue
		}
		log.Printf("  %s: %d row(s)", table, count)
	}
}

// Command main runs the database seeder for AccessDesk.
package main

import (
	"flag"
	"log"

	"accessdesk/internal/config"
	"accessdesk/internal/database"
	"accessdesk/internal/seed"
)

func main() {
	// Parse command line flags
	numUsers := flag.Int("users", 50, "Number of staff accounts to create")
	numRequests := flag.Int("requests", 200, "Number of access requests to create")
	maxDays := flag.Int("max-days", 90, "Spread request submissions over this many past days")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Log what would be created without writing")
	manifest := flag.String("manifest", "", "Path to a seed manifest overriding the built-in baseline")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d users, %d requests, clean=%v\n", *numUsers, *numRequests, *shouldClean)

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *manifest == "" {
		*manifest = cfg.SeedFile
	}

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	err = seed.Seed(db, seed.Options{
		NumUsers:     *numUsers,
		NumRequests:  *numRequests,
		MaxDays:      *maxDays,
		ShouldClean:  *shouldClean,
		DryRun:       *dryRun,
		ManifestPath: *manifest,
	})
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Println("✨ All done! Your database is now populated with test data.")
	log.Println("📧 All test users have the password: password123")
}

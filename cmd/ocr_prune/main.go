package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"ocrweb/pkg/storage"
	"ocrweb/process/sanitize"
)

// Removes history rows and result files older than -days.
func main() {
	days := flag.Int("days", 30, "keep entries newer than this many days")
	dryRun := flag.Bool("dry-run", true, "show what would be removed without deleting")
	yes := flag.Bool("yes", false, "confirm deletion (required with --dry-run=false)")
	flag.Parse()
	if *days <= 0 {
		log.Fatal("-days must be positive")
	}

	_ = godotenv.Load()
	results, err := storage.NewResults(os.Getenv("RESULT_DIR"))
	if err != nil {
		log.Fatalf("results: %v", err)
	}
	var gdb *gorm.DB
	if dsn := os.Getenv("DB_DSN"); dsn != "" {
		if gdb, err = gorm.Open(postgres.Open(dsn), &gorm.Config{}); err != nil {
			log.Fatalf("failed to connect to database: %v", err)
		}
	} else {
		log.Println("DB_DSN not set, only result files are considered")
	}

	plan, err := sanitize.Prepare(gdb, results, time.Now().AddDate(0, 0, -*days))
	if err != nil {
		log.Fatal(err)
	}
	plan.Print(os.Stdout)
	if *dryRun {
		fmt.Println("dry-run enabled; no changes will be made. Use --dry-run=false --yes to execute.")
		return
	}
	if !*yes {
		fmt.Println("Destructive operation. Pass --yes to confirm execution. Aborting.")
		return
	}
	rows, files, err := sanitize.Apply(gdb, results, plan)
	if err != nil {
		log.Fatal(err)
	}
	fmt.Printf("removed %d history rows and %d result files\n", rows, files)
}

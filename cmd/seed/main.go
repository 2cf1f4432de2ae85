package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/ikkim/bazaar-backend/config"
	"github.com/ikkim/bazaar-backend/internal/app/repository"
	"github.com/ikkim/bazaar-backend/internal/db"
)

func main() {
	// 명령줄 인자 확인
	if len(os.Args) < 2 {
		log.Fatal("Usage: go run cmd/seed/main.go <credit_accounts.xlsx>")
	}

	filePath := os.Args[1]

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	if err := db.Initialize(&cfg.Database); err != nil {
		log.Fatal("Failed to connect to database:", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	creditRepo := repository.NewCreditAccountRepository(db.GetDB())

	fmt.Printf("Reading XLSX file: %s\n", filePath)
	accounts, summary, err := readCreditAccountsFromXLSX(filePath)
	if err != nil {
		log.Fatal("Failed to read XLSX:", err)
	}

	fmt.Printf("\nSummary:\n")
	fmt.Printf("  Total rows: %d\n", summary.Rows)
	fmt.Printf("  Valid accounts: %d\n", len(accounts))
	fmt.Printf("  Skipped rows: %d\n", summary.Skipped)
	fmt.Printf("  Duplicate customers: %d\n", summary.Duplicates)

	// 사용자 확인
	fmt.Print("Do you want to proceed with the import? (yes/no): ")
	var confirm string
	fmt.Scanln(&confirm)
	if confirm != "yes" && confirm != "y" {
		fmt.Println("Import cancelled.")
		return
	}

	batchSize := 500
	fmt.Printf("Starting bulk import with batch size: %d\n", batchSize)
	if err := creditRepo.BulkUpsert(context.Background(), accounts, batchSize); err != nil {
		log.Fatal("Failed to import credit accounts:", err)
	}

	fmt.Println("Import completed successfully!")
	fmt.Printf("Total accounts imported: %d\n", len(accounts))
}

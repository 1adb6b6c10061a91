//go:build ignore
// +build ignore

// Seeds a local database from data/sample_providers.csv and runs a sample
// recommendation and fee quote against it.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"ndt-connect/internal/config"
	"ndt-connect/internal/models"
	"ndt-connect/internal/services/database"
	"ndt-connect/internal/services/fees"
	"ndt-connect/internal/services/matcher"
	"ndt-connect/internal/utils"
)

func main() {
	fmt.Println("=== NDT Connect - Local Test ===")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	db, err := database.New(cfg)
	if err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()
	fmt.Println("✅ Connected to database")

	// Parse sample CSV
	fmt.Println()
	fmt.Println("📖 Parsing sample provider CSV...")

	csvContent, err := os.ReadFile("data/sample_providers.csv")
	if err != nil {
		fmt.Printf("❌ Failed to read CSV: %v\n", err)
		os.Exit(1)
	}

	providers, parseErrors := utils.NewCSVParser().ParseProviders(string(csvContent), "local-seed")
	for _, e := range parseErrors {
		fmt.Printf("⚠️  %v\n", e)
	}
	fmt.Printf("✅ Parsed %d providers\n", len(providers))

	repo := database.NewProviderRepository(db)
	result, err := repo.BulkUpsert(ctx, providers)
	if err != nil {
		fmt.Printf("❌ Failed to store providers: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Stored %d providers (%d failed)\n", result.InsertedCount, result.FailedCount)

	// Sample recommendation
	fmt.Println()
	fmt.Println("🎯 Ranking providers for ultrasonic testing in the UAE...")

	recommendations, err := matcher.NewService(repo, nil).Recommend(ctx, matcher.RecommendationRequest{
		Filters: models.FilterCriteria{
			SelectedService: "ut",
			Location:        "UAE",
			MaxBudget:       600,
		},
		Limit: 5,
	})
	if err != nil {
		fmt.Printf("❌ Recommendation failed: %v\n", err)
		os.Exit(1)
	}
	for i, p := range recommendations.Providers {
		fmt.Printf("   %d. %-28s %5.1f  %v\n", i+1, p.CompanyName, p.RecommendationScore, p.MatchReasons)
	}
	fmt.Printf("   %d of %d providers filtered out\n", recommendations.FilteredOut, recommendations.TotalProviders)

	// Sample fee quote
	fmt.Println()
	fmt.Println("💰 Fee breakdown for a 1000 AED booking paid out via PayPal...")

	settings, err := database.NewSettingsRepository(db).Get(ctx)
	if err != nil {
		fmt.Printf("❌ Failed to load fee settings: %v\n", err)
		os.Exit(1)
	}
	breakdown, err := fees.ComputeFees(1000, models.UserTypeProvider, models.WithdrawalMethodPayPal, settings)
	if err != nil {
		fmt.Printf("❌ Fee computation failed: %v\n", err)
		os.Exit(1)
	}
	b := breakdown.Rounded()
	fmt.Printf("   Platform fee:   %8.2f\n", b.PlatformFee)
	fmt.Printf("   Processing fee: %8.2f\n", b.ProcessingFee)
	fmt.Printf("   Earnings:       %8.2f\n", b.Earnings)
	fmt.Printf("   Withdrawal fee: %8.2f\n", b.WithdrawalFee)
	fmt.Printf("   Net payout:     %8.2f\n", b.NetAmount)

	fmt.Println()
	fmt.Println("═══════════════════════════════════════════")
	fmt.Println("              TEST COMPLETE")
	fmt.Println("═══════════════════════════════════════════")
}

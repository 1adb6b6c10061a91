//go:build ignore
// +build ignore

package main

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"ndt-connect/internal/config"
)

func main() {
	fmt.Println("=== NDT Connect Database Initialization ===")
	fmt.Println()

	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("❌ Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	databaseURL := cfg.DatabaseURL()
	dbName, adminURL, err := adminDatabaseURL(databaseURL)
	if err != nil {
		fmt.Printf("❌ Invalid database URL: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	fmt.Println("📡 Connecting to PostgreSQL server...")
	if err := ensureDatabase(ctx, adminURL, dbName); err != nil {
		fmt.Printf("❌ %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("📡 Connecting to %s database...\n", dbName)
	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		fmt.Printf("❌ Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer conn.Close(ctx)

	fmt.Println("📖 Reading SQL schema file...")
	sqlBytes, err := os.ReadFile("scripts/init_database.sql")
	if err != nil {
		fmt.Printf("❌ Failed to read SQL file: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("🚀 Executing database schema...")
	if _, err := conn.Exec(ctx, string(sqlBytes)); err != nil {
		fmt.Printf("❌ Failed to execute SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("✅ Database schema executed successfully!")
	fmt.Println()

	fmt.Println("🔍 Verifying database setup...")
	for _, table := range []string{"providers", "fee_settings", "withdrawal_requests"} {
		var count int
		if err := conn.QueryRow(ctx, "SELECT COUNT(*) FROM "+table).Scan(&count); err != nil {
			fmt.Printf("⚠️  Warning: Could not count %s: %v\n", table, err)
			continue
		}
		fmt.Printf("   📦 %s: %d rows\n", table, count)
	}

	var platformFee, minimumWithdrawal float64
	err = conn.QueryRow(ctx, "SELECT platform_fee_percentage, minimum_withdrawal_amount FROM fee_settings WHERE id = 1").
		Scan(&platformFee, &minimumWithdrawal)
	if err == nil {
		fmt.Printf("   💰 Platform fee: %.2f%% | Minimum withdrawal: %.2f\n", platformFee, minimumWithdrawal)
	}

	fmt.Println()
	fmt.Println("🎉 Database initialization completed successfully!")
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Println("  1. Start the API: go run ./cmd/server")
	fmt.Println("  2. Upload a provider CSV to the imports/ prefix of the S3 bucket")
}

// adminDatabaseURL swaps the database name for the maintenance "postgres" database.
func adminDatabaseURL(databaseURL string) (string, string, error) {
	u, err := url.Parse(databaseURL)
	if err != nil {
		return "", "", err
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	if dbName == "" {
		return "", "", fmt.Errorf("database name missing from %q", u.Redacted())
	}
	u.Path = "/postgres"
	return dbName, u.String(), nil
}

func ensureDatabase(ctx context.Context, adminURL, dbName string) error {
	adminConn, err := pgx.Connect(ctx, adminURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	defer adminConn.Close(ctx)

	var exists bool
	err = adminConn.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM pg_database WHERE datname = $1)", dbName).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check database existence: %w", err)
	}

	if exists {
		fmt.Printf("✅ Database '%s' already exists\n", dbName)
		return nil
	}

	fmt.Printf("📦 Creating '%s' database...\n", dbName)
	if _, err := adminConn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{dbName}.Sanitize()); err != nil {
		return fmt.Errorf("failed to create database: %w", err)
	}
	fmt.Printf("✅ Database '%s' created!\n", dbName)
	return nil
}

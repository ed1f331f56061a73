package main

import (
	"context"
	"flag"
	"log"
	"os"

	"paypal-billing-orchestrator/internal/config"
	"paypal-billing-orchestrator/internal/infra/db/postgres"
	"paypal-billing-orchestrator/internal/infra/redis"
)

// This script sets up a clean, predictable state for manual end-to-end
// testing against a sandbox processor account.
func main() {
	ctx := context.Background()

	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	schemaPath := flag.String("schema", "deploy/postgres/init.sql", "path to the schema DDL")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("config load: %v", err)
	}

	schema, err := os.ReadFile(*schemaPath)
	if err != nil {
		log.Fatalf("read schema: %v", err)
	}

	pool, err := postgres.NewPgxPool(ctx, cfg.Database.URL, 5)
	if err != nil {
		log.Fatalf("postgres connection failed: %v", err)
	}
	defer pool.Close()

	redisClient, err := redis.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis connection failed: %v", err)
	}
	defer redisClient.Close()

	log.Println("--- Starting E2E Environment Setup ---")

	log.Println("[1/3] Clearing cached price list...")
	if err := redisClient.Del(ctx, "paypal:prices"); err != nil {
		log.Fatalf("failed to clear price cache: %v", err)
	}

	log.Println("[2/3] Creating schema...")
	if _, err := pool.Exec(ctx, string(schema)); err != nil {
		log.Fatalf("failed to create schema: %v", err)
	}

	log.Println("[3/3] Wiping existing data...")
	_, err = pool.Exec(ctx, `
		TRUNCATE mandates, payments, provisioning_errors, notification_log
		RESTART IDENTITY CASCADE;
	`)
	if err != nil {
		log.Fatalf("failed to truncate tables: %v", err)
	}

	log.Println("--- E2E Environment Setup Complete ---")
}

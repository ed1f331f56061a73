package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"paypal-billing-orchestrator/internal/config"
	"paypal-billing-orchestrator/internal/domain/model"
	red "paypal-billing-orchestrator/internal/infra/redis"
)

// Seeds the price cache with a sandbox catalog so create-mandate flows
// work without a reachable wallet service.
func main() {
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, true)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		log.Fatalf("redis: %v", err)
	}
	defer redisClient.Close()

	cache := red.NewPriceCache(redisClient, cfg.Redis.PriceTTL)

	if prices, err := cache.GetPriceList(ctx); err == nil && len(prices) > 0 {
		fmt.Printf("%d price points already cached. No changes.\n", len(prices))
		for _, pp := range prices {
			fmt.Printf("  - %s (points=%d, price=$%.2f)\n", pp.PurchaseKey, pp.Points, pp.ExactPrice)
		}
		return
	}

	seed := map[string]model.PricePoint{
		"PPAP_100":  {PurchaseKey: "PPAP_100", Points: 500, ExactPrice: 4.99},
		"PPAP_500":  {PurchaseKey: "PPAP_500", Points: 2750, ExactPrice: 24.99},
		"PPAP_1000": {PurchaseKey: "PPAP_1000", Points: 6000, ExactPrice: 49.99},
	}
	if err := cache.SetPriceList(ctx, seed); err != nil {
		log.Fatalf("seed price cache: %v", err)
	}
	for _, pp := range seed {
		fmt.Printf("seeded: %s (points=%d, price=$%.2f)\n", pp.PurchaseKey, pp.Points, pp.ExactPrice)
	}

	fmt.Println("Seeding complete.")
}

// Command seed loads a sample catalogue into the remote product and user API.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"storefront/internal/config"
	"storefront/internal/metrics"
	"storefront/internal/model"
	"storefront/internal/remote"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

var sampleProducts = []model.Product{
	{ID: "1", Name: "Walnut Desk", Description: "Solid walnut writing desk", Price: decimal.RequireFromString("349.00"), Stock: 12, Category: "furniture"},
	{ID: "2", Name: "Oak Chair", Description: "Spindle back dining chair", Price: decimal.RequireFromString("89.50"), Stock: 30, Category: "furniture"},
	{ID: "3", Name: "Desk Lamp", Price: decimal.RequireFromString("24.99"), Stock: 4, Category: "lighting", Colors: []string{"black", "white", "brass"}},
	{ID: "4", Name: "Linen Shirt", Price: decimal.RequireFromString("39.99"), Stock: 50, Category: "apparel", Sizes: []string{"S", "M", "L", "XL"}, Colors: []string{"sand", "navy"}},
	{ID: "5", Name: "Wool Throw", Price: decimal.RequireFromString("59.00"), Stock: 0, Category: "home"},
	{ID: "6", Name: "Ceramic Mug", Price: decimal.RequireFromString("12.00"), Stock: 3, Category: "kitchen", Colors: []string{"white"}},
}

var sampleUsers = []model.User{
	{ID: "1", Name: "Store Admin", Email: "admin@example.com", Role: model.RoleAdmin},
	{ID: "2", Name: "Ada Lovelace", Email: "ada@example.com", Phone: "+44 20 7946 0000", Role: model.RoleCustomer},
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if cfg.Remote.BaseURL == "" {
		fmt.Fprintln(os.Stderr, "REMOTE_BASE_URL must be set")
		os.Exit(1)
	}

	logger := config.NewLogger(cfg.Logger)
	api := remote.New(remote.Config{
		BaseURL:         cfg.Remote.BaseURL,
		Timeout:         cfg.Remote.Timeout,
		BreakerFailures: uint32(cfg.Remote.BreakerFailures),
		BreakerCooldown: cfg.Remote.BreakerCooldown,
	}, nil, metrics.New(prometheus.NewRegistry()), logger)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for i := range sampleProducts {
		p := &sampleProducts[i]
		if _, err := api.Products.Upsert(ctx, p.ID, p); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to seed product %s: %v\n", p.ID, err)
			os.Exit(1)
		}
		fmt.Printf("Seeded product %s (%s, stock %d)\n", p.ID, p.Name, p.Stock)
	}

	for i := range sampleUsers {
		u := &sampleUsers[i]
		if _, err := api.Users.Upsert(ctx, u.ID, u); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to seed user %s: %v\n", u.ID, err)
			os.Exit(1)
		}
		fmt.Printf("Seeded user %s (%s)\n", u.ID, u.Role)
	}

	fmt.Println("\nSample catalogue seeded successfully!")
}

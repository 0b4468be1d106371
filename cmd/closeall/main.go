package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"congress-alpha/internal/broker"
	"congress-alpha/internal/config"
	"congress-alpha/internal/logger"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	dryRun := flag.Bool("dry-run", false, "show positions without closing")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level)
	bc := broker.NewClient(cfg, log)

	ctx := context.Background()
	positions, err := bc.GetPositions(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "get positions error: %v\n", err)
		os.Exit(1)
	}

	if len(positions) == 0 {
		fmt.Println("No open positions.")
		return
	}

	fmt.Printf("Found %d position(s):\n\n", len(positions))
	for _, p := range positions {
		pnl := (p.CurrentPrice - p.AvgCost) * p.Quantity
		fmt.Printf("  %s: %.4f shares, avg cost %.2f, current %.2f, P&L %.2f\n",
			p.Ticker, p.Quantity, p.AvgCost, p.CurrentPrice, pnl)
	}
	fmt.Println()

	if *dryRun {
		fmt.Println("Dry run, no orders placed.")
		return
	}

	var closed, failed int
	for _, p := range positions {
		if p.Quantity <= 0 {
			continue
		}

		result, err := bc.PlaceMarketOrder(ctx, p.Ticker, -p.Quantity)
		if err != nil {
			fmt.Fprintf(os.Stderr, "  [FAIL] %s: sell: %v\n", p.Ticker, err)
			failed++
			continue
		}

		fmt.Printf("  [OK]   %s: sold %.4f shares (order %s)\n", p.Ticker, p.Quantity, result.OrderID)
		closed++
	}

	fmt.Printf("\nDone: %d closed, %d failed.\n", closed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}

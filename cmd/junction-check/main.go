package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"taskgraph/infrastructure/config"
	"taskgraph/infrastructure/di"
)

// junction-check runs the integrity validator over the full graph and exits
// non-zero when errors are found, so it can gate deploys and cron alerts.
func main() {
	jsonOutput := flag.Bool("json", false, "print the full report as JSON")
	timeout := flag.Duration("timeout", 2*time.Minute, "overall check timeout")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Shutdown()

	result := container.HealthService.RunHealthCheck(ctx)

	if *jsonOutput {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(result); err != nil {
			log.Fatalf("Failed to encode report: %v", err)
		}
	} else {
		fmt.Printf("junctions: %d  health: %d/100  errors: %d  warnings: %d\n",
			result.Statistics.TotalJunctions,
			result.Statistics.HealthScore,
			len(result.Errors),
			len(result.Warnings),
		)
	}

	if !result.IsValid {
		os.Exit(1)
	}
}

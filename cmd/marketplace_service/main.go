package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	var (
		configPath    = flag.String("config", "config/config.yaml", "path to the YAML config file")
		maxConcurrent = flag.Int("max-concurrent", 150, "maximum in-flight HTTP requests")
		rps           = flag.Float64("rps", 200, "sustained request rate limit (0 disables)")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *configPath, *maxConcurrent, *rps); err != nil {
		fmt.Fprintln(os.Stderr, "marketplace-service:", err)
		os.Exit(1)
	}
}

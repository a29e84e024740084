// Command scrapeform serves the scraper form on a local HTTP address.
// Usage: scrapeform serve [--addr 127.0.0.1:8080] [--clipboard memory]
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/raysh454/scrapeform/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

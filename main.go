package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/divyagonja/phoenixing/cmd"
	"github.com/divyagonja/phoenixing/internal/observability"
)

// main is the entry point for the phoenixing CLI.
func main() {
	// Listen for interrupt signals so in-flight scans and the API server
	// shut down gracefully.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	defer observability.Sync()

	cmd.Execute(ctx)
}

// File: cmd/webknow/main.go
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/dsoriano-dev/webknow/cmd"
	"github.com/dsoriano-dev/webknow/internal/observability"
)

func main() {
	// Listen for interrupt signals so in-flight task runs can finish with an
	// aborted terminal state instead of dying mid-write.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err := cmd.Execute(ctx)
	observability.Sync()

	if err != nil {
		if errors.Is(err, context.Canceled) {
			os.Exit(0)
		}
		os.Exit(1)
	}
}

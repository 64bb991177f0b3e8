// Command imagine generates images from text prompts and keeps a local
// history of the results.
//
// Usage:
//
//	imagine                       # interactive terminal UI
//	imagine generate -p "a fox"   # one-shot generation, saved to the export dir
//	imagine history list
//	imagine history export <id>
//	imagine history delete <id>
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		slog.Error("imagine failed", "error", err)
		stop()
		os.Exit(1)
	}
}

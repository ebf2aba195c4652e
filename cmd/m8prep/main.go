// Command m8prep flattens, shortens, and converts a sample library for the
// Dirtywave M8 tracker.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/fang"

	"github.com/backmassage/m8prep/internal/cli"
	"github.com/backmassage/m8prep/internal/config"
)

// version is injected at build time via -ldflags "-X main.version=...".
var version = ""

func main() {
	if version != "" {
		config.Version = version
	}

	// SIGINT/SIGTERM cancel the context: no new files are dispatched and
	// running ffmpeg processes are killed (their partial output is removed).
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := fang.Execute(ctx, cli.NewRootCmd(), fang.WithVersion(config.Version)); err != nil {
		stop()
		os.Exit(1)
	}
}

// Command railia runs the resilience layer as a standalone process.
//
// Usage:
//
//	railia serve --config railia.yaml --addr :8080
//	railia diag --config railia.yaml --format yaml
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Version information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand(Version, Commit).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "railia:", err)
		os.Exit(1)
	}
}

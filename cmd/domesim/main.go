// Command domesim loads the bundled example plugins into a simulated DOME
// host, without the engine, and prints what they did.
package main

import (
	"fmt"
	"log/slog"
	"os"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		logError(slog.New(slog.NewTextHandler(os.Stderr, nil)), "domesim failed", err)
		os.Exit(1)
	}
}

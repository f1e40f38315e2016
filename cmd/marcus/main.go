// Command marcus is the operator CLI: list-agents, agent-status,
// project-status, board-health, diagnose, and serve. Grounded on the
// teacher's cmd/shark/main.go (thin main delegating to internal/cli).
package main

import (
	"os"

	"github.com/jwwelbor/marcus/internal/cli"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	cli.SetVersion(Version)

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}

// Package cli implements the operator-facing surface: list-agents,
// agent-status, project-status, board-health, diagnose, and serve.
// Grounded on the teacher's internal/cli/root.go (global flags bound
// through viper, PersistentPreRunE config init) and cmd/shark/main.go
// (thin main that just calls cli.Execute).
package cli

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// GlobalConfig mirrors the teacher's CLI-wide flag bag: output mode and the
// config file path every subcommand reads from.
type GlobalConfig struct {
	JSON       bool
	NoColor    bool
	Verbose    bool
	ConfigFile string
}

var Global = &GlobalConfig{}

// RootCmd is the base command when marcus is invoked with no subcommand.
var RootCmd = &cobra.Command{
	Use:   "marcus",
	Short: "Marcus - task assignment and lifecycle coordinator for autonomous agents",
	Long: `Marcus coordinates task assignment and lifecycle across a pool of
autonomous agents: dependency-aware scheduling, lease-based assignment,
progress tracking, and board diagnostics.`,
	Version: "dev",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if Global.NoColor {
			pterm.DisableColor()
		}
		if Global.Verbose {
			pterm.EnableDebugMessages()
		}
		return nil
	},
}

// SetVersion sets the version string from build-time injection.
func SetVersion(version string) {
	RootCmd.Version = version
}

// Execute runs the root command.
func Execute() error {
	return RootCmd.Execute()
}

func init() {
	RootCmd.PersistentFlags().BoolVar(&Global.JSON, "json", false, "Output in JSON format (machine-readable)")
	RootCmd.PersistentFlags().BoolVar(&Global.NoColor, "no-color", false, "Disable colored output")
	RootCmd.PersistentFlags().BoolVarP(&Global.Verbose, "verbose", "v", false, "Enable verbose/debug output")
	RootCmd.PersistentFlags().StringVar(&Global.ConfigFile, "config", "", "Config file path (default: .marcusconfig.yaml)")

	for _, name := range []string{"json", "no-color", "verbose", "config"} {
		if err := viper.BindPFlag(name, RootCmd.PersistentFlags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("binding flag %q: %v", name, err))
		}
	}
}

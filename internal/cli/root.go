// Package cli wires the fleetdash commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fleetdash/internal/logger"
)

var configFlag string

var rootCmd = &cobra.Command{
	Use:   "fleetdash",
	Short: "SSH fleet monitoring dashboard",
	Long: `fleetdash continuously monitors a fleet of servers over SSH:
liveness probes, telemetry collection, threshold alerts and remote
command execution, served over a REST and WebSocket API.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "path to config file (default ./fleetdash.yaml)")
}

// Execute runs the CLI. Errors are printed with their suggestion and
// the process exits non-zero.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newLogger() logger.Logger {
	return logger.NewEnvLogger("fleetdash")
}

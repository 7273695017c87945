package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"fleetdash/internal/config"
	"fleetdash/internal/errors"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a fleetdash.yaml with default settings and an example
host entry to edit.

Examples:
  fleetdash init
  fleetdash init --force`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing config file")
}

func initConfig() error {
	path := configFlag
	if path == "" {
		path = "fleetdash.yaml"
	}

	if _, err := os.Stat(path); err == nil && !initForce {
		return errors.New(errors.ErrConfig,
			fmt.Sprintf("%s already exists", path),
			"pass --force to overwrite it")
	}

	cfg := config.DefaultConfig()
	cfg.Hosts = []config.Host{{
		ID:          "example",
		Name:        "Example Server",
		Address:     "192.168.1.10",
		Description: "edit me",
		Tags:        []string{"production"},
	}}

	if err := config.Save(cfg, path); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"csvharvest/internal/config"
)

var initForce bool

// initCmd writes a starting configuration file
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default configuration file",
	Long: `Writes the built-in defaults to --config, ready for the site, selectors
and filters to be filled in. Environment overrides are not written, so
credentials passed through HARVEST_PASSWORD never land on disk. An existing
file is kept unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().BoolVarP(&initForce, "force", "f", false, "Overwrite an existing file")
}

func runInit(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(configPath); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configPath)
	}
	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", configPath)
	return nil
}

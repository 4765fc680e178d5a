package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"csvharvest/internal/filter"
)

// validateCmd checks the configuration without running anything
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configuration file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return configError(err)
		}
		fm, err := filter.Compile(cfg.Transform.Filters)
		if err != nil {
			return configError(err)
		}

		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%s: OK\n", configPath)
		for _, rule := range fm {
			fmt.Fprintf(w, "  filter %s\n", rule.Desc)
		}
		fmt.Fprintf(w, "  sort by %s\n", cfg.Transform.SortColumn)
		fmt.Fprintf(w, "  source %s\n", cfg.Files.SourcePath())
		fmt.Fprintf(w, "  output %s\n", cfg.Files.OutputPath())
		return nil
	},
}

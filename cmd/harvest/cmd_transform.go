package main

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"csvharvest/internal/filter"
	"csvharvest/internal/logging"
	"csvharvest/internal/pipeline"
)

var transformInput string

// transformCmd applies the configured filters and sort to an existing file
var transformCmd = &cobra.Command{
	Use:   "transform",
	Short: "Filter and sort an already downloaded export",
	Long: `Applies transform.filters and transform.sort_column to --input and writes
files.output_filename into the same directory. The input file is removed once
the output has been written, exactly as after a scheduled run.`,
	Args: cobra.NoArgs,
	RunE: runTransform,
}

func init() {
	transformCmd.Flags().StringVarP(&transformInput, "input", "i", "", "CSV or XLSX file to transform")
	_ = transformCmd.MarkFlagRequired("input")
}

func runTransform(cmd *cobra.Command, args []string) error {
	if cfg.Transform.SortColumn == "" {
		return configError(errors.New("transform.sort_column is required"))
	}
	fm, err := filter.Compile(cfg.Transform.Filters)
	if err != nil {
		return configError(err)
	}

	t := pipeline.NewTransformer(afero.NewOsFs(), cfg.Files.OutputFilename, logging.For(logger, logging.CategoryTransform))
	if filepath.Base(transformInput) == t.OutputFilename {
		return fmt.Errorf("input %s would be overwritten by the output", transformInput)
	}
	out, err := t.Transform(filepath.Dir(transformInput), filepath.Base(transformInput), fm, cfg.Transform.SortColumn)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}

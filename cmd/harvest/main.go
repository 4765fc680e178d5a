// Command harvest logs into a web application on a schedule, exports a CSV
// report and writes a filtered, sorted copy of it.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"csvharvest/internal/config"
	"csvharvest/internal/logging"
)

var (
	// Global flags
	verbose    bool
	configPath string

	cfg    *config.Config
	logger *zap.Logger
)

// exitError carries a process exit code other than 1.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return 1
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "harvest",
	Short: "Scheduled browser export and CSV clean-up",
	Long: `harvest drives a headless Chromium through a web application's login
form and menus, triggers its CSV export, then filters and sorts the download
into a processed file next to it.

Run "harvest run" to start the daily schedule or "harvest once" for a single
run now.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// init writes the file the other commands read, so it must not
		// depend on one being loadable.
		if cmd == initCmd {
			logger = zap.NewNop()
			return nil
		}
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging, verbose)
		if err != nil {
			return err
		}
		logging.For(logger, logging.CategoryBoot).Debug("configuration loaded",
			zap.String("path", configPath),
			zap.String("command", cmd.Name()),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "harvest.yaml", "Path to the configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(initCmd, runCmd, onceCmd, transformCmd, validateCmd, nextCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCode(err))
	}
}

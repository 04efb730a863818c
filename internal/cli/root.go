// Package cli implements the gokite command line.
package cli

import (
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/gokite/internal/config"
	"github.com/me/gokite/internal/logging"
)

var (
	flagApp          string
	flagDB           string
	flagMetricsFile  string
	flagShutdownWait time.Duration
	flagDebug        bool
	flagLogLevel     string
	flagLogFormat    string

	logger *slog.Logger
	cfg    config.RunConfig
)

// NewRootCmd creates the root cobra command for the gokite CLI.
func NewRootCmd() *cobra.Command {
	defaults := config.DefaultRunConfig()

	root := &cobra.Command{
		Use:   "gokite",
		Short: "gokite runs time-partitioned data jobs",
		Long: `gokite runs data jobs whose inputs and outputs are time-partitioned views.

An external scheduler triggers "gokite run" with a nominal time; gokite resolves
every view the job declares for that time, invokes the job and exits with a
status that classifies the outcome.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagDebug {
				flagLogLevel = "debug"
			}
			logger = logging.NewLogger(logging.ParseLevel(flagLogLevel), flagLogFormat)

			cfg = config.RunConfig{
				AppPath:      flagApp,
				MetricsFile:  flagMetricsFile,
				LogLevel:     flagLogLevel,
				LogFormat:    flagLogFormat,
				ShutdownWait: flagShutdownWait,
				DBPath:       defaults.DBPath,
			}
			cfg.ApplyEnv(os.Getenv)
			if cmd.Flags().Changed("db") {
				cfg.DBPath = flagDB
			}
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagApp, "app", "", "Application definition file (or "+config.EnvApp+" env)")
	root.PersistentFlags().StringVar(&flagDB, "db", defaults.DBPath, "Dataset store path (or "+config.EnvDB+" env)")
	root.PersistentFlags().StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile on exit")
	root.PersistentFlags().DurationVar(&flagShutdownWait, "shutdown-wait", defaults.ShutdownWait, "Bounded wait for a graceful streaming stop")
	root.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&flagLogLevel, "log-level", defaults.LogLevel, "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&flagLogFormat, "log-format", defaults.LogFormat, "Log format (text, json)")

	root.AddCommand(
		newRunCmd(),
		newLocalCmd(),
		newValidateCmd(),
		newJobsCmd(),
		newResolveCmd(),
		newPartitionsCmd(),
		newExportCmd(),
		newServeCmd(),
	)

	return root
}

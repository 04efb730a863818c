package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/me/gokite/internal/bridge"
	"github.com/me/gokite/internal/config"
)

func newRunCmd() *cobra.Command {
	var defines []string
	var actionConf string

	cmd := &cobra.Command{
		Use:   "run <job>",
		Short: "Run one job for the nominal time of a trigger configuration",
		Long: `Run a registered job once, as triggered by an external scheduler.

The trigger configuration file is named by ` + config.EnvActionConf + ` (or --conf).
It must set nominal.time; binding.<name> entries replace the resolved
addresses of that binding and every other entry becomes a setting.
-D key=value overrides an entry of the file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if actionConf != "" {
				cfg.ActionConfPath = actionConf
			}
			defs, err := bridge.ParseDefines(defines)
			if err != nil {
				return err
			}
			tr, err := bridge.LoadTrigger(func(key string) string {
				if key == config.EnvActionConf {
					return cfg.ActionConfPath
				}
				return os.Getenv(key)
			}, defs)
			if err != nil {
				return err
			}

			ctx, stop := commandContext(cmd)
			defer stop()

			s, err := openSession(ctx, false)
			if err != nil {
				return err
			}
			defer s.Close()

			return bridge.New(s.runtime()).Run(ctx, args[0], tr)
		},
	}

	cmd.Flags().StringArrayVarP(&defines, "define", "D", nil, "Override a trigger configuration entry (key=value, repeatable)")
	cmd.Flags().StringVar(&actionConf, "conf", "", "Trigger configuration file (overrides "+config.EnvActionConf+")")

	return cmd
}

// commandContext returns a context canceled on SIGINT or SIGTERM.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

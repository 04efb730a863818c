package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/me/gokite/internal/bridge"
	"github.com/me/gokite/internal/engine"
	"github.com/me/gokite/pkg/model"
)

func newLocalCmd() *cobra.Command {
	var at, from, to, only string
	var defines []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "local",
		Short: "Run an application's schedules in-process",
		Long: `Run the schedules of an application without an external scheduler.

With --at every scheduled job runs once for that nominal time. With --from and
--to every cron firing in the range runs in chronological order; the run stops
at the first failure.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if (at == "") == (from == "" && to == "") {
				return model.ConfigurationError("local", "give either --at or both --from and --to")
			}
			settings, err := bridge.ParseDefines(defines)
			if err != nil {
				return err
			}

			ctx, stop := commandContext(cmd)
			defer stop()

			s, err := openSession(ctx, true)
			if err != nil {
				return err
			}
			defer s.Close()

			l, err := bridge.NewLocal(s.runtime(), engine.Settings(settings))
			if err != nil {
				return err
			}
			defer func() {
				if err := l.Close(); err != nil {
					logger.Warn("engine shutdown incomplete", "error", err)
				}
			}()

			out := cmd.OutOrStdout()
			if at != "" {
				nominal, err := bridge.ParseNominalTime(at)
				if err != nil {
					return err
				}
				if err := l.RunScheduled(ctx, nominal, only); err != nil {
					return err
				}
				fmt.Fprintf(out, "Ran %s for %s\n", scheduledLabel(only), nominal.Format(time.RFC3339))
				return nil
			}

			start, err := bridge.ParseNominalTime(from)
			if err != nil {
				return err
			}
			end, err := bridge.ParseNominalTime(to)
			if err != nil {
				return err
			}

			if dryRun {
				plan, err := l.Plan(start, end, only)
				if err != nil {
					return err
				}
				if len(plan) == 0 {
					fmt.Fprintln(out, "No firings in range.")
					return nil
				}
				fmt.Fprintf(out, "%-22s  %s\n", "NOMINAL TIME", "JOB")
				fmt.Fprintf(out, "%-22s  %s\n", "------------", "---")
				for _, f := range plan {
					fmt.Fprintf(out, "%-22s  %s\n", f.NominalTime.Format(time.RFC3339), f.Job)
				}
				return nil
			}

			n, err := l.Backfill(ctx, start, end, only)
			if err != nil {
				fmt.Fprintf(out, "Ran %d firings before failing\n", n)
				return err
			}
			fmt.Fprintf(out, "Ran %d firings\n", n)
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Run every scheduled job once for this nominal time")
	cmd.Flags().StringVar(&from, "from", "", "Start of the backfill range (inclusive)")
	cmd.Flags().StringVar(&to, "to", "", "End of the backfill range (inclusive)")
	cmd.Flags().StringVar(&only, "job", "", "Only run this job")
	cmd.Flags().StringArrayVarP(&defines, "define", "D", nil, "Extra setting (key=value, repeatable)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the backfill plan without running it")

	return cmd
}

func scheduledLabel(only string) string {
	if only == "" {
		return "all scheduled jobs"
	}
	return only
}

package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate an application definition against the registered jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Application %q is valid (%d schedules)\n\n", s.app.Name, len(s.app.Schedules))
			fmt.Fprintf(out, "%-30s  %-15s  %s\n", "JOB", "FREQUENCY", "NEXT")
			fmt.Fprintf(out, "%-30s  %-15s  %s\n", "---", "---------", "----")
			now := time.Now()
			for _, sc := range s.app.Schedules {
				fmt.Fprintf(out, "%-30s  %-15s  %s\n", sc.Job, sc.Frequency, sc.Next(now).Format(time.RFC3339))
			}
			return nil
		},
	}
}

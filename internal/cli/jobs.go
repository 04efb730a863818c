package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "jobs",
		Short: "List registered jobs and the views they declare",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd.Context(), false)
			if err != nil {
				return err
			}
			defer s.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%-28s  %-18s  %-4s  %-12s  %s\n", "JOB", "BINDING", "DIR", "KIND", "RECORD")
			fmt.Fprintf(out, "%-28s  %-18s  %-4s  %-12s  %s\n", "---", "-------", "---", "----", "------")
			for _, name := range s.jobs.Names() {
				m, err := s.jobs.Describe(name)
				if err != nil {
					return err
				}
				for _, slot := range m.Slots {
					fmt.Fprintf(out, "%-28s  %-18s  %-4s  %-12s  %s\n",
						name, slot.BindingName, slot.Direction, slot.Kind, slot.RecordType)
				}
			}
			return nil
		},
	}
}

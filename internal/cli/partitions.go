package cli

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newPartitionsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "partitions <dataset>",
		Short: "List the stored partitions of a dataset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := openStore(cmd.Context())
			if err != nil {
				return err
			}
			defer st.Close()

			parts, err := st.Partitions(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(parts) == 0 {
				fmt.Fprintf(out, "No partitions found for %s.\n", args[0])
				return nil
			}
			fmt.Fprintf(out, "%-50s  %-8s  %s\n", "PARTITION", "RECORDS", "WRITTEN")
			fmt.Fprintf(out, "%-50s  %-8s  %s\n", "---------", "-------", "-------")
			total := 0
			for _, p := range parts {
				fmt.Fprintf(out, "%-50s  %-8d  %s\n", p.URI, p.Records, humanize.Time(p.WrittenAt))
				total += p.Records
			}
			fmt.Fprintf(out, "%s records in %d partitions\n", humanize.Comma(int64(total)), len(parts))
			return nil
		},
	}
}

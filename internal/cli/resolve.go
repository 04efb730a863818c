package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/me/gokite/internal/bridge"
	"github.com/me/gokite/internal/resolve"
	"github.com/me/gokite/pkg/model"
)

func newResolveCmd() *cobra.Command {
	var at string
	var defines []string

	cmd := &cobra.Command{
		Use:   "resolve <job>",
		Short: "Print the addresses a scheduled job's views resolve to",
		Long: `Resolve every view of a scheduled job for a nominal time without running it.
-D binding.<name>=addr[,addr...] overrides a binding as a trigger would.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cfg.AppPath == "" {
				return model.ConfigurationError("resolve", "no application given (use --app)")
			}
			defs, err := bridge.ParseDefines(defines)
			if err != nil {
				return err
			}
			entries := map[string]string{bridge.KeyNominalTime: at}
			for k, v := range defs {
				entries[k] = v
			}
			tr, err := bridge.TriggerFromEntries(entries)
			if err != nil {
				return err
			}

			s, err := openSession(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer s.Close()

			sc, ok := s.app.Schedule(args[0])
			if !ok {
				return model.ConfigurationError("resolve", "job %q is not scheduled by application %q", args[0], s.app.Name)
			}

			out := cmd.OutOrStdout()
			for _, v := range sc.Views {
				rv, err := resolve.ResolveWithOverrides(v, tr.NominalTime, tr.Overrides)
				if err != nil {
					return err
				}
				var tag []string
				tag = append(tag, string(rv.Direction))
				if rv.Overridden {
					tag = append(tag, "override")
				}
				fmt.Fprintf(out, "%s (%s)\n", rv.Binding, strings.Join(tag, ", "))
				for _, addr := range rv.Addresses {
					fmt.Fprintf(out, "  %s\n", addr)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&at, "at", "", "Nominal time (e.g. 2015-05-15T12:00Z)")
	cmd.Flags().StringArrayVarP(&defines, "define", "D", nil, "Override a binding (binding.<name>=addr[,addr...])")
	_ = cmd.MarkFlagRequired("at")

	return cmd
}

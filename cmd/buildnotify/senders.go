package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Strob0t/buildnotify/internal/port/notifier"
)

func newSendersCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "senders",
		Short: "List registered sender providers and configured channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, flush, err := setup(root)
			if err != nil {
				return err
			}
			defer flush()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "PROVIDER\tCHANNELS")
			for _, p := range notifier.Available() {
				var names []string
				for _, ch := range cfg.Channels {
					if ch.Provider == p {
						names = append(names, ch.Name)
					}
				}
				_, _ = fmt.Fprintf(w, "%s\t%v\n", p, names)
			}
			return w.Flush()
		},
	}
}

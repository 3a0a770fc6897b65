package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tools in the manifest",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := a.setup(cmd)
			if err != nil {
				return err
			}
			defer rt.Close()

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "NAME\tINTENT\tDISPATCH\tCACHE\tDESCRIPTION")
			for _, t := range rt.box.Tools() {
				d := t.Descriptor()
				ttl := "-"
				if d.Cache > 0 {
					ttl = d.Cache.String()
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", d.Name, d.Intent, d.Dispatch.Kind(), ttl, d.Description)
			}
			return w.Flush()
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List registered index types and their capabilities",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := out(cmd)
			printSection(w, "Index types")

			tw := table(w)
			fmt.Fprintln(tw, "TYPE\tCAPABILITIES")
			for _, name := range a.rt.Types() {
				caps, _ := a.rt.Registry().Capabilities(name)
				fmt.Fprintf(tw, "%s\t%s\n", name, caps)
			}
			return tw.Flush()
		},
	}
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newPluginsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "plugins",
		Short: "List loaded modules and their registered type names",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := out(cmd)
			printSection(w, "Plugins")

			mods := a.rt.Loader().Modules()
			if len(mods) == 0 {
				printInfo(w, "no modules loaded")
				return nil
			}

			tw := table(w)
			fmt.Fprintln(tw, "NAME\tVERSION\tAPI\tREGISTERED AS\tLEASES\tPATH")
			for _, m := range mods {
				registered, ok := a.rt.Bridge().RegisteredName(m.Descriptor.Name)
				if !ok {
					registered = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\t%s\n",
					m.Descriptor.Name, m.Descriptor.Version, m.Descriptor.APIVersion, registered, m.Leases, m.Path)
			}
			return tw.Flush()
		},
	}
}

package cli

import (
	"fmt"

	"github.com/hupe1980/vecmod/binaryset"
	"github.com/spf13/cobra"
)

// blobs whose content is printed by inspect
const metaBlob = "meta"

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <name>",
		Short: "List the blobs of a stored binary set",
		Long: `Load a binary set from the configured store and list its blobs.
The meta blob, if present, is printed.

Example:
  vecmod inspect demo.idx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w := out(cmd)

			store, err := a.cfg.OpenStore(ctx)
			if err != nil {
				return err
			}
			set, err := binaryset.Load(ctx, store, args[0])
			if err != nil {
				return err
			}

			printSection(w, args[0])
			tw := table(w)
			fmt.Fprintln(tw, "BLOB\tBYTES\tCRC32")
			for _, key := range set.Keys() {
				b, _ := set.Get(key)
				fmt.Fprintf(tw, "%s\t%d\t%08x\n", key, b.Size(), binaryset.Checksum(b.Data))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if b, ok := set.Get(metaBlob); ok {
				fmt.Fprintf(w, "\n%s: %s\n", metaBlob, b.Data)
			}
			return nil
		},
	}
}

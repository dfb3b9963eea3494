package cli

import (
	"fmt"
	"io"
	"text/tabwriter"
)

// printSection prints a top-level section header, e.g. "=== Plugins ===".
func printSection(w io.Writer, title string) {
	fmt.Fprintf(w, "\n=== %s ===\n", title)
}

// printOK prints a success line.
func printOK(w io.Writer, name, msg string) {
	if name == "" {
		fmt.Fprintf(w, "  ✓  %s\n", msg)
	} else {
		fmt.Fprintf(w, "  ✓  [%s] %s\n", name, msg)
	}
}

// printInfo prints a neutral line.
func printInfo(w io.Writer, msg string) {
	fmt.Fprintf(w, "  ~  %s\n", msg)
}

// table returns a writer aligning tab-separated columns.
func table(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
}

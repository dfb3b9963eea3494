package cli

import (
	"fmt"
	"time"

	"github.com/hupe1980/vecmod/index"
	"github.com/hupe1980/vecmod/testutil"
	"github.com/spf13/cobra"
)

type demoFlags struct {
	typeName string
	metric   string
	rows     int
	dim      int
	queries  int
	k        int
	seed     int64
	save     string
}

func newDemoCmd(a *app) *cobra.Command {
	f := demoFlags{}

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Build an index over random vectors, search it and optionally save it",
		Long: `Create an index of the given type, build it over uniformly random vectors,
run a batch of random queries and print the nearest neighbors.

Example:
  vecmod demo --type FLAT --rows 10000 --dim 64 --k 5
  vecmod demo --type PLUGIN_SimpleVector --save demo.idx`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDemo(cmd, a, f)
		},
	}

	cmd.Flags().StringVarP(&f.typeName, "type", "t", "FLAT", "registered index type")
	cmd.Flags().StringVar(&f.metric, "metric", "L2", "metric type (L2, IP, COSINE)")
	cmd.Flags().IntVar(&f.rows, "rows", 1000, "number of vectors to build")
	cmd.Flags().IntVar(&f.dim, "dim", 32, "vector dimension")
	cmd.Flags().IntVar(&f.queries, "queries", 3, "number of queries")
	cmd.Flags().IntVar(&f.k, "k", 5, "neighbors per query")
	cmd.Flags().Int64Var(&f.seed, "seed", 42, "random seed")
	cmd.Flags().StringVar(&f.save, "save", "", "store the built index under this name")
	return cmd
}

func runDemo(cmd *cobra.Command, a *app, f demoFlags) error {
	ctx := cmd.Context()
	w := out(cmd)

	idx, err := a.rt.Create(f.typeName)
	if err != nil {
		return err
	}
	defer idx.Close()

	rng := testutil.NewRNG(f.seed)
	start := time.Now()
	if err := idx.Build(ctx, rng.DataSet(f.rows, f.dim), index.Config{
		index.KeyDim:        f.dim,
		index.KeyMetricType: f.metric,
	}); err != nil {
		return fmt.Errorf("build: %w", err)
	}
	printSection(w, "Demo")
	printOK(w, idx.Type(), fmt.Sprintf("built %d x %d in %s", idx.Count(), idx.Dim(), time.Since(start).Round(time.Microsecond)))

	res, err := idx.Search(ctx, rng.DataSet(f.queries, f.dim), index.Config{index.KeyK: f.k}, nil)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	for q := 0; q < res.Rows; q++ {
		ids, dists := res.Neighbors(q)
		fmt.Fprintf(w, "  query %d: ids=%v scores=%v\n", q, ids, dists)
	}

	if f.save != "" {
		store, err := a.cfg.OpenStore(ctx)
		if err != nil {
			return err
		}
		if err := a.rt.Save(ctx, store, f.save, idx); err != nil {
			return err
		}
		printOK(w, idx.Type(), "saved as "+f.save)
	}
	return nil
}

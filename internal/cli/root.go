// Package cli implements the vecmod command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/hupe1980/vecmod"
	"github.com/hupe1980/vecmod/internal/config"
	"github.com/hupe1980/vecmod/loader"
	"github.com/spf13/cobra"
)

// app carries the state shared by all subcommands of one invocation.
type app struct {
	configPath string
	pluginDirs []string

	cfg   *config.Config
	rt    *vecmod.Runtime
	extra []vecmod.Option
}

// NewRootCmd builds the command tree. extra options are applied to the
// Runtime after those derived from the configuration.
func NewRootCmd(extra ...vecmod.Option) *cobra.Command {
	a := &app{extra: extra}

	root := &cobra.Command{
		Use:          "vecmod",
		Short:        "vecmod: vector index host with loadable index modules",
		SilenceUsage: true, // don't print usage on operational errors
		Long: `vecmod hosts built-in vector indexes and index modules loaded at run time.

Modules are discovered in the directories listed under plugin_dirs in
vecmod.yaml, or given with --plugin-dir. Each module is registered as
PLUGIN_<name>.`,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd.Context())
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.teardown(cmd.Context())
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.FileName, "path to the configuration file")
	root.PersistentFlags().StringSliceVar(&a.pluginDirs, "plugin-dir", nil, "module directory (repeatable, overrides plugin_dirs)")

	root.AddCommand(
		newPluginsCmd(a),
		newTypesCmd(a),
		newDemoCmd(a),
		newInspectCmd(a),
	)
	return root
}

func (a *app) setup(ctx context.Context) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg

	opts := []vecmod.Option{
		vecmod.WithLogger(cfg.Logger()),
		vecmod.WithCompression(cfg.CompressionValue()),
		vecmod.WithLoaderOptions(loader.WithAPIVersion(cfg.APIVersion)),
	}
	a.rt = vecmod.New(append(opts, a.extra...)...)

	dirs := a.pluginDirs
	if len(dirs) == 0 {
		dirs = cfg.PluginDirs
	}
	if len(dirs) == 0 {
		return a.rt.Initialize(ctx, "")
	}
	var errs []error
	for _, dir := range dirs {
		errs = append(errs, a.rt.Initialize(ctx, dir))
	}
	return errors.Join(errs...)
}

func (a *app) teardown(ctx context.Context) error {
	if a.rt == nil {
		return nil
	}
	return a.rt.Close(ctx)
}

// Execute is called by main.go.
func Execute() {
	if err := NewRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// out returns the writer commands print to.
func out(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}

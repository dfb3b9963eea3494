// Package simplevector is an example index module: a brute-force index
// supporting the L2 and IP metrics, shipped both as a loadable plugin
// (cmd/simplevector-plugin) and as exports that can be linked statically.
package simplevector

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hupe1980/vecmod/dataset"
	"github.com/hupe1980/vecmod/distance"
	"github.com/hupe1980/vecmod/index"
	"github.com/hupe1980/vecmod/index/flat"
	"github.com/hupe1980/vecmod/logging"
	"github.com/hupe1980/vecmod/plugin"
)

// Module identity.
const (
	Name       = "SimpleVector"
	Version    = "1.0.0"
	DefaultDim = 128
)

// Compile-time checks to ensure the module types satisfy the contract.
var (
	_ plugin.Factory   = (*Factory)(nil)
	_ plugin.Config    = Config{}
	_ plugin.Lifecycle = (*Lifecycle)(nil)
	_ index.Index      = (*Index)(nil)
)

// Descriptor returns the module descriptor.
func Descriptor() plugin.Descriptor {
	return plugin.Descriptor{
		Name:        Name,
		Version:     Version,
		Author:      "vecmod",
		Description: "A simple brute-force vector search module",
		License:     "MIT",
		APIVersion:  plugin.APIVersion,
	}
}

// Config accepts dim in [1, 32768], metric_type L2 or IP and k in [1, 1024].
type Config struct{}

// Defaults returns the default settings.
func (Config) Defaults() index.Config {
	return index.Config{
		index.KeyDim:        DefaultDim,
		index.KeyMetricType: distance.L2.String(),
		index.KeyK:          flat.DefaultK,
	}
}

// Validate checks cfg.
func (Config) Validate(cfg index.Config) error {
	if err := (flat.Schema{}).Validate(cfg); err != nil {
		return err
	}
	if cfg.Has(index.KeyDim) {
		dim, _ := cfg.Int(index.KeyDim, 0)
		if dim < 1 {
			return &index.ConfigError{Key: index.KeyDim, Reason: fmt.Sprintf("dim must be positive, got %d", dim)}
		}
	}
	name, _ := cfg.String(index.KeyMetricType, distance.L2.String())
	if m, _ := distance.ParseMetric(name); m != distance.L2 && m != distance.IP {
		return &index.ConfigError{Key: index.KeyMetricType, Reason: "unsupported metric type: " + name}
	}
	return nil
}

// Index is the module's index. It delegates storage and search to a flat
// index and narrows the accepted configuration.
type Index struct {
	*flat.Flat
	cfg Config
}

// Build validates cfg against the module schema before building.
func (i *Index) Build(ctx context.Context, data *dataset.DataSet, cfg index.Config) error {
	if err := i.cfg.Validate(cfg); err != nil {
		return err
	}
	return i.Flat.Build(ctx, data, cfg)
}

// RangeSearch is not supported by this module.
func (i *Index) RangeSearch(context.Context, *dataset.DataSet, index.Config, index.Filter) (*dataset.DataSet, error) {
	return nil, fmt.Errorf("%w: range search", index.ErrNotImplemented)
}

// Features declares the module's capabilities.
func (i *Index) Features() index.Features {
	return index.Features{
		Metrics:   []string{distance.L2.String(), distance.IP.String()},
		DataTypes: []string{"float32"},
	}
}

// IndexMeta adds the module identity to the flat metadata.
func (i *Index) IndexMeta(cfg index.Config) (index.Meta, error) {
	meta, err := i.Flat.IndexMeta(cfg)
	if err != nil {
		return meta, err
	}
	meta.Extra["module_version"] = Version
	return meta, nil
}

// Factory creates SimpleVector indexes.
type Factory struct {
	logger *logging.Logger
}

// NewFactory returns a factory whose indexes log through logger.
// A nil logger discards output.
func NewFactory(logger *logging.Logger) *Factory {
	return &Factory{logger: logging.OrNoop(logger)}
}

// CreateIndex returns a new, unbuilt index.
func (f *Factory) CreateIndex() (index.Index, error) {
	return &Index{
		Flat: flat.New(func(o *flat.Options) {
			o.TypeName = Name
			o.Logger = f.logger
		}),
	}, nil
}

// CreateConfig returns the configuration schema.
func (f *Factory) CreateConfig() plugin.Config {
	return Config{}
}

// Descriptor returns the module descriptor.
func (f *Factory) Descriptor() plugin.Descriptor {
	return Descriptor()
}

// Lifecycle logs the module's load events.
type Lifecycle struct {
	plugin.NopLifecycle
	logger *logging.Logger
}

// OnLoad implements plugin.Lifecycle.
func (l *Lifecycle) OnLoad() error {
	l.logger.Info("SimpleVector module loaded")
	return nil
}

// OnUnload implements plugin.Lifecycle.
func (l *Lifecycle) OnUnload() error {
	l.logger.Info("SimpleVector module unloaded")
	return nil
}

// OnUpgrade implements plugin.Lifecycle.
func (l *Lifecycle) OnUpgrade(from, to uint32) error {
	l.logger.Info("SimpleVector module upgrade", slog.Any("from", from), slog.Any("to", to))
	return nil
}

var lifecycle = &Lifecycle{logger: logging.Noop()}

// SetLogger routes the module's lifecycle and index logs to logger.
// It must be called before the module is loaded.
func SetLogger(logger *logging.Logger) {
	lifecycle.logger = logging.OrNoop(logger).WithModule(Name)
}

// Exports returns the module's entry points. The lifecycle object is
// process-scoped.
func Exports() plugin.Exports {
	return plugin.Exports{
		APIVersion:     func() uint32 { return plugin.APIVersion },
		CreateFactory:  func() plugin.Factory { return NewFactory(lifecycle.logger) },
		DestroyFactory: func(plugin.Factory) {},
		Lifecycle:      func() plugin.Lifecycle { return lifecycle },
	}
}

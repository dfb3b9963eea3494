package plugin

import (
	"errors"
	"fmt"

	"github.com/hupe1980/vecmod/index"
)

// APIVersion is the module contract version this host implements.
const APIVersion uint32 = 1

// Names of the symbols a module exports.
const (
	SymbolAPIVersion     = "GetPluginAPIVersion"
	SymbolCreateFactory  = "CreatePluginFactory"
	SymbolDestroyFactory = "DestroyPluginFactory"
	SymbolLifecycle      = "GetPluginLifecycle"
)

// ErrInvalidDescriptor is returned when a descriptor lacks required fields.
var ErrInvalidDescriptor = errors.New("invalid module descriptor")

// Descriptor is a module's self-reported identity.
type Descriptor struct {
	Name        string `json:"name" yaml:"name"`
	Version     string `json:"version" yaml:"version"`
	Author      string `json:"author,omitempty" yaml:"author,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	License     string `json:"license,omitempty" yaml:"license,omitempty"`
	APIVersion  uint32 `json:"api_version" yaml:"api_version"`
}

// Validate reports whether d can identify a loaded module.
func (d Descriptor) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidDescriptor)
	}
	return nil
}

func (d Descriptor) String() string {
	if d.Version == "" {
		return d.Name
	}
	return d.Name + "@" + d.Version
}

// Factory creates the index objects of a module.
type Factory interface {
	// CreateIndex returns a new, unbuilt index. The caller owns it and must
	// Close it before the module is unloaded.
	CreateIndex() (index.Index, error)

	// CreateConfig returns the module's configuration schema.
	CreateConfig() Config

	// Descriptor returns the module identity.
	Descriptor() Descriptor
}

// Config describes the settings accepted by a module's indexes.
type Config interface {
	// Defaults returns the default settings.
	Defaults() index.Config

	// Validate checks cfg.
	Validate(cfg index.Config) error
}

// Lifecycle receives advisory load, unload and upgrade notifications.
// A returned error is logged by the host and never aborts the operation.
type Lifecycle interface {
	OnLoad() error
	OnUnload() error
	OnUpgrade(from, to uint32) error
}

// NopLifecycle implements Lifecycle with hooks that always succeed.
// Embed it to override only some hooks.
type NopLifecycle struct{}

func (NopLifecycle) OnLoad() error                   { return nil }
func (NopLifecycle) OnUnload() error                 { return nil }
func (NopLifecycle) OnUpgrade(from, to uint32) error { return nil }

// Signatures of the exported symbols.
type (
	APIVersionFunc     = func() uint32
	CreateFactoryFunc  = func() Factory
	DestroyFactoryFunc = func(Factory)
	LifecycleFunc      = func() Lifecycle
)

// Exports bundles a module's entry points. Modules linked into the host
// binary provide one directly instead of exporting symbols.
type Exports struct {
	APIVersion     APIVersionFunc
	CreateFactory  CreateFactoryFunc
	DestroyFactory DestroyFactoryFunc
	// Lifecycle is optional.
	Lifecycle LifecycleFunc
}

// Lookup returns the entry point registered under a symbol name, or false if
// the module does not provide it.
func (e Exports) Lookup(symbol string) (any, bool) {
	switch symbol {
	case SymbolAPIVersion:
		return e.APIVersion, e.APIVersion != nil
	case SymbolCreateFactory:
		return e.CreateFactory, e.CreateFactory != nil
	case SymbolDestroyFactory:
		return e.DestroyFactory, e.DestroyFactory != nil
	case SymbolLifecycle:
		return e.Lifecycle, e.Lifecycle != nil
	default:
		return nil, false
	}
}

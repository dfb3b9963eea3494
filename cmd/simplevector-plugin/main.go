// Command simplevector-plugin builds the SimpleVector index module as a
// loadable Go plugin:
//
//	go build -buildmode=plugin -o simplevector.so ./cmd/simplevector-plugin
package main

import (
	"github.com/hupe1980/vecmod/plugin"
	"github.com/hupe1980/vecmod/plugin/simplevector"
)

var exports = simplevector.Exports()

// GetPluginAPIVersion reports the module contract version.
func GetPluginAPIVersion() uint32 {
	return exports.APIVersion()
}

// CreatePluginFactory returns a new factory owned by the caller.
func CreatePluginFactory() plugin.Factory {
	return exports.CreateFactory()
}

// DestroyPluginFactory releases a factory returned by CreatePluginFactory.
func DestroyPluginFactory(f plugin.Factory) {
	exports.DestroyFactory(f)
}

// GetPluginLifecycle returns the process-scoped lifecycle hooks.
func GetPluginLifecycle() plugin.Lifecycle {
	return exports.Lifecycle()
}

func main() {}

// Package plugin defines the contract between the host and a dynamically
// loaded index module.
//
// A module is a Go plugin (built with -buildmode=plugin) whose main package
// exports the following symbols:
//
//	func GetPluginAPIVersion() uint32        // mandatory
//	func CreatePluginFactory() plugin.Factory // mandatory
//	func DestroyPluginFactory(plugin.Factory) // mandatory
//	func GetPluginLifecycle() plugin.Lifecycle // optional
//
// The API version is checked before any other symbol is resolved. A module
// reporting a version other than APIVersion is closed without further calls.
package plugin

package app

import (
	"fmt"
)

// Plugin configures an App. Build runs as soon as the plugin is added.
type Plugin interface {
	// Build registers the plugin's systems, resources and sub-plugins.
	//
	// Parameters:
	//   - app: the app being configured
	//
	// Returns:
	//   - error: a configuration error; the plugin is not recorded as added when Build fails
	Build(app App) error
}

// NamedPlugin overrides the name used to detect duplicate plugins.
// Plugins that may be added several times with different configuration return a name derived from that configuration.
type NamedPlugin interface {
	Plugin

	// Name returns the unique name of this plugin instance.
	Name() string
}

// Finisher is implemented by plugins that need a second pass once every plugin has been built,
// typically to create GPU resources that depend on resources inserted by later plugins.
type Finisher interface {
	// Finish runs once from App.Finish.
	Finish(app App) error
}

// PluginName returns the name under which p is registered.
//
// Parameters:
//   - p: the plugin
//
// Returns:
//   - string: p.Name() for a NamedPlugin, otherwise the plugin's dynamic type
func PluginName(p Plugin) string {
	if n, ok := p.(NamedPlugin); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", p)
}

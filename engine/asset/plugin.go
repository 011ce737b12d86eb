package asset

import (
	"io/fs"

	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
)

// Plugin inserts a Server into the main world. The render plugin shares it with the render world.
type Plugin struct {
	fsys    fs.FS
	options []ServerBuilderOption
}

var _ app.Plugin = &Plugin{}

// NewPlugin creates the asset plugin.
//
// Parameters:
//   - fsys: the asset file system
//   - options: options forwarded to NewServer
//
// Returns:
//   - *Plugin: the plugin
func NewPlugin(fsys fs.FS, options ...ServerBuilderOption) *Plugin {
	return &Plugin{fsys: fsys, options: options}
}

func (p *Plugin) Build(a app.App) error {
	s, err := NewServer(p.fsys, p.options...)
	if err != nil {
		return err
	}
	ecs.InsertResource(a.World(), s)
	return nil
}

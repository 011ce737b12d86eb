package renderer

import (
	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/cogentcore/webgpu/wgpu"
)

// RenderApp is the label of the sub-app owning the render world.
const RenderApp app.SubAppLabel = "render"

// Render sets, in execution order. Extraction from the main world runs before all of them.
const (
	// ExtractCommands applies work queued by extract systems.
	ExtractCommands app.Set = iota
	// PrepareAssets creates GPU objects for loaded assets, including queued pipelines.
	PrepareAssets
	// ManageViews acquires the surface texture and the render targets of every view.
	ManageViews
	// PrepareResources writes per-frame uniform buffers.
	PrepareResources
	// Queue records what each view will draw.
	Queue
	// Render runs the render graph for every view and presents the frame.
	Render
	// Cleanup clears the render world's entities.
	Cleanup
)

// PresentMode controls how rendered frames are presented to the display surface.
type PresentMode int

const (
	// PresentModeVSync waits for the next vertical blank before presenting, capping frame rate
	// to the monitor's refresh rate. Eliminates tearing.
	PresentModeVSync PresentMode = iota

	// PresentModeUncapped presents frames immediately without waiting for vertical blank.
	// May cause screen tearing but provides the lowest latency.
	PresentModeUncapped
)

func (m PresentMode) wgpu() wgpu.PresentMode {
	switch m {
	case PresentModeVSync:
		return wgpu.PresentModeFifo
	case PresentModeUncapped:
		fallthrough
	default:
		return wgpu.PresentModeImmediate
	}
}

func (m PresentMode) String() string {
	switch m {
	case PresentModeVSync:
		return "vsync"
	case PresentModeUncapped:
		return "uncapped"
	default:
		return "unknown"
	}
}

package view

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/yohamta/donburi"
)

// SurfaceTexture is the render-world resource holding the surface texture acquired for the current frame.
// It is stored as a pointer so the nodes writing the surface can record that it has been cleared.
type SurfaceTexture struct {
	View render_resource.TextureView
	// Cleared is set by the first pass of the frame that clears View.
	Cleared bool
}

// mainTextures is the ping-pong pair of a view. current selects the texture holding the latest output.
type mainTextures struct {
	size     common.Extent
	textures [2]render_resource.Texture
	views    [2]render_resource.TextureView
	current  atomic.Uint32
	seen     bool
}

func (m *mainTextures) release() {
	for i := range m.textures {
		if m.views[i] != nil {
			m.views[i].Release()
		}
		if m.textures[i] != nil {
			m.textures[i].Release()
		}
	}
}

// PostProcessWrite is the texture pair of one post-processing pass: read Source, write Destination.
type PostProcessWrite struct {
	Source      render_resource.TextureView
	Destination render_resource.TextureView
}

// ViewTarget is the render-world component giving a view its main textures and its output surface.
type ViewTarget struct {
	main *mainTextures
	out  render_resource.TextureView
}

// MainTextureView returns the main texture holding the view's latest output.
func (t ViewTarget) MainTextureView() render_resource.TextureView {
	return t.main.views[t.main.current.Load()]
}

// MainTexture returns the texture behind MainTextureView.
func (t ViewTarget) MainTexture() render_resource.Texture {
	return t.main.textures[t.main.current.Load()]
}

// MainTextureFormat returns the format of both main textures.
func (t ViewTarget) MainTextureFormat() wgpu.TextureFormat {
	return render_resource.DefaultTextureFormat
}

// Size returns the size of the main textures.
func (t ViewTarget) Size() common.Extent {
	return t.main.size
}

// PostProcessWrite swaps the main textures and returns the pair for one pass. The previous current
// texture becomes the source and the other texture becomes the destination and the new current
// texture, so later passes read what this one writes.
//
// Returns:
//   - PostProcessWrite: the source and destination views
func (t ViewTarget) PostProcessWrite() PostProcessWrite {
	old := t.main.current.Load()
	next := 1 - old
	t.main.current.Store(next)
	return PostProcessWrite{Source: t.main.views[old], Destination: t.main.views[next]}
}

// OutTextureView returns the surface texture the view is finally written to. It is nil when no
// surface texture was acquired this frame.
func (t ViewTarget) OutTextureView() render_resource.TextureView {
	return t.out
}

// ViewTargets is the render-world resource caching the main textures of every camera across frames.
type ViewTargets struct {
	mu      sync.Mutex
	targets map[donburi.Entity]*mainTextures
}

// NewViewTargets creates an empty cache.
func NewViewTargets() *ViewTargets {
	return &ViewTargets{targets: make(map[donburi.Entity]*mainTextures)}
}

// Len returns the number of cached cameras.
func (v *ViewTargets) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.targets)
}

// Release frees every cached texture.
func (v *ViewTargets) Release() {
	v.mu.Lock()
	defer v.mu.Unlock()
	for e, m := range v.targets {
		m.release()
		delete(v.targets, e)
	}
}

// get returns the cached pair for main, creating it or recreating it when size changed.
func (v *ViewTargets) get(device render_resource.RenderDevice, main donburi.Entity, size common.Extent) (*mainTextures, error) {
	if m, ok := v.targets[main]; ok && m.size == size {
		m.seen = true
		return m, nil
	} else if ok {
		m.release()
		delete(v.targets, main)
	}

	m := &mainTextures{size: size, seen: true}
	for i := range m.textures {
		tex, err := device.CreateTexture(render_resource.TextureDescriptor{
			Label:  fmt.Sprintf("main_texture_%c", 'a'+i),
			Width:  size.Width,
			Height: size.Height,
			Format: render_resource.DefaultTextureFormat,
			Usage:  wgpu.TextureUsageRenderAttachment | wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopySrc,
		})
		if err != nil {
			m.release()
			return nil, fmt.Errorf("create main texture: %w", err)
		}
		m.textures[i] = tex
		if m.views[i], err = tex.CreateView(); err != nil {
			m.release()
			return nil, fmt.Errorf("create main texture view: %w", err)
		}
	}
	v.targets[main] = m
	return m, nil
}

// PrepareViewTargets attaches a ViewTarget to every extracted view, creating main textures the size of
// the view's viewport. Textures of cameras that no longer render are released.
//
// Parameters:
//   - world: the render world, holding the RenderDevice, *ViewTargets and optionally *SurfaceTexture resources
//
// Returns:
//   - error: an error if a texture could not be created
func PrepareViewTargets(world *ecs.World) error {
	device, ok := ecs.Resource[render_resource.RenderDevice](world)
	if !ok {
		return nil
	}
	targets, ok := ecs.Resource[*ViewTargets](world)
	if !ok {
		targets = NewViewTargets()
		ecs.InsertResource(world, targets)
	}
	var out render_resource.TextureView
	if surface, ok := ecs.Resource[*SurfaceTexture](world); ok && surface != nil {
		out = surface.View
	}

	targets.mu.Lock()
	defer targets.mu.Unlock()
	for _, m := range targets.targets {
		m.seen = false
	}

	var err error
	ecs.Each(world, func(e donburi.Entity, v ExtractedView) {
		if err != nil {
			return
		}
		var m *mainTextures
		if m, err = targets.get(device, v.Main, v.Size()); err != nil {
			return
		}
		ecs.Insert(world, e, ViewTarget{main: m, out: out})
	})

	for main, m := range targets.targets {
		if !m.seen {
			m.release()
			delete(targets.targets, main)
		}
	}
	return err
}

package renderer

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/cogentcore/webgpu/wgpu"
)

type wgpuSurfaceImpl struct {
	mu     sync.Mutex
	device *wgpuRenderDeviceImpl

	surface     *wgpu.Surface
	format      wgpu.TextureFormat
	alphaMode   wgpu.CompositeAlphaMode
	presentMode wgpu.PresentMode
	size        common.Extent

	frameTexture *wgpu.Texture
	frameView    *wgpuTextureView
}

var _ render_resource.Surface = &wgpuSurfaceImpl{}

func (s *wgpuSurfaceImpl) Format() wgpu.TextureFormat {
	return s.format
}

func (s *wgpuSurfaceImpl) Size() common.Extent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Configure is required whenever the window size changes.
func (s *wgpuSurfaceImpl) Configure(size common.Extent) error {
	if size.IsZero() {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.device.mu.Lock()
	s.surface.Configure(s.device.adapter, s.device.device, &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      s.format,
		Width:       size.Width,
		Height:      size.Height,
		PresentMode: s.presentMode,
		AlphaMode:   s.alphaMode,
	})
	s.device.mu.Unlock()
	s.size = size
	return nil
}

func (s *wgpuSurfaceImpl) AcquireTexture() (render_resource.TextureView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// wgpu-native rejects a second acquisition before the first frame is presented.
	if s.frameTexture != nil {
		return nil, errors.New("previous frame surface not yet presented")
	}
	if s.size.IsZero() {
		return nil, errors.New("surface not configured")
	}

	tex, err := s.surface.GetCurrentTexture()
	if err != nil {
		return nil, err
	}
	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, err
	}
	s.frameTexture = tex
	s.frameView = &wgpuTextureView{wgpuResource: wgpuResource{label: "Surface View", release: view.Release}, view: view}
	return s.frameView, nil
}

func (s *wgpuSurfaceImpl) Present() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frameTexture == nil {
		return
	}
	s.surface.Present()
	s.frameView.Release()
	s.frameTexture.Release()
	s.frameView = nil
	s.frameTexture = nil
}

func (s *wgpuSurfaceImpl) release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.frameView != nil {
		s.frameView.Release()
		s.frameTexture.Release()
		s.frameView = nil
		s.frameTexture = nil
	}
	s.surface.Release()
}

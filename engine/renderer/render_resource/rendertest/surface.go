package rendertest

import (
	"errors"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// Surface is an in-memory render_resource.Surface. Each acquired frame is a fresh texture.
type Surface struct {
	size     common.Extent
	format   wgpu.TextureFormat
	current  *TextureView
	Frames   []*TextureView
	Presents int
}

var _ render_resource.Surface = &Surface{}

// NewSurface creates a surface of the given size using the default texture format.
func NewSurface(width, height uint32) *Surface {
	return &Surface{size: common.Extent{Width: width, Height: height}, format: render_resource.DefaultTextureFormat}
}

func (s *Surface) Format() wgpu.TextureFormat { return s.format }

func (s *Surface) Size() common.Extent { return s.size }

func (s *Surface) Configure(size common.Extent) error {
	if size.IsZero() {
		return nil
	}
	s.size = size
	return nil
}

func (s *Surface) AcquireTexture() (render_resource.TextureView, error) {
	if s.current != nil {
		return nil, errors.New("rendertest: surface texture already acquired")
	}
	t := &Texture{base: base{label: "surface"}, size: s.size, format: s.format}
	s.current = &TextureView{base: base{label: "surface_view"}, texture: t}
	s.Frames = append(s.Frames, s.current)
	return s.current, nil
}

func (s *Surface) Present() {
	s.current = nil
	s.Presents++
}

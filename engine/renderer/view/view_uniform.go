package view

import (
	_ "embed"
	"unsafe"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/shader"
	"github.com/yohamta/donburi"
)

// ViewUniformSource is the WGSL definition of the View struct, available to shaders as
// "//@oxy:include view". It matches ViewUniform's layout exactly (160 bytes).
//
//go:embed assets/view.wgsl
var ViewUniformSource string

func init() {
	shader.RegisterInclude("view", ViewUniformSource)
}

// ViewUniform is the GPU-aligned per-view uniform. See ViewUniformSource.
type ViewUniform struct {
	ViewProj        [16]float32 // offset   0
	InverseViewProj [16]float32 // offset  64
	WorldPosition   [3]float32  // offset 128
	_pad            float32     // offset 140
	Viewport        [4]float32  // offset 144
}

// Size returns the size of the ViewUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (160)
func (u ViewUniform) Size() int {
	return int(unsafe.Sizeof(u))
}

// Marshal serializes the ViewUniform for GPU upload.
//
// Returns:
//   - []byte: the serialized byte buffer
func (u ViewUniform) Marshal() []byte {
	buf := make([]byte, u.Size())
	off := common.PutFloat32s(buf, 0, u.ViewProj[:]...)
	off = common.PutFloat32s(buf, off, u.InverseViewProj[:]...)
	off = common.PutFloat32s(buf, off, u.WorldPosition[:]...)
	common.PutFloat32s(buf, off+4, u.Viewport[:]...)
	return buf
}

// NewViewUniform computes the uniform of an extracted view.
func NewViewUniform(v ExtractedView) ViewUniform {
	u := ViewUniform{
		WorldPosition: v.Position,
		Viewport:      [4]float32{float32(v.Viewport.X), float32(v.Viewport.Y), float32(v.Viewport.Width), float32(v.Viewport.Height)},
	}
	common.Mul4(u.ViewProj[:], v.Projection[:], v.View[:])
	if !common.Invert4(u.InverseViewProj[:], u.ViewProj[:]) {
		common.Identity(u.InverseViewProj[:])
	}
	return u
}

// ViewUniforms is the render-world resource packing every view's uniform into one dynamic uniform buffer.
type ViewUniforms struct {
	Uniforms *render_resource.DynamicUniformBuffer[ViewUniform]
}

// ViewUniformOffset is the render-world component holding a view's dynamic offset into ViewUniforms.
type ViewUniformOffset struct {
	Offset uint32
}

// PrepareViewUniforms writes the uniform of every extracted view and attaches its ViewUniformOffset.
//
// Parameters:
//   - world: the render world, holding the RenderDevice resource
//
// Returns:
//   - error: an error if the buffer could not be written
func PrepareViewUniforms(world *ecs.World) error {
	device, ok := ecs.Resource[render_resource.RenderDevice](world)
	if !ok {
		return nil
	}
	uniforms, ok := ecs.Resource[*ViewUniforms](world)
	if !ok {
		uniforms = &ViewUniforms{
			Uniforms: render_resource.NewDynamicUniformBuffer[ViewUniform]("view_uniforms", device.Limits().MinUniformBufferOffsetAlignment),
		}
		ecs.InsertResource(world, uniforms)
	}

	uniforms.Uniforms.Clear()
	ecs.Each(world, func(e donburi.Entity, v ExtractedView) {
		offset := uniforms.Uniforms.Push(NewViewUniform(v))
		ecs.Insert(world, e, ViewUniformOffset{Offset: offset})
	})
	return uniforms.Uniforms.Write(device)
}

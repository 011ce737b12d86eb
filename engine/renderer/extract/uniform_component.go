package extract

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-postfx/engine/app"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/view"
	"github.com/yohamta/donburi"
)

// ComponentUniforms holds this frame's T values of the render world, one aligned slot per entity.
type ComponentUniforms[T render_resource.ShaderType] struct {
	Uniforms *render_resource.DynamicUniformBuffer[T]
}

// Binding returns the buffer binding shared by every T value.
//
// Returns:
//   - render_resource.BufferBinding: the binding, sized to one T
//   - bool: false until the first non-empty frame has been written
func (u *ComponentUniforms[T]) Binding() (render_resource.BufferBinding, bool) {
	if u == nil || u.Uniforms == nil {
		return render_resource.BufferBinding{}, false
	}
	return u.Uniforms.Binding()
}

// DynamicUniformIndex is the dynamic offset of an entity's T value inside ComponentUniforms[T].
type DynamicUniformIndex[T render_resource.ShaderType] struct {
	Index uint32
}

// UniformComponentPlugin writes the extracted T components of the render world into ComponentUniforms[T]
// and tags each entity with its DynamicUniformIndex[T].
type UniformComponentPlugin[T render_resource.ShaderType] struct{}

var _ app.NamedPlugin = &UniformComponentPlugin[view.ViewUniform]{}

// NewUniformComponentPlugin creates the uniform plugin for T.
//
// Returns:
//   - *UniformComponentPlugin[T]: the plugin
func NewUniformComponentPlugin[T render_resource.ShaderType]() *UniformComponentPlugin[T] {
	return &UniformComponentPlugin[T]{}
}

func (p *UniformComponentPlugin[T]) Name() string {
	var zero T
	return fmt.Sprintf("uniform_component[%T]", zero)
}

func (p *UniformComponentPlugin[T]) Build(a app.App) error {
	sub, ok := a.SubApp(renderer.RenderApp)
	if !ok {
		return fmt.Errorf("%s: %w: %s", p.Name(), app.ErrSubAppNotFound, renderer.RenderApp)
	}
	sub.AddSystems(renderer.PrepareResources, PrepareUniformComponents[T])
	return nil
}

// PrepareUniformComponents packs every T of the render world into ComponentUniforms[T] in entity order.
//
// Parameters:
//   - world: the render world
//
// Returns:
//   - error: an error if the uniform buffer could not be written
func PrepareUniformComponents[T render_resource.ShaderType](world *ecs.World) error {
	device, ok := ecs.Resource[render_resource.RenderDevice](world)
	if !ok {
		return nil
	}
	uniforms, ok := ecs.Resource[*ComponentUniforms[T]](world)
	if !ok {
		var zero T
		uniforms = &ComponentUniforms[T]{
			Uniforms: render_resource.NewDynamicUniformBuffer[T](fmt.Sprintf("%T_uniforms", zero), device.Limits().MinUniformBufferOffsetAlignment),
		}
		ecs.InsertResource(world, uniforms)
	}

	uniforms.Uniforms.Clear()
	ecs.Each(world, func(e donburi.Entity, v T) {
		ecs.Insert(world, e, DynamicUniformIndex[T]{Index: uniforms.Uniforms.Push(v)})
	})
	return uniforms.Uniforms.Write(device)
}

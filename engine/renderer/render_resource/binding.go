package render_resource

import (
	"fmt"

	"github.com/cogentcore/webgpu/wgpu"
)

// Texture2DEntry returns a layout entry for a single-sample 2D texture.
//
// Parameters:
//   - sampleType: how the shader samples the texture
//
// Returns:
//   - wgpu.BindGroupLayoutEntry: an entry with Binding and Visibility left for SequentialLayout to fill
func Texture2DEntry(sampleType wgpu.TextureSampleType) wgpu.BindGroupLayoutEntry {
	var e wgpu.BindGroupLayoutEntry
	e.Texture.SampleType = sampleType
	e.Texture.ViewDimension = wgpu.TextureViewDimension2D
	e.Texture.Multisampled = false
	return e
}

// SamplerEntry returns a layout entry for a sampler.
func SamplerEntry(bindingType wgpu.SamplerBindingType) wgpu.BindGroupLayoutEntry {
	var e wgpu.BindGroupLayoutEntry
	e.Sampler.Type = bindingType
	return e
}

// UniformBufferEntry returns a layout entry for a uniform buffer holding one T.
//
// Parameters:
//   - dynamic: whether the binding takes a dynamic offset at SetBindGroup time
func UniformBufferEntry[T ShaderType](dynamic bool) wgpu.BindGroupLayoutEntry {
	return UniformBufferEntrySized(SizeOf[T](), dynamic)
}

// UniformBufferEntrySized is UniformBufferEntry for a size known only at runtime.
func UniformBufferEntrySized(minBindingSize uint64, dynamic bool) wgpu.BindGroupLayoutEntry {
	var e wgpu.BindGroupLayoutEntry
	e.Buffer.Type = wgpu.BufferBindingTypeUniform
	e.Buffer.HasDynamicOffset = dynamic
	e.Buffer.MinBindingSize = minBindingSize
	return e
}

// SequentialLayout numbers entries 0..n-1 in order and sets their visibility.
//
// Parameters:
//   - visibility: shader stages that can access every entry
//   - entries: entries built with the *Entry helpers
//
// Returns:
//   - []wgpu.BindGroupLayoutEntry: the numbered entries
func SequentialLayout(visibility wgpu.ShaderStage, entries ...wgpu.BindGroupLayoutEntry) []wgpu.BindGroupLayoutEntry {
	out := make([]wgpu.BindGroupLayoutEntry, len(entries))
	for i, e := range entries {
		e.Binding = uint32(i)
		e.Visibility = visibility
		out[i] = e
	}
	return out
}

// BindingResource converts a TextureView, Sampler or BufferBinding into a bind group entry at binding.
// It panics on any other type, which is a programming error.
//
// Parameters:
//   - binding: the binding index
//   - resource: the resource to bind
//
// Returns:
//   - BindGroupEntry: the entry
func BindingResource(binding uint32, resource any) BindGroupEntry {
	e := BindGroupEntry{Binding: binding}
	switch r := resource.(type) {
	case BufferBinding:
		e.Buffer, e.Offset, e.Size = r.Buffer, r.Offset, r.Size
	case TextureView:
		e.TextureView = r
	case Sampler:
		e.Sampler = r
	default:
		panic(fmt.Sprintf("render_resource: %T cannot be bound", resource))
	}
	return e
}

// SequentialEntries numbers resources 0..n-1 in order. Use it with a layout built by SequentialLayout.
func SequentialEntries(resources ...any) []BindGroupEntry {
	out := make([]BindGroupEntry, len(resources))
	for i, r := range resources {
		out[i] = BindingResource(uint32(i), r)
	}
	return out
}

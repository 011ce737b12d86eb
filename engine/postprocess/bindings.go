package postprocess

import (
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/view"
	"github.com/cogentcore/webgpu/wgpu"
)

// slot is one binding of the post-process bind group.
type slot int

const (
	slotSource slot = iota
	slotSampler
	slotSettings
	slotView
)

// bindingSlots is the bind group layout in binding order. Layout entries, bind group entries and
// dynamic offsets are all derived from it, so their order cannot drift apart.
var bindingSlots = []slot{slotSource, slotSampler, slotSettings, slotView}

// bindingVisibility is shared by every slot.
const bindingVisibility = wgpu.ShaderStageVertex | wgpu.ShaderStageFragment

func (s slot) String() string {
	switch s {
	case slotSource:
		return "source"
	case slotSampler:
		return "sampler"
	case slotSettings:
		return "settings"
	case slotView:
		return "view"
	default:
		return "unknown"
	}
}

func (s slot) layoutEntry(settingsSize uint64) wgpu.BindGroupLayoutEntry {
	switch s {
	case slotSource:
		return render_resource.Texture2DEntry(wgpu.TextureSampleTypeFloat)
	case slotSampler:
		return render_resource.SamplerEntry(wgpu.SamplerBindingTypeFiltering)
	case slotSettings:
		return render_resource.UniformBufferEntrySized(settingsSize, true)
	default:
		return render_resource.UniformBufferEntrySized(render_resource.SizeOf[view.ViewUniform](), true)
	}
}

// bindInputs are the per-view resources bound by the node.
type bindInputs struct {
	source   render_resource.TextureView
	sampler  render_resource.Sampler
	settings render_resource.BufferBinding
	view     render_resource.BufferBinding

	settingsIndex uint32
	viewOffset    uint32
}

func (s slot) resource(in bindInputs) any {
	switch s {
	case slotSource:
		return in.source
	case slotSampler:
		return in.sampler
	case slotSettings:
		return in.settings
	default:
		return in.view
	}
}

// dynamicOffset returns the slot's dynamic offset, or false for slots without one.
func (s slot) dynamicOffset(in bindInputs) (uint32, bool) {
	switch s {
	case slotSettings:
		return in.settingsIndex, true
	case slotView:
		return in.viewOffset, true
	default:
		return 0, false
	}
}

func layoutEntries(settingsSize uint64) []wgpu.BindGroupLayoutEntry {
	entries := make([]wgpu.BindGroupLayoutEntry, len(bindingSlots))
	for i, s := range bindingSlots {
		entries[i] = s.layoutEntry(settingsSize)
	}
	return render_resource.SequentialLayout(bindingVisibility, entries...)
}

func bindGroupEntries(in bindInputs) []render_resource.BindGroupEntry {
	resources := make([]any, len(bindingSlots))
	for i, s := range bindingSlots {
		resources[i] = s.resource(in)
	}
	return render_resource.SequentialEntries(resources...)
}

func dynamicOffsets(in bindInputs) []uint32 {
	var offsets []uint32
	for _, s := range bindingSlots {
		if o, ok := s.dynamicOffset(in); ok {
			offsets = append(offsets, o)
		}
	}
	return offsets
}

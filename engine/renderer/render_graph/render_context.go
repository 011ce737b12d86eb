package render_graph

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
)

// RenderContext records a frame's commands into one command encoder and keeps the transient
// resources nodes create until the commands have been submitted.
type RenderContext struct {
	device    render_resource.RenderDevice
	label     string
	encoder   render_resource.CommandEncoder
	transient []render_resource.Resource
	open      bool
}

// NewRenderContext creates a RenderContext. The command encoder is created on first use.
//
// Parameters:
//   - device: the render device
//   - label: the debug label of the frame's command encoder
//
// Returns:
//   - *RenderContext: the context
func NewRenderContext(device render_resource.RenderDevice, label string) *RenderContext {
	return &RenderContext{device: device, label: label}
}

// Device returns the render device.
func (c *RenderContext) Device() render_resource.RenderDevice {
	return c.device
}

// CommandEncoder returns the frame's encoder, creating it if needed.
func (c *RenderContext) CommandEncoder() (render_resource.CommandEncoder, error) {
	if c.encoder == nil {
		enc, err := c.device.CreateCommandEncoder(c.label)
		if err != nil {
			return nil, fmt.Errorf("create command encoder %q: %w", c.label, err)
		}
		c.encoder = enc
	}
	return c.encoder, nil
}

// BeginTrackedRenderPass starts a render pass on the frame's encoder.
//
// Parameters:
//   - desc: the render pass description
//
// Returns:
//   - *TrackedRenderPass: the pass, which must be ended before the next one begins
//   - error: an error if the encoder could not be created or a pass is still open
func (c *RenderContext) BeginTrackedRenderPass(desc render_resource.RenderPassDescriptor) (*TrackedRenderPass, error) {
	if c.open {
		return nil, fmt.Errorf("begin render pass %q: previous pass not ended", desc.Label)
	}
	enc, err := c.CommandEncoder()
	if err != nil {
		return nil, err
	}
	c.open = true
	return &TrackedRenderPass{pass: enc.BeginRenderPass(desc), ctx: c}, nil
}

// Track keeps resource alive until ReleaseTransient.
func (c *RenderContext) Track(resource render_resource.Resource) {
	c.transient = append(c.transient, resource)
}

// Finish closes the encoder. It returns no command buffers when no node recorded anything.
func (c *RenderContext) Finish() ([]render_resource.CommandBuffer, error) {
	if c.encoder == nil {
		return nil, nil
	}
	enc := c.encoder
	c.encoder = nil
	defer enc.Release()
	if c.open {
		return nil, errors.New("finish frame: render pass not ended")
	}
	cb, err := enc.Finish()
	if err != nil {
		return nil, fmt.Errorf("finish command encoder %q: %w", c.label, err)
	}
	return []render_resource.CommandBuffer{cb}, nil
}

// ReleaseTransient releases every tracked resource. Call it after Submit.
func (c *RenderContext) ReleaseTransient() {
	for _, r := range c.transient {
		r.Release()
	}
	c.transient = nil
}

// TrackedRenderPass forwards to a render pass and drops redundant pipeline and bind group changes.
type TrackedRenderPass struct {
	pass       render_resource.RenderPass
	ctx        *RenderContext
	pipeline   render_resource.RenderPipeline
	bindGroups map[uint32]boundGroup
}

type boundGroup struct {
	group   render_resource.BindGroup
	offsets []uint32
}

// SetRenderPipeline selects pipeline unless it is already selected.
func (p *TrackedRenderPass) SetRenderPipeline(pipeline render_resource.RenderPipeline) {
	if p.pipeline == pipeline {
		return
	}
	p.pipeline = pipeline
	p.pass.SetPipeline(pipeline)
}

// SetBindGroup binds group at index with offsets unless the same binding is already active.
func (p *TrackedRenderPass) SetBindGroup(index uint32, group render_resource.BindGroup, offsets []uint32) {
	if b, ok := p.bindGroups[index]; ok && b.group == group && slices.Equal(b.offsets, offsets) {
		return
	}
	if p.bindGroups == nil {
		p.bindGroups = make(map[uint32]boundGroup)
	}
	p.bindGroups[index] = boundGroup{group: group, offsets: slices.Clone(offsets)}
	p.pass.SetBindGroup(index, group, offsets)
}

// SetViewport restricts drawing to a rectangle of the target.
func (p *TrackedRenderPass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.pass.SetViewport(x, y, width, height, minDepth, maxDepth)
}

// Draw issues a non-indexed draw.
func (p *TrackedRenderPass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.pass.Draw(vertexCount, instanceCount, firstVertex, firstInstance)
}

// End closes the pass.
func (p *TrackedRenderPass) End() error {
	p.ctx.open = false
	return p.pass.End()
}

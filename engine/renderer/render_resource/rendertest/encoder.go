package rendertest

import (
	"errors"
	"sort"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/cogentcore/webgpu/wgpu"
)

// Op is the kind of a recorded render pass command.
type Op int

const (
	OpSetPipeline Op = iota
	OpSetBindGroup
	OpSetViewport
	OpDraw
)

// Command is one recorded render pass command. Only the fields relevant to Op are set.
type Command struct {
	Op        Op
	Pipeline  *RenderPipeline
	Index     uint32
	BindGroup *BindGroup
	Offsets   []uint32
	Viewport  [6]float32

	VertexCount, InstanceCount, FirstVertex, FirstInstance uint32
}

// Pass is a recorded render pass.
type Pass struct {
	Desc     render_resource.RenderPassDescriptor
	Commands []Command
	Ended    bool

	device   *Device
	pipeline *RenderPipeline
	groups   map[uint32]Command
}

// Draws returns the draw commands of the pass.
func (p *Pass) Draws() []Command {
	var out []Command
	for _, c := range p.Commands {
		if c.Op == OpDraw {
			out = append(out, c)
		}
	}
	return out
}

// Target returns the view of the first color attachment.
func (p *Pass) Target() *TextureView {
	if len(p.Desc.ColorAttachments) == 0 {
		return nil
	}
	v, _ := p.Desc.ColorAttachments[0].View.(*TextureView)
	return v
}

// CommandEncoder records passes. Clears and draws are simulated as they are recorded.
type CommandEncoder struct {
	device   *Device
	label    string
	passes   []*Pass
	open     *Pass
	finished bool
}

func (e *CommandEncoder) BeginRenderPass(desc render_resource.RenderPassDescriptor) render_resource.RenderPass {
	p := &Pass{Desc: desc, device: e.device, groups: make(map[uint32]Command)}
	for _, a := range desc.ColorAttachments {
		if a.LoadOp != wgpu.LoadOpClear {
			continue
		}
		if v, ok := a.View.(*TextureView); ok {
			v.SetContents(clearBytes(a.ClearValue))
		}
	}
	e.passes = append(e.passes, p)
	e.open = p
	return p
}

func (e *CommandEncoder) Finish() (render_resource.CommandBuffer, error) {
	if e.finished {
		return nil, errors.New("rendertest: encoder already finished")
	}
	if e.open != nil && !e.open.Ended {
		return nil, errors.New("rendertest: render pass still open")
	}
	e.finished = true
	return &CommandBuffer{base: base{label: e.label}, Passes: e.passes}, nil
}

func (e *CommandEncoder) Release() {}

func (p *Pass) SetPipeline(pipeline render_resource.RenderPipeline) {
	rp := pipeline.(*RenderPipeline)
	p.pipeline = rp
	p.Commands = append(p.Commands, Command{Op: OpSetPipeline, Pipeline: rp})
}

func (p *Pass) SetBindGroup(index uint32, group render_resource.BindGroup, offsets []uint32) {
	c := Command{Op: OpSetBindGroup, Index: index, BindGroup: group.(*BindGroup), Offsets: append([]uint32(nil), offsets...)}
	p.groups[index] = c
	p.Commands = append(p.Commands, c)
}

func (p *Pass) SetViewport(x, y, width, height, minDepth, maxDepth float32) {
	p.Commands = append(p.Commands, Command{Op: OpSetViewport, Viewport: [6]float32{x, y, width, height, minDepth, maxDepth}})
}

func (p *Pass) Draw(vertexCount, instanceCount, firstVertex, firstInstance uint32) {
	p.Commands = append(p.Commands, Command{
		Op:            OpDraw,
		Pipeline:      p.pipeline,
		VertexCount:   vertexCount,
		InstanceCount: instanceCount,
		FirstVertex:   firstVertex,
		FirstInstance: firstInstance,
	})
	if p.device.shade == nil || p.Target() == nil {
		return
	}
	in := p.drawInput()
	p.Target().SetContents(p.device.shade(in))
}

func (p *Pass) End() error {
	if p.Ended {
		return errors.New("rendertest: render pass ended twice")
	}
	p.Ended = true
	return nil
}

// drawInput resolves the bound groups, applying dynamic offsets in binding order.
func (p *Pass) drawInput() DrawInput {
	in := DrawInput{Pipeline: p.pipeline, Target: p.Target()}
	indices := make([]uint32, 0, len(p.groups))
	for i := range p.groups {
		indices = append(indices, i)
	}
	sort.Slice(indices, func(a, b int) bool { return indices[a] < indices[b] })

	for _, idx := range indices {
		c := p.groups[idx]
		layout := c.BindGroup.Desc.Layout.Entries()
		dyn := 0
		for i, e := range c.BindGroup.Desc.Entries {
			switch {
			case e.TextureView != nil:
				if v, ok := e.TextureView.(*TextureView); ok {
					in.Textures = append(in.Textures, v)
				}
			case e.Buffer != nil:
				offset := e.Offset
				if layout[i].Buffer.HasDynamicOffset && dyn < len(c.Offsets) {
					offset += uint64(c.Offsets[dyn])
					dyn++
				}
				data := e.Buffer.(*Buffer).Data
				end := min(offset+e.Size, uint64(len(data)))
				in.Uniforms = append(in.Uniforms, append([]byte(nil), data[offset:end]...))
			}
		}
	}
	return in
}

func clearBytes(c wgpu.Color) []byte {
	buf := make([]byte, 16)
	common.PutFloat32s(buf, 0, float32(c.R), float32(c.G), float32(c.B), float32(c.A))
	return buf
}

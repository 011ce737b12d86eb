package postprocess

import (
	"errors"
	"sync"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/core3d"
	"github.com/Carmen-Shannon/oxy-postfx/engine/ecs"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_graph"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
)

// ErrNotReady is returned by Pipeline.Init while the render world lacks a device, asset server or pipeline cache.
var ErrNotReady = errors.New("postprocess: render device not available")

// config is the immutable description of one post-process effect.
type config struct {
	shaderPath      string
	label           render_graph.Label
	debugLabel      string
	layoutLabel     string
	entryPoint      string
	vertex          *pipeline.VertexState
	pipelineOptions []pipeline.PipelineBuilderOption
}

func newConfig(shaderPath string, label render_graph.Label, options ...PluginBuilderOption) config {
	c := config{
		shaderPath:  shaderPath,
		label:       label,
		debugLabel:  string(label) + "_pipeline",
		layoutLabel: string(label) + "_bind_group_layout",
		entryPoint:  "fragment",
	}
	for _, option := range options {
		option(&c)
	}
	return c
}

// Pipeline holds the GPU objects shared by every view of one effect: the bind group layout, the
// sampler and the id of the queued render pipeline. They are created once, on first use.
type Pipeline struct {
	mu sync.Mutex

	config       config
	settingsSize uint64

	ready   bool
	layout  render_resource.BindGroupLayout
	sampler render_resource.Sampler
	shader  asset.Handle
	id      pipeline.CachedRenderPipelineID
}

func newPipeline(c config, settingsSize uint64) *Pipeline {
	return &Pipeline{config: c, settingsSize: settingsSize}
}

// Init creates the layout and sampler and queues the render pipeline. It does nothing once it has
// succeeded; a failed Init is retried on the next call.
//
// Parameters:
//   - render: the render world
//
// Returns:
//   - error: ErrNotReady while a required render resource is missing, or a device error
func (p *Pipeline) Init(render *ecs.World) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ready {
		return nil
	}

	device, ok := ecs.Resource[render_resource.RenderDevice](render)
	if !ok {
		return ErrNotReady
	}
	server, ok := ecs.Resource[asset.Server](render)
	if !ok {
		return ErrNotReady
	}
	cache, ok := ecs.Resource[pipeline.PipelineCache](render)
	if !ok {
		return ErrNotReady
	}

	layout, err := device.CreateBindGroupLayout(render_resource.BindGroupLayoutDescriptor{
		Label:   p.config.layoutLabel,
		Entries: layoutEntries(p.settingsSize),
	})
	if err != nil {
		return err
	}
	sampler, err := device.CreateSampler(string(p.config.label)+"_sampler", common.SamplerStagingData{})
	if err != nil {
		layout.Release()
		return err
	}

	vertex := core3d.FullscreenVertexState()
	if p.config.vertex != nil {
		vertex = *p.config.vertex
	}
	p.shader = server.Load(p.config.shaderPath)
	options := append([]pipeline.PipelineBuilderOption{
		pipeline.WithLayout(layout),
		pipeline.WithFragment(p.shader, p.config.entryPoint, render_resource.DefaultTextureFormat),
	}, p.config.pipelineOptions...)

	p.layout = layout
	p.sampler = sampler
	p.id = cache.QueueRenderPipeline(pipeline.NewRenderPipelineDescriptor(p.config.debugLabel, vertex, options...))
	p.ready = true
	common.Logger().Info("post-process pipeline queued", "label", p.config.label, "shader", p.config.shaderPath, "id", p.id)
	return nil
}

// Ready reports whether Init has succeeded.
func (p *Pipeline) Ready() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ready
}

// Layout returns the bind group layout, nil before Init succeeds.
func (p *Pipeline) Layout() render_resource.BindGroupLayout {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.layout
}

// Sampler returns the source texture sampler, nil before Init succeeds.
func (p *Pipeline) Sampler() render_resource.Sampler {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sampler
}

// ID returns the cached pipeline id; it is meaningful only once Ready.
func (p *Pipeline) ID() pipeline.CachedRenderPipelineID {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.id
}

// Shader returns the handle of the effect's fragment shader.
func (p *Pipeline) Shader() asset.Handle {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shader
}

// Label returns the effect's graph node label.
func (p *Pipeline) Label() render_graph.Label {
	return p.config.label
}

// PipelineFor returns the registry of the effect added under label.
//
// Parameters:
//   - render: the render world
//   - label: the effect's node label
//
// Returns:
//   - *Pipeline: the registry
//   - bool: false if no effect uses label
func PipelineFor(render *ecs.World, label render_graph.Label) (*Pipeline, bool) {
	return ecs.NamedResource[*Pipeline](render, string(label))
}

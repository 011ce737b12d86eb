package pipeline

import (
	"errors"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/render_resource"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

var (
	// ErrEntryPointNotFound is recorded when a shader does not define a stage's entry point.
	ErrEntryPointNotFound = errors.New("pipeline: entry point not found")
	// ErrBindingMismatch is recorded when a shader declares a binding the pipeline layout does not provide.
	ErrBindingMismatch = errors.New("pipeline: shader binding not in layout")
	// ErrUnknownPipeline is returned for ids the cache never issued.
	ErrUnknownPipeline = errors.New("pipeline: unknown pipeline id")
)

// CachedRenderPipelineID identifies a queued render pipeline. It stays valid for the cache's lifetime.
type CachedRenderPipelineID int

// PipelineState is the creation state of a queued pipeline.
type PipelineState int

const (
	// PipelineStateQueued pipelines wait for their shaders to load.
	PipelineStateQueued PipelineState = iota
	// PipelineStateCreating pipelines are being compiled.
	PipelineStateCreating
	// PipelineStateOk pipelines are ready to bind.
	PipelineStateOk
	// PipelineStateErr pipelines failed; they are retried when one of their shaders changes.
	PipelineStateErr
)

func (s PipelineState) String() string {
	switch s {
	case PipelineStateQueued:
		return "queued"
	case PipelineStateCreating:
		return "creating"
	case PipelineStateOk:
		return "ok"
	case PipelineStateErr:
		return "err"
	default:
		return fmt.Sprintf("PipelineState(%d)", int(s))
	}
}

type moduleKey struct {
	handle  asset.Handle
	version uint64
}

type cachedPipeline struct {
	desc       RenderPipelineDescriptor
	state      PipelineState
	pipeline   render_resource.RenderPipeline
	err        error
	generation uint64
}

type pipelineCache struct {
	mu sync.Mutex

	device      render_resource.RenderDevice
	assets      asset.Server
	synchronous bool
	workers     int

	pipelines []*cachedPipeline
	waiting   []CachedRenderPipelineID
	modules   map[moduleKey]render_resource.ShaderModule

	pool     worker.DynamicWorkerPool
	taskID   atomic.Int64
	inflight sync.WaitGroup
}

// PipelineCache creates render pipelines once their shaders are loaded, without blocking the frame.
// Callers queue a descriptor once, keep the returned id, and look the pipeline up every frame.
type PipelineCache interface {
	// QueueRenderPipeline queues desc for creation.
	//
	// Parameters:
	//   - desc: the pipeline description
	//
	// Returns:
	//   - CachedRenderPipelineID: the id to look the pipeline up with
	QueueRenderPipeline(desc RenderPipelineDescriptor) CachedRenderPipelineID

	// GetRenderPipeline returns the pipeline for id if it has been created.
	//
	// Returns:
	//   - render_resource.RenderPipeline: the pipeline, nil until ready
	//   - bool: true if the pipeline is ready
	GetRenderPipeline(id CachedRenderPipelineID) (render_resource.RenderPipeline, bool)

	// GetRenderPipelineState returns the state of id and, for PipelineStateErr, the failure.
	GetRenderPipelineState(id CachedRenderPipelineID) (PipelineState, error)

	// Descriptor returns the descriptor id was queued with.
	Descriptor(id CachedRenderPipelineID) (RenderPipelineDescriptor, error)

	// ProcessQueue requeues pipelines whose shaders were reloaded and starts creating every queued
	// pipeline whose shaders are loaded. It is called once per frame from the render world.
	ProcessQueue()

	// Wait blocks until in-flight pipeline creation finishes.
	Wait()

	// Release waits for in-flight work and frees every pipeline and shader module.
	Release()
}

var _ PipelineCache = &pipelineCache{}

// NewPipelineCache creates a PipelineCache creating pipelines on device from shaders served by assets.
//
// Parameters:
//   - device: the render device
//   - assets: the asset server shaders are loaded from
//   - options: functional options to configure the cache
//
// Returns:
//   - PipelineCache: the cache
func NewPipelineCache(device render_resource.RenderDevice, assets asset.Server, options ...PipelineCacheBuilderOption) PipelineCache {
	c := &pipelineCache{
		device:  device,
		assets:  assets,
		workers: 2,
		modules: make(map[moduleKey]render_resource.ShaderModule),
	}
	for _, option := range options {
		option(c)
	}
	if !c.synchronous {
		c.pool = worker.NewDynamicWorkerPool(c.workers, 32, time.Second)
	}
	return c
}

func (c *pipelineCache) QueueRenderPipeline(desc RenderPipelineDescriptor) CachedRenderPipelineID {
	c.mu.Lock()
	defer c.mu.Unlock()
	id := CachedRenderPipelineID(len(c.pipelines))
	c.pipelines = append(c.pipelines, &cachedPipeline{desc: desc, state: PipelineStateQueued})
	c.waiting = append(c.waiting, id)
	return id
}

func (c *pipelineCache) GetRenderPipeline(id CachedRenderPipelineID) (render_resource.RenderPipeline, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.lookup(id)
	if p == nil || p.pipeline == nil {
		return nil, false
	}
	return p.pipeline, true
}

func (c *pipelineCache) GetRenderPipelineState(id CachedRenderPipelineID) (PipelineState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.lookup(id)
	if p == nil {
		return PipelineStateErr, fmt.Errorf("%w: %d", ErrUnknownPipeline, id)
	}
	return p.state, p.err
}

func (c *pipelineCache) Descriptor(id CachedRenderPipelineID) (RenderPipelineDescriptor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.lookup(id)
	if p == nil {
		return RenderPipelineDescriptor{}, fmt.Errorf("%w: %d", ErrUnknownPipeline, id)
	}
	return p.desc, nil
}

func (c *pipelineCache) lookup(id CachedRenderPipelineID) *cachedPipeline {
	if id < 0 || int(id) >= len(c.pipelines) {
		return nil
	}
	return c.pipelines[id]
}

func (c *pipelineCache) ProcessQueue() {
	c.requeueModified()

	c.mu.Lock()
	waiting := c.waiting
	c.waiting = nil
	c.mu.Unlock()

	var still []CachedRenderPipelineID
	for _, id := range waiting {
		c.mu.Lock()
		p := c.pipelines[id]
		desc := p.desc
		c.mu.Unlock()

		shaders, ready, err := c.loadedShaders(desc)
		switch {
		case err != nil:
			c.finish(id, p.generation, nil, err)
		case !ready:
			still = append(still, id)
		default:
			c.mu.Lock()
			p.state = PipelineStateCreating
			gen := p.generation
			c.mu.Unlock()
			c.schedule(id, gen, desc, shaders)
		}
	}

	c.mu.Lock()
	c.waiting = append(c.waiting, still...)
	c.mu.Unlock()
}

// requeueModified drops modules compiled from reloaded shaders and queues the pipelines that use them.
// In-flight creations may hold a stale module until they reach the device, so they finish first.
func (c *pipelineCache) requeueModified() {
	modified := c.assets.TakeModified()
	if len(modified) == 0 {
		return
	}
	c.inflight.Wait()
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, m := range c.modules {
		if slices.Contains(modified, key.handle) && key.version != c.assets.Version(key.handle) {
			m.Release()
			delete(c.modules, key)
		}
	}
	for i, p := range c.pipelines {
		id := CachedRenderPipelineID(i)
		if !slices.ContainsFunc(p.desc.Shaders(), func(h asset.Handle) bool { return slices.Contains(modified, h) }) {
			continue
		}
		if slices.Contains(c.waiting, id) {
			continue
		}
		common.Logger().Info("requeueing pipeline after shader change", "pipeline", p.desc.Label)
		p.generation++
		p.state = PipelineStateQueued
		p.err = nil
		c.waiting = append(c.waiting, id)
	}
}

// loadedShaders returns the vertex and fragment shaders of desc once both are loaded.
// ready is false while either is still loading; err is set if either failed.
func (c *pipelineCache) loadedShaders(desc RenderPipelineDescriptor) (map[asset.Handle]shader.Shader, bool, error) {
	out := make(map[asset.Handle]shader.Shader, 2)
	for _, h := range desc.Shaders() {
		sh, state, err := c.assets.Get(h)
		switch state {
		case asset.LoadStateLoaded:
			out[h] = sh
		case asset.LoadStateFailed:
			return nil, false, fmt.Errorf("pipeline %q: shader %s: %w", desc.Label, h, err)
		case asset.LoadStateNotLoaded:
			c.assets.Load(h.Path())
			return nil, false, nil
		default:
			return nil, false, nil
		}
	}
	return out, true, nil
}

func (c *pipelineCache) schedule(id CachedRenderPipelineID, gen uint64, desc RenderPipelineDescriptor, shaders map[asset.Handle]shader.Shader) {
	run := func() {
		p, err := c.create(desc, shaders)
		c.finish(id, gen, p, err)
	}
	if c.pool == nil {
		run()
		return
	}
	c.inflight.Add(1)
	c.pool.SubmitTask(worker.Task{
		ID:      int(c.taskID.Add(1)),
		Payload: id,
		Do: func() (any, error) {
			defer c.inflight.Done()
			run()
			return nil, nil
		},
	})
}

// finish publishes a creation result unless the pipeline was requeued since it started.
func (c *pipelineCache) finish(id CachedRenderPipelineID, gen uint64, created render_resource.RenderPipeline, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p := c.pipelines[id]
	if p.generation != gen {
		if created != nil {
			created.Release()
		}
		return
	}
	if err != nil {
		common.Logger().Error("render pipeline creation failed", "pipeline", p.desc.Label, "error", err)
		p.state, p.err = PipelineStateErr, err
		return
	}
	if p.pipeline != nil {
		p.pipeline.Release()
	}
	p.pipeline, p.state, p.err = created, PipelineStateOk, nil
	common.Logger().Debug("render pipeline created", "pipeline", p.desc.Label)
}

func (c *pipelineCache) create(desc RenderPipelineDescriptor, shaders map[asset.Handle]shader.Shader) (render_resource.RenderPipeline, error) {
	vsh := shaders[desc.Vertex.Shader]
	if err := checkStage(desc.Label, vsh, desc.Vertex.EntryPoint, shader.StageVertex); err != nil {
		return nil, err
	}
	if err := checkBindings(desc, vsh); err != nil {
		return nil, err
	}
	vs, err := c.module(desc.Vertex.Shader, vsh)
	if err != nil {
		return nil, err
	}

	var fs render_resource.ShaderModule
	if desc.Fragment != nil {
		fsh := shaders[desc.Fragment.Shader]
		if err := checkStage(desc.Label, fsh, desc.Fragment.EntryPoint, shader.StageFragment); err != nil {
			return nil, err
		}
		if err := checkBindings(desc, fsh); err != nil {
			return nil, err
		}
		if fs, err = c.module(desc.Fragment.Shader, fsh); err != nil {
			return nil, err
		}
	}

	p, err := c.device.CreateRenderPipeline(desc.resolve(vs, fs))
	if err != nil {
		return nil, fmt.Errorf("pipeline %q: %w", desc.Label, err)
	}
	return p, nil
}

// module returns the shader module for the current version of h, compiling it on first use.
func (c *pipelineCache) module(h asset.Handle, sh shader.Shader) (render_resource.ShaderModule, error) {
	key := moduleKey{handle: h, version: c.assets.Version(h)}
	c.mu.Lock()
	if m, ok := c.modules[key]; ok {
		c.mu.Unlock()
		return m, nil
	}
	c.mu.Unlock()

	m, err := c.device.CreateShaderModule(h.Path(), sh.Source())
	if err != nil {
		return nil, fmt.Errorf("shader module %s: %w", h, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if existing, ok := c.modules[key]; ok {
		m.Release()
		return existing, nil
	}
	c.modules[key] = m
	return m, nil
}

func checkStage(label string, sh shader.Shader, entryPoint string, stage shader.Stage) error {
	if sh.Reflection().HasEntryPoint(entryPoint, stage) {
		return nil
	}
	return fmt.Errorf("pipeline %q: %w: %s %q in %s", label, ErrEntryPointNotFound, stage, entryPoint, sh.Path())
}

// checkBindings verifies every resource the shader declares exists in the layout with a matching kind.
func checkBindings(desc RenderPipelineDescriptor, sh shader.Shader) error {
	for _, b := range sh.Reflection().Bindings {
		if int(b.Group) >= len(desc.Layout) || desc.Layout[b.Group] == nil {
			return fmt.Errorf("pipeline %q: %w: %s declares group %d, layout has %d groups", desc.Label, ErrBindingMismatch, sh.Path(), b.Group, len(desc.Layout))
		}
		entries := desc.Layout[b.Group].Entries()
		i := slices.IndexFunc(entries, func(e wgpu.BindGroupLayoutEntry) bool { return e.Binding == b.Binding })
		if i < 0 {
			return fmt.Errorf("pipeline %q: %w: %s declares @group(%d) @binding(%d) %s", desc.Label, ErrBindingMismatch, sh.Path(), b.Group, b.Binding, b.Name)
		}
		if !kindMatches(b.Kind, entries[i]) {
			return fmt.Errorf("pipeline %q: %w: %s binding %d (%s) has a different resource type in the layout", desc.Label, ErrBindingMismatch, sh.Path(), b.Binding, b.Name)
		}
	}
	return nil
}

func kindMatches(kind shader.BindingKind, e wgpu.BindGroupLayoutEntry) bool {
	switch kind {
	case shader.BindingUniform:
		return e.Buffer.Type == wgpu.BufferBindingTypeUniform
	case shader.BindingStorage:
		return e.Buffer.Type == wgpu.BufferBindingTypeStorage || e.Buffer.Type == wgpu.BufferBindingTypeReadOnlyStorage
	default:
		return e.Sampler.Type != wgpu.SamplerBindingTypeUndefined ||
			e.Texture.SampleType != wgpu.TextureSampleTypeUndefined ||
			e.StorageTexture.Format != wgpu.TextureFormatUndefined
	}
}

func (c *pipelineCache) Wait() {
	c.inflight.Wait()
}

func (c *pipelineCache) Release() {
	if c.pool != nil {
		c.inflight.Wait()
		c.pool.Stop()
		c.pool = nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range c.pipelines {
		if p.pipeline != nil {
			p.pipeline.Release()
			p.pipeline = nil
		}
	}
	for key, m := range c.modules {
		m.Release()
		delete(c.modules, key)
	}
}

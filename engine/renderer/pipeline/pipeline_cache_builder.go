package pipeline

// PipelineCacheBuilderOption configures a PipelineCache.
type PipelineCacheBuilderOption func(*pipelineCache)

// WithSynchronousCompilation makes ProcessQueue create ready pipelines before returning.
//
// Returns:
//   - PipelineCacheBuilderOption: a function that disables the worker pool
func WithSynchronousCompilation() PipelineCacheBuilderOption {
	return func(c *pipelineCache) {
		c.synchronous = true
	}
}

// WithCompileWorkers sets the number of goroutines creating pipelines.
func WithCompileWorkers(n int) PipelineCacheBuilderOption {
	return func(c *pipelineCache) {
		c.workers = max(n, 1)
	}
}

package asset

// ServerBuilderOption configures a Server.
type ServerBuilderOption func(*server)

// WithSynchronousLoading makes Load read and parse the asset before returning.
// Tests use it to make frame behaviour deterministic.
//
// Returns:
//   - ServerBuilderOption: a function that disables the worker pool
func WithSynchronousLoading() ServerBuilderOption {
	return func(s *server) {
		s.synchronous = true
	}
}

// WithWorkers sets the number of background loader goroutines.
//
// Parameters:
//   - n: worker count, values below 1 are treated as 1
//
// Returns:
//   - ServerBuilderOption: a function that sets the worker count
func WithWorkers(n int) ServerBuilderOption {
	return func(s *server) {
		s.workers = max(n, 1)
	}
}

// WithWatchDir enables hot reloading: changes to files below dir are reloaded and reported by TakeModified.
// dir must be the directory the server's file system reads from.
//
// Parameters:
//   - dir: the on-disk asset root
//
// Returns:
//   - ServerBuilderOption: a function that sets the watched directory
func WithWatchDir(dir string) ServerBuilderOption {
	return func(s *server) {
		s.watchDir = dir
	}
}

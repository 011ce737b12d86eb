// Package asset loads WGSL shaders by path, off the render goroutine, and reloads them when
// their files change on disk.
package asset

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Carmen-Shannon/automation/tools/worker"
	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer/shader"
	"github.com/fsnotify/fsnotify"
)

// ErrNotFound is recorded for handles whose path does not exist.
var ErrNotFound = errors.New("asset: not found")

type entry struct {
	state   LoadState
	shader  shader.Shader
	err     error
	version uint64
}

type server struct {
	mu sync.Mutex

	fsys        fs.FS
	synchronous bool
	workers     int
	watchDir    string

	entries  map[Handle]*entry
	embedded map[Handle]string
	modified map[Handle]struct{}

	pool     worker.DynamicWorkerPool
	taskID   atomic.Int64
	inflight sync.WaitGroup

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// Server loads shader assets and tracks their state.
type Server interface {
	// Load starts loading path if it is not already loaded or loading.
	//
	// Parameters:
	//   - path: the asset path relative to the server's file system
	//
	// Returns:
	//   - Handle: the handle of the asset, usable immediately
	Load(path string) Handle

	// AddEmbedded registers source under the embedded path p and parses it immediately.
	//
	// Parameters:
	//   - p: a path without the EmbeddedScheme prefix
	//   - source: the WGSL source
	//
	// Returns:
	//   - Handle: the embedded asset's handle
	AddEmbedded(p, source string) Handle

	// Get returns the loaded shader for h.
	//
	// Returns:
	//   - shader.Shader: the shader, nil unless the state is LoadStateLoaded
	//   - LoadState: the current load state
	//   - error: the load error when the state is LoadStateFailed
	Get(h Handle) (shader.Shader, LoadState, error)

	// Version returns a counter incremented every time h finishes loading.
	Version(h Handle) uint64

	// Reload loads h again, keeping the previous shader available until the new load completes.
	Reload(h Handle)

	// TakeModified returns and clears the handles that finished reloading since the last call.
	TakeModified() []Handle

	// Wait blocks until all in-flight loads complete.
	Wait()

	// Close stops the file watcher and the loader pool.
	Close() error
}

var _ Server = &server{}

// NewServer creates a Server reading from fsys.
//
// Parameters:
//   - fsys: the asset file system, such as os.DirFS("assets") or an embed.FS
//   - options: functional options to configure the server
//
// Returns:
//   - Server: the server
//   - error: an error if the file watcher could not be started
func NewServer(fsys fs.FS, options ...ServerBuilderOption) (Server, error) {
	s := &server{
		fsys:     fsys,
		workers:  max(runtime.NumCPU()/2, 1),
		entries:  make(map[Handle]*entry),
		embedded: make(map[Handle]string),
		modified: make(map[Handle]struct{}),
		done:     make(chan struct{}),
	}
	for _, option := range options {
		option(s)
	}
	if !s.synchronous {
		s.pool = worker.NewDynamicWorkerPool(s.workers, 64, time.Second)
	}
	if s.watchDir != "" {
		if err := s.watch(); err != nil {
			s.Close()
			return nil, err
		}
	}
	return s, nil
}

func (s *server) Load(p string) Handle {
	h := NewHandle(p)
	s.mu.Lock()
	if e, ok := s.entries[h]; ok && e.state != LoadStateNotLoaded {
		s.mu.Unlock()
		return h
	}
	s.entries[h] = &entry{state: LoadStateLoading}
	s.mu.Unlock()

	s.schedule(h, false)
	return h
}

func (s *server) AddEmbedded(p, source string) Handle {
	h := EmbeddedHandle(p)
	s.mu.Lock()
	s.embedded[h] = source
	s.entries[h] = &entry{state: LoadStateLoading}
	s.mu.Unlock()

	s.load(h, false)
	return h
}

func (s *server) Get(h Handle) (shader.Shader, LoadState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[h]
	if !ok {
		return nil, LoadStateNotLoaded, nil
	}
	return e.shader, e.state, e.err
}

func (s *server) Version(h Handle) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[h]; ok {
		return e.version
	}
	return 0
}

func (s *server) Reload(h Handle) {
	s.mu.Lock()
	if _, ok := s.entries[h]; !ok {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	s.schedule(h, true)
}

func (s *server) TakeModified() []Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.modified) == 0 {
		return nil
	}
	out := make([]Handle, 0, len(s.modified))
	for h := range s.modified {
		out = append(out, h)
	}
	clear(s.modified)
	return out
}

func (s *server) Wait() {
	s.inflight.Wait()
}

func (s *server) Close() error {
	var err error
	select {
	case <-s.done:
		return nil
	default:
		close(s.done)
	}
	if s.watcher != nil {
		err = s.watcher.Close()
	}
	if s.pool != nil {
		s.inflight.Wait()
		s.pool.Stop()
	}
	return err
}

// schedule runs load on the pool, or inline when loading synchronously.
func (s *server) schedule(h Handle, reload bool) {
	if s.pool == nil {
		s.load(h, reload)
		return
	}
	s.inflight.Add(1)
	s.pool.SubmitTask(worker.Task{
		ID:      int(s.taskID.Add(1)),
		Payload: h,
		Do: func() (any, error) {
			defer s.inflight.Done()
			s.load(h, reload)
			return nil, nil
		},
	})
}

// load reads and parses h and publishes the result. A failed reload keeps the previous shader.
func (s *server) load(h Handle, reload bool) {
	src, err := s.read(h)
	var sh shader.Shader
	if err == nil {
		sh, err = shader.New(h.Path(), src)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e := s.entries[h]
	if e == nil {
		e = &entry{}
		s.entries[h] = e
	}
	if err != nil {
		common.Logger().Warn("asset load failed", "path", h.Path(), "error", err)
		e.err = err
		if e.shader == nil || !reload {
			e.state = LoadStateFailed
		}
		if reload {
			s.modified[h] = struct{}{}
		}
		return
	}
	e.shader, e.err, e.state = sh, nil, LoadStateLoaded
	e.version++
	if reload {
		s.modified[h] = struct{}{}
		common.Logger().Info("asset reloaded", "path", h.Path(), "version", e.version)
	}
}

func (s *server) read(h Handle) (string, error) {
	if h.IsEmbedded() {
		s.mu.Lock()
		src, ok := s.embedded[h]
		s.mu.Unlock()
		if !ok {
			return "", fmt.Errorf("%w: %s", ErrNotFound, h.Path())
		}
		return src, nil
	}
	if s.fsys == nil {
		return "", fmt.Errorf("%w: %s (no asset file system)", ErrNotFound, h.Path())
	}
	b, err := fs.ReadFile(s.fsys, h.Path())
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, h.Path())
	}
	if err != nil {
		return "", fmt.Errorf("read asset %s: %w", h.Path(), err)
	}
	return string(b), nil
}

// watch registers every directory below watchDir with fsnotify and reloads loaded assets on write.
func (s *server) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create asset watcher: %w", err)
	}
	s.watcher = w
	err = filepath.WalkDir(s.watchDir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("watch %s: %w", s.watchDir, err)
	}

	go func() {
		for {
			select {
			case <-s.done:
				return
			case event, ok := <-w.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				s.onFileChanged(event.Name)
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				common.Logger().Error("asset watcher error", "error", err)
			}
		}
	}()
	return nil
}

func (s *server) onFileChanged(name string) {
	rel, err := filepath.Rel(s.watchDir, name)
	if err != nil {
		return
	}
	h := NewHandle(filepath.ToSlash(rel))
	s.mu.Lock()
	_, loaded := s.entries[h]
	s.mu.Unlock()
	if !loaded {
		if info, err := os.Stat(name); err == nil && info.IsDir() {
			_ = s.watcher.Add(name)
		}
		return
	}
	s.Reload(h)
}

// Package config reads engine settings from TOML and turns them into the builder options of the
// window, engine, renderer and asset packages.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/Carmen-Shannon/oxy-postfx/engine"
	"github.com/Carmen-Shannon/oxy-postfx/engine/asset"
	"github.com/Carmen-Shannon/oxy-postfx/engine/profiler"
	"github.com/Carmen-Shannon/oxy-postfx/engine/renderer"
	"github.com/Carmen-Shannon/oxy-postfx/engine/window"
)

// ErrInvalid is wrapped by every validation error.
var ErrInvalid = errors.New("config: invalid value")

// Window configures the window.
type Window struct {
	Title     string `toml:"title"`
	Width     int    `toml:"width"`
	Height    int    `toml:"height"`
	MinWidth  int    `toml:"min_width"`
	MinHeight int    `toml:"min_height"`
	MaxWidth  int    `toml:"max_width"`
	MaxHeight int    `toml:"max_height"`
	Resizable bool   `toml:"resizable"`
	// CloseOnEscape closes the window when Escape is pressed.
	CloseOnEscape bool `toml:"close_on_escape"`
}

// Engine configures the engine loop.
type Engine struct {
	// TickRate is the FixedUpdate rate in ticks per second.
	TickRate float64 `toml:"tick_rate"`
	// FrameLimit caps frames per second; 0 is uncapped.
	FrameLimit float64 `toml:"frame_limit"`
	Profiling  bool    `toml:"profiling"`
	// ProfilerInterval is a Go duration string such as "1s".
	ProfilerInterval string `toml:"profiler_interval"`
}

// Renderer configures the render device and pipeline compilation.
type Renderer struct {
	// PresentMode is "vsync" or "uncapped".
	PresentMode string `toml:"present_mode"`
	// FallbackAdapter forces a software adapter.
	FallbackAdapter bool `toml:"fallback_adapter"`
	// CompileWorkers is the number of pipeline compilation workers.
	CompileWorkers int `toml:"compile_workers"`
	// SynchronousCompilation compiles pipelines on the render goroutine.
	SynchronousCompilation bool `toml:"synchronous_compilation"`
}

// Assets configures the asset server.
type Assets struct {
	// Root is the directory assets are loaded from.
	Root    string `toml:"root"`
	Workers int    `toml:"workers"`
	// HotReload watches Root and reloads changed shaders.
	HotReload bool `toml:"hot_reload"`
}

// Log configures the engine logger.
type Log struct {
	// Level is "debug", "info", "warn" or "error".
	Level string `toml:"level"`
	// Format is "text" or "json".
	Format string `toml:"format"`
}

// Config is the root of the configuration file.
type Config struct {
	Window   Window   `toml:"window"`
	Engine   Engine   `toml:"engine"`
	Renderer Renderer `toml:"renderer"`
	Assets   Assets   `toml:"assets"`
	Log      Log      `toml:"log"`
}

// Default returns the configuration used for keys a file leaves out.
//
// Returns:
//   - Config: the default configuration
func Default() Config {
	return Config{
		Window: Window{
			Title:         "oxy",
			Width:         1280,
			Height:        720,
			MinWidth:      320,
			MinHeight:     200,
			MaxWidth:      3840,
			MaxHeight:     2160,
			Resizable:     true,
			CloseOnEscape: true,
		},
		Engine: Engine{
			TickRate:         60,
			ProfilerInterval: "1s",
		},
		Renderer: Renderer{
			PresentMode:    "vsync",
			CompileWorkers: 2,
		},
		Assets: Assets{
			Root:    "assets",
			Workers: 2,
		},
		Log: Log{
			Level:  "info",
			Format: "text",
		},
	}
}

// Read decodes a TOML document over the defaults and validates it. Unknown keys are rejected.
//
// Parameters:
//   - r: the TOML source
//
// Returns:
//   - Config: the decoded configuration
//   - error: a decode error, or a validation error wrapping ErrInvalid
func Read(r io.Reader) (Config, error) {
	c := Default()
	d := toml.NewDecoder(r)
	d.DisallowUnknownFields()
	if err := d.Decode(&c); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return Config{}, fmt.Errorf("decode config: %w\n%s", err, strict.String())
		}
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Parse is Read on a byte slice.
func Parse(data []byte) (Config, error) {
	return Read(bytes.NewReader(data))
}

// Open reads the configuration file at path.
//
// Parameters:
//   - path: the file to read
//
// Returns:
//   - Config: the decoded configuration
//   - error: an open, decode or validation error
func Open(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// OpenFS reads the configuration file name from fsys, e.g. an embedded file system.
func OpenFS(fsys fs.FS, name string) (Config, error) {
	f, err := fsys.Open(name)
	if err != nil {
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Read(f)
}

// Marshal encodes c as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate checks every value that cannot be expressed by the TOML types alone.
//
// Returns:
//   - error: the joined validation errors, each wrapping ErrInvalid
func (c Config) Validate() error {
	var errs []error
	invalid := func(key string, v any) {
		errs = append(errs, fmt.Errorf("%w: %s = %v", ErrInvalid, key, v))
	}
	if c.Window.Width <= 0 {
		invalid("window.width", c.Window.Width)
	}
	if c.Window.Height <= 0 {
		invalid("window.height", c.Window.Height)
	}
	if c.Window.MinWidth > c.Window.MaxWidth {
		invalid("window.min_width", c.Window.MinWidth)
	}
	if c.Window.MinHeight > c.Window.MaxHeight {
		invalid("window.min_height", c.Window.MinHeight)
	}
	if c.Engine.TickRate < 0 {
		invalid("engine.tick_rate", c.Engine.TickRate)
	}
	if c.Engine.FrameLimit < 0 {
		invalid("engine.frame_limit", c.Engine.FrameLimit)
	}
	if _, err := time.ParseDuration(c.Engine.ProfilerInterval); err != nil {
		invalid("engine.profiler_interval", c.Engine.ProfilerInterval)
	}
	if _, err := c.Renderer.presentMode(); err != nil {
		invalid("renderer.present_mode", c.Renderer.PresentMode)
	}
	if c.Renderer.CompileWorkers < 0 {
		invalid("renderer.compile_workers", c.Renderer.CompileWorkers)
	}
	if c.Assets.Workers < 0 {
		invalid("assets.workers", c.Assets.Workers)
	}
	if _, err := c.Log.level(); err != nil {
		invalid("log.level", c.Log.Level)
	}
	if f := strings.ToLower(c.Log.Format); f != "text" && f != "json" {
		invalid("log.format", c.Log.Format)
	}
	return errors.Join(errs...)
}

func (r Renderer) presentMode() (renderer.PresentMode, error) {
	for _, m := range []renderer.PresentMode{renderer.PresentModeVSync, renderer.PresentModeUncapped} {
		if strings.EqualFold(r.PresentMode, m.String()) {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown present mode %q", r.PresentMode)
}

func (l Log) level() (slog.Level, error) {
	var lvl slog.Level
	err := lvl.UnmarshalText([]byte(l.Level))
	return lvl, err
}

// WindowOptions returns the window builder options of c.
func (c Config) WindowOptions() []window.WindowBuilderOption {
	w := c.Window
	return []window.WindowBuilderOption{
		window.WithTitle(w.Title),
		window.WithSize(w.Width, w.Height),
		window.WithMinSize(w.MinWidth, w.MinHeight),
		window.WithMaxSize(w.MaxWidth, w.MaxHeight),
		window.WithResizable(w.Resizable),
		window.WithCloseOnEscape(w.CloseOnEscape),
	}
}

// EngineOptions returns the engine builder options of c. The window is supplied separately.
func (c Config) EngineOptions() []engine.EngineBuilderOption {
	interval, _ := time.ParseDuration(c.Engine.ProfilerInterval)
	return []engine.EngineBuilderOption{
		engine.WithTickRate(c.Engine.TickRate),
		engine.WithRenderFrameLimit(c.Engine.FrameLimit),
		engine.WithProfiling(c.Engine.Profiling, profiler.WithInterval(interval)),
	}
}

// RenderDeviceOptions returns the WGPU device builder options of c.
func (c Config) RenderDeviceOptions() []renderer.WGPURenderDeviceBuilderOption {
	mode, _ := c.Renderer.presentMode()
	return []renderer.WGPURenderDeviceBuilderOption{
		renderer.WithPresentMode(mode),
		renderer.WithForceFallbackAdapter(c.Renderer.FallbackAdapter),
	}
}

// RenderPluginOptions returns the render plugin options of c. The device and surface are supplied separately.
func (c Config) RenderPluginOptions() []renderer.RenderPluginBuilderOption {
	opts := []renderer.RenderPluginBuilderOption{renderer.WithPipelineCompileWorkers(c.Renderer.CompileWorkers)}
	if c.Renderer.SynchronousCompilation {
		opts = append(opts, renderer.WithSynchronousPipelineCompilation())
	}
	return opts
}

// AssetFS returns the file system assets are loaded from.
func (c Config) AssetFS() fs.FS {
	return os.DirFS(c.Assets.Root)
}

// AssetOptions returns the asset server options of c.
func (c Config) AssetOptions() []asset.ServerBuilderOption {
	opts := []asset.ServerBuilderOption{asset.WithWorkers(c.Assets.Workers)}
	if c.Assets.HotReload {
		opts = append(opts, asset.WithWatchDir(c.Assets.Root))
	}
	return opts
}

// Logger returns a logger writing to w at the configured level and format, for common.SetLogger.
//
// Parameters:
//   - w: the log destination
//
// Returns:
//   - *slog.Logger: the logger
func (c Config) Logger(w io.Writer) *slog.Logger {
	lvl, _ := c.Log.level()
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(c.Log.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

package shader

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-postfx/common"
)

// shader is the implementation of the Shader interface.
type shader struct {
	path       string
	raw        string
	source     string
	includes   []string
	reflection Reflection
}

// Shader is a loaded WGSL shader: its expanded source plus the reflected interface used to
// validate pipelines before they reach the GPU.
type Shader interface {
	// Path returns the asset path the shader was loaded from.
	//
	// Returns:
	//   - string: the asset path
	Path() string

	// Source returns the pre-processed WGSL source handed to the GPU.
	//
	// Returns:
	//   - string: the expanded WGSL source
	Source() string

	// RawSource returns the source as loaded, before includes were expanded.
	RawSource() string

	// Includes returns the include names expanded into Source.
	Includes() []string

	// Reflection returns the entry points and bindings of the shader.
	//
	// Returns:
	//   - Reflection: the reflected module interface
	Reflection() Reflection
}

var _ Shader = &shader{}

// New pre-processes and reflects WGSL source.
//
// Parameters:
//   - path: the asset path, used as the shader's identity and in error messages
//   - source: the raw WGSL source, possibly containing //@oxy:include lines
//
// Returns:
//   - Shader: the parsed shader
//   - error: an error if an include cannot be resolved or the expanded source is not valid WGSL
func New(path, source string) (Shader, error) {
	pp := NewPreProcessor()
	expanded, err := pp.Process(source)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", path, err)
	}
	r, err := Reflect(expanded)
	if err != nil {
		return nil, fmt.Errorf("shader %s: %w", path, err)
	}
	for _, d := range r.Diagnostics {
		common.Logger().Warn("shader validation", "path", path, "diagnostic", d)
	}
	return &shader{
		path:       path,
		raw:        source,
		source:     expanded,
		includes:   append([]string(nil), pp.Included()...),
		reflection: r,
	}, nil
}

// MustNew is New for shaders embedded in the binary, where a failure is a programming error.
func MustNew(path, source string) Shader {
	s, err := New(path, source)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *shader) Path() string {
	return s.path
}

func (s *shader) Source() string {
	return s.source
}

func (s *shader) RawSource() string {
	return s.raw
}

func (s *shader) Includes() []string {
	return s.includes
}

func (s *shader) Reflection() Reflection {
	return s.reflection
}

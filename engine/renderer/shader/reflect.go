package shader

import (
	"errors"
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/naga/ir"
)

// Stage is a pipeline stage a shader entry point runs in.
type Stage int

const (
	// StageVertex is the vertex stage of a render pipeline.
	StageVertex Stage = iota
	// StageFragment is the fragment stage of a render pipeline.
	StageFragment
	// StageCompute is a compute pipeline.
	StageCompute
)

func (s Stage) String() string {
	switch s {
	case StageVertex:
		return "vertex"
	case StageFragment:
		return "fragment"
	case StageCompute:
		return "compute"
	default:
		return fmt.Sprintf("Stage(%d)", int(s))
	}
}

// BindingKind classifies a resource binding declared by a shader.
type BindingKind int

const (
	// BindingUniform is a var<uniform> buffer.
	BindingUniform BindingKind = iota
	// BindingStorage is a var<storage> buffer.
	BindingStorage
	// BindingHandle is a texture or sampler.
	BindingHandle
)

// EntryPoint is a shader entry function.
type EntryPoint struct {
	Name  string
	Stage Stage
}

// Binding is a resource declared with @group/@binding.
type Binding struct {
	Group   uint32
	Binding uint32
	Name    string
	Kind    BindingKind
}

// Reflection describes the interface of a WGSL module.
type Reflection struct {
	EntryPoints []EntryPoint
	Bindings    []Binding
	// Diagnostics holds validator messages. They are reported but do not make the shader unusable,
	// since the GPU driver performs the authoritative validation.
	Diagnostics []string
}

// HasEntryPoint reports whether the module defines name for stage.
func (r Reflection) HasEntryPoint(name string, stage Stage) bool {
	for _, ep := range r.EntryPoints {
		if ep.Name == name && ep.Stage == stage {
			return true
		}
	}
	return false
}

// ErrParse wraps WGSL syntax and semantic errors reported by Reflect.
var ErrParse = errors.New("shader: invalid WGSL")

// Reflect parses WGSL source with naga and returns its entry points and resource bindings.
//
// Parameters:
//   - source: pre-processed WGSL source
//
// Returns:
//   - Reflection: the module interface
//   - error: ErrParse (wrapped) if the source does not parse or lower
func Reflect(source string) (Reflection, error) {
	ast, err := naga.Parse(source)
	if err != nil {
		return Reflection{}, fmt.Errorf("%w: %w", ErrParse, err)
	}
	module, err := naga.LowerWithSource(ast, source)
	if err != nil {
		return Reflection{}, fmt.Errorf("%w: %w", ErrParse, err)
	}

	var r Reflection
	for _, ep := range module.EntryPoints {
		stage, ok := stageOf(ep.Stage)
		if !ok {
			continue
		}
		r.EntryPoints = append(r.EntryPoints, EntryPoint{Name: ep.Name, Stage: stage})
	}
	for _, gv := range module.GlobalVariables {
		if gv.Binding == nil {
			continue
		}
		r.Bindings = append(r.Bindings, Binding{
			Group:   gv.Binding.Group,
			Binding: gv.Binding.Binding,
			Name:    gv.Name,
			Kind:    kindOf(gv.Space),
		})
	}

	diags, err := naga.Validate(module)
	if err != nil {
		r.Diagnostics = append(r.Diagnostics, err.Error())
	}
	for _, d := range diags {
		r.Diagnostics = append(r.Diagnostics, d.Error())
	}
	return r, nil
}

func stageOf(s ir.ShaderStage) (Stage, bool) {
	switch s {
	case ir.StageVertex:
		return StageVertex, true
	case ir.StageFragment:
		return StageFragment, true
	case ir.StageCompute:
		return StageCompute, true
	default:
		return 0, false
	}
}

func kindOf(space ir.AddressSpace) BindingKind {
	switch space {
	case ir.SpaceUniform:
		return BindingUniform
	case ir.SpaceStorage:
		return BindingStorage
	default:
		return BindingHandle
	}
}

package shader

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testStruct = `struct TestParams {
    tint: vec4<f32>,
};`

const fragmentSource = `//@oxy:include test_params
//@oxy:include test_params

@group(0) @binding(0) var screen_texture: texture_2d<f32>;
@group(0) @binding(1) var texture_sampler: sampler;
@group(0) @binding(2) var<uniform> params: TestParams;

@fragment
fn fragment(@location(0) uv: vec2<f32>) -> @location(0) vec4<f32> {
    return textureSample(screen_texture, texture_sampler, uv) * params.tint;
}
`

func init() {
	RegisterInclude("test_params", testStruct)
}

func TestPreProcessorExpandsIncludesOnce(t *testing.T) {
	pp := NewPreProcessor()
	out, err := pp.Process(fragmentSource)
	require.NoError(t, err)
	assert.Contains(t, out, "struct TestParams")
	assert.Equal(t, 1, strings.Count(out, "struct TestParams"))
	assert.Equal(t, []string{"test_params"}, pp.Included())
}

func TestPreProcessorErrors(t *testing.T) {
	pp := NewPreProcessor()

	_, err := pp.Process("//@oxy:include missing")
	assert.ErrorContains(t, err, `unknown @oxy:include argument "missing"`)

	_, err = pp.Process("fn f() {}\n//@oxy:")
	assert.ErrorContains(t, err, "line 2: empty @oxy annotation")

	_, err = pp.Process("//@oxy:group 0 0")
	assert.ErrorContains(t, err, "unknown annotation type")

	_, err = pp.Process("//@oxy:include a b")
	assert.ErrorContains(t, err, "exactly one argument")
}

func TestNewReflectsBindingsAndEntryPoints(t *testing.T) {
	s, err := New("shaders/test.wgsl", fragmentSource)
	require.NoError(t, err)
	assert.Equal(t, "shaders/test.wgsl", s.Path())
	assert.Equal(t, fragmentSource, s.RawSource())

	r := s.Reflection()
	assert.True(t, r.HasEntryPoint("fragment", StageFragment))
	assert.False(t, r.HasEntryPoint("fragment", StageVertex))
	require.Len(t, r.Bindings, 3)
	assert.Equal(t, Binding{Group: 0, Binding: 2, Name: "params", Kind: BindingUniform}, r.Bindings[2])
	assert.Equal(t, BindingHandle, r.Bindings[0].Kind)
}

func TestNewRejectsInvalidSource(t *testing.T) {
	_, err := New("broken.wgsl", "fn oops( {")
	assert.ErrorIs(t, err, ErrParse)
	assert.Panics(t, func() { MustNew("broken.wgsl", "fn oops( {") })
}

package render_resource

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-postfx/common"
	"github.com/cogentcore/webgpu/wgpu"
)

// BufferBinding is a range of a buffer bound as a uniform. For dynamic uniforms Offset is 0 and
// the per-draw offset is supplied to RenderPass.SetBindGroup.
type BufferBinding struct {
	Buffer Buffer
	Offset uint64
	Size   uint64
}

// DynamicUniformBuffer packs many values of T into one uniform buffer, each at an offset aligned to
// the device's dynamic offset alignment, so that one bind group serves every value.
// It is rebuilt every frame: Clear, Push each value, then Write.
type DynamicUniformBuffer[T ShaderType] struct {
	label     string
	alignment uint64
	data      []byte
	count     int
	buffer    Buffer
}

// NewDynamicUniformBuffer creates an empty buffer.
//
// Parameters:
//   - label: debug label of the GPU buffer
//   - alignment: dynamic offset alignment in bytes; zero selects DefaultMinUniformBufferOffsetAlignment
//
// Returns:
//   - *DynamicUniformBuffer[T]: the new buffer
func NewDynamicUniformBuffer[T ShaderType](label string, alignment uint32) *DynamicUniformBuffer[T] {
	return &DynamicUniformBuffer[T]{
		label:     label,
		alignment: uint64(common.Coalesce(alignment, DefaultMinUniformBufferOffsetAlignment)),
	}
}

// Clear drops the values pushed this frame. The GPU buffer is kept for reuse.
func (b *DynamicUniformBuffer[T]) Clear() {
	b.data = b.data[:0]
	b.count = 0
}

// Push appends v and returns its dynamic offset.
//
// Parameters:
//   - v: the value to append
//
// Returns:
//   - uint32: the byte offset to pass to SetBindGroup for draws that use v
func (b *DynamicUniformBuffer[T]) Push(v T) uint32 {
	offset := uint64(len(b.data))
	encoded := v.Marshal()
	stride := common.AlignUp(uint64(len(encoded)), b.alignment)
	b.data = append(b.data, encoded...)
	b.data = append(b.data, make([]byte, stride-uint64(len(encoded)))...)
	b.count++
	return uint32(offset)
}

// Len returns the number of values pushed since the last Clear.
func (b *DynamicUniformBuffer[T]) Len() int {
	return b.count
}

// Bytes returns the packed contents that Write uploads.
func (b *DynamicUniformBuffer[T]) Bytes() []byte {
	return b.data
}

// Write uploads the pushed values, creating or growing the GPU buffer as needed.
// With no values pushed it does nothing and any existing buffer is kept.
//
// Parameters:
//   - device: the device to create the buffer on and write through
//
// Returns:
//   - error: an error if the buffer could not be created or written
func (b *DynamicUniformBuffer[T]) Write(device RenderDevice) error {
	if b.count == 0 {
		return nil
	}
	size := uint64(len(b.data))
	if b.buffer == nil || b.buffer.Size() < size {
		if b.buffer != nil {
			b.buffer.Release()
			b.buffer = nil
		}
		buf, err := device.CreateBuffer(BufferDescriptor{
			Label: b.label,
			Size:  size,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("create uniform buffer %q: %w", b.label, err)
		}
		b.buffer = buf
	}
	return device.WriteBuffer(b.buffer, 0, b.data)
}

// Binding returns the binding of one element. It is valid once Write has created the GPU buffer.
//
// Returns:
//   - BufferBinding: the buffer with Size set to the encoded size of T
//   - bool: false if no GPU buffer exists yet
func (b *DynamicUniformBuffer[T]) Binding() (BufferBinding, bool) {
	if b.buffer == nil {
		return BufferBinding{}, false
	}
	return BufferBinding{Buffer: b.buffer, Size: SizeOf[T]()}, true
}

// Release frees the GPU buffer.
func (b *DynamicUniformBuffer[T]) Release() {
	if b.buffer != nil {
		b.buffer.Release()
		b.buffer = nil
	}
}

package render_resource

// ShaderType is a Go value with a fixed WGSL-compatible byte layout.
// Size must equal the size of the matching WGSL struct, which is always a multiple of 16 for uniforms.
// Implement both methods on the value receiver so that T itself, not *T, satisfies the constraint.
type ShaderType interface {
	// Size returns the encoded size in bytes.
	Size() int

	// Marshal encodes the value in WGSL uniform layout, little-endian. The result has length Size().
	Marshal() []byte
}

// SizeOf returns the encoded size of T.
func SizeOf[T ShaderType]() uint64 {
	var zero T
	return uint64(zero.Size())
}

package common

// Coalesce returns the first non-zero value from the provided values, or the zero value if all are zero.
//
// Parameters:
//   - values: a variadic list of values to check for non-zero status
//
// Returns:
//   - T: the first non-zero value from the input, or the zero value if all are zero
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}

// AlignUp rounds size up to the next multiple of alignment.
// An alignment of zero returns size unchanged.
//
// Parameters:
//   - size: the value to round
//   - alignment: the required multiple, typically a GPU limit such as the minimum uniform buffer offset alignment
//
// Returns:
//   - uint64: the smallest multiple of alignment that is >= size
func AlignUp(size, alignment uint64) uint64 {
	if alignment == 0 {
		return size
	}
	return (size + alignment - 1) / alignment * alignment
}

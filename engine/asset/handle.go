package asset

import (
	"fmt"
	"path"
	"strings"
)

// EmbeddedScheme prefixes paths of assets compiled into the binary.
const EmbeddedScheme = "embedded://"

// Handle identifies a shader asset by its normalised path. Handles are comparable and can be
// created before the asset is loaded; two handles to the same path are equal.
type Handle struct {
	path string
}

// NewHandle returns the handle for p. Paths are slash-separated and cleaned.
//
// Parameters:
//   - p: an asset path relative to the server root, or an EmbeddedScheme path
//
// Returns:
//   - Handle: the handle for p
func NewHandle(p string) Handle {
	if rest, ok := strings.CutPrefix(p, EmbeddedScheme); ok {
		return Handle{path: EmbeddedScheme + path.Clean("/" + rest)[1:]}
	}
	return Handle{path: path.Clean("/" + strings.ReplaceAll(p, "\\", "/"))[1:]}
}

// EmbeddedHandle returns the handle of an embedded asset.
func EmbeddedHandle(p string) Handle {
	return NewHandle(EmbeddedScheme + p)
}

// Path returns the normalised asset path.
func (h Handle) Path() string {
	return h.path
}

// IsZero reports whether h is the zero handle.
func (h Handle) IsZero() bool {
	return h.path == ""
}

// IsEmbedded reports whether h names an embedded asset.
func (h Handle) IsEmbedded() bool {
	return strings.HasPrefix(h.path, EmbeddedScheme)
}

func (h Handle) String() string {
	return fmt.Sprintf("Handle(%s)", h.path)
}

// LoadState is the progress of an asset load.
type LoadState int

const (
	// LoadStateNotLoaded means Load was never called for the handle.
	LoadStateNotLoaded LoadState = iota
	// LoadStateLoading means a load is in flight.
	LoadStateLoading
	// LoadStateLoaded means the asset is available.
	LoadStateLoaded
	// LoadStateFailed means the last load failed; the error is kept until the asset is reloaded.
	LoadStateFailed
)

func (s LoadState) String() string {
	switch s {
	case LoadStateNotLoaded:
		return "NotLoaded"
	case LoadStateLoading:
		return "Loading"
	case LoadStateLoaded:
		return "Loaded"
	case LoadStateFailed:
		return "Failed"
	default:
		return fmt.Sprintf("LoadState(%d)", int(s))
	}
}

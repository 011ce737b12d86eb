// pre_processor.go implements the Oxy WGSL shader pre-processor. It scans shader source for
// `//@oxy:include <name>` lines and replaces each with the WGSL registered under that name,
// so engine-owned structs such as the view uniform are defined in exactly one place.
package shader

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
)

const annotationPrefix = "@oxy:"

const annotationInclude = "include"

var (
	includeMu       sync.RWMutex
	includeRegistry = make(map[string]string)
)

// RegisterInclude makes source available to shaders as `//@oxy:include name`.
// Packages owning a GPU struct register its WGSL definition from an init function.
// Registering the same name twice replaces the earlier source.
//
// Parameters:
//   - name: the include name used in shader source
//   - source: the WGSL text injected in place of the include line
func RegisterInclude(name, source string) {
	includeMu.Lock()
	defer includeMu.Unlock()
	includeRegistry[name] = source
}

// Includes returns the registered include names in sorted order.
func Includes() []string {
	includeMu.RLock()
	defer includeMu.RUnlock()
	return slices.Sorted(maps.Keys(includeRegistry))
}

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct {
	included []string
}

// PreProcessor expands @oxy annotations in WGSL source.
type PreProcessor interface {
	// Process replaces every `//@oxy:include <name>` line with the registered source for name.
	// Each name is injected at most once per Process call; repeated includes expand to nothing.
	//
	// Parameters:
	//   - source: the raw WGSL shader source
	//
	// Returns:
	//   - string: the expanded source
	//   - error: an error naming the line of a malformed annotation or an unknown include
	Process(source string) (string, error)

	// Included returns the include names expanded by the last Process call, in source order.
	Included() []string
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a PreProcessor that resolves includes against the global registry.
//
// Returns:
//   - PreProcessor: a ready-to-use pre-processor instance
func NewPreProcessor() PreProcessor {
	return &preProcessor{}
}

func (p *preProcessor) Process(source string) (string, error) {
	p.included = p.included[:0]

	lines := strings.Split(source, "\n")
	out := make([]string, 0, len(lines))

	includeMu.RLock()
	defer includeMu.RUnlock()
	for i, line := range lines {
		name, ok, err := parseInclude(line, i+1)
		if err != nil {
			return "", err
		}
		if !ok {
			out = append(out, line)
			continue
		}
		if slices.Contains(p.included, name) {
			continue
		}
		src, found := includeRegistry[name]
		if !found {
			return "", fmt.Errorf("line %d: unknown @oxy:include argument %q", i+1, name)
		}
		out = append(out, src)
		p.included = append(p.included, name)
	}
	return strings.Join(out, "\n"), nil
}

func (p *preProcessor) Included() []string {
	return p.included
}

// parseInclude recognises `//@oxy:include <name>`. Lines without the annotation prefix are not annotations.
func parseInclude(line string, lineNum int) (string, bool, error) {
	trimmed := strings.TrimSpace(line)
	comment, ok := strings.CutPrefix(trimmed, "//")
	if !ok {
		return "", false, nil
	}
	after, ok := strings.CutPrefix(strings.TrimSpace(comment), annotationPrefix)
	if !ok {
		return "", false, nil
	}

	args := strings.Fields(after)
	if len(args) == 0 {
		return "", false, fmt.Errorf("line %d: empty @oxy annotation", lineNum)
	}
	if args[0] != annotationInclude {
		return "", false, fmt.Errorf("line %d: unknown annotation type %q", lineNum, args[0])
	}
	if len(args) != 2 {
		return "", false, fmt.Errorf("line %d: @oxy:include annotation requires exactly one argument", lineNum)
	}
	return args[1], true, nil
}
